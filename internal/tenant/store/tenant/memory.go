package tenant

import (
	"context"
	"strings"
	"sync"

	"kycgate/internal/tenant/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemory is the tenant store used when no database is configured.
// Names are unique case-insensitively, API keys exactly.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]models.Tenant
	byName  map[string]id.TenantID
	byKey   map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]models.Tenant),
		byName:  make(map[string]id.TenantID),
		byKey:   make(map[string]id.TenantID),
	}
}

func (s *InMemory) CreateIfNameAvailable(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(tenant.Name)
	if _, taken := s.byName[name]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byKey[tenant.APIKey]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.tenants[tenant.ID]; taken {
		return sentinel.ErrConflict
	}
	s.tenants[tenant.ID] = *tenant
	s.byName[name] = tenant.ID
	s.byKey[tenant.APIKey] = tenant.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(tenantID, true)
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID, ok := s.byName[strings.ToLower(name)]
	return s.lookup(tenantID, ok)
}

func (s *InMemory) FindByAPIKey(_ context.Context, apiKey string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID, ok := s.byKey[apiKey]
	return s.lookup(tenantID, ok)
}

// Execute loads the tenant, runs validate and, when it passes, applies mutate and
// stores the result. The write lock is held for the whole sequence.
func (s *InMemory) Execute(_ context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&tenant); err != nil {
		return nil, err
	}
	mutate(&tenant)
	s.tenants[tenantID] = tenant
	return &tenant, nil
}

func (s *InMemory) lookup(tenantID id.TenantID, ok bool) (*models.Tenant, error) {
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &tenant, nil
}
