package store

import (
	"context"
	"sync"

	"kycgate/internal/identity/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

type linkKey struct {
	tenantID     id.TenantID
	clientUserID string
}

// InMemoryStore keeps users and client links in maps guarded by one mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]models.User
	byEmail map[string]id.UserID
	links   map[linkKey]models.ClientUser
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[id.UserID]models.User),
		byEmail: make(map[string]id.UserID),
		links:   make(map[linkKey]models.ClientUser),
	}
}

// UpsertUser creates user unless its email is taken, in which case only the phone of
// the existing user is updated. Reports whether a new user was created.
func (s *InMemoryStore) UpsertUser(_ context.Context, user *models.User) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byEmail[user.Email]; ok {
		existing := s.users[existingID]
		existing.Phone = user.Phone
		existing.UpdatedAt = user.UpdatedAt
		s.users[existingID] = existing
		return &existing, false, nil
	}
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	stored := *user
	return &stored, true, nil
}

func (s *InMemoryStore) FindUserByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

// CreateLinkIfAbsent stores link unless the (tenant, client user id) pair is already
// linked, and returns the stored link either way.
func (s *InMemoryStore) CreateLinkIfAbsent(_ context.Context, link *models.ClientUser) (*models.ClientUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey{tenantID: link.TenantID, clientUserID: link.ClientUserID}
	if existing, ok := s.links[key]; ok {
		return &existing, nil
	}
	if _, ok := s.users[link.UserID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	s.links[key] = *link
	stored := *link
	return &stored, nil
}

func (s *InMemoryStore) FindLink(_ context.Context, tenantID id.TenantID, clientUserID string) (*models.ClientUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[linkKey{tenantID: tenantID, clientUserID: clientUserID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &link, nil
}
