package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tenantmetrics "kycgate/internal/tenant/metrics"
	"kycgate/internal/tenant/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
	Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// KeyGenerator produces new tenant API keys.
type KeyGenerator func() (string, error)

// Service orchestrates tenant lifecycle management and API key authentication.
type Service struct {
	tenants        TenantStore
	generateKey    KeyGenerator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *tenantmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(tenants TenantStore, generateKey KeyGenerator, opts ...Option) (*Service, error) {
	if tenants == nil {
		return nil, errors.New("tenant store is required")
	}
	if generateKey == nil {
		return nil, errors.New("key generator is required")
	}
	s := &Service{
		tenants:     tenants,
		generateKey: generateKey,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTenant registers a tenant under a fresh API key. The returned tenant is the
// only place the cleartext key is handed out.
func (s *Service) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	apiKey, err := s.generateKey()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate api key")
	}
	return s.create(ctx, name, apiKey)
}

// EnsureTenant returns the tenant holding apiKey, creating it under name when no
// tenant does. Used to bootstrap a known key at startup.
func (s *Service) EnsureTenant(ctx context.Context, name, apiKey string) (*models.Tenant, error) {
	existing, err := s.tenants.FindByAPIKey(ctx, apiKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bootstrap tenant")
	}
	return s.create(ctx, name, apiKey)
}

func (s *Service) create(ctx context.Context, name, apiKey string) (*models.Tenant, error) {
	t, err := models.NewTenant(id.NewTenantID(), strings.TrimSpace(name), apiKey, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.tenants.CreateIfNameAvailable(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	s.emit(ctx, audit.EventTenantCreated, t)
	s.metrics.IncrementTenantCreated()
	s.logger.InfoContext(ctx, "tenant created",
		"tenant_id", t.ID,
		"tenant_name", t.Name,
	)
	return t, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// GetTenantByName retrieves a tenant by name (case-insensitive).
func (s *Service) GetTenantByName(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant name is required")
	}
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// Authenticate resolves an API key to an active tenant. Unknown and inactive keys
// fail identically.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (id.TenantID, error) {
	defer s.metrics.ObserveAuthenticate(time.Now())

	if apiKey == "" {
		s.metrics.IncrementAuthFailure()
		return id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "api key required")
	}
	tenant, err := s.tenants.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementAuthFailure()
			return id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
		}
		return id.TenantID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate tenant")
	}
	if !tenant.IsActive() {
		s.metrics.IncrementAuthFailure()
		s.logger.WarnContext(ctx, "api key of inactive tenant presented",
			"tenant_id", tenant.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	}
	return tenant.ID, nil
}

// DeactivateTenant transitions a tenant to inactive status; its key stops
// authenticating immediately.
//
// The store's Execute holds the lock (mutex or FOR UPDATE) during both validation
// and mutation.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)
	return s.transition(ctx, tenantID, audit.EventTenantDeactivated,
		func(t *models.Tenant) error { return t.CanDeactivate() },
		func(t *models.Tenant) { t.ApplyDeactivation(now) },
	)
}

// ReactivateTenant transitions a tenant back to active status.
func (s *Service) ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)
	return s.transition(ctx, tenantID, audit.EventTenantReactivated,
		func(t *models.Tenant) error { return t.CanReactivate() },
		func(t *models.Tenant) { t.ApplyReactivation(now) },
	)
}

func (s *Service) transition(ctx context.Context, tenantID id.TenantID, event audit.AuditEvent, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := validate(t); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					var de *dErrors.Error
					if errors.As(err, &de) {
						return dErrors.New(dErrors.CodeConflict, de.Message)
					}
				}
				return err
			}
			return nil
		},
		mutate,
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	s.emit(ctx, event, tenant)
	s.metrics.IncrementStatusChange(string(tenant.Status))
	s.logger.InfoContext(ctx, "tenant status changed",
		"tenant_id", tenant.ID,
		"status", tenant.Status,
	)
	return tenant, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, tenant *models.Tenant) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		TenantID:  tenant.ID,
		Subject:   tenant.Name,
		Action:    string(event),
		To:        string(tenant.Status),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event, "error", err)
	}
}

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	return nil
}

// wrapTenantErr passes domain errors through and translates store sentinels.
func wrapTenantErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
}
