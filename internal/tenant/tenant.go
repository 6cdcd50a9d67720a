// Package tenant owns API consumers: their credentials, activation state and the
// GET /client endpoint.
package tenant

import (
	"database/sql"
	"log/slog"

	"kycgate/internal/tenant/handler"
	"kycgate/internal/tenant/secrets"
	"kycgate/internal/tenant/service"
	tenantstore "kycgate/internal/tenant/store/tenant"
)

// Service exposes tenant lifecycle and API key authentication.
type Service = service.Service

// Handler wires HTTP endpoints to the tenant service.
type Handler = handler.Handler

// NewStore returns the postgres store when db is set and the in-memory store otherwise.
func NewStore(db *sql.DB) service.TenantStore {
	if db == nil {
		return tenantstore.NewInMemory()
	}
	return tenantstore.NewPostgres(db)
}

// NewService constructs the tenant service with crypto/rand API keys.
func NewService(tenants service.TenantStore, opts ...service.Option) (*Service, error) {
	return service.New(tenants, secrets.Generate, opts...)
}

// NewHandler constructs the HTTP handler for tenant self-service routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
