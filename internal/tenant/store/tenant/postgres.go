package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kycgate/internal/platform/database"
	"kycgate/internal/tenant/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	txcontext "kycgate/pkg/platform/tx"
)

const tenantColumns = `id, name, api_key, is_active, created_at, updated_at`

// PostgresStore persists tenants. Name uniqueness is enforced by a unique index on
// LOWER(name), so concurrent creates race on the index rather than on a read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO tenants (id, name, api_key, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.UUID(tenant.ID),
		tenant.Name,
		tenant.APIKey,
		tenant.IsActive(),
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", database.TranslateError(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, uuid.UUID(tenantID))
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	return s.findOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE LOWER(name) = LOWER($1)`, name)
}

func (s *PostgresStore) FindByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	return s.findOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE api_key = $1`, apiKey)
}

// Execute locks the row with SELECT ... FOR UPDATE, validates, mutates and writes it
// back within one transaction (the caller's, when ctx carries one).
func (s *PostgresStore) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	var result *models.Tenant
	err := txcontext.Run(ctx, s.db, func(txCtx context.Context) error {
		tenant, err := s.findOne(txCtx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, uuid.UUID(tenantID))
		if err != nil {
			return err
		}
		if err := validate(tenant); err != nil {
			return err
		}
		mutate(tenant)

		_, err = txcontext.Executor(txCtx, s.db).ExecContext(txCtx, `
			UPDATE tenants SET name = $2, is_active = $3, updated_at = $4 WHERE id = $1
		`, uuid.UUID(tenant.ID), tenant.Name, tenant.IsActive(), tenant.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update tenant: %w", database.TranslateError(err))
		}
		result = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg)
	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return tenant, nil
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	var (
		tenantID uuid.UUID
		tenant   models.Tenant
		active   bool
	)
	if err := row.Scan(&tenantID, &tenant.Name, &tenant.APIKey, &active, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return nil, err
	}
	tenant.ID = id.TenantID(tenantID)
	tenant.Status = models.StatusFromActive(active)
	return &tenant, nil
}
