package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kycgate/internal/identity/models"
	"kycgate/internal/platform/database"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	txcontext "kycgate/pkg/platform/tx"
)

// PostgresStore persists users and client links. Writes are single upsert statements
// so concurrent resolvers for one email or one pair converge on the same row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertUser inserts user or updates the phone of the user holding the same email.
// xmax is zero only for a freshly inserted tuple.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO users (id, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
		RETURNING id, email, phone, created_at, updated_at, (xmax = 0) AS inserted
	`,
		uuid.UUID(user.ID),
		user.Email,
		user.Phone,
		user.CreatedAt,
		user.UpdatedAt,
	)

	var (
		userID   uuid.UUID
		stored   models.User
		inserted bool
	)
	if err := row.Scan(&userID, &stored.Email, &stored.Phone, &stored.CreatedAt, &stored.UpdatedAt, &inserted); err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", database.TranslateError(err))
	}
	stored.ID = id.UserID(userID)
	return &stored, inserted, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, email, phone, created_at, updated_at FROM users WHERE id = $1`,
		uuid.UUID(userID),
	)
	return scanUser(row)
}

// CreateLinkIfAbsent never repoints an existing (tenant, client user id) pair.
func (s *PostgresStore) CreateLinkIfAbsent(ctx context.Context, link *models.ClientUser) (*models.ClientUser, error) {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO client_users (id, tenant_id, user_id, client_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, client_user_id) DO NOTHING
	`,
		uuid.UUID(link.ID),
		uuid.UUID(link.TenantID),
		uuid.UUID(link.UserID),
		link.ClientUserID,
		link.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create client user link: %w", database.TranslateError(err))
	}
	return s.FindLink(ctx, link.TenantID, link.ClientUserID)
}

func (s *PostgresStore) FindLink(ctx context.Context, tenantID id.TenantID, clientUserID string) (*models.ClientUser, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, client_user_id, created_at
		FROM client_users
		WHERE tenant_id = $1 AND client_user_id = $2
	`, uuid.UUID(tenantID), clientUserID)

	var (
		linkID, tID, userID uuid.UUID
		link                models.ClientUser
	)
	if err := row.Scan(&linkID, &tID, &userID, &link.ClientUserID, &link.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client user link: %w", err)
	}
	link.ID = id.LinkID(linkID)
	link.TenantID = id.TenantID(tID)
	link.UserID = id.UserID(userID)
	return &link, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		userID uuid.UUID
		user   models.User
	)
	if err := row.Scan(&userID, &user.Email, &user.Phone, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.ID = id.UserID(userID)
	return &user, nil
}
