package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kycgate/internal/kyc/models"
	"kycgate/internal/platform/database"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	txcontext "kycgate/pkg/platform/tx"
)

// PostgresStore persists sessions in kyc_sessions. It joins a transaction carried in
// the context (see pkg/platform/tx) so the identity resolver can create the session in
// the same transaction as the user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, tenant_id, status, provider_session_id, kyc_link, provider_name, created_at, updated_at`

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Session, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM kyc_sessions WHERE user_id = $1`,
		uuid.UUID(userID),
	)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find kyc session: %w", err)
	}
	return session, nil
}

// CreateIfAbsent relies on the unique user_id constraint: concurrent creators race on
// the insert and all of them read back the single winning row.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, session *models.Session) (*models.Session, error) {
	exec := txcontext.Executor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO kyc_sessions (id, user_id, tenant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`,
		uuid.UUID(session.ID),
		uuid.UUID(session.UserID),
		uuid.UUID(session.TenantID),
		string(session.Status),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create kyc session: %w", database.TranslateError(err))
	}
	return s.FindByUserID(ctx, session.UserID)
}

// Save is a compare-and-set on status: the row is written only while it still holds
// from. Zero rows means either no session or a concurrent writer got there first.
func (s *PostgresStore) Save(ctx context.Context, session *models.Session, from models.Status) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE kyc_sessions
		SET status = $2,
			provider_session_id = $3,
			kyc_link = $4,
			provider_name = $5,
			updated_at = $6
		WHERE user_id = $1 AND status = $7
	`,
		uuid.UUID(session.UserID),
		string(session.Status),
		nullString(session.ProviderSessionID),
		nullString(session.Link),
		nullString(session.ProviderName),
		session.UpdatedAt,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("save kyc session: %w", database.TranslateError(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save kyc session rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByUserID(ctx, session.UserID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*models.Session, error) {
	var (
		sessionID, userID, tenantID           uuid.UUID
		status                                string
		providerSessionID, link, providerName sql.NullString
		session                               models.Session
	)
	if err := row.Scan(&sessionID, &userID, &tenantID, &status, &providerSessionID, &link, &providerName,
		&session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sessionID)
	session.UserID = id.UserID(userID)
	session.TenantID = id.TenantID(tenantID)
	session.Status = models.Status(status)
	session.ProviderSessionID = providerSessionID.String
	session.Link = link.String
	session.ProviderName = providerName.String
	return &session, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
