// Package service resolves a tenant's own user reference to the shared user record
// and makes sure that user owns exactly one verification session.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kycgate/internal/identity/models"
	kycmodels "kycgate/internal/kyc/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error)
	FindUserByID(ctx context.Context, userID id.UserID) (*models.User, error)
	CreateLinkIfAbsent(ctx context.Context, link *models.ClientUser) (*models.ClientUser, error)
	FindLink(ctx context.Context, tenantID id.TenantID, clientUserID string) (*models.ClientUser, error)
}

// SessionCreator creates the NOT_STARTED verification session that accompanies a user.
type SessionCreator interface {
	CreateIfAbsent(ctx context.Context, session *kycmodels.Session) (*kycmodels.Session, error)
}

// StoreTx runs fn atomically. Postgres wiring passes a transaction through txCtx;
// the in-memory default serializes resolutions instead.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	User *models.User
	Link *models.ClientUser
	// Created is set when the user record did not exist before.
	Created bool
	// Linked is set when the (tenant, client user id) pair was linked by this call.
	Linked bool
}

type Service struct {
	users          UserStore
	sessions       SessionCreator
	tx             StoreTx
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(users UserStore, sessions SessionCreator, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if sessions == nil {
		return nil, errors.New("session creator is required")
	}
	s := &Service{
		users:    users,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = &inMemoryStoreTx{}
	}
	return s, nil
}

// Resolve upserts the user by email, ensures its verification session exists and
// links (tenantID, clientUserID) to it. An existing link is never repointed; the
// returned user is always the one the link refers to.
func (s *Service) Resolve(ctx context.Context, tenantID id.TenantID, clientUserID, email, phone string) (*Resolution, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "tenant required")
	}
	now := requestcontext.Now(ctx)

	var res Resolution
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		candidate, err := models.NewUser(id.NewUserID(), email, phone, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid user")
		}

		user, created, err := s.users.UpsertUser(txCtx, candidate)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "user with this email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
		}

		if _, err := s.sessions.CreateIfAbsent(txCtx, kycmodels.NewSession(user.ID, tenantID, now)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create kyc session")
		}

		link, err := models.NewClientUser(tenantID, user.ID, clientUserID, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid client user")
		}
		stored, err := s.users.CreateLinkIfAbsent(txCtx, link)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "tenant not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link client user")
		}

		if stored.UserID != user.ID {
			user, err = s.users.FindUserByID(txCtx, stored.UserID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load linked user")
			}
		}

		res = Resolution{User: user, Link: stored, Created: created, Linked: stored.ID == link.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Linked {
		s.emitLinked(ctx, res)
	}
	s.logger.InfoContext(ctx, "client user resolved",
		"tenant_id", tenantID,
		"user_id", res.User.ID,
		"user_created", res.Created,
		"request_id", requestcontext.RequestID(ctx))
	return &res, nil
}

// FindLink returns the user linked to clientUserID within the tenant.
func (s *Service) FindLink(ctx context.Context, tenantID id.TenantID, clientUserID string) (*models.ClientUser, error) {
	clientUserID = strings.TrimSpace(clientUserID)
	if clientUserID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "clientUserId is required")
	}
	link, err := s.users.FindLink(ctx, tenantID, clientUserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client user")
	}
	return link, nil
}

// GetByClientUserID returns the linked user and its link.
func (s *Service) GetByClientUserID(ctx context.Context, tenantID id.TenantID, clientUserID string) (*Resolution, error) {
	link, err := s.FindLink(ctx, tenantID, clientUserID)
	if err != nil {
		return nil, err
	}
	user, err := s.FindUser(ctx, link.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return &Resolution{User: user, Link: link}, nil
}

// FindUser returns the user record; store sentinels pass through untranslated so
// callers in other contexts can map them.
func (s *Service) FindUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.users.FindUserByID(ctx, userID)
}

func (s *Service) emitLinked(ctx context.Context, res Resolution) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		TenantID:  res.Link.TenantID,
		UserID:    res.User.ID,
		Subject:   res.Link.ClientUserID,
		Action:    string(audit.EventUserLinked),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventUserLinked, "error", err)
	}
}

// defaultTxTimeout bounds an in-memory resolution.
const defaultTxTimeout = 5 * time.Second

// inMemoryStoreTx serializes resolutions so concurrent calls for one email or one
// pair observe each other's writes. It cannot roll back: a failure after the user
// upsert leaves the user and its NOT_STARTED session behind without a link. Every
// step of Resolve is create-if-absent, so the client's retry links that same user
// and session. Deployments that need atomicity set DATABASE_URL.
type inMemoryStoreTx struct {
	mu sync.Mutex
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
