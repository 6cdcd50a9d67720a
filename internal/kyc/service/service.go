// Package service is the session reconciler: it starts verification with the
// provider, keeps the stored status in step with the provider's view, and applies
// sandbox overrides. It is the only writer of a session's status, provider id and link.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	identity "kycgate/internal/identity/models"
	"kycgate/internal/kyc/lock"
	"kycgate/internal/kyc/metrics"
	"kycgate/internal/kyc/models"
	"kycgate/internal/kyc/providers"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type SessionStore interface {
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Session, error)
	// Save writes session only while the stored status is still from; otherwise it
	// returns sentinel.ErrConflict and leaves the row alone.
	Save(ctx context.Context, session *models.Session, from models.Status) error
}

// UserLookup supplies the profile sent to the provider.
type UserLookup interface {
	FindUser(ctx context.Context, userID id.UserID) (*identity.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service reconciles local verification sessions with the provider.
type Service struct {
	sessions       SessionStore
	users          UserLookup
	provider       providers.Provider
	locker         lock.Locker
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	sandbox        bool
	now            func() time.Time

	refreshes singleflight.Group
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocker replaces the default in-process locker, e.g. with a Redis or
// Postgres backed one when several instances share a database.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithSandbox enables AdminOverride.
func WithSandbox(enabled bool) Option {
	return func(s *Service) {
		s.sandbox = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(sessions SessionStore, users UserLookup, provider providers.Provider, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if users == nil {
		return nil, errors.New("user lookup is required")
	}
	if provider == nil {
		return nil, errors.New("verification provider is required")
	}
	s := &Service{
		sessions: sessions,
		users:    users,
		provider: provider,
		locker:   lock.NewMemory(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("kycgate/internal/kyc/service"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartVerification registers the user with the provider unless a session was already
// started, in which case the stored session is returned without a provider call.
func (s *Service) StartVerification(ctx context.Context, userID id.UserID) (*models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.StartVerification",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	if session.IsStarted() {
		return session, nil
	}

	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	defer unlock()

	// Another caller may have finished registration while we waited.
	session, err = s.loadSession(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	if session.IsStarted() {
		return session, nil
	}

	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, spanError(span, dErrors.New(dErrors.CodeNotFound, "user not found"))
		}
		return nil, spanError(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
	}

	reg, err := s.register(ctx, user, session.ProviderSessionID)
	if err != nil {
		return nil, spanError(span, err)
	}

	previous := session.Status
	if err := session.ApplyRegistration(s.provider.Name(), reg.providerID, reg.link, reg.status, s.now()); err != nil {
		return nil, spanError(span, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "verification provider returned an unusable session"))
	}

	// The provider already holds the registration; persist even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.sessions.Save(persistCtx, session, previous); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Another replica persisted its registration first; theirs stands.
			s.logger.WarnContext(ctx, "verification started concurrently elsewhere",
				"user_id", userID,
				"provider_session_id", reg.providerID,
				"request_id", requestcontext.RequestID(ctx))
			current, err := s.loadSession(persistCtx, userID)
			if err != nil {
				return nil, spanError(span, err)
			}
			return current, nil
		}
		s.logger.ErrorContext(ctx, "failed to persist started verification",
			"user_id", userID,
			"provider_session_id", reg.providerID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		return nil, spanError(span, s.storeError(err, "failed to save kyc session"))
	}

	s.metrics.IncrementTransition(string(previous), string(session.Status))
	s.logger.InfoContext(ctx, "kyc verification started",
		"user_id", userID,
		"provider", session.ProviderName,
		"result", reg.kind.String(),
		"status", session.Status,
		"request_id", requestcontext.RequestID(ctx))
	s.emit(persistCtx, audit.EventKycStarted, session, previous, "")

	span.SetAttributes(attribute.String("kyc.status", string(session.Status)))
	return session, nil
}

// RefreshStatus pulls the provider's status for a started session and persists it
// when it is a permitted forward move. Concurrent refreshes for one user share a
// single provider call.
func (s *Service) RefreshStatus(ctx context.Context, userID id.UserID) (*models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.RefreshStatus",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	ch := s.refreshes.DoChan(userID.String(), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), userID)
	})

	select {
	case <-ctx.Done():
		return nil, spanError(span, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "status refresh cancelled"))
	case res := <-ch:
		if res.Err != nil {
			return nil, spanError(span, res.Err)
		}
		// Shared callers each get their own copy.
		session := *res.Val.(*models.Session)
		span.SetAttributes(attribute.Bool("kyc.shared", res.Shared))
		return &session, nil
	}
}

func (s *Service) refresh(ctx context.Context, userID id.UserID) (*models.Session, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusNotStarted || session.Status.IsTerminal() || session.ProviderSessionID == "" {
		return session, nil
	}

	ps, err := s.fetchStatus(ctx, session.ProviderSessionID)
	if err != nil {
		return nil, providers.ToDomainError(err)
	}

	previous := session.Status
	mapped := models.MapProviderStatus(ps.Status)
	changed, err := session.ApplyStatus(mapped, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "ignoring provider status that would move session backwards",
			"user_id", userID,
			"from", previous,
			"to", mapped,
			"provider_status", ps.Status,
			"request_id", requestcontext.RequestID(ctx))
		s.metrics.IncrementIgnoredTransition(string(previous), string(mapped))
		return session, nil
	}
	if !changed {
		return session, nil
	}

	if err := s.sessions.Save(ctx, session, previous); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A newer write landed while the provider was answering; keep it.
			s.logger.InfoContext(ctx, "discarding stale provider status",
				"user_id", userID,
				"from", previous,
				"to", mapped,
				"request_id", requestcontext.RequestID(ctx))
			return s.loadSession(ctx, userID)
		}
		return nil, s.storeError(err, "failed to save kyc session")
	}
	s.metrics.IncrementTransition(string(previous), string(session.Status))
	s.logger.InfoContext(ctx, "kyc status changed",
		"user_id", userID,
		"from", previous,
		"to", session.Status,
		"request_id", requestcontext.RequestID(ctx))
	s.emit(ctx, audit.EventKycStatusChanged, session, previous, ps.FailedReason)
	return session, nil
}

// SandboxEnabled reports whether administrative overrides are allowed.
func (s *Service) SandboxEnabled() bool { return s.sandbox }

// AdminOverride sets the status directly, bypassing the provider. Sandbox only.
func (s *Service) AdminOverride(ctx context.Context, userID id.UserID, next models.Status) (*models.Session, error) {
	if !s.sandbox {
		return nil, dErrors.New(dErrors.CodeForbidden, "status override is only available in sandbox mode")
	}

	ctx, span := s.tracer.Start(ctx, "kyc.AdminOverride",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.String("kyc.status", string(next)),
		))
	defer span.End()

	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	defer unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	previous := session.Status
	if err := session.Override(next, s.now()); err != nil {
		return nil, spanError(span, err)
	}
	if err := s.sessions.Save(ctx, session, previous); err != nil {
		return nil, spanError(span, s.storeError(err, "failed to save kyc session"))
	}

	s.metrics.IncrementOverride(string(next))
	s.logger.WarnContext(ctx, "kyc status overridden",
		"user_id", userID,
		"from", previous,
		"to", next,
		"request_id", requestcontext.RequestID(ctx))
	s.emit(ctx, audit.EventKycStatusOverridden, session, previous, "sandbox override")
	return session, nil
}

type registration struct {
	kind       providers.ResultKind
	providerID string
	link       string
	status     models.Status
}

// register owns the new-versus-existing customer branch.
func (s *Service) register(ctx context.Context, user *identity.User, storedProviderID string) (*registration, error) {
	profile := providers.CustomerProfile{
		ClientCustomerID: user.ID.String(),
		Email:            user.Email,
		Phone:            user.Phone,
	}

	result, err := s.createOrFind(ctx, profile, storedProviderID)
	if err != nil {
		return nil, providers.ToDomainError(err)
	}
	s.metrics.IncrementRegistration(result.Kind.String())

	reg := &registration{
		kind:       result.Kind,
		providerID: result.ProviderID,
		link:       result.Link,
		status:     models.StatusInProgress,
	}

	if result.Kind == providers.ExistingCustomer {
		if result.ProviderID == "" {
			return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "verification provider reported an existing customer without an id")
		}
		resumed, err := s.createOrFind(ctx, profile, result.ProviderID)
		if err != nil {
			return nil, providers.ToDomainError(err)
		}
		reg.link = resumed.Link
		if resumed.ProviderID != "" {
			reg.providerID = resumed.ProviderID
		}

		ps, err := s.fetchStatus(ctx, reg.providerID)
		if err != nil {
			return nil, providers.ToDomainError(err)
		}
		reg.status = models.MapProviderStatus(ps.Status)
	}

	if reg.providerID == "" || reg.link == "" {
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "failed to obtain a verification link from the provider")
	}
	return reg, nil
}

func (s *Service) createOrFind(ctx context.Context, profile providers.CustomerProfile, existingProviderID string) (*providers.CustomerResult, error) {
	start := time.Now()
	result, err := s.provider.CreateOrFindCustomer(ctx, profile, existingProviderID)
	s.metrics.ObserveProviderCall(s.provider.Name(), "create_customer", outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, s.provider.Name(), "empty registration result", nil)
	}
	return result, nil
}

func (s *Service) fetchStatus(ctx context.Context, providerID string) (*providers.ProviderStatus, error) {
	start := time.Now()
	ps, err := s.provider.FetchStatus(ctx, providerID)
	s.metrics.ObserveProviderCall(s.provider.Name(), "fetch_status", outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, s.provider.Name(), "empty status result", nil)
	}
	return ps, nil
}

func (s *Service) acquire(ctx context.Context, userID id.UserID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "kyc:"+userID.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for verification in progress")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire verification lock")
	}
	return unlock, nil
}

func (s *Service) loadSession(ctx context.Context, userID id.UserID) (*models.Session, error) {
	session, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "failed to load kyc session")
	}
	return session, nil
}

func (s *Service) storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "kyc session not found")
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "kyc session was modified concurrently, retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, session *models.Session, from models.Status, reason string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		TenantID:  session.TenantID,
		UserID:    session.UserID,
		Subject:   session.ID.String(),
		Action:    string(event),
		From:      string(from),
		To:        string(session.Status),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event, "error", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(providers.GetCategory(err))
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
