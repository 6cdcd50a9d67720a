package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/identity/models"
	"kycgate/internal/identity/store"
	kycmodels "kycgate/internal/kyc/models"
	kycstore "kycgate/internal/kyc/store"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/publisher"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
)

// =============================================================================
// Identity Resolver Test Suite
// =============================================================================
// Resolution runs against the in-memory stores; the postgres stores are covered by
// the integration suite in the store package.

type ResolverSuite struct {
	suite.Suite
	users    *store.InMemoryStore
	sessions *kycstore.InMemoryStore
	audit    *auditmemory.InMemoryStore
	service  *Service
	tenantA  id.TenantID
	tenantB  id.TenantID
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.sessions = kycstore.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(s.users, s.sessions,
		WithLogger(logger),
		WithAuditPublisher(publisher.NewPublisher(s.audit, publisher.WithLogger(logger))),
	)
	s.Require().NoError(err)
	s.tenantA = id.NewTenantID()
	s.tenantB = id.NewTenantID()
}

func (s *ResolverSuite) TestNew() {
	_, err := New(nil, s.sessions)
	s.ErrorContains(err, "user store is required")

	_, err = New(s.users, nil)
	s.ErrorContains(err, "session creator is required")
}

func (s *ResolverSuite) TestResolve_FirstContact() {
	ctx := context.Background()

	res, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)
	s.True(res.Created)
	s.True(res.Linked)
	s.Equal("a@x.com", res.User.Email)
	s.Equal("+911234567890", res.User.Phone)
	s.Equal(res.User.ID, res.Link.UserID)
	s.Equal("u-1", res.Link.ClientUserID)

	session, err := s.sessions.FindByUserID(ctx, res.User.ID)
	s.Require().NoError(err)
	s.Equal(kycmodels.StatusNotStarted, session.Status)
	s.Equal(s.tenantA, session.TenantID)
	s.Empty(session.ProviderSessionID)

	events, err := s.audit.ListByUser(ctx, res.User.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventUserLinked), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)
}

func (s *ResolverSuite) TestResolve_SharedUserAcrossTenants() {
	ctx := context.Background()

	first, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)
	second, err := s.service.Resolve(ctx, s.tenantB, "other-id", "A@X.com", "+919999999999")
	s.Require().NoError(err)

	s.Equal(first.User.ID, second.User.ID)
	s.False(second.Created)
	s.True(second.Linked)
	s.Equal("+919999999999", second.User.Phone, "phone is updated on match")

	session, err := s.sessions.FindByUserID(ctx, first.User.ID)
	s.Require().NoError(err)
	s.Equal(s.tenantA, session.TenantID, "session keeps the tenant that created it")
}

func (s *ResolverSuite) TestResolve_IsIdempotent() {
	ctx := context.Background()

	first, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)
	second, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)

	s.Equal(first.User.ID, second.User.ID)
	s.Equal(first.Link.ID, second.Link.ID)
	s.False(second.Linked)

	events, err := s.audit.ListByUser(ctx, first.User.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ResolverSuite) TestResolve_NeverRepointsLink() {
	ctx := context.Background()

	first, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)
	second, err := s.service.Resolve(ctx, s.tenantA, "u-1", "b@x.com", "+911234567890")
	s.Require().NoError(err)

	s.Equal(first.Link.ID, second.Link.ID)
	s.Equal(first.User.ID, second.User.ID, "the linked user wins")
	s.Equal("a@x.com", second.User.Email)
}

func (s *ResolverSuite) TestResolve_Validation() {
	ctx := context.Background()

	_, err := s.service.Resolve(ctx, s.tenantA, "u-1", "", "+911234567890")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Resolve(ctx, s.tenantA, " ", "a@x.com", "+911234567890")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Resolve(ctx, id.TenantID{}, "u-1", "a@x.com", "+911234567890")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ResolverSuite) TestResolve_ConcurrentSameEmailCreatesOneUser() {
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	ids := make(chan id.UserID, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenant := s.tenantA
			if i%2 == 0 {
				tenant = s.tenantB
			}
			res, err := s.service.Resolve(ctx, tenant, "u-1", "a@x.com", "+911234567890")
			if s.NoError(err) {
				ids <- res.User.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[id.UserID]bool{}
	for userID := range ids {
		seen[userID] = true
	}
	s.Len(seen, 1)
}

// linkFailingStore rejects the first link write after the user and session exist.
type linkFailingStore struct {
	*store.InMemoryStore
	failed bool
}

func (f *linkFailingStore) CreateLinkIfAbsent(ctx context.Context, link *models.ClientUser) (*models.ClientUser, error) {
	if !f.failed {
		f.failed = true
		return nil, errors.New("disk full")
	}
	return f.InMemoryStore.CreateLinkIfAbsent(ctx, link)
}

func (s *ResolverSuite) TestResolve_RetryAfterPartialWriteLinksSameUser() {
	ctx := context.Background()
	svc, err := New(&linkFailingStore{InMemoryStore: s.users}, s.sessions)
	s.Require().NoError(err)

	_, err = svc.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	_, err = svc.FindLink(ctx, s.tenantA, "u-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "the in-memory transaction does not roll back, but nothing is linked")

	res, err := svc.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)
	s.False(res.Created, "the user left by the failed attempt is reused")
	s.True(res.Linked)

	session, err := s.sessions.FindByUserID(ctx, res.User.ID)
	s.Require().NoError(err)
	s.Equal(kycmodels.StatusNotStarted, session.Status)
}

func (s *ResolverSuite) TestResolve_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ResolverSuite) TestFindLink() {
	ctx := context.Background()
	res, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)

	s.Run("found", func() {
		link, err := s.service.FindLink(ctx, s.tenantA, "u-1")
		s.Require().NoError(err)
		s.Equal(res.User.ID, link.UserID)
	})

	s.Run("scoped to tenant", func() {
		_, err := s.service.FindLink(ctx, s.tenantB, "u-1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blank id", func() {
		_, err := s.service.FindLink(ctx, s.tenantA, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ResolverSuite) TestGetByClientUserID() {
	ctx := context.Background()
	res, err := s.service.Resolve(ctx, s.tenantA, "u-1", "a@x.com", "+911234567890")
	s.Require().NoError(err)

	got, err := s.service.GetByClientUserID(ctx, s.tenantA, "u-1")
	s.Require().NoError(err)
	s.Equal(res.User.ID, got.User.ID)
	s.Equal("a@x.com", got.User.Email)

	_, err = s.service.GetByClientUserID(ctx, s.tenantA, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
