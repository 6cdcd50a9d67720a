package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/tenant/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/sentinel"
)

type TenantStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *TenantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(TenantStoreSuite))
}

func (s *TenantStoreSuite) newTenant(name string) *models.Tenant {
	tenant, err := models.NewTenant(id.NewTenantID(), name, "key-"+uuid.NewString(), time.Now())
	s.Require().NoError(err)
	return tenant
}

func (s *TenantStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds tenant by ID and API key", func() {
		tenant := s.newTenant("Test Tenant")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(tenant.Name, found.Name)

		byKey, err := s.store.FindByAPIKey(s.ctx, tenant.APIKey)
		s.Require().NoError(err)
		s.Equal(tenant.ID, byKey.ID)
	})

	s.Run("returns ErrNotFound for unknown ID or key", func() {
		_, err := s.store.FindByID(s.ctx, id.NewTenantID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByAPIKey(s.ctx, "unknown")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TenantStoreSuite) TestUniqueness() {
	s.Run("enforces case-insensitive name uniqueness", func() {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("MyTenant")))

		err := s.store.CreateIfNameAvailable(s.ctx, s.newTenant("MYTENANT"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects a reused API key", func() {
		first := s.newTenant("First")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, first))

		second := s.newTenant("Second")
		second.APIKey = first.APIKey
		s.ErrorIs(s.store.CreateIfNameAvailable(s.ctx, second), sentinel.ErrConflict)
	})

	s.Run("finds by name case-insensitively", func() {
		tenant := s.newTenant("CaseSensitive")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByName(s.ctx, "casesensitive")
		s.Require().NoError(err)
		s.Equal(tenant.ID, found.ID)
	})

	s.Run("one of many concurrent creates wins", func() {
		const goroutines = 50
		var wg sync.WaitGroup
		var successes, conflicts atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.store.CreateIfNameAvailable(s.ctx, s.newTenant("Racy"))
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, sentinel.ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), successes.Load())
		s.Equal(int32(goroutines-1), conflicts.Load())
	})
}

func (s *TenantStoreSuite) TestExecute() {
	s.Run("applies mutation when validation passes", func() {
		tenant := s.newTenant("Execute Test")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		now := time.Now()
		updated, err := s.store.Execute(s.ctx, tenant.ID,
			func(t *models.Tenant) error { return t.CanDeactivate() },
			func(t *models.Tenant) { t.ApplyDeactivation(now) },
		)
		s.Require().NoError(err)
		s.False(updated.IsActive())

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.False(found.IsActive())
	})

	s.Run("leaves tenant unchanged when validation fails", func() {
		tenant := s.newTenant("Already Active")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		_, err := s.store.Execute(s.ctx, tenant.ID,
			func(t *models.Tenant) error { return t.CanReactivate() },
			func(t *models.Tenant) { s.Fail("mutate must not run") },
		)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("returns ErrNotFound for unknown tenant", func() {
		_, err := s.store.Execute(s.ctx, id.NewTenantID(),
			func(*models.Tenant) error { return nil },
			func(*models.Tenant) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
