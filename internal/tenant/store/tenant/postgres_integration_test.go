//go:build integration

package tenant_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/tenant/models"
	"kycgate/internal/tenant/store/tenant"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *tenant.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = tenant.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "kyc_sessions", "client_users", "users", "tenants")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newTenant(name string) *models.Tenant {
	t, err := models.NewTenant(id.NewTenantID(), name, "key-"+uuid.NewString(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return t
}

// TestConcurrentUniqueNameViolation verifies that concurrent creation attempts
// with the same name result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentUniqueNameViolation() {
	ctx := context.Background()
	tenantName := "Concurrent Test Tenant " + uuid.NewString()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfNameAvailable(ctx, s.newTenant(tenantName))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")

	found, err := s.store.FindByName(ctx, tenantName)
	s.Require().NoError(err)
	s.Equal(tenantName, found.Name)
}

func (s *PostgresStoreSuite) TestCaseInsensitiveUniqueness() {
	ctx := context.Background()
	baseName := "CaseTest" + uuid.NewString()

	t1 := s.newTenant(baseName)
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, t1))

	for _, name := range []string{strings.ToUpper(baseName), strings.ToLower(baseName)} {
		err := s.store.CreateIfNameAvailable(ctx, s.newTenant(name))
		s.ErrorIs(err, sentinel.ErrConflict, "name %q should conflict with %q", name, baseName)

		found, err := s.store.FindByName(ctx, name)
		s.Require().NoError(err)
		s.Equal(t1.ID, found.ID)
	}
}

func (s *PostgresStoreSuite) TestFindByAPIKey() {
	ctx := context.Background()
	t := s.newTenant("Key Lookup")
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, t))

	found, err := s.store.FindByAPIKey(ctx, t.APIKey)
	s.Require().NoError(err)
	s.Equal(t.ID, found.ID)
	s.Equal(t.APIKey, found.APIKey)
	s.True(found.IsActive())

	_, err = s.store.FindByAPIKey(ctx, "missing-"+uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	dup := s.newTenant("Other Name")
	dup.APIKey = t.APIKey
	s.ErrorIs(s.store.CreateIfNameAvailable(ctx, dup), sentinel.ErrConflict)
}

// TestConcurrentExecuteSerializes verifies FOR UPDATE serializes validate-then-mutate:
// of many concurrent deactivations exactly one passes validation.
func (s *PostgresStoreSuite) TestConcurrentExecuteSerializes() {
	ctx := context.Background()
	t := s.newTenant("Execute Race " + uuid.NewString())
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, t))

	const goroutines = 20
	var wg sync.WaitGroup
	var applied atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, t.ID,
				func(tn *models.Tenant) error { return tn.CanDeactivate() },
				func(tn *models.Tenant) { tn.ApplyDeactivation(time.Now()) },
			)
			if err == nil {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	found, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.False(found.IsActive())
}

func (s *PostgresStoreSuite) TestNotFoundError() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewTenantID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByName(ctx, "Non Existent Tenant "+uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(ctx, id.NewTenantID(),
		func(*models.Tenant) error { return nil },
		func(*models.Tenant) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
