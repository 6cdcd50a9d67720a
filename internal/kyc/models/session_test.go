package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

func TestNewSession(t *testing.T) {
	now := time.Now()
	s := NewSession(id.NewUserID(), id.NewTenantID(), now)
	assert.Equal(t, StatusNotStarted, s.Status)
	assert.Empty(t, s.ProviderSessionID)
	assert.Empty(t, s.Link)
	assert.False(t, s.IsStarted())
	assert.False(t, s.ID.IsNil())
}

func TestApplyRegistration(t *testing.T) {
	now := time.Now()

	t.Run("new customer becomes in progress", func(t *testing.T) {
		s := NewSession(id.NewUserID(), id.NewTenantID(), now)
		require.NoError(t, s.ApplyRegistration("onramp", "cust-1", "https://kyc/1", StatusNotStarted, now))
		assert.Equal(t, StatusInProgress, s.Status)
		assert.Equal(t, "cust-1", s.ProviderSessionID)
		assert.Equal(t, "onramp", s.ProviderName)
	})

	t.Run("requires id and link", func(t *testing.T) {
		s := NewSession(id.NewUserID(), id.NewTenantID(), now)
		err := s.ApplyRegistration("onramp", "cust-1", "", StatusInProgress, now)
		require.Error(t, err)
		assert.Equal(t, StatusNotStarted, s.Status)
	})

	t.Run("never rebinds provider id", func(t *testing.T) {
		s := NewSession(id.NewUserID(), id.NewTenantID(), now)
		s.ProviderSessionID = "cust-1"
		err := s.ApplyRegistration("onramp", "cust-2", "https://kyc/2", StatusInProgress, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, "cust-1", s.ProviderSessionID)
	})
}

func TestApplyStatus(t *testing.T) {
	now := time.Now()
	s := NewSession(id.NewUserID(), id.NewTenantID(), now)
	s.Status = StatusBasicCompleted

	changed, err := s.ApplyStatus(StatusBasicCompleted, now)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.ApplyStatus(StatusInProgress, now)
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusBasicCompleted, s.Status)

	later := now.Add(time.Minute)
	changed, err = s.ApplyStatus(StatusAdvancedCompleted, later)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, later, s.UpdatedAt)
}

func TestOverride(t *testing.T) {
	now := time.Now()
	s := NewSession(id.NewUserID(), id.NewTenantID(), now)
	s.Status = StatusAdvancedCompleted

	require.NoError(t, s.Override(StatusTempFailure, now))
	assert.Equal(t, StatusTempFailure, s.Status)

	err := s.Override(StatusNotStarted, now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
