package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/identity/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

func TestInMemoryStore_UpsertUser(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Now()

	first, err := models.NewUser(id.NewUserID(), "a@x.com", "+911234567890", now)
	require.NoError(t, err)
	stored, created, err := s.UpsertUser(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, stored.ID)

	second, err := models.NewUser(id.NewUserID(), "a@x.com", "+919999999999", now.Add(time.Minute))
	require.NoError(t, err)
	stored, created, err = s.UpsertUser(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "+919999999999", stored.Phone)

	byID, err := s.FindUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "+919999999999", byID.Phone)

	_, err = s.FindUserByID(ctx, second.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_Links(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Now()
	tenantID := id.NewTenantID()

	userA, _ := models.NewUser(id.NewUserID(), "a@x.com", "+911234567890", now)
	userB, _ := models.NewUser(id.NewUserID(), "b@x.com", "+911234567890", now)
	_, _, err := s.UpsertUser(ctx, userA)
	require.NoError(t, err)
	_, _, err = s.UpsertUser(ctx, userB)
	require.NoError(t, err)

	link, err := models.NewClientUser(tenantID, userA.ID, "u-1", now)
	require.NoError(t, err)
	stored, err := s.CreateLinkIfAbsent(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, link.ID, stored.ID)

	repoint, err := models.NewClientUser(tenantID, userB.ID, "u-1", now)
	require.NoError(t, err)
	stored, err = s.CreateLinkIfAbsent(ctx, repoint)
	require.NoError(t, err)
	assert.Equal(t, userA.ID, stored.UserID, "existing link is never repointed")

	_, err = s.FindLink(ctx, id.NewTenantID(), "u-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	orphan, err := models.NewClientUser(tenantID, id.NewUserID(), "u-2", now)
	require.NoError(t, err)
	_, err = s.CreateLinkIfAbsent(ctx, orphan)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
