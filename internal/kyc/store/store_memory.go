package store

import (
	"context"
	"sync"

	"kycgate/internal/kyc/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions keyed by user. Values are copied on the way in and out
// so callers never share a *Session with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.UserID]models.Session
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.UserID]models.Session)}
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID id.UserID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

// CreateIfAbsent inserts session unless the user already has one, and returns the
// stored session either way.
func (s *InMemoryStore) CreateIfAbsent(_ context.Context, session *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.UserID]; ok {
		return &existing, nil
	}
	s.sessions[session.UserID] = *session
	stored := *session
	return &stored, nil
}

// Save replaces the stored session only while its status is still from, and returns
// sentinel.ErrConflict when another writer moved it first.
func (s *InMemoryStore) Save(_ context.Context, session *models.Session, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != from {
		return sentinel.ErrConflict
	}
	s.sessions[session.UserID] = *session
	return nil
}
