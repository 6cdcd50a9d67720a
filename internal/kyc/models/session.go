package models

import (
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Session is the single verification session owned by a user.
//
// Invariants:
//   - NOT_STARTED is the only status with an empty ProviderSessionID and Link
//   - ProviderSessionID, once set, is never replaced by a different value
//   - Status changes move forward (see Status.CanTransitionTo) except AdminOverride
type Session struct {
	ID                id.SessionID `json:"id"`
	UserID            id.UserID    `json:"user_id"`
	TenantID          id.TenantID  `json:"tenant_id"`
	Status            Status       `json:"status"`
	ProviderSessionID string       `json:"provider_session_id,omitempty"`
	Link              string       `json:"kyc_link,omitempty"`
	ProviderName      string       `json:"provider_name,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewSession builds the NOT_STARTED session created alongside a user.
func NewSession(userID id.UserID, tenantID id.TenantID, now time.Time) *Session {
	return &Session{
		ID:        id.NewSessionID(),
		UserID:    userID,
		TenantID:  tenantID,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) IsStarted() bool {
	return s.Status != StatusNotStarted
}

// ApplyRegistration records the provider registration result.
func (s *Session) ApplyRegistration(providerName, providerSessionID, link string, status Status, now time.Time) error {
	if providerSessionID == "" || link == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "provider session id and link are required")
	}
	if s.ProviderSessionID != "" && s.ProviderSessionID != providerSessionID {
		return dErrors.New(dErrors.CodeInvariantViolation, "session is already bound to another provider customer")
	}
	if status == StatusNotStarted {
		status = StatusInProgress
	}
	s.ProviderName = providerName
	s.ProviderSessionID = providerSessionID
	s.Link = link
	s.Status = status
	s.UpdatedAt = now
	return nil
}

// ApplyStatus moves to next when the transition is permitted. Reports whether the
// status changed.
func (s *Session) ApplyStatus(next Status, now time.Time) (bool, error) {
	if s.Status == next {
		return false, nil
	}
	if !s.Status.CanTransitionTo(next) {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "kyc status cannot move from "+string(s.Status)+" to "+string(next))
	}
	s.Status = next
	s.UpdatedAt = now
	return true, nil
}

// Override sets the status unconditionally except for NOT_STARTED.
func (s *Session) Override(next Status, now time.Time) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid kyc status")
	}
	if next == StatusNotStarted {
		return dErrors.New(dErrors.CodeValidation, "status cannot be reset to NOT_STARTED")
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}
