// Package models holds the identity aggregates: the process-wide User and the
// per-tenant link that maps a tenant's own user id onto it.
package models

import (
	"strings"
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// User is shared by every tenant that links to the same email.
type User struct {
	ID        id.UserID `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser normalizes the email and enforces the required fields.
func NewUser(userID id.UserID, email, phone string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is required")
	}
	if strings.TrimSpace(phone) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone is required")
	}
	return &User{
		ID:        userID,
		Email:     email,
		Phone:     strings.TrimSpace(phone),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ClientUser links (TenantID, ClientUserID) to a User. Once created it is never repointed.
type ClientUser struct {
	ID           id.LinkID   `json:"id"`
	TenantID     id.TenantID `json:"tenant_id"`
	UserID       id.UserID   `json:"user_id"`
	ClientUserID string      `json:"client_user_id"`
	CreatedAt    time.Time   `json:"created_at"`
}

func NewClientUser(tenantID id.TenantID, userID id.UserID, clientUserID string, now time.Time) (*ClientUser, error) {
	clientUserID = strings.TrimSpace(clientUserID)
	if clientUserID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client user id is required")
	}
	if tenantID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant and user are required")
	}
	return &ClientUser{
		ID:           id.NewLinkID(),
		TenantID:     tenantID,
		UserID:       userID,
		ClientUserID: clientUserID,
		CreatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and trims so lookups match regardless of input casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
