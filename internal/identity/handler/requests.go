package handler

import (
	"net/mail"
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

const (
	maxEmailLength        = 254
	maxClientUserIDLength = 255
	minPhoneLength        = 8
	maxPhoneLength        = 16
)

// CreateUserRequest is the body of POST /user.
type CreateUserRequest struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ClientUserID string `json:"clientUserId"`
}

// Validate normalizes the fields and implements httputil.Validatable.
func (r *CreateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.ClientUserID = strings.TrimSpace(r.ClientUserID)

	if len(r.Email) > maxEmailLength {
		return dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	if len(r.ClientUserID) > maxClientUserIDLength {
		return dErrors.New(dErrors.CodeValidation, "clientUserId is too long")
	}

	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	if r.ClientUserID == "" {
		return dErrors.New(dErrors.CodeValidation, "clientUserId is required")
	}
	if !validPhone(r.Phone) {
		return dErrors.New(dErrors.CodeValidation, "phone must start with + followed by digits")
	}
	return nil
}

func validPhone(phone string) bool {
	if len(phone) < minPhoneLength || len(phone) > maxPhoneLength || phone[0] != '+' {
		return false
	}
	for _, c := range phone[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
