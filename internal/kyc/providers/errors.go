package providers

import (
	"errors"
	"fmt"

	dErrors "kycgate/pkg/domain-errors"
)

// ErrorCategory defines the normalized failure taxonomy.
type ErrorCategory string

const (
	// ErrorRejected means the provider answered with a terminal refusal.
	ErrorRejected ErrorCategory = "rejected"

	// ErrorUnavailable means the provider could not be reached or failed server-side.
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorTimeout indicates the provider took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned an undecodable or incomplete body.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorInvalidInput means the request was refused locally before any network call.
	ErrorInvalidInput ErrorCategory = "invalid_input"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorUnavailable,
	}
}

// IsRetryable checks if an error is worth retrying by the caller.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ToDomainError translates a provider failure into the domain error taxonomy.
// Rejections keep the provider's message; unavailability hides it.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification provider call failed")
	}
	switch pe.Category {
	case ErrorRejected:
		return dErrors.Wrap(err, dErrors.CodeUpstreamRejected, pe.Message)
	case ErrorInvalidInput:
		return dErrors.Wrap(err, dErrors.CodeValidation, pe.Message)
	case ErrorUnavailable, ErrorTimeout, ErrorBadData:
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "verification provider unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification provider call failed")
	}
}
