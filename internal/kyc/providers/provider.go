// Package providers defines the contract between the session reconciler and an
// external verification provider.
package providers

import "context"

// ResultKind tags a CreateOrFindCustomer outcome.
type ResultKind int

const (
	// NewCustomer means the provider created (or resumed) a customer and returned its link.
	NewCustomer ResultKind = iota + 1
	// ExistingCustomer means the provider already knows this person under ProviderID.
	// No link is returned; callers re-invoke with ProviderID to obtain one.
	ExistingCustomer
)

func (k ResultKind) String() string {
	switch k {
	case NewCustomer:
		return "new_customer"
	case ExistingCustomer:
		return "existing_customer"
	default:
		return "unknown"
	}
}

// CustomerProfile is what the provider needs to register a person.
type CustomerProfile struct {
	// ClientCustomerID is our internal user id, echoed back by the provider.
	ClientCustomerID string
	Email            string
	Phone            string
}

// CustomerResult is the tagged result of CreateOrFindCustomer.
type CustomerResult struct {
	Kind       ResultKind
	ProviderID string
	Link       string
}

// ProviderStatus is the provider's view of a customer's verification.
type ProviderStatus struct {
	Status                  string
	CountryISO              string
	CurrentVerificationStep string
	PreviousSuccessfulStep  string
	FailedReason            string
}

// Provider is implemented by each external verification service client.
type Provider interface {
	// Name identifies the provider in persisted sessions and metrics.
	Name() string

	// CreateOrFindCustomer registers profile with the provider, or resumes the customer
	// identified by existingProviderID when non-empty.
	CreateOrFindCustomer(ctx context.Context, profile CustomerProfile, existingProviderID string) (*CustomerResult, error)

	// FetchStatus returns the provider's authoritative status for providerID.
	FetchStatus(ctx context.Context, providerID string) (*ProviderStatus, error)
}
