package models

import (
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

// Status is the internal verification status lattice:
//
//	NOT_STARTED -> IN_PROGRESS -> BASIC_COMPLETED -> ADVANCED_COMPLETED
//
// with TEMP_FAILURE and PERMANENT_FAILURE reachable from IN_PROGRESS.
type Status string

const (
	StatusNotStarted        Status = "NOT_STARTED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusBasicCompleted    Status = "BASIC_COMPLETED"
	StatusAdvancedCompleted Status = "ADVANCED_COMPLETED"
	StatusTempFailure       Status = "TEMP_FAILURE"
	StatusPermanentFailure  Status = "PERMANENT_FAILURE"
)

// rank orders the forward lattice. Failure states are off the lattice.
var rank = map[Status]int{
	StatusNotStarted:        0,
	StatusInProgress:        1,
	StatusBasicCompleted:    2,
	StatusAdvancedCompleted: 3,
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBasicCompleted, StatusAdvancedCompleted,
		StatusTempFailure, StatusPermanentFailure:
		return true
	}
	return false
}

func (s Status) IsFailure() bool {
	return s == StatusTempFailure || s == StatusPermanentFailure
}

// IsTerminal reports whether the provider can no longer change the status.
func (s Status) IsTerminal() bool {
	return s == StatusAdvancedCompleted
}

// CanTransitionTo reports whether a provider-driven change from s to next is permitted.
// Equal statuses are a permitted no-op. The lattice only moves forward. Failures are
// entered from IN_PROGRESS (or TEMP_FAILURE -> PERMANENT_FAILURE). A failed session may
// move to any started state once the provider reports progress again.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	if !next.IsValid() || next == StatusNotStarted {
		return false
	}
	switch {
	case s.IsFailure():
		if s == StatusPermanentFailure && next == StatusTempFailure {
			return false
		}
		return true
	case next.IsFailure():
		return s == StatusInProgress
	default:
		from, okFrom := rank[s]
		to, okTo := rank[next]
		return okFrom && okTo && to > from
	}
}

// ParseStatus validates an externally supplied status value.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid kyc status: "+v)
	}
	return s, nil
}

// MapProviderStatus translates the provider's status vocabulary into the internal
// lattice. Unknown values map to IN_PROGRESS: the provider session exists and has not
// reached a known completion or failure state. Matching is exact; "completed" is not
// a provider value.
func MapProviderStatus(providerStatus string) Status {
	switch providerStatus {
	case "OTP_COMPLETED", "IN_REVIEW":
		return StatusInProgress
	case "COMPLETED", "BASIC_KYC_COMPLETED", "INTERMEDIATE_KYC_COMPLETED", "ADVANCE_KYC_COMPLETED":
		return StatusBasicCompleted
	case "EDD_COMPLETED":
		return StatusAdvancedCompleted
	case "TEMPORARY_FAILURE":
		return StatusTempFailure
	case "PERMANENT_FAILURE":
		return StatusPermanentFailure
	default:
		return StatusInProgress
	}
}
