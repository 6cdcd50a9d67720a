package audit

import (
	"context"
	"time"

	id "kycgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: identity links
	// and every verification status change.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	TenantID  id.TenantID   `json:"tenant_id"`
	UserID    id.UserID     `json:"user_id"`
	Subject   string        `json:"subject,omitempty"`
	Action    string        `json:"action"`
	// From and To carry the previous and new verification status on status events.
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventUserLinked          AuditEvent = "user_linked"
	EventKycStarted          AuditEvent = "kyc_started"
	EventKycStatusChanged    AuditEvent = "kyc_status_changed"
	EventKycStatusOverridden AuditEvent = "kyc_status_overridden"
	EventTenantCreated       AuditEvent = "tenant_created"
	EventTenantDeactivated   AuditEvent = "tenant_deactivated"
	EventTenantReactivated   AuditEvent = "tenant_reactivated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserLinked:          CategoryCompliance,
	EventKycStarted:          CategoryCompliance,
	EventKycStatusChanged:    CategoryCompliance,
	EventKycStatusOverridden: CategoryCompliance,
	EventTenantCreated:       CategoryOperations,
	EventTenantDeactivated:   CategoryCompliance,
	EventTenantReactivated:   CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
