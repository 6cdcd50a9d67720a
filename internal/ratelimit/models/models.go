package models

import (
	"time"

	id "kycgate/pkg/domain"
)

// Limit is a per-tenant request budget: a steady PerMinute rate with Burst headroom.
type Limit struct {
	PerMinute int
	Burst     int
}

// Disabled reports whether no budget is enforced.
func (l Limit) Disabled() bool {
	return l.PerMinute <= 0
}

// Capacity is the most requests a fresh bucket admits at once.
func (l Limit) Capacity() int {
	if l.Burst > 0 {
		return l.Burst
	}
	return l.PerMinute
}

// RateLimitResult is the outcome of one admission check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// TenantKey namespaces bucket keys by tenant.
func TenantKey(tenantID id.TenantID) string {
	return "tenant:" + tenantID.String()
}
