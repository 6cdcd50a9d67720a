package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/platform/circuit"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// BucketStore admits or rejects one request for key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

// Middleware enforces a per-tenant request budget. With a shared primary store, a
// circuit breaker moves checks to the in-process fallback while the primary fails.
type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Middleware)

// WithPrimary puts a shared store (Redis) in front of the in-process buckets.
func WithPrimary(store BucketStore) Option {
	return func(m *Middleware) {
		m.primary = store
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

func New(fallback BucketStore, limit models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		fallback: fallback,
		limit:    limit,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if limit.Disabled() {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimitTenant must run after the tenant guard; requests without a tenant pass.
func (m *Middleware) RateLimitTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenantID := requestcontext.TenantID(ctx)
			if m.limit.Disabled() || tenantID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.check(ctx, models.TenantKey(tenantID))
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check tenant rate limit",
					"tenant_id", tenantID,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			m.metrics.IncrementDecision(result.Allowed)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "tenant rate limited",
					"tenant_id", tenantID,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, key string) (*models.RateLimitResult, error) {
	if m.primary == nil {
		return m.fallback.Allow(ctx, key, m.limit)
	}
	if m.breaker.IsOpen() {
		m.metrics.IncrementDegraded()
		// Probe the primary so the circuit can close once it recovers.
		if _, err := m.primary.Allow(ctx, key, m.limit); err == nil {
			if _, change := m.breaker.RecordSuccess(); change.Closed {
				m.logger.InfoContext(ctx, "rate limit store recovered")
				m.metrics.SetCircuitOpen(false)
			}
		} else {
			m.breaker.RecordFailure()
		}
		return m.fallback.Allow(ctx, key, m.limit)
	}

	result, err := m.primary.Allow(ctx, key, m.limit)
	if err == nil {
		m.breaker.RecordSuccess()
		return result, nil
	}
	m.metrics.IncrementStoreError()
	if _, change := m.breaker.RecordFailure(); change.Opened {
		m.logger.WarnContext(ctx, "rate limit store unhealthy, using in-process buckets", "error", err)
		m.metrics.SetCircuitOpen(true)
	}
	return m.fallback.Allow(ctx, key, m.limit)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limited",
		Message:    "Too many requests for this API key. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
