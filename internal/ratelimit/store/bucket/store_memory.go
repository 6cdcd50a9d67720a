package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"kycgate/internal/ratelimit/models"
)

// idleTTL is how long an untouched bucket is kept before it is dropped.
const idleTTL = 10 * time.Minute

// InMemoryBucketStore keeps one token bucket per key. It is process-local: each
// replica enforces the budget on its own.
type InMemoryBucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	now       func() time.Time
	lastSweep time.Time
}

type tokenBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func New() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	b := s.buckets[key]
	if b == nil {
		b = &tokenBucket{limiter: rate.NewLimiter(perMinute(limit.PerMinute), limit.Capacity())}
		s.buckets[key] = b
	}
	b.lastSeen = now

	capacity := limit.Capacity()
	if b.limiter.AllowN(now, 1) {
		remaining := int(math.Floor(b.limiter.TokensAt(now)))
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     capacity,
			Remaining: max(remaining, 0),
			ResetAt:   now.Add(refillTime(limit, capacity-remaining)),
		}, nil
	}

	wait := refillTime(limit, 1)
	return &models.RateLimitResult{
		Allowed:    false,
		Limit:      capacity,
		Remaining:  0,
		ResetAt:    now.Add(wait),
		RetryAfter: max(int(math.Ceil(wait.Seconds())), 1),
	}, nil
}

// Reset drops the bucket for key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// sweep runs at most once per idleTTL. Must be called while holding s.mu.
func (s *InMemoryBucketStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < idleTTL {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(s.buckets, key)
		}
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60)
}

// refillTime is how long the bucket needs to regain tokens tokens.
func refillTime(limit models.Limit, tokens int) time.Duration {
	if tokens <= 0 || limit.PerMinute <= 0 {
		return 0
	}
	return time.Duration(float64(tokens) * float64(time.Minute) / float64(limit.PerMinute))
}
