package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kycgate/internal/ratelimit/models"
)

const redisKeyPrefix = "kycgate:ratelimit:"

// fixedWindowScript increments the window counter and starts its expiry on first use.
// Returns the new count and the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// RedisBucketStore shares one budget across replicas with a one-minute fixed window
// holding PerMinute plus Burst requests.
type RedisBucketStore struct {
	client redis.UniversalClient
	window time.Duration
}

func NewRedis(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, window: time.Minute}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit window: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("rate limit window: unexpected reply %v", res)
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = s.window
	}

	capacity := limit.PerMinute + limit.Burst
	resetAt := time.Now().Add(ttl)
	if count > capacity {
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      capacity,
			ResetAt:    resetAt,
			RetryAfter: max(int(ttl.Seconds()), 1),
		}, nil
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     capacity,
		Remaining: capacity - count,
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}
