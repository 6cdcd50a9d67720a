// Package lock serializes work per key across goroutines (memory) or processes
// (Redis, Postgres advisory locks). StartVerification holds the lock for a user
// while it talks to the provider so two callers never register the same person twice.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires an exclusive lock on key. The returned unlock must be called
// exactly once; it never fails the caller.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
