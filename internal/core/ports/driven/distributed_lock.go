package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates housekeeping across pipeline instances.
// Two overlapping scheduled jobs must not both run the sweep or the
// staleness reclaim.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL-based
	// implementations auto-expire anyway. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
