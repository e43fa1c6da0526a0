package driven

import "context"

// DedupeCache is an optional fast path for content-hash lookups.
// It is advisory only: a cache hit still confirms against the item
// store, and a miss falls through to the store. Deployments without
// Redis run with a nil cache.
type DedupeCache interface {
	// Add records a content hash
	Add(ctx context.Context, digest string) error

	// Contains reports whether a content hash has been seen
	Contains(ctx context.Context, digest string) (bool, error)

	// Ping checks cache health
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
