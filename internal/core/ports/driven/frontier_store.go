package driven

import (
	"context"
	"time"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// FrontierStore handles crawl frontier persistence.
// Claims must be atomic conditional updates so that two workers never
// both claim the same entry.
type FrontierStore interface {
	// Insert adds a frontier entry. Returns false without error when an
	// entry for the URL already exists (race-safe no-op).
	Insert(ctx context.Context, item *domain.QueueItem) (bool, error)

	// Claim atomically selects up to limit selectable entries (pending, or
	// failed under the retry cap), marks them processing and returns them.
	// Ordering: priority descending, then first_seen ascending.
	Claim(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// MarkCompleted moves a claimed entry to its terminal success state
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed records a failed attempt and increments the retry counter
	MarkFailed(ctx context.Context, id string, reason string) error

	// GetByURL retrieves an entry by its unique URL
	GetByURL(ctx context.Context, url string) (*domain.QueueItem, error)

	// ReclaimStale returns processing entries older than the cutoff back to
	// pending without consuming a retry. Returns the number reclaimed.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)

	// Purge removes completed entries and failed entries older than the
	// retention window. Returns the number removed.
	Purge(ctx context.Context, retention time.Duration) (int, error)

	// Stats returns frontier counters for observability
	Stats(ctx context.Context) (*domain.FrontierStats, error)

	// Ping checks storage health
	Ping(ctx context.Context) error
}
