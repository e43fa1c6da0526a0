package driven

import (
	"context"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// Scraper fetches candidates for a single frontier entry.
// Implementations live outside this module (browser automation, HTTP
// clients, per-site selectors); the pipeline only sees the records they
// return. Records must already be English-filtered and non-empty.
type Scraper interface {
	// Scrape fetches the given frontier entry and returns candidates.
	// Category pages typically return no candidates but enqueue each
	// discovered URL on the frontier.
	Scrape(ctx context.Context, item *domain.QueueItem) ([]*domain.Candidate, error)

	// Platform returns the platform key this scraper handles
	Platform() string
}

// FetchPredicate decides whether a browser resource type should be
// loaded during a scrape (images and fonts are usually skipped).
// Passed to browser-automation collaborators; the pipeline itself never
// inspects resource types.
type FetchPredicate func(resourceType string) bool
