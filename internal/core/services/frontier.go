package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// Frontier is the prioritized, retry-aware work list of URLs awaiting a
// fetch attempt. It wraps the frontier store with the enqueue pre-check
// and the housekeeping sweeps.
type Frontier struct {
	store  driven.FrontierStore
	items  driven.ItemStore
	logger *slog.Logger

	maxRetries int
	retention  time.Duration
	staleAfter time.Duration
}

// FrontierConfig holds dependencies and policy for the Frontier.
type FrontierConfig struct {
	Store  driven.FrontierStore
	Items  driven.ItemStore
	Logger *slog.Logger

	// MaxRetries caps failed-entry reselection (default 3)
	MaxRetries int

	// Retention is how long failed entries survive before the sweep
	// removes them (default 30 days)
	Retention time.Duration

	// StaleAfter is how long a processing entry may sit before the
	// reclaim sweep returns it to pending (default 15 minutes)
	StaleAfter time.Duration
}

// NewFrontier creates a new Frontier.
func NewFrontier(cfg FrontierConfig) *Frontier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}

	return &Frontier{
		store:      cfg.Store,
		items:      cfg.Items,
		logger:     logger,
		maxRetries: maxRetries,
		retention:  retention,
		staleAfter: staleAfter,
	}
}

// Enqueue adds a URL to the frontier. Returns false (no-op) when the
// URL already exists as a frontier entry or as a persisted item, so
// already-ingested content is never re-discovered. The item-store check
// is advisory; the frontier's unique URL constraint makes the insert
// itself race-safe.
func (f *Frontier) Enqueue(ctx context.Context, url, platform string, itemType domain.QueueItemType, priority int) (bool, error) {
	if url == "" {
		return false, domain.ErrInvalidInput
	}

	ingested, err := f.items.URLExists(ctx, url)
	if err != nil {
		return false, fmt.Errorf("check persisted url: %w", err)
	}
	if ingested {
		return false, nil
	}

	entry := domain.NewQueueItem(url, platform, itemType, priority)
	entry.MaxRetries = f.maxRetries

	added, err := f.store.Insert(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("insert frontier entry: %w", err)
	}

	if added {
		f.logger.Debug("url enqueued",
			"url", url,
			"platform", platform,
			"item_type", itemType,
			"priority", priority,
		)
	}
	return added, nil
}

// NextBatch claims up to limit entries for processing, ordered by
// priority descending and first_seen ascending. Claimed entries are
// marked processing before any side-effecting work begins.
func (f *Frontier) NextBatch(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	batch, err := f.store.Claim(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}

	if len(batch) > 0 {
		f.logger.Info("frontier batch claimed", "count", len(batch))
	}
	return batch, nil
}

// Complete marks a claimed entry as successfully processed.
func (f *Frontier) Complete(ctx context.Context, item *domain.QueueItem) error {
	if err := f.store.MarkCompleted(ctx, item.ID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	f.logger.Debug("frontier entry completed", "url", item.URL)
	return nil
}

// Fail records a failed attempt. The entry stays eligible for
// reselection while its retry count is under the cap; at the cap it is
// frozen in failed until the retention sweep removes it.
func (f *Frontier) Fail(ctx context.Context, item *domain.QueueItem, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := f.store.MarkFailed(ctx, item.ID, reason); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	f.logger.Warn("frontier entry failed",
		"url", item.URL,
		"retry_count", item.RetryCount+1,
		"max_retries", item.MaxRetries,
		"error", reason,
	)
	return nil
}

// Sweep purges completed entries and failed entries older than the
// retention window.
func (f *Frontier) Sweep(ctx context.Context) (int, error) {
	purged, err := f.store.Purge(ctx, f.retention)
	if err != nil {
		return 0, fmt.Errorf("purge frontier: %w", err)
	}
	if purged > 0 {
		f.logger.Info("frontier sweep", "purged", purged)
	}
	return purged, nil
}

// ReclaimStale returns processing entries stuck past the staleness
// timeout to pending. This recovers entries orphaned by a crash
// mid-processing without consuming one of their retries.
func (f *Frontier) ReclaimStale(ctx context.Context) (int, error) {
	reclaimed, err := f.store.ReclaimStale(ctx, f.staleAfter)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale: %w", err)
	}
	if reclaimed > 0 {
		f.logger.Warn("stale frontier entries reclaimed", "count", reclaimed)
	}
	return reclaimed, nil
}

// Stats returns frontier counters.
func (f *Frontier) Stats(ctx context.Context) (*domain.FrontierStats, error) {
	return f.store.Stats(ctx)
}
