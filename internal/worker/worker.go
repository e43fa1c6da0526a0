package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
	"github.com/tidewater-labs/harvest-core/internal/core/services"
)

// Lock names for housekeeping coordination across instances
const (
	sweepLockName    = "frontier-sweep"
	reclaimLockName  = "frontier-reclaim"
	backfillLockName = "embedding-backfill"
	housekeepTTL     = 5 * time.Minute

	// backfillLimit caps how many unembedded chunks one housekeeping
	// pass repairs
	backfillLimit = 200
)

// Worker drives one scheduled ingestion run: claim frontier entries,
// invoke the scraper adapter for each, feed candidates through the
// reconciler and record the terminal queue state. A single logical
// worker processes one entry at a time; multiple instances may overlap
// safely because claims are atomic.
type Worker struct {
	frontier   *services.Frontier
	reconciler *services.Reconciler
	scrapers   map[string]driven.Scraper
	lock       driven.DistributedLock
	logger     *slog.Logger

	batchSize      int
	requestTimeout time.Duration
	requestDelay   time.Duration
}

// Config holds dependencies and policy for the Worker.
type Config struct {
	Frontier   *services.Frontier
	Reconciler *services.Reconciler
	Scrapers   []driven.Scraper
	// Lock is optional; without it housekeeping runs unguarded
	Lock   driven.DistributedLock
	Logger *slog.Logger

	// BatchSize is how many entries each claim fetches (default 25)
	BatchSize int

	// RequestTimeout bounds each scrape call (default 30s)
	RequestTimeout time.Duration

	// RequestDelay is the pause between scrape calls, respecting
	// target-site rate limits (default 1.5s)
	RequestDelay time.Duration
}

// New creates a new Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 25
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	requestDelay := cfg.RequestDelay
	if requestDelay < 0 {
		requestDelay = 0
	}

	scrapers := make(map[string]driven.Scraper, len(cfg.Scrapers))
	for _, s := range cfg.Scrapers {
		scrapers[s.Platform()] = s
	}

	return &Worker{
		frontier:       cfg.Frontier,
		reconciler:     cfg.Reconciler,
		scrapers:       scrapers,
		lock:           cfg.Lock,
		logger:         logger,
		batchSize:      batchSize,
		requestTimeout: requestTimeout,
		requestDelay:   requestDelay,
	}
}

// Run executes one ingestion pass: claim batches until the frontier is
// drained or the context is cancelled. Per-entry errors never abort the
// run; only the summary decides the process exit. Cancellation is
// cooperative between entries, not mid-entry.
func (w *Worker) Run(ctx context.Context) (*domain.RunSummary, error) {
	start := time.Now()
	summary := &domain.RunSummary{}

	w.logger.Info("ingestion run starting", "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		batch, err := w.frontier.NextBatch(ctx, w.batchSize)
		if err != nil {
			// Inability to reach storage is catastrophic: abort the job.
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("claim batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		summary.ItemsClaimed += len(batch)

		for i, entry := range batch {
			select {
			case <-ctx.Done():
				summary.Duration = time.Since(start)
				return summary, ctx.Err()
			default:
			}

			if i > 0 && w.requestDelay > 0 {
				select {
				case <-ctx.Done():
					summary.Duration = time.Since(start)
					return summary, ctx.Err()
				case <-time.After(w.requestDelay):
				}
			}

			w.processEntry(ctx, entry, summary)
		}
	}

	summary.Duration = time.Since(start)

	w.logger.Info("ingestion run finished",
		"claimed", summary.ItemsClaimed,
		"completed", summary.ItemsCompleted,
		"failed", summary.ItemsFailed,
		"created", summary.Stats.Created,
		"updated", summary.Stats.Updated,
		"skipped", summary.Stats.Skipped,
		"errors", summary.Stats.Errors,
		"duration", summary.Duration,
	)

	if !summary.Progress() && summary.ItemsClaimed == 0 {
		// Zero net new items and zero queue movement signals possible
		// upstream breakage (dead selectors, blocked crawler).
		return summary, domain.ErrNoProgress
	}
	return summary, nil
}

// processEntry scrapes one frontier entry and reconciles its
// candidates. The entry was already marked processing by the claim.
func (w *Worker) processEntry(ctx context.Context, entry *domain.QueueItem, summary *domain.RunSummary) {
	logger := w.logger.With("url", entry.URL, "platform", entry.Platform)

	scraper, ok := w.scrapers[entry.Platform]
	if !ok {
		w.failEntry(ctx, entry, summary, fmt.Errorf("no scraper registered for platform %q", entry.Platform))
		return
	}

	var candidates []*domain.Candidate
	err := services.WithTimeout(ctx, w.requestTimeout, func(ctx context.Context) error {
		var scrapeErr error
		candidates, scrapeErr = scraper.Scrape(ctx, entry)
		return scrapeErr
	})
	if err != nil {
		w.failEntry(ctx, entry, summary, fmt.Errorf("scrape: %w", err))
		return
	}

	stats, err := w.reconciler.ReconcileBatch(ctx, candidates)
	if stats != nil {
		summary.Stats.Created += stats.Created
		summary.Stats.Updated += stats.Updated
		summary.Stats.Skipped += stats.Skipped
		summary.Stats.ChunksWritten += stats.ChunksWritten
		summary.Stats.Errors += stats.Errors
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		w.failEntry(ctx, entry, summary, fmt.Errorf("reconcile batch: %w", err))
		return
	}

	if err := w.frontier.Complete(ctx, entry); err != nil {
		logger.Error("failed to complete frontier entry", "error", err)
		return
	}
	summary.ItemsCompleted++
}

func (w *Worker) failEntry(ctx context.Context, entry *domain.QueueItem, summary *domain.RunSummary, cause error) {
	if err := w.frontier.Fail(ctx, entry, cause); err != nil {
		w.logger.Error("failed to record frontier failure", "url", entry.URL, "error", err)
		return
	}
	summary.ItemsFailed++
}

// Housekeep runs the staleness reclaim, the retention sweep and the
// embedding backfill, each guarded by the distributed lock so
// overlapping scheduled jobs do not double-run them.
func (w *Worker) Housekeep(ctx context.Context) error {
	if err := w.withLock(ctx, reclaimLockName, func() error {
		_, err := w.frontier.ReclaimStale(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("reclaim: %w", err)
	}

	if err := w.withLock(ctx, sweepLockName, func() error {
		_, err := w.frontier.Sweep(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	if err := w.withLock(ctx, backfillLockName, func() error {
		_, err := w.reconciler.BackfillEmbeddings(ctx, backfillLimit)
		return err
	}); err != nil {
		return fmt.Errorf("embedding backfill: %w", err)
	}

	return nil
}

func (w *Worker) withLock(ctx context.Context, name string, fn func() error) error {
	if w.lock == nil {
		return fn()
	}

	acquired, err := w.lock.Acquire(ctx, name, housekeepTTL)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		w.logger.Debug("housekeeping lock held elsewhere", "lock", name)
		return nil
	}
	defer func() {
		_ = w.lock.Release(ctx, name)
	}()

	return fn()
}

// Health reports worker collaborator health.
type Health struct {
	FrontierHealthy bool   `json:"frontier_healthy"`
	Error           string `json:"error,omitempty"`
}

// Health returns the health status of the worker's storage path.
func (w *Worker) Health(ctx context.Context) Health {
	health := Health{}
	if _, err := w.frontier.Stats(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.FrontierHealthy = true
	}
	return health
}
