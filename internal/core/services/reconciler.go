package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
	"github.com/tidewater-labs/harvest-core/internal/runtime"
)

// Reconciler converts candidates into create/update/skip actions
// against the persisted store. It implements the 4-step flow:
//  1. Lookup by URL - existing items are updated in place
//  2. Dedupe by content hash - exact matches skip or flag per policy
//  3. Quality gate - low scores skip
//  4. Create with a unique slug, then segment chunks (best-effort)
type Reconciler struct {
	items    driven.ItemStore
	chunks   driven.ChunkStore
	dedupe   *Deduplicator
	slugs    *SlugAllocator
	services *runtime.Services
	logger   *slog.Logger

	qualityThreshold int
	duplicatePolicy  domain.DuplicatePolicy
	minChunkLength   int
	maxChunks        int
	embedTimeout     time.Duration
	createRetry      RetryPolicy
}

// ReconcilerConfig holds dependencies and policy for the Reconciler.
type ReconcilerConfig struct {
	Items    driven.ItemStore
	Chunks   driven.ChunkStore
	Dedupe   *Deduplicator
	Slugs    *SlugAllocator
	Services *runtime.Services
	Logger   *slog.Logger

	// QualityThreshold gates automatic acceptance (default 70)
	QualityThreshold int

	// DuplicatePolicy is skip (default) or flag
	DuplicatePolicy domain.DuplicatePolicy

	// MinChunkLength is the minimum paragraph length stored as a chunk
	MinChunkLength int

	// MaxChunks caps the chunk count per item
	MaxChunks int

	// EmbedTimeout bounds each enrichment call (default 30s)
	EmbedTimeout time.Duration
}

// NewReconciler creates a new Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	threshold := cfg.QualityThreshold
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	policy := cfg.DuplicatePolicy
	if policy == "" {
		policy = domain.DuplicatePolicySkip
	}
	minChunk := cfg.MinChunkLength
	if minChunk <= 0 {
		minChunk = 80
	}
	maxChunks := cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = 20
	}
	embedTimeout := cfg.EmbedTimeout
	if embedTimeout <= 0 {
		embedTimeout = 30 * time.Second
	}

	return &Reconciler{
		items:            cfg.Items,
		chunks:           cfg.Chunks,
		dedupe:           cfg.Dedupe,
		slugs:            cfg.Slugs,
		services:         cfg.Services,
		logger:           logger,
		qualityThreshold: threshold,
		duplicatePolicy:  policy,
		minChunkLength:   minChunk,
		maxChunks:        maxChunks,
		embedTimeout:     embedTimeout,
		createRetry:      DefaultRetryPolicy(),
	}
}

// Reconcile processes a single candidate and performs the idempotent
// write. Re-ingesting the same URL is always an update, never a
// duplicate row.
func (r *Reconciler) Reconcile(ctx context.Context, c *domain.Candidate) (*domain.ReconcileResult, error) {
	if err := c.Validate(); err != nil {
		return &domain.ReconcileResult{
			Action: domain.ActionSkipped,
			Reason: domain.SkipReasonInvalid,
		}, err
	}

	clean := Normalize(c.Body)
	digest := r.dedupe.HashContent(clean)

	// Step 1: same URL means update in place
	existing, err := r.items.GetByURL(ctx, c.URL)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup by url: %w", err)
	}
	if existing != nil {
		return r.update(ctx, existing, c, digest)
	}

	// Step 2: exact content-hash duplicates under a different URL
	dedupeResult, err := r.dedupe.Check(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("dedupe check: %w", err)
	}
	if dedupeResult.IsDuplicate {
		return r.handleDuplicate(ctx, c, digest, dedupeResult.MatchedItem)
	}

	// Step 3: quality gate
	score := Score(c)
	if score < r.qualityThreshold {
		r.logger.Info("candidate below quality threshold",
			"url", c.URL,
			"score", score,
			"threshold", r.qualityThreshold,
		)
		return &domain.ReconcileResult{
			Action: domain.ActionSkipped,
			Reason: domain.SkipReasonLowScore,
			Score:  score,
		}, nil
	}

	// Step 4: create with a unique slug and chunk side-effects
	return r.create(ctx, c, digest, "", score)
}

// update overwrites the mutable fields of an existing item. Slug and
// creation time stay untouched; the content hash moves only when the
// normalized content actually changed.
func (r *Reconciler) update(ctx context.Context, existing *domain.Item, c *domain.Candidate, digest string) (*domain.ReconcileResult, error) {
	contentChanged := digest != existing.ContentHash

	existing.Title = c.Title
	existing.Body = c.Body
	existing.Platform = c.Platform
	existing.ContentType = c.ContentType
	if c.Category != "" {
		existing.Category = c.Category
	}
	if contentChanged {
		existing.ContentHash = digest
	}
	existing.UpdatedAt = time.Now()

	if err := r.items.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	chunksWritten := 0
	if contentChanged {
		var err error
		chunksWritten, err = r.rechunk(ctx, existing)
		if err != nil {
			r.logger.Warn("rechunk failed", "item_id", existing.ID, "error", err)
		}
		r.dedupe.Record(ctx, digest)
	}

	r.logger.Info("item updated",
		"url", existing.URL,
		"slug", existing.Slug,
		"content_changed", contentChanged,
	)

	return &domain.ReconcileResult{
		Action:        domain.ActionUpdated,
		Item:          existing,
		Score:         Score(c),
		ChunksWritten: chunksWritten,
	}, nil
}

// handleDuplicate applies the configured duplicate policy: skip the
// candidate, or import it flagged with a back-reference to the match.
func (r *Reconciler) handleDuplicate(ctx context.Context, c *domain.Candidate, digest string, matched *domain.Item) (*domain.ReconcileResult, error) {
	r.logger.Info("duplicate content detected",
		"url", c.URL,
		"matched_url", matched.URL,
		"policy", r.duplicatePolicy,
	)

	if r.duplicatePolicy == domain.DuplicatePolicyFlag {
		return r.create(ctx, c, digest, matched.ID, Score(c))
	}

	return &domain.ReconcileResult{
		Action: domain.ActionSkipped,
		Reason: domain.SkipReasonDuplicate,
		Item:   matched,
	}, nil
}

// create inserts a new item, recovering from uniqueness races by
// re-deriving the slug. A concurrent insert of the same URL turns the
// create into an update.
func (r *Reconciler) create(ctx context.Context, c *domain.Candidate, digest, duplicateOf string, score int) (*domain.ReconcileResult, error) {
	category := c.Category
	if category == "" {
		category = CategoryFromURL(c.URL, c.Platform)
	}

	now := time.Now()
	item := &domain.Item{
		ID:            domain.GenerateID(),
		URL:           c.URL,
		Title:         c.Title,
		Body:          c.Body,
		Category:      category,
		Platform:      c.Platform,
		ContentType:   c.ContentType,
		Language:      "en",
		ContentHash:   digest,
		IsDuplicateOf: duplicateOf,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var raced *domain.Item
	err := r.createRetry.Do(ctx, func(attempt int) error {
		slug, err := r.slugs.Allocate(ctx, c.Title)
		if err != nil {
			return err
		}
		item.Slug = slug

		err = r.items.Create(ctx, item)
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Could be the slug constraint (re-derive and retry) or a
			// concurrent insert of the same URL (switch to update).
			if existing, getErr := r.items.GetByURL(ctx, c.URL); getErr == nil {
				raced = existing
				return nil
			}
			return err
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSlugExhausted, item.Slug)
		}
		return nil, fmt.Errorf("create item: %w", err)
	}

	if raced != nil {
		return r.update(ctx, raced, c, digest)
	}

	chunksWritten, err := r.rechunk(ctx, item)
	if err != nil {
		// Chunking is a side-effect write; the item itself stands.
		r.logger.Warn("chunk write failed", "item_id", item.ID, "error", err)
	}

	r.dedupe.Record(ctx, digest)

	r.logger.Info("item created",
		"url", item.URL,
		"slug", item.Slug,
		"score", score,
		"chunks", chunksWritten,
	)

	return &domain.ReconcileResult{
		Action:        domain.ActionCreated,
		Item:          item,
		Score:         score,
		ChunksWritten: chunksWritten,
	}, nil
}

// rechunk replaces an item's chunks with fresh segments of its body and
// enriches them with embeddings when a service is registered.
// Enrichment failures never roll back the item or the chunk rows.
func (r *Reconciler) rechunk(ctx context.Context, item *domain.Item) (int, error) {
	paragraphs := Paragraphs(item.Body, r.minChunkLength, r.maxChunks)
	if len(paragraphs) == 0 {
		return 0, nil
	}

	if err := r.chunks.DeleteByItem(ctx, item.ID); err != nil {
		return 0, fmt.Errorf("clear chunks: %w", err)
	}

	now := time.Now()
	chunks := make([]*domain.Chunk, len(paragraphs))
	for i, text := range paragraphs {
		chunks[i] = &domain.Chunk{
			ID:        uuid.New().String(),
			ItemID:    item.ID,
			Text:      text,
			Position:  i,
			CreatedAt: now,
		}
	}

	r.embed(ctx, chunks)

	if err := r.chunks.SaveBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("save chunks: %w", err)
	}
	return len(chunks), nil
}

// embed attaches embeddings to chunks, best-effort and bounded by the
// configured timeout per batch.
func (r *Reconciler) embed(ctx context.Context, chunks []*domain.Chunk) {
	if r.services == nil {
		return
	}
	svc := r.services.EmbeddingService()
	if svc == nil {
		return
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := WithTimeout(ctx, r.embedTimeout, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = svc.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		r.logger.Warn("embedding generation failed", "chunks", len(chunks), "error", err)
		return
	}

	for i := range chunks {
		if i < len(vectors) {
			chunks[i].Embedding = vectors[i]
		}
	}
}

// BackfillEmbeddings retries enrichment for chunks that were persisted
// without a vector after an earlier best-effort failure. Returns the
// number of chunks repaired. A no-op when no embedding service is
// registered.
func (r *Reconciler) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	if r.services == nil || r.services.EmbeddingService() == nil {
		return 0, nil
	}

	missing, err := r.chunks.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list missing embeddings: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	r.embed(ctx, missing)

	repaired := 0
	for _, chunk := range missing {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if err := r.chunks.UpdateEmbedding(ctx, chunk.ID, chunk.Embedding); err != nil {
			r.logger.Warn("embedding backfill write failed", "chunk_id", chunk.ID, "error", err)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		r.logger.Info("embeddings backfilled", "chunks", repaired, "candidates", len(missing))
	}
	return repaired, nil
}

// ReconcileBatch processes candidates with partial-failure tolerance:
// per-candidate errors are logged and counted, never aborting siblings.
// Cancellation is cooperative between candidates, not mid-candidate.
func (r *Reconciler) ReconcileBatch(ctx context.Context, candidates []*domain.Candidate) (*domain.BatchStats, error) {
	stats := &domain.BatchStats{}

	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		result, err := r.Reconcile(ctx, c)
		if err != nil {
			r.logger.Warn("candidate reconciliation failed", "url", c.URL, "error", err)
			stats.Errors++
			continue
		}

		switch result.Action {
		case domain.ActionCreated:
			stats.Created++
		case domain.ActionUpdated:
			stats.Updated++
		case domain.ActionSkipped:
			stats.Skipped++
		}
		stats.ChunksWritten += result.ChunksWritten
	}

	return stats, nil
}
