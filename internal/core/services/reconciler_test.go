package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven/mocks"
	"github.com/tidewater-labs/harvest-core/internal/runtime"
)

type reconcilerFixture struct {
	reconciler *Reconciler
	items      *mocks.MockItemStore
	chunks     *mocks.MockChunkStore
	embedding  *mocks.MockEmbeddingService
	services   *runtime.Services
}

func newReconcilerFixture(t *testing.T, policy domain.DuplicatePolicy) *reconcilerFixture {
	t.Helper()

	items := mocks.NewMockItemStore()
	chunks := mocks.NewMockChunkStore()
	embedding := mocks.NewMockEmbeddingService()
	services := runtime.NewServices()
	services.SetEmbeddingService(embedding)

	reconciler := NewReconciler(ReconcilerConfig{
		Items:           items,
		Chunks:          chunks,
		Dedupe:          NewDeduplicator(DeduplicatorConfig{Items: items}),
		Slugs:           NewSlugAllocator(items, 0),
		Services:        services,
		DuplicatePolicy: policy,
	})

	return &reconcilerFixture{
		reconciler: reconciler,
		items:      items,
		chunks:     chunks,
		embedding:  embedding,
		services:   services,
	}
}

func goodCandidate(url, title string) *domain.Candidate {
	return &domain.Candidate{
		URL:         url,
		Title:       title,
		Body:        strings.Repeat("Refunds are normally processed within five business days of the cancellation. ", 8),
		Platform:    "airbnb",
		Category:    "Payments",
		ContentType: domain.ContentTypeOfficial,
	}
}

func TestReconciler_CreatesNewItem(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %s", result.Action)
	}
	if result.Item.Slug != "how-refunds-work" {
		t.Errorf("expected derived slug, got %q", result.Item.Slug)
	}
	if result.Item.ContentHash == "" {
		t.Error("expected content hash to be set")
	}
	if result.Score < DefaultQualityThreshold {
		t.Errorf("expected passing score, got %d", result.Score)
	}
	if result.ChunksWritten == 0 {
		t.Error("expected chunks to be written")
	}
}

func TestReconciler_SameURLUpdatesInPlace(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	first, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := goodCandidate("https://example.com/a", "How Refunds Work, Revised")
	updated.Body = strings.Repeat("The refund window was extended to fourteen days starting this season. ", 8)

	second, err := f.reconciler.Reconcile(ctx, updated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Action != domain.ActionUpdated {
		t.Fatalf("expected updated, got %s", second.Action)
	}
	if second.Item.ID != first.Item.ID {
		t.Error("expected the same item row to be updated")
	}
	if second.Item.Slug != first.Item.Slug {
		t.Errorf("expected slug to stay %q, got %q", first.Item.Slug, second.Item.Slug)
	}
	if second.Item.Title != "How Refunds Work, Revised" {
		t.Errorf("expected refreshed title, got %q", second.Item.Title)
	}
	if second.Item.ContentHash == first.Item.ContentHash {
		t.Error("expected content hash to change with the body")
	}

	count, _ := f.items.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 item after re-ingestion, got %d", count)
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	c := goodCandidate("https://example.com/a", "How Refunds Work")
	if _, err := f.reconciler.Reconcile(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unchanged content re-ingested: still one row, hash untouched
	result, err := f.reconciler.Reconcile(ctx, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionUpdated {
		t.Fatalf("expected updated, got %s", result.Action)
	}
	if result.ChunksWritten != 0 {
		t.Errorf("expected no rechunk for unchanged content, got %d", result.ChunksWritten)
	}

	count, _ := f.items.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 item, got %d", count)
	}
}

func TestReconciler_DuplicateContentSkipped(t *testing.T) {
	f := newReconcilerFixture(t, domain.DuplicatePolicySkip)
	ctx := context.Background()

	original := goodCandidate("https://example.com/a", "How Refunds Work")
	if _, err := f.reconciler.Reconcile(ctx, original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	copy := goodCandidate("https://mirror.example.com/a", "Refund Article Mirror")
	copy.Body = original.Body

	result, err := f.reconciler.Reconcile(ctx, copy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionSkipped {
		t.Fatalf("expected skipped, got %s", result.Action)
	}
	if result.Reason != domain.SkipReasonDuplicate {
		t.Errorf("expected duplicate reason, got %s", result.Reason)
	}
	if result.Item == nil || result.Item.URL != original.URL {
		t.Error("expected the matched original item in the result")
	}

	count, _ := f.items.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 item under skip policy, got %d", count)
	}
}

func TestReconciler_DuplicateContentFlagged(t *testing.T) {
	f := newReconcilerFixture(t, domain.DuplicatePolicyFlag)
	ctx := context.Background()

	original := goodCandidate("https://example.com/a", "How Refunds Work")
	first, err := f.reconciler.Reconcile(ctx, original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	copy := goodCandidate("https://mirror.example.com/a", "Refund Article Mirror")
	copy.Body = original.Body

	result, err := f.reconciler.Reconcile(ctx, copy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionCreated {
		t.Fatalf("expected created under flag policy, got %s", result.Action)
	}
	if result.Item.IsDuplicateOf != first.Item.ID {
		t.Errorf("expected duplicate back-reference to %s, got %q", first.Item.ID, result.Item.IsDuplicateOf)
	}
}

func TestReconciler_LowScoreSkipped(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	// Body long enough to pass validation, everything else missing
	c := &domain.Candidate{
		URL:  "https://example.com/thin",
		Body: strings.Repeat("x", domain.MinBodyLength),
	}

	result, err := f.reconciler.Reconcile(ctx, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionSkipped {
		t.Fatalf("expected skipped, got %s", result.Action)
	}
	if result.Reason != domain.SkipReasonLowScore {
		t.Errorf("expected low_score reason, got %s", result.Reason)
	}

	count, _ := f.items.Count(ctx)
	if count != 0 {
		t.Errorf("expected no items, got %d", count)
	}
}

func TestReconciler_InvalidCandidate(t *testing.T) {
	f := newReconcilerFixture(t, "")

	result, err := f.reconciler.Reconcile(context.Background(), &domain.Candidate{Body: "too short"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if result.Action != domain.ActionSkipped || result.Reason != domain.SkipReasonInvalid {
		t.Errorf("expected skipped/invalid, got %s/%s", result.Action, result.Reason)
	}
}

func TestReconciler_CategoryDerivedFromURL(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	c := goodCandidate("https://help.example.com/help/categories/host-payouts/article-9", "Payout Timing")
	c.Category = ""

	result, err := f.reconciler.Reconcile(ctx, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Item.Category != "Host Payouts" {
		t.Errorf("expected category from URL, got %q", result.Item.Category)
	}
}

func TestReconciler_ChunksCarryEmbeddings(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := f.chunks.GetByItem(ctx, result.Item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != result.ChunksWritten {
		t.Fatalf("expected %d stored chunks, got %d", result.ChunksWritten, len(stored))
	}
	for i, chunk := range stored {
		if chunk.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, chunk.Position)
		}
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %d: expected embedding", i)
		}
	}
}

func TestReconciler_EmbeddingFailureIsBestEffort(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.embedding.EmbedFn = func(texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("expected embedding failure to not fail the import: %v", err)
	}
	if result.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %s", result.Action)
	}
	if result.ChunksWritten == 0 {
		t.Error("expected chunks written without embeddings")
	}

	stored, _ := f.chunks.GetByItem(ctx, result.Item.ID)
	for i, chunk := range stored {
		if len(chunk.Embedding) != 0 {
			t.Errorf("chunk %d: expected no embedding after failure", i)
		}
	}
}

func TestReconciler_NoEmbeddingServiceConfigured(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.services.SetEmbeddingService(nil)
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunksWritten == 0 {
		t.Error("expected chunks written without an embedding service")
	}
}

func TestReconciler_BackfillEmbeddings(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.embedding.EmbedFn = func(texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunksWritten == 0 {
		t.Fatal("expected chunks written without embeddings")
	}

	// Service recovers; housekeeping repairs the gap
	f.embedding.EmbedFn = nil

	repaired, err := f.reconciler.BackfillEmbeddings(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repaired != result.ChunksWritten {
		t.Errorf("expected %d chunks repaired, got %d", result.ChunksWritten, repaired)
	}

	stored, _ := f.chunks.GetByItem(ctx, result.Item.ID)
	for i, chunk := range stored {
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %d: expected embedding after backfill", i)
		}
	}

	repaired, err = f.reconciler.BackfillEmbeddings(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repaired != 0 {
		t.Errorf("expected nothing left to repair, got %d", repaired)
	}
}

func TestReconciler_BackfillWithoutService(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.services.SetEmbeddingService(nil)

	repaired, err := f.reconciler.BackfillEmbeddings(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repaired != 0 {
		t.Errorf("expected no-op without a service, got %d", repaired)
	}
}

func TestReconciler_ChunkFailureDoesNotRollBackItem(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.chunks.SaveErr = errors.New("chunk table unavailable")
	ctx := context.Background()

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("expected chunk failure to not fail the import: %v", err)
	}
	if result.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %s", result.Action)
	}
	if result.ChunksWritten != 0 {
		t.Errorf("expected 0 chunks written, got %d", result.ChunksWritten)
	}

	count, _ := f.items.Count(ctx)
	if count != 1 {
		t.Errorf("expected item to stand, got %d items", count)
	}
}

func TestReconciler_SlugCollisionRecovered(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	// Two different articles sharing a title get distinct slugs
	first, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "Cancellation Policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := goodCandidate("https://example.com/b", "Cancellation Policy")
	other.Body = strings.Repeat("Hosts may set one of several cancellation tiers for their listings here. ", 8)

	second, err := f.reconciler.Reconcile(ctx, other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %s", second.Action)
	}
	if second.Item.Slug == first.Item.Slug {
		t.Errorf("expected distinct slugs, both got %q", first.Item.Slug)
	}
}

func TestReconciler_ConstraintViolationRetried(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	// A transient uniqueness violation on the first insert attempt must
	// be retried with a freshly derived slug, not surfaced to the caller.
	f.items.CreateErr = domain.ErrAlreadyExists

	result, err := f.reconciler.Reconcile(ctx, goodCandidate("https://example.com/a", "How Refunds Work"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != domain.ActionCreated {
		t.Fatalf("expected created after retry, got %s", result.Action)
	}

	count, _ := f.items.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 item, got %d", count)
	}
}

func TestReconcileBatch_PartialFailureTolerance(t *testing.T) {
	f := newReconcilerFixture(t, "")
	ctx := context.Background()

	candidates := []*domain.Candidate{
		goodCandidate("https://example.com/a", "Article A"),
		{URL: "https://example.com/bad", Body: "nope"},
		goodCandidate("https://example.com/c", "Article C"),
	}
	// Distinct bodies so dedupe does not collapse them
	candidates[2].Body = strings.Repeat("Guests can message their host directly from the reservation page. ", 8)

	stats, err := f.reconciler.ReconcileBatch(ctx, candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Created != 2 {
		t.Errorf("expected 2 created, got %d", stats.Created)
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
	if stats.Skipped != 0 {
		t.Errorf("expected failed candidate to count only as an error, got %d skipped", stats.Skipped)
	}
	if !stats.Progress() {
		t.Error("expected batch progress")
	}
}

func TestReconcileBatch_Cancellation(t *testing.T) {
	f := newReconcilerFixture(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := f.reconciler.ReconcileBatch(ctx, []*domain.Candidate{
		goodCandidate("https://example.com/a", "Article A"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if stats.Created != 0 {
		t.Errorf("expected no work after cancellation, got %d created", stats.Created)
	}
}
