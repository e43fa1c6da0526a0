package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// DefaultMinHashLength is the minimum normalized-content length that
// carries enough signal for dedup. Shorter content is treated as unique.
const DefaultMinHashLength = 100

// Hash produces a stable SHA-256 hex digest over normalized text.
// Trivial re-fetches of the same page hash identically even when the
// surrounding markup shifted.
func Hash(cleanText string) string {
	sum := sha256.Sum256([]byte(cleanText))
	return hex.EncodeToString(sum[:])
}

// DedupeResult is the outcome of a duplicate check
type DedupeResult struct {
	IsDuplicate bool
	// MatchedItem is the existing item with the same content hash
	MatchedItem *domain.Item
}

// Deduplicator checks content digests against previously stored ones.
// Only exact-hash matches are authoritative; the similarity function
// exists to flag near-duplicates for manual review, never to reject.
type Deduplicator struct {
	items         driven.ItemStore
	cache         driven.DedupeCache
	minHashLength int
	logger        *slog.Logger
}

// DeduplicatorConfig holds dependencies for the Deduplicator.
type DeduplicatorConfig struct {
	Items driven.ItemStore
	// Cache is optional and advisory; the item store stays authoritative
	Cache         driven.DedupeCache
	MinHashLength int
	Logger        *slog.Logger
}

// NewDeduplicator creates a new Deduplicator.
func NewDeduplicator(cfg DeduplicatorConfig) *Deduplicator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minLen := cfg.MinHashLength
	if minLen <= 0 {
		minLen = DefaultMinHashLength
	}
	return &Deduplicator{
		items:         cfg.Items,
		cache:         cfg.Cache,
		minHashLength: minLen,
		logger:        logger,
	}
}

// HashContent returns the digest for normalized content, or "" when the
// content is too short to hash for dedup purposes.
func (d *Deduplicator) HashContent(cleanText string) string {
	if len(cleanText) < d.minHashLength {
		return ""
	}
	return Hash(cleanText)
}

// Check looks up a digest against stored content hashes. An empty
// digest (content below the hashing minimum) is always unique.
func (d *Deduplicator) Check(ctx context.Context, digest string) (*DedupeResult, error) {
	if digest == "" {
		return &DedupeResult{}, nil
	}

	// The store is authoritative in both directions. The cache expires,
	// so a miss proves nothing; it only tells us whether a confirmed
	// duplicate needs re-warming.
	cacheMiss := false
	if d.cache != nil {
		seen, err := d.cache.Contains(ctx, digest)
		if err != nil {
			d.logger.Warn("dedupe cache lookup failed", "error", err)
		} else if !seen {
			cacheMiss = true
		}
	}

	item, err := d.items.GetByContentHash(ctx, digest)
	if errors.Is(err, domain.ErrNotFound) {
		return &DedupeResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup content hash: %w", err)
	}

	if cacheMiss {
		d.Record(ctx, digest)
	}
	return &DedupeResult{IsDuplicate: true, MatchedItem: item}, nil
}

// Record registers a digest in the cache after a successful import.
// Best-effort: cache failures are logged, never propagated.
func (d *Deduplicator) Record(ctx context.Context, digest string) {
	if d.cache == nil || digest == "" {
		return
	}
	if err := d.cache.Add(ctx, digest); err != nil {
		d.logger.Warn("dedupe cache add failed", "error", err)
	}
}

// Similarity returns the token-overlap ratio between two texts in
// [0,1]. Used to surface near-duplicates for review; thresholds are
// domain-tunable and false positives are costly, so callers must never
// auto-reject on similarity alone.
func Similarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range tokensA {
		if tokensB[tok] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}
