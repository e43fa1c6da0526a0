package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// DefaultSlugAttempts bounds suffix probing before falling back to a
// fully random slug. The bound guarantees termination under
// pathological title collisions.
const DefaultSlugAttempts = 5

// randomSlugPrefix is the generic token used for fallback slugs
const randomSlugPrefix = "item"

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)
var repeatedHyphen = regexp.MustCompile(`-{2,}`)

// Slugify derives a URL-safe identifier from a title: lowercase,
// hyphen-separated, non-word characters stripped, repeated hyphens
// collapsed. Empty titles produce an empty slug.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonWord.ReplaceAllString(s, "-")
	s = repeatedHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugAllocator derives unique slugs against the item store.
// The uniqueness guarantee under concurrent callers comes from the
// storage constraint, not from the existence probe here: a
// check-then-create sequence is inherently racy across workers, so the
// reconciler re-invokes the allocator when the insert reports
// domain.ErrAlreadyExists.
type SlugAllocator struct {
	items       driven.ItemStore
	maxAttempts int
}

// NewSlugAllocator creates a SlugAllocator probing the given store.
func NewSlugAllocator(items driven.ItemStore, maxAttempts int) *SlugAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultSlugAttempts
	}
	return &SlugAllocator{items: items, maxAttempts: maxAttempts}
}

// Allocate returns a slug for the title that no persisted item
// currently holds: the base slug when free, then numeric suffixes
// (-2, -3, ...) up to the attempt bound, and finally a random fallback.
func (a *SlugAllocator) Allocate(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		return randomSlug(), nil
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt+1)
		}

		taken, err := a.items.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return randomSlug(), nil
}

// randomSlug produces a fallback slug guaranteed unique for practical
// purposes: a generic prefix plus 8 random bytes.
func randomSlug() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return randomSlugPrefix + "-" + hex.EncodeToString(b)
}
