package driven

import (
	"context"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// ItemStore handles persisted item storage (PostgreSQL).
// Uniqueness of url and slug is enforced by the storage layer, not by
// application-level existence checks; Create surfaces violations as
// domain.ErrAlreadyExists so callers can recover.
type ItemStore interface {
	// Create inserts a new item. Returns domain.ErrAlreadyExists if the
	// url or slug collides with an existing row.
	Create(ctx context.Context, item *domain.Item) error

	// Update overwrites the mutable fields of an existing item
	Update(ctx context.Context, item *domain.Item) error

	// Get retrieves an item by ID
	Get(ctx context.Context, id string) (*domain.Item, error)

	// GetByURL retrieves an item by its unique URL
	GetByURL(ctx context.Context, url string) (*domain.Item, error)

	// GetByContentHash retrieves an item whose content hash matches the digest
	GetByContentHash(ctx context.Context, digest string) (*domain.Item, error)

	// SlugExists reports whether a slug is already taken
	SlugExists(ctx context.Context, slug string) (bool, error)

	// URLExists reports whether a URL is already ingested
	URLExists(ctx context.Context, url string) (bool, error)

	// List retrieves items with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Item, error)

	// Count returns total item count
	Count(ctx context.Context) (int, error)

	// Ping checks storage health
	Ping(ctx context.Context) error
}

// ChunkStore handles content chunk persistence (PostgreSQL)
type ChunkStore interface {
	// SaveBatch stores chunks for an item in a transaction
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByItem retrieves all chunks for an item ordered by position
	GetByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error)

	// DeleteByItem removes all chunks for an item (used before re-chunking)
	DeleteByItem(ctx context.Context, itemID string) error

	// UpdateEmbedding attaches an embedding vector to a stored chunk
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// ListMissingEmbeddings retrieves chunks persisted without a vector,
	// oldest first, for enrichment backfill
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error)
}
