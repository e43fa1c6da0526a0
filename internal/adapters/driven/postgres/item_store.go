package postgres

import (
	"context"
	"database/sql"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore implements driven.ItemStore using PostgreSQL.
// The url and slug uniqueness constraints live here, in the storage
// layer; Create maps violations to domain.ErrAlreadyExists.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, url, slug, title, body, category, platform, content_type, language, content_hash, is_duplicate_of, created_at, updated_at`

// Create inserts a new item. Unique violations (url or slug) surface
// as domain.ErrAlreadyExists.
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.URL,
		item.Slug,
		item.Title,
		item.Body,
		item.Category,
		item.Platform,
		item.ContentType,
		item.Language,
		NullString(item.ContentHash),
		NullString(item.IsDuplicateOf),
		item.CreatedAt,
		item.UpdatedAt,
	)
	return mapConstraintErr(err)
}

// Update overwrites the mutable fields of an existing item
func (s *ItemStore) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET title = $1, body = $2, category = $3, platform = $4,
		    content_type = $5, language = $6, content_hash = $7,
		    is_duplicate_of = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := s.db.ExecContext(ctx, query,
		item.Title,
		item.Body,
		item.Category,
		item.Platform,
		item.ContentType,
		item.Language,
		NullString(item.ContentHash),
		NullString(item.IsDuplicateOf),
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return mapConstraintErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves an item by ID
func (s *ItemStore) Get(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	return s.scanItem(s.db.QueryRowContext(ctx, query, id))
}

// GetByURL retrieves an item by its unique URL
func (s *ItemStore) GetByURL(ctx context.Context, url string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE url = $1`
	return s.scanItem(s.db.QueryRowContext(ctx, query, url))
}

// GetByContentHash retrieves an item whose content hash matches.
// When several share the hash (flagged duplicates), the oldest wins.
func (s *ItemStore) GetByContentHash(ctx context.Context, digest string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE content_hash = $1 ORDER BY created_at ASC LIMIT 1`
	return s.scanItem(s.db.QueryRowContext(ctx, query, digest))
}

func (s *ItemStore) scanItem(row *sql.Row) (*domain.Item, error) {
	var item domain.Item
	var contentHash, isDuplicateOf sql.NullString

	err := row.Scan(
		&item.ID,
		&item.URL,
		&item.Slug,
		&item.Title,
		&item.Body,
		&item.Category,
		&item.Platform,
		&item.ContentType,
		&item.Language,
		&contentHash,
		&isDuplicateOf,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item.ContentHash = contentHash.String
	item.IsDuplicateOf = isDuplicateOf.String
	return &item, nil
}

// SlugExists reports whether a slug is already taken
func (s *ItemStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE slug = $1)`, slug,
	).Scan(&exists)
	return exists, err
}

// URLExists reports whether a URL is already ingested
func (s *ItemStore) URLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE url = $1)`, url,
	).Scan(&exists)
	return exists, err
}

// List retrieves items with pagination, newest first
func (s *ItemStore) List(ctx context.Context, limit, offset int) ([]*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		var contentHash, isDuplicateOf sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.URL,
			&item.Slug,
			&item.Title,
			&item.Body,
			&item.Category,
			&item.Platform,
			&item.ContentType,
			&item.Language,
			&contentHash,
			&isDuplicateOf,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		item.ContentHash = contentHash.String
		item.IsDuplicateOf = isDuplicateOf.String
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns total item count
func (s *ItemStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

// Ping checks database connectivity
func (s *ItemStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
