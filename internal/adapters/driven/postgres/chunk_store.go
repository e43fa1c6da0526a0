package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Embeddings are stored as an opaque little-endian float32 blob; the
// pipeline never interprets them.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// SaveBatch stores chunks for an item in a transaction
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (id, item_id, text, position, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				position = EXCLUDED.position,
				embedding = EXCLUDED.embedding
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.ItemID,
				chunk.Text,
				chunk.Position,
				encodeEmbedding(chunk.Embedding),
				chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByItem retrieves all chunks for an item ordered by position
func (s *ChunkStore) GetByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, item_id, text, position, embedding, created_at
		FROM chunks
		WHERE item_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding []byte
		err := rows.Scan(
			&chunk.ID,
			&chunk.ItemID,
			&chunk.Text,
			&chunk.Position,
			&embedding,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunk.Embedding = decodeEmbedding(embedding)
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteByItem removes all chunks for an item
func (s *ChunkStore) DeleteByItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE item_id = $1`, itemID)
	return err
}

// UpdateEmbedding attaches an embedding vector to a stored chunk
func (s *ChunkStore) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		encodeEmbedding(embedding), chunkID,
	)
	if err != nil {
		return err
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

// ListMissingEmbeddings retrieves chunks persisted without a vector,
// oldest first
func (s *ChunkStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	query := `
		SELECT id, item_id, text, position, created_at
		FROM chunks
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.ItemID,
			&chunk.Text,
			&chunk.Position,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(v)*4))
	for _, f := range v {
		_ = binary.Write(buf, binary.LittleEndian, math.Float32bits(f))
	}
	return buf.Bytes()
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
