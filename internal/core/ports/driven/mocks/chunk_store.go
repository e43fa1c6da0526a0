package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// MockChunkStore is an in-memory ChunkStore for testing
type MockChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]*domain.Chunk
	byItem map[string][]*domain.Chunk

	// SaveErr, when set, is returned by SaveBatch
	SaveErr error
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		chunks: make(map[string]*domain.Chunk),
		byItem: make(map[string][]*domain.Chunk),
	}
}

func (m *MockChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
		m.byItem[chunk.ItemID] = append(m.byItem[chunk.ItemID], chunk)
	}
	return nil
}

func (m *MockChunkStore) GetByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := append([]*domain.Chunk(nil), m.byItem[itemID]...)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})
	return chunks, nil
}

func (m *MockChunkStore) DeleteByItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range m.byItem[itemID] {
		delete(m.chunks, chunk.ID)
	}
	delete(m.byItem, itemID)
	return nil
}

func (m *MockChunkStore) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[chunkID]
	if !ok {
		return domain.ErrNotFound
	}
	chunk.Embedding = embedding
	return nil
}

func (m *MockChunkStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var missing []*domain.Chunk
	for _, chunk := range m.chunks {
		if len(chunk.Embedding) == 0 {
			missing = append(missing, chunk)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].CreatedAt.Before(missing[j].CreatedAt)
	})
	if limit > 0 && len(missing) > limit {
		missing = missing[:limit]
	}
	return missing, nil
}
