package mocks

import (
	"context"
	"sync"
)

// MockEmbeddingService is an in-memory EmbeddingService for testing
type MockEmbeddingService struct {
	mu sync.Mutex

	// EmbedFn overrides the default fixed-vector behaviour
	EmbedFn func(texts []string) ([][]float32, error)

	// Calls records the texts passed to Embed
	Calls [][]string

	// HealthErr, when set, is returned by HealthCheck
	HealthErr error

	closed bool
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, texts)
	m.mu.Unlock()

	if m.EmbedFn != nil {
		return m.EmbedFn(texts)
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

func (m *MockEmbeddingService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockEmbeddingService) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
