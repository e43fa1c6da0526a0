package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// MockFrontierStore is an in-memory FrontierStore for testing.
// Claim ordering matches the real adapter: priority descending,
// first_seen ascending.
type MockFrontierStore struct {
	mu    sync.Mutex
	byURL map[string]*domain.QueueItem
	byID  map[string]*domain.QueueItem
}

// NewMockFrontierStore creates a new MockFrontierStore
func NewMockFrontierStore() *MockFrontierStore {
	return &MockFrontierStore{
		byURL: make(map[string]*domain.QueueItem),
		byID:  make(map[string]*domain.QueueItem),
	}
}

func (m *MockFrontierStore) Insert(ctx context.Context, item *domain.QueueItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURL[item.URL]; ok {
		return false, nil
	}
	m.byURL[item.URL] = item
	m.byID[item.ID] = item
	return true, nil
}

func (m *MockFrontierStore) Claim(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eligible []*domain.QueueItem
	for _, item := range m.byID {
		if item.Selectable() {
			eligible = append(eligible, item)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].FirstSeen.Before(eligible[j].FirstSeen)
	})

	if limit < len(eligible) {
		eligible = eligible[:limit]
	}
	for _, item := range eligible {
		item.MarkProcessing()
	}
	return eligible, nil
}

func (m *MockFrontierStore) MarkCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.MarkCompleted()
	return nil
}

func (m *MockFrontierStore) MarkFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.MarkFailed(reason)
	return nil
}

func (m *MockFrontierStore) GetByURL(ctx context.Context, url string) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byURL[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (m *MockFrontierStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	count := 0
	for _, item := range m.byID {
		if item.Status == domain.QueueStatusProcessing && item.LastChecked.Before(cutoff) {
			item.Reclaim()
			count++
		}
	}
	return count, nil
}

func (m *MockFrontierStore) Purge(ctx context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-retention)
	count := 0
	for url, item := range m.byURL {
		purge := item.Status == domain.QueueStatusCompleted ||
			(item.Status == domain.QueueStatusFailed && item.LastChecked.Before(cutoff))
		if purge {
			delete(m.byURL, url)
			delete(m.byID, item.ID)
			count++
		}
	}
	return count, nil
}

func (m *MockFrontierStore) Stats(ctx context.Context) (*domain.FrontierStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.FrontierStats{}
	var oldest time.Time
	for _, item := range m.byID {
		switch item.Status {
		case domain.QueueStatusPending:
			stats.PendingCount++
			if oldest.IsZero() || item.FirstSeen.Before(oldest) {
				oldest = item.FirstSeen
			}
		case domain.QueueStatusProcessing:
			stats.ProcessingCount++
		case domain.QueueStatusCompleted:
			stats.CompletedCount++
		case domain.QueueStatusFailed:
			stats.FailedCount++
		}
	}
	if !oldest.IsZero() {
		stats.OldestPendingAge = int64(time.Since(oldest).Seconds())
	}
	return stats, nil
}

func (m *MockFrontierStore) Ping(ctx context.Context) error {
	return nil
}
