package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/tidewater-labs/harvest-core/internal/core/domain"
)

// MockItemStore is an in-memory ItemStore for testing.
// It enforces url and slug uniqueness the way the real storage layer
// does, so allocator and reconciler race-recovery paths are testable.
type MockItemStore struct {
	mu     sync.RWMutex
	items  map[string]*domain.Item
	byURL  map[string]*domain.Item
	bySlug map[string]*domain.Item
	byHash map[string]*domain.Item

	// CreateErr, when set, is returned by Create once and then cleared.
	// Used to simulate transient constraint violations.
	CreateErr error
}

// NewMockItemStore creates a new MockItemStore
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		items:  make(map[string]*domain.Item),
		byURL:  make(map[string]*domain.Item),
		bySlug: make(map[string]*domain.Item),
		byHash: make(map[string]*domain.Item),
	}
}

// cloneItem copies in and out of the store so callers never alias live
// store state, matching the real adapter's fresh-row-per-query
// semantics.
func cloneItem(item *domain.Item) *domain.Item {
	clone := *item
	return &clone
}

func (m *MockItemStore) Create(ctx context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		err := m.CreateErr
		m.CreateErr = nil
		return err
	}

	if _, ok := m.byURL[item.URL]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := m.bySlug[item.Slug]; ok {
		return domain.ErrAlreadyExists
	}

	m.index(item)
	return nil
}

func (m *MockItemStore) Update(ctx context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.items[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byURL, old.URL)
	delete(m.bySlug, old.Slug)
	if old.ContentHash != "" {
		delete(m.byHash, old.ContentHash)
	}

	m.index(item)
	return nil
}

func (m *MockItemStore) index(item *domain.Item) {
	stored := cloneItem(item)
	m.items[stored.ID] = stored
	m.byURL[stored.URL] = stored
	m.bySlug[stored.Slug] = stored
	if stored.ContentHash != "" {
		m.byHash[stored.ContentHash] = stored
	}
}

func (m *MockItemStore) Get(ctx context.Context, id string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *MockItemStore) GetByURL(ctx context.Context, url string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.byURL[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *MockItemStore) GetByContentHash(ctx context.Context, digest string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.byHash[digest]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *MockItemStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bySlug[slug]
	return ok, nil
}

func (m *MockItemStore) URLExists(ctx context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *MockItemStore) List(ctx context.Context, limit, offset int) ([]*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.Item, 0, len(m.items))
	for _, item := range m.items {
		all = append(all, cloneItem(item))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*domain.Item{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockItemStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MockItemStore) Ping(ctx context.Context) error {
	return nil
}

// Reset clears all stored items
func (m *MockItemStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*domain.Item)
	m.byURL = make(map[string]*domain.Item)
	m.bySlug = make(map[string]*domain.Item)
	m.byHash = make(map[string]*domain.Item)
}
