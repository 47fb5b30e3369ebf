package cache

import (
	"context"
	"sync"

	"github.com/conduit-lang/relmap/internal/relation"
)

// MemoryStore keeps relation graphs in process memory. Graphs are copied on
// the way in and out so callers never share the cached value.
type MemoryStore struct {
	data   sync.Map
	config Config
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultConfig())
}

// NewMemoryStoreWithConfig creates a new in-memory store with custom configuration
func NewMemoryStoreWithConfig(config Config) *MemoryStore {
	return &MemoryStore{config: config}
}

// Get retrieves the relations cached under key
func (m *MemoryStore) Get(ctx context.Context, key string) ([]*relation.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, ok := m.data.Load(m.config.Prefix + key)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	return relation.CloneAll(value.([]*relation.Relation)), nil
}

// Put stores relations under key
func (m *MemoryStore) Put(ctx context.Context, key string, rels []*relation.Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.data.Store(m.config.Prefix+key, relation.CloneAll(rels))
	return nil
}

// InvalidateAll removes every entry
func (m *MemoryStore) InvalidateAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.data.Clear()
	return nil
}

// Len returns the number of cached entries
func (m *MemoryStore) Len() int {
	n := 0
	m.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
