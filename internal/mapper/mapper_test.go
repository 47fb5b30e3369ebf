package mapper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/cache"
	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/relation"
)

// blog registers Post, User and Tag: a post belongs to an author and has
// many tags through post_tag, a user has many posts.
func blog(t *testing.T) *schema.Registry {
	t.Helper()

	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(
		schema.NewDefinition("Post").With(
			schema.BelongsTo("author", "User"),
			schema.BelongsToMany("tags", "Tag"),
		),
		schema.NewDefinition("User").With(
			schema.HasMany("posts", "Post", schema.ForeignKey("author_id")),
		),
		schema.NewDefinition("Tag"),
	))
	return registry
}

// countingSource counts how often relations are listed
type countingSource struct {
	Source
	mu    sync.Mutex
	calls map[string]int
}

func newCountingSource(source Source) *countingSource {
	return &countingSource{Source: source, calls: make(map[string]int)}
}

func (c *countingSource) ListRelationFactories(model string) ([]schema.Factory, error) {
	c.mu.Lock()
	c.calls[model]++
	c.mu.Unlock()
	return c.Source.ListRelationFactories(model)
}

func (c *countingSource) count(model string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[model]
}

// cancellingStore cancels the caller's context right before each write
type cancellingStore struct {
	cache.Store
	cancel context.CancelFunc
}

func (c *cancellingStore) Put(ctx context.Context, key string, rels []*relation.Relation) error {
	c.cancel()
	return c.Store.Put(ctx, key, rels)
}

func TestMapper_Relations(t *testing.T) {
	ctx := context.Background()

	t.Run("builds once and serves from cache", func(t *testing.T) {
		source := newCountingSource(blog(t))
		m := New(source, cache.NewMemoryStore())

		first, err := m.Relations(ctx, "Post")
		require.NoError(t, err)
		listed := source.count("Post")

		second, err := m.Relations(ctx, "Post")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, listed, source.count("Post"))
	})

	t.Run("default policy", func(t *testing.T) {
		m := New(blog(t), cache.NewMemoryStore())
		assert.Equal(t, DepthPolicy(DefaultDepth), m.Policy())
	})

	t.Run("unknown model", func(t *testing.T) {
		m := New(blog(t), cache.NewMemoryStore())

		_, err := m.Relations(ctx, "Ghost")
		require.Error(t, err)
		assert.True(t, IsResolutionError(err))
		assert.ErrorIs(t, err, schema.ErrUnknownModel)
	})

	t.Run("policies are cached apart", func(t *testing.T) {
		registry := blog(t)
		store := cache.NewMemoryStore()

		deep := New(registry, store, WithPolicy(DepthPolicy(2)))
		unique := New(registry, store, WithPolicy(DuplicatePolicy()))

		_, err := deep.Relations(ctx, "Post")
		require.NoError(t, err)
		_, err = unique.Relations(ctx, "Post")
		require.NoError(t, err)

		assert.Equal(t, 2, store.Len())
	})

	t.Run("concurrent misses", func(t *testing.T) {
		m := New(blog(t), cache.NewMemoryStore())

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := m.Relations(ctx, "Post")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("returned graph is a copy", func(t *testing.T) {
		m := New(blog(t), cache.NewMemoryStore())

		rels, err := m.Relations(ctx, "Post")
		require.NoError(t, err)
		require.NotEmpty(t, rels)
		rels[0].Name = "hijacked"
		rels[0].Children = nil

		keys, err := m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)
		assert.NotContains(t, keys, "hijacked")
		assert.Contains(t, keys, "author")

		valid, err := m.IsValidPath(ctx, "Post", "author")
		require.NoError(t, err)
		assert.True(t, valid)

		again, err := m.Relations(ctx, "Post")
		require.NoError(t, err)
		assert.Equal(t, "author", again[0].Name)
		assert.True(t, again[0].Expanded())
	})

	t.Run("shared build survives caller cancellation", func(t *testing.T) {
		caller, cancel := context.WithCancel(ctx)
		defer cancel()

		store := cache.NewMemoryStore()
		m := New(blog(t), &cancellingStore{Store: store, cancel: cancel})

		rels, err := m.Relations(caller, "Post")
		require.NoError(t, err)
		assert.Len(t, rels, 2)
		assert.Error(t, caller.Err())

		_, err = store.Get(ctx, cache.Key(m.Policy().String(), "Post"))
		assert.NoError(t, err, "graph was stored")
	})

	t.Run("cache errors surface", func(t *testing.T) {
		m := New(blog(t), cache.NewMemoryStore())

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Relations(cancelled, "Post")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMapper_RebuildAll(t *testing.T) {
	ctx := context.Background()

	t.Run("picks up changed definitions", func(t *testing.T) {
		registry := blog(t)
		m := New(registry, cache.NewMemoryStore(), WithPolicy(DepthPolicy(1)))

		keys, err := m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "tags"}, keys)

		require.NoError(t, registry.Reset(
			schema.NewDefinition("Post").With(
				schema.BelongsTo("author", "User"),
				schema.BelongsTo("editor", "User"),
			),
			schema.NewDefinition("User"),
		))

		keys, err = m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "tags"}, keys, "stale until rebuilt")

		require.NoError(t, m.RebuildAll(ctx, []string{"Post"}))

		keys, err = m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "editor"}, keys)
	})

	t.Run("idempotent", func(t *testing.T) {
		store := cache.NewMemoryStore()
		m := New(blog(t), store)
		models := []string{"Post", "User", "Tag"}

		require.NoError(t, m.RebuildAll(ctx, models))
		first, err := m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)

		require.NoError(t, m.RebuildAll(ctx, models))
		second, err := m.MapKeysByName(ctx, "Post")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 3, store.Len())
	})

	t.Run("empty set only invalidates", func(t *testing.T) {
		store := cache.NewMemoryStore()
		m := New(blog(t), store)

		_, err := m.Relations(ctx, "Post")
		require.NoError(t, err)

		require.NoError(t, m.RebuildAll(ctx, nil))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("failures are joined and others still rebuilt", func(t *testing.T) {
		store := cache.NewMemoryStore()
		m := New(blog(t), store)

		err := m.RebuildAll(ctx, []string{"Ghost", "Post", "Phantom"})
		require.Error(t, err)

		var resErr *ResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, "Ghost", resErr.Model)
		assert.Contains(t, err.Error(), "Phantom")
		assert.Equal(t, 1, store.Len())
	})
}

func TestMapper_Listen(t *testing.T) {
	ctx := context.Background()
	registry := blog(t)
	store := cache.NewMemoryStore()
	m := New(registry, store)

	bus := events.NewBus()
	m.Listen(bus, registry.Names)

	require.NoError(t, bus.Publish(ctx, events.NewModelMapUpdated("test")))
	assert.Equal(t, 3, store.Len())

	require.NoError(t, bus.Publish(ctx, events.NewModelMapUpdated("test", "Tag")))
	assert.Equal(t, 1, store.Len())

	err := bus.Publish(ctx, events.NewModelMapUpdated("test", "Ghost"))
	assert.ErrorIs(t, err, schema.ErrUnknownModel)
}
