// Package mapper discovers the relations of host models, expands them into
// bounded relation graphs and answers path queries against the cached graphs.
package mapper

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/relmap/internal/cache"
	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/relation"
)

// Mapper serves relation graphs from a cache, building them on a miss.
// One Mapper runs under exactly one pruning policy.
type Mapper struct {
	builder *Builder
	store   cache.Store
	policy  Policy
	logger  *zap.Logger
	group   singleflight.Group
}

// Option configures a Mapper
type Option func(*Mapper)

// WithPolicy sets the pruning policy
func WithPolicy(policy Policy) Option {
	return func(m *Mapper) {
		m.policy = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a mapper discovering relations from source and caching the
// built graphs in store
func New(source Source, store cache.Store, opts ...Option) *Mapper {
	m := &Mapper{
		store:  store,
		policy: DepthPolicy(DefaultDepth),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.builder = NewBuilder(NewIntrospector(source, m.logger), m.logger)
	return m
}

// Policy returns the pruning policy of the mapper
func (m *Mapper) Policy() Policy {
	return m.policy
}

// Relations returns the relation graph of model, building and caching it on
// a miss. Concurrent misses for the same model share one build.
func (m *Mapper) Relations(ctx context.Context, model string) ([]*relation.Relation, error) {
	key := cache.Key(m.policy.String(), model)

	rels, err := m.store.Get(ctx, key)
	if err == nil {
		m.logger.Debug("relation cache hit", zap.String("key", key))
		return rels, nil
	}
	if !cache.IsCacheMiss(err) {
		return nil, fmt.Errorf("failed to read relation cache: %w", err)
	}

	m.logger.Debug("relation cache miss", zap.String("key", key))
	// the shared build outlives any single caller's cancellation
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.build(buildCtx, key, model)
	})
	if err != nil {
		return nil, err
	}
	return relation.CloneAll(v.([]*relation.Relation)), nil
}

func (m *Mapper) build(ctx context.Context, key, model string) ([]*relation.Relation, error) {
	rels, err := m.builder.Build(model, m.policy)
	if err != nil {
		return nil, err
	}

	if err := m.store.Put(ctx, key, rels); err != nil {
		return nil, fmt.Errorf("failed to store relation graph: %w", err)
	}

	count := 0
	relation.Walk(rels, func(*relation.Relation, int) bool {
		count++
		return true
	})
	m.logger.Debug("built relation graph",
		zap.String("model", model),
		zap.Stringer("policy", m.policy),
		zap.Int("relations", count))

	return rels, nil
}

// Invalidate drops every cached graph
func (m *Mapper) Invalidate(ctx context.Context) error {
	if err := m.store.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("failed to invalidate relation cache: %w", err)
	}
	return nil
}

// RebuildAll invalidates the cache and eagerly rebuilds the graphs of the
// given models. Every model is attempted; failures are joined.
func (m *Mapper) RebuildAll(ctx context.Context, models []string) error {
	if err := m.Invalidate(ctx); err != nil {
		return err
	}

	var errs []error
	for _, model := range models {
		if _, err := m.Relations(ctx, model); err != nil {
			errs = append(errs, err)
		}
	}

	m.logger.Info("rebuilt relation cache",
		zap.Int("models", len(models)),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Listen rebuilds the cache whenever the model map changes. names supplies
// the model set when an event does not name one.
func (m *Mapper) Listen(bus *events.Bus, names func() []string) {
	bus.Subscribe(func(ctx context.Context, event events.ModelMapUpdated) error {
		models := event.Models
		if len(models) == 0 {
			models = names()
		}

		m.logger.Info("model map updated",
			zap.Stringer("event", event.ID),
			zap.String("source", event.Source),
			zap.Int("models", len(models)))
		return m.RebuildAll(ctx, models)
	})
}
