// Package cache stores computed relation graphs keyed by model. Entries
// never expire on their own; they live until InvalidateAll.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/relmap/internal/relation"
)

// Store defines the interface for all relation cache backends.
// Every individual Get and Put is atomic.
type Store interface {
	// Get retrieves the relations cached under key
	Get(ctx context.Context, key string) ([]*relation.Relation, error)

	// Put stores relations under key, overwriting any previous entry
	Put(ctx context.Context, key string, rels []*relation.Relation) error

	// InvalidateAll removes every entry of the store
	InvalidateAll(ctx context.Context) error
}

// Config holds common configuration for cache backends
type Config struct {
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		Prefix: "relmap:",
	}
}

// Key derives the cache key of a model's relation graph built under policy
func Key(policy, model string) string {
	return fmt.Sprintf("relations:%s:%s", policy, model)
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}
