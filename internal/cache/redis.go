package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/conduit-lang/relmap/internal/relation"
)

// RedisStore shares relation graphs between processes through Redis.
// Graphs are msgpack encoded and stored without expiration.
type RedisStore struct {
	client *redis.Client
	config Config
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Config holds common cache configuration
	Config Config
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Config: DefaultConfig(),
	}
}

// NewRedisStore creates a new Redis store and checks the connection
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewRedisStoreWithClient(client, config.Config), nil
}

// NewRedisStoreWithClient creates a new Redis store with an existing client
func NewRedisStoreWithClient(client *redis.Client, config Config) *RedisStore {
	return &RedisStore{
		client: client,
		config: config,
	}
}

// Get retrieves the relations cached under key
func (r *RedisStore) Get(ctx context.Context, key string) ([]*relation.Relation, error) {
	data, err := r.client.Get(ctx, r.config.Prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}

	var rels []*relation.Relation
	if err := msgpack.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to decode cached relations %s: %w", key, err)
	}
	// msgpack picks the smallest integer width on decode
	relation.Canonicalize(rels)
	return rels, nil
}

// Put stores relations under key without expiration
func (r *RedisStore) Put(ctx context.Context, key string, rels []*relation.Relation) error {
	data, err := msgpack.Marshal(rels)
	if err != nil {
		return fmt.Errorf("failed to encode relations %s: %w", key, err)
	}
	return r.client.Set(ctx, r.config.Prefix+key, data, 0).Err()
}

// InvalidateAll removes every key under the store prefix
func (r *RedisStore) InvalidateAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
