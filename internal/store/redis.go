package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cabinet keys.
const DefaultRedisPrefix = "cabinet"

// RedisStore keeps each collection as a JSON array string under
// <prefix>:<name>.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. The connection is established lazily
// by the client on first use.
func NewRedisStore(opts *redis.Options, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: redis.NewClient(opts), prefix: prefix}
}

// Key returns the Redis key holding the named collection.
func (s *RedisStore) Key(name string) string {
	return s.prefix + ":" + name
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Load reads and parses the collection key.
func (s *RedisStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	data, err := s.rdb.Get(ctx, s.Key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %s: %w", s.Key(name), ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s from redis: %w", s.Key(name), err)
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Key(name), err)
	}
	return records, nil
}

// Save overwrites the collection key with the encoded array.
func (s *RedisStore) Save(ctx context.Context, name string, records []json.RawMessage) error {
	data, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := s.rdb.Set(ctx, s.Key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s to redis: %w", s.Key(name), err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
