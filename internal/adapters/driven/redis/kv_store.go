package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// kvPrefix namespaces session settings keys in Redis
const kvPrefix = "session:kv:"

// KeyValueStore implements driven.KeyValueStore using Redis.
// Missing keys read as zero values, matching the semantics the session
// coordinator expects on first run.
type KeyValueStore struct {
	client *redis.Client
}

// NewKeyValueStore creates a new Redis-backed KeyValueStore
func NewKeyValueStore(client *redis.Client) *KeyValueStore {
	return &KeyValueStore{client: client}
}

// GetString reads a string key. A missing key yields "" with no error.
func (s *KeyValueStore) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, kvPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// PutString stores a string key without expiration
func (s *KeyValueStore) PutString(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, kvPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// GetBool reads a boolean key. A missing key yields false with no error.
func (s *KeyValueStore) GetBool(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Get(ctx, kvPrefix+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("value of %s is not a boolean: %w", key, err)
	}
	return parsed, nil
}

// PutBool stores a boolean key without expiration
func (s *KeyValueStore) PutBool(ctx context.Context, key string, value bool) error {
	if err := s.client.Set(ctx, kvPrefix+key, strconv.FormatBool(value), 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
