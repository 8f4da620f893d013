package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ObjectStore = (*ObjectStore)(nil)

// objPrefix namespaces archived session objects in Redis
const objPrefix = "session:obj:"

// ObjectStore implements driven.ObjectStore using Redis.
// Objects are stored as JSON blobs under a namespaced key.
type ObjectStore struct {
	client *redis.Client
}

// NewObjectStore creates a new Redis-backed ObjectStore
func NewObjectStore(client *redis.Client) *ObjectStore {
	return &ObjectStore{client: client}
}

// Save serializes value to JSON and stores it under name
func (s *ObjectStore) Save(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := s.client.Set(ctx, objPrefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// Load reads the JSON blob stored under name into out.
// A missing name leaves out untouched and returns no error.
func (s *ObjectStore) Load(ctx context.Context, name string, out any) error {
	data, err := s.client.Get(ctx, objPrefix+name).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
