package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// KeyValueStore implements driven.KeyValueStore using PostgreSQL.
// Missing keys read as zero values, matching the semantics the session
// coordinator expects on first run.
type KeyValueStore struct {
	db *DB
}

// NewKeyValueStore creates a new KeyValueStore
func NewKeyValueStore(db *DB) *KeyValueStore {
	return &KeyValueStore{db: db}
}

// GetString reads a string key. A missing key yields "" with no error.
func (s *KeyValueStore) GetString(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// PutString stores a string key
func (s *KeyValueStore) PutString(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// GetBool reads a boolean key. A missing key yields false with no error.
func (s *KeyValueStore) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := s.GetString(ctx, key)
	if err != nil {
		return false, err
	}
	if value == "" {
		return false, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("value of %s is not a boolean: %w", key, err)
	}
	return parsed, nil
}

// PutBool stores a boolean key
func (s *KeyValueStore) PutBool(ctx context.Context, key string, value bool) error {
	return s.PutString(ctx, key, strconv.FormatBool(value))
}
