package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore implements driven.ObjectStore using PostgreSQL.
// Blobs are encrypted at rest because the credential cache they carry
// contains OAuth device tokens.
type ObjectStore struct {
	db        *DB
	encryptor *BlobEncryptor
}

// NewObjectStore creates a new ObjectStore writing encrypted blobs
func NewObjectStore(db *DB, encryptor *BlobEncryptor) *ObjectStore {
	return &ObjectStore{db: db, encryptor: encryptor}
}

// Save encrypts value and stores it under name
func (s *ObjectStore) Save(ctx context.Context, name string, value any) error {
	blob, err := s.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_objects (name, blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			blob = EXCLUDED.blob,
			updated_at = EXCLUDED.updated_at
	`, name, blob)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// Load decrypts the blob stored under name into out.
// A missing name leaves out untouched and returns no error.
func (s *ObjectStore) Load(ctx context.Context, name string, out any) error {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM session_objects WHERE name = $1`, name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	if err := s.encryptor.Decrypt(blob, out); err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", name, err)
	}
	return nil
}
