package driven

import "context"

// KeyValueStore persists small scalar settings across process restarts:
// base URL, branding flag, configuration etag, last-used provider ids.
// Reads of missing keys return the zero value, never an error.
type KeyValueStore interface {
	GetString(ctx context.Context, key string) (string, error)
	PutString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string) (bool, error)
	PutBool(ctx context.Context, key string, value bool) error
}
