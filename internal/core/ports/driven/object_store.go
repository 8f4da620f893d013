package driven

import "context"

// ObjectStore persists structured values (provider catalog, ordered id lists,
// the credential map) by name. Save is atomic from the caller's point of
// view: after a crash the stored value equals the last successful Save.
// Load of a missing name leaves out untouched and returns nil.
type ObjectStore interface {
	Save(ctx context.Context, name string, value any) error
	Load(ctx context.Context, name string, out any) error
}
