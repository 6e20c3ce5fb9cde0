package snapshot

import (
	"context"
)

// Storage holds the blob engine's repository: the marker, HEAD, snapshot
// manifests, content objects and staged work files, each under its own flat
// key. Implementations must be safe for concurrent use.
type Storage interface {
	// Write puts a manifest, object or work file at key, replacing an older one.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the bytes at key, or os.ErrNotExist for an unknown
	// snapshot, object or work key.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns the keys starting with prefix, newest snapshot id first.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete drops a staged work file once it is committed. Unknown keys are
	// not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
