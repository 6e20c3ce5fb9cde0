package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Latest addresses the newest snapshot of a repository.
const Latest = "HEAD"

var (
	// ErrInit is returned when a repository can neither be opened nor created.
	ErrInit = errors.New("repository init failed")
	// ErrSnapshotNotFound is returned when a revision does not resolve to a snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrNothingStaged is returned by Commit when no working copy exists for a file.
	ErrNothingStaged = errors.New("nothing staged")
)

type (
	// Snapshot describes one immutable state of a repository.
	Snapshot struct {
		ID      string    `json:"id"`
		Parent  string    `json:"parent,omitempty"`
		Message string    `json:"message"`
		Author  string    `json:"author,omitempty"`
		Time    time.Time `json:"time"`
	}

	// Engine is the version control backend records are persisted through.
	Engine interface {
		// ReadFile returns the content of name at rev.
		// Returns os.ErrNotExist if the file is not part of the snapshot
		// and ErrSnapshotNotFound if rev does not resolve.
		ReadFile(ctx context.Context, rev, name string) ([]byte, error)

		// WriteFile stores data as the working copy of name.
		WriteFile(ctx context.Context, name string, data []byte) error

		// Commit stages the working copy of name and records a new snapshot.
		Commit(ctx context.Context, name, message string) (string, error)

		// Resolve returns the snapshot id rev points to.
		// An empty history resolves Latest to "".
		Resolve(ctx context.Context, rev string) (string, error)

		// Log lists snapshots newest first. A non-empty name restricts the
		// result to snapshots that changed that file, limit <= 0 means all.
		Log(ctx context.Context, name string, limit int) ([]Snapshot, error)

		// Close releases the resources held by the engine.
		Close() error
	}
)

// Rev normalizes the ways callers spell "the latest snapshot".
func Rev(rev string) string {
	switch strings.TrimSpace(rev) {
	case "", "latest", Latest:
		return Latest
	default:
		return strings.TrimSpace(rev)
	}
}

// IsLatest reports whether rev addresses the newest snapshot.
func IsLatest(rev string) bool {
	return Rev(rev) == Latest
}

// splitAncestry splits "rev~n" into rev and n. Plain revisions yield n == 0.
func splitAncestry(rev string) (string, int, error) {
	base, suffix, found := strings.Cut(rev, "~")
	if !found {
		return rev, 0, nil
	}
	if suffix == "" {
		return base, 1, nil
	}
	n := 0
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return "", 0, errors.Wrapf(ErrSnapshotNotFound, "invalid revision %q", rev)
		}
		n = n*10 + int(c-'0')
	}
	return base, n, nil
}
