package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	BlobMarkerKey      = "gitdb-repository.json"
	BlobHeadKey        = "HEAD"
	BlobSnapshotPrefix = "snapshot-"
	BlobSnapshotSuffix = ".json"
	BlobObjectPrefix   = "object-"
	BlobWorkPrefix     = "work-"

	blobFormatVersion = 1
)

type (
	// Blob keeps snapshot history in a key/value Storage.
	Blob struct {
		l       *zap.Logger
		storage Storage
		author  string
		mu      sync.RWMutex
	}
	BlobOption func(*Blob)

	blobMarker struct {
		Version int       `json:"version"`
		Created time.Time `json:"created"`
	}

	blobManifest struct {
		Snapshot
		// File is the file staged by the commit.
		File string `json:"file"`
		// Files maps file names to object keys.
		Files map[string]string `json:"files"`
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func BlobWithAuthor(v string) BlobOption {
	return func(o *Blob) {
		o.author = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// OpenBlob opens the repository kept in storage, initializing it when the
// storage is empty.
func OpenBlob(ctx context.Context, l *zap.Logger, storage Storage, opts ...BlobOption) (*Blob, error) {
	inst := &Blob{
		l:       l.Named("blob"),
		storage: storage,
	}

	for _, opt := range opts {
		opt(inst)
	}

	data, err := storage.Read(ctx, BlobMarkerKey)
	switch {
	case errors.Is(err, os.ErrNotExist):
		keys, err := storage.List(ctx, "")
		if err != nil {
			return nil, errors.Wrap(ErrInit, err.Error())
		}
		if len(keys) > 0 {
			return nil, errors.Wrapf(ErrInit, "storage is not empty and holds no repository marker (found %d keys)", len(keys))
		}
		marker, err := json.Marshal(blobMarker{Version: blobFormatVersion, Created: time.Now().UTC()})
		if err != nil {
			return nil, errors.Wrap(ErrInit, err.Error())
		}
		if err := storage.Write(ctx, BlobMarkerKey, marker); err != nil {
			return nil, errors.Wrap(ErrInit, err.Error())
		}
		inst.l.Info("initialized repository")
	case err != nil:
		return nil, errors.Wrap(ErrInit, err.Error())
	default:
		var marker blobMarker
		if err := json.Unmarshal(data, &marker); err != nil {
			return nil, errors.Wrapf(ErrInit, "corrupt repository marker: %s", err)
		}
		if marker.Version != blobFormatVersion {
			return nil, errors.Wrapf(ErrInit, "unsupported repository version %d", marker.Version)
		}
		inst.l.Debug("opened repository", zap.Time("created", marker.Created))
	}

	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (b *Blob) ReadFile(ctx context.Context, rev, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, err := b.resolve(ctx, rev)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Wrapf(os.ErrNotExist, "%s: empty history", name)
	}
	key, ok := m.Files[name]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "%s at %s", name, m.ID)
	}
	data, err := b.storage.Read(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read object %s", key)
	}
	return data, nil
}

func (b *Blob) WriteFile(ctx context.Context, name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storage.Write(ctx, workKey(name), data)
}

func (b *Blob) Commit(ctx context.Context, name, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.storage.Read(ctx, workKey(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrap(ErrNothingStaged, name)
	} else if err != nil {
		return "", errors.Wrap(err, "failed to read working copy")
	}

	objKey := objectKey(data)
	if err := b.storage.Write(ctx, objKey, data); err != nil {
		return "", errors.Wrap(err, "failed to write object")
	}

	parent, err := b.head(ctx)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "failed to create snapshot id")
	}
	m := blobManifest{
		Snapshot: Snapshot{
			ID:      id.String(),
			Message: message,
			Author:  b.author,
			Time:    time.Now().UTC(),
		},
		File:  name,
		Files: map[string]string{},
	}
	if parent != nil {
		m.Parent = parent.ID
		for k, v := range parent.Files {
			m.Files[k] = v
		}
	}
	m.Files[name] = objKey

	manifest, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode manifest")
	}
	if err := b.storage.Write(ctx, snapshotKey(m.ID), manifest); err != nil {
		return "", errors.Wrap(err, "failed to write manifest")
	}
	if err := b.storage.Write(ctx, BlobHeadKey, []byte(m.ID)); err != nil {
		return "", errors.Wrap(err, "failed to move HEAD")
	}
	if err := b.storage.Delete(ctx, workKey(name)); err != nil {
		b.l.Warn("failed to remove working copy", zap.String("file", name), zap.Error(err))
	}

	b.l.Debug("committed snapshot",
		zap.String("id", m.ID),
		zap.String("parent", m.Parent),
		zap.String("file", name),
	)
	return m.ID, nil
}

func (b *Blob) Resolve(ctx context.Context, rev string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, err := b.resolve(ctx, rev)
	if err != nil || m == nil {
		return "", err
	}
	return m.ID, nil
}

func (b *Blob) Log(ctx context.Context, name string, limit int) ([]Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, err := b.head(ctx)
	if err != nil {
		return nil, err
	}

	var ret []Snapshot
	for m != nil && (limit <= 0 || len(ret) < limit) {
		var parent *blobManifest
		if m.Parent != "" {
			if parent, err = b.manifest(ctx, m.Parent); err != nil {
				return nil, err
			}
		}
		if name == "" || touches(m, name) {
			ret = append(ret, m.Snapshot)
		}
		m = parent
	}
	return ret, nil
}

func (b *Blob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storage.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// head returns the newest manifest or nil for an empty history.
func (b *Blob) head(ctx context.Context) (*blobManifest, error) {
	id, err := b.storage.Read(ctx, BlobHeadKey)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to read HEAD")
	}
	return b.manifest(ctx, strings.TrimSpace(string(id)))
}

func (b *Blob) manifest(ctx context.Context, id string) (*blobManifest, error) {
	data, err := b.storage.Read(ctx, snapshotKey(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrSnapshotNotFound, id)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read snapshot %s", id)
	}
	m := &blobManifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "corrupt snapshot %s", id)
	}
	return m, nil
}

// resolve maps rev to a manifest. HEAD on an empty history yields nil.
func (b *Blob) resolve(ctx context.Context, rev string) (*blobManifest, error) {
	base, n, err := splitAncestry(Rev(rev))
	if err != nil {
		return nil, err
	}

	var m *blobManifest
	if base == Latest || base == "" {
		if m, err = b.head(ctx); err != nil {
			return nil, err
		}
		if m == nil {
			if n > 0 || !IsLatest(rev) {
				return nil, errors.Wrap(ErrSnapshotNotFound, rev)
			}
			return nil, nil
		}
	} else {
		keys, err := b.storage.List(ctx, BlobSnapshotPrefix+base)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list snapshots")
		}
		switch len(keys) {
		case 0:
			return nil, errors.Wrap(ErrSnapshotNotFound, rev)
		case 1:
		default:
			return nil, errors.Wrapf(ErrSnapshotNotFound, "ambiguous revision %q", rev)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(keys[0], BlobSnapshotPrefix), BlobSnapshotSuffix)
		if m, err = b.manifest(ctx, id); err != nil {
			return nil, err
		}
	}

	for ; n > 0; n-- {
		if m.Parent == "" {
			return nil, errors.Wrap(ErrSnapshotNotFound, rev)
		}
		if m, err = b.manifest(ctx, m.Parent); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func touches(m *blobManifest, name string) bool {
	return m.File == name
}

func snapshotKey(id string) string {
	return BlobSnapshotPrefix + id + BlobSnapshotSuffix
}

func objectKey(data []byte) string {
	sum := sha256.Sum256(data)
	return BlobObjectPrefix + hex.EncodeToString(sum[:])
}

func workKey(name string) string {
	return BlobWorkPrefix + url.PathEscape(name)
}
