package store

import (
	"context"
	stdjson "encoding/json"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/foomo/gitdb/pkg/metrics"
	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	OperationCreate = "create"
	OperationRead   = "read"
	OperationUpdate = "update"
	OperationPatch  = "patch"
	OperationDelete = "delete"
	OperationList   = "list"
)

type (
	// Store maps record operations onto the snapshots of an Engine.
	// Every accepted mutation records exactly one snapshot; reads never do.
	Store struct {
		l      *zap.Logger
		engine snapshot.Engine
		indent string
		// serializes load, modify and commit of mutations
		mu sync.Mutex
	}
	Option func(*Store)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithIndent(v string) Option {
	return func(o *Store) {
		o.indent = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// New returns a store persisting through engine.
func New(l *zap.Logger, engine snapshot.Engine, opts ...Option) *Store {
	inst := &Store{
		l:      l.Named("store"),
		engine: engine,
		indent: DefaultIndent,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// Open opens or initializes the git repository at path.
func Open(ctx context.Context, l *zap.Logger, path string, opts ...Option) (*Store, error) {
	engine, err := snapshot.OpenGit(l, path)
	if err != nil {
		return nil, err
	}
	if _, err := engine.Resolve(ctx, snapshot.Latest); err != nil {
		return nil, multierr.Append(errors.Wrapf(ErrStorageInit, "%s", path), multierr.Append(err, engine.Close()))
	}
	return New(l, engine, opts...), nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Create adds a new record and returns the id of the snapshot recording it.
func (s *Store) Create(ctx context.Context, file, id string, data any) (rev string, err error) {
	defer s.observe(OperationCreate, time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := encodeValue(id, data)
	if err != nil {
		return "", err
	}
	doc, err := s.load(ctx, file, snapshot.Latest)
	if err != nil {
		return "", err
	}
	if doc.Has(id) {
		return "", errors.Wrapf(ErrDuplicateRecord, "%s: %s", file, id)
	}
	if err := doc.Set(id, value); err != nil {
		return "", err
	}
	return s.save(ctx, OperationCreate, file, doc, "Create record "+id)
}

// Read returns the value stored for id at rev. A stored null is returned as
// "null"; an absent id yields ErrRecordNotFound.
func (s *Store) Read(ctx context.Context, file, id, rev string) (value stdjson.RawMessage, err error) {
	defer s.observe(OperationRead, time.Now(), &err)

	doc, err := s.load(ctx, file, rev)
	if err != nil {
		return nil, err
	}
	value, ok := doc.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrRecordNotFound, "%s: %s at %s", file, id, snapshot.Rev(rev))
	}
	return value, nil
}

// ReadInto decodes the value stored for id at rev into v.
func (s *Store) ReadInto(ctx context.Context, file, id, rev string, v any) error {
	value, err := s.Read(ctx, file, id, rev)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(value, v); err != nil {
		return errors.Wrapf(ErrSerialization, "%s: %s: %s", file, id, err)
	}
	return nil
}

// Update replaces the value of an existing record.
func (s *Store) Update(ctx context.Context, file, id string, data any) (rev string, err error) {
	defer s.observe(OperationUpdate, time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := encodeValue(id, data)
	if err != nil {
		return "", err
	}
	doc, err := s.load(ctx, file, snapshot.Latest)
	if err != nil {
		return "", err
	}
	if !doc.Has(id) {
		return "", errors.Wrapf(ErrRecordNotFound, "%s: %s", file, id)
	}
	if err := doc.Set(id, value); err != nil {
		return "", err
	}
	return s.save(ctx, OperationUpdate, file, doc, "Update record "+id)
}

// Patch applies a JSON merge patch (RFC 7386) to an existing record and
// returns the resulting value.
func (s *Store) Patch(ctx context.Context, file, id string, patch []byte) (value stdjson.RawMessage, rev string, err error) {
	defer s.observe(OperationPatch, time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx, file, snapshot.Latest)
	if err != nil {
		return nil, "", err
	}
	current, ok := doc.Get(id)
	if !ok {
		return nil, "", errors.Wrapf(ErrRecordNotFound, "%s: %s", file, id)
	}
	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, "", errors.Wrapf(ErrSerialization, "merge patch for %s: %s", id, err)
	}
	if err := doc.Set(id, keepKeyOrder(merged, current, patch)); err != nil {
		return nil, "", err
	}
	if rev, err = s.save(ctx, OperationPatch, file, doc, "Update record "+id); err != nil {
		return nil, "", err
	}
	value, _ = doc.Get(id)
	return value, rev, nil
}

// Delete removes an existing record.
func (s *Store) Delete(ctx context.Context, file, id string) (rev string, err error) {
	defer s.observe(OperationDelete, time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx, file, snapshot.Latest)
	if err != nil {
		return "", err
	}
	if !doc.Delete(id) {
		return "", errors.Wrapf(ErrRecordNotFound, "%s: %s", file, id)
	}
	return s.save(ctx, OperationDelete, file, doc, "Delete record "+id)
}

// List returns the ids present in file at rev in document order.
func (s *Store) List(ctx context.Context, file, rev string) (ids []string, err error) {
	defer s.observe(OperationList, time.Now(), &err)

	doc, err := s.load(ctx, file, rev)
	if err != nil {
		return nil, err
	}
	return doc.IDs(), nil
}

// Document returns the whole document at rev.
func (s *Store) Document(ctx context.Context, file, rev string) (*Document, error) {
	return s.load(ctx, file, rev)
}

// History returns the snapshots that changed file, newest first.
func (s *Store) History(ctx context.Context, file string, limit int) ([]snapshot.Snapshot, error) {
	if err := ValidateName(file); err != nil {
		return nil, err
	}
	return s.engine.Log(ctx, file, limit)
}

// Head returns the id of the latest snapshot or "" for an empty repository.
func (s *Store) Head(ctx context.Context) (string, error) {
	return s.engine.Resolve(ctx, snapshot.Latest)
}

func (s *Store) Close() error {
	return s.engine.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// load reads file at rev. A file missing from an existing snapshot is an
// empty document.
func (s *Store) load(ctx context.Context, file, rev string) (*Document, error) {
	if err := ValidateName(file); err != nil {
		return nil, err
	}
	rev = snapshot.Rev(rev)

	data, err := s.engine.ReadFile(ctx, rev, file)
	if errors.Is(err, os.ErrNotExist) {
		s.l.Debug("document does not exist", zap.String("file", file), zap.String("rev", rev))
		return NewDocument(), nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s at %s", file, rev)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s at %s", file, rev)
	}
	return doc, nil
}

// save writes doc and records a snapshot labelled message.
func (s *Store) save(ctx context.Context, operation, file string, doc *Document, message string) (string, error) {
	data, err := doc.Marshal(s.indent)
	if err != nil {
		return "", err
	}
	if err := s.engine.WriteFile(ctx, file, data); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", file)
	}

	rev, err := s.engine.Commit(ctx, file, message)
	if err != nil {
		metrics.SnapshotCommitFailedCounter.WithLabelValues().Inc()
		return "", multierr.Append(errors.Wrapf(ErrInconsistent, "%s", file), err)
	}

	metrics.SnapshotsCreatedCounter.WithLabelValues(operation).Inc()
	s.l.Debug("recorded snapshot",
		zap.String("file", file),
		zap.String("message", message),
		zap.String("rev", rev),
	)
	return rev, nil
}

func (s *Store) observe(operation string, start time.Time, err *error) {
	status := "success"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrRecordNotFound), errors.Is(*err, ErrDuplicateRecord):
		status = "rejected"
	default:
		status = "error"
	}
	metrics.StoreOperationCounter.WithLabelValues(operation, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// ------------------------------------------------------------------------------------------------
// ~ Helpers
// ------------------------------------------------------------------------------------------------

// ValidateName rejects file names that would escape the repository or touch
// the engine's metadata.
func ValidateName(file string) error {
	switch {
	case file == "":
		return errors.Wrap(ErrInvalidName, "empty file name")
	case file == ".":
		return errors.Wrap(ErrInvalidName, "the repository root is not a file")
	case strings.Contains(file, `\`):
		return errors.Wrapf(ErrInvalidName, "%q contains a backslash", file)
	case path.IsAbs(file):
		return errors.Wrapf(ErrInvalidName, "%q is absolute", file)
	case path.Clean(file) != file:
		return errors.Wrapf(ErrInvalidName, "%q is not a clean path", file)
	}
	for _, elem := range strings.Split(file, "/") {
		if elem == ".." || elem == snapshot.GitDir {
			return errors.Wrapf(ErrInvalidName, "%q leaves the repository", file)
		}
	}
	return nil
}

// keepKeyOrder lays out the top level keys of a merged object in the order
// of the original value, followed by new keys in patch order. Non-object
// values are returned unchanged.
func keepKeyOrder(merged, current, patch []byte) []byte {
	result, err := ParseDocument(merged)
	if err != nil {
		return merged
	}
	ordered := NewDocument()
	for _, src := range [][]byte{current, patch} {
		doc, err := ParseDocument(src)
		if err != nil {
			continue
		}
		for _, key := range doc.IDs() {
			if value, ok := result.Get(key); ok && !ordered.Has(key) {
				_ = ordered.Set(key, value)
			}
		}
	}
	for _, key := range result.IDs() {
		if value, ok := result.Get(key); ok && !ordered.Has(key) {
			_ = ordered.Set(key, value)
		}
	}
	out, err := ordered.MarshalJSON()
	if err != nil {
		return merged
	}
	return out
}

func encodeValue(id string, data any) ([]byte, error) {
	var (
		value []byte
		err   error
	)
	switch v := data.(type) {
	case stdjson.RawMessage:
		value = v
	default:
		value, err = json.Marshal(data)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrSerialization, "record %q: %s", id, err)
	}
	if !stdjson.Valid(value) {
		return nil, errors.Wrapf(ErrSerialization, "record %q is not valid JSON", id)
	}
	return value, nil
}
