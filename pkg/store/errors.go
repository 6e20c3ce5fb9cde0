package store

import (
	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/pkg/errors"
)

var (
	// ErrStorageInit is returned when the repository cannot be opened or created.
	ErrStorageInit = snapshot.ErrInit
	// ErrSnapshotNotFound is returned when a revision does not resolve.
	ErrSnapshotNotFound = snapshot.ErrSnapshotNotFound
	// ErrDuplicateRecord is returned by Create when the id is already taken.
	ErrDuplicateRecord = errors.New("duplicate record")
	// ErrRecordNotFound is returned when an id is absent from a document.
	ErrRecordNotFound = errors.New("record not found")
	// ErrSerialization is returned for documents or values that are not valid JSON.
	ErrSerialization = errors.New("serialization error")
	// ErrInconsistent is returned when a document was written but no snapshot was recorded.
	ErrInconsistent = errors.New("document written but not committed")
	// ErrInvalidName is returned for file names outside the repository.
	ErrInvalidName = errors.New("invalid file name")
)
