package store

import (
	"bytes"
	"context"
	stdjson "encoding/json"
)

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change describes how one record differs between two snapshots.
type Change struct {
	ID     string             `json:"id"`
	Kind   ChangeKind         `json:"kind"`
	Before stdjson.RawMessage `json:"before,omitempty"`
	After  stdjson.RawMessage `json:"after,omitempty"`
}

// Diff compares file between the snapshots from and to. Changes are ordered
// like the records of to, followed by the records removed since from.
func (s *Store) Diff(ctx context.Context, file, from, to string) ([]Change, error) {
	before, err := s.load(ctx, file, from)
	if err != nil {
		return nil, err
	}
	after, err := s.load(ctx, file, to)
	if err != nil {
		return nil, err
	}
	return DiffDocuments(before, after), nil
}

// DiffDocuments returns the record level changes turning before into after.
func DiffDocuments(before, after *Document) []Change {
	var changes []Change
	for _, id := range after.ids {
		a := after.records[id]
		b, ok := before.records[id]
		switch {
		case !ok:
			changes = append(changes, Change{ID: id, Kind: ChangeAdded, After: a})
		case !bytes.Equal(a, b):
			changes = append(changes, Change{ID: id, Kind: ChangeModified, Before: b, After: a})
		}
	}
	for _, id := range before.ids {
		if !after.Has(id) {
			changes = append(changes, Change{ID: id, Kind: ChangeRemoved, Before: before.records[id]})
		}
	}
	return changes
}
