package requests

import (
	"encoding/json"
)

// Record - addresses one record of a document
type Record struct {
	// document file name, relative to the repository root
	File string `json:"file"`
	// record id inside the document
	ID string `json:"id"`
}

// Create - add a new record
type Create struct {
	Record
	Data json.RawMessage `json:"data"`
}

// Read - read a record, optionally at a past snapshot
type Read struct {
	Record
	// snapshot id, prefix or HEAD~n; empty means latest
	Snapshot string `json:"snapshot,omitempty"`
}

// Update - replace the value of a record
type Update struct {
	Record
	Data json.RawMessage `json:"data"`
}

// Patch - merge patch a record
type Patch struct {
	Record
	Patch json.RawMessage `json:"patch"`
}

// Delete - remove a record
type Delete struct {
	Record
}

// List - ids of a document
type List struct {
	File     string `json:"file"`
	Snapshot string `json:"snapshot,omitempty"`
}

// History - snapshots that changed a document
type History struct {
	File  string `json:"file"`
	Limit int    `json:"limit,omitempty"`
}

// Diff - record changes between two snapshots
type Diff struct {
	File string `json:"file"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// Head - query the latest snapshot
type Head struct{}
