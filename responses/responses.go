package responses

import (
	"encoding/json"

	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/foomo/gitdb/pkg/store"
)

// Snapshot - the snapshot a mutation recorded
type Snapshot struct {
	Snapshot string `json:"snapshot"`
}

// Record - a record value
type Record struct {
	ID       string          `json:"id"`
	Data     json.RawMessage `json:"data"`
	Snapshot string          `json:"snapshot,omitempty"`
}

// List - ids in document order
type List struct {
	IDs []string `json:"ids"`
}

// History - newest first
type History struct {
	Snapshots []snapshot.Snapshot `json:"snapshots"`
}

// Diff - record changes
type Diff struct {
	Changes []store.Change `json:"changes"`
}
