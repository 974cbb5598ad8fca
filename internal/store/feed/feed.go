// Package feed defines the change-feed contract between store adapters and the
// change capture bus. Store adapters emit a Change for every committed mutation;
// the bus is the only consumer and never mutates domain state.
package feed

import "time"

// EntityType names a tracked collection.
type EntityType string

const (
	EntityPlayer   EntityType = "player"
	EntityClub     EntityType = "club"
	EntityContract EntityType = "contract"
	EntityTransfer EntityType = "transfer"
)

// Op is the kind of committed mutation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed mutation. Document carries the full
// post-image (nil for deletes). SourceTime is the commit time as observed by
// the store; the bus stamps its own capture time on ingestion.
type Change struct {
	Entity     EntityType `json:"entity"`
	Op         Op         `json:"op"`
	EntityID   string     `json:"entity_id"`
	Document   any        `json:"document,omitempty"`
	SourceTime time.Time  `json:"source_time"`
}

// Key identifies a change for deduplication: a store feed may redeliver, and
// two deliveries of the same committed mutation share this key.
func (c Change) Key() string {
	return string(c.Entity) + "|" + string(c.Op) + "|" + c.EntityID + "|" +
		c.SourceTime.UTC().Format(time.RFC3339Nano)
}

// Source is implemented by store adapters that surface committed changes.
// The channel is closed when the source shuts down.
type Source interface {
	Changes() <-chan Change
}
