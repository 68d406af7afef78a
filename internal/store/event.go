package store

import (
	"time"

	"wisp/internal/project"
)

// EventType identifies the kind of row change delivered by the feed.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a single row-level change of the projects table.
type ChangeEvent struct {
	Type            EventType
	Record          project.Project // new row for INSERT/UPDATE
	OldID           string          // primary key of the removed row for DELETE
	CommitTimestamp time.Time
}

// Key returns the primary key the event applies to.
func (e ChangeEvent) Key() string {
	if e.Type == EventDelete {
		if e.OldID != "" {
			return e.OldID
		}
	}
	return e.Record.ID
}

// Outcome reports what Apply did with an event.
type Outcome int

const (
	OutcomeIgnored  Outcome = iota // malformed or tombstoned
	OutcomeInserted                // new record added
	OutcomeUpdated                 // existing record replaced
	OutcomeRemoved                 // record removed
	OutcomeStale                   // older than the held version, dropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRemoved:
		return "removed"
	case OutcomeStale:
		return "stale"
	default:
		return "ignored"
	}
}
