// Package progress carries sync status events from background workers to
// whoever is displaying them (the TUI status line, the CLI watch stream).
package progress

import "time"

// Status indicates the state of a sync operation.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusAborted Status = "aborted"
)

// Kind names the operation an event belongs to.
type Kind string

const (
	KindConnection Kind = "connection"
	KindRefresh    Kind = "refresh"
	KindChange     Kind = "change"
)

// Event is one progress update.
type Event struct {
	Kind      Kind
	Message   string
	Status    Status
	Err       error
	Timestamp time.Time
	Metadata  map[string]string // optional: id, outcome, etc.
}

// Emitter receives progress events.
type Emitter interface {
	Emit(Event)
}

// ChanEmitter emits events to a channel.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel (non-blocking; drops if full).
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Ch <- ev:
	default:
		// Channel full; drop rather than stall the feed
	}
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// FuncEmitter adapts a function to Emitter.
type FuncEmitter func(Event)

func (f FuncEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	f(ev)
}
