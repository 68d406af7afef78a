package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"wisp/internal/jsonutil"
	"wisp/internal/project"
	"wisp/internal/store"
)

// Channel protocol event names.
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventPostgresChanges = "postgres_changes"
	EventSystem          = "system"

	// PhoenixTopic carries socket-level traffic such as heartbeats.
	PhoenixTopic = "phoenix"

	protocolVersion = "1.0.0"
)

// Message is one frame of the channel protocol.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// reply is the payload of a phx_reply.
type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// systemPayload is sent by the server on the channel topic to report
// subscription problems.
type systemPayload struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Extension string `json:"extension"`
}

// ChangeFilter selects the row changes a channel subscribes to.
type ChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinConfig struct {
	Broadcast struct {
		Self bool `json:"self"`
	} `json:"broadcast"`
	Presence struct {
		Key string `json:"key"`
	} `json:"presence"`
	PostgresChanges []ChangeFilter `json:"postgres_changes"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

func newJoinPayload(f ChangeFilter, token string) joinPayload {
	var p joinPayload
	p.Config.PostgresChanges = []ChangeFilter{f}
	p.AccessToken = token
	return p
}

type changePayload struct {
	Data struct {
		Type            string                 `json:"type"`
		Schema          string                 `json:"schema"`
		Table           string                 `json:"table"`
		Record          map[string]interface{} `json:"record"`
		OldRecord       map[string]interface{} `json:"old_record"`
		CommitTimestamp string                 `json:"commit_timestamp"`
	} `json:"data"`
}

// DecodeChange converts a postgres_changes payload into a store event.
func DecodeChange(raw json.RawMessage) (store.ChangeEvent, error) {
	var p changePayload
	if err := jsonutil.UnmarshalWithContext(raw, &p, "decode change payload"); err != nil {
		return store.ChangeEvent{}, err
	}

	ev := store.ChangeEvent{Type: store.EventType(strings.ToUpper(p.Data.Type))}
	if p.Data.CommitTimestamp != "" {
		ts, err := jsonutil.ParseTimestamp(p.Data.CommitTimestamp)
		if err != nil {
			return store.ChangeEvent{}, fmt.Errorf("commit timestamp: %w", err)
		}
		ev.CommitTimestamp = ts
	}

	switch ev.Type {
	case store.EventInsert, store.EventUpdate:
		rec, err := decodeRecord(p.Data.Record)
		if err != nil {
			return store.ChangeEvent{}, err
		}
		if rec.ID == "" {
			return store.ChangeEvent{}, fmt.Errorf("%s record has no id", ev.Type)
		}
		ev.Record = rec
	case store.EventDelete:
		ev.OldID = jsonutil.ToString(p.Data.OldRecord["id"])
		if ev.OldID == "" {
			return store.ChangeEvent{}, fmt.Errorf("DELETE old_record has no id")
		}
	default:
		return store.ChangeEvent{}, fmt.Errorf("unknown change type %q", p.Data.Type)
	}
	return ev, nil
}

func decodeRecord(m map[string]interface{}) (project.Project, error) {
	if m == nil {
		return project.Project{}, fmt.Errorf("missing record")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return project.Project{}, fmt.Errorf("encode record: %w", err)
	}
	var rec project.Project
	if err := jsonutil.UnmarshalWithContext(b, &rec, "decode record"); err != nil {
		return project.Project{}, err
	}
	return rec, nil
}
