// Package event defines the UI events carried by the in-process bus: toasts
// for a session, data changes for an entity, and finished actions.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/entityui/internal/entity"
)

// Event types.
const (
	TypeToast          = "toast"
	TypeDataChanged    = "data_changed"
	TypeActionFinished = "action_finished"
)

// Toast levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Event carries the canonical shape of every UI event. Session is empty for
// events addressed to every session.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Session    string          `json:"session,omitempty"`
	Entity     string          `json:"entity,omitempty"`
	Level      string          `json:"level,omitempty"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// NewToast builds a user-visible message for one session.
func NewToast(session, entityName, level, message string) Event {
	return Event{
		ID:         newID(),
		Type:       TypeToast,
		OccurredAt: time.Now(),
		Session:    session,
		Entity:     entityName,
		Level:      level,
		Summary:    message,
	}
}

// DataChangedPayload lists the rows a mutation touched, when known.
type DataChangedPayload struct {
	IDs []entity.RowID `json:"ids,omitempty"`
}

// NewDataChanged tells every session showing entityName to refetch.
func NewDataChanged(entityName string, ids []entity.RowID) Event {
	return Event{
		ID:         newID(),
		Type:       TypeDataChanged,
		OccurredAt: time.Now(),
		Entity:     entityName,
		Level:      LevelInfo,
		Summary:    fmt.Sprintf("%s data changed", entityName),
		Payload:    mustJSON(DataChangedPayload{IDs: ids}),
	}
}

// ActionFinishedPayload carries the result of one action invocation.
type ActionFinishedPayload struct {
	InvocationID string `json:"invocation_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Targets      int    `json:"targets"`
	Error        string `json:"error,omitempty"`
}

// NewActionFinished records the outcome of an action run from session.
func NewActionFinished(session, entityName string, p ActionFinishedPayload) Event {
	level := LevelSuccess
	if p.Error != "" {
		level = LevelError
	}
	return Event{
		ID:         newID(),
		Type:       TypeActionFinished,
		OccurredAt: time.Now(),
		Session:    session,
		Entity:     entityName,
		Level:      level,
		Summary:    fmt.Sprintf("%s %s on %d row(s)", p.Action, p.Outcome, p.Targets),
		Payload:    mustJSON(p),
	}
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
