// Package wire defines the WebSocket protocol between renderers and the
// entity pages of a session.
package wire

import "encoding/json"

// Client message types.
const (
	TypeTableOpen      = "table.open"
	TypeTablePage      = "table.page"
	TypeTablePageSize  = "table.page_size"
	TypeTableSort      = "table.sort"
	TypeTableFilter    = "table.filter"
	TypeTableSelect    = "table.select"
	TypeTableSelectAll = "table.select_all"
	TypeTableColumn    = "table.column"
	TypeActionInvoke   = "action.invoke"
	TypeActionConfirm  = "action.confirm"
	TypeActionCancel   = "action.cancel"
	TypeFormOpen       = "form.open"
	TypeFormSet        = "form.set"
	TypeFormNext       = "form.next"
	TypeFormPrev       = "form.prev"
	TypeFormGoTo       = "form.goto"
	TypeFormSubmit     = "form.submit"
	TypeFormClose      = "form.close"
	TypePing           = "ping"
)

// Server message types.
const (
	TypeSession = "session"
	TypeTable   = "table"
	TypePending = "pending"
	TypeForm    = "form"
	TypeToast   = "toast"
	TypeError   = "error"
	TypePong    = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// TableData addresses a mounted table. Only the fields of the message type
// are read.
type TableData struct {
	Entity string `json:"entity"`
	Page   int    `json:"page,omitempty"`
	Size   int    `json:"size,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	ID     string `json:"id,omitempty"`
}

// ActionData invokes, confirms or cancels an action. An empty RowID makes
// the invocation a bulk action on the selection.
type ActionData struct {
	Entity string `json:"entity"`
	Action string `json:"action,omitempty"`
	RowID  string `json:"row_id,omitempty"`
}

// FormOpenData opens a create form, or an edit form when ID is set.
type FormOpenData struct {
	Entity string         `json:"entity"`
	ID     string         `json:"id,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

// FormSetData writes one field.
type FormSetData struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// FormGoToData jumps to a wizard step.
type FormGoToData struct {
	Index int `json:"index"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ErrorData carries an error message. Fields holds per-field validation
// messages.
type ErrorData struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string   `json:"session_id"`
	Entities  []string `json:"entities"`
}

// ToastData is a user-visible notification.
type ToastData struct {
	Entity  string `json:"entity,omitempty"`
	Level   string `json:"level"`
	Message string `json:"message"`
}
