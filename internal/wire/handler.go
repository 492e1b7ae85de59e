package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/action"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/eventbus"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/page"
	"github.com/matthewbaird/entityui/internal/session"
	"github.com/matthewbaird/entityui/internal/source"
	"github.com/matthewbaird/entityui/internal/wizard"
)

// Handler manages WebSocket connections for renderers.
type Handler struct {
	sessions *session.Manager
	pages    *page.Factory
	bus      *eventbus.Bus
	log      logrus.FieldLogger
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(sessions *session.Manager, pages *page.Factory, bus *eventbus.Bus, log logrus.FieldLogger) *Handler {
	return &Handler{
		sessions: sessions,
		pages:    pages,
		bus:      bus,
		log:      logging.OrDiscard(log).WithField("component", "wire"),
	}
}

// conn is one connected renderer.
type conn struct {
	h    *Handler
	ws   *websocket.Conn
	sess *session.Session
	log  logrus.FieldLogger

	stopWatch func()
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept")
		return
	}
	defer ws.CloseNow()

	sess := h.sessions.Create()
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()

	c := &conn{h: h, ws: ws, sess: sess, log: h.log.WithField("session", sess.ID)}
	defer c.unwatch()
	if h.bus != nil {
		unsub := h.bus.Subscribe("session:"+sess.ID, eventbus.ForSession(sess.ID, eventbus.HandlerFunc(
			func(_ context.Context, evt event.Event) error {
				c.onEvent(ctx, evt)
				return nil
			})))
		defer unsub()
	}

	c.send(ctx, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID, Entities: h.pages.Names()},
	})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.WithField("status", websocket.CloseStatus(err)).Debug("connection closed")
			}
			return
		}
		sess.Touch()
		c.dispatch(ctx, msg)
	}
}

func (c *conn) dispatch(ctx context.Context, msg ClientMessage) {
	var err error
	switch msg.Type {
	case TypePing:
		c.send(ctx, ServerMessage{Type: TypePong, RequestID: msg.ID})
		return
	case TypeTableOpen, TypeTablePage, TypeTablePageSize, TypeTableSort,
		TypeTableFilter, TypeTableSelect, TypeTableSelectAll, TypeTableColumn:
		err = c.handleTable(ctx, msg)
	case TypeActionInvoke, TypeActionConfirm, TypeActionCancel:
		err = c.handleAction(ctx, msg)
	case TypeFormOpen, TypeFormSet, TypeFormNext, TypeFormPrev,
		TypeFormGoTo, TypeFormSubmit, TypeFormClose:
		err = c.handleForm(ctx, msg)
	default:
		c.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type), nil)
		return
	}
	if err != nil {
		c.fail(ctx, msg.ID, err)
	}
}

func decode(msg ClientMessage, v any) error {
	if len(msg.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return &protocolError{code: "invalid_data", err: fmt.Errorf("invalid %s data: %w", msg.Type, err)}
	}
	return nil
}

func (c *conn) table(ctx context.Context, entityName string, mount bool) (*page.TablePage, error) {
	if t, ok := c.sess.Table(entityName); ok && !mount {
		return t, nil
	}
	if !mount {
		return nil, &protocolError{code: "not_open", err: fmt.Errorf("table %s is not open", entityName)}
	}
	t, err := c.h.pages.Table(ctx, c.sess.ID, entityName)
	if err != nil {
		return nil, err
	}
	c.sess.MountTable(entityName, t)
	return t, nil
}

func (c *conn) handleTable(ctx context.Context, msg ClientMessage) error {
	var data TableData
	if err := decode(msg, &data); err != nil {
		return err
	}
	t, err := c.table(ctx, data.Entity, msg.Type == TypeTableOpen)
	if err != nil {
		return err
	}

	reload := true
	switch msg.Type {
	case TypeTablePage:
		t.SetPage(data.Page)
	case TypeTablePageSize:
		t.Model().SetPageSize(data.Size)
	case TypeTableSort:
		t.Model().ToggleSort(data.Field)
	case TypeTableFilter:
		t.Model().SetFilter(data.Field, data.Value)
	case TypeTableSelect:
		if !t.ToggleSelected(entity.RowID(data.ID)) {
			c.log.WithField("id", data.ID).Debug("ignoring selection of a row that is not rendered")
		}
		reload = false
	case TypeTableSelectAll:
		t.ToggleAll()
		reload = false
	case TypeTableColumn:
		if err := t.ToggleColumn(ctx, data.Field); err != nil {
			return &protocolError{code: "not_configurable", err: err}
		}
		reload = false
	}

	snap := t.Snapshot()
	if reload {
		if snap, err = t.Load(ctx); err != nil {
			return err
		}
	}
	c.send(ctx, ServerMessage{Type: TypeTable, RequestID: msg.ID, Data: snap})
	return nil
}

func (c *conn) handleAction(ctx context.Context, msg ClientMessage) error {
	var data ActionData
	if err := decode(msg, &data); err != nil {
		return err
	}
	t, err := c.table(ctx, data.Entity, false)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeActionInvoke:
		var out action.Outcome
		if data.RowID == "" {
			out, err = t.InvokeBulk(ctx, data.Action)
		} else {
			out, err = t.InvokeRow(ctx, data.Action, entity.RowID(data.RowID))
		}
		if err == nil && out == action.AwaitingConfirmation {
			pending, _ := t.Executor().Pending()
			c.send(ctx, ServerMessage{Type: TypePending, RequestID: msg.ID, Data: pending})
			return nil
		}
	case TypeActionConfirm:
		err = t.Confirm(ctx)
	case TypeActionCancel:
		t.Cancel()
	}

	// Failed actions were already reported as a toast; the table still
	// changes phase, so it is sent either way.
	snap, loadErr := t.Load(ctx)
	if loadErr != nil {
		return loadErr
	}
	c.send(ctx, ServerMessage{Type: TypeTable, RequestID: msg.ID, Data: snap})
	if err != nil && !errors.As(err, new(*action.RowError)) {
		return err
	}
	return nil
}

func (c *conn) handleForm(ctx context.Context, msg ClientMessage) error {
	if msg.Type == TypeFormOpen {
		return c.openForm(ctx, msg)
	}
	f, ok := c.sess.Form()
	if !ok {
		return &protocolError{code: "not_open", err: errors.New("no form is open")}
	}

	var err error
	switch msg.Type {
	case TypeFormSet:
		var data FormSetData
		if err := decode(msg, &data); err != nil {
			return err
		}
		err = f.Set(data.Field, data.Value)
	case TypeFormNext:
		err = f.Next(ctx)
	case TypeFormPrev:
		err = f.Prev()
	case TypeFormGoTo:
		var data FormGoToData
		if err := decode(msg, &data); err != nil {
			return err
		}
		err = f.GoTo(data.Index)
	case TypeFormSubmit:
		_, err = f.Submit(ctx)
	case TypeFormClose:
		c.unwatch()
		c.sess.CloseForm()
		return nil
	}

	c.send(ctx, ServerMessage{Type: TypeForm, RequestID: msg.ID, Data: f.Snapshot()})
	return err
}

func (c *conn) openForm(ctx context.Context, msg ClientMessage) error {
	var data FormOpenData
	if err := decode(msg, &data); err != nil {
		return err
	}
	var (
		f   *page.FormPage
		err error
	)
	if data.ID != "" {
		f, err = c.h.pages.EditForm(ctx, c.sess.ID, data.Entity, entity.RowID(data.ID))
	} else {
		f, err = c.h.pages.CreateForm(c.sess.ID, data.Entity, form.Values(data.Values))
	}
	if err != nil {
		return err
	}
	c.unwatch()
	c.sess.OpenForm(f)
	// Option fetches settle asynchronously; push the form again when they do.
	c.stopWatch = f.Watch(func() {
		if cur, ok := c.sess.Form(); ok && cur == f {
			c.send(ctx, ServerMessage{Type: TypeForm, Data: f.Snapshot()})
		}
	})
	c.send(ctx, ServerMessage{Type: TypeForm, RequestID: msg.ID, Data: f.Snapshot()})
	return nil
}

func (c *conn) unwatch() {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
}

// onEvent runs on the bus goroutine.
func (c *conn) onEvent(ctx context.Context, evt event.Event) {
	switch evt.Type {
	case event.TypeToast:
		c.send(ctx, ServerMessage{Type: TypeToast, Data: ToastData{Entity: evt.Entity, Level: evt.Level, Message: evt.Summary}})
	case event.TypeDataChanged:
		t, ok := c.sess.Table(evt.Entity)
		if !ok {
			return
		}
		snap, err := t.Load(ctx)
		if err != nil {
			c.log.WithError(err).WithField("entity", evt.Entity).Warn("reloading table after change")
			return
		}
		c.send(ctx, ServerMessage{Type: TypeTable, Data: snap})
	}
}

func (c *conn) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		c.log.WithError(err).Debug("write error")
	}
}

func (c *conn) sendError(ctx context.Context, requestID, code, message string, fields map[string]string) {
	c.send(ctx, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message, Fields: fields},
	})
}

func (c *conn) fail(ctx context.Context, requestID string, err error) {
	code, fields := Classify(err)
	c.sendError(ctx, requestID, code, err.Error(), fields)
}

type protocolError struct {
	code string
	err  error
}

func (e *protocolError) Error() string { return e.err.Error() }
func (e *protocolError) Unwrap() error { return e.err }

// Classify maps an error onto a protocol error code, plus field messages for
// validation failures.
func Classify(err error) (string, map[string]string) {
	var (
		pe *protocolError
		ve *form.ValidationError
		ce *entity.ConfigError
	)
	switch {
	case errors.As(err, &pe):
		return pe.code, nil
	case errors.As(err, &ve):
		return "validation", ve.Fields
	case errors.As(err, &ce):
		return "unknown", nil
	case errors.Is(err, action.ErrBusy):
		return "busy", nil
	case errors.Is(err, action.ErrNoTargets):
		return "no_selection", nil
	case errors.Is(err, action.ErrNoPending):
		return "no_pending", nil
	case errors.Is(err, form.ErrSubmitting):
		return "submitting", nil
	case errors.Is(err, wizard.ErrBackDisabled), errors.Is(err, wizard.ErrNotLastStep),
		errors.Is(err, wizard.ErrNavigating), errors.Is(err, page.ErrNotWizard):
		return "navigation", nil
	case errors.Is(err, source.ErrNotFound):
		return "not_found", nil
	case errors.Is(err, source.ErrConflict):
		return "conflict", nil
	default:
		return "internal", nil
	}
}
