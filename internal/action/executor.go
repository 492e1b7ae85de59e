// Package action runs bulk and row actions for an entity table through a
// single-writer state machine: Idle, PendingConfirmation, Executing.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/metrics"
)

var (
	// ErrBusy is returned when an action is invoked while another one is
	// awaiting confirmation or executing.
	ErrBusy = errors.New("action: another action is pending or executing")
	// ErrNoPending is returned by Confirm when nothing awaits confirmation.
	ErrNoPending = errors.New("action: nothing awaiting confirmation")
	// ErrNoTargets is returned when a bulk action is invoked on no rows.
	ErrNoTargets = errors.New("action: no rows selected")
)

// Phase is the executor state.
type Phase int

const (
	Idle Phase = iota
	PendingConfirmation
	Executing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case PendingConfirmation:
		return "pending_confirmation"
	case Executing:
		return "executing"
	default:
		return "unknown"
	}
}

// Outcome tells the caller what an invocation did.
type Outcome int

const (
	// Executed means the action ran (successfully or not).
	Executed Outcome = iota
	// AwaitingConfirmation means the action is parked until Confirm or Cancel.
	AwaitingConfirmation
)

// Selection is the table selection cleared after a successful action.
type Selection interface {
	ClearSelection()
}

// Invalidator refetches the backing data after a successful action.
type Invalidator interface {
	InvalidateQueries(ctx context.Context) error
}

// Notifier surfaces results to the user.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// Confirm describes the confirmation prompt of an action. The message is
// taken from BulkMessage or RowMessage when set, else Message. An action
// whose message resolves to "" runs without confirmation.
type Confirm struct {
	Message     string
	BulkMessage func(count int) string
	RowMessage  func(row entity.Record) string
}

func (c *Confirm) bulkMessage(count int) string {
	if c == nil {
		return ""
	}
	if c.BulkMessage != nil {
		return c.BulkMessage(count)
	}
	return c.Message
}

func (c *Confirm) rowMessage(row entity.Record) string {
	if c == nil {
		return ""
	}
	if c.RowMessage != nil {
		return c.RowMessage(row)
	}
	return c.Message
}

// BulkAction operates on the selected rows.
type BulkAction struct {
	ID             string
	Label          string
	Variant        string
	Confirm        *Confirm
	SuccessMessage string
	Run            func(ctx context.Context, rows []entity.Record) error
}

// RowAction operates on one row.
type RowAction struct {
	ID             string
	Label          string
	Variant        string
	Confirm        *Confirm
	SuccessMessage string
	Run            func(ctx context.Context, row entity.Record) error
}

// Pending describes the invocation awaiting confirmation.
type Pending struct {
	InvocationID string          `json:"invocation_id"`
	ActionID     string          `json:"action_id"`
	Label        string          `json:"label"`
	Bulk         bool            `json:"bulk"`
	Targets      []entity.Record `json:"targets"`
	Message      string          `json:"message"`
}

// Config wires an Executor to its collaborators. Only Selection is required.
type Config struct {
	Entity      string
	Selection   Selection
	Invalidator Invalidator
	Notifier    Notifier
	Log         logrus.FieldLogger
	Metrics     *metrics.Metrics
}

// Executor owns the action state machine for one table.
type Executor struct {
	cfg Config
	log logrus.FieldLogger

	mu      sync.Mutex
	phase   Phase
	pending *invocation
}

type invocation struct {
	Pending
	success string
	run     func(ctx context.Context) error
}

// NewExecutor creates an idle Executor.
func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg: cfg,
		log: logging.OrDiscard(cfg.Log).WithFields(logrus.Fields{"component": "action", "entity": cfg.Entity}),
	}
}

// Phase returns the current state.
func (e *Executor) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Pending returns the invocation awaiting confirmation, if any.
func (e *Executor) Pending() (Pending, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PendingConfirmation || e.pending == nil {
		return Pending{}, false
	}
	return e.pending.Pending, true
}

// InvokeBulk starts a bulk action on rows.
func (e *Executor) InvokeBulk(ctx context.Context, a BulkAction, rows []entity.Record) (Outcome, error) {
	if len(rows) == 0 {
		return Executed, ErrNoTargets
	}
	targets := append([]entity.Record(nil), rows...)
	inv := &invocation{
		Pending: Pending{
			ActionID: a.ID,
			Label:    a.Label,
			Bulk:     true,
			Targets:  targets,
			Message:  a.Confirm.bulkMessage(len(targets)),
		},
		success: a.SuccessMessage,
		run: func(ctx context.Context) error {
			return a.Run(ctx, targets)
		},
	}
	return e.invoke(ctx, inv)
}

// InvokeRow starts a row action on row.
func (e *Executor) InvokeRow(ctx context.Context, a RowAction, row entity.Record) (Outcome, error) {
	inv := &invocation{
		Pending: Pending{
			ActionID: a.ID,
			Label:    a.Label,
			Targets:  []entity.Record{row},
			Message:  a.Confirm.rowMessage(row),
		},
		success: a.SuccessMessage,
		run: func(ctx context.Context) error {
			return a.Run(ctx, row)
		},
	}
	return e.invoke(ctx, inv)
}

func (e *Executor) invoke(ctx context.Context, inv *invocation) (Outcome, error) {
	inv.InvocationID = uuid.NewString()

	e.mu.Lock()
	if e.phase != Idle {
		e.mu.Unlock()
		return Executed, ErrBusy
	}
	if inv.Message != "" {
		e.phase = PendingConfirmation
		e.pending = inv
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{"action": inv.ActionID, "invocation": inv.InvocationID}).Debug("awaiting confirmation")
		return AwaitingConfirmation, nil
	}
	e.phase = Executing
	e.mu.Unlock()

	return Executed, e.execute(ctx, inv)
}

// Confirm runs the pending invocation.
func (e *Executor) Confirm(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != PendingConfirmation || e.pending == nil {
		e.mu.Unlock()
		return ErrNoPending
	}
	inv := e.pending
	e.pending = nil
	e.phase = Executing
	e.mu.Unlock()

	return e.execute(ctx, inv)
}

// Cancel drops the pending invocation without side effects. It reports
// whether there was one.
func (e *Executor) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PendingConfirmation {
		return false
	}
	e.cfg.Metrics.ActionFinished(e.cfg.Entity, e.pending.ActionID, metrics.OutcomeCancelled)
	e.pending = nil
	e.phase = Idle
	return true
}

func (e *Executor) execute(ctx context.Context, inv *invocation) error {
	defer func() {
		e.mu.Lock()
		e.phase = Idle
		e.mu.Unlock()
	}()

	log := e.log.WithFields(logrus.Fields{
		"action":     inv.ActionID,
		"invocation": inv.InvocationID,
		"targets":    len(inv.Targets),
	})

	if err := inv.run(ctx); err != nil {
		log.WithError(err).Warn("action failed")
		e.cfg.Metrics.ActionFinished(e.cfg.Entity, inv.ActionID, metrics.OutcomeFailed)
		if e.cfg.Notifier != nil {
			e.cfg.Notifier.Error(ctx, fmt.Sprintf("%s failed: %v", labelOf(inv), err))
		}
		return fmt.Errorf("running action %s: %w", inv.ActionID, err)
	}

	if e.cfg.Invalidator != nil {
		if err := e.cfg.Invalidator.InvalidateQueries(ctx); err != nil {
			log.WithError(err).Warn("invalidating queries after action")
		}
	}
	if e.cfg.Selection != nil {
		e.cfg.Selection.ClearSelection()
	}
	e.cfg.Metrics.ActionFinished(e.cfg.Entity, inv.ActionID, metrics.OutcomeSucceeded)
	if e.cfg.Notifier != nil {
		msg := inv.success
		if msg == "" {
			msg = labelOf(inv) + " completed"
		}
		e.cfg.Notifier.Success(ctx, msg)
	}
	log.Info("action completed")
	return nil
}

func labelOf(inv *invocation) string {
	if inv.Label != "" {
		return inv.Label
	}
	return inv.ActionID
}
