// Package wizard sequences the steps of a multi-step form. Steps are filtered
// by their condition on every form change, forward navigation is gated on the
// current step's schema, and submission validates the whole form.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/logging"
)

var (
	// ErrBackDisabled is returned by Prev when back navigation is off.
	ErrBackDisabled = errors.New("wizard: back navigation is disabled")
	// ErrNoSteps is returned when no step is currently visible.
	ErrNoSteps = errors.New("wizard: no visible steps")
	// ErrNotLastStep is returned by Submit before the last step.
	ErrNotLastStep = errors.New("wizard: submit is only available on the last step")
	// ErrNavigating is returned when Next runs while a previous Next is
	// still completing its step.
	ErrNavigating = errors.New("wizard: step completion in progress")
)

// Step is one page of the wizard.
type Step struct {
	ID          string
	Title       string
	Description string
	Fields      []string
	Schema      form.Schema
	Condition   form.Condition
}

func (s Step) visible(v form.Values) bool {
	return s.Condition == nil || s.Condition(v)
}

// Config configures an Engine.
type Config struct {
	Steps       []Step
	DisableBack bool
	// FullSchema is checked on submit in addition to every visible step's
	// schema.
	FullSchema form.Schema
	// OnStepComplete runs after a step validates and before the index moves.
	OnStepComplete func(ctx context.Context, stepID string, data form.Values) error
	Submit         func(ctx context.Context, data form.Values) error
	Log            logrus.FieldLogger
}

// State is a snapshot of the engine for renderers.
type State struct {
	Index      int      `json:"index"`
	Count      int      `json:"count"`
	StepID     string   `json:"step_id"`
	Title      string   `json:"title"`
	Fields     []string `json:"fields"`
	IsFirst    bool     `json:"is_first"`
	IsLast     bool     `json:"is_last"`
	CanGoBack  bool     `json:"can_go_back"`
	Submitting bool     `json:"submitting"`
}

// Engine drives one mounted wizard.
type Engine struct {
	cfg  Config
	form *form.Form
	log  logrus.FieldLogger

	mu         sync.Mutex
	active     []Step
	index      int
	navigating bool
	unsub      func()
}

// New binds an engine to f and starts tracking its values.
func New(f *form.Form, cfg Config) *Engine {
	e := &Engine{
		cfg:  cfg,
		form: f,
		log:  logging.OrDiscard(cfg.Log).WithField("component", "wizard"),
	}
	e.refilter(f.Values())
	e.unsub = f.Subscribe(e.refilter)
	return e
}

// Close stops tracking form changes.
func (e *Engine) Close() {
	e.mu.Lock()
	unsub := e.unsub
	e.unsub = nil
	e.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (e *Engine) refilter(v form.Values) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = e.active[:0]
	for _, s := range e.cfg.Steps {
		if s.visible(v) {
			e.active = append(e.active, s)
		}
	}
	e.index = clamp(e.index, len(e.active))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Steps returns the currently visible steps.
func (e *Engine) Steps() []Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Step(nil), e.active...)
}

// Index returns the current step index.
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Current returns the current step.
func (e *Engine) Current() (Step, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.active) == 0 {
		return Step{}, false
	}
	return e.active[e.index], true
}

func (e *Engine) IsFirst() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index == 0
}

func (e *Engine) IsLast() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index >= len(e.active)-1
}

// State returns a snapshot for renderers.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Index:      e.index,
		Count:      len(e.active),
		IsFirst:    e.index == 0,
		IsLast:     e.index >= len(e.active)-1,
		CanGoBack:  !e.cfg.DisableBack && e.index > 0,
		Submitting: e.form.Submitting(),
	}
	if len(e.active) > 0 {
		s := e.active[e.index]
		st.StepID, st.Title, st.Fields = s.ID, s.Title, s.Fields
	}
	return st
}

// Next validates the current step and advances. A failed validation leaves
// the index unchanged, attaches the errors to the form and returns a
// *form.ValidationError.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	if len(e.active) == 0 {
		e.mu.Unlock()
		return ErrNoSteps
	}
	if e.navigating {
		e.mu.Unlock()
		return ErrNavigating
	}
	step := e.active[e.index]
	e.navigating = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.navigating = false
		e.mu.Unlock()
	}()

	fields := step.Fields
	if fields == nil {
		fields = []string{}
	}
	if err := e.form.Validate(step.Schema, fields); err != nil {
		e.log.WithField("step", step.ID).Debug("step validation failed")
		return err
	}
	if e.cfg.OnStepComplete != nil {
		if err := e.cfg.OnStepComplete(ctx, step.ID, e.form.Values()); err != nil {
			return fmt.Errorf("completing step %s: %w", step.ID, err)
		}
	}

	e.mu.Lock()
	e.index = clamp(e.index+1, len(e.active))
	e.mu.Unlock()
	return nil
}

// Prev moves back one step, clamped at the first.
func (e *Engine) Prev() error {
	if e.cfg.DisableBack {
		return ErrBackDisabled
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = clamp(e.index-1, len(e.active))
	return nil
}

// GoTo jumps to step i, clamped, without validating.
func (e *Engine) GoTo(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = clamp(i, len(e.active))
}

// Submit validates every visible step plus the full schema and then calls
// the submit handler. On validation failure the engine moves to the first
// step holding an error. Duplicate submissions return form.ErrSubmitting.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	empty := len(e.active) == 0
	e.mu.Unlock()
	if empty {
		return ErrNoSteps
	}
	if !e.IsLast() {
		return ErrNotLastStep
	}
	done, err := e.form.BeginSubmit()
	if err != nil {
		return err
	}
	defer done()

	steps := e.Steps()
	schemas := []form.Schema{e.cfg.FullSchema}
	for _, s := range steps {
		schemas = append(schemas, s.Schema)
	}
	if err := e.form.Validate(form.All(schemas...), nil); err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			e.focusFirstError(steps, ve.Fields)
		}
		return err
	}
	if e.cfg.Submit == nil {
		return nil
	}
	if err := e.cfg.Submit(ctx, e.form.Values()); err != nil {
		return fmt.Errorf("submitting: %w", err)
	}
	return nil
}

func (e *Engine) focusFirstError(steps []Step, errs map[string]string) {
	for i, s := range steps {
		for _, f := range s.Fields {
			if _, ok := errs[f]; ok {
				e.GoTo(i)
				return
			}
		}
	}
}
