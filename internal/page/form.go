package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/dependent"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/wizard"
)

// ErrNotWizard is returned by step navigation on single-page forms.
var ErrNotWizard = errors.New("page: form has no steps")

// Mode tells whether a form creates or edits a record.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// FormDeps extends Deps with the option fetcher of dependent fields.
type FormDeps struct {
	Deps
	// Fetcher loads dependent options. Nil disables dependent fields.
	Fetcher   dependent.Fetcher
	CacheSize int
}

// FieldState is one field as the renderer should draw it.
type FieldState struct {
	form.Descriptor
	Visible bool   `json:"visible"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
	// OptionStatus is set for dependent fields only.
	OptionStatus string `json:"option_status,omitempty"`
}

// FormSnapshot is everything a renderer needs to draw the form.
type FormSnapshot struct {
	Entity     string        `json:"entity"`
	Label      string        `json:"label"`
	Mode       Mode          `json:"mode"`
	ID         entity.RowID  `json:"id,omitempty"`
	Fields     []FieldState  `json:"fields"`
	Wizard     *wizard.State `json:"wizard,omitempty"`
	Submitting bool          `json:"submitting"`
	Saved      entity.Record `json:"saved,omitempty"`
}

// FormPage is one mounted create or edit form.
type FormPage struct {
	bp     *Blueprint
	deps   FormDeps
	log    logrus.FieldLogger
	notify *event.Notifier
	mode   Mode
	id     entity.RowID

	form     *form.Form
	wiz      *wizard.Engine
	resolver *dependent.Resolver

	mu    sync.Mutex
	saved entity.Record
}

// OpenCreate mounts an empty form, prefilled with initial.
func OpenCreate(bp *Blueprint, deps FormDeps, initial form.Values) (*FormPage, error) {
	return open(bp, deps, ModeCreate, "", initial)
}

// OpenEdit loads the record with id and mounts the form on its values.
// Options of dependent fields are loaded for the prefilled dependencies.
func OpenEdit(ctx context.Context, bp *Blueprint, deps FormDeps, id entity.RowID) (*FormPage, error) {
	rec, err := deps.Source.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", bp.Config.Name, id, err)
	}
	initial := form.Values{}
	for _, name := range bp.Config.FieldNames() {
		if v, ok := rec[name]; ok {
			initial[name] = v
		}
	}
	p, err := open(bp, deps, ModeEdit, id, initial)
	if err != nil {
		return nil, err
	}
	if p.resolver != nil {
		p.resolver.RefreshAll()
	}
	return p, nil
}

func open(bp *Blueprint, deps FormDeps, mode Mode, id entity.RowID, initial form.Values) (*FormPage, error) {
	cfg := bp.Config
	p := &FormPage{
		bp:     bp,
		deps:   deps,
		log:    logging.OrDiscard(deps.Log).WithFields(logrus.Fields{"component": "form_page", "entity": cfg.Name, "mode": mode}),
		notify: event.NewNotifier(deps.Publisher, deps.Session, cfg.Name),
		mode:   mode,
		id:     id,
		form:   form.New(bp.Fields, initial),
	}
	if bp.Wizard() {
		p.wiz = wizard.New(p.form, wizard.Config{
			Steps:       bp.Steps,
			DisableBack: cfg.Form.DisableBack,
			FullSchema:  bp.Schema,
			Submit:      p.save,
			Log:         deps.Log,
		})
	}
	if len(bp.Dependent) > 0 && deps.Fetcher != nil {
		r, err := dependent.New(p.form, dependent.Config{
			Fields:    bp.Dependent,
			Endpoints: cfg.Form.Endpoints,
			Fetcher:   deps.Fetcher,
			Debounce:  bp.Debounce,
			CacheSize: deps.CacheSize,
			Log:       deps.Log,
			Metrics:   deps.Metrics,
		})
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("mounting %s form: %w", cfg.Name, err)
		}
		p.resolver = r
	}
	return p, nil
}

// Close stops the wizard and any pending option fetches.
func (p *FormPage) Close() {
	if p.resolver != nil {
		p.resolver.Close()
	}
	if p.wiz != nil {
		p.wiz.Close()
	}
}

func (p *FormPage) Form() *form.Form              { return p.form }
func (p *FormPage) Wizard() *wizard.Engine        { return p.wiz }
func (p *FormPage) Resolver() *dependent.Resolver { return p.resolver }
func (p *FormPage) Mode() Mode                    { return p.mode }

// Watch calls fn after every value change and every settled option fetch.
// The returned func stops the calls from value changes.
func (p *FormPage) Watch(fn func()) func() {
	if p.resolver != nil {
		p.resolver.OnChange(func(dependent.State) { fn() })
	}
	return p.form.Subscribe(func(form.Values) { fn() })
}

// Set writes one field value.
func (p *FormPage) Set(name string, v any) error {
	if _, ok := p.form.Field(name); !ok {
		return &entity.ConfigError{
			Entity:     p.bp.Config.Name,
			Message:    fmt.Sprintf("unknown field %q", name),
			Suggestion: entity.SuggestFrom(name, p.bp.Config.FieldNames(), 2),
		}
	}
	p.form.SetValue(name, v)
	return nil
}

func (p *FormPage) Next(ctx context.Context) error {
	if p.wiz == nil {
		return ErrNotWizard
	}
	return p.wiz.Next(ctx)
}

func (p *FormPage) Prev() error {
	if p.wiz == nil {
		return ErrNotWizard
	}
	return p.wiz.Prev()
}

func (p *FormPage) GoTo(i int) error {
	if p.wiz == nil {
		return ErrNotWizard
	}
	p.wiz.GoTo(i)
	return nil
}

// Submit validates and saves the form. Wizards submit from their last step
// only. Validation failures return a *form.ValidationError and leave the
// errors on the form.
func (p *FormPage) Submit(ctx context.Context) (entity.Record, error) {
	if p.wiz != nil {
		if err := p.wiz.Submit(ctx); err != nil {
			return nil, err
		}
		return p.Saved(), nil
	}

	done, err := p.form.BeginSubmit()
	if err != nil {
		return nil, err
	}
	defer done()
	if err := p.form.Validate(p.bp.Schema, nil); err != nil {
		return nil, err
	}
	if err := p.save(ctx, p.form.Values()); err != nil {
		return nil, fmt.Errorf("submitting: %w", err)
	}
	return p.Saved(), nil
}

// save writes the visible values through the source and invalidates its
// readers. Hidden fields are not sent.
func (p *FormPage) save(ctx context.Context, values form.Values) error {
	cfg := p.bp.Config
	hidden := p.form.Hidden()
	data := make(map[string]any, len(values))
	for _, name := range cfg.FieldNames() {
		if v, ok := values[name]; ok && !hidden[name] {
			data[name] = v
		}
	}

	var (
		rec  entity.Record
		err  error
		verb string
	)
	if p.mode == ModeEdit {
		verb = "updated"
		rec, err = p.deps.Source.Update(ctx, p.id, data)
	} else {
		verb = "created"
		rec, err = p.deps.Source.Create(ctx, data)
	}
	p.deps.Metrics.RowMutated(cfg.Name, err)
	if err != nil {
		p.log.WithError(err).Warn("saving form")
		p.notify.Error(ctx, fmt.Sprintf("Saving %s failed: %v", labelOf(cfg), err))
		return err
	}

	p.mu.Lock()
	p.saved = rec
	if p.mode == ModeCreate {
		p.id = rec.ID()
	}
	p.mu.Unlock()

	if err := p.deps.Source.InvalidateQueries(ctx); err != nil {
		p.log.WithError(err).Warn("invalidating queries after save")
	}
	p.notify.Success(ctx, fmt.Sprintf("%s %s", labelOf(cfg), verb))
	p.log.WithField("id", rec.ID()).Info("form saved")
	return nil
}

// Saved returns the record written by the last successful submit.
func (p *FormPage) Saved() entity.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved
}

// Snapshot describes the form for renderers.
func (p *FormPage) Snapshot() FormSnapshot {
	cfg := p.bp.Config
	values := p.form.Values()
	errs := p.form.Errors()
	hidden := p.form.Hidden()

	var onStep map[string]bool
	if p.wiz != nil {
		onStep = map[string]bool{}
		if step, ok := p.wiz.Current(); ok {
			for _, f := range step.Fields {
				onStep[f] = true
			}
		}
	}

	p.mu.Lock()
	snap := FormSnapshot{
		Entity:     cfg.Name,
		Label:      labelOf(cfg),
		Mode:       p.mode,
		ID:         p.id,
		Submitting: p.form.Submitting(),
		Saved:      p.saved,
	}
	p.mu.Unlock()

	for _, f := range p.form.Fields() {
		name := f.FieldSpec().Name
		fs := FieldState{
			Descriptor: form.Describe(f),
			Visible:    !hidden[name] && (onStep == nil || onStep[name]),
			Value:      values[name],
			Error:      errs[name],
		}
		if p.resolver != nil {
			if st, ok := p.resolver.State(name); ok {
				fs.OptionStatus = st.Status.String()
				fs.Options = st.Options
			}
		}
		snap.Fields = append(snap.Fields, fs)
	}
	if p.wiz != nil {
		st := p.wiz.State()
		snap.Wizard = &st
	}
	return snap
}

func labelOf(cfg *entity.Config) string {
	if cfg.Label != "" {
		return cfg.Label
	}
	return cfg.Name
}
