package page

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/action"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/metrics"
	"github.com/matthewbaird/entityui/internal/pagination"
	"github.com/matthewbaird/entityui/internal/prefstore"
	"github.com/matthewbaird/entityui/internal/source"
	"github.com/matthewbaird/entityui/internal/table"
	"github.com/matthewbaird/entityui/internal/visibility"
)

// Deps are the collaborators shared by table and form pages of a session.
type Deps struct {
	Source source.Source
	// Prefs persists column visibility. Nil disables persistence.
	Prefs prefstore.Store
	// Publisher receives toasts. Nil drops them.
	Publisher event.Publisher
	Session   string
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// Column is a configured column with its current visibility.
type Column struct {
	entity.ColumnConfig
	Hidden bool `json:"hidden"`
}

// ActionInfo describes an action button.
type ActionInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

// TableSnapshot is everything a renderer needs to draw the table.
type TableSnapshot struct {
	Entity      string            `json:"entity"`
	Label       string            `json:"label"`
	State       table.State       `json:"state"`
	Rows        []entity.Record   `json:"rows"`
	Total       int               `json:"total"`
	MaxPage     int               `json:"max_page"`
	Pages       []pagination.Item `json:"pages"`
	Columns     []Column          `json:"columns"`
	AllSelected bool              `json:"all_selected"`
	BulkActions []ActionInfo      `json:"bulk_actions"`
	RowActions  []ActionInfo      `json:"row_actions"`
	Phase       string            `json:"phase"`
	Pending     *action.Pending   `json:"pending,omitempty"`
}

// TablePage is one mounted entity table.
type TablePage struct {
	bp      *Blueprint
	deps    Deps
	log     logrus.FieldLogger
	model   *table.Model
	columns *visibility.Store
	exec    *action.Executor
	bulk    map[string]action.BulkAction
	row     map[string]action.RowAction

	mu   sync.Mutex
	view table.View
}

// NewTablePage mounts the table of bp. Persisted column visibility is read
// here; no data is fetched until Load.
func NewTablePage(ctx context.Context, bp *Blueprint, deps Deps) *TablePage {
	cfg := bp.Config
	log := logging.OrDiscard(deps.Log).WithFields(logrus.Fields{"component": "table_page", "entity": cfg.Name})

	var opts []table.Option
	if cfg.Table.PageSize > 0 {
		opts = append(opts, table.WithPageSize(cfg.Table.PageSize))
	}
	if s := cfg.Table.DefaultSort; s != nil {
		opts = append(opts, table.WithSort(table.Sort{Field: s.Field, Direction: table.Direction(s.Direction)}))
	}
	model := table.NewModel(opts...)

	vis := cfg.Table.Visibility
	p := &TablePage{
		bp:    bp,
		deps:  deps,
		log:   log,
		model: model,
		columns: visibility.Open(ctx, visibility.Config{
			StorageKey:       vis.StorageKey,
			DefaultHidden:    vis.DefaultHidden,
			UserConfigurable: vis.UserConfigurable,
		}, deps.Prefs, cfg.ColumnNames(), deps.Log),
		bulk: make(map[string]action.BulkAction),
		row:  make(map[string]action.RowAction),
	}
	p.exec = action.NewExecutor(action.Config{
		Entity:      cfg.Name,
		Selection:   model,
		Invalidator: deps.Source,
		Notifier:    event.NewNotifier(deps.Publisher, deps.Session, cfg.Name),
		Log:         deps.Log,
		Metrics:     deps.Metrics,
	})
	for _, ac := range cfg.Table.BulkActions {
		p.bulk[ac.ID] = p.bulkAction(ac)
	}
	for _, ac := range cfg.Table.RowActions {
		p.row[ac.ID] = p.rowAction(ac)
	}
	return p
}

func (p *TablePage) bulkAction(ac entity.ActionConfig) action.BulkAction {
	a := action.StatusChange{
		ID:      ac.ID,
		Label:   ac.Label,
		Variant: ac.Variant,
		Field:   ac.Field,
		Status:  ac.Status,
		Updater: p.deps.Source,
		Entity:  p.bp.Config.Name,
		Metrics: p.deps.Metrics,
	}
	if ac.Confirm != "" {
		tmpl := ac.Confirm
		a.Confirm = &action.Confirm{BulkMessage: func(n int) string { return entity.ExpandCount(tmpl, n) }}
	}
	b := a.BulkAction()
	b.SuccessMessage = ac.SuccessMessage
	return b
}

func (p *TablePage) rowAction(ac entity.ActionConfig) action.RowAction {
	field := ac.Field
	if field == "" {
		field = "status"
	}
	a := action.RowAction{
		ID:             ac.ID,
		Label:          ac.Label,
		Variant:        ac.Variant,
		SuccessMessage: ac.SuccessMessage,
		Run: func(ctx context.Context, row entity.Record) error {
			_, err := p.deps.Source.Update(ctx, row.ID(), map[string]any{field: ac.Status})
			p.deps.Metrics.RowMutated(p.bp.Config.Name, err)
			return err
		},
	}
	if ac.Confirm != "" {
		tmpl := ac.Confirm
		a.Confirm = &action.Confirm{RowMessage: func(r entity.Record) string { return entity.ExpandRecord(tmpl, r) }}
	}
	return a
}

// Model exposes the table state for direct mutation. Call Load afterwards.
func (p *TablePage) Model() *table.Model { return p.model }

// Columns exposes the column visibility store.
func (p *TablePage) Columns() *visibility.Store { return p.columns }

// Executor exposes the action state machine.
func (p *TablePage) Executor() *action.Executor { return p.exec }

// Load fetches rows for the current state. A page beyond the last one is
// clamped and fetched again. Selected ids that are no longer rendered are
// dropped.
func (p *TablePage) Load(ctx context.Context) (TableSnapshot, error) {
	eq := p.bp.Config.Table.EqualsFilters
	st := p.model.Snapshot()
	view, err := p.fetch(ctx, st, eq)
	if err != nil {
		return TableSnapshot{}, err
	}
	if st.Page > view.MaxPage {
		p.model.ClampPage(view.MaxPage)
		st = p.model.Snapshot()
		if view, err = p.fetch(ctx, st, eq); err != nil {
			return TableSnapshot{}, err
		}
	}
	p.model.Retain(view.IDs())

	p.mu.Lock()
	p.view = view
	p.mu.Unlock()
	return p.Snapshot(), nil
}

func (p *TablePage) fetch(ctx context.Context, st table.State, eq []string) (table.View, error) {
	res, err := p.deps.Source.GetAll(ctx, st.QueryParams(eq))
	if err != nil {
		return table.View{}, fmt.Errorf("loading %s: %w", p.bp.Config.Name, err)
	}
	return table.Resolve(st, res, eq), nil
}

// Snapshot describes the last loaded page without fetching.
func (p *TablePage) Snapshot() TableSnapshot {
	cfg := p.bp.Config
	p.mu.Lock()
	view := p.view
	p.mu.Unlock()

	st := p.model.Snapshot()
	maxPage := view.MaxPage
	if maxPage < 1 {
		maxPage = 1
	}
	snap := TableSnapshot{
		Entity:      cfg.Name,
		Label:       cfg.Label,
		State:       st,
		Rows:        view.Rows,
		Total:       view.Total,
		MaxPage:     maxPage,
		Pages:       pagination.Window(st.Page, maxPage, cfg.Table.MaxButtons),
		AllSelected: p.model.AllSelected(view.IDs()),
		Phase:       p.exec.Phase().String(),
	}
	if snap.Rows == nil {
		snap.Rows = []entity.Record{}
	}
	for _, c := range cfg.Table.Columns {
		snap.Columns = append(snap.Columns, Column{ColumnConfig: c, Hidden: p.columns.IsHidden(c.Field)})
	}
	for _, a := range cfg.Table.BulkActions {
		snap.BulkActions = append(snap.BulkActions, ActionInfo{ID: a.ID, Label: a.Label, Variant: a.Variant})
	}
	for _, a := range cfg.Table.RowActions {
		snap.RowActions = append(snap.RowActions, ActionInfo{ID: a.ID, Label: a.Label, Variant: a.Variant})
	}
	if pending, ok := p.exec.Pending(); ok {
		snap.Pending = &pending
	}
	return snap
}

// SetPage moves to page n and clears the selection, since the rendered rows
// change.
func (p *TablePage) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	if p.model.Snapshot().Page == n {
		return
	}
	p.model.SetPage(n)
	p.model.ClearSelection()
}

// ToggleColumn flips the visibility of field when the table allows it.
func (p *TablePage) ToggleColumn(ctx context.Context, field string) error {
	if !p.columns.UserConfigurable() {
		return fmt.Errorf("columns of %s are not configurable", p.bp.Config.Name)
	}
	p.columns.Toggle(ctx, field)
	return nil
}

// ToggleSelected flips the selection of the rendered row with id. Ids that
// are not on the current page are ignored and false is returned.
func (p *TablePage) ToggleSelected(id entity.RowID) bool {
	p.mu.Lock()
	rendered := false
	for _, r := range p.view.Rows {
		if r.ID() == id {
			rendered = true
			break
		}
	}
	p.mu.Unlock()
	if !rendered {
		return false
	}
	p.model.ToggleSelected(id)
	return true
}

// ToggleAll selects or deselects every rendered row.
func (p *TablePage) ToggleAll() {
	p.mu.Lock()
	ids := p.view.IDs()
	p.mu.Unlock()
	p.model.ToggleAll(ids)
}

// SelectedRows returns the rendered rows that are selected, in display order.
func (p *TablePage) SelectedRows() []entity.Record {
	p.mu.Lock()
	rows := p.view.Rows
	p.mu.Unlock()
	var out []entity.Record
	for _, r := range rows {
		if p.model.IsSelected(r.ID()) {
			out = append(out, r)
		}
	}
	return out
}

// InvokeBulk runs bulk action id on the selected rows.
func (p *TablePage) InvokeBulk(ctx context.Context, id string) (action.Outcome, error) {
	a, ok := p.bulk[id]
	if !ok {
		return action.Executed, p.unknownAction(id, p.bp.Config.Table.BulkActions)
	}
	return p.exec.InvokeBulk(ctx, a, p.SelectedRows())
}

// InvokeRow runs row action id on the row with rowID. The row is taken from
// the rendered page when present, else fetched.
func (p *TablePage) InvokeRow(ctx context.Context, id string, rowID entity.RowID) (action.Outcome, error) {
	a, ok := p.row[id]
	if !ok {
		return action.Executed, p.unknownAction(id, p.bp.Config.Table.RowActions)
	}
	row, err := p.rowByID(ctx, rowID)
	if err != nil {
		return action.Executed, err
	}
	return p.exec.InvokeRow(ctx, a, row)
}

func (p *TablePage) rowByID(ctx context.Context, id entity.RowID) (entity.Record, error) {
	p.mu.Lock()
	for _, r := range p.view.Rows {
		if r.ID() == id {
			p.mu.Unlock()
			return r, nil
		}
	}
	p.mu.Unlock()
	row, err := p.deps.Source.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", p.bp.Config.Name, id, err)
	}
	return row, nil
}

func (p *TablePage) unknownAction(id string, actions []entity.ActionConfig) error {
	ids := make([]string, len(actions))
	for i, a := range actions {
		ids[i] = a.ID
	}
	return &entity.ConfigError{
		Entity:     p.bp.Config.Name,
		Message:    fmt.Sprintf("unknown action %q", id),
		Suggestion: entity.SuggestFrom(id, ids, 2),
	}
}

// Confirm runs the pending action.
func (p *TablePage) Confirm(ctx context.Context) error {
	return p.exec.Confirm(ctx)
}

// Cancel drops the pending action.
func (p *TablePage) Cancel() bool {
	return p.exec.Cancel()
}
