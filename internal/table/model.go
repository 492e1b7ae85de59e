// Package table holds the state model behind an entity table: pagination,
// sorting, filters and page-local row selection.
package table

import (
	"sort"
	"sync"

	"github.com/matthewbaird/entityui/internal/entity"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is a single-column sort descriptor.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// State is a point-in-time copy of a table's state.
type State struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Sort     *Sort             `json:"sort,omitempty"`
	Filters  map[string]string `json:"filters"`
	Selected []entity.RowID    `json:"selected"`
}

// Model owns the state of one table instance. All mutators are synchronous,
// never fail, and clamp out-of-range input.
type Model struct {
	mu          sync.Mutex
	maxPageSize int
	initial     State

	page     int
	pageSize int
	sort     *Sort
	filters  map[string]string
	selected map[entity.RowID]struct{}
}

// Option configures a Model.
type Option func(*Model)

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(m *Model) { m.initial.PageSize = n }
}

// WithSort sets the initial sort.
func WithSort(s Sort) Option {
	return func(m *Model) { m.initial.Sort = normalizeSort(&s) }
}

// WithMaxPageSize overrides the page size ceiling.
func WithMaxPageSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxPageSize = n
		}
	}
}

// NewModel creates a Model at page 1 with no filters or selection.
func NewModel(opts ...Option) *Model {
	m := &Model{
		maxPageSize: MaxPageSize,
		initial:     State{Page: 1, PageSize: DefaultPageSize},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initial.PageSize = m.clampPageSize(m.initial.PageSize)
	m.resetLocked()
	return m
}

func (m *Model) resetLocked() {
	m.page = 1
	m.pageSize = m.initial.PageSize
	m.sort = copySort(m.initial.Sort)
	m.filters = make(map[string]string)
	m.selected = make(map[entity.RowID]struct{})
}

func (m *Model) clampPageSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > m.maxPageSize {
		return m.maxPageSize
	}
	return n
}

// SetPage moves to page p. Selection is left alone; the caller clears it
// once the new row set is known.
func (m *Model) SetPage(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p < 1 {
		p = 1
	}
	m.page = p
}

// SetPageSize changes the page size, returns to page 1 and clears the
// selection.
func (m *Model) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = m.clampPageSize(n)
	m.page = 1
	m.selected = make(map[entity.RowID]struct{})
}

// SetSort replaces the sort descriptor and returns to page 1. A nil sort or
// an empty field clears sorting.
func (m *Model) SetSort(s *Sort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sort = normalizeSort(s)
	m.page = 1
}

// ToggleSort sorts by field ascending, or flips the direction when field is
// already the sort column.
func (m *Model) ToggleSort(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := &Sort{Field: field, Direction: Asc}
	if m.sort != nil && m.sort.Field == field && m.sort.Direction == Asc {
		next.Direction = Desc
	}
	m.sort = normalizeSort(next)
	m.page = 1
}

// SetFilters replaces the filter map and returns to page 1. Empty values are
// dropped.
func (m *Model) SetFilters(f map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = make(map[string]string, len(f))
	for k, v := range f {
		if v != "" {
			m.filters[k] = v
		}
	}
	m.page = 1
}

// SetFilter sets or clears one filter and returns to page 1.
func (m *Model) SetFilter(field, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.filters, field)
	} else {
		m.filters[field] = value
	}
	m.page = 1
}

// ToggleSelected adds id to the selection, or removes it if present.
func (m *Model) ToggleSelected(id entity.RowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
		return
	}
	m.selected[id] = struct{}{}
}

// ToggleAll deselects exactly the visible ids when all of them are already
// selected, otherwise selects exactly those ids. Rows off the current page
// are never touched.
func (m *Model) ToggleAll(visible []entity.RowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(visible) == 0 {
		return
	}
	if m.allSelectedLocked(visible) {
		for _, id := range visible {
			delete(m.selected, id)
		}
		return
	}
	for _, id := range visible {
		m.selected[id] = struct{}{}
	}
}

// AllSelected reports whether every visible id is selected.
func (m *Model) AllSelected(visible []entity.RowID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(visible) > 0 && m.allSelectedLocked(visible)
}

func (m *Model) allSelectedLocked(visible []entity.RowID) bool {
	for _, id := range visible {
		if _, ok := m.selected[id]; !ok {
			return false
		}
	}
	return true
}

// IsSelected reports whether id is selected.
func (m *Model) IsSelected(id entity.RowID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.selected[id]
	return ok
}

// ClearSelection empties the selection.
func (m *Model) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = make(map[entity.RowID]struct{})
}

// Retain drops selected ids that are not in rendered.
func (m *Model) Retain(rendered []entity.RowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[entity.RowID]struct{}, len(rendered))
	for _, id := range rendered {
		if _, ok := m.selected[id]; ok {
			keep[id] = struct{}{}
		}
	}
	m.selected = keep
}

// SelectedIDs returns the selection ordered like an id column sort:
// numerically when ids are numbers, so "2" precedes "10".
func (m *Model) SelectedIDs() []entity.RowID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedLocked()
}

func (m *Model) selectedLocked() []entity.RowID {
	ids := make([]entity.RowID, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if c := compareValues(string(ids[i]), string(ids[j])); c != 0 {
			return c < 0
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ClampPage pulls the current page back inside [1, maxPage].
func (m *Model) ClampPage(maxPage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if maxPage < 1 {
		maxPage = 1
	}
	if m.page > maxPage {
		m.page = maxPage
	}
}

// Reset returns to the initial state.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// Snapshot returns a deep copy of the current state.
func (m *Model) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	filters := make(map[string]string, len(m.filters))
	for k, v := range m.filters {
		filters[k] = v
	}
	return State{
		Page:     m.page,
		PageSize: m.pageSize,
		Sort:     copySort(m.sort),
		Filters:  filters,
		Selected: m.selectedLocked(),
	}
}

func normalizeSort(s *Sort) *Sort {
	if s == nil || s.Field == "" {
		return nil
	}
	dir := Asc
	if s.Direction == Desc {
		dir = Desc
	}
	return &Sort{Field: s.Field, Direction: dir}
}

func copySort(s *Sort) *Sort {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
