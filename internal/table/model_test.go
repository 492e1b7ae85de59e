package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/entityui/internal/entity"
)

func ids(xs ...string) []entity.RowID {
	out := make([]entity.RowID, len(xs))
	for i, x := range xs {
		out[i] = entity.RowID(x)
	}
	return out
}

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel()
	st := m.Snapshot()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, DefaultPageSize, st.PageSize)
	assert.Nil(t, st.Sort)
	assert.Empty(t, st.Filters)
	assert.Empty(t, st.Selected)
}

func TestSetPage_ClampsAndKeepsSelection(t *testing.T) {
	m := NewModel()
	m.ToggleSelected("1")

	m.SetPage(-4)
	assert.Equal(t, 1, m.Snapshot().Page)

	m.SetPage(3)
	st := m.Snapshot()
	assert.Equal(t, 3, st.Page)
	assert.Equal(t, ids("1"), st.Selected)
}

func TestSetPageSize_ResetsPageAndSelection(t *testing.T) {
	for _, n := range []int{-1, 0, 10, 50, 5000} {
		m := NewModel()
		m.SetPage(7)
		m.ToggleAll(ids("3", "4", "5"))

		m.SetPageSize(n)

		st := m.Snapshot()
		assert.Equal(t, 1, st.Page, "n=%d", n)
		assert.Empty(t, st.Selected, "n=%d", n)
		assert.GreaterOrEqual(t, st.PageSize, 1)
		assert.LessOrEqual(t, st.PageSize, MaxPageSize)
	}
}

func TestSetSortAndFilters_ResetPage(t *testing.T) {
	m := NewModel()
	for _, page := range []int{1, 2, 9} {
		m.SetPage(page)
		m.SetSort(&Sort{Field: "name", Direction: Desc})
		assert.Equal(t, 1, m.Snapshot().Page)

		m.SetPage(page)
		m.SetFilters(map[string]string{"name": "ac"})
		assert.Equal(t, 1, m.Snapshot().Page)

		m.SetPage(page)
		m.ToggleSort("name")
		assert.Equal(t, 1, m.Snapshot().Page)

		m.SetPage(page)
		m.SetFilter("status", "active")
		assert.Equal(t, 1, m.Snapshot().Page)
	}
}

func TestSetSort_Normalizes(t *testing.T) {
	m := NewModel()
	m.SetSort(&Sort{Field: "name", Direction: "sideways"})
	assert.Equal(t, &Sort{Field: "name", Direction: Asc}, m.Snapshot().Sort)

	m.SetSort(&Sort{})
	assert.Nil(t, m.Snapshot().Sort)
}

func TestToggleSort_FlipsDirection(t *testing.T) {
	m := NewModel()
	m.ToggleSort("name")
	assert.Equal(t, Asc, m.Snapshot().Sort.Direction)
	m.ToggleSort("name")
	assert.Equal(t, Desc, m.Snapshot().Sort.Direction)
	m.ToggleSort("name")
	assert.Equal(t, Asc, m.Snapshot().Sort.Direction)
	m.ToggleSort("status")
	assert.Equal(t, &Sort{Field: "status", Direction: Asc}, m.Snapshot().Sort)
}

func TestSetFilters_DropsEmptyAndCopies(t *testing.T) {
	m := NewModel()
	in := map[string]string{"name": "ac", "city": ""}
	m.SetFilters(in)
	in["name"] = "mutated"

	assert.Equal(t, map[string]string{"name": "ac"}, m.Snapshot().Filters)

	m.SetFilter("name", "")
	assert.Empty(t, m.Snapshot().Filters)
}

func TestToggleSelected_Symmetric(t *testing.T) {
	m := NewModel()
	m.ToggleSelected("7")
	assert.True(t, m.IsSelected("7"))
	m.ToggleSelected("7")
	assert.False(t, m.IsSelected("7"))
}

func TestToggleAll_TwiceRestoresSelection(t *testing.T) {
	m := NewModel()
	m.ToggleSelected("1")
	before := m.SelectedIDs()

	visible := ids("3", "4", "5")
	m.ToggleAll(visible)
	assert.Equal(t, ids("1", "3", "4", "5"), m.SelectedIDs())
	assert.True(t, m.AllSelected(visible))

	m.ToggleAll(visible)
	assert.Equal(t, before, m.SelectedIDs())
}

func TestToggleAll_PartialSelectionSelectsAll(t *testing.T) {
	m := NewModel()
	m.ToggleSelected("4")

	m.ToggleAll(ids("3", "4", "5"))
	assert.Equal(t, ids("3", "4", "5"), m.SelectedIDs())
}

func TestRetain(t *testing.T) {
	m := NewModel()
	m.ToggleAll(ids("1", "2", "3"))
	m.Retain(ids("2", "3", "9"))
	assert.Equal(t, ids("2", "3"), m.SelectedIDs())
}

func TestClampPage(t *testing.T) {
	m := NewModel()
	m.SetPage(12)
	m.ClampPage(4)
	assert.Equal(t, 4, m.Snapshot().Page)
	m.ClampPage(0)
	assert.Equal(t, 1, m.Snapshot().Page)
}

func TestReset(t *testing.T) {
	m := NewModel(WithPageSize(10), WithSort(Sort{Field: "name", Direction: Desc}))
	m.SetPageSize(50)
	m.SetPage(3)
	m.SetFilters(map[string]string{"name": "x"})
	m.ToggleSelected("1")
	m.SetSort(nil)

	m.Reset()

	st := m.Snapshot()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 10, st.PageSize)
	assert.Equal(t, &Sort{Field: "name", Direction: Desc}, st.Sort)
	assert.Empty(t, st.Filters)
	assert.Empty(t, st.Selected)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	m := NewModel(WithSort(Sort{Field: "name", Direction: Asc}))
	st := m.Snapshot()
	st.Sort.Direction = Desc
	st.Filters["x"] = "y"

	again := m.Snapshot()
	assert.Equal(t, Asc, again.Sort.Direction)
	assert.Empty(t, again.Filters)
}

func TestSelectedIDs_NumericOrder(t *testing.T) {
	m := NewModel()
	for _, id := range ids("10", "2", "b", "1", "a") {
		m.ToggleSelected(id)
	}
	assert.Equal(t, ids("1", "2", "10", "a", "b"), m.SelectedIDs())
	assert.Equal(t, ids("1", "2", "10", "a", "b"), m.Snapshot().Selected)
}
