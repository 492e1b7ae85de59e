package source

import (
	"context"
	stdsql "database/sql"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/table"
)

func tenants() []entity.Record {
	return []entity.Record{
		{"id": 1, "name": "Ada Lovelace", "status": "active", "units": 3},
		{"id": 2, "name": "Grace Hopper", "status": "archived", "units": 1},
		{"id": 3, "name": "alan turing", "status": "active", "units": 12},
		{"id": 4, "name": "Barbara Liskov", "status": "Active", "units": 7},
	}
}

func openTestDB(t *testing.T) *stdsql.DB {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSQLite(t *testing.T, rows []entity.Record) *SQLiteSource {
	t.Helper()
	s := NewSQLiteSource(openTestDB(t), "tenant")
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx))
	require.NoError(t, s.Seed(ctx, rows))
	return s
}

// pagedSources are the sources that paginate on the server side.
func pagedSources(t *testing.T) map[string]Source {
	return map[string]Source{
		"memory": NewMemorySource(tenants(), WithServerPaging()),
		"sqlite": newSQLite(t, tenants()),
	}
}

func params(st table.State) url.Values {
	return st.QueryParams(nil)
}

func names(rows []entity.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text("name")
	}
	return out
}

func TestMemorySource_UnpagedReturnsEverything(t *testing.T) {
	s := NewMemorySource(tenants())
	res, err := s.GetAll(context.Background(), params(table.State{Page: 2, PageSize: 1}))
	require.NoError(t, err)
	assert.False(t, res.Paged)
	assert.Len(t, res.Content, 4)
	assert.Equal(t, 4, res.TotalElements)
}

func TestPaged_ContainsAndEqualsFilters(t *testing.T) {
	for name, s := range pagedSources(t) {
		t.Run(name, func(t *testing.T) {
			st := table.State{Page: 1, PageSize: 10, Filters: map[string]string{"name": "LI", "status": "active"}}
			res, err := s.GetAll(context.Background(), params(st))
			require.NoError(t, err)
			assert.True(t, res.Paged)
			assert.Equal(t, 1, res.TotalElements)
			assert.Equal(t, []string{"Barbara Liskov"}, names(res.Content))
		})
	}
}

func TestPaged_SortAndPage(t *testing.T) {
	for name, s := range pagedSources(t) {
		t.Run(name, func(t *testing.T) {
			st := table.State{Page: 2, PageSize: 2, Sort: &table.Sort{Field: "name", Direction: table.Asc}}
			res, err := s.GetAll(context.Background(), params(st))
			require.NoError(t, err)
			assert.Equal(t, 4, res.TotalElements)
			assert.Equal(t, []string{"Barbara Liskov", "Grace Hopper"}, names(res.Content))

			st = table.State{Page: 1, PageSize: 2, Sort: &table.Sort{Field: "units", Direction: table.Desc}}
			res, err = s.GetAll(context.Background(), params(st))
			require.NoError(t, err)
			assert.Equal(t, []string{"alan turing", "Barbara Liskov"}, names(res.Content))
		})
	}
}

func TestPaged_PagePastEndIsEmpty(t *testing.T) {
	for name, s := range pagedSources(t) {
		t.Run(name, func(t *testing.T) {
			for _, page := range []string{"2", "500000000000000000"} {
				res, err := s.GetAll(context.Background(), url.Values{"page": {page}, "size": {"25"}})
				require.NoError(t, err)
				assert.Equal(t, 4, res.TotalElements)
				assert.Empty(t, res.Content, "page %s", page)
			}
		})
	}
}

func TestSources_CreateUpdateRoundTrip(t *testing.T) {
	all := pagedSources(t)
	all["memory-unpaged"] = NewMemorySource(tenants())
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.Create(ctx, map[string]any{"name": "Edsger Dijkstra", "status": "active"})
			require.NoError(t, err)
			assert.Equal(t, entity.RowID("5"), created.ID())

			updated, err := s.Update(ctx, created.ID(), map[string]any{"status": "archived", "id": 99})
			require.NoError(t, err)
			assert.Equal(t, "archived", updated.Text("status"))
			assert.Equal(t, "Edsger Dijkstra", updated.Text("name"))

			got, err := s.GetByID(ctx, "5")
			require.NoError(t, err)
			assert.Equal(t, "archived", got.Text("status"))
			assert.Equal(t, entity.RowID("5"), got.ID())

			_, err = s.Create(ctx, map[string]any{"id": 5, "name": "dup"})
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestSources_NotFound(t *testing.T) {
	all := pagedSources(t)
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.GetByID(ctx, "404")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Update(ctx, "404", map[string]any{"a": 1})
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetByID(ctx, "not-a-number-or-id")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSources_InvalidateNotifiesListeners(t *testing.T) {
	mem := NewMemorySource(nil)
	sql := newSQLite(t, nil)
	for name, s := range map[string]interface {
		Source
		OnInvalidate(func(context.Context))
	}{"memory": mem, "sqlite": sql} {
		t.Run(name, func(t *testing.T) {
			calls := 0
			s.OnInvalidate(func(context.Context) { calls++ })
			require.NoError(t, s.InvalidateQueries(context.Background()))
			assert.Equal(t, 1, calls)
		})
	}
}

func TestSQLiteSource_SeedOnlyWhenEmpty(t *testing.T) {
	s := newSQLite(t, tenants())
	require.NoError(t, s.Seed(context.Background(), tenants()))
	res, err := s.GetAll(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalElements)
}

func TestSQLiteSource_EntitiesAreIsolated(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := NewSQLiteSource(db, "tenant")
	b := NewSQLiteSource(db, "lease")
	require.NoError(t, a.CreateTable(ctx))
	_, err := a.Create(ctx, map[string]any{"name": "x"})
	require.NoError(t, err)

	res, err := b.GetAll(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalElements)

	created, err := b.Create(ctx, map[string]any{"name": "y"})
	require.NoError(t, err)
	assert.Equal(t, entity.RowID("1"), created.ID())
}

func TestSQLiteSource_IgnoresUnsafeFilterNames(t *testing.T) {
	s := newSQLite(t, tenants())
	res, err := s.GetAll(context.Background(), url.Values{"name') OR 1=1 --.contains": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalElements)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	c.Add("tenant", NewMemorySource(nil))
	c.Add("lease", NewMemorySource(nil))
	_, ok := c.Get("tenant")
	assert.True(t, ok)
	_, ok = c.Get("unit")
	assert.False(t, ok)
	assert.Equal(t, []string{"lease", "tenant"}, c.Names())
}
