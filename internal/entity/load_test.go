package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantConfig = `
entities: tenant: {
	label: "Tenant"
	table: {
		columns: [
			{field: "name", label: "Name", filterable: true},
			{field: "status", sortable: false},
			{field: "audit_created"},
		]
		default_sort: field: "name"
		visibility: {
			storage_key:    "tenant.columns"
			default_hidden: ["audit_*"]
		}
		bulk_actions: [{
			id:      "archive"
			label:   "Archive"
			variant: "danger"
			status:  "archived"
			confirm: "Archive {count} tenants?"
		}]
		row_actions: [{
			id:      "deactivate"
			label:   "Deactivate"
			status:  "inactive"
			confirm: "Deactivate {name}?"
		}]
	}
	form: {
		fields: [
			{name: "name", required: true},
			{name: "kind", kind: "select", options: [{value: "person", label: "Person"}, {value: "business", label: "Business"}]},
			{name: "company", visible_when: {field: "kind", value: "business"}},
			{name: "country", kind: "select"},
			{name: "city", kind: "select", depends_on: ["country"], url: "/api/cities?country={country}", auto_select: true},
		]
		steps: [
			{id: "basics", title: "Basics", fields: ["name", "kind", "company"], schema: {name: string & != ""}},
			{id: "address", fields: ["country", "city"], visible_when: {field: "kind", operator: "truthy"}},
		]
		schema: {
			name: string & != ""
			city?: string
		}
	}
}
`

func loadTenant(t *testing.T) *Config {
	t.Helper()
	reg, err := NewLoader().LoadSource("tenant.cue", tenantConfig)
	require.NoError(t, err)
	cfg, err := reg.Entity("tenant")
	require.NoError(t, err)
	return cfg
}

func TestLoadSource_Table(t *testing.T) {
	cfg := loadTenant(t)
	assert.Equal(t, "Tenant", cfg.Label)
	assert.Equal(t, "tenants", cfg.Plural)

	tbl := cfg.Table
	assert.Equal(t, 25, tbl.PageSize)
	assert.Equal(t, 5, tbl.MaxButtons)
	assert.Equal(t, []string{"status"}, tbl.EqualsFilters)
	assert.Equal(t, []string{"name", "status", "audit_created"}, cfg.ColumnNames())
	assert.True(t, tbl.Columns[0].Sortable)
	assert.True(t, tbl.Columns[0].Filterable)
	assert.False(t, tbl.Columns[1].Sortable)
	require.NotNil(t, tbl.DefaultSort)
	assert.Equal(t, "asc", tbl.DefaultSort.Direction)
	assert.Equal(t, "tenant.columns", tbl.Visibility.StorageKey)
	assert.Equal(t, []string{"audit_*"}, tbl.Visibility.DefaultHidden)
	assert.True(t, tbl.Visibility.UserConfigurable)

	archive, ok := cfg.BulkAction("archive")
	require.True(t, ok)
	assert.Equal(t, ActionStatusChange, archive.Kind)
	assert.Equal(t, "status", archive.Field)
	assert.Equal(t, "archived", archive.Status)
	assert.Equal(t, "danger", archive.Variant)

	row, ok := cfg.RowAction("deactivate")
	require.True(t, ok)
	assert.Equal(t, "default", row.Variant)
	_, ok = cfg.RowAction("archive")
	assert.False(t, ok)
}

func TestLoadSource_Form(t *testing.T) {
	cfg := loadTenant(t)
	f := cfg.Form
	assert.Equal(t, []string{"name", "kind", "company", "country", "city"}, cfg.FieldNames())
	assert.Equal(t, "text", f.Fields[0].Kind)
	assert.True(t, f.Fields[0].Required)
	require.Len(t, f.Fields[1].Options, 2)
	assert.Equal(t, "Business", f.Fields[1].Options[1].Label)
	require.NotNil(t, f.Fields[2].VisibleWhen)
	assert.Equal(t, OpEq, f.Fields[2].VisibleWhen.Operator)
	assert.Equal(t, []string{"country"}, f.Fields[4].DependsOn)
	assert.True(t, f.Fields[4].AutoSelect)
	assert.Equal(t, 300, f.DebounceMS)
	assert.False(t, f.DisableBack)
	assert.True(t, f.Schema.Exists())

	require.Len(t, f.Steps, 2)
	assert.Equal(t, "basics", f.Steps[0].ID)
	assert.Equal(t, "Basics", f.Steps[0].Title)
	assert.True(t, f.Steps[0].Schema.Exists())
	assert.False(t, f.Steps[1].Schema.Exists())
	require.NotNil(t, f.Steps[1].VisibleWhen)
	assert.Equal(t, OpTruthy, f.Steps[1].VisibleWhen.Operator)
}

func TestLoadSource_UnknownReferencesSuggest(t *testing.T) {
	src := `
entities: lease: {
	table: {
		columns: [{field: "name"}]
		bulk_actions: [{id: "a", label: "A", kind: "status_chnage", status: "x"}]
	}
	form: {
		fields: [{name: "name"}, {name: "unit", depends_on: ["propery"]}]
		steps: [{id: "s", fields: ["nmae"]}]
	}
}
`
	_, err := NewLoader().LoadSource("lease.cue", src)
	var errs ConfigErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 3)

	byPath := map[string]*ConfigError{}
	for _, e := range errs {
		byPath[e.Path] = e
		assert.Equal(t, "lease", e.Entity)
	}
	assert.Equal(t, "did you mean 'status_change'?", byPath["table.bulk_actions[0].kind"].Suggestion)
	assert.Equal(t, "did you mean 'name'?", byPath["form.steps[0].fields"].Suggestion)
	assert.Contains(t, byPath["form.fields[1].depends_on"].Error(), `unknown field "propery"`)
}

func TestLoadSource_ShapeErrors(t *testing.T) {
	_, err := NewLoader().LoadSource("bad.cue", `entities: x: {table: {columns: [{field: "a"}], page_size: 0}}`)
	assert.Error(t, err)

	_, err = NewLoader().LoadSource("bad.cue", `entities: x: {tabel: {}}`)
	assert.Error(t, err)

	_, err = NewLoader().LoadSource("bad.cue", `nothing: true`)
	assert.Error(t, err)

	_, err = NewLoader().LoadSource("bad.cue", `entities: x: {`)
	assert.Error(t, err)
}

func TestLoadSource_CrossChecks(t *testing.T) {
	cases := map[string]string{
		"no columns":      `entities: x: table: columns: []`,
		"dup column":      `entities: x: table: columns: [{field: "a"}, {field: "a"}]`,
		"bad sort":        `entities: x: table: {columns: [{field: "a"}], default_sort: field: "b"}`,
		"missing status":  `entities: x: table: {columns: [{field: "a"}], row_actions: [{id: "r", label: "R"}]}`,
		"self dependency": `entities: x: {table: columns: [{field: "a"}], form: fields: [{name: "a", depends_on: ["a"]}]}`,
		"url placeholder": `entities: x: {table: columns: [{field: "a"}], form: fields: [{name: "a", url: "/x/{b}"}]}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().LoadSource("x.cue", src)
			var errs ConfigErrors
			assert.True(t, errors.As(err, &errs), "%v", err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&Config{Name: "tenant"})
	r.Register(&Config{Name: "lease"})
	r.Register(&Config{Name: "tenant", Label: "again"})

	assert.Equal(t, []string{"lease", "tenant"}, r.Names())
	assert.Equal(t, 2, r.Len())

	c, err := r.Entity("tenant")
	require.NoError(t, err)
	assert.Equal(t, "again", c.Label)

	_, err = r.Entity("tenat")
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "did you mean 'tenant'?", ce.Suggestion)
}

func TestSuggestFrom(t *testing.T) {
	assert.Equal(t, "did you mean 'lease'?", SuggestFrom("leas", []string{"lease", "tenant"}, 2))
	assert.Equal(t, "", SuggestFrom("xyz", []string{"lease", "tenant"}, 2))
}
