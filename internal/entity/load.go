package entity

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
)

// Loader turns CUE entity configuration into a Registry. Configuration lives
// under a top-level "entities" struct keyed by entity name:
//
//	entities: tenant: {
//		table: columns: [{field: "name"}, {field: "status"}]
//		form: fields: [{name: "name", required: true}]
//	}
type Loader struct {
	ctx *cue.Context
	def cue.Value
}

// NewLoader returns a loader with its own CUE context.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	defs := ctx.CompileString(definitions, cue.Filename("entityui/definitions.cue"))
	return &Loader{ctx: ctx, def: defs.LookupPath(cue.ParsePath("#Entity"))}
}

// LoadDir loads the CUE package in dir.
func (l *Loader) LoadDir(dir string) (*Registry, error) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, fmt.Errorf("no CUE instances found in %s", dir)
	}
	if insts[0].Err != nil {
		return nil, fmt.Errorf("loading entity config: %w", insts[0].Err)
	}
	v := l.ctx.BuildInstance(insts[0])
	if v.Err() != nil {
		return nil, fmt.Errorf("building entity config: %w", v.Err())
	}
	return l.build(v)
}

// LoadSource loads configuration from CUE source text.
func (l *Loader) LoadSource(filename, src string) (*Registry, error) {
	v := l.ctx.CompileString(src, cue.Filename(filename))
	if v.Err() != nil {
		return nil, fmt.Errorf("compiling entity config: %w", v.Err())
	}
	return l.build(v)
}

func (l *Loader) build(root cue.Value) (*Registry, error) {
	ents := root.LookupPath(cue.ParsePath("entities"))
	if !ents.Exists() {
		return nil, &ConfigError{Message: `no top-level "entities" struct`}
	}
	iter, err := ents.Fields()
	if err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}

	reg := NewRegistry()
	var problems ConfigErrors
	for iter.Next() {
		name := iter.Selector().String()
		u := l.def.Unify(iter.Value())
		if err := u.Validate(); err != nil {
			problems = append(problems, fromCUE(name, err)...)
			continue
		}
		cfg, errs := decodeEntity(name, u)
		if len(errs) > 0 {
			problems = append(problems, errs...)
			continue
		}
		reg.Register(cfg)
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	return reg, nil
}

func fromCUE(entity string, err error) ConfigErrors {
	var out ConfigErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, &ConfigError{
			Entity:  entity,
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return out
}

func decodeEntity(name string, v cue.Value) (*Config, ConfigErrors) {
	var problems ConfigErrors
	decode := func(path string, target any) {
		if err := v.LookupPath(cue.ParsePath(path)).Decode(target); err != nil {
			problems = append(problems, fromCUE(name, err)...)
		}
	}

	cfg := &Config{Name: name, Label: name, Plural: name + "s"}
	if s := v.LookupPath(cue.ParsePath("label")); s.Exists() {
		decode("label", &cfg.Label)
	}
	if s := v.LookupPath(cue.ParsePath("plural")); s.Exists() {
		decode("plural", &cfg.Plural)
	}
	decode("table", &cfg.Table)

	if fv := v.LookupPath(cue.ParsePath("form")); fv.Exists() {
		cfg.Form, problems = decodeForm(name, fv, problems)
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return cfg, check(cfg)
}

func decodeForm(name string, fv cue.Value, problems ConfigErrors) (FormConfig, ConfigErrors) {
	var f FormConfig
	decode := func(v cue.Value, target any) {
		if err := v.Decode(target); err != nil {
			problems = append(problems, fromCUE(name, err)...)
		}
	}
	decode(fv.LookupPath(cue.ParsePath("fields")), &f.Fields)
	decode(fv.LookupPath(cue.ParsePath("disable_back")), &f.DisableBack)
	decode(fv.LookupPath(cue.ParsePath("debounce_ms")), &f.DebounceMS)
	decode(fv.LookupPath(cue.ParsePath("endpoints")), &f.Endpoints)
	if s := fv.LookupPath(cue.ParsePath("schema")); hasFields(s) {
		f.Schema = s
	}

	list, err := fv.LookupPath(cue.ParsePath("steps")).List()
	if err != nil {
		return f, append(problems, fromCUE(name, err)...)
	}
	for list.Next() {
		sv := list.Value()
		var st StepConfig
		decode(sv.LookupPath(cue.ParsePath("id")), &st.ID)
		decode(sv.LookupPath(cue.ParsePath("fields")), &st.Fields)
		if t := sv.LookupPath(cue.ParsePath("title")); t.Exists() {
			decode(t, &st.Title)
		}
		if d := sv.LookupPath(cue.ParsePath("description")); d.Exists() {
			decode(d, &st.Description)
		}
		if r := sv.LookupPath(cue.ParsePath("visible_when")); r.Exists() {
			var rule Rule
			decode(r, &rule)
			st.VisibleWhen = &rule
		}
		if s := sv.LookupPath(cue.ParsePath("schema")); hasFields(s) {
			st.Schema = s
		}
		f.Steps = append(f.Steps, st)
	}
	return f, problems
}

func hasFields(v cue.Value) bool {
	if !v.Exists() {
		return false
	}
	iter, err := v.Fields(cue.Optional(true))
	return err == nil && iter.Next()
}

// check validates cross references that CUE cannot express.
func check(cfg *Config) ConfigErrors {
	var problems ConfigErrors
	add := func(e *ConfigError) {
		e.Entity = cfg.Name
		problems = append(problems, e)
	}

	columns := cfg.ColumnNames()
	if len(columns) == 0 {
		add(&ConfigError{Path: "table.columns", Message: "at least one column is required"})
	}
	if dup := firstDuplicate(columns); dup != "" {
		add(&ConfigError{Path: "table.columns", Message: fmt.Sprintf("duplicate column %q", dup)})
	}
	if s := cfg.Table.DefaultSort; s != nil && !contains(columns, s.Field) {
		add(unknown("", "table.default_sort.field", "column", s.Field, columns))
	}

	for _, group := range []struct {
		path    string
		actions []ActionConfig
	}{{"table.bulk_actions", cfg.Table.BulkActions}, {"table.row_actions", cfg.Table.RowActions}} {
		ids := make([]string, 0, len(group.actions))
		for i, a := range group.actions {
			path := fmt.Sprintf("%s[%d]", group.path, i)
			ids = append(ids, a.ID)
			if !contains(ActionKinds, a.Kind) {
				add(unknown("", path+".kind", "action kind", a.Kind, ActionKinds))
			}
			if a.Kind == ActionStatusChange && a.Status == "" {
				add(&ConfigError{Path: path + ".status", Message: "status_change actions need a target status"})
			}
		}
		if dup := firstDuplicate(ids); dup != "" {
			add(&ConfigError{Path: group.path, Message: fmt.Sprintf("duplicate action id %q", dup)})
		}
	}

	fields := cfg.FieldNames()
	if dup := firstDuplicate(fields); dup != "" {
		add(&ConfigError{Path: "form.fields", Message: fmt.Sprintf("duplicate field %q", dup)})
	}
	for i, f := range cfg.Form.Fields {
		path := fmt.Sprintf("form.fields[%d]", i)
		for _, d := range f.DependsOn {
			if !contains(fields, d) {
				add(unknown("", path+".depends_on", "field", d, fields))
			} else if d == f.Name {
				add(&ConfigError{Path: path + ".depends_on", Message: "a field cannot depend on itself"})
			}
		}
		if r := f.VisibleWhen; r != nil && !contains(fields, r.Field) {
			add(unknown("", path+".visible_when.field", "field", r.Field, fields))
		}
		for _, m := range templateVar.FindAllStringSubmatch(f.URL, -1) {
			if !contains(fields, m[1]) {
				add(unknown("", path+".url", "field", m[1], fields))
			}
		}
	}

	stepIDs := make([]string, 0, len(cfg.Form.Steps))
	for i, s := range cfg.Form.Steps {
		path := fmt.Sprintf("form.steps[%d]", i)
		stepIDs = append(stepIDs, s.ID)
		for _, name := range s.Fields {
			if !contains(fields, name) {
				add(unknown("", path+".fields", "field", name, fields))
			}
		}
		if r := s.VisibleWhen; r != nil && !contains(fields, r.Field) {
			add(unknown("", path+".visible_when.field", "field", r.Field, fields))
		}
	}
	if dup := firstDuplicate(stepIDs); dup != "" {
		add(&ConfigError{Path: "form.steps", Message: fmt.Sprintf("duplicate step id %q", dup)})
	}
	return problems
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func firstDuplicate(list []string) string {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if seen[s] {
			return s
		}
		seen[s] = true
	}
	return ""
}
