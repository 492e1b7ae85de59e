// Package page composes the table and form components of one entity into the
// two screens a renderer drives: EntityTablePage and EntityFormPage.
package page

import (
	"fmt"
	"sort"
	"time"

	"cuelang.org/go/cue"

	"github.com/matthewbaird/entityui/internal/dependent"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/wizard"
)

// Blueprint is the session-independent build of an entity configuration:
// form fields, wizard steps, schemas and dependent-field declarations. It is
// built once per entity and shared by every page of that entity.
type Blueprint struct {
	Config    *entity.Config
	Fields    []form.Field
	Steps     []wizard.Step
	Schema    form.Schema
	Dependent []dependent.Field
	Debounce  time.Duration
}

// Compile builds the blueprint of cfg. Every problem is reported as an
// *entity.ConfigError.
func Compile(cfg *entity.Config) (*Blueprint, error) {
	bp := &Blueprint{
		Config:   cfg,
		Debounce: time.Duration(cfg.Form.DebounceMS) * time.Millisecond,
	}
	var errs entity.ConfigErrors
	for i, fc := range cfg.Form.Fields {
		f, err := buildField(cfg.Name, i, fc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bp.Fields = append(bp.Fields, f)
		if len(fc.DependsOn) > 0 {
			bp.Dependent = append(bp.Dependent, dependent.Field{
				Name:        fc.Name,
				DependsOn:   fc.DependsOn,
				URLTemplate: fc.URL,
				Endpoint:    fc.Endpoint,
				KeepValue:   fc.KeepValue,
				AutoSelect:  fc.AutoSelect,
			})
		}
	}

	s, err := schemaOf(cfg.Name, "form.schema", cfg.Form.Schema)
	if err != nil {
		errs = append(errs, err)
	}
	bp.Schema = s

	for i, sc := range cfg.Form.Steps {
		s, err := schemaOf(cfg.Name, fmt.Sprintf("form.steps[%d].schema", i), sc.Schema)
		if err != nil {
			errs = append(errs, err)
		}
		bp.Steps = append(bp.Steps, wizard.Step{
			ID:          sc.ID,
			Title:       sc.Title,
			Description: sc.Description,
			Fields:      sc.Fields,
			Schema:      s,
			Condition:   conditionOf(sc.VisibleWhen),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return bp, nil
}

// CompileAll compiles every entity of reg.
func CompileAll(reg *entity.Registry) (map[string]*Blueprint, error) {
	out := make(map[string]*Blueprint, reg.Len())
	var errs entity.ConfigErrors
	for _, name := range reg.Names() {
		cfg, err := reg.Entity(name)
		if err != nil {
			return nil, err
		}
		bp, err := Compile(cfg)
		if err != nil {
			if ce, ok := err.(entity.ConfigErrors); ok {
				errs = append(errs, ce...)
				continue
			}
			return nil, err
		}
		out[name] = bp
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// Wizard reports whether the form is a multi-step wizard.
func (bp *Blueprint) Wizard() bool {
	return len(bp.Steps) > 0
}

// Describe returns the renderer descriptors of every field.
func (bp *Blueprint) Describe() []form.Descriptor {
	out := make([]form.Descriptor, len(bp.Fields))
	for i, f := range bp.Fields {
		out[i] = form.Describe(f)
	}
	return out
}

func buildField(entityName string, i int, fc entity.FieldConfig) (form.Field, *entity.ConfigError) {
	spec := form.Spec{
		Name:     fc.Name,
		Label:    fc.Label,
		HelpText: fc.HelpText,
		Required: fc.Required,
		Visible:  conditionOf(fc.VisibleWhen),
	}
	f, err := form.NewField(form.Kind(fc.Kind), spec)
	if err != nil {
		kinds := make([]string, 0, len(form.Kinds()))
		for _, k := range form.Kinds() {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		return nil, &entity.ConfigError{
			Entity:     entityName,
			Path:       fmt.Sprintf("form.fields[%d].kind", i),
			Message:    fmt.Sprintf("unknown field kind %q", fc.Kind),
			Suggestion: entity.SuggestFrom(fc.Kind, kinds, 2),
		}
	}

	switch f := f.(type) {
	case form.TextField:
		f.MaxLength = fc.MaxLength
		return f, nil
	case form.TextareaField:
		f.Rows = fc.Rows
		return f, nil
	case form.NumberField:
		f.Min, f.Max = fc.Min, fc.Max
		return f, nil
	case form.SelectField:
		for _, o := range fc.Options {
			f.Options = append(f.Options, form.Option{Value: o.Value, Label: o.Label})
		}
		f.Dependent = len(fc.DependsOn) > 0
		return f, nil
	default:
		return f, nil
	}
}

func conditionOf(r *entity.Rule) form.Condition {
	if r == nil {
		return nil
	}
	rule := *r
	return func(v form.Values) bool { return rule.Eval(v) }
}

func schemaOf(entityName, path string, v cue.Value) (form.Schema, *entity.ConfigError) {
	if !v.Exists() {
		return nil, nil
	}
	s, err := form.SchemaFromValue(v)
	if err != nil {
		return nil, &entity.ConfigError{Entity: entityName, Path: path, Message: err.Error()}
	}
	return s, nil
}

// Validate checks values against the required flags and every schema of the
// form, steps included, the way a submit does. Hidden fields are skipped.
func (bp *Blueprint) Validate(values form.Values) error {
	schemas := []form.Schema{bp.Schema}
	for _, s := range bp.Steps {
		if s.Condition == nil || s.Condition(values) {
			schemas = append(schemas, s.Schema)
		}
	}
	return form.New(bp.Fields, values).Validate(form.All(schemas...), nil)
}
