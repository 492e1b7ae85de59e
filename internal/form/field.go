// Package form holds form values, the closed set of field kinds, validation
// schemas, and the Form state container shared by the wizard engine and the
// dependent-field resolver.
package form

import "fmt"

// Kind names a field kind in configuration.
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindNumber   Kind = "number"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
)

// Condition decides visibility from the current values. A nil Condition
// means always visible.
type Condition func(Values) bool

// Option is one choice of a select field.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Spec is the part every field kind shares.
type Spec struct {
	Name     string
	Label    string
	HelpText string
	Required bool
	Visible  Condition
}

// VisibleIn reports whether the field is shown for values.
func (s Spec) VisibleIn(v Values) bool {
	return s.Visible == nil || s.Visible(v)
}

// Field is implemented only by the kinds in this package. Renderers switch
// on kind through Visitor, which has one method per kind, so adding a kind
// breaks every renderer at compile time until it handles it.
type Field interface {
	FieldSpec() Spec
	Kind() Kind
	Accept(v Visitor)
	sealed()
}

// Visitor receives a field by its concrete kind.
type Visitor interface {
	Text(TextField)
	Textarea(TextareaField)
	Number(NumberField)
	Checkbox(CheckboxField)
	Date(DateField)
	Select(SelectField)
}

type TextField struct {
	Spec
	MaxLength int
}

type TextareaField struct {
	Spec
	Rows int
}

type NumberField struct {
	Spec
	Min, Max *float64
}

type CheckboxField struct {
	Spec
}

type DateField struct {
	Spec
}

// SelectField offers Options. Dependent selects get their options from the
// dependent-field resolver instead.
type SelectField struct {
	Spec
	Options   []Option
	Dependent bool
}

func (f TextField) FieldSpec() Spec     { return f.Spec }
func (f TextareaField) FieldSpec() Spec { return f.Spec }
func (f NumberField) FieldSpec() Spec   { return f.Spec }
func (f CheckboxField) FieldSpec() Spec { return f.Spec }
func (f DateField) FieldSpec() Spec     { return f.Spec }
func (f SelectField) FieldSpec() Spec   { return f.Spec }

func (TextField) Kind() Kind     { return KindText }
func (TextareaField) Kind() Kind { return KindTextarea }
func (NumberField) Kind() Kind   { return KindNumber }
func (CheckboxField) Kind() Kind { return KindCheckbox }
func (DateField) Kind() Kind     { return KindDate }
func (SelectField) Kind() Kind   { return KindSelect }

func (f TextField) Accept(v Visitor)     { v.Text(f) }
func (f TextareaField) Accept(v Visitor) { v.Textarea(f) }
func (f NumberField) Accept(v Visitor)   { v.Number(f) }
func (f CheckboxField) Accept(v Visitor) { v.Checkbox(f) }
func (f DateField) Accept(v Visitor)     { v.Date(f) }
func (f SelectField) Accept(v Visitor)   { v.Select(f) }

func (TextField) sealed()     {}
func (TextareaField) sealed() {}
func (NumberField) sealed()   {}
func (CheckboxField) sealed() {}
func (DateField) sealed()     {}
func (SelectField) sealed()   {}

// NewField builds a field of the named kind. Unknown kinds are rejected so
// that configuration errors surface at load time, not at render time.
func NewField(kind Kind, spec Spec) (Field, error) {
	switch kind {
	case KindText, "":
		return TextField{Spec: spec}, nil
	case KindTextarea:
		return TextareaField{Spec: spec}, nil
	case KindNumber:
		return NumberField{Spec: spec}, nil
	case KindCheckbox:
		return CheckboxField{Spec: spec}, nil
	case KindDate:
		return DateField{Spec: spec}, nil
	case KindSelect:
		return SelectField{Spec: spec}, nil
	default:
		return nil, fmt.Errorf("field %q: unknown kind %q", spec.Name, kind)
	}
}

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{KindText, KindTextarea, KindNumber, KindCheckbox, KindDate, KindSelect}
}
