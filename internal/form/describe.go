package form

// Descriptor is the renderer-facing description of a field.
type Descriptor struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Label     string   `json:"label"`
	HelpText  string   `json:"help_text,omitempty"`
	Required  bool     `json:"required"`
	MaxLength int      `json:"max_length,omitempty"`
	Rows      int      `json:"rows,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Options   []Option `json:"options,omitempty"`
	Dependent bool     `json:"dependent,omitempty"`
}

type describer struct {
	out Descriptor
}

func (d *describer) base(s Spec, k Kind) {
	d.out = Descriptor{Name: s.Name, Kind: k, Label: s.Label, HelpText: s.HelpText, Required: s.Required}
}

func (d *describer) Text(f TextField) {
	d.base(f.Spec, KindText)
	d.out.MaxLength = f.MaxLength
}

func (d *describer) Textarea(f TextareaField) {
	d.base(f.Spec, KindTextarea)
	d.out.Rows = f.Rows
}

func (d *describer) Number(f NumberField) {
	d.base(f.Spec, KindNumber)
	d.out.Min, d.out.Max = f.Min, f.Max
}

func (d *describer) Checkbox(f CheckboxField) { d.base(f.Spec, KindCheckbox) }

func (d *describer) Date(f DateField) { d.base(f.Spec, KindDate) }

func (d *describer) Select(f SelectField) {
	d.base(f.Spec, KindSelect)
	d.out.Options = f.Options
	d.out.Dependent = f.Dependent
}

// Describe returns the descriptor of f.
func Describe(f Field) Descriptor {
	var d describer
	f.Accept(&d)
	return d.out
}
