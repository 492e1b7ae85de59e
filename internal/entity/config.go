package entity

import "cuelang.org/go/cue"

// Config is the declarative description of one entity's table and form.
type Config struct {
	Name   string
	Label  string
	Plural string
	Table  TableConfig
	Form   FormConfig
}

type TableConfig struct {
	PageSize      int              `json:"page_size"`
	MaxButtons    int              `json:"max_buttons"`
	EqualsFilters []string         `json:"equals_filters"`
	DefaultSort   *SortConfig      `json:"default_sort,omitempty"`
	Columns       []ColumnConfig   `json:"columns"`
	Visibility    VisibilityConfig `json:"visibility"`
	BulkActions   []ActionConfig   `json:"bulk_actions"`
	RowActions    []ActionConfig   `json:"row_actions"`
}

type SortConfig struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type ColumnConfig struct {
	Field      string `json:"field"`
	Label      string `json:"label,omitempty"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
	Width      string `json:"width,omitempty"`
	Align      string `json:"align,omitempty"`
}

type VisibilityConfig struct {
	StorageKey       string   `json:"storage_key,omitempty"`
	DefaultHidden    []string `json:"default_hidden"`
	UserConfigurable bool     `json:"user_configurable"`
}

// Action kinds.
const (
	ActionStatusChange = "status_change"
)

// ActionKinds lists the action kinds configuration may use.
var ActionKinds = []string{ActionStatusChange}

type ActionConfig struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Variant        string `json:"variant"`
	Kind           string `json:"kind"`
	Field          string `json:"field"`
	Status         string `json:"status,omitempty"`
	Confirm        string `json:"confirm,omitempty"`
	SuccessMessage string `json:"success_message,omitempty"`
}

type OptionConfig struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

type FieldConfig struct {
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	Label       string         `json:"label,omitempty"`
	HelpText    string         `json:"help_text,omitempty"`
	Required    bool           `json:"required"`
	MaxLength   int            `json:"max_length,omitempty"`
	Rows        int            `json:"rows,omitempty"`
	Min         *float64       `json:"min,omitempty"`
	Max         *float64       `json:"max,omitempty"`
	Options     []OptionConfig `json:"options,omitempty"`
	VisibleWhen *Rule          `json:"visible_when,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	URL         string         `json:"url,omitempty"`
	Endpoint    string         `json:"endpoint,omitempty"`
	KeepValue   bool           `json:"keep_value"`
	AutoSelect  bool           `json:"auto_select"`
}

type StepConfig struct {
	ID          string
	Title       string
	Description string
	Fields      []string
	VisibleWhen *Rule
	// Schema is the step's CUE struct, or a zero Value when absent.
	Schema cue.Value
}

type FormConfig struct {
	Fields      []FieldConfig
	Steps       []StepConfig
	DisableBack bool
	DebounceMS  int
	Endpoints   map[string]string
	// Schema is the full-form CUE struct, or a zero Value when absent.
	Schema cue.Value
}

// ColumnNames returns the configured column fields in order.
func (c *Config) ColumnNames() []string {
	out := make([]string, len(c.Table.Columns))
	for i, col := range c.Table.Columns {
		out[i] = col.Field
	}
	return out
}

// FieldNames returns the configured form field names in order.
func (c *Config) FieldNames() []string {
	out := make([]string, len(c.Form.Fields))
	for i, f := range c.Form.Fields {
		out[i] = f.Name
	}
	return out
}

// BulkAction returns the bulk action with id.
func (c *Config) BulkAction(id string) (ActionConfig, bool) {
	return findAction(c.Table.BulkActions, id)
}

// RowAction returns the row action with id.
func (c *Config) RowAction(id string) (ActionConfig, bool) {
	return findAction(c.Table.RowActions, id)
}

func findAction(as []ActionConfig, id string) (ActionConfig, bool) {
	for _, a := range as {
		if a.ID == id {
			return a, true
		}
	}
	return ActionConfig{}, false
}
