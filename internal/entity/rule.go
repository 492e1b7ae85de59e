package entity

import "strings"

// Rule operators.
const (
	OpEq     = "eq"
	OpNeq    = "neq"
	OpIn     = "in"
	OpNotIn  = "not_in"
	OpTruthy = "truthy"
	OpFalsy  = "falsy"
)

// Rule is a visible_when condition on another field's value.
type Rule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
	Values   []any  `json:"values,omitempty"`
}

// Eval reports whether the rule holds for values. Values compare by their
// text form, so 1, 1.0 and "1" are equal.
func (r Rule) Eval(values map[string]any) bool {
	got := Format(values[r.Field])
	switch r.Operator {
	case OpEq, "":
		return got == Format(r.Value)
	case OpNeq:
		return got != Format(r.Value)
	case OpIn:
		return r.contains(got)
	case OpNotIn:
		return !r.contains(got)
	case OpTruthy:
		return truthy(got)
	case OpFalsy:
		return !truthy(got)
	default:
		return false
	}
}

func (r Rule) contains(s string) bool {
	for _, v := range r.Values {
		if Format(v) == s {
			return true
		}
	}
	return false
}

func truthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "false", "0", "no":
		return false
	}
	return true
}
