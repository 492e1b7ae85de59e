package form

import (
	"reflect"
	"strings"

	"github.com/matthewbaird/entityui/internal/entity"
)

// Values is the current data of a form, keyed by field name.
type Values map[string]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Text returns the value of name formatted as text.
func (v Values) Text(name string) string {
	return entity.Format(v[name])
}

// Pick returns the subset of v for names.
func (v Values) Pick(names []string) Values {
	out := make(Values, len(names))
	for _, n := range names {
		if x, ok := v[n]; ok {
			out[n] = x
		}
	}
	return out
}

// IsEmpty reports whether x counts as "no value": nil, a blank string, or an
// empty slice or map.
func IsEmpty(x any) bool {
	if x == nil {
		return true
	}
	if s, ok := x.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
