package form

import (
	"sort"
	"strings"
)

// ValidationError carries field-level messages keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[n]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid returns a *ValidationError for errs, or nil when errs is empty.
func Invalid(errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}
