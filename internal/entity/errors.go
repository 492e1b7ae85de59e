package entity

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ConfigError is a problem found while loading entity configuration.
type ConfigError struct {
	Entity     string
	Path       string
	Message    string
	Suggestion string // "did you mean 'name'?" or ""
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		fmt.Fprintf(&b, "entity %s: ", e.Entity)
	}
	if e.Path != "" {
		b.WriteString(e.Path + ": ")
	}
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		b.WriteString(" (" + e.Suggestion + ")")
	}
	return b.String()
}

// ConfigErrors collects every problem of one load.
type ConfigErrors []*ConfigError

func (es ConfigErrors) Error() string {
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

func (es ConfigErrors) err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// SuggestFrom finds the closest candidate within maxDist edits of input.
// Returns "" if none is close enough.
func SuggestFrom(input string, candidates []string, maxDist int) string {
	best := ""
	bestDist := maxDist + 1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(input, c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist <= maxDist {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}

// unknown builds a ConfigError for a name that is not among candidates.
func unknown(entity, path, what, name string, candidates []string) *ConfigError {
	return &ConfigError{
		Entity:     entity,
		Path:       path,
		Message:    fmt.Sprintf("unknown %s %q", what, name),
		Suggestion: SuggestFrom(name, candidates, 2),
	}
}
