package dependent

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/form"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// Endpoint resolves the option endpoint for f given its dependency values.
// The most specific strategy wins: URL template, then the named entry in
// endpoints (by f.Endpoint, else by field name), then the default
// convention. The field's Transform hook rewrites deps first.
func Endpoint(f Field, endpoints map[string]string, deps form.Values) (string, error) {
	vals := deps.Clone()
	if f.Transform != nil {
		vals = f.Transform(vals)
	}
	if f.URLTemplate != "" {
		return Expand(f.URLTemplate, vals), nil
	}
	name := f.Endpoint
	if name == "" {
		name = f.Name
	}
	if base, ok := endpoints[name]; ok {
		return withQuery(base, vals), nil
	}
	if f.Endpoint != "" {
		return "", fmt.Errorf("field %s: unknown endpoint %q", f.Name, f.Endpoint)
	}
	return withQuery(DefaultEndpoint(f.Name), vals), nil
}

// Expand substitutes {field} placeholders with the query-escaped values.
// Placeholders without a value expand to "".
func Expand(tmpl string, vals form.Values) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		return url.QueryEscape(entity.Format(vals[m[1:len(m)-1]]))
	})
}

func withQuery(base string, vals form.Values) string {
	if len(vals) == 0 {
		return base
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		q.Set(k, entity.Format(vals[k]))
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// DefaultEndpoint derives "/api/<plural>" from a field name, dropping an id
// suffix: cityId and city_id both give /api/cities.
func DefaultEndpoint(field string) string {
	name := field
	for _, suffix := range []string{"_id", "Id", "ID"} {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return "/api/" + plural(name)
}

func plural(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}
