package entity

import (
	"regexp"
	"strconv"
)

var templateVar = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// ExpandCount replaces {count} in a bulk confirmation template.
func ExpandCount(tmpl string, n int) string {
	return templateVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		if m == "{count}" {
			return strconv.Itoa(n)
		}
		return m
	})
}

// ExpandRecord replaces {field} placeholders with the record's values.
func ExpandRecord(tmpl string, r Record) string {
	return templateVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		return r.Text(m[1 : len(m)-1])
	})
}
