package entity

import (
	"fmt"
	"math"
	"strconv"
)

// IDField is the field every record is keyed by.
const IDField = "id"

// RowID identifies a row independent of whether the backend uses numeric or
// string keys. Numeric ids are carried in their decimal form.
type RowID string

// Record is one entity instance as a generic field map.
type Record map[string]any

// ID returns the record's identifier.
func (r Record) ID() RowID {
	return IDOf(r[IDField])
}

// Text returns the field value formatted for display, filtering and sorting.
// Missing and nil values format as "".
func (r Record) Text(field string) string {
	return Format(r[field])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IDOf converts a raw id value (as decoded from JSON or SQL) into a RowID.
func IDOf(v any) RowID {
	return RowID(Format(v))
}

// Format renders a scalar field value as text. Whole floats print without a
// fractional part so JSON-decoded numbers match their integer form.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case RowID:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
