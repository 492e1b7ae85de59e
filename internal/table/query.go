package table

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	paramPage     = "page"
	paramSize     = "size"
	paramSort     = "sort"
	suffixContain = ".contains"
	suffixEquals  = ".equals"
)

// DefaultEqualsFields are filtered by equality rather than substring.
var DefaultEqualsFields = []string{"status"}

// Query is the backend-facing form of a table state: zero-based page plus
// contains/equals filter maps.
type Query struct {
	Page     int
	Size     int
	Sort     *Sort
	Contains map[string]string
	Equals   map[string]string
}

// Bounds returns the slice bounds of q's page within total rows. ok is false
// when the page lies past the last row. The page is compared before any
// multiplication, so huge page numbers cannot overflow.
func (q Query) Bounds(total int) (start, end int, ok bool) {
	size := q.Size
	if size < 1 {
		size = DefaultPageSize
	}
	if total <= 0 || q.Page < 0 || q.Page > (total-1)/size {
		return 0, 0, false
	}
	start = q.Page * size
	end = start + size
	if end > total || end < start {
		end = total
	}
	return start, end, true
}

// Query converts the state into a backend query. Fields listed in
// equalsFields are filtered by equality; nil means DefaultEqualsFields.
func (s State) Query(equalsFields []string) Query {
	if equalsFields == nil {
		equalsFields = DefaultEqualsFields
	}
	eq := make(map[string]bool, len(equalsFields))
	for _, f := range equalsFields {
		eq[f] = true
	}

	q := Query{
		Page:     s.Page - 1,
		Size:     s.PageSize,
		Sort:     copySort(s.Sort),
		Contains: map[string]string{},
		Equals:   map[string]string{},
	}
	if q.Page < 0 {
		q.Page = 0
	}
	for field, v := range s.Filters {
		if v == "" {
			continue
		}
		if eq[field] {
			q.Equals[field] = v
		} else {
			q.Contains[field] = v
		}
	}
	return q
}

// QueryParams renders the state as getAll query parameters:
// page (zero-based), size, sort=field,dir, <field>.contains, <field>.equals.
func (s State) QueryParams(equalsFields []string) url.Values {
	return s.Query(equalsFields).Values()
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set(paramPage, strconv.Itoa(q.Page))
	v.Set(paramSize, strconv.Itoa(q.Size))
	if q.Sort != nil {
		v.Set(paramSort, q.Sort.Field+","+string(q.Sort.Direction))
	}
	for _, f := range sortedKeys(q.Contains) {
		v.Set(f+suffixContain, q.Contains[f])
	}
	for _, f := range sortedKeys(q.Equals) {
		v.Set(f+suffixEquals, q.Equals[f])
	}
	return v
}

// ParseQuery decodes getAll parameters. Missing or invalid page and size
// fall back to 0 and DefaultPageSize; size is capped at MaxPageSize.
func ParseQuery(v url.Values) Query {
	q := Query{
		Size:     DefaultPageSize,
		Contains: map[string]string{},
		Equals:   map[string]string{},
	}
	if n, err := strconv.Atoi(v.Get(paramPage)); err == nil && n >= 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get(paramSize)); err == nil && n > 0 {
		q.Size = n
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	if raw := v.Get(paramSort); raw != "" {
		field, dir, _ := strings.Cut(raw, ",")
		q.Sort = normalizeSort(&Sort{Field: field, Direction: Direction(strings.ToLower(dir))})
	}
	for key, vals := range v {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		if f, ok := strings.CutSuffix(key, suffixContain); ok {
			q.Contains[f] = vals[0]
		} else if f, ok := strings.CutSuffix(key, suffixEquals); ok {
			q.Equals[f] = vals[0]
		}
	}
	return q
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
