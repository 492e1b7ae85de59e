package table

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/pagination"
)

// Result is what a data source returns for a list query. A result with
// Paged unset is a fully materialized dataset to be paginated locally;
// a paged result is authoritative for both rows and total.
type Result struct {
	Content       []entity.Record `json:"content"`
	TotalElements int             `json:"totalElements"`
	Paged         bool            `json:"-"`
}

// View is the rows to render for the current state.
type View struct {
	Rows       []entity.Record `json:"rows"`
	Total      int             `json:"total"`
	MaxPage    int             `json:"max_page"`
	ClientSide bool            `json:"client_side"`
}

// IDs returns the ids of the rendered rows.
func (v View) IDs() []entity.RowID {
	ids := make([]entity.RowID, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.ID()
	}
	return ids
}

// Resolve turns a source result into the rows for st. Client-side results
// are filtered, sorted and sliced here; paged results pass through.
func Resolve(st State, res Result, equalsFields []string) View {
	if res.Paged {
		return View{
			Rows:    res.Content,
			Total:   res.TotalElements,
			MaxPage: pagination.PageCount(res.TotalElements, st.PageSize),
		}
	}
	rows, total := Apply(res.Content, st.Query(equalsFields))
	return View{
		Rows:       rows,
		Total:      total,
		MaxPage:    pagination.PageCount(total, st.PageSize),
		ClientSide: true,
	}
}

// Apply filters, sorts and slices rows according to q. It returns the page
// of rows and the number of rows that matched the filters.
func Apply(rows []entity.Record, q Query) ([]entity.Record, int) {
	matched := make([]entity.Record, 0, len(rows))
	for _, r := range rows {
		if Matches(r, q) {
			matched = append(matched, r)
		}
	}

	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Direction == Desc
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i].Text(field), matched[j].Text(field))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	total := len(matched)
	start, end, ok := q.Bounds(total)
	if !ok {
		return []entity.Record{}, total
	}
	return matched[start:end], total
}

// Matches reports whether r passes every filter in q. Contains filters are
// case-insensitive substring matches; equals filters compare case-insensitively.
func Matches(r entity.Record, q Query) bool {
	for field, want := range q.Contains {
		if !strings.Contains(strings.ToLower(r.Text(field)), strings.ToLower(want)) {
			return false
		}
	}
	for field, want := range q.Equals {
		if !strings.EqualFold(r.Text(field), want) {
			return false
		}
	}
	return true
}

// compareValues orders numerically when both sides parse as numbers, and
// lexically (case-insensitive) otherwise.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
