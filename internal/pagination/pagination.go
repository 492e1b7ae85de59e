// Package pagination computes page counts and the page-button window shown
// under an entity table.
package pagination

import "strconv"

// DefaultMaxButtons is the window width used when the caller passes zero.
const DefaultMaxButtons = 5

// Kind distinguishes page buttons from the two ellipsis markers.
type Kind int

const (
	KindPage Kind = iota
	KindEllipsisStart
	KindEllipsisEnd
)

// Item is one entry of the button window. Page is zero for ellipsis markers.
type Item struct {
	Kind Kind `json:"kind"`
	Page int  `json:"page,omitempty"`
}

// Page returns a page button item.
func Page(p int) Item { return Item{Kind: KindPage, Page: p} }

// EllipsisStart and EllipsisEnd are the gap markers.
var (
	EllipsisStart = Item{Kind: KindEllipsisStart}
	EllipsisEnd   = Item{Kind: KindEllipsisEnd}
)

func (i Item) String() string {
	switch i.Kind {
	case KindEllipsisStart:
		return "ellipsis-start"
	case KindEllipsisEnd:
		return "ellipsis-end"
	default:
		return strconv.Itoa(i.Page)
	}
}

// PageCount returns the number of pages needed for total rows. There is
// always at least one page, even for an empty table.
func PageCount(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Window returns the page buttons for the current page. When every page fits
// in maxButtons all pages are listed. Otherwise a window of maxButtons pages
// is centered on page and shifted to stay inside [1, maxPage]; the first and
// last page are added outside the window, with an ellipsis marker only where
// pages are skipped.
func Window(page, maxPage, maxButtons int) []Item {
	if maxButtons <= 0 {
		maxButtons = DefaultMaxButtons
	}
	if maxPage < 1 {
		maxPage = 1
	}
	page = clamp(page, 1, maxPage)

	if maxPage <= maxButtons {
		items := make([]Item, 0, maxPage)
		for p := 1; p <= maxPage; p++ {
			items = append(items, Page(p))
		}
		return items
	}

	start := page - maxButtons/2
	end := start + maxButtons - 1
	if start < 1 {
		start, end = 1, maxButtons
	}
	if end > maxPage {
		start, end = maxPage-maxButtons+1, maxPage
	}

	items := make([]Item, 0, maxButtons+4)
	if start > 1 {
		items = append(items, Page(1))
		if start > 2 {
			items = append(items, EllipsisStart)
		}
	}
	for p := start; p <= end; p++ {
		items = append(items, Page(p))
	}
	if end < maxPage {
		if end < maxPage-1 {
			items = append(items, EllipsisEnd)
		}
		items = append(items, Page(maxPage))
	}
	return items
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
