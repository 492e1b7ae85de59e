package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pages(ps ...int) []Item {
	out := make([]Item, len(ps))
	for i, p := range ps {
		out[i] = Page(p)
	}
	return out
}

func TestWindow_AllPagesFit(t *testing.T) {
	for maxPage := 1; maxPage <= 5; maxPage++ {
		for page := 1; page <= maxPage; page++ {
			want := make([]int, maxPage)
			for i := range want {
				want[i] = i + 1
			}
			assert.Equal(t, pages(want...), Window(page, maxPage, 5), "page=%d maxPage=%d", page, maxPage)
		}
	}
}

func TestWindow_SinglePage(t *testing.T) {
	assert.Equal(t, pages(1), Window(1, 1, 5))
}

func TestWindow_Centered(t *testing.T) {
	got := Window(10, 20, 5)

	want := []Item{Page(1), EllipsisStart, Page(8), Page(9), Page(10), Page(11), Page(12), EllipsisEnd, Page(20)}
	assert.Equal(t, want, got)

	counts := map[string]int{}
	for _, it := range got {
		counts[it.String()]++
	}
	assert.Equal(t, 1, counts["1"])
	assert.Equal(t, 1, counts["20"])
	assert.Equal(t, 1, counts["ellipsis-start"])
	assert.Equal(t, 1, counts["ellipsis-end"])
}

func TestWindow_NearStart(t *testing.T) {
	got := Window(3, 10, 5)
	assert.Equal(t, []Item{Page(1), Page(2), Page(3), Page(4), Page(5), EllipsisEnd, Page(10)}, got)
}

func TestWindow_NoEllipsisWithoutGap(t *testing.T) {
	got := Window(4, 10, 5)
	assert.Equal(t, []Item{Page(1), Page(2), Page(3), Page(4), Page(5), Page(6), EllipsisEnd, Page(10)}, got)
}

func TestWindow_NearEnd(t *testing.T) {
	got := Window(20, 20, 5)
	assert.Equal(t, []Item{Page(1), EllipsisStart, Page(16), Page(17), Page(18), Page(19), Page(20)}, got)
}

func TestWindow_ClampsInputs(t *testing.T) {
	assert.Equal(t, Window(10, 10, 5), Window(50, 10, 5))
	assert.Equal(t, Window(1, 10, 5), Window(-3, 10, 5))
	assert.Equal(t, pages(1), Window(1, 0, 5))
	assert.Equal(t, Window(6, 12, DefaultMaxButtons), Window(6, 12, 0))
}

func TestWindow_Deterministic(t *testing.T) {
	assert.Equal(t, Window(7, 30, 7), Window(7, 30, 7))
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 25, 1},
		{1, 25, 1},
		{25, 25, 1},
		{26, 25, 2},
		{100, 10, 10},
		{5, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}
