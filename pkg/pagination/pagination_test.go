package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name             string
		current, last    int
		wantPages        []int
		showFirst        bool
		showLast         bool
		leading          bool
		trailing         bool
		hasPrev, hasNext bool
	}{
		{
			name: "first of ten", current: 1, last: 10,
			wantPages: []int{1, 2, 3, 4, 5},
			showLast:  true, trailing: true, hasNext: true,
		},
		{
			name: "last of ten", current: 10, last: 10,
			wantPages: []int{6, 7, 8, 9, 10},
			showFirst: true, leading: true, hasPrev: true,
		},
		{
			name: "middle of ten", current: 5, last: 10,
			wantPages: []int{3, 4, 5, 6, 7},
			showFirst: true, showLast: true, leading: true, trailing: true,
			hasPrev: true, hasNext: true,
		},
		{
			name: "gapless first shortcut", current: 4, last: 10,
			wantPages: []int{2, 3, 4, 5, 6},
			showFirst: true, showLast: true, trailing: true,
			hasPrev: true, hasNext: true,
		},
		{
			name: "gapless last shortcut", current: 7, last: 10,
			wantPages: []int{5, 6, 7, 8, 9},
			showFirst: true, showLast: true, leading: true,
			hasPrev: true, hasNext: true,
		},
		{
			name: "single page", current: 1, last: 1,
			wantPages: []int{1},
		},
		{
			name: "fewer pages than window", current: 2, last: 3,
			wantPages: []int{1, 2, 3},
			hasPrev:   true, hasNext: true,
		},
		{
			name: "current beyond last is clamped", current: 42, last: 6,
			wantPages: []int{2, 3, 4, 5, 6},
			showFirst: true, hasPrev: true,
		},
		{
			name: "non-positive input is clamped", current: -3, last: 0,
			wantPages: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.current, tt.last)

			assert.Equal(t, tt.wantPages, w.Pages)
			assert.Equal(t, tt.showFirst, w.ShowFirst, "show first")
			assert.Equal(t, tt.showLast, w.ShowLast, "show last")
			assert.Equal(t, tt.leading, w.LeadingEllipsis, "leading ellipsis")
			assert.Equal(t, tt.trailing, w.TrailingEllipsis, "trailing ellipsis")
			assert.Equal(t, tt.hasPrev, w.HasPrev, "prev enabled")
			assert.Equal(t, tt.hasNext, w.HasNext, "next enabled")
		})
	}
}

func TestWindow_AlwaysFullSizeWhenPossible(t *testing.T) {
	for last := 1; last <= 12; last++ {
		for current := 1; current <= last; current++ {
			w := New(current, last)

			assert.Len(t, w.Pages, min(DefaultWindowSize, last), "current=%d last=%d", current, last)
			assert.Contains(t, w.Pages, current)
			assert.GreaterOrEqual(t, w.Pages[0], 1)
			assert.LessOrEqual(t, w.Pages[len(w.Pages)-1], last)
		}
	}
}

func TestWindow_PrevNext(t *testing.T) {
	w := New(1, 3)
	assert.Equal(t, 1, w.Prev())
	assert.Equal(t, 2, w.Next())

	w = New(3, 3)
	assert.Equal(t, 2, w.Prev())
	assert.Equal(t, 3, w.Next())
	assert.False(t, w.IsSingle())
	assert.True(t, New(1, 1).IsSingle())
}

func TestPaginate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	page := Paginate(items, 2, 3)
	assert.Equal(t, []string{"d", "e", "f"}, page.Items)
	assert.Equal(t, 3, page.Window.Last)
	assert.Equal(t, 8, page.Total)

	page = Paginate(items, 9, 3)
	assert.Equal(t, []string{"g", "h"}, page.Items)
	assert.Equal(t, 3, page.Window.Current)

	empty := Paginate([]string{}, 1, 6)
	require.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.True(t, empty.Window.IsSingle())
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 1, LastPage(0, 6))
	assert.Equal(t, 1, LastPage(6, 6))
	assert.Equal(t, 2, LastPage(7, 6))
	assert.Equal(t, 1, LastPage(5, 0))
}
