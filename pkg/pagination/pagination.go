// Package pagination computes the page-number window shown under paged lists.
package pagination

// DefaultWindowSize is the number of page buttons shown around the current page
const DefaultWindowSize = 5

// Window describes which page controls to render
type Window struct {
	Current int   `json:"current"`
	Last    int   `json:"last"`
	Pages   []int `json:"pages"`

	// First and Last shortcuts are shown when the window does not reach them.
	ShowFirst bool `json:"show_first"`
	ShowLast  bool `json:"show_last"`

	// Ellipses mark a gap between a shortcut and the window.
	LeadingEllipsis  bool `json:"leading_ellipsis"`
	TrailingEllipsis bool `json:"trailing_ellipsis"`

	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// New returns the window for current out of last using DefaultWindowSize
func New(current, last int) Window {
	return NewWindow(current, last, DefaultWindowSize)
}

// NewWindow centers a window of size pages on current, clamped to [1, last].
// Near either edge the window is shifted inward so it keeps its full size
// whenever last allows. Out-of-range input is clamped.
func NewWindow(current, last, size int) Window {
	if last < 1 {
		last = 1
	}
	if size < 1 {
		size = 1
	}
	if current < 1 {
		current = 1
	}
	if current > last {
		current = last
	}

	start := current - size/2
	end := start + size - 1
	if start < 1 {
		end += 1 - start
		start = 1
	}
	if end > last {
		start -= end - last
		end = last
	}
	if start < 1 {
		start = 1
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}

	return Window{
		Current:          current,
		Last:             last,
		Pages:            pages,
		ShowFirst:        start > 1,
		ShowLast:         end < last,
		LeadingEllipsis:  start > 2,
		TrailingEllipsis: end < last-1,
		HasPrev:          current > 1,
		HasNext:          current < last,
	}
}

// Prev returns the previous page number, or current when on the first page
func (w Window) Prev() int {
	if w.HasPrev {
		return w.Current - 1
	}
	return w.Current
}

// Next returns the next page number, or current when on the last page
func (w Window) Next() int {
	if w.HasNext {
		return w.Current + 1
	}
	return w.Current
}

// IsSingle reports whether there is only one page
func (w Window) IsSingle() bool {
	return w.Last == 1
}

// Page is a slice of items with its window
type Page[T any] struct {
	Items  []T
	Window Window
	Total  int
}

// Paginate returns the items of page current, perPage at a time
func Paginate[T any](items []T, current, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 1
	}
	last := (len(items) + perPage - 1) / perPage
	w := New(current, last)

	from := (w.Current - 1) * perPage
	to := min(from+perPage, len(items))
	if from > len(items) {
		from = len(items)
	}

	return Page[T]{Items: items[from:to], Window: w, Total: len(items)}
}

// LastPage returns the number of pages needed for total items
func LastPage(total, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
