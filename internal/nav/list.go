// Package nav holds cursor, scroll, tab and marquee state of the device UI.
// Nothing here draws or blocks, event loop owns all values.
package nav

// List is cursor/scroll position over count items with visible rows on screen.
//
// Invariants after every operation:
//   - 0 <= cursor < count, or cursor=0 when count=0
//   - 0 <= scroll <= max(0, count-visible)
//   - scroll <= cursor < scroll+visible
type List struct {
	cursor  int
	scroll  int
	visible int
	count   int
}

func NewList(visible int) List {
	l := List{}
	l.SetVisible(visible)
	return l
}

func (l *List) Cursor() int  { return l.cursor }
func (l *List) Scroll() int  { return l.scroll }
func (l *List) Count() int   { return l.count }
func (l *List) Visible() int { return l.visible }

// Window returns [from, to) item indexes shown on screen.
func (l *List) Window() (from, to int) {
	to = l.scroll + l.visible
	if to > l.count {
		to = l.count
	}
	return l.scroll, to
}

// Move moves cursor by delta rows, scroll follows one row per move
// when cursor reaches top or bottom edge of the window.
func (l *List) Move(delta int) {
	if delta == 0 || l.count == 0 {
		return
	}
	l.cursor = clamp(l.cursor+delta, 0, l.count-1)
	if l.cursor >= l.scroll+l.visible {
		l.scroll = min(l.scroll+1, l.maxScroll())
	} else if l.cursor <= l.scroll {
		l.scroll = max(l.scroll-1, 0)
	}
	l.fix()
}

// SetCount is used when list content changes, e.g. accessory disappeared.
func (l *List) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	l.count = n
	l.fix()
}

func (l *List) SetVisible(v int) {
	if v < 1 {
		v = 1
	}
	l.visible = v
	l.fix()
}

func (l *List) Reset() {
	l.cursor = 0
	l.scroll = 0
}

func (l *List) maxScroll() int { return max(0, l.count-l.visible) }

// fix restores invariants after jumps longer than one row or after list shrinks.
func (l *List) fix() {
	if l.count == 0 {
		l.cursor, l.scroll = 0, 0
		return
	}
	l.cursor = clamp(l.cursor, 0, l.count-1)
	if l.cursor < l.scroll {
		l.scroll = l.cursor
	}
	if l.cursor >= l.scroll+l.visible {
		l.scroll = l.cursor - l.visible + 1
	}
	l.scroll = clamp(l.scroll, 0, l.maxScroll())
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
