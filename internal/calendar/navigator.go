package calendar

import (
	"sync"
	"time"
)

// Navigator implements jump-to-date in two steps. RequestJump expands the
// window when needed and parks the target; the view calls Commit after its
// next render commit and scrolls to the date it returns. A target inside the
// window is handed out on the very next Commit as well, so callers do not
// branch on whether an expansion happened.
type Navigator struct {
	w *Window

	mu      sync.Mutex
	pending *time.Time
}

func NewNavigator(w *Window) *Navigator {
	return &Navigator{w: w}
}

func (n *Navigator) Window() *Window {
	return n.w
}

// RequestJump records target as the pending scroll and reports whether the
// window had to grow to include it. A newer request replaces an older one.
func (n *Navigator) RequestJump(target time.Time) bool {
	d := Day(target)
	expanded := n.w.ExpandTo(d)

	n.mu.Lock()
	n.pending = &d
	n.mu.Unlock()
	return expanded
}

// Commit hands out the pending target once.
func (n *Navigator) Commit() (time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == nil {
		return time.Time{}, false
	}
	d := *n.pending
	n.pending = nil
	return d, true
}

// Pending reports whether a jump is waiting for a render commit.
func (n *Navigator) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending != nil
}
