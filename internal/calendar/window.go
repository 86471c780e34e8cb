package calendar

import (
	"sync"
	"time"
)

type Direction int

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Window is the contiguous span of dates the schedule view has materialized.
// It only grows, one side at a time.
type Window struct {
	mu    sync.RWMutex
	start time.Time
	end   time.Time
	g     Granularity
}

// Margin is the number of periods kept on each side of today at start: one
// week for week granularity, three months for month granularity.
func Margin(g Granularity) int {
	if g == Month {
		return 3
	}
	return 1
}

// NewWindow returns a window around today.
func NewWindow(today time.Time, g Granularity) *Window {
	m := Margin(g)
	return &Window{
		start: addPeriods(PeriodStart(today, g), g, -m),
		end:   PeriodEnd(addPeriods(PeriodStart(today, g), g, m), g),
		g:     g,
	}
}

func (w *Window) Granularity() Granularity {
	return w.g
}

// Bounds returns the first and last materialized day.
func (w *Window) Bounds() (start, end time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.start, w.end
}

func (w *Window) Contains(d time.Time) bool {
	d = Day(d)
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !d.Before(w.start) && !d.After(w.end)
}

// Expand extends the side named by towards so that it covers target plus one
// period of margin. Targets already inside the window, or lying on the other
// side, leave it unchanged. The opposite boundary never moves. It reports
// whether the window grew.
func (w *Window) Expand(towards Direction, target time.Time) bool {
	target = Day(target)
	w.mu.Lock()
	defer w.mu.Unlock()

	switch towards {
	case Backward:
		if !target.Before(w.start) {
			return false
		}
		w.start = addPeriods(PeriodStart(target, w.g), w.g, -1)
	case Forward:
		if !target.After(w.end) {
			return false
		}
		w.end = PeriodEnd(addPeriods(PeriodStart(target, w.g), w.g, 1), w.g)
	}
	return true
}

// ExpandTo expands towards whichever side target lies on.
func (w *Window) ExpandTo(target time.Time) bool {
	start, end := w.Bounds()
	switch d := Day(target); {
	case d.Before(start):
		return w.Expand(Backward, d)
	case d.After(end):
		return w.Expand(Forward, d)
	}
	return false
}

// NearEdge reports which sides the visible range [first, last] is within
// threshold days of. The view expands those sides as it scrolls.
func (w *Window) NearEdge(first, last time.Time, threshold int) []Direction {
	start, end := w.Bounds()
	var dirs []Direction
	if !Day(first).After(start.AddDate(0, 0, threshold)) {
		dirs = append(dirs, Backward)
	}
	if !Day(last).Before(end.AddDate(0, 0, -threshold)) {
		dirs = append(dirs, Forward)
	}
	return dirs
}

// Grow pushes each side in dirs past its current edge, margin included. It is
// what a proximity trigger calls after NearEdge.
func (w *Window) Grow(dirs ...Direction) bool {
	grew := false
	for _, d := range dirs {
		start, end := w.Bounds()
		if d == Backward {
			grew = w.Expand(Backward, start.AddDate(0, 0, -1)) || grew
		} else {
			grew = w.Expand(Forward, end.AddDate(0, 0, 1)) || grew
		}
	}
	return grew
}

// BatchKeys lists, in order, the batch keys covering the window.
func (w *Window) BatchKeys() []string {
	start, end := w.Bounds()
	var keys []string
	for d := PeriodStart(start, w.g); !d.After(end); d = addPeriods(d, w.g, 1) {
		keys = append(keys, BatchKey(d, w.g))
	}
	return keys
}
