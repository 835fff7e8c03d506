// Package sections tracks which page section is active for one viewer.
// Each connection owns its own Tracker; there is no shared scroll state.
package sections

import (
	"sync"

	"github.com/conneroisu/devlog/internal/content"
)

// Viewport is the visible vertical window of the page.
type Viewport struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Change is delivered to subscribers when the active section moves.
type Change struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Tracker computes the active section from viewport updates.
type Tracker struct {
	mutex       sync.Mutex
	sections    []content.Section
	active      string
	nextID      int
	subscribers map[int]func(Change)
}

// NewTracker creates a tracker over sections in document order.
func NewTracker(sections []content.Section) *Tracker {
	s := make([]content.Section, len(sections))
	copy(s, sections)

	return &Tracker{
		sections:    s,
		subscribers: make(map[int]func(Change)),
	}
}

// Active returns the current active section id, or "" before the first hit.
func (t *Tracker) Active() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.active
}

// SetSections replaces the section geometry. The active id is kept.
func (t *Tracker) SetSections(sections []content.Section) {
	s := make([]content.Section, len(sections))
	copy(s, sections)

	t.mutex.Lock()
	t.sections = s
	t.mutex.Unlock()
}

// Update recomputes the active section for vp and returns it. When no
// section intersects the viewport the active section is left unchanged.
func (t *Tracker) Update(vp Viewport) string {
	t.mutex.Lock()
	current := ActiveSection(t.sections, vp)
	if current == "" || current == t.active {
		active := t.active
		t.mutex.Unlock()
		return active
	}

	change := Change{Previous: t.active, Current: current}
	t.active = current
	subs := make([]func(Change), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subs = append(subs, fn)
	}
	t.mutex.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return current
}

// Subscribe registers fn for active-section changes. The returned function
// removes the subscription and is safe to call more than once.
func (t *Tracker) Subscribe(fn func(Change)) func() {
	t.mutex.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = fn
	t.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mutex.Lock()
			delete(t.subscribers, id)
			t.mutex.Unlock()
		})
	}
}

// ActiveSection returns the id of the section with the largest visible
// height in vp. Ties go to the earliest section. It returns "" when no
// section intersects.
func ActiveSection(sections []content.Section, vp Viewport) string {
	best := ""
	bestVisible := 0.0
	for _, s := range sections {
		if v := Visible(s, vp); v > bestVisible {
			best, bestVisible = s.ID, v
		}
	}
	return best
}

// Visible is the height of the overlap of [top, top+height) for the
// section and the viewport.
func Visible(s content.Section, vp Viewport) float64 {
	lo := max(s.Top, vp.Top)
	hi := min(s.Top+s.Height, vp.Top+vp.Height)
	if hi <= lo {
		return 0
	}
	return hi - lo
}
