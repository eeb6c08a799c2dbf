// Package morph maps a scroll position onto the pair of sections being
// blended and the blend fraction between them.
package morph

import (
	"fmt"
	"math"
)

// State is the morph position for one scroll value.
type State struct {
	Current  int     // section being departed
	Next     int     // section being arrived at; equals Current on the last section
	Progress float64 // blend from Current to Next, in [0,1]
}

// SamePair reports whether s and o blend the same two sections.
func (s State) SamePair(o State) bool {
	return s.Current == o.Current && s.Next == o.Next
}

// Resolve maps a scroll fraction s onto k sections. Out-of-range fractions
// are clamped; k <= 1 yields the zero state.
func Resolve(s float64, k int) State {
	if k <= 1 {
		return State{}
	}
	if math.IsNaN(s) {
		s = 0
	}
	s = clamp(s, 0, 1)

	last := k - 1
	pos := s * float64(last)
	current := int(math.Floor(pos))
	current = min(max(current, 0), last)
	next := min(current+1, last)

	return State{
		Current:  current,
		Next:     next,
		Progress: clamp(pos-float64(current), 0, 1),
	}
}

// Controller tracks the morph state across scroll updates and reports when
// the section pair changes. Progress changes alone are not reported.
type Controller struct {
	sections int
	state    State
	started  bool
}

// NewController creates a controller for k sections.
func NewController(k int) (*Controller, error) {
	if k < 1 {
		return nil, fmt.Errorf("morph controller needs at least one section, got %d", k)
	}
	return &Controller{sections: k}, nil
}

// Sections returns the section count.
func (c *Controller) Sections() int {
	return c.sections
}

// State returns the last resolved state.
func (c *Controller) State() State {
	return c.state
}

// Update resolves s and reports whether the (Current, Next) pair changed.
// The first update always reports a change.
func (c *Controller) Update(s float64) (State, bool) {
	st := Resolve(s, c.sections)
	changed := !c.started || !st.SamePair(c.state)
	c.state = st
	c.started = true
	return st, changed
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
