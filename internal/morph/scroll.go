package morph

// Scroll is a pixel scroll offset over a fixed range, standing in for a
// document scroll position. The zero value has no range and reports a
// fraction of 0.
type Scroll struct {
	offset float64
	limit  float64
}

// SetRange sets the maximum offset and re-clamps the current one. Negative
// ranges are treated as zero.
func (s *Scroll) SetRange(limit float64) {
	s.limit = max(limit, 0)
	s.offset = clamp(s.offset, 0, s.limit)
}

// Range returns the maximum offset.
func (s *Scroll) Range() float64 {
	return s.limit
}

// Offset returns the current offset in pixels.
func (s *Scroll) Offset() float64 {
	return s.offset
}

// ScrollBy moves the offset by delta pixels and reports whether it moved.
func (s *Scroll) ScrollBy(delta float64) bool {
	return s.ScrollTo(s.offset + delta)
}

// ScrollTo moves to an absolute offset, clamped to the range, and reports
// whether it moved.
func (s *Scroll) ScrollTo(offset float64) bool {
	offset = clamp(offset, 0, s.limit)
	if offset == s.offset {
		return false
	}
	s.offset = offset
	return true
}

// Fraction returns offset/range in [0,1], or 0 when there is nothing to
// scroll.
func (s *Scroll) Fraction() float64 {
	if s.limit <= 0 {
		return 0
	}
	return clamp(s.offset/s.limit, 0, 1)
}
