/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline maps positions on a virtual timeline to the source
// segments that back it.
package timeline

// Part is one contiguous segment of a timeline. Start is the position on
// the timeline, SourceStart the matching position inside Source.
type Part struct {
	Start       float64
	SourceStart float64
	Source      string
}

// PartForTime returns the index of the part containing pts: the first part
// whose next neighbour starts after pts, else the last part. Negative pts
// is treated as 0. It returns -1 for an empty timeline.
func PartForTime(parts []Part, pts float64) int {
	if len(parts) == 0 {
		return -1
	}
	if pts < 0 {
		pts = 0
	}
	for i := 0; i < len(parts)-1; i++ {
		if pts < parts[i+1].Start {
			return i
		}
	}
	return len(parts) - 1
}

// Rebuilder tears down and recreates decode chains for a new source.
type Rebuilder interface {
	Rebuild(source string) error
}

// RebuildFunc adapts a function to Rebuilder.
type RebuildFunc func(source string) error

func (f RebuildFunc) Rebuild(source string) error { return f(source) }

// Switcher tracks the active part of an immutable timeline.
type Switcher struct {
	parts     []Part
	end       float64
	rebuilder Rebuilder

	current     int
	source      string
	videoOffset float64
	lastErr     error
}

// NewSwitcher copies parts, which must be ordered by Start. end is the
// timeline length.
func NewSwitcher(parts []Part, end float64, r Rebuilder) *Switcher {
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return &Switcher{parts: cp, end: end, rebuilder: r, current: -1}
}

// Parts returns a copy of the timeline.
func (s *Switcher) Parts() []Part {
	cp := make([]Part, len(s.parts))
	copy(cp, s.parts)
	return cp
}

// Len returns the number of parts.
func (s *Switcher) Len() int { return len(s.parts) }

// End returns the timeline length.
func (s *Switcher) End() float64 { return s.end }

// Current returns the active part index, or -1 before the first switch.
func (s *Switcher) Current() int { return s.current }

// VideoOffset is part.Start - part.SourceStart for the active part.
func (s *Switcher) VideoOffset() float64 { return s.videoOffset }

// Source returns the active part's source.
func (s *Switcher) Source() string { return s.source }

// PartEnd returns where part i ends on the timeline.
func (s *Switcher) PartEnd(i int) float64 {
	if i+1 < len(s.parts) {
		return s.parts[i+1].Start
	}
	return s.end
}

// LastError returns the error of the most recent rebuild, if any.
func (s *Switcher) LastError() error { return s.lastErr }

// SwitchTo activates part i. Chains are rebuilt only when the source
// differs from the active one, or when force is set. It reports whether a
// rebuild happened.
func (s *Switcher) SwitchTo(i int, force bool) bool {
	if i < 0 || i >= len(s.parts) {
		return false
	}
	p := s.parts[i]
	rebuilt := false
	if force || s.current < 0 || p.Source != s.source {
		s.lastErr = nil
		if s.rebuilder != nil {
			s.lastErr = s.rebuilder.Rebuild(p.Source)
		}
		s.source = p.Source
		rebuilt = true
	}
	s.current = i
	s.videoOffset = p.Start - p.SourceStart
	return rebuilt
}

// SetFromTime activates the part containing pts and returns the matching
// position inside its source. ok is false when pts is at or past the end.
func (s *Switcher) SetFromTime(pts float64) (sourcePTS float64, rebuilt bool, ok bool) {
	if len(s.parts) == 0 || pts >= s.end {
		return 0, false, false
	}
	if pts < 0 {
		pts = 0
	}
	i := PartForTime(s.parts, pts)
	rebuilt = s.SwitchTo(i, false)
	return pts - s.videoOffset, rebuilt, true
}
