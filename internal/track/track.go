/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import (
	"errors"
	"fmt"
)

// Type is a stream type.
type Type int

const (
	Video Type = iota
	Audio
	Sub
	NumTypes
)

// NumOrders is the number of simultaneously active tracks per type
// (primary and secondary).
const NumOrders = 2

var typeNames = [NumTypes]string{"video", "audio", "sub"}

func (t Type) String() string {
	if t < 0 || t >= NumTypes {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType parses "video", "audio" or "sub".
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return 0, false
}

var (
	// ErrTrackInUse is returned when a track is already selected in another
	// slot.
	ErrTrackInUse = errors.New("track already selected in another slot")
	// ErrInvalidTrack is returned for unknown references or type mismatches.
	ErrInvalidTrack = errors.New("invalid track")
)

// Track describes one elementary stream available to the player.
type Track struct {
	Type            Type
	ID              int
	FFIndex         int
	External        bool
	AutoLoaded      bool
	Default         bool
	AttachedPicture bool
	NoDefault       bool
	Lang            string
	Title           string
	Codec           string
	Bitrate         int
	Selected        bool
	// Source is the URL of the demuxer that provides the track.
	Source string
}

// Ref is a stable index into a Set.
type Ref int

// NoTrack is the empty reference.
const NoTrack Ref = -1

// Set is the per-file track arena plus the current[order][type] slots.
// Refs stay valid until Clear.
type Set struct {
	tracks  []Track
	current [NumOrders][NumTypes]Ref
}

// NewSet creates an empty set with every slot unselected.
func NewSet() *Set {
	s := &Set{}
	s.resetSlots()
	return s
}

func (s *Set) resetSlots() {
	for o := range s.current {
		for t := range s.current[o] {
			s.current[o][t] = NoTrack
		}
	}
}

// Add stores t, assigning the next free per-type ID, and returns its Ref.
func (s *Set) Add(t Track) Ref {
	id := 0
	for _, existing := range s.tracks {
		if existing.Type == t.Type && existing.ID > id {
			id = existing.ID
		}
	}
	t.ID = id + 1
	t.Selected = false
	s.tracks = append(s.tracks, t)
	return Ref(len(s.tracks) - 1)
}

// Len returns the number of tracks.
func (s *Set) Len() int { return len(s.tracks) }

// Get returns the track for r or nil.
func (s *Set) Get(r Ref) *Track {
	if r < 0 || int(r) >= len(s.tracks) {
		return nil
	}
	return &s.tracks[r]
}

// Tracks returns a copy of every track.
func (s *Set) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Find returns the track of typ with user id.
func (s *Set) Find(typ Type, id int) Ref {
	for i, t := range s.tracks {
		if t.Type == typ && t.ID == id {
			return Ref(i)
		}
	}
	return NoTrack
}

// Current returns the track selected in slot (order, typ).
func (s *Set) Current(order int, typ Type) Ref {
	if order < 0 || order >= NumOrders || typ < 0 || typ >= NumTypes {
		return NoTrack
	}
	return s.current[order][typ]
}

// Switch points slot (order, typ) at r, or clears it for NoTrack. The
// previous track loses its Selected flag.
func (s *Set) Switch(order int, typ Type, r Ref) error {
	if order < 0 || order >= NumOrders || typ < 0 || typ >= NumTypes {
		return fmt.Errorf("slot %d/%s: %w", order, typ, ErrInvalidTrack)
	}
	if r != NoTrack {
		t := s.Get(r)
		if t == nil || t.Type != typ {
			return fmt.Errorf("ref %d for %s: %w", r, typ, ErrInvalidTrack)
		}
		for o := 0; o < NumOrders; o++ {
			if o != order && s.current[o][typ] == r {
				return fmt.Errorf("%s track %d in slot %d: %w", typ, t.ID, o, ErrTrackInUse)
			}
		}
	}

	if old := s.Get(s.current[order][typ]); old != nil {
		old.Selected = false
	}
	s.current[order][typ] = r
	if t := s.Get(r); t != nil {
		t.Selected = true
	}
	return nil
}

// Deselect clears every slot that references r.
func (s *Set) Deselect(r Ref) {
	for o := range s.current {
		for t := range s.current[o] {
			if s.current[o][t] == r {
				s.current[o][t] = NoTrack
			}
		}
	}
	if t := s.Get(r); t != nil {
		t.Selected = false
	}
}

// Clear drops every track and slot.
func (s *Set) Clear() {
	s.tracks = nil
	s.resetSlots()
}
