/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist holds the ordered list of files the core plays.
package playlist

import (
	"github.com/google/uuid"
)

// LoopInfinite makes the playlist repeat forever.
const LoopInfinite = -1

// Entry is one playlist item.
type Entry struct {
	ID    string
	URL   string
	Title string

	// PlaybackShort is set when the entry ended within a few seconds of
	// starting; backwards navigation skips such entries.
	PlaybackShort bool
	// InitFailed is set when the entry could not be played at all.
	InitFailed bool
}

// Playlist is an ordered list with a current entry. It is owned by the
// core goroutine and not safe for concurrent use.
type Playlist struct {
	entries []*Entry
	current *Entry
	// Loop is the number of passes: 1 plays once, LoopInfinite repeats,
	// n > 1 plays n times in total.
	Loop int
}

// New creates an empty playlist that plays once.
func New() *Playlist {
	return &Playlist{Loop: 1}
}

// Append adds url at the end.
func (p *Playlist) Append(url string) *Entry {
	e := &Entry{ID: uuid.NewString(), URL: url}
	p.entries = append(p.entries, e)
	return e
}

// InsertAfter inserts urls after at, or at the front for nil. It returns
// the new entries.
func (p *Playlist) InsertAfter(at *Entry, urls []string) []*Entry {
	pos := 0
	if at != nil {
		pos = p.Index(at) + 1
		if pos == 0 {
			pos = len(p.entries)
		}
	}
	added := make([]*Entry, 0, len(urls))
	for _, u := range urls {
		added = append(added, &Entry{ID: uuid.NewString(), URL: u})
	}
	rest := append([]*Entry(nil), p.entries[pos:]...)
	p.entries = append(append(p.entries[:pos], added...), rest...)
	return added
}

// Remove drops e. Removing the current entry leaves no current entry.
func (p *Playlist) Remove(e *Entry) {
	i := p.Index(e)
	if i < 0 {
		return
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	if p.current == e {
		p.current = nil
	}
}

// Clear removes every entry.
func (p *Playlist) Clear() {
	p.entries = nil
	p.current = nil
}

// ClearExceptCurrent removes every entry but the current one.
func (p *Playlist) ClearExceptCurrent() {
	if p.current == nil {
		p.Clear()
		return
	}
	p.entries = []*Entry{p.current}
}

// Current returns the current entry or nil.
func (p *Playlist) Current() *Entry { return p.current }

// SetCurrent makes e current. e must belong to the playlist or be nil.
func (p *Playlist) SetCurrent(e *Entry) {
	if e != nil && p.Index(e) < 0 {
		return
	}
	p.current = e
}

// Len returns the number of entries.
func (p *Playlist) Len() int { return len(p.entries) }

// Index returns e's position or -1.
func (p *Playlist) Index(e *Entry) int {
	for i, x := range p.entries {
		if x == e {
			return i
		}
	}
	return -1
}

// At returns the entry at i or nil.
func (p *Playlist) At(i int) *Entry {
	if i < 0 || i >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

// First returns the first entry or nil.
func (p *Playlist) First() *Entry { return p.At(0) }

// Entries returns copies of every entry.
func (p *Playlist) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = *e
	}
	return out
}

func (p *Playlist) rel(e *Entry, delta int) *Entry {
	i := p.Index(e)
	if i < 0 {
		return nil
	}
	return p.At(i + delta)
}

// Advance returns the entry to play after the current one in direction
// (+1 or -1) without changing the current entry. Unless force is set,
// going back skips entries that ended almost immediately, and looping
// stops when no entry ever played successfully. Looping consumes one pass
// from a finite Loop count.
func (p *Playlist) Advance(direction int, force bool) *Entry {
	if direction >= 0 {
		direction = 1
	} else {
		direction = -1
	}

	var next *Entry
	if p.current != nil {
		next = p.rel(p.current, direction)
	}
	if next != nil && direction < 0 && !force {
		for next != nil && next.PlaybackShort {
			next = p.rel(next, -1)
		}
		if next == nil && p.Loop == 1 {
			next = p.First()
		}
	}

	if next == nil && p.Loop != 1 {
		if direction > 0 {
			next = p.First()
			if next != nil && p.Loop > 1 {
				p.Loop--
			}
		} else {
			next = p.At(len(p.entries) - 1)
			for next != nil && next.PlaybackShort {
				next = p.rel(next, -1)
			}
		}
		if !force && next != nil && next.InitFailed && p.allFailed() {
			next = nil
		}
	}
	return next
}

func (p *Playlist) allFailed() bool {
	for _, e := range p.entries {
		if !e.InitFailed {
			return false
		}
	}
	return true
}
