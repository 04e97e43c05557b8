/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer captures the process log stream and fans it out to
// per-client bounded rings.
package logbuffer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level is a log verbosity, ordered from most to least severe.
type Level int

const (
	LevelNone Level = iota - 1
	LevelFatal
	LevelError
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelDebug
	LevelTrace
)

var levelNames = []string{"fatal", "error", "warn", "info", "v", "debug", "trace"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "no"
	}
	return levelNames[l]
}

// ParseLevel accepts the names clients use when subscribing. "no" disables
// the subscription; "terminal-default" is info.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "no":
		return LevelNone, nil
	case "terminal-default":
		return LevelInfo, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown log level %q", name)
}

// CapacityFor returns the ring size used for a subscription at level.
func CapacityFor(level Level) int {
	if level >= LevelVerbose {
		return 10000
	}
	return 1000
}

func levelFromZerolog(s string) Level {
	switch s {
	case "panic", "fatal":
		return LevelFatal
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Prefix    string
	Text      string
	Fields    map[string]interface{}
}

// Subscription is a bounded ring of entries at or above a level. When full
// the oldest entry is overwritten and counted as dropped.
type Subscription struct {
	hub    *Hub
	level  Level
	notify func()

	mu       sync.Mutex
	entries  []Entry
	capacity int
	head     int
	count    int
	dropped  int
	closed   bool
}

// Level returns the minimum level delivered to this subscription.
func (s *Subscription) Level() Level { return s.level }

func (s *Subscription) add(entry Entry) {
	if entry.Level > s.level {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	idx := (s.head + s.count) % s.capacity
	s.entries[idx] = entry
	if s.count < s.capacity {
		s.count++
	} else {
		s.head = (s.head + 1) % s.capacity
		s.dropped++
	}
	s.mu.Unlock()

	if s.notify != nil {
		s.notify()
	}
}

// Read pops the oldest entry.
func (s *Subscription) Read() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return Entry{}, false
	}
	entry := s.entries[s.head]
	s.entries[s.head] = Entry{}
	s.head = (s.head + 1) % s.capacity
	s.count--
	return entry, true
}

// Len returns the number of unread entries.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Dropped returns how many entries were overwritten before being read.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close detaches the subscription from its hub and discards unread entries.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.count = 0
	s.entries = nil
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.remove(s)
	}
}

// Hub is an io.Writer for zerolog JSON output that copies every line into
// the matching subscriptions.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	fallback io.Writer
}

// NewHub creates a hub. Lines are forwarded to fallback when it is non-nil.
func NewHub(fallback io.Writer) *Hub {
	return &Hub{
		subs:     make(map[*Subscription]struct{}),
		fallback: fallback,
	}
}

// Subscribe registers a ring receiving entries at or above level. notify is
// called after each accepted entry, outside of any hub lock.
func (h *Hub) Subscribe(level Level, notify func()) *Subscription {
	capacity := CapacityFor(level)
	sub := &Subscription{
		hub:      h,
		level:    level,
		notify:   notify,
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers an entry directly.
func (h *Hub) Publish(entry Entry) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.add(entry)
	}
}

// Write implements io.Writer.
func (h *Hub) Write(p []byte) (n int, err error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(p, &raw); err == nil {
		entry := Entry{
			Timestamp: time.Now(),
			Level:     LevelInfo,
			Prefix:    "playcore",
			Fields:    make(map[string]interface{}),
		}

		if lvl, ok := raw["level"].(string); ok {
			entry.Level = levelFromZerolog(lvl)
			delete(raw, "level")
		}
		if msg, ok := raw["message"].(string); ok {
			entry.Text = msg
			delete(raw, "message")
		}
		if comp, ok := raw["component"].(string); ok && comp != "" {
			entry.Prefix = comp
			delete(raw, "component")
		}
		switch ts := raw["time"].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				entry.Timestamp = t
			}
		case float64:
			entry.Timestamp = time.Unix(int64(ts), 0)
		}
		delete(raw, "time")
		for k, v := range raw {
			entry.Fields[k] = v
		}

		h.Publish(entry)
	} else if text := strings.TrimSpace(string(p)); text != "" {
		h.Publish(Entry{Timestamp: time.Now(), Level: LevelInfo, Prefix: "playcore", Text: text})
	}

	if h.fallback != nil {
		return h.fallback.Write(p)
	}
	return len(p), nil
}
