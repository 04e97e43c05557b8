/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events defines the event kinds delivered to clients and their payloads.
package events

import "github.com/friendsincode/playcore/internal/apierr"

// Kind enumerates event categories. The numbers are stable.
type Kind int

const (
	None             Kind = 0
	Shutdown         Kind = 1
	LogMessage       Kind = 2
	GetPropertyReply Kind = 3
	SetPropertyReply Kind = 4
	CommandReply     Kind = 5
	StartFile        Kind = 6
	EndFile          Kind = 7
	FileLoaded       Kind = 8
	TracksChanged    Kind = 9
	TrackSwitched    Kind = 10
	Idle             Kind = 11
	Pause            Kind = 12
	Unpause          Kind = 13
	Tick             Kind = 14
	ClientMessage    Kind = 16
	VideoReconfig    Kind = 17
	AudioReconfig    Kind = 18
	MetadataUpdate   Kind = 19
	Seek             Kind = 20
	PlaybackRestart  Kind = 21
	PropertyChange   Kind = 22
	ChapterChange    Kind = 23
	QueueOverflow    Kind = 24
	Hook             Kind = 25

	numKinds = 26
)

var names = [numKinds]string{
	None:             "none",
	Shutdown:         "shutdown",
	LogMessage:       "log-message",
	GetPropertyReply: "get-property-reply",
	SetPropertyReply: "set-property-reply",
	CommandReply:     "command-reply",
	StartFile:        "start-file",
	EndFile:          "end-file",
	FileLoaded:       "file-loaded",
	TracksChanged:    "tracks-changed",
	TrackSwitched:    "track-switched",
	Idle:             "idle",
	Pause:            "pause",
	Unpause:          "unpause",
	Tick:             "tick",
	ClientMessage:    "client-message",
	VideoReconfig:    "video-reconfig",
	AudioReconfig:    "audio-reconfig",
	MetadataUpdate:   "metadata-update",
	Seek:             "seek",
	PlaybackRestart:  "playback-restart",
	PropertyChange:   "property-change",
	ChapterChange:    "chapter-change",
	QueueOverflow:    "event-queue-overflow",
	Hook:             "hook",
}

// Name returns the wire name of k, or false when k is not a known kind.
func Name(k Kind) (string, bool) {
	if k < 0 || int(k) >= len(names) || names[k] == "" {
		return "", false
	}
	return names[k], true
}

func (k Kind) String() string {
	if name, ok := Name(k); ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := Name(k)
	return ok
}

// Parse looks up a kind by wire name.
func Parse(name string) (Kind, bool) {
	for i, n := range names {
		if n != "" && n == name {
			return Kind(i), true
		}
	}
	return None, false
}

// Mask is a bitset over event kinds.
type Mask uint64

// Bit returns the mask bit for k.
func Bit(k Kind) Mask { return 1 << uint(k) }

// Has reports whether k is set.
func (m Mask) Has(k Kind) bool { return m&Bit(k) != 0 }

// With returns m with k set or cleared.
func (m Mask) With(k Kind, enabled bool) Mask {
	if enabled {
		return m | Bit(k)
	}
	return m &^ Bit(k)
}

// AllMask enables every kind.
const AllMask Mask = 1<<numKinds - 1

// DefaultMask is what new clients receive: everything except the high
// frequency tick.
const DefaultMask = AllMask &^ (1 << Tick)

// Event is one entry of a client's queue.
type Event struct {
	Kind          Kind
	Error         apierr.Code
	ReplyUserdata uint64
	Data          any
}

// Releaser is implemented by payloads that hold resources which must be
// freed when an event is dropped undelivered.
type Releaser interface {
	Release()
}

// Cloner is implemented by payloads that must be deep-copied per recipient
// when broadcast.
type Cloner interface {
	Clone() any
}

// Release frees data if it owns anything.
func Release(data any) {
	if r, ok := data.(Releaser); ok {
		r.Release()
	}
}

// Clone returns a per-recipient copy of data.
func Clone(data any) any {
	if c, ok := data.(Cloner); ok {
		return c.Clone()
	}
	return data
}
