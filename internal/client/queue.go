/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"errors"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
)

// ErrInvalidToken is returned when a reservation token is unknown or was
// already consumed.
var ErrInvalidToken = errors.New("invalid or already consumed reservation token")

// Token is a claim on one reserved queue slot.
type Token struct {
	id uint64
}

// Queue is a fixed-capacity ring of events with a reserved-slot counter.
// It is not safe for concurrent use; Handle guards it with its own lock.
//
// Invariant: Len() + Reserved() <= Cap().
type Queue struct {
	events   []events.Event
	first    int
	count    int
	reserved int
	choked   bool

	nextToken uint64
	tokens    map[uint64]struct{}
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Queue{
		events: make([]events.Event, capacity),
		tokens: make(map[uint64]struct{}),
	}
}

func (q *Queue) Cap() int      { return len(q.events) }
func (q *Queue) Len() int      { return q.count }
func (q *Queue) Reserved() int { return q.reserved }

// Choked reports whether the queue overflowed and has not drained since.
func (q *Queue) Choked() bool { return q.choked }

func (q *Queue) append(ev events.Event) bool {
	if q.count+q.reserved >= len(q.events) {
		return false
	}
	q.events[(q.first+q.count)%len(q.events)] = ev
	q.count++
	return true
}

// Push appends ev into a free unreserved slot. A failed push chokes the
// queue: later pushes and reservations fail until it drains.
func (q *Queue) Push(ev events.Event) bool {
	if q.choked {
		return false
	}
	if !q.append(ev) {
		q.choked = true
		return false
	}
	return true
}

// Reserve claims a slot for a future PushReserved.
func (q *Queue) Reserve() (Token, error) {
	if q.choked || q.reserved+q.count >= len(q.events) {
		return Token{}, apierr.EventQueueFull
	}
	q.nextToken++
	tok := Token{id: q.nextToken}
	q.tokens[tok.id] = struct{}{}
	q.reserved++
	return tok, nil
}

// PushReserved consumes tok and appends ev. The slot was set aside by
// Reserve, so this only fails for unknown or reused tokens.
func (q *Queue) PushReserved(tok Token, ev events.Event) error {
	if !q.Cancel(tok) {
		return ErrInvalidToken
	}
	if !q.append(ev) {
		// Unreachable while the invariant holds.
		return ErrInvalidToken
	}
	return nil
}

// Cancel releases a reservation without delivering anything.
func (q *Queue) Cancel(tok Token) bool {
	if _, ok := q.tokens[tok.id]; !ok {
		return false
	}
	delete(q.tokens, tok.id)
	q.reserved--
	return true
}

// Peek returns the oldest event without removing it.
func (q *Queue) Peek() (events.Event, bool) {
	if q.count == 0 {
		return events.Event{}, false
	}
	return q.events[q.first], true
}

// Pop removes and returns the oldest event. Ownership of its payload moves
// to the caller.
func (q *Queue) Pop() (events.Event, bool) {
	if q.count == 0 {
		return events.Event{}, false
	}
	ev := q.events[q.first]
	q.events[q.first] = events.Event{}
	q.first = (q.first + 1) % len(q.events)
	q.count--
	return ev, true
}

// Recover clears the choked state once the queue is empty and reports
// whether it did.
func (q *Queue) Recover() bool {
	if q.choked && q.count == 0 {
		q.choked = false
		return true
	}
	return false
}

// Drain drops every buffered event, releasing payloads, and returns how
// many were dropped.
func (q *Queue) Drain() int {
	n := 0
	for {
		ev, ok := q.Pop()
		if !ok {
			return n
		}
		events.Release(ev.Data)
		n++
	}
}
