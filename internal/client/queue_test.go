/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"errors"
	"testing"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
)

type countedPayload struct {
	released *int
}

func (p countedPayload) Release() { *p.released++ }

func TestQueueCapacity(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		if !q.Push(events.Event{Kind: events.Tick}) {
			t.Fatalf("push %d failed", i)
		}
	}
	if q.Push(events.Event{Kind: events.Tick}) {
		t.Fatal("push into full queue succeeded")
	}
	if !q.Choked() {
		t.Fatal("queue should be choked after overflow")
	}

	// Choked queues refuse work even after space frees up.
	q.Pop()
	if q.Push(events.Event{Kind: events.Tick}) {
		t.Fatal("push into choked queue succeeded")
	}
	if _, err := q.Reserve(); !errors.Is(err, apierr.EventQueueFull) {
		t.Fatalf("Reserve on choked queue err = %v", err)
	}

	if q.Recover() {
		t.Fatal("recover should wait until the queue is empty")
	}
	q.Drain()
	if !q.Recover() || q.Choked() {
		t.Fatal("expected recovery on empty queue")
	}
}

func TestQueueReservations(t *testing.T) {
	q := NewQueue(3)

	tok1, err := q.Reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	tok2, err := q.Reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !q.Push(events.Event{Kind: events.Idle}) {
		t.Fatal("push with one free slot failed")
	}

	// Every slot is now buffered or reserved.
	if q.Push(events.Event{Kind: events.Idle}) {
		t.Fatal("push should fail when reserved slots fill the queue")
	}
	if err := q.PushReserved(tok1, events.Event{Kind: events.CommandReply}); err != nil {
		t.Fatalf("reserved push failed: %v", err)
	}
	if err := q.PushReserved(tok2, events.Event{Kind: events.CommandReply}); err != nil {
		t.Fatalf("reserved push failed: %v", err)
	}
	if err := q.PushReserved(tok2, events.Event{Kind: events.CommandReply}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token err = %v", err)
	}
	if q.Len() != 3 || q.Reserved() != 0 {
		t.Fatalf("len=%d reserved=%d", q.Len(), q.Reserved())
	}

	order := []events.Kind{events.Idle, events.CommandReply, events.CommandReply}
	for _, want := range order {
		ev, ok := q.Pop()
		if !ok || ev.Kind != want {
			t.Fatalf("pop = %v %v, want %v", ev.Kind, ok, want)
		}
	}
}

func TestQueueDrainReleasesPayloads(t *testing.T) {
	q := NewQueue(8)
	released := 0
	for i := 0; i < 3; i++ {
		q.Push(events.Event{Kind: events.ClientMessage, Data: countedPayload{released: &released}})
	}
	if n := q.Drain(); n != 3 {
		t.Fatalf("Drain() = %d", n)
	}
	if released != 3 {
		t.Fatalf("released %d payloads, want 3", released)
	}
}
