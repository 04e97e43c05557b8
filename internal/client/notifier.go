/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"context"
	"sync"
	"time"
)

// Notifier wakes every waiter and optionally an external event loop.
//
// Waiters take a Token before inspecting the state they wait on and pass
// it to Wait. A Notify that lands in between bumps the generation, so the
// wait returns at once instead of missing it.
type Notifier struct {
	mu    sync.Mutex
	gen   uint64
	ch    chan struct{}
	cb    func()
	armed bool
}

// NewNotifier creates an idle notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}), armed: true}
}

// Token returns the current generation. It also re-arms the callback,
// since the caller is about to look at the state.
func (n *Notifier) Token() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.armed = true
	return n.gen
}

// Notify wakes all current waiters. The callback fires once per armed
// period; further notifications before the next Token are coalesced.
func (n *Notifier) Notify() {
	n.mu.Lock()
	n.gen++
	close(n.ch)
	n.ch = make(chan struct{})
	var cb func()
	if n.armed {
		cb = n.cb
		n.armed = false
	}
	n.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// SetCallback installs cb and calls it once so the integrating loop
// re-checks state.
func (n *Notifier) SetCallback(cb func()) {
	n.mu.Lock()
	n.cb = cb
	n.armed = true
	n.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// changed returns the channel closed by the next Notify, or nil when the
// generation already moved past since.
func (n *Notifier) changed(since uint64) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.gen != since {
		return nil
	}
	return n.ch
}

// Wait blocks until a Notify after since, or until deadline passes.
// forever ignores the deadline. It returns false on timeout.
func (n *Notifier) Wait(since uint64, deadline time.Time, forever bool) bool {
	ch := n.changed(since)
	if ch == nil {
		return true
	}
	if forever {
		<-ch
		return true
	}
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// WaitContext blocks until a Notify after since, or until ctx ends.
func (n *Notifier) WaitContext(ctx context.Context, since uint64) error {
	ch := n.changed(since)
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
