/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/logbuffer"
	"github.com/friendsincode/playcore/internal/telemetry"
)

// WaitForever makes WaitEvent block until an event arrives.
const WaitForever = time.Duration(math.MinInt64)

// ErrDestroyed is returned for operations on a handle being torn down.
var ErrDestroyed = errors.New("client handle destroyed")

// Handle is one client's view of the core: a bounded event queue, an event
// mask, observed properties and an optional log subscription.
type Handle struct {
	name     string
	id       int64
	logger   zerolog.Logger
	strict   bool
	hub      *logbuffer.Hub
	notifier *Notifier

	mu            sync.Mutex
	queue         *Queue
	mask          events.Mask
	queuedWakeup  bool
	shutdown      bool
	shutdownSent  bool
	destroying    bool
	fullWarned    bool
	hookPending   bool
	props         []*observedProperty
	propMask      events.Mask
	propIndex     int
	pendingProps  bool
	newPropEvents bool
	logs          *logbuffer.Subscription
}

func newHandle(name string, id int64, maxEvents int, strict bool, hub *logbuffer.Hub, logger zerolog.Logger) *Handle {
	return &Handle{
		name:     name,
		id:       id,
		logger:   logger.With().Str("client", name).Logger(),
		strict:   strict,
		hub:      hub,
		notifier: NewNotifier(),
		queue:    NewQueue(maxEvents),
		mask:     events.DefaultMask,
	}
}

// Name returns the unique client name.
func (h *Handle) Name() string { return h.name }

// ID returns the registry-assigned client id.
func (h *Handle) ID() int64 { return h.id }

// QueueLen returns the number of buffered events.
func (h *Handle) QueueLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queue.Len()
}

// Reserved returns the number of outstanding reply reservations.
func (h *Handle) Reserved() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queue.Reserved()
}

// Send queues an unsolicited event. Events masked out by the client are
// dropped silently. A full queue drops the event and returns
// apierr.EventQueueFull; the client sees an overflow event later.
func (h *Handle) Send(ev events.Event) error {
	h.mu.Lock()
	if h.propMask.Has(ev.Kind) {
		h.markPropsForEventLocked(ev.Kind)
	}
	if h.destroying {
		h.mu.Unlock()
		events.Release(ev.Data)
		return ErrDestroyed
	}
	if !h.mask.Has(ev.Kind) {
		h.mu.Unlock()
		events.Release(ev.Data)
		return nil
	}
	ok := h.queue.Push(ev)
	warn := !ok && !h.fullWarned
	if warn {
		h.fullWarned = true
	}
	h.mu.Unlock()

	if !ok {
		events.Release(ev.Data)
		telemetry.EventsDropped.WithLabelValues(ev.Kind.String()).Inc()
		if warn {
			h.logger.Warn().Str("event", ev.Kind.String()).Msg("too many events queued")
		}
		return apierr.EventQueueFull
	}
	h.notifier.Notify()
	return nil
}

// Reserve sets aside a queue slot for the reply to an asynchronous request.
func (h *Handle) Reserve() (Token, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroying {
		return Token{}, apierr.Uninitialized
	}
	return h.queue.Reserve()
}

// Reply delivers the reply for tok. Replies for a handle that is being
// destroyed are discarded and their payload released.
func (h *Handle) Reply(tok Token, ev events.Event) error {
	h.mu.Lock()
	if h.destroying {
		h.queue.Cancel(tok)
		h.mu.Unlock()
		events.Release(ev.Data)
		h.notifier.Notify()
		return ErrDestroyed
	}
	err := h.queue.PushReserved(tok, ev)
	h.mu.Unlock()

	if err != nil {
		events.Release(ev.Data)
		h.logger.Error().Err(err).Str("event", ev.Kind.String()).Msg("reply without reservation")
		if h.strict {
			panic("client: " + err.Error())
		}
		return err
	}
	h.notifier.Notify()
	return nil
}

// Cancel drops a reservation that will never be replied to.
func (h *Handle) Cancel(tok Token) {
	h.mu.Lock()
	h.queue.Cancel(tok)
	h.mu.Unlock()
	h.notifier.Notify()
}

// WaitEvent returns the next event for the client. A zero or negative
// timeout polls; WaitForever blocks. On timeout the event kind is None.
func (h *Handle) WaitEvent(timeout time.Duration) events.Event {
	forever := timeout == WaitForever
	var deadline time.Time
	if !forever {
		if timeout < 0 {
			timeout = 0
		}
		deadline = time.Now().Add(timeout)
	}

	h.mu.Lock()
	var ev events.Event
	for {
		token := h.notifier.Token()
		if h.queuedWakeup {
			forever = false
			deadline = time.Now()
		}
		if h.queue.Recover() {
			ev = events.Event{Kind: events.QueueOverflow}
			break
		}
		if next, ok := h.nextQueuedLocked(); ok {
			ev = next
			break
		}
		if h.shutdown {
			if !h.shutdownSent {
				h.shutdownSent = true
				ev = events.Event{Kind: events.Shutdown}
				break
			}
			// Nothing more will arrive from the core.
			forever = false
			deadline = time.Now()
		}
		if next, ok := h.nextPropertyChangeLocked(); ok {
			ev = next
			break
		}
		if next, ok := h.nextLogMessageLocked(); ok {
			ev = next
			break
		}

		h.mu.Unlock()
		woken := h.notifier.Wait(token, deadline, forever)
		h.mu.Lock()
		if !woken {
			break
		}
	}
	h.queuedWakeup = false
	h.mu.Unlock()

	if ev.Kind != events.None {
		telemetry.EventsDelivered.WithLabelValues(ev.Kind.String()).Inc()
	}
	return ev
}

// nextQueuedLocked pops the head of the queue. A hook event is held back
// until property changes that predate it were returned.
func (h *Handle) nextQueuedLocked() (events.Event, bool) {
	head, ok := h.queue.Peek()
	if !ok {
		return events.Event{}, false
	}
	if head.Kind == events.Hook {
		if !h.hookPending {
			h.hookPending = true
			for _, p := range h.props {
				if p.changeTS != p.retTS {
					p.waitingForHook = true
				}
			}
			h.newPropEvents = true
		}
		for _, p := range h.props {
			if p.waitingForHook {
				return events.Event{}, false
			}
		}
		h.hookPending = false
	}
	return h.queue.Pop()
}

func (h *Handle) nextPropertyChangeLocked() (events.Event, bool) {
	for {
		if h.propIndex >= len(h.props) {
			if !h.newPropEvents || len(h.props) == 0 {
				h.newPropEvents = false
				return events.Event{}, false
			}
			h.newPropEvents = false
			h.propIndex = 0
		}
		p := h.props[h.propIndex]
		h.propIndex++
		if p.due() {
			return p.event(), true
		}
	}
}

func (h *Handle) nextLogMessageLocked() (events.Event, bool) {
	if h.logs == nil {
		return events.Event{}, false
	}
	entry, ok := h.logs.Read()
	if !ok {
		return events.Event{}, false
	}
	return events.Event{
		Kind: events.LogMessage,
		Data: events.LogMessageData{Prefix: entry.Prefix, Level: entry.Level.String(), Text: entry.Text},
	}, true
}

// RequestEvent enables or disables delivery of kind. Shutdown cannot be
// disabled.
func (h *Handle) RequestEvent(kind events.Kind, enable bool) error {
	if !kind.Valid() {
		return apierr.InvalidParameter
	}
	if kind == events.Shutdown && !enable {
		return apierr.InvalidParameter
	}
	h.mu.Lock()
	h.mask = h.mask.With(kind, enable)
	h.mu.Unlock()
	return nil
}

// Mask returns the current event mask.
func (h *Handle) Mask() events.Mask {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mask
}

// RequestLogMessages subscribes to core log lines at level or more severe.
// "no" cancels the subscription.
func (h *Handle) RequestLogMessages(level string) error {
	lvl, err := logbuffer.ParseLevel(level)
	if err != nil {
		return apierr.InvalidParameter
	}
	if h.hub == nil {
		return apierr.Unsupported
	}

	h.mu.Lock()
	var old *logbuffer.Subscription
	if h.logs != nil && (lvl == logbuffer.LevelNone || lvl != h.logs.Level()) {
		old = h.logs
		h.logs = nil
	}
	if lvl != logbuffer.LevelNone && h.logs == nil && !h.destroying {
		h.logs = h.hub.Subscribe(lvl, h.notifier.Notify)
	}
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
	h.notifier.Notify()
	return nil
}

// Wakeup interrupts a blocked WaitEvent, which then returns None.
func (h *Handle) Wakeup() {
	h.mu.Lock()
	h.queuedWakeup = true
	h.mu.Unlock()
	h.notifier.Notify()
}

// SetWakeupCallback installs a callback run whenever an event may have
// become available. It must not call back into the handle.
func (h *Handle) SetWakeupCallback(cb func()) {
	h.notifier.SetCallback(cb)
}

// WaitAsyncRequests blocks until every reservation was replied to or
// cancelled.
func (h *Handle) WaitAsyncRequests(ctx context.Context) error {
	for {
		token := h.notifier.Token()
		h.mu.Lock()
		n := h.queue.Reserved()
		h.mu.Unlock()
		if n == 0 {
			return nil
		}
		if err := h.notifier.WaitContext(ctx, token); err != nil {
			return err
		}
	}
}

// Observe registers interest in a property. The first refresh always
// produces a change event. mask lists events that imply the property may
// have changed.
func (h *Handle) Observe(userdata uint64, name string, mask events.Mask) error {
	if name == "" {
		return apierr.InvalidParameter
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroying {
		return apierr.Uninitialized
	}
	h.props = append(h.props, newObservedProperty(name, userdata, mask))
	h.propMask |= mask
	h.propIndex = 0
	h.pendingProps = true
	h.newPropEvents = true
	return nil
}

// Unobserve removes every observation registered with userdata and
// returns how many were removed.
func (h *Handle) Unobserve(userdata uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.props[:0]
	removed := 0
	var mask events.Mask
	for _, p := range h.props {
		if p.userdata == userdata {
			p.removed = true
			removed++
			continue
		}
		mask |= p.mask
		kept = append(kept, p)
	}
	for i := len(kept); i < len(h.props); i++ {
		h.props[i] = nil
	}
	h.props = kept
	h.propMask = mask
	h.propIndex = 0
	return removed
}

// markPropertyChanged flags observations of name as stale.
func (h *Handle) markPropertyChanged(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	hit := false
	for _, p := range h.props {
		if p.name == name {
			p.changeTS++
			hit = true
		}
	}
	if hit {
		h.pendingProps = true
	}
	return hit
}

func (h *Handle) markPropsForEventLocked(kind events.Kind) {
	for _, p := range h.props {
		if p.mask.Has(kind) {
			p.changeTS++
			h.pendingProps = true
		}
	}
}

// refreshProperties re-reads stale observed properties with read, which
// runs without the handle lock held.
func (h *Handle) refreshProperties(read func(name string) (any, bool)) {
	h.mu.Lock()
	if !h.pendingProps || h.destroying {
		h.mu.Unlock()
		return
	}
	h.pendingProps = false
	type staleProp struct {
		p  *observedProperty
		ts uint64
	}
	var stale []staleProp
	for _, p := range h.props {
		if p.valueTS != p.changeTS {
			stale = append(stale, staleProp{p: p, ts: p.changeTS})
		}
	}
	h.mu.Unlock()

	if len(stale) == 0 {
		return
	}
	type result struct {
		value any
		valid bool
	}
	results := make([]result, len(stale))
	for i, s := range stale {
		v, ok := read(s.p.name)
		results[i] = result{value: v, valid: ok}
	}

	h.mu.Lock()
	for i, s := range stale {
		if s.p.removed {
			continue
		}
		if s.p.changeTS != s.ts {
			// Changed again while reading.
			h.pendingProps = true
			continue
		}
		if s.p.waitingForHook {
			h.newPropEvents = true
		}
		if s.p.update(s.ts, results[i].value, results[i].valid) {
			h.newPropEvents = true
		}
	}
	wake := h.newPropEvents
	h.mu.Unlock()

	if wake {
		h.notifier.Notify()
	}
}

func (h *Handle) hasPendingProperties() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pendingProps
}

func (h *Handle) markShutdown() {
	h.mu.Lock()
	h.shutdown = true
	h.mu.Unlock()
	h.notifier.Notify()
}

// destroy tears the handle down and returns how many undelivered events
// were released.
func (h *Handle) destroy() int {
	h.mu.Lock()
	h.destroying = true
	for _, p := range h.props {
		p.removed = true
	}
	h.props = nil
	h.propMask = 0
	logs := h.logs
	h.logs = nil
	n := h.queue.Drain()
	h.mu.Unlock()

	if logs != nil {
		logs.Close()
	}
	h.notifier.Notify()
	return n
}
