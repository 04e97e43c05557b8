/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/logbuffer"
	"github.com/friendsincode/playcore/internal/telemetry"
)

const (
	maxNameAttempts = 1000
	maxNameLen      = 64
)

var (
	// ErrNameExhausted is returned when every suffixed variant of a name is
	// taken.
	ErrNameExhausted = errors.New("no free client name")
	// ErrNotFound is returned by SendTo for unknown client names.
	ErrNotFound = errors.New("client not found")
)

// Options configures a Registry.
type Options struct {
	MaxEvents int
	Strict    bool
	Hub       *logbuffer.Hub
	// OnChange runs after a client is added or removed so the core can
	// re-evaluate its state.
	OnChange func()
}

// Registry owns every client handle of one core.
type Registry struct {
	logger zerolog.Logger
	opts   Options

	mu           sync.Mutex
	clients      []*Handle
	nextID       int64
	shuttingDown bool
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, logger zerolog.Logger) *Registry {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 1000
	}
	return &Registry{
		logger: logger.With().Str("component", "clients").Logger(),
		opts:   opts,
	}
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "client"
	}
	if len(out) > maxNameLen-4 {
		out = out[:maxNameLen-4]
	}
	return out
}

// Register creates a handle under a unique name derived from name.
func (r *Registry) Register(name string) (*Handle, error) {
	base := sanitizeName(name)

	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return nil, apierr.Uninitialized
	}
	chosen := ""
	for n := 1; n < maxNameAttempts; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s%d", base, n)
		}
		if r.findLocked(candidate) == nil {
			chosen = candidate
			break
		}
	}
	if chosen == "" {
		r.mu.Unlock()
		return nil, fmt.Errorf("register %q: %w", name, ErrNameExhausted)
	}
	r.nextID++
	h := newHandle(chosen, r.nextID, r.opts.MaxEvents, r.opts.Strict, r.opts.Hub, r.logger)
	r.clients = append(r.clients, h)
	r.mu.Unlock()

	telemetry.ClientsActive.Inc()
	r.logger.Debug().Str("client", chosen).Int64("id", h.id).Msg("client registered")
	if r.opts.OnChange != nil {
		r.opts.OnChange()
	}
	return h, nil
}

// Unregister removes h, releasing every undelivered event. It returns how
// many events were dropped and is a no-op for unknown handles.
func (r *Registry) Unregister(h *Handle) int {
	r.mu.Lock()
	idx := -1
	for i, c := range r.clients {
		if c == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return 0
	}
	r.clients = append(r.clients[:idx], r.clients[idx+1:]...)
	dropped := h.destroy()
	r.mu.Unlock()

	telemetry.ClientsActive.Dec()
	r.logger.Debug().Str("client", h.name).Int("dropped", dropped).Msg("client unregistered")
	if r.opts.OnChange != nil {
		r.opts.OnChange()
	}
	return dropped
}

func (r *Registry) findLocked(name string) *Handle {
	for _, c := range r.clients {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Find returns the handle named name, or nil.
func (r *Registry) Find(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(name)
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Names lists registered client names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for _, c := range r.clients {
		names = append(names, c.name)
	}
	return names
}

// Broadcast sends ev to every client whose mask includes its kind. Each
// recipient gets its own copy of the payload; the caller keeps ev.Data.
func (r *Registry) Broadcast(ev events.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivered := 0
	for _, c := range r.clients {
		copyEv := ev
		copyEv.Data = events.Clone(ev.Data)
		if c.Send(copyEv) == nil && c.Mask().Has(ev.Kind) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers ev to the client called name. The payload is released
// when no such client exists.
func (r *Registry) SendTo(name string, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findLocked(name)
	if c == nil {
		events.Release(ev.Data)
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return c.Send(ev)
}

// PropertyChanged marks observations of name stale in every client and
// reports whether anyone observes it.
func (r *Registry) PropertyChanged(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hit := false
	for _, c := range r.clients {
		if c.markPropertyChanged(name) {
			hit = true
		}
	}
	return hit
}

// HasPendingProperties reports whether any client has stale observations.
func (r *Registry) HasPendingProperties() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.hasPendingProperties() {
			return true
		}
	}
	return false
}

// SendPropertyChanges refreshes stale observed properties using read. It
// must run on the goroutine that owns the state read inspects.
func (r *Registry) SendPropertyChanges(read func(name string) (any, bool)) {
	r.mu.Lock()
	snapshot := make([]*Handle, len(r.clients))
	copy(snapshot, r.clients)
	r.mu.Unlock()

	for _, c := range snapshot {
		c.refreshProperties(read)
	}
}

// Shutdown refuses new clients and queues a shutdown event for everyone.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shuttingDown = true
	for _, c := range r.clients {
		c.markShutdown()
	}
}

// ShuttingDown reports whether Shutdown was called.
func (r *Registry) ShuttingDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shuttingDown
}
