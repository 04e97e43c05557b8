/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sort"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/events"
)

type hookHandler struct {
	owner    *client.Handle
	userdata uint64
	name     string
	priority int
	seq      int
}

// AddHook registers h for hook name. Lower priorities run first; equal
// priorities run in registration order.
func (c *Core) AddHook(h *client.Handle, userdata uint64, name string, priority int) error {
	if name == "" {
		return apierr.InvalidParameter
	}
	c.hookSeq++
	c.hooks = append(c.hooks, &hookHandler{owner: h, userdata: userdata, name: name, priority: priority, seq: c.hookSeq})
	sort.SliceStable(c.hooks, func(i, j int) bool {
		if c.hooks[i].priority != c.hooks[j].priority {
			return c.hooks[i].priority < c.hooks[j].priority
		}
		return c.hooks[i].seq < c.hooks[j].seq
	})
	return nil
}

// ContinueHook resumes the lifecycle waiting on hook id. Only the client
// the hook was sent to may continue it.
func (c *Core) ContinueHook(h *client.Handle, id uint64) error {
	owner, ok := c.pendingHook[id]
	if !ok || owner != h {
		return apierr.InvalidParameter
	}
	delete(c.pendingHook, id)
	c.dispatch.Wakeup()
	return nil
}

func (c *Core) alive(h *client.Handle) bool {
	return c.clients.Find(h.Name()) == h
}

// runHook sends a hook event to every registered handler in turn and waits
// for each to continue. Client work keeps being served while waiting.
func (c *Core) runHook(ctx context.Context, name string) {
	kept := c.hooks[:0]
	for _, hk := range c.hooks {
		if c.alive(hk.owner) {
			kept = append(kept, hk)
		}
	}
	c.hooks = kept

	handlers := make([]*hookHandler, 0, len(c.hooks))
	for _, hk := range c.hooks {
		if hk.name == name {
			handlers = append(handlers, hk)
		}
	}

	for _, hk := range handlers {
		c.nextHookID++
		id := c.nextHookID
		ev := events.Event{
			Kind:          events.Hook,
			ReplyUserdata: hk.userdata,
			Data:          events.HookData{Name: name, ID: id},
		}
		if !hk.owner.Mask().Has(events.Hook) {
			continue
		}
		if err := hk.owner.Send(ev); err != nil {
			c.logger.Warn().Err(err).Str("hook", name).Str("client", hk.owner.Name()).Msg("hook not delivered")
			continue
		}
		c.pendingHook[id] = hk.owner
		c.logger.Debug().Str("hook", name).Str("client", hk.owner.Name()).Uint64("id", id).Msg("waiting for hook")

		for c.pendingHook[id] != nil && c.alive(hk.owner) && ctx.Err() == nil {
			c.sendPropertyChanges()
			c.dispatch.Process(c.opts.TickInterval)
		}
		delete(c.pendingHook, id)
	}
}
