/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/player"
)

// WaitForever makes WaitEvent block until an event arrives.
const WaitForever = client.WaitForever

// Client is one independent API user. Its methods may be called from any
// goroutine.
type Client struct {
	engine *Engine
	h      *client.Handle
}

// Name returns the unique client name.
func (c *Client) Name() string { return c.h.Name() }

// ID returns the client id.
func (c *Client) ID() int64 { return c.h.ID() }

// Destroy unregisters the client. Undelivered events are released and
// replies still in flight are discarded.
func (c *Client) Destroy() {
	c.engine.core.Clients().Unregister(c.h)
}

// SetOption is Engine.SetOption.
func (c *Client) SetOption(ctx context.Context, name string, v any) error {
	return c.engine.SetOption(ctx, name, v)
}

// GetProperty reads a property.
func (c *Client) GetProperty(ctx context.Context, name string) (any, error) {
	var (
		v   any
		err error
	)
	if rerr := c.engine.run(ctx, func() { v, err = c.engine.core.GetProperty(c.h, name) }); rerr != nil {
		return nil, rerr
	}
	return v, err
}

// SetProperty writes a property.
func (c *Client) SetProperty(ctx context.Context, name string, v any) error {
	var err error
	if rerr := c.engine.run(ctx, func() { err = c.engine.core.SetProperty(name, v) }); rerr != nil {
		return rerr
	}
	return err
}

// Command runs a command and returns its result.
func (c *Client) Command(ctx context.Context, args ...string) (any, error) {
	var (
		res any
		err error
	)
	if rerr := c.engine.run(ctx, func() { res, err = c.engine.core.Command(c.h, args) }); rerr != nil {
		return nil, rerr
	}
	return res, err
}

// async reserves a reply slot and runs fn on the core goroutine. fn
// returns the reply; if the core stops first the reply carries
// apierr.Uninitialized.
func (c *Client) async(kind events.Kind, userdata uint64, fn func() events.Event) error {
	if !c.engine.running() {
		return apierr.Uninitialized
	}
	tok, err := c.h.Reserve()
	if err != nil {
		return apierr.From(err, apierr.EventQueueFull)
	}
	err = c.engine.core.Dispatch().Enqueue(func() {
		ev := fn()
		ev.Kind = kind
		ev.ReplyUserdata = userdata
		_ = c.h.Reply(tok, ev)
	}, func() {
		_ = c.h.Reply(tok, events.Event{Kind: kind, Error: apierr.Uninitialized, ReplyUserdata: userdata})
	})
	if err != nil {
		c.h.Cancel(tok)
		return apierr.From(err, apierr.Uninitialized)
	}
	return nil
}

// GetPropertyAsync reads a property; the value arrives as a
// get-property-reply event carrying userdata.
func (c *Client) GetPropertyAsync(userdata uint64, name string) error {
	return c.async(events.GetPropertyReply, userdata, func() events.Event {
		v, err := c.engine.core.GetProperty(c.h, name)
		return events.Event{
			Error: apierr.From(err, apierr.PropertyError),
			Data:  events.PropertyData{Name: name, Value: v, Valid: err == nil},
		}
	})
}

// SetPropertyAsync writes a property; completion arrives as a
// set-property-reply event.
func (c *Client) SetPropertyAsync(userdata uint64, name string, v any) error {
	return c.async(events.SetPropertyReply, userdata, func() events.Event {
		err := c.engine.core.SetProperty(name, v)
		return events.Event{Error: apierr.From(err, apierr.PropertyError)}
	})
}

// CommandAsync runs a command; completion arrives as a command-reply event.
func (c *Client) CommandAsync(userdata uint64, args ...string) error {
	args = append([]string(nil), args...)
	return c.async(events.CommandReply, userdata, func() events.Event {
		res, err := c.engine.core.Command(c.h, args)
		return events.Event{
			Error: apierr.From(err, apierr.Command),
			Data:  events.CommandReplyData{Result: res},
		}
	})
}

// WaitEvent returns the next event, or a None event after timeout.
// WaitForever blocks.
func (c *Client) WaitEvent(timeout time.Duration) events.Event {
	return c.h.WaitEvent(timeout)
}

// RequestEvent enables or disables an event kind.
func (c *Client) RequestEvent(kind events.Kind, enable bool) error {
	return c.h.RequestEvent(kind, enable)
}

// RequestLogMessages subscribes to log lines at level or more severe.
func (c *Client) RequestLogMessages(level string) error {
	return c.h.RequestLogMessages(level)
}

// ObserveProperty sends property-change events for name, once right away
// and then on every change.
func (c *Client) ObserveProperty(userdata uint64, name string) error {
	if err := c.h.Observe(userdata, name, player.ObserveMask(name)); err != nil {
		return err
	}
	c.engine.core.Dispatch().Wakeup()
	return nil
}

// UnobserveProperty removes observations made with userdata and returns
// how many there were.
func (c *Client) UnobserveProperty(userdata uint64) int {
	return c.h.Unobserve(userdata)
}

// HookAdd registers for a lifecycle hook ("on_load", "on_unload").
func (c *Client) HookAdd(ctx context.Context, userdata uint64, name string, priority int) error {
	var err error
	if rerr := c.engine.run(ctx, func() { err = c.engine.core.AddHook(c.h, userdata, name, priority) }); rerr != nil {
		return rerr
	}
	return err
}

// HookContinue lets the lifecycle proceed past hook id.
func (c *Client) HookContinue(ctx context.Context, id uint64) error {
	var err error
	if rerr := c.engine.run(ctx, func() { err = c.engine.core.ContinueHook(c.h, id) }); rerr != nil {
		return rerr
	}
	return err
}

// Wakeup makes a blocked WaitEvent return.
func (c *Client) Wakeup() { c.h.Wakeup() }

// SetWakeupCallback installs cb, run whenever new events may be available.
// cb must not call back into the client.
func (c *Client) SetWakeupCallback(cb func()) { c.h.SetWakeupCallback(cb) }

// WaitAsyncRequests blocks until every asynchronous request was answered.
func (c *Client) WaitAsyncRequests(ctx context.Context) error {
	return c.h.WaitAsyncRequests(ctx)
}
