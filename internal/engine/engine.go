/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package engine is the public entry point: it owns one playback core and
// hands out client handles that talk to it from any goroutine.
package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/player"
)

type runState int

const (
	stateCreated runState = iota
	stateRunning
	stateTerminated
)

// Engine owns a playback core and its goroutine.
type Engine struct {
	logger zerolog.Logger
	core   *player.Core

	mu     sync.Mutex
	state  runState
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an engine. Options and the initial playlist may be changed
// until Initialize.
func New(opts player.Options, deps player.Deps, logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "engine").Logger(),
		core:   player.New(opts, deps, logger),
		done:   make(chan struct{}),
	}
}

// ErrorString returns the text for an error code.
func ErrorString(code apierr.Code) string { return apierr.String(code) }

// EventName returns the wire name of an event kind.
func EventName(kind events.Kind) string { return kind.String() }

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

// SetOption sets an option. Before Initialize the option is written
// directly; afterwards it is applied like a property.
func (e *Engine) SetOption(ctx context.Context, name string, v any) error {
	e.mu.Lock()
	if e.state == stateCreated {
		defer e.mu.Unlock()
		return e.core.SetOption(name, v)
	}
	e.mu.Unlock()

	var err error
	if rerr := e.run(ctx, func() { err = e.core.SetProperty(name, v) }); rerr != nil {
		return rerr
	}
	if code := apierr.From(err, apierr.OptionError); code == apierr.PropertyNotFound {
		return apierr.OptionNotFound
	} else if code == apierr.PropertyFormat {
		return apierr.OptionFormat
	} else if code < 0 {
		return apierr.OptionError
	}
	return nil
}

// Append queues urls before Initialize. Afterwards use the loadfile
// command.
func (e *Engine) Append(urls ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateCreated {
		return apierr.InvalidParameter
	}
	for _, u := range urls {
		e.core.Append(u)
	}
	return nil
}

// Initialize starts the core goroutine.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateCreated {
		return apierr.InvalidParameter
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.state = stateRunning
	go func() {
		defer close(e.done)
		e.core.Run(ctx)
		e.mu.Lock()
		e.state = stateTerminated
		e.mu.Unlock()
		e.logger.Debug().Msg("core exited")
	}()
	e.logger.Info().Msg("engine initialized")
	return nil
}

// Done is closed once the core goroutine has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// CreateClient registers a new client. name is made unique by appending a
// number when taken.
func (e *Engine) CreateClient(name string) (*Client, error) {
	h, err := e.core.Clients().Register(name)
	if err != nil {
		return nil, apierr.From(err, apierr.InvalidParameter)
	}
	return &Client{engine: e, h: h}, nil
}

// Terminate asks the core to quit, waits for it and destroys every
// remaining client.
func (e *Engine) Terminate(ctx context.Context) error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	var err error
	switch state {
	case stateCreated:
		e.mu.Lock()
		e.state = stateTerminated
		e.mu.Unlock()
		e.core.Clients().Shutdown()
		e.core.Dispatch().Close()
		close(e.done)
	case stateRunning:
		_ = e.core.Dispatch().Enqueue(func() {
			if _, cerr := e.core.Command(nil, []string{"quit"}); cerr != nil {
				e.logger.Warn().Err(cerr).Msg("quit rejected")
			}
		}, nil)
		select {
		case <-e.done:
		case <-ctx.Done():
			e.cancel()
			<-e.done
			err = ctx.Err()
		}
	}

	clients := e.core.Clients()
	for _, name := range clients.Names() {
		if h := clients.Find(name); h != nil {
			clients.Unregister(h)
		}
	}
	return err
}

// run executes fn on the core goroutine.
func (e *Engine) run(ctx context.Context, fn func()) error {
	if !e.running() {
		return apierr.Uninitialized
	}
	if err := e.core.Dispatch().Run(ctx, fn); err != nil {
		return apierr.From(err, apierr.Uninitialized)
	}
	return nil
}
