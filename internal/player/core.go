/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player is the playback core: the per-file lifecycle, the play
// loop, hooks, properties and commands. Everything in it runs on the one
// goroutine that calls Run; other goroutines reach it through the dispatch
// queue.
package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/decoder"
	"github.com/friendsincode/playcore/internal/demux"
	"github.com/friendsincode/playcore/internal/dispatch"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/logbuffer"
	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/track"
)

// StreamOpener opens a URL into a readable stream.
type StreamOpener interface {
	Open(ctx context.Context, url string) (*stream.Stream, error)
}

// DemuxOpener probes an opened stream.
type DemuxOpener interface {
	Open(ctx context.Context, s *stream.Stream) (demux.Demuxer, error)
}

// ResumeStore persists playback positions per URL.
type ResumeStore interface {
	Load(ctx context.Context, url string) (float64, bool, error)
	Save(ctx context.Context, url string, pos float64) error
	Delete(ctx context.Context, url string) error
}

// Deps are the collaborators injected into the core.
type Deps struct {
	Streams  StreamOpener
	Demuxers DemuxOpener
	Chains   decoder.Factory
	// Resume is optional.
	Resume ResumeStore
	// Hub feeds log-message subscriptions; optional.
	Hub *logbuffer.Hub
	// Now defaults to time.Now.
	Now func() time.Time
}

type stopReason int

const (
	stopNone stopReason = iota
	stopEOF
	stopError
	stopRedirect
	stopNext
	stopPrev
	stopCurrent
	stopStop
	stopQuit
)

// Core owns all playback state.
type Core struct {
	logger   zerolog.Logger
	opts     Options
	clients  *client.Registry
	dispatch *dispatch.Queue
	streams  StreamOpener
	demuxers DemuxOpener
	factory  decoder.Factory
	resume   ResumeStore
	now      func() time.Time
	playlist *playlist.Playlist

	state  State
	file   *loadedFile
	chains [track.NumOrders][track.NumTypes]decoder.Chain
	stop   stopReason
	next   *playlist.Entry
	// dropCurrent removes the ended entry once the next one is chosen.
	dropCurrent bool
	reload      bool
	quit        bool
	idle        bool

	pos            float64
	seek           seekRequest
	restartPending bool
	lastTick       time.Time
	lastStep       time.Time

	hooks       []*hookHandler
	hookSeq     int
	nextHookID  uint64
	pendingHook map[uint64]*client.Handle
}

// New creates a core. Call Run to start it.
func New(opts Options, deps Deps, logger zerolog.Logger) *Core {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Chains == nil {
		deps.Chains, _ = decoder.NewFactory("null", logger)
	}
	c := &Core{
		logger:      logger.With().Str("component", "player").Logger(),
		opts:        opts,
		dispatch:    dispatch.New(),
		streams:     deps.Streams,
		demuxers:    deps.Demuxers,
		factory:     deps.Chains,
		resume:      deps.Resume,
		now:         deps.Now,
		playlist:    playlist.New(),
		pendingHook: make(map[uint64]*client.Handle),
	}
	c.playlist.Loop = opts.LoopPlaylist
	c.clients = client.NewRegistry(client.Options{
		MaxEvents: opts.MaxEvents,
		Strict:    opts.Strict,
		Hub:       deps.Hub,
		OnChange:  c.dispatch.Wakeup,
	}, logger)
	return c
}

// Clients returns the registry of client handles.
func (c *Core) Clients() *client.Registry { return c.clients }

// Dispatch returns the queue used to run work on the core goroutine.
func (c *Core) Dispatch() *dispatch.Queue { return c.dispatch }

// Options returns a copy of the current options. Only safe before Run or
// from the core goroutine.
func (c *Core) Options() Options { return c.opts }

// SetOption changes an option. Before Run it may be called from any single
// goroutine; afterwards only through the dispatch queue.
func (c *Core) SetOption(name string, v any) error {
	if err := c.opts.Set(name, v); err != nil {
		return err
	}
	if name == "loop-playlist" {
		c.playlist.Loop = c.opts.LoopPlaylist
	}
	return nil
}

// Append adds url to the playlist. Like SetOption it must not race Run.
func (c *Core) Append(url string) *playlist.Entry {
	return c.playlist.Append(url)
}

// Run drives playback until quit, until the playlist runs out with idle
// mode off, or until ctx ends. It then shuts every client down and closes
// the dispatch queue.
func (c *Core) Run(ctx context.Context) {
	c.logger.Info().Int("playlist_count", c.playlist.Len()).Bool("idle", c.opts.Idle).Msg("core started")
	defer c.shutdown()

	if c.playlist.Current() == nil {
		c.playlist.SetCurrent(c.playlist.First())
	}
	for !c.quit && ctx.Err() == nil {
		if c.playlist.Current() == nil {
			if !c.opts.Idle {
				break
			}
			c.idleLoop(ctx)
			continue
		}
		c.playFile(ctx)
		c.advance()
	}
}

func (c *Core) idleLoop(ctx context.Context) {
	c.idle = true
	c.propertyChanged("idle-active", "core-idle")
	c.broadcast(events.Idle, nil)
	c.logger.Debug().Msg("entering idle mode")

	for c.playlist.Current() == nil && !c.quit && ctx.Err() == nil {
		c.sendPropertyChanges()
		c.dispatch.Process(c.opts.TickInterval)
	}
	c.idle = false
	c.propertyChanged("idle-active", "core-idle")
}

// advance picks the entry to play after the file that just ended.
func (c *Core) advance() {
	ended := c.playlist.Current()
	var next *playlist.Entry
	switch c.stop {
	case stopNext, stopPrev, stopCurrent:
		next = c.next
	case stopStop, stopQuit:
	default:
		next = c.playlist.Advance(1, false)
	}
	c.next = nil
	c.playlist.SetCurrent(next)
	if c.dropCurrent && ended != next {
		c.playlist.Remove(ended)
	}
	c.dropCurrent = false
	c.propertyChanged("playlist-pos", "playlist")
}

func (c *Core) shutdown() {
	c.teardown()
	c.logger.Info().Msg("core shutting down")
	c.clients.Shutdown()
	c.dispatch.Close()
}

// poll runs queued client work and flushes observed property changes
// without waiting.
func (c *Core) poll() {
	c.dispatch.Process(0)
	c.sendPropertyChanges()
}

func (c *Core) broadcast(kind events.Kind, data any) {
	c.clients.Broadcast(events.Event{Kind: kind, Data: data})
}

func (c *Core) propertyChanged(names ...string) {
	for _, name := range names {
		c.clients.PropertyChanged(name)
	}
}

func (c *Core) sendPropertyChanges() {
	c.clients.SendPropertyChanges(func(name string) (any, bool) {
		v, err := c.GetProperty(nil, name)
		return v, err == nil
	})
}

// requestStop ends the current file for reason. The first reason wins.
func (c *Core) requestStop(reason stopReason) {
	if c.stop == stopNone {
		c.stop = reason
	}
	c.dispatch.Wakeup()
}
