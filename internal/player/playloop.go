/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/telemetry"
	"github.com/friendsincode/playcore/internal/track"
)

// pausedTickInterval throttles tick events while paused.
const pausedTickInterval = 500 * time.Millisecond

type seekKind int

const (
	seekNone seekKind = iota
	seekRelative
	seekAbsolute
	seekFactor
)

type seekRequest struct {
	kind   seekKind
	amount float64
}

// queueSeek records a seek to run at the end of the current loop
// iteration. Relative seeks accumulate; absolute and factor seeks replace
// whatever was queued.
func (c *Core) queueSeek(kind seekKind, amount float64) {
	switch kind {
	case seekRelative:
		switch c.seek.kind {
		case seekFactor:
			return
		case seekNone:
			c.seek.kind = seekRelative
		}
		c.seek.amount += amount
	case seekAbsolute, seekFactor:
		c.seek = seekRequest{kind: kind, amount: amount}
	}
	c.dispatch.Wakeup()
}

// executeSeek performs the queued seek, if any.
func (c *Core) executeSeek() {
	req := c.seek
	if req.kind == seekNone {
		return
	}
	c.seek = seekRequest{}
	f := c.file

	target := req.amount
	switch req.kind {
	case seekRelative:
		target = c.pos + req.amount
	case seekFactor:
		target = req.amount * f.duration
	}
	if target < 0 {
		target = 0
	}
	if !f.seekable && c.pos > 0 {
		c.logger.Warn().Msg("cannot seek in this file")
		return
	}
	telemetry.SeeksTotal.Inc()

	if f.duration > 0 && target >= f.duration {
		c.pos = f.duration
		c.reachEOF()
		return
	}

	sourcePTS := target
	if f.timeline != nil {
		pts, rebuilt, ok := f.timeline.SetFromTime(target)
		if !ok {
			c.pos = f.duration
			c.reachEOF()
			return
		}
		sourcePTS = pts
		if rebuilt {
			c.afterRebuild()
		}
	}
	if d := c.activeDemuxer(); d != nil {
		if err := d.Seek(sourcePTS); err != nil {
			c.logger.Debug().Err(err).Float64("pts", sourcePTS).Msg("demuxer seek")
		}
	}

	c.pos = target
	f.eofReached = false
	c.restartPending = true
	c.broadcast(events.Seek, nil)
	c.propertyChanged("time-pos", "percent-pos", "timeline-part", "video-offset", "eof-reached", "core-idle")
}

func (c *Core) afterRebuild() {
	if err := c.file.timeline.LastError(); err != nil {
		c.logger.Error().Err(err).Str("source", c.file.timeline.Source()).Msg("decoder rebuild failed")
		if c.chains[0][track.Video] == nil && c.chains[0][track.Audio] == nil {
			c.fail(apierr.From(err, apierr.Generic), err)
		}
	}
	c.propertyChanged("timeline-part", "video-offset", "video-codec", "audio-codec")
}

func (c *Core) reachEOF() {
	c.file.eofReached = true
	c.propertyChanged("eof-reached", "time-pos", "percent-pos")
	c.requestStop(stopEOF)
}

// playloop advances the position until the file ends, is stopped or needs
// its demuxer reopened.
func (c *Core) playloop(ctx context.Context) {
	f := c.file
	for c.stop == stopNone && !c.reload && ctx.Err() == nil {
		now := c.now()
		elapsed := now.Sub(c.lastStep)
		c.lastStep = now

		if c.restartPending && c.seek.kind == seekNone {
			c.restartPending = false
			c.broadcast(events.PlaybackRestart, nil)
			c.propertyChanged("core-idle")
		} else if !c.restartPending && !c.opts.Pause && elapsed > 0 {
			c.pos += elapsed.Seconds() * c.opts.Speed
		}

		if f.timeline != nil {
			cur := f.timeline.Current()
			if cur+1 < f.timeline.Len() && c.pos >= f.timeline.PartEnd(cur) {
				c.queueSeek(seekAbsolute, c.pos)
			}
		}
		if f.duration > 0 && c.pos >= f.duration {
			c.pos = f.duration
			c.reachEOF()
			break
		}
		if f.demuxer.FormatChanged(c.pos) {
			c.reload = true
			break
		}

		if !c.opts.Pause || now.Sub(c.lastTick) >= pausedTickInterval {
			c.lastTick = now
			c.broadcast(events.Tick, nil)
		}
		telemetry.PlaybackPosition.Set(c.pos)

		c.executeSeek()
		if c.stop != stopNone {
			break
		}
		c.sendPropertyChanges()
		if c.seek.kind == seekNone && !c.restartPending {
			c.dispatch.Process(c.opts.TickInterval)
		} else {
			c.dispatch.Process(0)
		}
	}
}

func (c *Core) setPause(pause bool) {
	if c.opts.Pause == pause {
		return
	}
	c.opts.Pause = pause
	if c.state == StatePlaying {
		if pause {
			c.broadcast(events.Pause, nil)
		} else {
			c.lastStep = c.now()
			c.broadcast(events.Unpause, nil)
		}
	}
	c.propertyChanged("pause", "core-idle")
}
