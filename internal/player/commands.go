/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"fmt"
	"strings"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/track"
)

type command struct {
	minArgs int
	maxArgs int // -1 for unbounded
	run     func(c *Core, h *client.Handle, args []string) (any, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"loadfile":          {1, 2, (*Core).cmdLoadfile},
		"stop":              {0, 0, (*Core).cmdStop},
		"quit":              {0, 1, (*Core).cmdQuit},
		"playlist-next":     {0, 1, playlistStep(1)},
		"playlist-prev":     {0, 1, playlistStep(-1)},
		"playlist-clear":    {0, 0, (*Core).cmdPlaylistClear},
		"seek":              {1, 2, (*Core).cmdSeek},
		"set":               {2, 2, (*Core).cmdSet},
		"add":               {1, 2, (*Core).cmdAdd},
		"cycle":             {1, 2, (*Core).cmdCycle},
		"script-message":    {0, -1, (*Core).cmdScriptMessage},
		"script-message-to": {1, -1, (*Core).cmdScriptMessageTo},
		"sub-add":           {1, 2, externalTrack(track.Sub)},
		"audio-add":         {1, 2, externalTrack(track.Audio)},
		"print-text":        {1, -1, (*Core).cmdPrintText},
	}
}

// Commands lists the accepted command names.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return names
}

// Command runs argv on behalf of h. The result is command specific and
// usually nil.
func (c *Core) Command(h *client.Handle, argv []string) (any, error) {
	if len(argv) == 0 {
		return nil, apierr.InvalidParameter
	}
	cmd, ok := commands[argv[0]]
	if !ok {
		c.logger.Warn().Str("command", argv[0]).Msg("unknown command")
		return nil, apierr.Command
	}
	args := argv[1:]
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return nil, apierr.InvalidParameter
	}
	res, err := cmd.run(c, h, args)
	if err != nil {
		c.logger.Debug().Err(err).Strs("argv", argv).Msg("command failed")
		return nil, apierr.From(err, apierr.Command)
	}
	return res, nil
}

// playEntry ends the current file and continues with e, or starts e right
// away when nothing is playing.
func (c *Core) playEntry(e *playlist.Entry, reason stopReason) {
	if !c.hasFile() {
		c.playlist.SetCurrent(e)
		c.dispatch.Wakeup()
		return
	}
	if c.stop != stopQuit {
		c.stop = reason
		c.next = e
	}
	c.dispatch.Wakeup()
}

func (c *Core) cmdLoadfile(_ *client.Handle, args []string) (any, error) {
	mode := "replace"
	if len(args) > 1 {
		mode = args[1]
	}
	var e *playlist.Entry
	switch mode {
	case "replace":
		if c.playlist.Current() != nil {
			c.dropCurrent = true
		}
		c.playlist.ClearExceptCurrent()
		e = c.playlist.Append(args[0])
		c.playEntry(e, stopCurrent)
	case "append":
		e = c.playlist.Append(args[0])
	case "append-play":
		e = c.playlist.Append(args[0])
		if !c.hasFile() && c.playlist.Current() == nil {
			c.playEntry(e, stopCurrent)
		}
	default:
		return nil, fmt.Errorf("loadfile mode %q: %w", mode, apierr.InvalidParameter)
	}
	c.propertyChanged("playlist", "playlist-count")
	return map[string]any{"playlist_entry_id": e.ID}, nil
}

func (c *Core) cmdStop(_ *client.Handle, _ []string) (any, error) {
	if c.hasFile() {
		c.dropCurrent = true
		c.playlist.ClearExceptCurrent()
		c.requestStop(stopStop)
	} else {
		c.playlist.Clear()
	}
	c.propertyChanged("playlist", "playlist-count", "playlist-pos")
	return nil, nil
}

func (c *Core) cmdQuit(_ *client.Handle, _ []string) (any, error) {
	c.quit = true
	c.requestStop(stopQuit)
	return nil, nil
}

func playlistStep(direction int) func(c *Core, h *client.Handle, args []string) (any, error) {
	return func(c *Core, _ *client.Handle, args []string) (any, error) {
		force := false
		if len(args) > 0 {
			switch args[0] {
			case "weak":
			case "force":
				force = true
			default:
				return nil, apierr.InvalidParameter
			}
		}
		next := c.playlist.Advance(direction, force)
		if next == nil && !force {
			return nil, fmt.Errorf("no entry in direction %d: %w", direction, apierr.Command)
		}
		reason := stopNext
		if direction < 0 {
			reason = stopPrev
		}
		if next == nil {
			c.requestStop(reason)
			return nil, nil
		}
		c.playEntry(next, reason)
		return nil, nil
	}
}

func (c *Core) cmdPlaylistClear(_ *client.Handle, _ []string) (any, error) {
	c.playlist.ClearExceptCurrent()
	c.propertyChanged("playlist", "playlist-count", "playlist-pos")
	return nil, nil
}

func (c *Core) cmdSeek(_ *client.Handle, args []string) (any, error) {
	if !c.playing() {
		return nil, fmt.Errorf("seek: %w", apierr.Command)
	}
	amount, err := toFloat(args[0])
	if err != nil {
		return nil, apierr.InvalidParameter
	}
	mode := "relative"
	if len(args) > 1 {
		mode = args[1]
	}
	switch mode {
	case "relative":
		c.queueSeek(seekRelative, amount)
	case "absolute":
		c.queueSeek(seekAbsolute, amount)
	case "absolute-percent":
		c.queueSeek(seekFactor, amount/100)
	case "relative-percent":
		c.queueSeek(seekRelative, amount/100*c.file.duration)
	default:
		return nil, apierr.InvalidParameter
	}
	return nil, nil
}

func (c *Core) cmdSet(_ *client.Handle, args []string) (any, error) {
	return nil, c.SetProperty(args[0], args[1])
}

func (c *Core) cmdAdd(h *client.Handle, args []string) (any, error) {
	delta := 1.0
	if len(args) > 1 {
		d, err := toFloat(args[1])
		if err != nil {
			return nil, apierr.InvalidParameter
		}
		delta = d
	}
	cur, err := c.GetProperty(h, args[0])
	if err != nil {
		return nil, err
	}
	switch v := cur.(type) {
	case float64:
		return nil, c.SetProperty(args[0], v+delta)
	case int64:
		return nil, c.SetProperty(args[0], v+int64(delta))
	}
	return nil, apierr.PropertyFormat
}

func (c *Core) cmdCycle(h *client.Handle, args []string) (any, error) {
	name := args[0]
	step := 1
	if len(args) > 1 {
		switch args[1] {
		case "up":
		case "down":
			step = -1
		default:
			return nil, apierr.InvalidParameter
		}
	}
	switch name {
	case "vid", "aid", "sid", "secondary-sid":
		return nil, c.cycleTrack(name, step)
	}
	cur, err := c.GetProperty(h, name)
	if err != nil {
		return nil, err
	}
	b, ok := cur.(bool)
	if !ok {
		return nil, apierr.PropertyFormat
	}
	return nil, c.SetProperty(name, !b)
}

// cycleTrack steps through "no" and every track id of the slot's type.
func (c *Core) cycleTrack(name string, step int) error {
	order, typ := 0, track.Video
	switch name {
	case "aid":
		typ = track.Audio
	case "sid":
		typ = track.Sub
	case "secondary-sid":
		order, typ = 1, track.Sub
	}
	if !c.playing() {
		return apierr.PropertyUnavailable
	}
	ids := []int{track.Off}
	for _, t := range c.file.tracks.Tracks() {
		if t.Type == typ {
			ids = append(ids, t.ID)
		}
	}
	cur := track.Off
	if t := c.file.tracks.Get(c.file.tracks.Current(order, typ)); t != nil {
		cur = t.ID
	}
	idx := 0
	for i, id := range ids {
		if id == cur {
			idx = i
		}
	}
	next := ids[(idx+step+len(ids))%len(ids)]
	var v any = "no"
	if next != track.Off {
		v = int64(next)
	}
	return c.SetProperty(name, v)
}

func (c *Core) cmdScriptMessage(_ *client.Handle, args []string) (any, error) {
	c.broadcast(events.ClientMessage, events.ClientMessageData{Args: args})
	return nil, nil
}

func (c *Core) cmdScriptMessageTo(_ *client.Handle, args []string) (any, error) {
	ev := events.Event{Kind: events.ClientMessage, Data: events.ClientMessageData{Args: append([]string(nil), args[1:]...)}}
	if err := c.clients.SendTo(args[0], ev); err != nil {
		return nil, fmt.Errorf("%w: %w", apierr.Command, err)
	}
	return nil, nil
}

func (c *Core) cmdPrintText(_ *client.Handle, args []string) (any, error) {
	c.logger.Info().Msg(strings.Join(args, " "))
	return nil, nil
}

// externalTrack implements sub-add and audio-add. The "select" flag
// (default) switches to the first added track, "auto" only adds.
func externalTrack(typ track.Type) func(c *Core, h *client.Handle, args []string) (any, error) {
	return func(c *Core, _ *client.Handle, args []string) (any, error) {
		if !c.playing() {
			return nil, fmt.Errorf("%s-add: %w", typ, apierr.Command)
		}
		flag := "select"
		if len(args) > 1 {
			flag = args[1]
		}
		if flag != "select" && flag != "auto" {
			return nil, apierr.InvalidParameter
		}

		ctx := context.Background()
		s, err := c.streams.Open(ctx, args[0])
		if err != nil {
			return nil, fmt.Errorf("open %s: %w: %w", args[0], apierr.LoadingFailed, err)
		}
		d, err := c.demuxers.Open(ctx, s)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("demux %s: %w: %w", args[0], apierr.LoadingFailed, err)
		}

		first := track.NoTrack
		for _, t := range d.Streams() {
			if t.Type != typ {
				continue
			}
			t.External = true
			t.Source = args[0]
			r := c.file.tracks.Add(t)
			if first == track.NoTrack {
				first = r
			}
		}
		if first == track.NoTrack {
			d.Close()
			return nil, fmt.Errorf("%s has no %s tracks: %w", args[0], typ, apierr.Command)
		}
		c.file.external = append(c.file.external, d)
		c.broadcast(events.TracksChanged, nil)
		c.propertyChanged("track-list")

		if flag == "select" {
			id := c.file.tracks.Get(first).ID
			c.opts.RequestedIDs[0][typ] = id
			if err := c.switchTrack(0, typ, id); err != nil {
				return nil, err
			}
		}
		return map[string]any{"track_id": int64(c.file.tracks.Get(first).ID)}, nil
	}
}
