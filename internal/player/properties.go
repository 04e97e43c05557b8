/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"path"
	"strings"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/track"
)

type property struct {
	get func(c *Core, h *client.Handle) (any, error)
	// set is nil for read-only properties.
	set func(c *Core, v any) error
	// mask lists events after which the value may have changed without an
	// explicit notification.
	mask events.Mask
}

var positionEvents = events.Bit(events.Tick) | events.Bit(events.Seek) |
	events.Bit(events.PlaybackRestart) | events.Bit(events.EndFile) | events.Bit(events.FileLoaded)

var properties map[string]property

func init() {
	properties = map[string]property{
		"pause": {
			get: func(c *Core, _ *client.Handle) (any, error) { return c.opts.Pause, nil },
			set: func(c *Core, v any) error {
				b, err := toBool(v)
				if err != nil {
					return apierr.PropertyFormat
				}
				c.setPause(b)
				return nil
			},
		},
		"volume": optionProperty("volume"),
		"mute":   optionProperty("mute"),
		"speed":  optionProperty("speed"),
		"filename": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.hasFile() {
				return nil, apierr.PropertyUnavailable
			}
			return fileName(c.file.url), nil
		}},
		"path": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.hasFile() {
				return nil, apierr.PropertyUnavailable
			}
			return c.file.url, nil
		}},
		"time-pos": {
			get: func(c *Core, _ *client.Handle) (any, error) {
				if !c.playing() {
					return nil, apierr.PropertyUnavailable
				}
				return c.pos, nil
			},
			set: func(c *Core, v any) error {
				f, err := toFloat(v)
				if err != nil {
					return apierr.PropertyFormat
				}
				if !c.playing() {
					return apierr.PropertyUnavailable
				}
				c.queueSeek(seekAbsolute, f)
				return nil
			},
			mask: positionEvents,
		},
		"duration": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.playing() || c.file.duration <= 0 {
				return nil, apierr.PropertyUnavailable
			}
			return c.file.duration, nil
		}},
		"percent-pos": {
			get: func(c *Core, _ *client.Handle) (any, error) {
				if !c.playing() || c.file.duration <= 0 {
					return nil, apierr.PropertyUnavailable
				}
				return c.pos / c.file.duration * 100, nil
			},
			set: func(c *Core, v any) error {
				f, err := toFloat(v)
				if err != nil {
					return apierr.PropertyFormat
				}
				if !c.playing() {
					return apierr.PropertyUnavailable
				}
				c.queueSeek(seekFactor, f/100)
				return nil
			},
			mask: positionEvents,
		},
		"playlist-pos": {
			get: func(c *Core, _ *client.Handle) (any, error) {
				return int64(c.playlist.Index(c.playlist.Current())), nil
			},
			set: func(c *Core, v any) error {
				n, err := toInt(v)
				if err != nil {
					return apierr.PropertyFormat
				}
				e := c.playlist.At(n)
				if e == nil {
					return apierr.PropertyError
				}
				c.playEntry(e, stopCurrent)
				return nil
			},
		},
		"playlist-count": {get: func(c *Core, _ *client.Handle) (any, error) {
			return int64(c.playlist.Len()), nil
		}},
		"playlist": {get: func(c *Core, _ *client.Handle) (any, error) {
			cur := c.playlist.Current()
			entries := c.playlist.Entries()
			out := make([]any, 0, len(entries))
			for _, e := range entries {
				item := map[string]any{"filename": e.URL, "id": e.ID}
				if e.Title != "" {
					item["title"] = e.Title
				}
				if cur != nil && e.ID == cur.ID {
					item["current"] = true
					item["playing"] = c.hasFile()
				}
				out = append(out, item)
			}
			return out, nil
		}},
		"vid":           trackProperty(0, track.Video),
		"aid":           trackProperty(0, track.Audio),
		"sid":           trackProperty(0, track.Sub),
		"secondary-sid": trackProperty(1, track.Sub),
		"track-list": {get: func(c *Core, _ *client.Handle) (any, error) {
			if c.file == nil || c.file.tracks == nil || c.state == StateIdle {
				return []any{}, nil
			}
			tracks := c.file.tracks.Tracks()
			out := make([]any, 0, len(tracks))
			for _, t := range tracks {
				item := map[string]any{
					"type":          t.Type.String(),
					"id":            int64(t.ID),
					"src-id":        int64(t.FFIndex),
					"external":      t.External,
					"default":       t.Default,
					"albumart":      t.AttachedPicture,
					"selected":      t.Selected,
					"codec":         t.Codec,
					"demux-bitrate": int64(t.Bitrate),
				}
				if t.External {
					item["external-filename"] = t.Source
				}
				if t.Lang != "" {
					item["lang"] = t.Lang
				}
				if t.Title != "" {
					item["title"] = t.Title
				}
				out = append(out, item)
			}
			return out, nil
		}},
		"idle-active": {get: func(c *Core, _ *client.Handle) (any, error) { return c.idle, nil }},
		"core-idle": {
			get: func(c *Core, _ *client.Handle) (any, error) {
				return !c.playing() || c.opts.Pause || c.restartPending, nil
			},
		},
		"eof-reached": {
			get: func(c *Core, _ *client.Handle) (any, error) {
				if !c.playing() {
					return nil, apierr.PropertyUnavailable
				}
				return c.file.eofReached, nil
			},
			mask: positionEvents,
		},
		"seekable": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.playing() {
				return nil, apierr.PropertyUnavailable
			}
			return c.file.seekable, nil
		}},
		"video-codec": codecProperty(track.Video),
		"audio-codec": codecProperty(track.Audio),
		"timeline-part": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.playing() || c.file.timeline == nil {
				return nil, apierr.PropertyUnavailable
			}
			return int64(c.file.timeline.Current()), nil
		}},
		"video-offset": {get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.playing() || c.file.timeline == nil {
				return nil, apierr.PropertyUnavailable
			}
			return c.file.timeline.VideoOffset(), nil
		}},
		"lifecycle-state": {get: func(c *Core, _ *client.Handle) (any, error) { return c.state.String(), nil }},
		"loop-playlist": {
			get: func(c *Core, _ *client.Handle) (any, error) { return loopValue(c.playlist.Loop), nil },
			set: func(c *Core, v any) error {
				n, err := toLoopCount(v)
				if err != nil {
					return apierr.PropertyFormat
				}
				c.opts.LoopPlaylist = n
				c.playlist.Loop = n
				return nil
			},
		},
		"client-name": {get: func(_ *Core, h *client.Handle) (any, error) {
			if h == nil {
				return nil, apierr.PropertyUnavailable
			}
			return h.Name(), nil
		}},
	}
}

// optionProperty exposes an option that needs no further side effects.
func optionProperty(name string) property {
	return property{
		get: func(c *Core, _ *client.Handle) (any, error) { return c.opts.Get(name) },
		set: func(c *Core, v any) error {
			if err := c.opts.Set(name, v); err != nil {
				return optionToPropertyError(err)
			}
			return nil
		},
	}
}

func trackProperty(order int, typ track.Type) property {
	return property{
		get: func(c *Core, _ *client.Handle) (any, error) {
			if !c.playing() {
				return trackIDValue(c.opts.RequestedIDs[order][typ]), nil
			}
			t := c.file.tracks.Get(c.file.tracks.Current(order, typ))
			if t == nil {
				return "no", nil
			}
			return int64(t.ID), nil
		},
		set: func(c *Core, v any) error {
			id, err := toTrackID(v)
			if err != nil {
				return apierr.PropertyFormat
			}
			c.opts.RequestedIDs[order][typ] = id
			if !c.playing() {
				return nil
			}
			return c.switchTrack(order, typ, id)
		},
	}
}

func codecProperty(typ track.Type) property {
	return property{get: func(c *Core, _ *client.Handle) (any, error) {
		if !c.playing() || c.chains[0][typ] == nil {
			return nil, apierr.PropertyUnavailable
		}
		t := c.file.tracks.Get(c.file.tracks.Current(0, typ))
		if t == nil {
			return nil, apierr.PropertyUnavailable
		}
		return t.Codec, nil
	}}
}

func typeProperty(order int, typ track.Type) string {
	if order == 1 {
		return "secondary-sid"
	}
	return [...]string{"vid", "aid", "sid"}[typ]
}

func optionToPropertyError(err error) error {
	switch apierr.From(err, apierr.PropertyError) {
	case apierr.OptionFormat:
		return apierr.PropertyFormat
	case apierr.OptionNotFound:
		return apierr.PropertyNotFound
	default:
		return apierr.PropertyError
	}
}

func fileName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 && strings.Contains(url, "://") {
		url = url[:i]
	}
	return path.Base(url)
}

func (c *Core) hasFile() bool {
	return c.file != nil && c.state != StateIdle
}

func (c *Core) playing() bool {
	return c.file != nil && c.state == StatePlaying
}

// GetProperty reads a property on behalf of h, which may be nil for
// internal reads. Unknown names fall back to options.
func (c *Core) GetProperty(h *client.Handle, name string) (any, error) {
	if p, ok := properties[name]; ok {
		return p.get(c, h)
	}
	if strings.HasPrefix(name, "options/") {
		name = strings.TrimPrefix(name, "options/")
	}
	v, err := c.opts.Get(name)
	if err != nil {
		return nil, apierr.PropertyNotFound
	}
	return v, nil
}

// SetProperty writes a property. Unknown names fall back to options.
func (c *Core) SetProperty(name string, v any) error {
	p, ok := properties[name]
	if !ok {
		name = strings.TrimPrefix(name, "options/")
		if err := c.SetOption(name, v); err != nil {
			return optionToPropertyError(err)
		}
		c.propertyChanged(name)
		return nil
	}
	if p.set == nil {
		return apierr.PropertyError
	}
	if err := p.set(c, v); err != nil {
		return err
	}
	c.propertyChanged(name)
	return nil
}

// ObserveMask returns the events after which name should be re-read.
func ObserveMask(name string) events.Mask {
	if p, ok := properties[name]; ok {
		return p.mask
	}
	return 0
}

// switchTrack selects track id (or track.Auto / track.Off) in a slot while
// playing and reinitializes the slot's chain.
func (c *Core) switchTrack(order int, typ track.Type, id int) error {
	set := c.file.tracks
	var r track.Ref
	switch id {
	case track.Off:
		r = track.NoTrack
	case track.Auto:
		r = set.Select(order, typ, c.opts.Prefs(order, typ))
	default:
		r = set.Find(typ, id)
		if r == track.NoTrack {
			return apierr.PropertyError
		}
	}
	if r == set.Current(order, typ) {
		return nil
	}
	if err := set.Switch(order, typ, r); err != nil {
		c.logger.Warn().Err(err).Msg("track switch rejected")
		return apierr.PropertyError
	}
	if t := set.Get(r); t != nil && !t.External {
		if d := c.activeDemuxer(); d != nil {
			d.Select(t.FFIndex, true)
		}
	}
	c.initChain(order, typ)
	c.broadcast(events.TrackSwitched, nil)
	c.propertyChanged(typeProperty(order, typ), "track-list", "video-codec", "audio-codec")
	return nil
}
