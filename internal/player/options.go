/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"strings"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/track"
)

// Options are the user settings the core starts with. Most of them are
// also reachable at runtime as properties.
type Options struct {
	Pause  bool
	Volume float64
	Mute   bool
	Speed  float64

	// Langs is the preferred language list per track type.
	Langs [track.NumTypes][]string
	// RequestedIDs holds track.Auto, track.Off or a track id per slot.
	RequestedIDs [track.NumOrders][track.NumTypes]int
	// RequestedFFIDs picks the primary track by demuxer stream index and
	// overrides RequestedIDs when not track.Auto.
	RequestedFFIDs [track.NumTypes]int
	AudioDisplay   bool
	Bitrate        track.BitratePref

	// LoopPlaylist is 1 for no looping, playlist.LoopInfinite, or a pass count.
	LoopPlaylist int
	// Start is the initial position in seconds, or negative for none.
	Start float64

	Idle               bool
	Resume             bool
	SavePositionOnQuit bool

	TickInterval time.Duration
	MaxEvents    int
	Strict       bool
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	o := Options{
		Volume:       100,
		Speed:        1,
		AudioDisplay: true,
		LoopPlaylist: 1,
		Start:        -1,
		TickInterval: 50 * time.Millisecond,
		MaxEvents:    1000,
	}
	for typ := 0; typ < int(track.NumTypes); typ++ {
		o.RequestedIDs[0][typ] = track.Auto
		o.RequestedIDs[1][typ] = track.Off
		o.RequestedFFIDs[typ] = track.Auto
	}
	return o
}

// Prefs returns the selection preferences for slot (order, typ).
func (o *Options) Prefs(order int, typ track.Type) track.Prefs {
	ffid := track.Auto
	if order == 0 {
		ffid = o.RequestedFFIDs[typ]
	}
	return track.Prefs{
		RequestedID:   o.RequestedIDs[order][typ],
		RequestedFFID: ffid,
		Langs:         o.Langs[typ],
		AudioDisplay:  o.AudioDisplay,
		Bitrate:       o.Bitrate,
	}
}

var optionNames = []string{
	"pause", "volume", "mute", "speed", "alang", "slang", "vid", "aid", "sid",
	"secondary-sid", "ff-vid", "ff-aid", "ff-sid", "audio-display", "hls-bitrate", "loop-playlist", "start",
	"idle", "resume-playback", "save-position-on-quit",
}

// OptionNames lists every option accepted by Set and Get.
func OptionNames() []string {
	return append([]string(nil), optionNames...)
}

// Set changes option name from a loosely typed value.
func (o *Options) Set(name string, v any) error {
	var err error
	switch name {
	case "pause":
		o.Pause, err = toBool(v)
	case "volume":
		var f float64
		if f, err = toFloat(v); err == nil {
			if f < 0 || f > 1000 {
				return apierr.OptionError
			}
			o.Volume = f
		}
	case "mute":
		o.Mute, err = toBool(v)
	case "speed":
		var f float64
		if f, err = toFloat(v); err == nil {
			if f <= 0 || f > 100 {
				return apierr.OptionError
			}
			o.Speed = f
		}
	case "alang":
		o.Langs[track.Audio], err = toList(v)
	case "slang":
		o.Langs[track.Sub], err = toList(v)
	case "vid":
		o.RequestedIDs[0][track.Video], err = toTrackID(v)
	case "aid":
		o.RequestedIDs[0][track.Audio], err = toTrackID(v)
	case "sid":
		o.RequestedIDs[0][track.Sub], err = toTrackID(v)
	case "secondary-sid":
		o.RequestedIDs[1][track.Sub], err = toTrackID(v)
	case "ff-vid":
		o.RequestedFFIDs[track.Video], err = toStreamIndex(v)
	case "ff-aid":
		o.RequestedFFIDs[track.Audio], err = toStreamIndex(v)
	case "ff-sid":
		o.RequestedFFIDs[track.Sub], err = toStreamIndex(v)
	case "audio-display":
		o.AudioDisplay, err = toBool(v)
	case "hls-bitrate":
		var s string
		if s, err = toString(v); err == nil {
			pref, ok := track.ParseBitratePref(s)
			if !ok {
				return apierr.OptionError
			}
			o.Bitrate = pref
		}
	case "loop-playlist":
		o.LoopPlaylist, err = toLoopCount(v)
	case "start":
		o.Start, err = toFloat(v)
	case "idle":
		o.Idle, err = toBool(v)
	case "resume-playback":
		o.Resume, err = toBool(v)
	case "save-position-on-quit":
		o.SavePositionOnQuit, err = toBool(v)
	default:
		return apierr.OptionNotFound
	}
	if err != nil {
		return apierr.OptionFormat
	}
	return nil
}

// Get reads option name.
func (o *Options) Get(name string) (any, error) {
	switch name {
	case "pause":
		return o.Pause, nil
	case "volume":
		return o.Volume, nil
	case "mute":
		return o.Mute, nil
	case "speed":
		return o.Speed, nil
	case "alang":
		return strings.Join(o.Langs[track.Audio], ","), nil
	case "slang":
		return strings.Join(o.Langs[track.Sub], ","), nil
	case "vid":
		return trackIDValue(o.RequestedIDs[0][track.Video]), nil
	case "aid":
		return trackIDValue(o.RequestedIDs[0][track.Audio]), nil
	case "sid":
		return trackIDValue(o.RequestedIDs[0][track.Sub]), nil
	case "secondary-sid":
		return trackIDValue(o.RequestedIDs[1][track.Sub]), nil
	case "ff-vid":
		return trackIDValue(o.RequestedFFIDs[track.Video]), nil
	case "ff-aid":
		return trackIDValue(o.RequestedFFIDs[track.Audio]), nil
	case "ff-sid":
		return trackIDValue(o.RequestedFFIDs[track.Sub]), nil
	case "audio-display":
		return o.AudioDisplay, nil
	case "hls-bitrate":
		return [...]string{"none", "lowest", "highest"}[o.Bitrate], nil
	case "loop-playlist":
		return loopValue(o.LoopPlaylist), nil
	case "start":
		return o.Start, nil
	case "idle":
		return o.Idle, nil
	case "resume-playback":
		return o.Resume, nil
	case "save-position-on-quit":
		return o.SavePositionOnQuit, nil
	}
	return nil, apierr.OptionNotFound
}

func trackIDValue(id int) any {
	switch id {
	case track.Auto:
		return "auto"
	case track.Off:
		return "no"
	}
	return int64(id)
}

func loopValue(n int) any {
	switch n {
	case playlist.LoopInfinite:
		return "inf"
	case 1:
		return "no"
	}
	return int64(n)
}
