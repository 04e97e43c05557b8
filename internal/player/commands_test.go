/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"math"
	"reflect"
	"testing"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/track"
)

func TestQueueSeekCoalesces(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	c := hs.core

	c.queueSeek(seekRelative, 5)
	c.queueSeek(seekRelative, 3)
	if c.seek != (seekRequest{kind: seekRelative, amount: 8}) {
		t.Fatalf("relative seeks = %+v", c.seek)
	}
	c.queueSeek(seekAbsolute, 10)
	c.queueSeek(seekRelative, 2)
	if c.seek != (seekRequest{kind: seekAbsolute, amount: 12}) {
		t.Fatalf("absolute then relative = %+v", c.seek)
	}
	c.queueSeek(seekFactor, 0.5)
	c.queueSeek(seekRelative, 2)
	if c.seek != (seekRequest{kind: seekFactor, amount: 0.5}) {
		t.Fatalf("factor then relative = %+v", c.seek)
	}
}

func TestPropertyAccess(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	c := hs.core

	if _, err := c.GetProperty(nil, "no-such-thing"); err != apierr.PropertyNotFound {
		t.Fatalf("unknown property err = %v", err)
	}
	if err := c.SetProperty("playlist-count", 3); err != apierr.PropertyError {
		t.Fatalf("read-only set err = %v", err)
	}
	if _, err := c.GetProperty(nil, "time-pos"); err != apierr.PropertyUnavailable {
		t.Fatalf("time-pos while idle err = %v", err)
	}
	if err := c.SetProperty("pause", []int{1}); err != apierr.PropertyFormat {
		t.Fatalf("bad pause err = %v", err)
	}
	if err := c.SetProperty("volume", "50"); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.GetProperty(nil, "volume"); v != 50.0 {
		t.Fatalf("volume = %v", v)
	}
	if err := c.SetProperty("volume", 2000.0); err != apierr.PropertyError {
		t.Fatalf("out of range volume err = %v", err)
	}
	if err := c.SetProperty("alang", "de, en"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.opts.Langs[track.Audio], []string{"de", "en"}) {
		t.Fatalf("alang = %v", c.opts.Langs[track.Audio])
	}
	if err := c.SetProperty("loop-playlist", "inf"); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.GetProperty(nil, "loop-playlist"); v != "inf" || c.playlist.Loop != playlist.LoopInfinite {
		t.Fatalf("loop-playlist = %v (%d)", v, c.playlist.Loop)
	}
	if v, _ := c.GetProperty(nil, "options/speed"); v != 1.0 {
		t.Fatalf("options/speed = %v", v)
	}
	if v, _ := c.GetProperty(hs.client, "client-name"); v != "test" {
		t.Fatalf("client-name = %v", v)
	}
	if v, _ := c.GetProperty(nil, "sid"); v != "auto" {
		t.Fatalf("sid = %v", v)
	}
}

func TestCommandValidation(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	c := hs.core

	tests := []struct {
		argv []string
		want apierr.Code
	}{
		{nil, apierr.InvalidParameter},
		{[]string{"dance"}, apierr.Command},
		{[]string{"set", "volume"}, apierr.InvalidParameter},
		{[]string{"loadfile", "a.yaml", "sideways"}, apierr.InvalidParameter},
		{[]string{"seek", "10"}, apierr.Command},
		{[]string{"playlist-next"}, apierr.Command},
		{[]string{"script-message-to", "nobody", "hi"}, apierr.Command},
		{[]string{"set", "volume", "loud"}, apierr.PropertyFormat},
		{[]string{"set", "volume", "nan"}, apierr.PropertyFormat},
		{[]string{"set", "speed", "inf"}, apierr.PropertyFormat},
		{[]string{"set", "speed", "-Inf"}, apierr.PropertyFormat},
		{[]string{"set", "start", "NaN"}, apierr.PropertyFormat},
		{[]string{"add", "volume", "nan"}, apierr.InvalidParameter},
		{[]string{"set", "ff-aid", "-3"}, apierr.PropertyFormat},
		{[]string{"set", "ff-vid", "first"}, apierr.PropertyFormat},
	}
	for _, tt := range tests {
		_, err := c.Command(hs.client, tt.argv)
		if apierr.From(err, apierr.Success) != tt.want {
			t.Errorf("%v: err = %v, want %s", tt.argv, err, tt.want)
		}
	}
}

func TestAddAndCycle(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	c := hs.core

	if _, err := c.Command(hs.client, []string{"add", "volume", "-10"}); err != nil {
		t.Fatal(err)
	}
	if c.opts.Volume != 90 {
		t.Fatalf("volume = %v", c.opts.Volume)
	}
	if _, err := c.Command(hs.client, []string{"cycle", "mute"}); err != nil {
		t.Fatal(err)
	}
	if !c.opts.Mute {
		t.Fatal("mute not toggled")
	}
}

func TestScriptMessages(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	other, err := hs.core.Clients().Register("other")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := hs.core.Command(hs.client, []string{"script-message-to", "other", "ping", "1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := hs.core.Command(hs.client, []string{"script-message", "all"}); err != nil {
		t.Fatal(err)
	}

	first := other.WaitEvent(0)
	second := other.WaitEvent(0)
	if data, ok := first.Data.(events.ClientMessageData); !ok || !reflect.DeepEqual(data.Args, []string{"ping", "1"}) {
		t.Fatalf("targeted message = %+v", first)
	}
	if second.Kind != events.ClientMessage {
		t.Fatalf("broadcast message = %+v", second)
	}
	if ev := hs.client.WaitEvent(0); ev.Kind != events.ClientMessage {
		t.Fatalf("sender should get the broadcast, got %s", ev.Kind)
	}
}

func TestObservedPropertyFollowsChanges(t *testing.T) {
	hs := newHarness(t, DefaultOptions(), nil, nil)
	c := hs.core
	if err := hs.client.Observe(1, "pause", ObserveMask("pause")); err != nil {
		t.Fatal(err)
	}

	c.sendPropertyChanges()
	ev := hs.client.WaitEvent(0)
	if data, ok := ev.Data.(events.PropertyData); ev.Kind != events.PropertyChange || !ok || data.Value != false {
		t.Fatalf("initial change = %+v", ev)
	}

	if err := c.SetProperty("pause", true); err != nil {
		t.Fatal(err)
	}
	c.sendPropertyChanges()
	ev = hs.client.WaitEvent(0)
	if data, ok := ev.Data.(events.PropertyData); !ok || data.Value != true || ev.ReplyUserdata != 1 {
		t.Fatalf("change = %+v", ev)
	}

	c.sendPropertyChanges()
	if ev := hs.client.WaitEvent(0); ev.Kind != events.None {
		t.Fatalf("unchanged value produced %s", ev.Kind)
	}
}

func TestPlaylistNavigation(t *testing.T) {
	opts := DefaultOptions()
	opts.Pause = true
	hs := newHarness(t, opts, map[string]string{"a.yaml": avManifest, "b.yaml": avManifest}, nil)
	a := hs.core.Append("a.yaml")
	b := hs.core.Append("b.yaml")
	hs.start(t)
	waitFor(t, hs.client, events.FileLoaded)

	hs.command(t, "playlist-next")
	end := waitFor(t, hs.client, events.EndFile).Data.(events.EndFileData)
	if end.Reason != events.ReasonNext || end.EntryID != a.ID {
		t.Fatalf("end-file = %+v", end)
	}
	start := waitFor(t, hs.client, events.StartFile).Data.(events.StartFileData)
	if start.EntryID != b.ID {
		t.Fatalf("started %s, want %s", start.EntryID, b.ID)
	}
	waitFor(t, hs.client, events.FileLoaded)

	var err error
	hs.do(t, func() { _, err = hs.core.Command(hs.client, []string{"playlist-next"}) })
	if apierr.From(err, apierr.Success) != apierr.Command {
		t.Fatalf("next at the end err = %v", err)
	}

	hs.command(t, "playlist-prev")
	end = waitFor(t, hs.client, events.EndFile).Data.(events.EndFileData)
	if end.Reason != events.ReasonPrev {
		t.Fatalf("end-file = %+v", end)
	}
	start = waitFor(t, hs.client, events.StartFile).Data.(events.StartFileData)
	if start.EntryID != a.ID {
		t.Fatalf("started %s, want %s", start.EntryID, a.ID)
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	opts := DefaultOptions()
	opts.Pause = true
	opts.Idle = true
	hs := newHarness(t, opts, map[string]string{"a.yaml": avManifest}, nil)
	hs.start(t)
	waitFor(t, hs.client, events.Idle)

	hs.command(t, "loadfile", "a.yaml", "append-play")
	waitFor(t, hs.client, events.FileLoaded)
	hs.command(t, "stop")

	end := waitFor(t, hs.client, events.EndFile).Data.(events.EndFileData)
	if end.Reason != events.ReasonStop {
		t.Fatalf("end-file = %+v", end)
	}
	waitFor(t, hs.client, events.Idle)

	var count, idle any
	hs.do(t, func() {
		count, _ = hs.core.GetProperty(nil, "playlist-count")
		idle, _ = hs.core.GetProperty(nil, "idle-active")
	})
	if count != int64(0) || idle != true {
		t.Fatalf("playlist-count = %v, idle-active = %v", count, idle)
	}
}

func TestLoadfileReplaceSwitchesFile(t *testing.T) {
	opts := DefaultOptions()
	opts.Pause = true
	hs := newHarness(t, opts, map[string]string{"a.yaml": avManifest, "b.yaml": avManifest}, nil)
	hs.core.Append("a.yaml")
	hs.start(t)
	waitFor(t, hs.client, events.FileLoaded)

	hs.command(t, "loadfile", "b.yaml")
	if end := waitFor(t, hs.client, events.EndFile).Data.(events.EndFileData); end.Reason != events.ReasonStop {
		t.Fatalf("end-file = %+v", end)
	}
	waitFor(t, hs.client, events.FileLoaded)

	var path, count any
	hs.do(t, func() {
		path, _ = hs.core.GetProperty(nil, "path")
		count, _ = hs.core.GetProperty(nil, "playlist-count")
	})
	if path != "b.yaml" || count != int64(1) {
		t.Fatalf("path = %v, playlist-count = %v", path, count)
	}
}

func TestSubAddSelectsExternalTrack(t *testing.T) {
	opts := DefaultOptions()
	opts.Pause = true
	hs := newHarness(t, opts, map[string]string{
		"a.yaml": avManifest,
		"a.srt":  "1\n00:00:00,000 --> 00:00:01,000\nhello\n",
	}, nil)
	hs.core.Append("a.yaml")
	hs.start(t)
	waitFor(t, hs.client, events.FileLoaded)

	hs.command(t, "sub-add", "a.srt")
	var sid, list any
	hs.do(t, func() {
		sid, _ = hs.core.GetProperty(nil, "sid")
		list, _ = hs.core.GetProperty(nil, "track-list")
	})
	if sid != int64(1) {
		t.Fatalf("sid = %v", sid)
	}
	tracks := list.([]any)
	last := tracks[len(tracks)-1].(map[string]any)
	if last["type"] != "sub" || last["external"] != true || last["selected"] != true {
		t.Fatalf("track = %v", last)
	}
}

func TestNonFiniteSeekRejected(t *testing.T) {
	opts := DefaultOptions()
	opts.Pause = true
	hs := newHarness(t, opts, map[string]string{"a.yaml": avManifest}, nil)
	hs.core.Append("a.yaml")
	hs.start(t)
	waitFor(t, hs.client, events.FileLoaded)

	for _, argv := range [][]string{
		{"seek", "nan", "absolute"},
		{"seek", "inf"},
		{"seek", "-inf", "absolute-percent"},
	} {
		var err error
		hs.do(t, func() { _, err = hs.core.Command(hs.client, argv) })
		if apierr.From(err, apierr.Success) != apierr.InvalidParameter {
			t.Errorf("%v: err = %v, want invalid parameter", argv, err)
		}
	}
	for _, name := range []string{"time-pos", "percent-pos"} {
		var err error
		hs.do(t, func() { err = hs.core.SetProperty(name, math.NaN()) })
		if err != apierr.PropertyFormat {
			t.Errorf("set %s NaN: err = %v", name, err)
		}
	}

	var pos any
	hs.do(t, func() { pos, _ = hs.core.GetProperty(nil, "time-pos") })
	if f, ok := pos.(float64); !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		t.Fatalf("time-pos = %v", pos)
	}
}

func TestStreamIndexSelectsTrack(t *testing.T) {
	body := `
duration: 1
tracks:
  - type: video
    codec: h264
  - type: audio
    codec: aac
    lang: en
  - type: audio
    codec: aac
    lang: de
`
	opts := DefaultOptions()
	opts.Pause = true
	opts.Langs[track.Audio] = []string{"en"}
	if err := opts.Set("ff-aid", "2"); err != nil {
		t.Fatal(err)
	}
	if err := opts.Set("ff-vid", "0"); err != nil {
		t.Fatal(err)
	}
	if p := opts.Prefs(1, track.Audio); p.RequestedFFID != track.Auto {
		t.Fatalf("secondary ffid = %d", p.RequestedFFID)
	}
	hs := newHarness(t, opts, map[string]string{"a.yaml": body}, nil)
	hs.core.Append("a.yaml")
	hs.start(t)
	waitFor(t, hs.client, events.FileLoaded)

	var vid, aid, ff any
	hs.do(t, func() {
		vid, _ = hs.core.GetProperty(nil, "vid")
		aid, _ = hs.core.GetProperty(nil, "aid")
		ff, _ = hs.core.GetProperty(nil, "ff-aid")
	})
	if vid != int64(1) || aid != int64(2) || ff != int64(2) {
		t.Fatalf("vid = %v, aid = %v, ff-aid = %v", vid, aid, ff)
	}

	hs.command(t, "set", "ff-aid", "no")
	hs.do(t, func() {
		ff, _ = hs.core.GetProperty(nil, "ff-aid")
	})
	if ff != "no" {
		t.Fatalf("ff-aid = %v", ff)
	}
}
