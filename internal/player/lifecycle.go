/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/demux"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/telemetry"
	"github.com/friendsincode/playcore/internal/timeline"
	"github.com/friendsincode/playcore/internal/track"
)

// shortPlayback is how long a file must play to not count as skipped.
const shortPlayback = 3 * time.Second

// loadedFile is the state of the file being played. It is replaced per
// file and torn down by teardown.
type loadedFile struct {
	entry  *playlist.Entry
	url    string
	stream *stream.Stream

	demuxer  demux.Demuxer
	sources  map[string]demux.Demuxer
	external []demux.Demuxer
	tracks   *track.Set
	timeline *timeline.Switcher
	duration float64
	seekable bool

	err         apierr.Code
	insertID    string
	insertCount int

	initialized   bool
	playbackStart time.Time
	eofReached    bool
}

// playFile runs the lifecycle for the current playlist entry and reports
// its end with exactly one end-file event.
func (c *Core) playFile(ctx context.Context) {
	entry := c.playlist.Current()
	c.file = &loadedFile{entry: entry, url: entry.URL, tracks: track.NewSet()}
	c.stop = stopNone
	c.reload = false
	c.pos = 0
	c.seek = seekRequest{}
	c.restartPending = false

	ctx, span := telemetry.StartSpan(ctx, "playcore/player", "play-file")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"playlist.entry_id": entry.ID,
		"media.url":         entry.URL,
	})

	logger := c.logger.With().Str("url", entry.URL).Str("entry_id", entry.ID).Logger()
	logger.Info().Msg("playing file")
	c.broadcast(events.StartFile, events.StartFileData{EntryID: entry.ID})
	c.propertyChanged("filename", "path", "playlist-pos", "playlist")

	_ = c.transition(StateRunningLoadHooks)
	c.runHook(ctx, "on_load")

	if c.stop == stopNone {
		c.openAndPlay(ctx)
		_ = c.transition(StateRunningUnloadHooks)
		c.runHook(ctx, "on_unload")
	}

	_ = c.transition(StateTerminated)
	reason := c.endReason()
	if reason == events.ReasonQuit {
		c.savePosition(ctx)
	}
	c.teardown()
	c.finishFile(reason)
	if c.file.err < 0 {
		telemetry.RecordError(span, c.file.err)
	}
	_ = c.transition(StateIdle)
}

func (c *Core) openAndPlay(ctx context.Context) {
	_ = c.transition(StateOpeningStream)
	s, err := c.streams.Open(ctx, c.file.url)
	if err != nil {
		c.fail(apierr.LoadingFailed, fmt.Errorf("open stream: %w", err))
		return
	}
	c.file.stream = s
	c.poll()

	for c.stop == stopNone {
		_ = c.transition(StateOpeningDemuxer)
		if !c.openDemuxer(ctx) {
			return
		}
		_ = c.transition(StateLoadingTimeline)
		if !c.loadTimeline(ctx) {
			return
		}
		_ = c.transition(StateSelectingTracks)
		if !c.selectTracks() {
			return
		}
		_ = c.transition(StateInitializingDecoders)
		if !c.initDecoders() {
			return
		}
		if c.stop != stopNone {
			return
		}
		_ = c.transition(StatePlaying)
		c.startPlayback(ctx)
		c.playloop(ctx)
		if !c.reload {
			return
		}
		c.reload = false
		c.logger.Info().Float64("pos", c.pos).Msg("reloading demuxer")
		c.unloadDemuxer()
		c.queueSeek(seekAbsolute, c.pos)
	}
}

func (c *Core) fail(code apierr.Code, err error) {
	c.file.err = code
	c.requestStop(stopError)
	c.logger.Error().Err(err).Str("url", c.file.url).Str("error", code.String()).Msg("file failed")
}

func (c *Core) openDemuxer(ctx context.Context) bool {
	d, err := c.demuxers.Open(ctx, c.file.stream)
	if err != nil {
		code := apierr.LoadingFailed
		if errors.Is(err, demux.ErrUnknownFormat) {
			code = apierr.UnknownFormat
		}
		c.fail(code, fmt.Errorf("open demuxer: %w", err))
		return false
	}
	c.file.demuxer = d

	if urls := d.Playlist(); urls != nil {
		added := c.playlist.InsertAfter(c.file.entry, urls)
		if len(added) > 0 {
			c.file.insertID = added[0].ID
			c.file.insertCount = len(added)
		}
		c.logger.Info().Int("entries", len(added)).Msg("file is a playlist, redirecting")
		c.propertyChanged("playlist", "playlist-count")
		c.requestStop(stopRedirect)
		return false
	}
	c.poll()
	return c.stop == stopNone
}

// loadTimeline resolves timeline segments into parts. Plain files get no
// timeline and take their tracks from the demuxer itself.
func (c *Core) loadTimeline(ctx context.Context) bool {
	f := c.file
	external := f.tracks.Tracks()
	f.tracks = track.NewSet()

	segs := f.demuxer.Segments()
	var streams []track.Track
	if len(segs) == 0 {
		streams = f.demuxer.Streams()
		f.duration = f.demuxer.Duration()
		f.seekable = f.demuxer.Seekable()
		f.timeline = nil
	} else {
		f.sources = make(map[string]demux.Demuxer)
		parts := make([]timeline.Part, 0, len(segs))
		start := 0.0
		f.seekable = true
		for i, seg := range segs {
			src, err := c.openSource(ctx, seg.Source)
			if err != nil {
				c.fail(apierr.LoadingFailed, fmt.Errorf("timeline segment %d: %w", i, err))
				return false
			}
			length := seg.Length
			if length < 0 {
				length = src.Duration() - seg.Start
			}
			if length < 0 {
				length = 0
			}
			if i == 0 {
				streams = src.Streams()
			}
			f.seekable = f.seekable && src.Seekable()
			parts = append(parts, timeline.Part{Start: start, SourceStart: seg.Start, Source: seg.Source})
			start += length
		}
		f.duration = start
		f.timeline = timeline.NewSwitcher(parts, start, timeline.RebuildFunc(c.rebuildChains))
		f.timeline.SwitchTo(0, true)
		c.logger.Debug().Int("parts", len(parts)).Float64("duration", start).Msg("timeline loaded")
	}

	for _, t := range streams {
		f.tracks.Add(t)
	}
	for _, t := range external {
		if t.External {
			f.tracks.Add(t)
		}
	}
	c.broadcast(events.TracksChanged, nil)
	c.propertyChanged("track-list", "duration", "seekable", "timeline-part", "video-offset")
	c.poll()
	return c.stop == stopNone
}

func (c *Core) openSource(ctx context.Context, url string) (demux.Demuxer, error) {
	if d, ok := c.file.sources[url]; ok {
		return d, nil
	}
	s, err := c.streams.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	d, err := c.demuxers.Open(ctx, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	c.file.sources[url] = d
	return d, nil
}

// activeDemuxer is the demuxer that backs the current position.
func (c *Core) activeDemuxer() demux.Demuxer {
	f := c.file
	if f == nil {
		return nil
	}
	if f.timeline != nil {
		if d, ok := f.sources[f.timeline.Source()]; ok {
			return d
		}
	}
	return f.demuxer
}

func (c *Core) selectTracks() bool {
	set := c.file.tracks
	for order := 0; order < track.NumOrders; order++ {
		for typ := track.Type(0); typ < track.NumTypes; typ++ {
			r := set.Select(order, typ, c.opts.Prefs(order, typ))
			if err := set.Switch(order, typ, r); err != nil {
				c.logger.Warn().Err(err).Msg("track selection")
			}
		}
	}
	if set.Current(0, track.Video) == track.NoTrack && set.Current(0, track.Audio) == track.NoTrack {
		c.fail(apierr.NothingToPlay, errors.New("no video or audio streams selected"))
		return false
	}
	for _, t := range set.Tracks() {
		if t.Selected && !t.External {
			if d := c.activeDemuxer(); d != nil {
				d.Select(t.FFIndex, true)
			}
		}
	}
	c.propertyChanged("vid", "aid", "sid", "secondary-sid", "track-list")
	c.poll()
	return c.stop == stopNone
}

func (c *Core) initDecoders() bool {
	for order := 0; order < track.NumOrders; order++ {
		for typ := track.Type(0); typ < track.NumTypes; typ++ {
			c.initChain(order, typ)
		}
	}
	if c.chains[0][track.Video] == nil && c.chains[0][track.Audio] == nil {
		c.fail(apierr.NothingToPlay, errors.New("no video or audio decoder could be initialized"))
		return false
	}
	if c.chains[0][track.Video] != nil {
		c.broadcast(events.VideoReconfig, nil)
	}
	if c.chains[0][track.Audio] != nil {
		c.broadcast(events.AudioReconfig, nil)
	}
	c.broadcast(events.TrackSwitched, nil)
	c.propertyChanged("video-codec", "audio-codec")
	c.poll()
	return true
}

// initChain creates the chain for the track in slot (order, typ). A chain
// that fails to initialize deselects its track.
func (c *Core) initChain(order int, typ track.Type) {
	c.teardownChain(order, typ)
	r := c.file.tracks.Current(order, typ)
	t := c.file.tracks.Get(r)
	if t == nil {
		return
	}
	ch := c.factory(order, typ)
	if err := ch.Init(r, *t); err != nil {
		c.logger.Error().Err(err).Str("type", typ.String()).Int("track", t.ID).Msg("decoder init failed, deselecting track")
		c.file.tracks.Deselect(r)
		c.propertyChanged(typeProperty(order, typ), "track-list")
		return
	}
	c.chains[order][typ] = ch
}

func (c *Core) teardownChain(order int, typ track.Type) {
	if ch := c.chains[order][typ]; ch != nil {
		ch.Teardown()
		c.chains[order][typ] = nil
	}
}

func (c *Core) teardownChains() {
	for order := range c.chains {
		for typ := range c.chains[order] {
			c.teardownChain(order, track.Type(typ))
		}
	}
}

// rebuildChains restarts every active chain for a new timeline source.
func (c *Core) rebuildChains(source string) error {
	var firstErr error
	rebuilt := 0
	for order := range c.chains {
		for typ := range c.chains[order] {
			ch := c.chains[order][typ]
			if ch == nil {
				continue
			}
			r := ch.Ref()
			ch.Teardown()
			t := c.file.tracks.Get(r)
			if t == nil {
				c.chains[order][typ] = nil
				continue
			}
			if !t.External {
				t.Source = source
			}
			if err := ch.Init(r, *t); err != nil {
				c.chains[order][typ] = nil
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			rebuilt++
		}
	}
	if rebuilt > 0 {
		c.logger.Debug().Str("source", source).Int("chains", rebuilt).Msg("decoders rebuilt for timeline source")
		c.broadcast(events.VideoReconfig, nil)
	}
	return firstErr
}

func (c *Core) startPlayback(ctx context.Context) {
	f := c.file
	if !f.initialized {
		f.initialized = true
		f.playbackStart = c.now()
		start := c.opts.Start
		if pos, ok := c.loadPosition(ctx); ok {
			start = pos
		}
		if start > 0 {
			c.queueSeek(seekAbsolute, start)
		}
		if c.opts.Pause {
			c.broadcast(events.Pause, nil)
		}
	}
	c.restartPending = true
	c.lastStep = c.now()
	c.lastTick = time.Time{}
	c.broadcast(events.FileLoaded, nil)
	c.propertyChanged("duration", "seekable", "time-pos", "percent-pos", "core-idle")
}

func (c *Core) loadPosition(ctx context.Context) (float64, bool) {
	if !c.opts.Resume || c.resume == nil {
		return 0, false
	}
	pos, ok, err := c.resume.Load(ctx, c.file.url)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to load resume position")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	if err := c.resume.Delete(ctx, c.file.url); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear resume position")
	}
	c.logger.Info().Float64("pos", pos).Msg("resuming playback")
	return pos, true
}

func (c *Core) savePosition(ctx context.Context) {
	f := c.file
	if !c.opts.SavePositionOnQuit || c.resume == nil || !f.initialized || f.eofReached {
		return
	}
	if err := c.resume.Save(ctx, f.url, c.pos); err != nil {
		c.logger.Warn().Err(err).Msg("failed to save position")
		return
	}
	c.logger.Info().Float64("pos", c.pos).Msg("position saved")
}

// unloadDemuxer releases everything derived from the stream but keeps the
// stream itself for a reopen.
func (c *Core) unloadDemuxer() {
	c.teardownChains()
	f := c.file
	for url, d := range f.sources {
		d.Close()
		delete(f.sources, url)
	}
	if f.demuxer != nil {
		f.demuxer.Close()
		f.demuxer = nil
	}
	f.timeline = nil
}

// teardown releases every per-file resource. It is safe to call any
// number of times.
func (c *Core) teardown() {
	c.teardownChains()
	f := c.file
	if f == nil {
		return
	}
	c.unloadDemuxer()
	for _, d := range f.external {
		d.Close()
	}
	f.external = nil
	if f.stream != nil {
		f.stream.Close()
		f.stream = nil
	}
}

func (c *Core) endReason() events.EndReason {
	switch c.stop {
	case stopEOF:
		if c.file.err < 0 {
			return events.ReasonError
		}
		return events.ReasonEOF
	case stopError:
		return events.ReasonError
	case stopRedirect:
		return events.ReasonRedirect
	case stopQuit:
		return events.ReasonQuit
	case stopNext:
		return events.ReasonNext
	case stopPrev:
		return events.ReasonPrev
	default:
		return events.ReasonStop
	}
}

func (c *Core) finishFile(reason events.EndReason) {
	f := c.file
	// Only files that ran out on their own count; leaving early with
	// next, prev or stop says nothing about the entry.
	atEnd := reason == events.ReasonEOF || reason == events.ReasonError
	f.entry.InitFailed = atEnd && !f.initialized
	f.entry.PlaybackShort = atEnd && (!f.initialized || c.now().Sub(f.playbackStart) < shortPlayback)

	data := events.EndFileData{
		Reason:      reason,
		EntryID:     f.entry.ID,
		InsertID:    f.insertID,
		InsertCount: f.insertCount,
	}
	if reason == events.ReasonError {
		data.Error = f.err
		if data.Error >= 0 {
			data.Error = apierr.Generic
		}
	}
	c.broadcast(events.EndFile, data)
	telemetry.FilesEnded.WithLabelValues(reason.String()).Inc()
	c.logger.Info().Str("reason", reason.String()).Str("entry_id", f.entry.ID).Msg("file ended")
	c.propertyChanged("filename", "path", "duration", "time-pos", "track-list", "eof-reached")
}
