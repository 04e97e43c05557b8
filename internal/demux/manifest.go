/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package demux

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/track"
)

// Manifest is the YAML description of a media file.
type Manifest struct {
	Title          string            `yaml:"title"`
	Duration       float64           `yaml:"duration"`
	Seekable       *bool             `yaml:"seekable"`
	FormatChangeAt float64           `yaml:"format_change_at"`
	Tracks         []ManifestTrack   `yaml:"tracks"`
	Timeline       []ManifestSegment `yaml:"timeline"`
}

// ManifestTrack describes one stream.
type ManifestTrack struct {
	Type            string `yaml:"type"`
	Codec           string `yaml:"codec"`
	Lang            string `yaml:"lang"`
	Title           string `yaml:"title"`
	Default         bool   `yaml:"default"`
	NoDefault       bool   `yaml:"no_default"`
	AttachedPicture bool   `yaml:"attached_picture"`
	Bitrate         int    `yaml:"bitrate"`
}

// ManifestSegment is a timeline entry; a zero length means to the end.
type ManifestSegment struct {
	Source string  `yaml:"source"`
	Start  float64 `yaml:"start"`
	Length float64 `yaml:"length"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if m.Duration <= 0 && len(m.Tracks) == 0 && len(m.Timeline) == 0 {
		return nil, ErrUnknownFormat
	}
	if m.Duration < 0 {
		return nil, fmt.Errorf("negative duration: %w", ErrUnknownFormat)
	}
	for i, t := range m.Tracks {
		if _, ok := track.ParseType(t.Type); !ok {
			return nil, fmt.Errorf("track %d: unknown type %q: %w", i, t.Type, ErrUnknownFormat)
		}
	}
	return &m, nil
}

type manifestDemuxer struct {
	base
	stream   *stream.Stream
	manifest *Manifest
	tracks   []track.Track
	selected map[int]bool
	pos      float64
}

func openManifest(s *stream.Stream) (Demuxer, error) {
	m, err := ParseManifest(s.Peek(s.Size()))
	if err != nil {
		return nil, err
	}
	d := &manifestDemuxer{
		base:     base{name: "manifest"},
		stream:   s,
		manifest: m,
		selected: make(map[int]bool),
	}
	for i, mt := range m.Tracks {
		typ, _ := track.ParseType(mt.Type)
		d.tracks = append(d.tracks, track.Track{
			Type:            typ,
			FFIndex:         i,
			Codec:           mt.Codec,
			Lang:            mt.Lang,
			Title:           mt.Title,
			Default:         mt.Default,
			NoDefault:       mt.NoDefault,
			AttachedPicture: mt.AttachedPicture,
			Bitrate:         mt.Bitrate,
			Source:          s.URL,
		})
	}
	return d, nil
}

func (d *manifestDemuxer) Streams() []track.Track {
	out := make([]track.Track, len(d.tracks))
	copy(out, d.tracks)
	return out
}

func (d *manifestDemuxer) Select(index int, on bool) { d.selected[index] = on }

func (d *manifestDemuxer) Duration() float64 { return d.manifest.Duration }

func (d *manifestDemuxer) Seekable() bool {
	return d.manifest.Seekable == nil || *d.manifest.Seekable
}

func (d *manifestDemuxer) Segments() []Segment {
	if len(d.manifest.Timeline) == 0 {
		return nil
	}
	segs := make([]Segment, 0, len(d.manifest.Timeline))
	for _, ms := range d.manifest.Timeline {
		length := ms.Length
		if length <= 0 {
			length = -1
		}
		segs = append(segs, Segment{Source: Resolve(d.stream.URL, ms.Source), Start: ms.Start, Length: length})
	}
	return segs
}

func (d *manifestDemuxer) Seek(pts float64) error {
	if !d.Seekable() {
		return ErrNotSeekable
	}
	if pts < 0 {
		pts = 0
	}
	d.pos = pts
	return nil
}

func (d *manifestDemuxer) FormatChanged(pos float64) bool {
	at := d.manifest.FormatChangeAt
	if at <= 0 || pos < at {
		return false
	}
	return d.stream.Once("format-change")
}
