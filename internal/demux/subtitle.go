/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package demux

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/track"
)

var subtitleCodecs = map[string]string{
	".srt": "subrip",
	".ass": "ass",
	".ssa": "ass",
	".vtt": "webvtt",
}

func isSubtitle(lowerURL string, head []byte) bool {
	if _, ok := subtitleCodecs[filepath.Ext(lowerURL)]; ok {
		return true
	}
	return bytes.HasPrefix(head, []byte("WEBVTT"))
}

// subtitleDemuxer exposes a standalone subtitle file as one track.
type subtitleDemuxer struct {
	base
	track track.Track
}

func openSubtitle(s *stream.Stream) (Demuxer, error) {
	lower := strings.ToLower(s.URL)
	codec, ok := subtitleCodecs[filepath.Ext(lower)]
	if !ok {
		codec = "webvtt"
	}
	name := filepath.Base(stream.Path(s.URL))
	return &subtitleDemuxer{
		base: base{name: "subtitle"},
		track: track.Track{
			Type:    track.Sub,
			FFIndex: 0,
			Codec:   codec,
			Title:   name,
			Lang:    langFromName(name),
			Source:  s.URL,
		},
	}, nil
}

// langFromName picks "en" out of "movie.en.srt".
func langFromName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return ""
	}
	lang := parts[len(parts)-2]
	if len(lang) == 2 || len(lang) == 3 {
		return strings.ToLower(lang)
	}
	return ""
}

func (d *subtitleDemuxer) Streams() []track.Track { return []track.Track{d.track} }
