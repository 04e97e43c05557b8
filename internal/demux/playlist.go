/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package demux

import (
	"bufio"
	"strings"

	"github.com/friendsincode/playcore/internal/stream"
)

type playlistDemuxer struct {
	base
	entries []string
}

// ParsePlaylist extracts entry URLs from m3u text.
func ParsePlaylist(baseURL, text string) []string {
	entries := []string{}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, Resolve(baseURL, line))
	}
	return entries
}

func openPlaylist(s *stream.Stream) (Demuxer, error) {
	return &playlistDemuxer{
		base:    base{name: "playlist"},
		entries: ParsePlaylist(s.URL, string(s.Peek(s.Size()))),
	}, nil
}

func (d *playlistDemuxer) Playlist() []string {
	return append([]string{}, d.entries...)
}
