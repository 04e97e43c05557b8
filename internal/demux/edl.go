/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package demux

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/friendsincode/playcore/internal/stream"
)

const edlHeader = "# mpv EDL v0"

type edlDemuxer struct {
	base
	segments []Segment
}

// ParseEDL parses "source,start,length" lines. start defaults to 0 and a
// missing length means the rest of the source.
func ParseEDL(baseURL, text string) ([]Segment, error) {
	var segs []Segment
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		fields := strings.Split(raw, ",")
		seg := Segment{Source: Resolve(baseURL, strings.TrimSpace(fields[0])), Length: -1}
		if seg.Source == "" {
			return nil, fmt.Errorf("edl line %d: empty source", line)
		}
		if len(fields) > 1 && strings.TrimSpace(fields[1]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("edl line %d: bad start %q", line, fields[1])
			}
			seg.Start = v
		}
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("edl line %d: bad length %q", line, fields[2])
			}
			seg.Length = v
		}
		segs = append(segs, seg)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("edl without segments: %w", ErrUnknownFormat)
	}
	return segs, nil
}

func openEDL(s *stream.Stream) (Demuxer, error) {
	segs, err := ParseEDL(s.URL, string(s.Peek(s.Size())))
	if err != nil {
		return nil, err
	}
	return &edlDemuxer{base: base{name: "edl"}, segments: segs}, nil
}

func (d *edlDemuxer) Segments() []Segment {
	out := make([]Segment, len(d.segments))
	copy(out, d.segments)
	return out
}

func (d *edlDemuxer) Seekable() bool     { return true }
func (d *edlDemuxer) Seek(float64) error { return nil }
