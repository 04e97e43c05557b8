/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package demux turns opened streams into track lists, timelines or
// playlists.
package demux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/track"
)

var (
	// ErrUnknownFormat is returned when no demuxer recognizes a stream.
	ErrUnknownFormat = errors.New("unrecognized file format")
	// ErrNotSeekable is returned by Seek on live or unseekable sources.
	ErrNotSeekable = errors.New("source is not seekable")
)

// Segment is one entry of a timeline description. Length < 0 means up to
// the end of the source.
type Segment struct {
	Source string
	Start  float64
	Length float64
}

// Demuxer is an opened container.
type Demuxer interface {
	// Name identifies the container format.
	Name() string
	// Streams lists elementary streams; FFIndex is the stream index.
	Streams() []track.Track
	Select(index int, on bool)
	Duration() float64
	Seekable() bool
	// Segments is non-empty for timeline containers.
	Segments() []Segment
	// Playlist is non-nil when the container only references other files.
	Playlist() []string
	Seek(pts float64) error
	// FormatChanged reports, once, that the source changed format at or
	// before pos and the demuxer must be reopened.
	FormatChanged(pos float64) bool
	Close() error
}

// Opener probes formats in order: EDL, playlist, subtitle, manifest.
type Opener struct {
	logger zerolog.Logger
}

// NewOpener creates an Opener.
func NewOpener(logger zerolog.Logger) *Opener {
	return &Opener{logger: logger.With().Str("component", "demux").Logger()}
}

// Open probes s and returns a demuxer for it.
func (o *Opener) Open(ctx context.Context, s *stream.Stream) (Demuxer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	head := s.Peek(512)
	lower := strings.ToLower(s.URL)

	var (
		d   Demuxer
		err error
	)
	switch {
	case bytes.HasPrefix(head, []byte(edlHeader)):
		d, err = openEDL(s)
	case bytes.HasPrefix(head, []byte("#EXTM3U")),
		strings.HasSuffix(lower, ".m3u"), strings.HasSuffix(lower, ".m3u8"),
		strings.Contains(s.ContentType, "mpegurl"):
		d, err = openPlaylist(s)
	case isSubtitle(lower, head):
		d, err = openSubtitle(s)
	default:
		d, err = openManifest(s)
	}
	if err != nil {
		return nil, err
	}
	o.logger.Debug().Str("url", s.URL).Str("format", d.Name()).Msg("demuxer opened")
	return d, nil
}

// Resolve interprets ref relative to the URL of the file that mentions it.
func Resolve(base, ref string) string {
	if ref == "" || strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return ref
	}
	switch stream.Scheme(base) {
	case "file":
		p := stream.Path(base)
		resolved := filepath.Join(filepath.Dir(p), ref)
		if strings.HasPrefix(base, "file://") {
			return "file://" + resolved
		}
		return resolved
	case "s3":
		bucket, key, err := stream.ParseS3URL(base)
		if err != nil {
			return ref
		}
		return fmt.Sprintf("s3://%s/%s", bucket, path.Join(path.Dir(key), ref))
	default:
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return u.ResolveReference(r).String()
	}
}

// base carries no-op defaults shared by the simple demuxers.
type base struct {
	name   string
	closed bool
}

func (b *base) Name() string               { return b.name }
func (b *base) Streams() []track.Track     { return nil }
func (b *base) Select(int, bool)           {}
func (b *base) Duration() float64          { return 0 }
func (b *base) Seekable() bool             { return false }
func (b *base) Segments() []Segment        { return nil }
func (b *base) Playlist() []string         { return nil }
func (b *base) Seek(float64) error         { return ErrNotSeekable }
func (b *base) FormatChanged(float64) bool { return false }
func (b *base) Close() error               { b.closed = true; return nil }
