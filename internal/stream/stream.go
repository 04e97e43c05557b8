/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package stream opens media URLs into in-memory byte streams.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// MaxSize bounds how much of a source is buffered.
const MaxSize = 32 << 20

var (
	// ErrUnsupportedScheme is returned for URLs no opener handles.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrTooLarge is returned when a source exceeds MaxSize.
	ErrTooLarge = errors.New("source too large")
	// ErrClosed is returned when reading a closed stream.
	ErrClosed = errors.New("stream closed")
)

// Stream is an opened source. Demuxers may read it several times, e.g.
// when reopening after a format change.
type Stream struct {
	URL         string
	ContentType string

	mu     sync.Mutex
	data   []byte
	closed bool
	once   map[string]bool
}

// New wraps data as a stream for url.
func New(url, contentType string, data []byte) *Stream {
	return &Stream{URL: url, ContentType: contentType, data: data, once: make(map[string]bool)}
}

// Reader returns a fresh reader positioned at the start.
func (s *Stream) Reader() (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return bytes.NewReader(s.data), nil
}

// Peek returns up to n leading bytes.
func (s *Stream) Peek(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.data) {
		n = len(s.data)
	}
	return s.data[:n]
}

// Size returns the buffered length.
func (s *Stream) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Once reports true the first time it is called with signal. Stream-level
// signals such as a format change survive demuxer reopening this way.
func (s *Stream) Once(signal string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.once[signal] {
		return false
	}
	s.once[signal] = true
	return true
}

// Close releases the buffer. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// Opener opens one kind of URL.
type Opener interface {
	Open(ctx context.Context, url string) (*Stream, error)
}

// Router picks an Opener by URL scheme. URLs without a scheme go to the
// "file" opener.
type Router struct {
	logger  zerolog.Logger
	openers map[string]Opener
}

// NewRouter creates a router with no openers.
func NewRouter(logger zerolog.Logger) *Router {
	return &Router{
		logger:  logger.With().Str("component", "stream").Logger(),
		openers: make(map[string]Opener),
	}
}

// Register installs o for scheme.
func (r *Router) Register(scheme string, o Opener) {
	r.openers[strings.ToLower(scheme)] = o
}

// Scheme returns the lower-case scheme of url, or "file".
func Scheme(url string) string {
	i := strings.Index(url, "://")
	if i <= 0 {
		return "file"
	}
	return strings.ToLower(url[:i])
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, url string) (*Stream, error) {
	scheme := Scheme(url)
	o, ok := r.openers[scheme]
	if !ok {
		return nil, fmt.Errorf("%s: %w", scheme, ErrUnsupportedScheme)
	}
	s, err := o.Open(ctx, url)
	if err != nil {
		r.logger.Debug().Err(err).Str("url", url).Msg("open failed")
		return nil, err
	}
	r.logger.Debug().Str("url", url).Int("bytes", s.Size()).Msg("stream opened")
	return s, nil
}

func readLimited(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
