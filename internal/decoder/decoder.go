/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package decoder provides decode chain variants. Chains only validate
// and account for tracks; no media is decoded.
package decoder

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/track"
)

// Chain is the decode pipeline for one (order, type) slot. It refers to
// its track by index into the file's track set; t is a copy valid only
// for the duration of Init.
type Chain interface {
	Init(ref track.Ref, t track.Track) error
	Teardown()
	// Ref returns the track the chain runs, or track.NoTrack.
	Ref() track.Ref
}

// Factory creates the chain for a slot.
type Factory func(order int, typ track.Type) Chain

// Variants lists the names accepted by NewFactory.
var Variants = []string{"null", "strict"}

// DefaultCodecs is what the strict variant supports.
var DefaultCodecs = map[track.Type][]string{
	track.Video: {"h264", "hevc", "vp9", "av1", "mjpeg", "png"},
	track.Audio: {"aac", "opus", "mp3", "flac", "vorbis", "pcm"},
	track.Sub:   {"subrip", "ass", "webvtt"},
}

// NewFactory returns the factory for variant.
func NewFactory(variant string, logger zerolog.Logger) (Factory, error) {
	logger = logger.With().Str("component", "decoder").Logger()
	switch variant {
	case "", "null":
		return func(order int, typ track.Type) Chain {
			return newNullChain(logger.With().Int("order", order).Str("type", typ.String()).Logger())
		}, nil
	case "strict":
		return func(order int, typ track.Type) Chain {
			return &strictChain{
				nullChain: *newNullChain(logger.With().Int("order", order).Str("type", typ.String()).Logger()),
				typ:       typ,
				codecs:    DefaultCodecs[typ],
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q (want one of %s)", variant, strings.Join(Variants, ", "))
	}
}

// nullChain accepts every track.
type nullChain struct {
	logger zerolog.Logger
	ref    track.Ref
	id     int
}

func newNullChain(logger zerolog.Logger) *nullChain {
	return &nullChain{logger: logger, ref: track.NoTrack}
}

func (c *nullChain) Init(ref track.Ref, t track.Track) error {
	if c.ref != track.NoTrack {
		c.Teardown()
	}
	c.ref = ref
	c.id = t.ID
	c.logger.Debug().Int("track", t.ID).Str("codec", t.Codec).Msg("decoder initialized")
	return nil
}

func (c *nullChain) Teardown() {
	if c.ref == track.NoTrack {
		return
	}
	c.logger.Debug().Int("track", c.id).Msg("decoder torn down")
	c.ref = track.NoTrack
}

func (c *nullChain) Ref() track.Ref { return c.ref }

// strictChain rejects codecs outside its list.
type strictChain struct {
	nullChain
	typ    track.Type
	codecs []string
}

func (c *strictChain) Init(ref track.Ref, t track.Track) error {
	for _, codec := range c.codecs {
		if strings.EqualFold(codec, t.Codec) {
			return c.nullChain.Init(ref, t)
		}
	}
	c.logger.Warn().Int("track", t.ID).Str("codec", t.Codec).Msg("unsupported codec")
	switch c.typ {
	case track.Audio:
		return fmt.Errorf("codec %q: %w", t.Codec, apierr.AOInitFailed)
	case track.Video:
		return fmt.Errorf("codec %q: %w", t.Codec, apierr.VOInitFailed)
	default:
		return fmt.Errorf("codec %q: %w", t.Codec, apierr.Unsupported)
	}
}
