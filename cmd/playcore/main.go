/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/playcore/internal/config"
	"github.com/friendsincode/playcore/internal/db"
	"github.com/friendsincode/playcore/internal/decoder"
	"github.com/friendsincode/playcore/internal/demux"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/logbuffer"
	"github.com/friendsincode/playcore/internal/logging"
	"github.com/friendsincode/playcore/internal/player"
	"github.com/friendsincode/playcore/internal/resume"
	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/telemetry"
	"github.com/friendsincode/playcore/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	hub    *logbuffer.Hub
)

var rootCmd = &cobra.Command{
	Use:           "playcore",
	Short:         "playcore - media player control plane",
	Long:          "playcore runs a playback core and lets any number of clients drive it through commands, properties and events.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hub = logbuffer.NewHub(nil)
	logger = logging.SetupWithWriter(cfg.Environment, hub)
	return nil
}

// closers runs cleanup hooks in reverse registration order.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Error().Err(err).Msg("shutdown cleanup failed")
		}
	}
}

// buildEngine wires stream openers, demuxers, decoders and the resume
// store into a new engine.
func buildEngine(ctx context.Context, opts player.Options, cleanup *closers) (*engine.Engine, error) {
	tracerProvider, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "playcore",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	cleanup.add(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracerProvider.Shutdown(shutdownCtx)
	})

	streams := stream.NewRouter(logger)
	streams.Register("file", stream.FileOpener{})
	httpOpener := stream.NewHTTPOpener(30 * time.Second)
	streams.Register("http", httpOpener)
	streams.Register("https", httpOpener)
	if s3, err := stream.NewS3Opener(ctx, stream.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		UsePathStyle:    cfg.S3UsePathStyle,
	}); err != nil {
		logger.Warn().Err(err).Msg("s3 streams disabled")
	} else {
		streams.Register("s3", s3)
	}

	chains, err := decoder.NewFactory(cfg.Decoder, logger)
	if err != nil {
		return nil, err
	}

	deps := player.Deps{
		Streams:  streams,
		Demuxers: demux.NewOpener(logger),
		Chains:   chains,
		Hub:      hub,
	}

	if opts.Resume || opts.SavePositionOnQuit {
		database, err := db.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect resume database: %w", err)
		}
		cleanup.add(func() error { return db.Close(database) })
		if err := db.Migrate(database); err != nil {
			return nil, err
		}
		deps.Resume = resume.NewStore(database, logger)
	}

	return engine.New(opts, deps, logger), nil
}
