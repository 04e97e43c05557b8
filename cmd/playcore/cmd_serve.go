/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/playcore/internal/config"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/eventbus"
	"github.com/friendsincode/playcore/internal/ipc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an idle engine behind the IPC server",
	Long:  "Start the engine in idle mode and expose it over HTTP and websocket IPC. Events are mirrored to Redis or NATS when configured.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("playcore starting")

	var cleanup closers
	defer cleanup.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := cfg.PlayerOptions()
	opts.Idle = true
	eng, err := buildEngine(ctx, opts, &cleanup)
	if err != nil {
		return err
	}

	var secret []byte
	if cfg.JWTSigningKey != "" {
		secret = []byte(cfg.JWTSigningKey)
	}
	srv, err := ipc.New(ipc.Config{Bind: cfg.HTTPBind, Port: cfg.HTTPPort, JWTSecret: secret}, eng, logger)
	if err != nil {
		return fmt.Errorf("initialize ipc: %w", err)
	}
	cleanup.add(srv.Close)

	if err := startBridge(ctx, eng, &cleanup); err != nil {
		return err
	}

	if err := eng.Initialize(); err != nil {
		return err
	}

	httpServer := srv.HTTPServer()
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case <-eng.Done():
		logger.Info().Msg("engine quit")
	}

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eng.Terminate(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("engine terminate failed")
	}
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("playcore stopped")
	return nil
}

// startBridge mirrors events to the configured bus through a dedicated
// client.
func startBridge(ctx context.Context, eng *engine.Engine, cleanup *closers) error {
	var pub eventbus.Publisher
	var subject string
	switch cfg.EventBus {
	case config.EventBusRedis:
		rc := eventbus.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		pub = eventbus.NewRedisPublisher(ctx, rc, logger)
		subject = cfg.RedisChannel
	case config.EventBusNATS:
		nc := eventbus.DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		np, err := eventbus.NewNATSPublisher(nc, logger)
		if err != nil {
			return err
		}
		pub = np
		subject = cfg.NATSSubject
	default:
		return nil
	}
	cleanup.add(pub.Close)

	client, err := eng.CreateClient("eventbus")
	if err != nil {
		return err
	}
	bridge := eventbus.NewBridge(client, pub, subject, logger)
	go func() {
		if err := bridge.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event bridge exited")
		}
	}()
	return nil
}
