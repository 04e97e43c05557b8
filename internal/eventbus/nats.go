/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	// Connection options
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSPublisher publishes to NATS core subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher connects to the NATS server.
func NewNATSPublisher(cfg NATSConfig, logger zerolog.Logger) (*NATSPublisher, error) {
	logger = logger.With().Str("component", "eventbus").Str("backend", "nats").Logger()
	opts := []nats.Option{
		nats.Name("playcore"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", cfg.URL).Msg("NATS event publisher initialized")
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish sends data to subject. NATS buffers while reconnecting, so ctx
// is only checked up front.
func (np *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return np.conn.Publish(subject, data)
}

// Backend names the bus for metrics.
func (np *NATSPublisher) Backend() string { return "nats" }

// Close drains pending messages and closes the connection.
func (np *NATSPublisher) Close() error {
	if err := np.conn.Drain(); err != nil {
		np.conn.Close()
		return err
	}
	return nil
}
