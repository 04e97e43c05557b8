/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors engine events onto an external message bus.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/telemetry"
)

// Publisher delivers one encoded event to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Backend() string
	Close() error
}

// Source is the client side of the engine the bridge reads from.
type Source interface {
	WaitEvent(timeout time.Duration) events.Event
}

// Message is the JSON envelope published for every event.
type Message struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id"`
	MessageID string         `json:"message_id"`
}

// Bridge forwards events from a Source to a Publisher until shutdown.
type Bridge struct {
	source  Source
	pub     Publisher
	subject string
	nodeID  string
	logger  zerolog.Logger
	poll    time.Duration
}

// NewBridge creates a bridge publishing under subject. Each event goes to
// "<subject>.<event name>".
func NewBridge(source Source, pub Publisher, subject string, logger zerolog.Logger) *Bridge {
	return &Bridge{
		source:  source,
		pub:     pub,
		subject: subject,
		nodeID:  NodeID(),
		logger:  logger.With().Str("component", "eventbus").Logger(),
		poll:    250 * time.Millisecond,
	}
}

// NodeID identifies this process in published messages.
func NodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "playcore"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Run publishes until the source shuts down or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info().Str("subject", b.subject).Str("node_id", b.nodeID).Msg("event bridge started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := b.source.WaitEvent(b.poll)
		if ev.Kind == events.None {
			continue
		}
		b.forward(ctx, ev)
		if ev.Kind == events.Shutdown {
			b.logger.Info().Msg("event bridge stopped")
			return nil
		}
	}
}

func (b *Bridge) forward(ctx context.Context, ev events.Event) {
	data, err := b.encode(ev)
	if err != nil {
		telemetry.EventBusErrors.WithLabelValues(b.pub.Backend()).Inc()
		b.logger.Error().Err(err).Str("event", ev.Kind.String()).Msg("failed to encode event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	subject := b.subject + "." + ev.Kind.String()
	if err := b.pub.Publish(pubCtx, subject, data); err != nil {
		telemetry.EventBusErrors.WithLabelValues(b.pub.Backend()).Inc()
		b.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
		return
	}
	telemetry.EventBusPublished.WithLabelValues(b.pub.Backend()).Inc()
}

func (b *Bridge) encode(ev events.Event) ([]byte, error) {
	msg := Message{
		EventType: ev.Kind.String(),
		Payload:   events.ToMap(ev),
		Timestamp: time.Now().UTC(),
		NodeID:    b.nodeID,
		MessageID: uuid.NewString(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return data, nil
}
