/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"no", LevelNone, false},
		{"fatal", LevelFatal, false},
		{"info", LevelInfo, false},
		{"terminal-default", LevelInfo, false},
		{"v", LevelVerbose, false},
		{"trace", LevelTrace, false},
		{"loud", LevelNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.name, err)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if CapacityFor(LevelInfo) != 1000 || CapacityFor(LevelDebug) != 10000 {
		t.Fatal("unexpected ring capacities")
	}
}

func TestHubFiltersByLevel(t *testing.T) {
	var fallback bytes.Buffer
	hub := NewHub(&fallback)

	notified := 0
	warnSub := hub.Subscribe(LevelWarn, func() { notified++ })
	debugSub := hub.Subscribe(LevelDebug, nil)

	logger := zerolog.New(hub).With().Str("component", "player").Logger()
	logger.Info().Msg("opening file")
	logger.Error().Msg("demuxer failed")
	logger.Debug().Msg("chain ready")

	if warnSub.Len() != 1 {
		t.Fatalf("warn subscription got %d entries, want 1", warnSub.Len())
	}
	if notified != 1 {
		t.Fatalf("notify called %d times, want 1", notified)
	}
	entry, ok := warnSub.Read()
	if !ok || entry.Text != "demuxer failed" || entry.Prefix != "player" || entry.Level != LevelError {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	if debugSub.Len() != 3 {
		t.Fatalf("debug subscription got %d entries, want 3", debugSub.Len())
	}
	if fallback.Len() == 0 {
		t.Fatal("expected lines to reach the fallback writer")
	}
}

func TestSubscriptionOverwritesOldest(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(LevelInfo, nil)

	for i := 0; i < CapacityFor(LevelInfo)+5; i++ {
		hub.Publish(Entry{Level: LevelInfo, Text: "line"})
	}
	if sub.Len() != CapacityFor(LevelInfo) {
		t.Fatalf("len = %d", sub.Len())
	}
	if sub.Dropped() != 5 {
		t.Fatalf("dropped = %d, want 5", sub.Dropped())
	}
}

func TestCloseDetaches(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(LevelInfo, nil)
	sub.Close()
	sub.Close()

	if hub.Len() != 0 {
		t.Fatalf("hub still has %d subscriptions", hub.Len())
	}
	hub.Publish(Entry{Level: LevelInfo, Text: "late"})
	if _, ok := sub.Read(); ok {
		t.Fatal("closed subscription returned an entry")
	}
}
