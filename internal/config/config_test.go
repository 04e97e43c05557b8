package config

import (
	"testing"
	"time"

	"github.com/friendsincode/playcore/internal/track"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite || cfg.DBDSN != "playcore.db" {
		t.Fatalf("unexpected db defaults: %s %q", cfg.DBBackend, cfg.DBDSN)
	}
	if cfg.MaxEvents != 1000 || cfg.TickInterval != 50*time.Millisecond {
		t.Fatalf("unexpected engine defaults: %d %v", cfg.MaxEvents, cfg.TickInterval)
	}
	if cfg.EventBus != EventBusNone || cfg.Decoder != "null" {
		t.Fatalf("unexpected backends: %s %s", cfg.EventBus, cfg.Decoder)
	}
}

func TestLoadReadsEnvKeys(t *testing.T) {
	t.Setenv("PLAYCORE_MAX_EVENTS", "64")
	t.Setenv("PLAYCORE_ALANG", "fr, en")
	t.Setenv("PLAYCORE_LOOP_PLAYLIST", "-1")
	t.Setenv("PLAYCORE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxEvents != 64 {
		t.Fatalf("MaxEvents = %d", cfg.MaxEvents)
	}
	if len(cfg.AudioLangs) != 2 || cfg.AudioLangs[0] != "fr" || cfg.AudioLangs[1] != "en" {
		t.Fatalf("AudioLangs = %v", cfg.AudioLangs)
	}
	if cfg.S3Region != "eu-west-1" {
		t.Fatalf("S3Region = %q", cfg.S3Region)
	}

	opts := cfg.PlayerOptions()
	if opts.LoopPlaylist != -1 || opts.MaxEvents != 64 {
		t.Fatalf("player options = %+v", opts)
	}
	if len(opts.Langs[track.Audio]) != 2 {
		t.Fatalf("audio langs not passed through: %v", opts.Langs)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PLAYCORE_DB_BACKEND", "oracle"},
		{"PLAYCORE_EVENTBUS", "kafka"},
		{"PLAYCORE_MAX_EVENTS", "0"},
		{"PLAYCORE_TRACING_SAMPLE_RATE", "1.5"},
		{"PLAYCORE_BITRATE_PREF", "median"},
		{"PLAYCORE_DECODER", "vdpau"},
		{"PLAYCORE_SPEED", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestPlayerOptionsLoopMapping(t *testing.T) {
	for in, want := range map[int]int{0: 1, 1: 1, 3: 3, -1: -1} {
		cfg := &Config{LoopPlaylist: in, Speed: 1, BitratePref: "none"}
		if got := cfg.PlayerOptions().LoopPlaylist; got != want {
			t.Errorf("LoopPlaylist %d -> %d, want %d", in, got, want)
		}
	}
}
