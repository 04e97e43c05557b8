/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/playcore/internal/decoder"
	"github.com/friendsincode/playcore/internal/player"
	"github.com/friendsincode/playcore/internal/track"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects where engine events are mirrored.
type EventBusBackend string

const (
	EventBusNone  EventBusBackend = "none"
	EventBusRedis EventBusBackend = "redis"
	EventBusNATS  EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	JWTSigningKey string

	// Engine
	MaxEvents    int
	Idle         bool
	Strict       bool
	TickInterval time.Duration
	Decoder      string

	// Player options
	Pause        bool
	Volume       float64
	Speed        float64
	AudioLangs   []string
	SubLangs     []string
	AudioDisplay bool
	LoopPlaylist int // 0 = no, -1 = forever, n = total passes
	Start        float64
	BitratePref  string

	// Watch-later resume
	Resume             bool
	SavePositionOnQuit bool
	DBBackend          DatabaseBackend
	DBDSN              string

	// Event bus bridge
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	NATSURL       string
	NATSSubject   string

	// S3 stream source
	S3Region          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"PLAYCORE_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"PLAYCORE_HTTP_BIND"}, "127.0.0.1"),
		HTTPPort:      getEnvIntAny([]string{"PLAYCORE_HTTP_PORT"}, 8090),
		JWTSigningKey: getEnvAny([]string{"PLAYCORE_JWT_SIGNING_KEY"}, ""),

		MaxEvents:    getEnvIntAny([]string{"PLAYCORE_MAX_EVENTS"}, 1000),
		Idle:         getEnvBoolAny([]string{"PLAYCORE_IDLE"}, false),
		Strict:       getEnvBoolAny([]string{"PLAYCORE_STRICT"}, false),
		TickInterval: time.Duration(getEnvIntAny([]string{"PLAYCORE_TICK_INTERVAL_MS"}, 50)) * time.Millisecond,
		Decoder:      getEnvAny([]string{"PLAYCORE_DECODER"}, "null"),

		Pause:        getEnvBoolAny([]string{"PLAYCORE_PAUSE"}, false),
		Volume:       getEnvFloatAny([]string{"PLAYCORE_VOLUME"}, 100),
		Speed:        getEnvFloatAny([]string{"PLAYCORE_SPEED"}, 1.0),
		AudioLangs:   splitList(getEnvAny([]string{"PLAYCORE_ALANG"}, "")),
		SubLangs:     splitList(getEnvAny([]string{"PLAYCORE_SLANG"}, "")),
		AudioDisplay: getEnvBoolAny([]string{"PLAYCORE_AUDIO_DISPLAY"}, true),
		LoopPlaylist: getEnvIntAny([]string{"PLAYCORE_LOOP_PLAYLIST"}, 0),
		Start:        getEnvFloatAny([]string{"PLAYCORE_START"}, -1),
		BitratePref:  getEnvAny([]string{"PLAYCORE_BITRATE_PREF"}, "none"),

		Resume:             getEnvBoolAny([]string{"PLAYCORE_RESUME"}, false),
		SavePositionOnQuit: getEnvBoolAny([]string{"PLAYCORE_SAVE_POSITION_ON_QUIT"}, false),
		DBBackend:          DatabaseBackend(getEnvAny([]string{"PLAYCORE_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:              getEnvAny([]string{"PLAYCORE_DB_DSN"}, "playcore.db"),

		EventBus:      EventBusBackend(getEnvAny([]string{"PLAYCORE_EVENTBUS"}, string(EventBusNone))),
		RedisAddr:     getEnvAny([]string{"PLAYCORE_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"PLAYCORE_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"PLAYCORE_REDIS_DB"}, 0),
		RedisChannel:  getEnvAny([]string{"PLAYCORE_REDIS_CHANNEL"}, "playcore.events"),
		NATSURL:       getEnvAny([]string{"PLAYCORE_NATS_URL"}, "nats://127.0.0.1:4222"),
		NATSSubject:   getEnvAny([]string{"PLAYCORE_NATS_SUBJECT"}, "playcore.events"),

		S3Region:          getEnvAny([]string{"PLAYCORE_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"PLAYCORE_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3AccessKeyID:     getEnvAny([]string{"PLAYCORE_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"PLAYCORE_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"PLAYCORE_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"PLAYCORE_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"PLAYCORE_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"PLAYCORE_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.EventBus != EventBusNone && cfg.EventBus != EventBusRedis && cfg.EventBus != EventBusNATS {
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBus)
	}

	if cfg.MaxEvents <= 0 {
		return nil, fmt.Errorf("PLAYCORE_MAX_EVENTS must be positive, got %d", cfg.MaxEvents)
	}

	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("PLAYCORE_TICK_INTERVAL_MS must be positive")
	}

	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("PLAYCORE_TRACING_SAMPLE_RATE must be within [0,1], got %v", cfg.TracingSampleRate)
	}

	if _, ok := track.ParseBitratePref(cfg.BitratePref); !ok {
		return nil, fmt.Errorf("unsupported bitrate preference %q", cfg.BitratePref)
	}

	known := false
	for _, v := range decoder.Variants {
		if v == cfg.Decoder {
			known = true
		}
	}
	if !known {
		return nil, fmt.Errorf("unsupported decoder %q", cfg.Decoder)
	}

	if cfg.Speed <= 0 {
		return nil, fmt.Errorf("PLAYCORE_SPEED must be positive")
	}

	return cfg, nil
}

// PlayerOptions converts the configuration into core options.
func (c *Config) PlayerOptions() player.Options {
	opts := player.DefaultOptions()
	opts.Pause = c.Pause
	opts.Volume = c.Volume
	opts.Speed = c.Speed
	opts.Langs[track.Audio] = c.AudioLangs
	opts.Langs[track.Sub] = c.SubLangs
	opts.AudioDisplay = c.AudioDisplay
	opts.Bitrate, _ = track.ParseBitratePref(c.BitratePref)
	opts.Start = c.Start
	opts.Idle = c.Idle
	opts.Resume = c.Resume
	opts.SavePositionOnQuit = c.SavePositionOnQuit
	opts.TickInterval = c.TickInterval
	opts.MaxEvents = c.MaxEvents
	opts.Strict = c.Strict

	switch {
	case c.LoopPlaylist < 0:
		opts.LoopPlaylist = -1
	case c.LoopPlaylist <= 1:
		opts.LoopPlaylist = 1
	default:
		opts.LoopPlaylist = c.LoopPlaylist
	}
	return opts
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
