/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCircuitOpen is returned while the publisher is backing off.
var ErrCircuitOpen = errors.New("redis circuit open")

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Connection pooling
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      4,
		MinIdleConns:  1,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// RedisPublisher publishes to Redis pub/sub. After MaxFailures consecutive
// errors it stops trying until CheckInterval passed and a ping succeeds.
type RedisPublisher struct {
	client *redis.Client
	cfg    RedisConfig
	logger zerolog.Logger

	mu        sync.Mutex
	open      bool
	failCount int
	lastCheck time.Time
}

// NewRedisPublisher connects to Redis. An unreachable server is not an
// error: the publisher starts with the circuit open.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) *RedisPublisher {
	logger = logger.With().Str("component", "eventbus").Str("backend", "redis").Logger()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rp := &RedisPublisher{client: client, cfg: cfg, logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis connection failed, events will be dropped until it recovers")
		rp.open = true
		rp.lastCheck = time.Now()
		return rp
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Redis event publisher initialized")
	return rp
}

// Publish sends data to channel subject.
func (rp *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if !rp.ready(ctx) {
		return ErrCircuitOpen
	}
	if err := rp.client.Publish(ctx, subject, data).Err(); err != nil {
		rp.handleFailure()
		return err
	}

	rp.mu.Lock()
	rp.failCount = 0
	rp.mu.Unlock()
	return nil
}

// ready reports whether publishing should be attempted, probing the server
// when the circuit has been open long enough.
func (rp *RedisPublisher) ready(ctx context.Context) bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if !rp.open {
		return true
	}
	if time.Since(rp.lastCheck) < rp.cfg.CheckInterval {
		return false
	}
	rp.lastCheck = time.Now()
	if err := rp.client.Ping(ctx).Err(); err != nil {
		rp.logger.Debug().Err(err).Msg("Redis still unavailable")
		return false
	}
	rp.open = false
	rp.failCount = 0
	rp.logger.Info().Msg("reconnected to Redis")
	return true
}

func (rp *RedisPublisher) handleFailure() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.failCount++
	if rp.failCount >= rp.cfg.MaxFailures && !rp.open {
		rp.logger.Warn().Int("fail_count", rp.failCount).Msg("Redis failure threshold reached, pausing publishing")
		rp.open = true
		rp.lastCheck = time.Now()
	}
}

// Backend names the bus for metrics.
func (rp *RedisPublisher) Backend() string { return "redis" }

// Close closes the Redis client.
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}
