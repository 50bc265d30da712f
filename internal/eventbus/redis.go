/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/events"
)

var errCircuitOpen = errors.New("redis publishing paused after repeated failures")

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string

	// Connection pooling
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		ChannelPrefix: "protoreg:events",
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// redisPublisher publishes to Redis channels and stops trying for
// CheckInterval once MaxFailures consecutive publishes have failed.
type redisPublisher struct {
	publish func(ctx context.Context, channel string, data []byte) error
	timeout time.Duration
	now     func() time.Time

	mu          sync.Mutex
	failCount   int
	maxFails    int
	openedAt    time.Time
	checkPeriod time.Duration
}

func (p *redisPublisher) Publish(channel string, data []byte) error {
	p.mu.Lock()
	if p.failCount >= p.maxFails && p.now().Sub(p.openedAt) < p.checkPeriod {
		p.mu.Unlock()
		return errCircuitOpen
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	err := p.publish(ctx, channel, data)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failCount++
		if p.failCount >= p.maxFails {
			p.openedAt = p.now()
		}
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.failCount = 0
	return nil
}

// NewRedisForwarder connects to Redis and returns a forwarder publishing to
// the channels <prefix>:<event type>.
func NewRedisForwarder(cfg RedisConfig, bus *events.Bus, logger zerolog.Logger) (*Forwarder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = DefaultRedisConfig().ChannelPrefix
	}
	logger.Info().Str("addr", cfg.Addr).Str("channel_prefix", prefix).Msg("redis event forwarding enabled")

	pub := newRedisPublisher(func(ctx context.Context, channel string, data []byte) error {
		return client.Publish(ctx, channel, data).Err()
	}, cfg)

	f := newForwarder("redis", pub, bus, prefix, ":", logger)
	f.close = client.Close
	return f, nil
}

func newRedisPublisher(publish func(ctx context.Context, channel string, data []byte) error, cfg RedisConfig) *redisPublisher {
	def := DefaultRedisConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	return &redisPublisher{
		publish:     publish,
		timeout:     cfg.WriteTimeout,
		now:         time.Now,
		maxFails:    cfg.MaxFailures,
		checkPeriod: cfg.CheckInterval,
	}
}
