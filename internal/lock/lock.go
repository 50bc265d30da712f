/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lock serializes read-modify-write cycles on a single blob.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/config"
	"github.com/friendsincode/protoreg/internal/telemetry"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Release gives the lock back. Calling it more than once is harmless.
type Release func()

// Locker hands out exclusive access per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
	Backend() string
	Close() error
}

// New builds the locker selected by config.
func New(cfg *config.Config, logger zerolog.Logger) (Locker, error) {
	switch cfg.LockBackend {
	case config.LockNone:
		logger.Warn().Msg("blob write lock disabled, concurrent submissions may overwrite each other")
		return Noop{}, nil
	case config.LockLocal, "":
		return NewLocal(), nil
	case config.LockRedis:
		return NewRedis(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.LockTTL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", cfg.LockBackend)
	}
}

// timed wraps acquisition with the wait-time histogram.
func timed(backend string, fn func() (Release, error)) (Release, error) {
	start := time.Now()
	release, err := fn()
	telemetry.LockWaitDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	return release, err
}

// Noop never blocks. It reproduces unguarded last-writer-wins behaviour.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string) (Release, error) { return func() {}, nil }
func (Noop) Backend() string                                          { return "none" }
func (Noop) Close() error                                             { return nil }

// Local serializes writers inside one process.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process keyed lock.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Backend names the lock implementation.
func (l *Local) Backend() string { return "local" }

// Close is a no-op for the in-process lock.
func (l *Local) Close() error { return nil }

// Acquire blocks until key is free or ctx is done.
func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	return timed(l.Backend(), func() (Release, error) {
		l.mu.Lock()
		s, ok := l.slots[key]
		if !ok {
			s = &slot{ch: make(chan struct{}, 1)}
			l.slots[key] = s
		}
		s.refs++
		l.mu.Unlock()

		select {
		case s.ch <- struct{}{}:
		case <-ctx.Done():
			l.unref(key, s)
			return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
		}

		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	})
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
