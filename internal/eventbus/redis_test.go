package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisPublisherCircuitBreaker(t *testing.T) {
	calls := 0
	failing := true
	pub := newRedisPublisher(func(ctx context.Context, channel string, data []byte) error {
		calls++
		if failing {
			return errors.New("connection refused")
		}
		return nil
	}, RedisConfig{MaxFailures: 2, CheckInterval: time.Minute})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := pub.Publish("protoreg:events:protocol.recorded", []byte("{}")); err == nil {
			t.Fatal("expected publish error")
		}
	}

	// Open: no call reaches redis.
	if err := pub.Publish("c", nil); !errors.Is(err, errCircuitOpen) {
		t.Fatalf("err = %v, want errCircuitOpen", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	// After the check interval a publish is attempted again and success resets.
	now = now.Add(2 * time.Minute)
	failing = false
	if err := pub.Publish("c", nil); err != nil {
		t.Fatalf("publish after interval: %v", err)
	}
	if pub.failCount != 0 {
		t.Fatalf("failCount = %d, want 0", pub.failCount)
	}
}

func TestRedisPublisherDefaults(t *testing.T) {
	pub := newRedisPublisher(func(context.Context, string, []byte) error { return nil }, RedisConfig{})
	def := DefaultRedisConfig()
	if pub.maxFails != def.MaxFailures || pub.checkPeriod != def.CheckInterval || pub.timeout != def.WriteTimeout {
		t.Fatalf("defaults not applied: %+v", pub)
	}
}
