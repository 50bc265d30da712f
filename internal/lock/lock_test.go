package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/config"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "protocol_database.json")
			if err != nil {
				t.Errorf("Acquire() error: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if len(l.slots) != 0 {
		t.Fatalf("slots left after release = %d, want 0", len(l.slots))
	}
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	releaseA, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire(a) error: %v", err)
	}
	defer releaseA()

	releaseB, err := l.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire(b) error while a is held: %v", err)
	}
	releaseB()
}

func TestLocalAcquireHonoursContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, ErrNotAcquired) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want ErrNotAcquired wrapping deadline", err)
	}

	release()
	release() // second call is a no-op

	again, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	again()
}

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		backend config.LockBackend
		want    string
	}{
		{backend: config.LockNone, want: "none"},
		{backend: config.LockLocal, want: "local"},
	}
	for _, tt := range tests {
		l, err := New(&config.Config{LockBackend: tt.backend}, zerolog.Nop())
		if err != nil {
			t.Fatalf("New(%s) error: %v", tt.backend, err)
		}
		if got := l.Backend(); got != tt.want {
			t.Fatalf("New(%s).Backend() = %q, want %q", tt.backend, got, tt.want)
		}
	}

	if _, err := New(&config.Config{LockBackend: "etcd"}, zerolog.Nop()); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}

func TestKeyFor(t *testing.T) {
	if got := keyFor("participant_data.xlsx"); got != "protoreg:lock:participant_data.xlsx" {
		t.Fatalf("keyFor() = %q", got)
	}
}
