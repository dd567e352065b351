package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AcquireImmediateWithinBurst(t *testing.T) {
	l := New(100*time.Millisecond, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected burst acquires to be immediate, took %v", elapsed)
	}
}

func TestLimiter_AcquireDelaysAfterBurst(t *testing.T) {
	l := New(50*time.Millisecond, 1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected second acquire to be delayed, took %v", elapsed)
	}
}

func TestLimiter_AcquireCancelled(t *testing.T) {
	l := New(time.Hour, 1)

	// Drain the single token
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err == nil {
		t.Error("expected error from cancelled Acquire, got nil")
	}
}

func TestLimiter_ConcurrentUse(t *testing.T) {
	l := New(time.Millisecond, 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("concurrent Acquire failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestNew_ClampsBadValues(t *testing.T) {
	l := New(0, 0)
	if l == nil {
		t.Fatal("New returned nil")
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire on clamped limiter failed: %v", err)
	}
}
