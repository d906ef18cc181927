package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	limiter := newUploadLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.activeCount(); got != 0 {
		t.Errorf("initial activeCount = %d, want 0", got)
	}

	if err := limiter.acquire(ctx); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := limiter.acquire(ctx); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if got := limiter.activeCount(); got != 2 {
		t.Errorf("activeCount = %d, want 2", got)
	}

	limiter.release()
	limiter.release()
	if got := limiter.activeCount(); got != 0 {
		t.Errorf("after release, activeCount = %d, want 0", got)
	}
}

func TestUploadLimiter_RejectsWhenFull(t *testing.T) {
	limiter := newUploadLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	start := time.Now()
	err := limiter.acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("error = %v, want ErrTooManyUploads", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("rejected after %v, expected to wait for the slot timeout", elapsed)
	}
}

func TestUploadLimiter_WaitsForFreedSlot(t *testing.T) {
	limiter := newUploadLimiter(1, time.Second)
	ctx := context.Background()

	if err := limiter.acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := limiter.acquire(ctx); err != nil {
			t.Errorf("waiting acquire failed: %v", err)
			return
		}
		limiter.release()
	}()

	time.Sleep(20 * time.Millisecond)
	limiter.release()
	wg.Wait()
}

func TestUploadLimiter_ContextCancelled(t *testing.T) {
	limiter := newUploadLimiter(1, time.Second)

	if err := limiter.acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
