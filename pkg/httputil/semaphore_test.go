package httputil

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreTryAcquire(t *testing.T) {
	s := NewSemaphore(2)

	if !s.TryAcquire() || !s.TryAcquire() {
		t.Fatal("expected two acquisitions to succeed")
	}
	if s.TryAcquire() {
		t.Fatal("expected third acquisition to fail at capacity")
	}
	if s.DroppedCount() != 1 {
		t.Fatalf("expected 1 dropped, got %d", s.DroppedCount())
	}

	s.Release()
	if !s.TryAcquire() {
		t.Fatal("expected acquisition after release")
	}
}

func TestSemaphoreAcquireHonorsContext(t *testing.T) {
	s := NewSemaphore(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatal("expected acquire to fail on cancelled context")
	}
}

func TestSemaphoreDefaultCapacity(t *testing.T) {
	s := NewSemaphore(0)
	for i := 0; i < 64; i++ {
		if !s.TryAcquire() {
			t.Fatalf("expected default capacity of 64, failed at %d", i)
		}
	}
	if s.TryAcquire() {
		t.Fatal("expected capacity limit at 64")
	}
}

func TestSemaphoreReleaseWithoutAcquire(t *testing.T) {
	s := NewSemaphore(1)
	s.Release() // must not panic or corrupt state
	if !s.TryAcquire() {
		t.Fatal("expected acquisition to succeed")
	}
	if s.InUse() != 1 {
		t.Fatalf("expected 1 in use, got %d", s.InUse())
	}
}
