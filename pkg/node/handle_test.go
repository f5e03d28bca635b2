package node

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// TestHandleExclusiveTake verifies the sole owner can take the engine.
func TestHandleExclusiveTake(t *testing.T) {
	eng := newMockEngine()
	h := NewHandle(eng)

	got, err := h.TryTakeExclusive()
	if err != nil {
		t.Fatalf("TryTakeExclusive failed: %v", err)
	}
	if got != eng {
		t.Error("Expected the wrapped engine back")
	}
	if h.Refs() != 0 {
		t.Errorf("Expected 0 refs after take, got %d", h.Refs())
	}
	if _, err := h.Acquire(); !errors.Is(err, ErrHandleReleased) {
		t.Errorf("Expected ErrHandleReleased after take, got %v", err)
	}
	if _, err := h.TryTakeExclusive(); !errors.Is(err, ErrHandleReleased) {
		t.Errorf("Expected ErrHandleReleased on second take, got %v", err)
	}
}

// TestHandleSharedTakeFails verifies a live lease blocks shutdown without touching the engine.
func TestHandleSharedTakeFails(t *testing.T) {
	eng := newMockEngine()
	h := NewHandle(eng)
	lease, err := h.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	err = Stop(context.Background(), h)
	var shared *SharedHandleError
	if !errors.As(err, &shared) {
		t.Fatalf("Expected SharedHandleError, got %v", err)
	}
	if shared.Refs != 2 {
		t.Errorf("Expected 2 references, got %d", shared.Refs)
	}
	if !strings.Contains(err.Error(), "cannot shut down: 2 references remain") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if eng.shutdowns() != 0 {
		t.Error("Engine was shut down while shared")
	}
	if h.Refs() != 2 {
		t.Errorf("Failed take changed refs to %d", h.Refs())
	}

	lease.Release()
	lease.Release()
	if h.Refs() != 1 {
		t.Fatalf("Expected double release to count once, refs=%d", h.Refs())
	}
	if err := Stop(context.Background(), h); err != nil {
		t.Fatalf("Stop after release failed: %v", err)
	}
	if eng.shutdowns() != 1 {
		t.Errorf("Expected 1 shutdown, got %d", eng.shutdowns())
	}
}

// TestHandleConcurrentLeases verifies concurrent acquire/release keeps the count exact.
func TestHandleConcurrentLeases(t *testing.T) {
	h := NewHandle(newMockEngine())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l, err := h.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				_ = l.Engine()
				l.Release()
			}
		}()
	}
	wg.Wait()
	if h.Refs() != 1 {
		t.Fatalf("Expected refs to return to 1, got %d", h.Refs())
	}
	if _, err := h.TryTakeExclusive(); err != nil {
		t.Errorf("Expected exclusive take to succeed, got %v", err)
	}
}

// TestHandleTakeRacesAcquire verifies a lease is never handed out after the take.
func TestHandleTakeRacesAcquire(t *testing.T) {
	for i := 0; i < 100; i++ {
		h := NewHandle(newMockEngine())
		var wg sync.WaitGroup
		var lease *Lease
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, _ = h.Acquire()
		}()
		_, takeErr := h.TryTakeExclusive()
		wg.Wait()

		if takeErr == nil && lease != nil {
			t.Fatal("Lease acquired after exclusive take")
		}
		if lease != nil {
			lease.Release()
		}
	}
}
