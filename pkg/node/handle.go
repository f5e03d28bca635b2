package node

import (
	"context"
	"sync/atomic"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// Handle is a reference counted share of a running engine. The controller
// holds the initial reference; tasks acquire leases for the duration of a
// call. Shutdown requires the controller to be the only holder.
type Handle struct {
	eng  engine.Engine
	refs atomic.Int64
}

// NewHandle wraps eng with one reference owned by the caller.
func NewHandle(eng engine.Engine) *Handle {
	h := &Handle{eng: eng}
	h.refs.Store(1)
	return h
}

// Refs returns the number of live references, zero after the exclusive take.
func (h *Handle) Refs() int64 {
	return h.refs.Load()
}

// Acquire adds a reference. It fails once the handle was taken exclusively.
func (h *Handle) Acquire() (*Lease, error) {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return nil, ErrHandleReleased
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return &Lease{h: h}, nil
		}
	}
}

// TryTakeExclusive reclaims the engine when the caller holds the only
// reference. Otherwise it returns a *SharedHandleError and leaves the
// handle and engine untouched.
func (h *Handle) TryTakeExclusive() (engine.Engine, error) {
	if h.refs.CompareAndSwap(1, 0) {
		return h.eng, nil
	}
	n := h.refs.Load()
	if n <= 0 {
		return nil, ErrHandleReleased
	}
	return nil, &SharedHandleError{Refs: n}
}

// Stop takes the engine exclusively and shuts it down.
func Stop(ctx context.Context, h *Handle) error {
	eng, err := h.TryTakeExclusive()
	if err != nil {
		return err
	}
	return eng.Shutdown(ctx)
}

// Lease is one non-owning reference to a Handle.
type Lease struct {
	h        *Handle
	released atomic.Bool
}

// Engine returns the shared engine.
func (l *Lease) Engine() engine.Engine {
	return l.h.eng
}

// Release drops the reference. Calling it again is a no-op.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.h.refs.Add(-1)
	}
}
