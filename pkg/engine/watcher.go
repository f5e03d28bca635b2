package engine

import (
	"context"
	"sync"
	"time"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/util"
)

// blockWatcher polls the node tip and fans changes out to registered
// callbacks. The first observed tip is only recorded.
type blockWatcher struct {
	poll     func(ctx context.Context) (BlockEvent, error)
	interval time.Duration

	mu     sync.Mutex
	nextID int
	subs   map[int]func(BlockEvent)
	last   string

	cancel context.CancelFunc
	done   chan struct{}
}

func newBlockWatcher(poll func(ctx context.Context) (BlockEvent, error), interval time.Duration) *blockWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &blockWatcher{
		poll:     poll,
		interval: interval,
		subs:     make(map[int]func(BlockEvent)),
	}
}

func (w *blockWatcher) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	util.SafeGoWithName("block-watcher", func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.check(ctx)
			}
		}
	})
}

// stop halts polling and waits for the poll goroutine. Safe to call when
// the watcher was never started.
func (w *blockWatcher) stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
}

func (w *blockWatcher) check(ctx context.Context) {
	ev, err := w.poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Debug("block poll failed", logging.Component("engine"), logging.Err(err))
		}
		return
	}

	w.mu.Lock()
	if ev.Hash == "" || ev.Hash == w.last {
		w.mu.Unlock()
		return
	}
	first := w.last == ""
	w.last = ev.Hash
	subs := make([]func(BlockEvent), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	if first {
		return
	}
	for _, fn := range subs {
		fn(ev)
	}
}

func (w *blockWatcher) register(fn func(BlockEvent)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

func (w *blockWatcher) registered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
