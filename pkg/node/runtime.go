package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/util"
)

// Model is the state machine hosted by a Runtime. Update runs on the loop
// goroutine only.
type Model interface {
	Update(msg Message) Task
	Subscriptions() []Subscription
	Finished() bool
}

// Observer is called on the loop goroutine after every Update.
type Observer func(msg Message)

// Runtime runs a Model: messages are handled strictly one at a time and the
// resulting tasks run on their own goroutines, re-entering through Send.
type Runtime struct {
	model     Model
	inbox     *inbox
	observers []Observer

	tasks sync.WaitGroup
	subs  map[string]*activeSub
}

type activeSub struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRuntime creates a runtime for model.
func NewRuntime(model Model) *Runtime {
	return &Runtime{
		model: model,
		inbox: newInbox(),
		subs:  make(map[string]*activeSub),
	}
}

// Observe registers fn. It must be called before Run.
func (r *Runtime) Observe(fn Observer) {
	r.observers = append(r.observers, fn)
}

// Send queues msg. It never blocks and is safe from any goroutine.
// Messages sent after Run returned are dropped.
func (r *Runtime) Send(msg Message) {
	r.inbox.push(msg)
}

// Run processes messages until the model is finished or ctx is done. Before
// returning it cancels in-flight tasks and subscriptions and waits for them.
func (r *Runtime) Run(ctx context.Context) error {
	taskCtx, cancelTasks := context.WithCancel(ctx)
	stopWatch := context.AfterFunc(ctx, r.inbox.close)
	defer stopWatch()

	defer func() {
		r.inbox.close()
		cancelTasks()
		r.stopAll()
		r.tasks.Wait()
	}()

	r.reconcile(taskCtx)

	for !r.model.Finished() {
		msg, ok := r.inbox.pop()
		if !ok {
			break
		}

		task := r.model.Update(msg)
		r.reconcile(taskCtx)
		for _, obs := range r.observers {
			obs(msg)
		}
		r.dispatch(taskCtx, task)
	}

	if r.model.Finished() {
		return nil
	}
	return ctx.Err()
}

func (r *Runtime) dispatch(ctx context.Context, task Task) {
	for _, msg := range task.Messages() {
		r.inbox.push(msg)
	}
	for _, cmd := range task.Cmds() {
		cmd := cmd
		r.tasks.Add(1)
		util.GoRecover("node-task", func() {
			defer r.tasks.Done()
			r.inbox.push(cmd(ctx))
		}, func(recovered any) {
			r.inbox.push(Error{
				Op:   "task",
				Kind: ErrorOperation,
				Err:  fmt.Errorf("task panicked: %v", recovered),
			})
		})
	}
}

// reconcile stops subscriptions the model no longer wants, waiting for each
// to exit, then starts new ones.
func (r *Runtime) reconcile(ctx context.Context) {
	wanted := r.model.Subscriptions()
	keep := make(map[string]bool, len(wanted))
	for _, s := range wanted {
		keep[s.ID] = true
	}

	for id, s := range r.subs {
		if keep[id] {
			continue
		}
		s.cancel()
		<-s.done
		delete(r.subs, id)
		logging.Debug("subscription stopped", logging.Component("runtime"), "id", id)
	}

	for _, s := range wanted {
		if _, ok := r.subs[s.ID]; ok {
			continue
		}
		subCtx, cancel := context.WithCancel(ctx)
		active := &activeSub{cancel: cancel, done: make(chan struct{})}
		r.subs[s.ID] = active

		s := s
		util.SafeGoWithName("subscription-"+s.ID, func() {
			defer close(active.done)
			s.run(subCtx, r.inbox.push)
		})
		logging.Debug("subscription started", logging.Component("runtime"), "id", s.ID)
	}
}

func (r *Runtime) stopAll() {
	for id, s := range r.subs {
		s.cancel()
		<-s.done
		delete(r.subs, id)
	}
}

// inbox is an unbounded FIFO. push never blocks; pop blocks until a message
// is available or the inbox is closed.
type inbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool
}

func newInbox() *inbox {
	in := &inbox{}
	in.cond = sync.NewCond(&in.mu)
	return in
}

func (in *inbox) push(msg Message) {
	if msg == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.queue = append(in.queue, msg)
	in.cond.Signal()
}

func (in *inbox) pop() (Message, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for len(in.queue) == 0 && !in.closed {
		in.cond.Wait()
	}
	if in.closed {
		return nil, false
	}
	msg := in.queue[0]
	in.queue[0] = nil
	in.queue = in.queue[1:]
	return msg, true
}

func (in *inbox) close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	in.queue = nil
	in.cond.Broadcast()
}
