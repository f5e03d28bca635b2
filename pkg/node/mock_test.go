package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// mockEngine is a scripted engine.Engine.
type mockEngine struct {
	mu sync.Mutex

	ibd       bool
	header    uint32
	validated uint32
	acc       engine.Accumulator
	ua        string
	peers     []engine.RawPeer
	readErr   error

	connectAccepted bool
	connectErr      error
	connected       []string
	disconnected    []string
	blocks          map[uint32]*engine.Block

	shutdownCalls int
	shutdownErr   error

	nextCallback int
	callbacks    map[int]func(engine.BlockEvent)
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		header:          1000,
		validated:       1000,
		acc:             engine.Accumulator{Leaves: 5, Roots: [][32]byte{{1}, {2}}},
		ua:              "/Floresta:0.7.0/",
		connectAccepted: true,
		blocks:          make(map[uint32]*engine.Block),
		callbacks:       make(map[int]func(engine.BlockEvent)),
	}
}

func (m *mockEngine) read() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readErr
}

func (m *mockEngine) InIBD(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ibd, m.readErr
}

func (m *mockEngine) HeaderHeight(context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header, m.readErr
}

func (m *mockEngine) ValidatedHeight(context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validated, m.readErr
}

func (m *mockEngine) AccumulatorDigest(context.Context) (engine.Accumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acc, m.readErr
}

func (m *mockEngine) UserAgent(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ua, m.readErr
}

func (m *mockEngine) PeerList(context.Context) ([]engine.RawPeer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.RawPeer(nil), m.peers...), m.readErr
}

func (m *mockEngine) ConnectPeer(_ context.Context, addr string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return false, m.connectErr
	}
	m.connected = append(m.connected, addr)
	return m.connectAccepted, nil
}

func (m *mockEngine) DisconnectPeer(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = append(m.disconnected, addr)
	return nil
}

func (m *mockEngine) BlockHashAt(_ context.Context, height uint32) (string, error) {
	if err := m.read(); err != nil {
		return "", err
	}
	return blockHash(height), nil
}

func (m *mockEngine) GetBlock(_ context.Context, hash string) (*engine.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.Hash == hash {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockEngine) OnBlock(fn func(engine.BlockEvent)) func() {
	m.mu.Lock()
	id := m.nextCallback
	m.nextCallback++
	m.callbacks[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.callbacks, id)
		m.mu.Unlock()
	}
}

func (m *mockEngine) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalls++
	return m.shutdownErr
}

func (m *mockEngine) shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdownCalls
}

func (m *mockEngine) callbackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callbacks)
}

// announce delivers ev to every registered block callback.
func (m *mockEngine) announce(ev engine.BlockEvent) {
	m.mu.Lock()
	fns := make([]func(engine.BlockEvent), 0, len(m.callbacks))
	for _, fn := range m.callbacks {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func blockHash(height uint32) string {
	return fmt.Sprintf("hash-%d", height)
}

// mockLauncher hands out a fresh mockEngine per launch.
type mockLauncher struct {
	mu      sync.Mutex
	err     error
	engines []*mockEngine
	setup   func(*mockEngine)
}

func (l *mockLauncher) Launch(context.Context, engine.NodeConfig) (engine.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	eng := newMockEngine()
	if l.setup != nil {
		l.setup(eng)
	}
	l.engines = append(l.engines, eng)
	return eng, nil
}

func (l *mockLauncher) launched() []*mockEngine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*mockEngine(nil), l.engines...)
}

// fakeClock advances by step on every read.
type fakeClock struct {
	now  atomic.Int64
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	c := &fakeClock{step: step}
	c.now.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now.Add(int64(c.step))).UTC()
}

var errBoom = errors.New("boom")

func newTestController(t *testing.T, l *mockLauncher) *Controller {
	t.Helper()
	return NewController(Options{
		Launcher:  l,
		Clipboard: func(string) error { return nil },
		Now:       newFakeClock(time.Second).Now,
	})
}

// execute runs task synchronously the way the runtime would, returning
// immediate messages followed by Cmd results in order.
func execute(task Task) []Message {
	out := task.Messages()
	for _, cmd := range task.Cmds() {
		out = append(out, cmd(context.Background()))
	}
	return out
}

// drive feeds msg and every resulting message through c until the queue
// is empty, returning every message processed.
func drive(c *Controller, msg Message) []Message {
	queue := []Message{msg}
	var seen []Message
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		seen = append(seen, m)
		queue = append(queue, execute(c.Update(m))...)
	}
	return seen
}

// startRunning drives a controller to Running.
func startRunning(t *testing.T, c *Controller) {
	t.Helper()
	drive(c, Start{})
	if c.Status().Kind != StatusRunning {
		t.Fatalf("Expected RUNNING after start, got %v (last error %v)", c.Status(), c.LastError())
	}
}

func findError(msgs []Message) (Error, bool) {
	for _, m := range msgs {
		if e, ok := m.(Error); ok {
			return e, true
		}
	}
	return Error{}, false
}
