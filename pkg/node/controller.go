package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/util"
)

const (
	DefaultTickInterval       = 300 * time.Millisecond
	DefaultStatisticsInterval = time.Second
	DefaultOperationTimeout   = 30 * time.Second
	DefaultStopTimeout        = time.Minute
)

// Options configures a Controller.
type Options struct {
	Launcher engine.Launcher
	// Resolve produces the node configuration at Start. It runs off-loop.
	Resolve func(ctx context.Context) (engine.NodeConfig, error)
	Capture *logging.Capture

	// Clipboard defaults to the system clipboard.
	Clipboard  func(text string) error
	Classifier *Classifier

	TickInterval       time.Duration
	StatisticsInterval time.Duration
	OperationTimeout   time.Duration
	StopTimeout        time.Duration

	// Now must be safe for concurrent use. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Clipboard == nil {
		o.Clipboard = clipboard.WriteAll
	}
	if o.Classifier == nil {
		o.Classifier = defaultClassifier
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.StatisticsInterval <= 0 {
		o.StatisticsInterval = DefaultStatisticsInterval
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = DefaultOperationTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Resolve == nil {
		o.Resolve = func(context.Context) (engine.NodeConfig, error) {
			return engine.DefaultNodeConfig(engine.Signet), nil
		}
	}
}

// Controller is the node life cycle state machine. All state is owned by
// the goroutine calling Update; accessors must be called from that
// goroutine too (runtime observers run there).
type Controller struct {
	opts Options

	status     Status
	handle     *Handle
	generation uint64
	stats      *NodeStatistics
	startTime  time.Time
	lastError  error

	pollingActive bool
	statsInFlight bool
	stopping      bool
	restarting    bool
	closing       bool
	finished      bool

	peerInput      string
	blockInput     string
	explorerHeight uint32
	hasExplorer    bool
	block          *engine.Block
	blockPending   bool
	lastBlock      *engine.BlockEvent
}

// NewController creates a controller in the Inactive state.
func NewController(opts Options) *Controller {
	opts.setDefaults()
	return &Controller{opts: opts}
}

// Update applies msg and returns the follow-up work.
func (c *Controller) Update(msg Message) Task {
	if _, ok := msg.(Tick); !ok {
		logging.Debug("update", logging.Component("node"), "msg", msg.String(), "status", c.status.String())
	}

	switch m := msg.(type) {
	case Start:
		return c.start(m)
	case Running:
		return c.running(m.Handle)
	case Shutdown:
		return c.shutdown(false)
	case Restart:
		return c.shutdown(true)
	case ShuttingDown:
		if c.status.Kind == StatusShuttingDown {
			c.pollingActive = false
			c.clearPeers()
		}
	case ShutdownComplete:
		return c.shutdownComplete()
	case StopFailed:
		return c.stopFailed(m)

	case Tick:
	case GetStatistics:
		return c.getStatistics()
	case Statistics:
		c.applyStatistics(m)
	case ClearLogs:
		if c.opts.Capture != nil {
			c.opts.Capture.Clear()
		}

	case AddPeerInputChanged:
		c.peerInput = m.Input
	case AddPeer:
		return c.addPeer()
	case PeerConnected:
		if m.Accepted {
			c.peerInput = ""
			logging.Info("peer connection requested", logging.Component("node"), logging.Peer(m.Addr))
		} else {
			logging.Warn("peer connection rejected", logging.Component("node"), logging.Peer(m.Addr))
		}
		return Done(GetStatistics{})
	case DisconnectPeer:
		return c.disconnectPeer(m.Addr)
	case PeerDisconnected:
		logging.Info("peer disconnected", logging.Component("node"), logging.Peer(m.Addr))
		return Done(GetStatistics{})

	case BlockHeightInputChanged:
		c.blockInput = m.Input
	case SubmitBlockHeight:
		h, err := ParseBlockHeight(c.blockInput)
		if err != nil {
			return Done(Error{Op: OpBlock, Kind: ErrorInput, Err: err})
		}
		return Done(FetchBlock{Height: h})
	case FetchBlock:
		return c.fetchBlock(m.Height)
	case BlockFetched:
		if c.hasExplorer && m.Height == c.explorerHeight {
			c.block = m.Block
			c.blockPending = false
		}
	case BlockObserved:
		ev := m.Event
		c.lastBlock = &ev
		logging.Info("new block", logging.Component("node"), logging.Height(ev.Height), "hash", ev.Hash)
		return Done(GetStatistics{})

	case CopyAccumulatorData:
		return c.copyAccumulator()
	case AccumulatorCopied:
		logging.Info("accumulator data copied to clipboard", logging.Component("node"))

	case CloseRequested:
		return c.closeRequested()
	case Quit:
		c.finished = true
		c.pollingActive = false
	case Error:
		return c.handleError(m)
	}
	return None()
}

func (c *Controller) start(m Start) Task {
	switch {
	case m.afterStop && c.restarting && c.status.Kind == StatusShuttingDown:
		c.restarting = false
		c.stopping = false
		if c.closing {
			return Done(Quit{})
		}
	case c.status.CanStart():
	default:
		logging.Debug("start ignored", logging.Component("node"), "status", c.status.String())
		return None()
	}

	c.status = Status{Kind: StatusStarting}
	c.pollingActive = false
	c.lastError = nil
	logging.Info("starting node", logging.Component("node"))

	launcher, resolve := c.opts.Launcher, c.opts.Resolve
	return Perform(func(ctx context.Context) Message {
		cfg, err := resolve(ctx)
		if err != nil {
			return Error{Op: OpLaunch, Kind: ErrorLaunch, Err: fmt.Errorf("resolve config: %w", err)}
		}
		logging.Info("launching node", logging.Component("node"), logging.Network(cfg.Network.String()))
		eng, err := launcher.Launch(ctx, cfg)
		if err != nil {
			return Error{Op: OpLaunch, Kind: ErrorLaunch, Err: err}
		}
		return Running{Handle: NewHandle(eng)}
	})
}

func (c *Controller) running(h *Handle) Task {
	c.handle = h
	c.status = Status{Kind: StatusRunning}
	c.pollingActive = true
	c.statsInFlight = false
	c.stats = nil
	c.startTime = c.opts.Now()
	c.generation++
	c.lastError = nil
	logging.Info("node running", logging.Component("node"), "generation", c.generation)

	if c.closing {
		return c.closeRequested()
	}
	return Done(GetStatistics{})
}

// shutdown handles Shutdown and Restart. Both are accepted while Running,
// and while ShuttingDown with no stop in flight so a failed stop can be
// retried.
func (c *Controller) shutdown(restart bool) Task {
	retry := c.status.Kind == StatusShuttingDown && !c.stopping
	if c.status.Kind != StatusRunning && !retry {
		logging.Debug("shutdown ignored", logging.Component("node"), "status", c.status.String(), "restart", restart)
		return None()
	}

	c.status = Status{Kind: StatusShuttingDown}
	c.pollingActive = false
	c.startTime = time.Time{}
	c.restarting = restart

	var next Message = ShutdownComplete{}
	if restart {
		next = Start{afterStop: true}
	}

	h := c.handle
	c.handle = nil
	if h == nil {
		return Batch(Done(ShuttingDown{}), Done(next))
	}

	c.stopping = true
	logging.Info("stopping node", logging.Component("node"), "restart", restart)
	return Batch(Done(ShuttingDown{}), Perform(c.stopCmd(h, next)))
}

func (c *Controller) stopCmd(h *Handle, next Message) Cmd {
	timeout := c.opts.StopTimeout
	return func(ctx context.Context) Message {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := Stop(ctx, h); err != nil {
			var shared *SharedHandleError
			if errors.As(err, &shared) {
				return StopFailed{Handle: h, Err: err}
			}
			return Error{Op: OpStop, Kind: ErrorShutdown, Err: err}
		}
		return next
	}
}

func (c *Controller) shutdownComplete() Task {
	c.status = Status{Kind: StatusInactive}
	c.pollingActive = false
	c.statsInFlight = false
	c.stopping = false
	c.restarting = false
	c.clearPeers()
	logging.Info("node stopped", logging.Component("node"))

	if c.closing {
		return Done(Quit{})
	}
	return None()
}

// stopFailed puts the handle back so the user can retry, and surfaces the
// failure as a shutdown error.
func (c *Controller) stopFailed(m StopFailed) Task {
	c.handle = m.Handle
	c.stopping = false
	c.restarting = false
	if c.closing {
		logging.Warn("stop failed during exit, retrying", logging.Component("node"), logging.Err(m.Err))
		return c.closeRequested()
	}
	return Done(Error{Op: OpStop, Kind: ErrorShutdown, Err: m.Err})
}

func (c *Controller) getStatistics() Task {
	if !c.pollingActive || c.handle == nil || c.status.Kind != StatusRunning {
		return None()
	}
	if c.statsInFlight {
		logging.Debug("statistics fetch in flight, skipping", logging.Component("node"))
		return None()
	}
	lease, err := c.handle.Acquire()
	if err != nil {
		return Done(Error{Op: OpStatistics, Kind: ErrorOperation, Err: err, Generation: c.generation})
	}
	c.statsInFlight = true

	gen, start := c.generation, c.startTime
	now, classifier, timeout := c.opts.Now, c.opts.Classifier, c.opts.OperationTimeout
	return Perform(func(ctx context.Context) Message {
		defer lease.Release()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		stats, err := FetchStatistics(ctx, lease.Engine(), classifier, start, now())
		if err != nil {
			return Error{Op: OpStatistics, Kind: ErrorOperation, Err: err, Generation: gen}
		}
		return Statistics{Stats: stats, Generation: gen}
	})
}

// applyStatistics installs a snapshot unless it belongs to an earlier run
// or the node is no longer running.
func (c *Controller) applyStatistics(m Statistics) {
	if m.Generation != c.generation {
		logging.Debug("discarding stale statistics", logging.Component("node"), "generation", m.Generation)
		return
	}
	c.statsInFlight = false
	if c.status.Kind != StatusRunning {
		logging.Debug("discarding statistics after shutdown", logging.Component("node"))
		return
	}
	c.stats = m.Stats
}

func (c *Controller) closeRequested() Task {
	if c.finished {
		return None()
	}
	c.closing = true

	switch {
	case c.status.Kind == StatusStarting:
		logging.Info("waiting for node launch before exit", logging.Component("node"))
		return None()
	case c.stopping:
		return None()
	case c.handle == nil:
		return Done(Quit{})
	}

	c.status = Status{Kind: StatusShuttingDown}
	c.pollingActive = false
	c.startTime = time.Time{}
	h := c.handle
	c.handle = nil
	c.stopping = true
	logging.Info("stopping node before exit", logging.Component("node"))

	timeout := c.opts.StopTimeout
	return Batch(Done(ShuttingDown{}), Perform(func(ctx context.Context) Message {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// In-flight fetches release their leases quickly; wait for them
		// rather than leaving the node running after exit.
		res := util.Retry(ctx, exitRetry(), func() error { return Stop(ctx, h) })
		if res.LastError != nil {
			logging.Error("stop on exit failed", logging.Component("node"), logging.Err(res.LastError), "attempts", res.Attempts)
		}
		return Quit{}
	}))
}

func exitRetry() *util.RetryConfig {
	return &util.RetryConfig{
		MaxRetries: 50,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
		Multiplier: 2,
		RetryIf: func(err error) bool {
			var shared *SharedHandleError
			return errors.As(err, &shared)
		},
	}
}

func (c *Controller) handleError(m Error) Task {
	err := m.Err
	if err == nil {
		err = errors.New("unknown error")
	}
	c.lastError = fmt.Errorf("%s: %w", m.Op, err)

	switch m.Kind {
	case ErrorLaunch:
		logging.Error("node launch failed", logging.Component("node"), logging.Err(err))
		c.status = Status{Kind: StatusFailed, Err: err}
		c.pollingActive = false
		c.handle = nil
		if c.closing {
			return Done(Quit{})
		}
	case ErrorShutdown:
		logging.Error("node shutdown failed", logging.Component("node"), logging.Err(err))
		c.stopping = false
		c.restarting = false
		if c.closing {
			return Done(Quit{})
		}
	case ErrorInput:
		logging.Warn("invalid input", logging.Component("node"), "op", m.Op, logging.Err(err))
	default:
		switch m.Op {
		case OpStatistics:
			if m.Generation == c.generation {
				c.statsInFlight = false
			}
		case OpBlock:
			c.blockPending = false
		}
		logging.Warn("operation failed", logging.Component("node"), "op", m.Op, logging.Err(err))
	}
	return None()
}

func (c *Controller) clearPeers() {
	if c.stats != nil && len(c.stats.Peers) > 0 {
		c.stats = c.stats.WithoutPeers()
	}
}

// Subscriptions returns the message sources wanted in the current state.
// The tick runs in every state so the dashboard redraws while Starting and
// ShuttingDown; it performs no I/O.
func (c *Controller) Subscriptions() []Subscription {
	if c.finished {
		return nil
	}
	subs := []Subscription{Every("tick", c.opts.TickInterval, Tick{})}
	if !c.pollingActive {
		return subs
	}
	subs = append(subs, Every("statistics", c.opts.StatisticsInterval, GetStatistics{}))
	if c.handle != nil {
		subs = append(subs, c.blockSubscription())
	}
	return subs
}

// blockSubscription forwards new tips while it holds a lease on the handle.
// The ID changes with every run so a restart re-registers.
func (c *Controller) blockSubscription() Subscription {
	h := c.handle
	return Stream(fmt.Sprintf("blocks-%d", c.generation), func(ctx context.Context, send func(Message)) {
		lease, err := h.Acquire()
		if err != nil {
			return
		}
		defer lease.Release()

		unregister := lease.Engine().OnBlock(func(ev engine.BlockEvent) {
			send(BlockObserved{Event: ev})
		})
		defer unregister()
		<-ctx.Done()
	})
}

func (c *Controller) Status() Status                { return c.status }
func (c *Controller) Statistics() *NodeStatistics   { return c.stats }
func (c *Controller) Handle() *Handle               { return c.handle }
func (c *Controller) HasHandle() bool               { return c.handle != nil }
func (c *Controller) Generation() uint64            { return c.generation }
func (c *Controller) PollingActive() bool           { return c.pollingActive }
func (c *Controller) StatisticsInFlight() bool      { return c.statsInFlight }
func (c *Controller) LastError() error              { return c.lastError }
func (c *Controller) PeerInput() string             { return c.peerInput }
func (c *Controller) BlockInput() string            { return c.blockInput }
func (c *Controller) Block() *engine.Block          { return c.block }
func (c *Controller) BlockPending() bool            { return c.blockPending }
func (c *Controller) LastBlock() *engine.BlockEvent { return c.lastBlock }
func (c *Controller) Finished() bool                { return c.finished }
func (c *Controller) StartTime() time.Time          { return c.startTime }

// ExplorerHeight is the height last requested in the block explorer.
func (c *Controller) ExplorerHeight() (uint32, bool) {
	return c.explorerHeight, c.hasExplorer
}

// Logs returns the captured log lines, oldest first.
func (c *Controller) Logs() []string {
	if c.opts.Capture == nil {
		return nil
	}
	return c.opts.Capture.Snapshot()
}

// LogVersion changes whenever the log capture does.
func (c *Controller) LogVersion() uint64 {
	if c.opts.Capture == nil {
		return 0
	}
	return c.opts.Capture.Version()
}

// Uptime is zero unless the node is running.
func (c *Controller) Uptime() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return c.opts.Now().Sub(c.startTime)
}
