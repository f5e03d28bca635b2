package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/util"
)

// DefaultUserAgent is reported when no override is configured.
const DefaultUserAgent = "/Floresta/"

// ErrProcessExited is returned when florestad dies before its RPC server
// comes up.
var ErrProcessExited = errors.New("florestad exited")

// FlorestaLauncher starts florestad as a child process.
type FlorestaLauncher struct {
	// Command builds the child process; defaults to exec.Command.
	Command func(name string, args ...string) *exec.Cmd
	// Retry controls how the RPC port is awaited.
	Retry *util.RetryConfig
}

// NewFlorestaLauncher returns a launcher using exec.Command.
func NewFlorestaLauncher() *FlorestaLauncher {
	return &FlorestaLauncher{Command: exec.Command}
}

// Args derives florestad's command line from cfg.
func Args(cfg NodeConfig) []string {
	args := []string{"--network", cfg.Network.String()}
	if cfg.DataDir != "" {
		args = append(args, "--data-dir", cfg.DataDir)
	}
	if cfg.RPCAddress != "" {
		args = append(args, "--rpc-address", cfg.RPCAddress)
	}
	if cfg.AssumeUtreexo {
		args = append(args, "--assume-utreexo")
	}
	if cfg.FraudProofs {
		args = append(args, "--pow-fraud-proofs")
	}
	if !cfg.Backfill {
		args = append(args, "--no-backfill")
	}
	if cfg.AllowV1Fallback {
		args = append(args, "--allow-v1-fallback")
	}
	if cfg.DisableDNSSeeds {
		args = append(args, "--disable-dns-seeds")
	}
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent", cfg.UserAgent)
	}
	if cfg.FixedPeer != "" {
		args = append(args, "--connect", cfg.FixedPeer)
	}
	if cfg.Proxy != "" {
		args = append(args, "--proxy", cfg.Proxy)
	}
	if cfg.MaxBanScore > 0 {
		args = append(args, "--max-banscore", strconv.FormatUint(uint64(cfg.MaxBanScore), 10))
	}
	if cfg.MaxOutbound > 0 {
		args = append(args, "--max-outbound", strconv.FormatUint(uint64(cfg.MaxOutbound), 10))
	}
	if cfg.MaxInflight > 0 {
		args = append(args, "--max-inflight", strconv.FormatUint(uint64(cfg.MaxInflight), 10))
	}
	return append(args, "--log-to-stdout")
}

// Launch starts florestad and blocks until its RPC server answers or the
// startup timeout elapses. On failure the child is killed.
func (l *FlorestaLauncher) Launch(ctx context.Context, cfg NodeConfig) (Engine, error) {
	command := l.Command
	if command == nil {
		command = exec.Command
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "florestad"
	}

	cmd := command(binary, Args(cfg)...)
	proc, err := startProcess(cmd)
	if err != nil {
		return nil, err
	}

	client, err := DialClient(ctx, cfg.RPCAddress)
	if err != nil {
		proc.kill()
		return nil, err
	}

	waitCtx := ctx
	if cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.StartupTimeout)
		defer cancel()
	}

	retry := util.DefaultRetryConfig()
	if l.Retry != nil {
		c := *l.Retry
		retry = &c
	}
	if retry.RetryIf == nil {
		retry.RetryIf = util.DefaultRetryIf()
	}
	res := util.Retry(waitCtx, retry, func() error {
		select {
		case <-proc.exited:
			return util.MarkNonRetryable(fmt.Errorf("%w: %v", ErrProcessExited, proc.err))
		default:
		}
		return client.Ping(waitCtx)
	})
	if res.LastError != nil {
		client.Close()
		proc.kill()
		return nil, fmt.Errorf("wait for florestad rpc after %d attempts: %w", res.Attempts, res.LastError)
	}

	logging.Info("florestad ready",
		logging.Component("engine"),
		logging.Network(cfg.Network.String()),
		"rpc", cfg.RPCAddress,
		"attempts", res.Attempts,
	)
	return newNode(client, proc, cfg), nil
}

// AttachLauncher connects to a florestad that is already running. Shutdown
// stops the remote node over RPC.
type AttachLauncher struct{}

func (AttachLauncher) Launch(ctx context.Context, cfg NodeConfig) (Engine, error) {
	client, err := DialClient(ctx, cfg.RPCAddress)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return newNode(client, nil, cfg), nil
}

// process tracks a florestad child.
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

func startProcess(cmd *exec.Cmd) (*process, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	p := &process{cmd: cmd, exited: make(chan struct{})}
	logger := logging.With(logging.Component("florestad"))

	var pipes sync.WaitGroup
	pipes.Add(2)
	util.SafeGoWithName("florestad-stdout", func() {
		defer pipes.Done()
		forwardLines(stdout, func(line string) { logger.Info(line) })
	})
	util.SafeGoWithName("florestad-stderr", func() {
		defer pipes.Done()
		forwardLines(stderr, func(line string) { logger.Warn(line) })
	})
	util.SafeGoWithName("florestad-wait", func() {
		// Wait must not run before the pipes are drained.
		pipes.Wait()
		p.err = cmd.Wait()
		close(p.exited)
	})
	return p, nil
}

func forwardLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			emit(line)
		}
	}
}

// wait blocks until the child exits or ctx is done.
func (p *process) wait(ctx context.Context) error {
	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *process) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.exited
}

// Node is a running florestad reachable over JSON-RPC.
type Node struct {
	*Client
	proc      *process
	watcher   *blockWatcher
	userAgent string

	shutdownOnce sync.Once
	shutdownErr  error
}

func newNode(client *Client, proc *process, cfg NodeConfig) *Node {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	n := &Node{
		Client:    client,
		proc:      proc,
		userAgent: ua,
	}
	n.watcher = newBlockWatcher(client.tip, cfg.BlockPollInterval)
	n.watcher.start()
	return n
}

func (n *Node) UserAgent(ctx context.Context) (string, error) {
	return n.userAgent, ctx.Err()
}

func (n *Node) OnBlock(fn func(BlockEvent)) func() {
	return n.watcher.register(fn)
}

// Shutdown stops block polling, asks the node to exit and waits for the
// child. If ctx ends first the child is killed.
func (n *Node) Shutdown(ctx context.Context) error {
	n.shutdownOnce.Do(func() {
		n.shutdownErr = n.shutdown(ctx)
	})
	return n.shutdownErr
}

func (n *Node) shutdown(ctx context.Context) error {
	n.watcher.stop()
	defer n.Client.Close()

	stopErr := n.Client.Stop(ctx)
	if n.proc == nil {
		return stopErr
	}
	if stopErr != nil {
		logging.Warn("rpc stop failed, killing florestad", logging.Component("engine"), logging.Err(stopErr))
		n.proc.kill()
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := n.proc.wait(waitCtx); err != nil {
		logging.Warn("florestad did not exit in time, killing", logging.Component("engine"), logging.Err(err))
		n.proc.kill()
	}
	return nil
}
