package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/metrics"
	"github.com/salahayoub/bonsai/pkg/node"
	"github.com/salahayoub/bonsai/pkg/types"
)

// StatusHandler serves the latest published status as JSON.
type StatusHandler struct {
	current atomic.Pointer[types.StatusResponse]
}

// NewStatusHandler creates a handler reporting an inactive node until the
// first Publish.
func NewStatusHandler(network string) *StatusHandler {
	h := &StatusHandler{}
	h.current.Store(&types.StatusResponse{
		Status:  node.StatusInactive.String(),
		Network: network,
		Peers:   []types.PeerSummary{},
	})
	return h
}

// Publish replaces the served status. Safe for concurrent use.
func (h *StatusHandler) Publish(s *types.StatusResponse) {
	h.current.Store(s)
}

// ServeHTTP handles GET /status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.current.Load()); err != nil {
		logging.Warn("failed to encode status", logging.Component("http"), logging.Err(err))
	}
}

// HealthzHandler answers 200 while the node is running and 503 otherwise.
func HealthzHandler(h *StatusHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := h.current.Load().Status
		if st != node.StatusRunning.String() {
			http.Error(w, st, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
}

// StatusFromController builds the /status payload. It must run on the
// controller's loop goroutine.
func StatusFromController(c *node.Controller, network string) *types.StatusResponse {
	resp := &types.StatusResponse{
		Status:        c.Status().Kind.String(),
		Network:       network,
		UptimeSeconds: c.Uptime().Seconds(),
		LogVersion:    c.LogVersion(),
		Peers:         []types.PeerSummary{},
	}
	if err := c.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	if b := c.LastBlock(); b != nil {
		resp.LastBlock = &types.BlockSummary{Height: b.Height, Hash: b.Hash}
	}

	s := c.Statistics()
	if s == nil {
		return resp
	}
	resp.InIBD = s.InIBD
	resp.HeaderHeight = s.HeaderHeight
	resp.ValidatedHeight = s.ValidatedHeight
	resp.SyncProgress = s.SyncProgress()
	resp.UserAgent = s.UserAgent

	roots := make([]string, len(s.Accumulator.Roots))
	for i, r := range s.Accumulator.Roots {
		roots[i] = hex.EncodeToString(r[:])
	}
	resp.Accumulator = &types.AccumulatorInfo{
		Leaves:    s.Accumulator.Leaves,
		Roots:     roots,
		SizeBytes: s.AccumulatorSize(),
		Export:    s.AccumulatorExport,
	}

	for _, p := range s.Peers {
		resp.Peers = append(resp.Peers, types.PeerSummary{
			Address:        p.Address,
			Implementation: p.Impl.String(),
			UserAgent:      p.UserAgent,
			Direction:      p.Direction,
			Transport:      p.Transport,
			Services:       fmt.Sprintf("0x%x", p.Services),
			InitialHeight:  p.InitialHeight,
		})
	}
	return resp
}

// exporter is the optional HTTP endpoint set.
type exporter struct {
	status    *StatusHandler
	collector *metrics.NodeCollector
	server    *http.Server
	listener  net.Listener
}

// newExporter binds addr and starts serving /status, /metrics and /healthz.
func newExporter(addr, network string) (*exporter, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	e := &exporter{
		status:    NewStatusHandler(network),
		collector: metrics.NewNodeCollector(),
		listener:  listener,
	}
	mux := http.NewServeMux()
	mux.Handle("/status", e.status)
	mux.Handle("/metrics", e.collector.Handler())
	mux.Handle("/healthz", HealthzHandler(e.status))
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("http exporter stopped", logging.Component("http"), logging.Err(err))
		}
	}()
	logging.Info("http exporter listening", logging.Component("http"), "addr", listener.Addr().String())
	return e, nil
}

// Observer publishes controller state after every update.
func (e *exporter) Observer(c *node.Controller, network string) node.Observer {
	return func(msg node.Message) {
		e.collector.Observe(c, msg)
		if _, tick := msg.(node.Tick); tick {
			return
		}
		e.status.Publish(StatusFromController(c, network))
	}
}

// Addr is the bound listen address.
func (e *exporter) Addr() string {
	return e.listener.Addr().String()
}

func (e *exporter) Close(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
