package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/node"
)

type stubEngine struct{}

func (stubEngine) InIBD(context.Context) (bool, error)              { return true, nil }
func (stubEngine) HeaderHeight(context.Context) (uint32, error)     { return 200, nil }
func (stubEngine) ValidatedHeight(context.Context) (uint32, error)  { return 150, nil }
func (stubEngine) UserAgent(context.Context) (string, error)        { return "/Floresta:0.7.0/", nil }
func (stubEngine) DisconnectPeer(context.Context, string) error     { return nil }
func (stubEngine) ConnectPeer(context.Context, string) (bool, error) { return true, nil }
func (stubEngine) BlockHashAt(context.Context, uint32) (string, error) {
	return "", errors.New("unused")
}
func (stubEngine) GetBlock(context.Context, string) (*engine.Block, error) { return nil, nil }
func (stubEngine) OnBlock(func(engine.BlockEvent)) func()                 { return func() {} }
func (stubEngine) Shutdown(context.Context) error                         { return nil }

func (stubEngine) AccumulatorDigest(context.Context) (engine.Accumulator, error) {
	return engine.Accumulator{Leaves: 42, Roots: make([][32]byte, 3)}, nil
}

func (stubEngine) PeerList(context.Context) ([]engine.RawPeer, error) {
	return []engine.RawPeer{
		{Address: "1.2.3.4:8333", UserAgent: "/Satoshi:27.0.0/", Kind: "outbound"},
		{Address: "5.6.7.8:8333", UserAgent: "/Satoshi:27.0.0/", Kind: "outbound"},
		{Address: "9.9.9.9:8333", UserAgent: "/utreexod:0.2.0/", Kind: "inbound"},
	}, nil
}

type stubLauncher struct{}

func (stubLauncher) Launch(context.Context, engine.NodeConfig) (engine.Engine, error) {
	return stubEngine{}, nil
}

// drive processes msg and everything it produces, observing each step.
func drive(ctrl *node.Controller, col *NodeCollector, msg node.Message) {
	queue := []node.Message{msg}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		task := ctrl.Update(m)
		col.Observe(ctrl, m)
		queue = append(queue, task.Messages()...)
		for _, cmd := range task.Cmds() {
			queue = append(queue, cmd(context.Background()))
		}
	}
}

// TestNodeCollector_Inactive verifies the state before the node starts.
func TestNodeCollector_Inactive(t *testing.T) {
	col := NewNodeCollector()
	ctrl := node.NewController(node.Options{Launcher: stubLauncher{}})

	col.Observe(ctrl, node.Tick{})

	if got := testutil.ToFloat64(col.status.WithLabelValues("INACTIVE")); got != 1 {
		t.Errorf("Expected INACTIVE=1, got %v", got)
	}
	if got := testutil.ToFloat64(col.status.WithLabelValues("RUNNING")); got != 0 {
		t.Errorf("Expected RUNNING=0, got %v", got)
	}
	if got := testutil.ToFloat64(col.peerCount); got != 0 {
		t.Errorf("Expected no peers, got %v", got)
	}
}

// TestNodeCollector_Running verifies gauges after a statistics fetch.
func TestNodeCollector_Running(t *testing.T) {
	col := NewNodeCollector()
	ctrl := node.NewController(node.Options{Launcher: stubLauncher{}})

	drive(ctrl, col, node.Start{})
	if ctrl.Status().Kind != node.StatusRunning {
		t.Fatalf("Expected RUNNING, got %v", ctrl.Status())
	}

	checks := map[string]struct {
		got, want float64
	}{
		"status":           {testutil.ToFloat64(col.status.WithLabelValues("RUNNING")), 1},
		"header_height":    {testutil.ToFloat64(col.headerHeight), 200},
		"validated_height": {testutil.ToFloat64(col.validatedHeight), 150},
		"in_ibd":           {testutil.ToFloat64(col.inIBD), 1},
		"peer_count":       {testutil.ToFloat64(col.peerCount), 3},
		"core_peers":       {testutil.ToFloat64(col.peersByImpl.WithLabelValues("Bitcoin Core")), 2},
		"leaves":           {testutil.ToFloat64(col.accumulatorLeaves), 42},
		"roots":            {testutil.ToFloat64(col.accumulatorRoots), 3},
	}
	for name, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v, got %v", name, c.want, c.got)
		}
	}
}

// TestNodeCollector_Counters verifies error and block counters.
func TestNodeCollector_Counters(t *testing.T) {
	col := NewNodeCollector()
	ctrl := node.NewController(node.Options{Launcher: stubLauncher{}})

	col.Observe(ctrl, node.Error{Op: node.OpConnect, Kind: node.ErrorInput, Err: errors.New("bad")})
	col.Observe(ctrl, node.Error{Op: node.OpConnect, Kind: node.ErrorInput, Err: errors.New("bad")})
	col.Observe(ctrl, node.BlockObserved{Event: engine.BlockEvent{Height: 10, Hash: "aa"}})

	if got := testutil.ToFloat64(col.errors.WithLabelValues(node.ErrorInput.String())); got != 2 {
		t.Errorf("Expected 2 input errors, got %v", got)
	}
	if got := testutil.ToFloat64(col.blocksObserved); got != 1 {
		t.Errorf("Expected 1 observed block, got %v", got)
	}
}

// TestNodeCollector_Handler verifies the exposition endpoint.
func TestNodeCollector_Handler(t *testing.T) {
	col := NewNodeCollector()
	ctrl := node.NewController(node.Options{Launcher: stubLauncher{}})
	col.Observe(ctrl, node.Tick{})

	rec := httptest.NewRecorder()
	col.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `bonsai_node_status{status="INACTIVE"} 1`) {
		t.Errorf("Expected node status in output, got:\n%s", body)
	}
}
