package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/node"
)

func testModel() *Model {
	m := NewModel("signet")
	m.Width, m.Height = 120, 40
	acc := engine.Accumulator{Leaves: 1234567, Roots: [][32]byte{{0xab}, {0x01}}}
	m.Snapshot = &Snapshot{
		Status: node.Status{Kind: node.StatusRunning},
		Stats: &node.NodeStatistics{
			InIBD:             true,
			HeaderHeight:      200000,
			ValidatedHeight:   150000,
			Accumulator:       acc,
			AccumulatorExport: node.ExportAccumulator(acc),
			UserAgent:         "/Floresta:0.7.0/",
			Uptime:            65 * time.Second,
			Peers: []node.PeerInformation{
				{Address: "1.2.3.4:8333", Impl: node.ImplCore, Direction: "outbound", Transport: "v2", UserAgent: "/Satoshi:27.0.0/", InitialHeight: 150000},
			},
		},
		LastBlock:  &engine.BlockEvent{Height: 150000, Hash: strings.Repeat("0", 56) + "deadbeef"},
		Logs:       []string{"[10:00:00] INFO one", "[10:00:01] INFO two"},
		LogVersion: 2,
	}
	return m
}

// TestOverviewPanel_Running checks the running summary.
func TestOverviewPanel_Running(t *testing.T) {
	out := NewOverviewPanel().Render(testModel(), 5)

	for _, want := range []string{
		"RUNNING",
		"signet",
		"150,000 / 200,000 headers",
		"75.00%",
		"(IBD)",
		"00h 01m 05s",
		"/Floresta:0.7.0/",
		"#150,000",
		"INFO two",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected overview to contain %q, got:\n%s", want, out)
		}
	}
}

// TestOverviewPanel_Inactive checks the hint and last error.
func TestOverviewPanel_Inactive(t *testing.T) {
	m := NewModel("regtest")
	m.Snapshot = &Snapshot{
		Status:    node.Status{Kind: node.StatusFailed, Err: errors.New("boom")},
		LastError: errors.New("launch: boom"),
	}
	out := NewOverviewPanel().Render(m, 5)

	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "Press s to start") {
		t.Errorf("Expected failed status with start hint, got:\n%s", out)
	}
	if !strings.Contains(out, "Last error:  launch: boom") {
		t.Errorf("Expected last error, got:\n%s", out)
	}
}

// TestP2PPanel checks the peer table and selection marker.
func TestP2PPanel(t *testing.T) {
	m := testModel()
	m.PeerDraft = "5.6.7.8:83"
	out := NewP2PPanel().Render(m)

	if !strings.Contains(out, "Add peer: 5.6.7.8:83_") {
		t.Errorf("Expected draft in output, got:\n%s", out)
	}
	if !strings.Contains(out, "> 1.2.3.4:8333") || !strings.Contains(out, "Bitcoin Core") {
		t.Errorf("Expected selected peer row, got:\n%s", out)
	}

	m.Snapshot.Stats = nil
	if out := NewP2PPanel().Render(m); !strings.Contains(out, "No connected peers") {
		t.Errorf("Expected empty message, got:\n%s", out)
	}
}

// TestBlocksPanel checks each explorer state.
func TestBlocksPanel(t *testing.T) {
	m := testModel()
	p := NewBlocksPanel()

	if out := p.Render(m, 5); !strings.Contains(out, "Enter a block height") {
		t.Errorf("Expected prompt, got:\n%s", out)
	}

	m.Snapshot.HasExplorer = true
	m.Snapshot.ExplorerHeight = 100
	m.Snapshot.BlockPending = true
	if out := p.Render(m, 5); !strings.Contains(out, "Loading block 100") {
		t.Errorf("Expected loading state, got:\n%s", out)
	}

	m.Snapshot.BlockPending = false
	if out := p.Render(m, 5); !strings.Contains(out, "Block 100 not found") {
		t.Errorf("Expected not found, got:\n%s", out)
	}

	m.Snapshot.Block = &engine.Block{
		Hash:   "00aa",
		Height: 100,
		Time:   time.Unix(1231006505, 0),
		Bits:   "1d00ffff",
		TxIDs:  []string{"t1", "t2", "t3"},
		Size:   1234,
	}
	out := p.Render(m, 2)
	for _, want := range []string{"Hash:         00aa", "2009-01-03T18:15:05Z", "1d00ffff", "Transactions: 3", "  t2", "… 1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected block view to contain %q, got:\n%s", want, out)
		}
	}
}

// TestUtreexoPanel checks the accumulator summary and QR fallback.
func TestUtreexoPanel(t *testing.T) {
	m := testModel()
	p := NewUtreexoPanel()

	out := p.Render(m, 200)
	if !strings.Contains(out, "Leaves: 1,234,567") || !strings.Contains(out, "Roots:  2 (64 bytes)") {
		t.Errorf("Expected accumulator summary, got:\n%s", out)
	}
	if !strings.Contains(out, "ab00000000") {
		t.Errorf("Expected root hashes, got:\n%s", out)
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Errorf("Expected QR code, got:\n%s", out)
	}

	if out := p.Render(m, 10); !strings.Contains(out, "too narrow") {
		t.Errorf("Expected narrow fallback, got:\n%s", out)
	}
}

// TestRenderQRCode checks the half-block rendering is rectangular.
func TestRenderQRCode(t *testing.T) {
	qr, err := RenderQRCode("BONSAI")
	if err != nil {
		t.Fatalf("RenderQRCode failed: %v", err)
	}
	lines := strings.Split(qr, "\n")
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Fatalf("Line %d has width %d, want %d", i, n, width)
		}
	}
	if len(lines) < width/2 {
		t.Errorf("Expected two modules per row, got %d rows for width %d", len(lines), width)
	}
}

// TestRenderPanelWithBorder checks the box is width columns wide.
func TestRenderPanelWithBorder(t *testing.T) {
	out := RenderPanelWithBorder("short\n"+strings.Repeat("x", 50), "Logs", true, 30)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if !strings.HasPrefix(lines[0], "╔") || !strings.Contains(lines[0], " Logs ") {
		t.Errorf("Expected focused top border with title, got %q", lines[0])
	}
	for i, l := range lines {
		if n := len([]rune(l)); n != 30 {
			t.Errorf("Line %d is %d wide, want 30: %q", i, n, l)
		}
	}

	out = RenderPanelWithBorder("a", "T", false, 30)
	if !strings.HasPrefix(out, "┌") {
		t.Errorf("Expected normal border, got %q", out)
	}
}

// TestView_Render checks the full screen layout.
func TestView_Render(t *testing.T) {
	m := testModel()
	m.Height = 20
	out := NewView(true).Render(m)
	lines := strings.Split(out, "\n")

	if len(lines) > m.Height {
		t.Errorf("Expected at most %d lines, got %d", m.Height, len(lines))
	}
	if !strings.HasPrefix(lines[0], "bonsai ● RUNNING | signet | 150,000/200,000 | peers 1") {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "[1 Overview]") {
		t.Errorf("Expected active tab, got %q", lines[1])
	}
	footer := lines[len(lines)-1]
	if strings.Contains(footer, "s: Start") || !strings.Contains(footer, "x: Stop") {
		t.Errorf("Expected running footer, got %q", footer)
	}
}

// TestView_RenderASCII checks the symbol fallback and local errors.
func TestView_RenderASCII(t *testing.T) {
	m := NewModel("signet")
	m.ErrorMessage = "cannot stop while INACTIVE"
	out := NewView(false).Render(m)

	if !strings.HasPrefix(out, "bonsai [-] INACTIVE") {
		t.Errorf("Expected ASCII header, got %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "Error: cannot stop while INACTIVE") {
		t.Errorf("Expected error line, got:\n%s", out)
	}
}

// TestFooterBar checks input panels and narrow terminals.
func TestFooterBar(t *testing.T) {
	f := NewFooterBar(100)
	if got := f.Render(PanelP2P, node.Status{}); !strings.Contains(got, "Del: Disconnect") {
		t.Errorf("Expected P2P shortcuts, got %q", got)
	}
	f.SetWidth(60)
	got := f.Render(PanelOverview, node.Status{})
	if !strings.Contains(got, "s:Start") || strings.Contains(got, "x:Stop") {
		t.Errorf("Expected abbreviated inactive shortcuts, got %q", got)
	}
}

// TestProgressBar checks clamping and colors.
func TestProgressBar(t *testing.T) {
	p := NewProgressBar(10)
	if got := p.Render(0.5); got != "[█████░░░░░] 50.00%" {
		t.Errorf("Render(0.5) = %q", got)
	}
	if got := p.Render(2); got != "[██████████] 100.00%" {
		t.Errorf("Render(2) = %q", got)
	}
	if SyncStyle(Remaining(100, 98)) != CurrentStyles.Border || SyncStyle(Remaining(1000, 10)) != CurrentStyles.Tabs || SyncStyle(Remaining(5000, 0)) != CurrentStyles.Error {
		t.Error("Unexpected sync styles")
	}
	if Remaining(5, 10) != 0 {
		t.Error("Expected no remaining when validated exceeds header")
	}
}
