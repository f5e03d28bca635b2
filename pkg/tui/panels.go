package tui

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/salahayoub/bonsai/pkg/node"
)

// OverviewPanel renders the node status summary.
type OverviewPanel struct {
	bar *ProgressBar
}

// NewOverviewPanel creates a new OverviewPanel.
func NewOverviewPanel() *OverviewPanel {
	return &OverviewPanel{bar: NewProgressBar(30)}
}

// Render outputs the overview panel content followed by the newest log
// lines that fit in logLines.
func (p *OverviewPanel) Render(m *Model, logLines int) string {
	var sb strings.Builder
	snap := m.Snapshot
	st := m.Status()

	fmt.Fprintf(&sb, "Status:      %s\n", st.Kind)
	fmt.Fprintf(&sb, "Network:     %s\n", m.Network)

	if snap != nil && snap.Stats != nil {
		s := snap.Stats
		fmt.Fprintf(&sb, "Validated:   %s / %s headers\n",
			FormatThousands(uint64(s.ValidatedHeight)), FormatThousands(uint64(s.HeaderHeight)))
		ibd := ""
		if s.InIBD {
			ibd = "  (IBD)"
		}
		fmt.Fprintf(&sb, "Sync:        %s%s\n", p.bar.Render(s.SyncProgress()), ibd)
		fmt.Fprintf(&sb, "Uptime:      %s\n", FormatDuration(s.Uptime))
		fmt.Fprintf(&sb, "User agent:  %s\n", s.UserAgent)
		fmt.Fprintf(&sb, "Peers:       %d\n", len(s.Peers))
	} else if st.Kind == node.StatusRunning {
		sb.WriteString("Waiting for statistics…\n")
	} else {
		sb.WriteString("Node is not running. Press s to start.\n")
	}

	if snap != nil && snap.LastBlock != nil {
		fmt.Fprintf(&sb, "Last block:  #%s %s\n", FormatThousands(uint64(snap.LastBlock.Height)), shortHash(snap.LastBlock.Hash))
	}
	if snap != nil && snap.LastError != nil {
		fmt.Fprintf(&sb, "Last error:  %v\n", snap.LastError)
	}

	if logLines > 0 && snap != nil && len(snap.Logs) > 0 {
		sb.WriteString("\nRecent logs:\n")
		for _, line := range tail(snap.Logs, logLines) {
			sb.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// P2PPanel renders the peer table and the add-peer field.
type P2PPanel struct{}

// NewP2PPanel creates a new P2PPanel.
func NewP2PPanel() *P2PPanel {
	return &P2PPanel{}
}

// Render outputs the peer table with the selected row marked.
func (p *P2PPanel) Render(m *Model) string {
	var sb strings.Builder
	peers := m.Peers()

	fmt.Fprintf(&sb, "Add peer: %s_\n\n", m.PeerDraft)
	if len(peers) == 0 {
		sb.WriteString("No connected peers")
		return sb.String()
	}

	fmt.Fprintf(&sb, "  %-28s %-14s %-9s %-4s %9s  %s\n", "ADDRESS", "IMPL", "DIRECTION", "TP", "HEIGHT", "USER AGENT")
	for i, peer := range peers {
		marker := " "
		if i == m.SelectedPeer {
			marker = ">"
		}
		fmt.Fprintf(&sb, "%s %-28s %-14s %-9s %-4s %9s  %s\n",
			marker, peer.Address, peer.Impl, peer.Direction, peer.Transport,
			FormatThousands(uint64(peer.InitialHeight)), peer.UserAgent)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BlocksPanel renders the block explorer.
type BlocksPanel struct{}

// NewBlocksPanel creates a new BlocksPanel.
func NewBlocksPanel() *BlocksPanel {
	return &BlocksPanel{}
}

// Render outputs the height field and the fetched block, if any.
func (p *BlocksPanel) Render(m *Model, maxTxs int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Height: %s_\n\n", m.BlockDraft)

	snap := m.Snapshot
	if snap == nil || !snap.HasExplorer {
		sb.WriteString("Enter a block height to inspect it")
		return sb.String()
	}
	if snap.BlockPending {
		fmt.Fprintf(&sb, "Loading block %s…", FormatThousands(uint64(snap.ExplorerHeight)))
		return sb.String()
	}
	b := snap.Block
	if b == nil {
		fmt.Fprintf(&sb, "Block %s not found", FormatThousands(uint64(snap.ExplorerHeight)))
		return sb.String()
	}

	fmt.Fprintf(&sb, "Height:       %s\n", FormatThousands(uint64(b.Height)))
	fmt.Fprintf(&sb, "Hash:         %s\n", b.Hash)
	fmt.Fprintf(&sb, "Previous:     %s\n", b.PrevHash)
	fmt.Fprintf(&sb, "Merkle root:  %s\n", b.MerkleRoot)
	fmt.Fprintf(&sb, "Time:         %s\n", b.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:      0x%08x\n", uint32(b.Version))
	fmt.Fprintf(&sb, "Bits:         %s\n", b.Bits)
	fmt.Fprintf(&sb, "Nonce:        %d\n", b.Nonce)
	fmt.Fprintf(&sb, "Size:         %s bytes (weight %s)\n", FormatThousands(uint64(b.Size)), FormatThousands(uint64(b.Weight)))
	fmt.Fprintf(&sb, "Transactions: %d\n", len(b.TxIDs))
	for i, txid := range b.TxIDs {
		if i == maxTxs {
			fmt.Fprintf(&sb, "  … %d more\n", len(b.TxIDs)-maxTxs)
			break
		}
		sb.WriteString("  " + txid + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// UtreexoPanel renders the accumulator and its export QR code.
type UtreexoPanel struct{}

// NewUtreexoPanel creates a new UtreexoPanel.
func NewUtreexoPanel() *UtreexoPanel {
	return &UtreexoPanel{}
}

// Render outputs the accumulator summary. The QR code is only drawn when it
// fits in width columns.
func (p *UtreexoPanel) Render(m *Model, width int) string {
	snap := m.Snapshot
	if snap == nil || snap.Stats == nil {
		return "No accumulator data available"
	}
	s := snap.Stats

	var sb strings.Builder
	fmt.Fprintf(&sb, "Leaves: %s\n", FormatThousands(s.Accumulator.Leaves))
	fmt.Fprintf(&sb, "Roots:  %d (%s bytes)\n", len(s.Accumulator.Roots), FormatThousands(uint64(s.AccumulatorSize())))
	for _, r := range s.Accumulator.Roots {
		sb.WriteString("  " + hex.EncodeToString(r[:]) + "\n")
	}
	sb.WriteString("\ny: copy export to clipboard\n")

	qr, err := RenderQRCode(strings.ToUpper(s.AccumulatorExport))
	switch {
	case err != nil:
		fmt.Fprintf(&sb, "QR unavailable: %v", err)
	case qrWidth(qr) > width:
		sb.WriteString("Terminal too narrow for the QR code")
	default:
		sb.WriteString("\n" + qr)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderQRCode draws data as a QR code using half-block characters, two
// modules per terminal row.
func RenderQRCode(data string) (string, error) {
	qr, err := qrcode.New(data, qrcode.Low)
	if err != nil {
		return "", err
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	var b strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bottom:
				b.WriteString("█")
			case top:
				b.WriteString("▀")
			case bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		if y+2 < rows {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func qrWidth(qr string) int {
	line, _, _ := strings.Cut(qr, "\n")
	return len([]rune(line))
}

// LogsPanel renders the captured log lines.
type LogsPanel struct{}

// NewLogsPanel creates a new LogsPanel.
func NewLogsPanel() *LogsPanel {
	return &LogsPanel{}
}

// Render outputs the newest lines that fit in limit rows.
func (p *LogsPanel) Render(logs []string, limit int) string {
	if len(logs) == 0 {
		return "No log entries"
	}
	return strings.Join(tail(logs, limit), "\n")
}

// CommandPanel renders the command input and output area.
type CommandPanel struct{}

// NewCommandPanel creates a new CommandPanel.
func NewCommandPanel() *CommandPanel {
	return &CommandPanel{}
}

// Render outputs the command panel content.
// Displays the current input, output, and any error messages.
func (p *CommandPanel) Render(input, output, errorMsg string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "> %s_\n", input)
	sb.WriteString("start | stop | restart | connect <addr> | disconnect <addr> | block <height> | clear | copy\n")

	if errorMsg != "" {
		fmt.Fprintf(&sb, "Error: %s\n", errorMsg)
	}
	if output != "" {
		fmt.Fprintf(&sb, "Output: %s\n", output)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tail(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}
