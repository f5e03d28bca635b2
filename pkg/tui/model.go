package tui

import (
	"time"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/node"
)

// PanelType identifies which panel has focus.
type PanelType int

const (
	PanelOverview PanelType = iota
	PanelP2P
	PanelBlocks
	PanelUtreexo
	PanelLogs
	PanelCommand
)

var panelTitles = [...]string{
	PanelOverview: "Overview",
	PanelP2P:      "P2P",
	PanelBlocks:   "Blocks",
	PanelUtreexo:  "Utreexo",
	PanelLogs:     "Logs",
	PanelCommand:  "Command",
}

// PanelCount is the total number of panels for navigation.
const PanelCount = len(panelTitles)

func (p PanelType) String() string {
	if p.valid() {
		return panelTitles[p]
	}
	return "Unknown"
}

func (p PanelType) valid() bool {
	return p >= 0 && int(p) < PanelCount
}

// next and prev wrap around.
func (p PanelType) next() PanelType { return PanelType((int(p) + 1) % PanelCount) }
func (p PanelType) prev() PanelType { return PanelType((int(p) + PanelCount - 1) % PanelCount) }

// HasInput reports whether runes typed on the panel go to a text field.
func (p PanelType) HasInput() bool {
	return p == PanelP2P || p == PanelBlocks || p == PanelCommand
}

// Snapshot is a copy of the controller state taken on the loop goroutine.
// Statistics and block pointers are shared: the controller replaces them
// wholesale and never mutates a published value.
type Snapshot struct {
	Status         node.Status
	Stats          *node.NodeStatistics
	Uptime         time.Duration
	LastError      error
	Block          *engine.Block
	BlockPending   bool
	ExplorerHeight uint32
	HasExplorer    bool
	LastBlock      *engine.BlockEvent
	Logs           []string
	LogVersion     uint64
}

// TakeSnapshot copies the controller state. Logs are reused from prev when
// the capture has not changed since.
func TakeSnapshot(c *node.Controller, prev *Snapshot) *Snapshot {
	s := &Snapshot{
		Status:       c.Status(),
		Stats:        c.Statistics(),
		Uptime:       c.Uptime(),
		LastError:    c.LastError(),
		Block:        c.Block(),
		BlockPending: c.BlockPending(),
		LastBlock:    c.LastBlock(),
		LogVersion:   c.LogVersion(),
	}
	s.ExplorerHeight, s.HasExplorer = c.ExplorerHeight()
	if prev != nil && prev.LogVersion == s.LogVersion {
		s.Logs = prev.Logs
	} else {
		s.Logs = c.Logs()
	}
	return s
}

// stale reports whether the controller moved away from s in a way worth
// redrawing for.
func (s *Snapshot) stale(c *node.Controller) bool {
	return s == nil ||
		s.Status.Kind != c.Status().Kind ||
		s.Stats != c.Statistics() ||
		s.LogVersion != c.LogVersion()
}

// Model holds the application state for the TUI.
type Model struct {
	Snapshot *Snapshot
	Network  string

	// UI state
	ActivePanel   PanelType
	PeerDraft     string
	BlockDraft    string
	SelectedPeer  int
	CommandInput  string
	CommandOutput string
	ErrorMessage  string
	Closing       bool

	Width  int
	Height int
}

// NewModel creates a new Model with default values.
func NewModel(network string) *Model {
	return &Model{
		Network:     network,
		ActivePanel: PanelOverview,
		Width:       80,
		Height:      24,
	}
}

// NextPanel moves focus to the next panel in circular order.
func (m *Model) NextPanel() {
	m.ActivePanel = m.ActivePanel.next()
}

// PrevPanel moves focus to the previous panel in circular order.
func (m *Model) PrevPanel() {
	m.ActivePanel = m.ActivePanel.prev()
}

// Focus moves focus to p, ignoring unknown panels.
func (m *Model) Focus(p PanelType) bool {
	if !p.valid() {
		return false
	}
	m.ActivePanel = p
	return true
}

// Status is the snapshot status, Inactive before the first snapshot.
func (m *Model) Status() node.Status {
	if m.Snapshot == nil {
		return node.Status{}
	}
	return m.Snapshot.Status
}

// Peers returns the connected peers of the latest snapshot.
func (m *Model) Peers() []node.PeerInformation {
	if m.Snapshot == nil || m.Snapshot.Stats == nil {
		return nil
	}
	return m.Snapshot.Stats.Peers
}

// input returns the text field bound to the active panel.
func (m *Model) input() *string {
	switch m.ActivePanel {
	case PanelP2P:
		return &m.PeerDraft
	case PanelBlocks:
		return &m.BlockDraft
	case PanelCommand:
		return &m.CommandInput
	}
	return nil
}
