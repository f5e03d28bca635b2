package tui

import (
	"fmt"
	"strings"

	"github.com/salahayoub/bonsai/pkg/node"
)

// Status symbols.
const (
	SymbolRunning = "●"
	SymbolStopped = "○"
	SymbolBusy    = "◐"
	SymbolFailed  = "✗"

	SymbolRunningASCII = "[+]"
	SymbolStoppedASCII = "[-]"
	SymbolBusyASCII    = "[~]"
	SymbolFailedASCII  = "[!]"
)

// HeaderBar renders the one-line node overview.
type HeaderBar struct {
	unicodeSupport bool
}

// NewHeaderBar creates a header bar renderer.
func NewHeaderBar(unicodeSupport bool) *HeaderBar {
	return &HeaderBar{unicodeSupport: unicodeSupport}
}

// Render outputs the header bar content.
// Format: "bonsai ● RUNNING | signet | 150/200 | peers 3"
func (h *HeaderBar) Render(model *Model) string {
	st := model.Status()
	parts := []string{
		fmt.Sprintf("bonsai %s %s", h.symbol(st.Kind), st.Kind),
		model.Network,
	}
	if model.Snapshot != nil && model.Snapshot.Stats != nil {
		s := model.Snapshot.Stats
		parts = append(parts,
			fmt.Sprintf("%s/%s", FormatThousands(uint64(s.ValidatedHeight)), FormatThousands(uint64(s.HeaderHeight))),
			fmt.Sprintf("peers %d", len(s.Peers)),
		)
	}
	if model.Closing {
		parts = append(parts, "closing…")
	}
	return strings.Join(parts, " | ")
}

func (h *HeaderBar) symbol(k node.StatusKind) string {
	switch k {
	case node.StatusRunning:
		if h.unicodeSupport {
			return SymbolRunning
		}
		return SymbolRunningASCII
	case node.StatusStarting, node.StatusShuttingDown:
		if h.unicodeSupport {
			return SymbolBusy
		}
		return SymbolBusyASCII
	case node.StatusFailed:
		if h.unicodeSupport {
			return SymbolFailed
		}
		return SymbolFailedASCII
	}
	if h.unicodeSupport {
		return SymbolStopped
	}
	return SymbolStoppedASCII
}

// RenderTabs renders the panel strip with the active panel bracketed.
func RenderTabs(active PanelType) string {
	names := make([]string, 0, PanelCount)
	for p := PanelOverview; p.valid(); p++ {
		label := fmt.Sprintf("%d %s", int(p)+1, p)
		if p == active {
			label = "[" + label + "]"
		} else {
			label = " " + label + " "
		}
		names = append(names, label)
	}
	return strings.Join(names, " ")
}
