package tui

import (
	"strings"

	"github.com/salahayoub/bonsai/pkg/node"
)

// FooterBar renders the keyboard shortcuts footer.
type FooterBar struct {
	terminalWidth int
}

// NewFooterBar creates a footer bar renderer.
func NewFooterBar(width int) *FooterBar {
	return &FooterBar{terminalWidth: width}
}

// SetWidth updates the terminal width for the footer bar.
func (f *FooterBar) SetWidth(width int) {
	f.terminalWidth = width
}

// Render outputs the footer bar content. Only actions the current status
// allows are listed.
func (f *FooterBar) Render(panel PanelType, st node.Status) string {
	full := f.terminalWidth >= 80
	if panel.HasInput() {
		return f.renderInputShortcuts(panel, full)
	}

	var keys []string
	add := func(long, short string) {
		if full {
			keys = append(keys, long)
		} else {
			keys = append(keys, short)
		}
	}
	if st.CanStart() {
		add("s: Start", "s:Start")
	}
	if st.CanStop() {
		add("x: Stop", "x:Stop")
	}
	if st.CanRestart() {
		add("r: Restart", "r:Rst")
	}
	add("c: Clear Logs", "c:Clr")
	add("y: Copy Accumulator", "y:Copy")
	add("Tab: Next Panel", "Tab:Panel")
	add("q: Quit", "q:Quit")

	sep := " | "
	if !full {
		sep = " "
	}
	return strings.Join(keys, sep)
}

func (f *FooterBar) renderInputShortcuts(panel PanelType, full bool) string {
	extra := ""
	if panel == PanelP2P {
		if full {
			extra = " | ↑/↓: Select | Del: Disconnect"
		} else {
			extra = " ↑↓:Sel Del:Disc"
		}
	}
	if full {
		return "Enter: Execute | Esc: Clear | Tab: Next Panel" + extra
	}
	return "Enter:Exec Esc:Clear Tab:Panel" + extra
}
