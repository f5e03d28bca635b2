package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BorderStyle defines the characters used for panel borders.
type BorderStyle struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Horizontal  string
	Vertical    string
}

// NormalBorder is the default border style for unfocused panels.
var NormalBorder = BorderStyle{
	TopLeft:     "┌",
	TopRight:    "┐",
	BottomLeft:  "└",
	BottomRight: "┘",
	Horizontal:  "─",
	Vertical:    "│",
}

// FocusedBorder is the border style for focused panels.
var FocusedBorder = BorderStyle{
	TopLeft:     "╔",
	TopRight:    "╗",
	BottomLeft:  "╚",
	BottomRight: "╝",
	Horizontal:  "═",
	Vertical:    "║",
}

// chromeRows is header, tabs, footer and the two border rows.
const chromeRows = 5

// View handles rendering the model to the terminal.
type View struct {
	header *HeaderBar
	footer *FooterBar

	overviewPanel *OverviewPanel
	p2pPanel      *P2PPanel
	blocksPanel   *BlocksPanel
	utreexoPanel  *UtreexoPanel
	logsPanel     *LogsPanel
	commandPanel  *CommandPanel
}

// NewView creates a new View with all panel renderers initialized.
func NewView(unicodeSupport bool) *View {
	return &View{
		header:        NewHeaderBar(unicodeSupport),
		footer:        NewFooterBar(80),
		overviewPanel: NewOverviewPanel(),
		p2pPanel:      NewP2PPanel(),
		blocksPanel:   NewBlocksPanel(),
		utreexoPanel:  NewUtreexoPanel(),
		logsPanel:     NewLogsPanel(),
		commandPanel:  NewCommandPanel(),
	}
}

// RenderPanelWithBorder wraps content in a box width columns wide. Lines
// that do not fit are cut.
func RenderPanelWithBorder(content, title string, focused bool, width int) string {
	border := NormalBorder
	if focused {
		border = FocusedBorder
	}
	inner := width - 2
	if least := lipgloss.Width(title) + 4; inner < least {
		inner = least
	}

	var sb strings.Builder

	sb.WriteString(border.TopLeft)
	label := " " + title + " "
	left := (inner - lipgloss.Width(label)) / 2
	sb.WriteString(strings.Repeat(border.Horizontal, left))
	sb.WriteString(label)
	sb.WriteString(strings.Repeat(border.Horizontal, inner-left-lipgloss.Width(label)))
	sb.WriteString(border.TopRight)
	sb.WriteString("\n")

	for _, line := range strings.Split(content, "\n") {
		line = truncate(line, inner-2)
		sb.WriteString(border.Vertical)
		sb.WriteString(" ")
		sb.WriteString(line)
		if pad := inner - 1 - lipgloss.Width(line); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
		sb.WriteString(border.Vertical)
		sb.WriteString("\n")
	}

	sb.WriteString(border.BottomLeft)
	sb.WriteString(strings.Repeat(border.Horizontal, inner))
	sb.WriteString(border.BottomRight)
	sb.WriteString("\n")

	return sb.String()
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width {
		r = r[:width]
	}
	return string(r)
}

// RenderPanel renders the content of one panel, clipped to rows lines.
func (v *View) RenderPanel(panel PanelType, model *Model, rows int) string {
	width := model.Width - 4
	var content string

	switch panel {
	case PanelOverview:
		content = v.overviewPanel.Render(model, rows-10)
	case PanelP2P:
		content = v.p2pPanel.Render(model)
	case PanelBlocks:
		content = v.blocksPanel.Render(model, rows-13)
	case PanelUtreexo:
		content = v.utreexoPanel.Render(model, width)
	case PanelLogs:
		var logs []string
		if model.Snapshot != nil {
			logs = model.Snapshot.Logs
		}
		content = v.logsPanel.Render(logs, rows)
	case PanelCommand:
		content = v.commandPanel.Render(model.CommandInput, model.CommandOutput, model.ErrorMessage)
	default:
		content = "Unknown panel type"
	}

	lines := strings.Split(content, "\n")
	if rows > 0 && len(lines) > rows {
		lines = lines[:rows]
	}
	return strings.Join(lines, "\n")
}

// Render draws the header, the panel strip, the focused panel and the
// footer. Errors raised by a key press outside the command panel are shown
// above the footer.
func (v *View) Render(model *Model) string {
	rows := model.Height - chromeRows
	if model.ErrorMessage != "" && model.ActivePanel != PanelCommand {
		rows--
	}
	if rows < 1 {
		rows = 1
	}
	v.footer.SetWidth(model.Width)

	var sb strings.Builder
	sb.WriteString(v.header.Render(model))
	sb.WriteString("\n")
	sb.WriteString(RenderTabs(model.ActivePanel))
	sb.WriteString("\n")
	sb.WriteString(RenderPanelWithBorder(v.RenderPanel(model.ActivePanel, model, rows), model.ActivePanel.String(), true, model.Width))
	if model.ErrorMessage != "" && model.ActivePanel != PanelCommand {
		sb.WriteString("Error: " + model.ErrorMessage + "\n")
	}
	sb.WriteString(v.footer.Render(model.ActivePanel, model.Status()))
	return sb.String()
}
