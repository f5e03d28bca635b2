package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ProgressBar renders sync progress as a visual bar.
type ProgressBar struct {
	width int
}

// NewProgressBar creates a progress bar renderer.
// width specifies the character width of the bar (excluding brackets and percentage).
func NewProgressBar(width int) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{width: width}
}

// Render outputs a progress bar for fraction in [0, 1].
// Returns format: "[████████░░] 80.00%"
func (p *ProgressBar) Render(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * float64(p.width))
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(strings.Repeat("█", filled))
	sb.WriteString(strings.Repeat("░", p.width-filled))
	sb.WriteString("]")
	sb.WriteString(fmt.Sprintf(" %.2f%%", fraction*100))
	return sb.String()
}

// SyncStyle colors the sync line by the number of blocks still to
// validate: accent within 6, warning within 1000, alert beyond.
func SyncStyle(remaining uint32) tcell.Style {
	switch {
	case remaining <= 6:
		return CurrentStyles.Border
	case remaining <= 1000:
		return CurrentStyles.Tabs
	}
	return CurrentStyles.Error
}

// Remaining is the number of headers not yet validated.
func Remaining(header, validated uint32) uint32 {
	if validated >= header {
		return 0
	}
	return header - validated
}
