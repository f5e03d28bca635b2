package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/salahayoub/bonsai/pkg/node"
)

// palette is the set of colors the dashboard draws with.
type palette struct {
	accent     tcell.Color
	background tcell.Color
	text       tcell.Color
	muted      tcell.Color
	alert      tcell.Color
	warn       tcell.Color
}

// forest is a dark palette with bonsai greens.
var forest = palette{
	accent:     tcell.NewRGBColor(74, 222, 128),  // green 400
	background: tcell.NewRGBColor(17, 24, 39),    // gray 900
	text:       tcell.NewRGBColor(229, 231, 235), // gray 200
	muted:      tcell.NewRGBColor(156, 163, 175), // gray 400
	alert:      tcell.NewRGBColor(248, 113, 113), // red 400
	warn:       tcell.NewRGBColor(250, 204, 21),  // yellow 400
}

// Styles holds the cell style of each screen region.
type Styles struct {
	Normal tcell.Style
	Muted  tcell.Style
	Error  tcell.Style
	Tabs   tcell.Style
	Border tcell.Style

	status map[node.StatusKind]tcell.Style
}

func newStyles(p palette) Styles {
	base := tcell.StyleDefault.Background(p.background).Foreground(p.text)
	header := base.Bold(true)

	return Styles{
		Normal: base,
		Muted:  base.Foreground(p.muted),
		Error:  base.Foreground(p.alert),
		Tabs:   base.Foreground(p.warn),
		Border: base.Foreground(p.accent),
		status: map[node.StatusKind]tcell.Style{
			node.StatusInactive:     header.Foreground(p.muted),
			node.StatusStarting:     header.Foreground(p.warn),
			node.StatusRunning:      header.Foreground(p.accent),
			node.StatusShuttingDown: header.Foreground(p.warn),
			node.StatusFailed:       header.Foreground(p.alert),
		},
	}
}

// Header returns the header bar style, colored by node status.
func (s Styles) Header(k node.StatusKind) tcell.Style {
	if st, ok := s.status[k]; ok {
		return st
	}
	return s.Normal.Bold(true)
}

// CurrentStyles holds the global styles instance.
var CurrentStyles = newStyles(forest)
