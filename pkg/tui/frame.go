package tui

import "github.com/gdamore/tcell/v2"

// paint writes lines to the screen one per row. Cells past the end of a
// line are blanked so a shorter frame leaves nothing behind.
func paint(screen tcell.Screen, lines []string, styleOf func(row int, line string) tcell.Style) {
	w, h := screen.Size()
	blank := CurrentStyles.Normal
	for y := 0; y < h; y++ {
		x := 0
		if y < len(lines) && lines[y] != "" {
			style := styleOf(y, lines[y])
			for _, r := range lines[y] {
				if x >= w {
					break
				}
				screen.SetContent(x, y, r, nil, style)
				x++
			}
		}
		for ; x < w; x++ {
			screen.SetContent(x, y, ' ', nil, blank)
		}
	}
}
