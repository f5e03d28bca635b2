package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Brand colors
var (
	ColorAccent  = lipgloss.Color("#4ade80") // Green
	ColorError   = lipgloss.Color("#f87171") // Red
	ColorWarning = lipgloss.Color("#facc15") // Yellow
	ColorMuted   = lipgloss.Color("#9ca3af") // Gray
)

// Semantic text styles
var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	StyleKey = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Width(20)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorAccent)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// isTTY reports whether stdout is a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// isInteractive reports whether both stdin and stdout are terminals.
func isInteractive() bool {
	return isTTY() && term.IsTerminal(int(os.Stdin.Fd()))
}

// printKV prints aligned key/value rows under a header.
func printKV(w io.Writer, header string, rows [][2]string) {
	fmt.Fprintln(w, StyleHeader.Render(header))
	for _, r := range rows {
		value := r[1]
		if value == "" {
			value = StyleMuted.Render("(unset)")
		}
		fmt.Fprintf(w, "  %s %s\n", StyleKey.Render(r[0]), value)
	}
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, StyleSuccess.Render("✓ "+fmt.Sprintf(format, args...)))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, StyleWarning.Render("! "+fmt.Sprintf(format, args...)))
}

// bullet joins items as a dotted list.
func bullet(items []string) string {
	return strings.Join(items, " · ")
}
