// Package tui renders the interactive copy progress view of the paneo CLI.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#5A8DEE")
	accentColor  = lipgloss.Color("#3DDC97")
	successColor = lipgloss.Color("#3DDC97")
	warningColor = lipgloss.Color("#F4B942")
	dangerColor  = lipgloss.Color("#E5484D")
	mutedColor   = lipgloss.Color("#6E7681")
	borderColor  = lipgloss.Color("#30363D")
)

var (
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	dividerStyle = lipgloss.NewStyle().Foreground(borderColor)

	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	successTextStyle = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	warningTextStyle = lipgloss.NewStyle().Foreground(warningColor)
	pathStyle        = lipgloss.NewStyle().Foreground(accentColor)

	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	statsValueStyle = lipgloss.NewStyle().Bold(true)
)

func renderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return dividerStyle.Render(strings.Repeat("─", width))
}

// truncatePath keeps the tail of path, which holds the file name, within
// maxLen runes.
func truncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	if maxLen <= 1 {
		return string(r[len(r)-max(maxLen, 0):])
	}
	return "…" + string(r[len(r)-(maxLen-1):])
}

// center pads s on both sides to width cells.
func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}
