package output

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette shared by the pretty formatter and the CLI.
const (
	ColorPrimary = lipgloss.Color("33")
	ColorSuccess = lipgloss.Color("35")
	ColorWarning = lipgloss.Color("178")
	ColorDanger  = lipgloss.Color("160")
	ColorMuted   = lipgloss.Color("244")
)

var (
	// HeaderBox frames the title and source line.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames the summary line.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle()
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)

	// PathStyle marks names and paths in listings.
	PathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	// SizeStyle marks sizes and progress figures.
	SizeStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted).
				PaddingRight(2)

	TableRowStyle = lipgloss.NewStyle().PaddingRight(2)
)

// StatusStyle returns the style for a job status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return SuccessStyle
	case "running":
		return lipgloss.NewStyle().Foreground(ColorPrimary)
	case "failed":
		return ErrorStyle
	case "canceled":
		return WarningStyle
	default:
		return ValueStyle
	}
}
