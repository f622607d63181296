package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It is meant for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))

	if len(r.Summary) > 0 {
		w.WriteString(f.formatFooter(r))
		w.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with the title and source.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{TitleStyle.Render(r.Title)}
	if r.Source != "" {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable renders the rows with padded columns.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Rows) == 0 {
		return MutedStyle.Render("  Nothing to show") + "\n"
	}

	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = lipgloss.Width(col)
	}
	for _, row := range r.Rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	headers := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		headers[i] = TableHeaderStyle.Render(padRight(col, widths[i]))
	}
	sb.WriteString("  " + strings.Join(headers, "") + "\n")

	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = TableRowStyle.Render(cellStyle(r.Columns[i], cell).Render(padRight(cell, widths[i])))
		}
		sb.WriteString("  " + strings.Join(cells, "") + "\n")
	}

	return sb.String()
}

// cellStyle picks a style from the column name and, for status columns, the value.
func cellStyle(column, value string) lipgloss.Style {
	switch strings.ToUpper(column) {
	case "STATUS":
		return StatusStyle(value)
	case "SIZE", "PROGRESS":
		return SizeStyle
	case "PATH", "NAME":
		return PathStyle
	default:
		return ValueStyle
	}
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := make([]string, 0, len(r.Summary)+1)
	for _, s := range r.Summary {
		parts = append(parts, ValueStyle.Render(s))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padRight pads s with spaces on the right to the given display width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
