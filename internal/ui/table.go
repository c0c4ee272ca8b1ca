package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with the CLI's styling. The table is
// unfocused and sized to show every row.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Unfocused tables still highlight the cursor row; keep it plain.
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// StatusTableRow is one line of a status listing: a colored status symbol
// followed by free-form columns. Agents, bookmarks and alerts all render
// through it.
type StatusTableRow struct {
	Status  string // backend status, mapped through StatusSymbol
	Columns []string
}

// RenderStatusTable renders rows under headers with a leading status column.
// Widths size each column; the last column is never padded. Cells may carry
// ANSI styling.
func RenderStatusTable(headers []string, widths []int, rows []StatusTableRow, empty string) string {
	if len(rows) == 0 {
		return MutedStyle().Render(empty) + "\n"
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	var b strings.Builder
	b.WriteString(headerStyle.Render("  " + joinPadded(headers, widths)))
	b.WriteString("\n")

	for _, row := range rows {
		b.WriteString(StatusSymbol(row.Status))
		b.WriteString(" ")
		b.WriteString(joinPadded(row.Columns, widths))
		b.WriteString("\n")
	}
	return b.String()
}

func joinPadded(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i < len(cells)-1 && i < len(widths) {
			b.WriteString(padRight(truncate(cell, widths[i]-1), widths[i]))
			continue
		}
		b.WriteString(cell)
	}
	return b.String()
}

// truncate shortens plain text to width runes with an ellipsis. Styled
// text is returned unchanged since cutting it would split escape codes.
func truncate(s string, width int) string {
	if width <= 1 || strings.Contains(s, "\x1b") {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// padRight pads s with spaces to the visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
