package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Output styles shared by the commands
var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderTable renders rows under headers with a rounded border.
// highlight, if non-nil, picks a style for a data cell.
func renderTable(headers []string, rows [][]string, highlight func(row, col int) *lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if highlight != nil {
				if s := highlight(row, col); s != nil {
					return s.Padding(0, 1)
				}
			}
			return cellStyle
		})
	return t.String()
}

// statusLabel renders a pass/fail marker.
func statusLabel(ok bool) string {
	if ok {
		return okStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}
