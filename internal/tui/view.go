package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	placeholderText = "No clients in queue."
	minColumnWidth  = 22
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	focusHeaderStyle = headerStyle.Foreground(lipgloss.Color("212"))
	rowStyle         = lipgloss.NewStyle().Padding(0, 1)
	cursorStyle      = rowStyle.Reverse(true)
	placeholderStyle = rowStyle.Faint(true).Italic(true)
	errorStyle       = rowStyle.Foreground(lipgloss.Color("203"))
	columnStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	focusColumnStyle = columnStyle.BorderForeground(lipgloss.Color("212"))
	statusStyle      = lipgloss.NewStyle().Faint(true)
)

// View implements tea.Model.
func (m Model) View() string {
	width := m.columnWidth()
	rendered := make([]string, 0, len(m.columns))
	for i, col := range m.columns {
		rendered = append(rendered, m.renderColumn(col, i == m.focus, width))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteByte('\n')
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) columnWidth() int {
	if m.width <= 0 || len(m.columns) == 0 {
		return minColumnWidth
	}
	// Two border cells per column.
	return max(m.width/len(m.columns)-2, minColumnWidth)
}

func (m Model) renderColumn(col *column, focused bool, width int) string {
	header := headerStyle
	frame := columnStyle
	if focused {
		header = focusHeaderStyle
		frame = focusColumnStyle
	}

	lines := []string{header.Width(width).Render(fmt.Sprintf("%s (%d)", col.barber.Name, col.rows.Len()))}
	if col.rows.PlaceholderVisible() {
		lines = append(lines, placeholderStyle.Width(width).Render(placeholderText))
	}
	for i, row := range col.rows.Entries() {
		style := rowStyle
		if focused && i == col.cursor {
			style = cursorStyle
		}
		lines = append(lines, style.Width(width).Render(truncate(fmt.Sprintf("%d. %s", row.Rank, row.Name), width-2)))
	}
	if col.lastErr != nil {
		lines = append(lines, errorStyle.Width(width).Render(truncate("⚠ "+col.lastErr.Error(), width-2)))
	}
	return frame.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
