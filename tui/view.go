package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chromeLines is the header, page label and help line around the page
const chromeLines = 4

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0392b"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	placeholder = lipgloss.NewStyle().Faint(true)
)

// View renders the viewer: header, page, page label, and help or open prompt.
func (m *Model) View() string {
	var sb strings.Builder

	header := titleStyle.Render("PDF Reader")
	if m.document != "" {
		header += "  " + m.document
	}
	sb.WriteString(header)
	sb.WriteByte('\n')

	if strings.HasPrefix(m.status, "Error") {
		sb.WriteString(errorStyle.Render(m.status))
	} else {
		sb.WriteString(statusStyle.Render(m.status))
	}
	sb.WriteByte('\n')

	cols, rows := m.pageArea()
	page := m.cells
	if page == "" {
		page = placeholder.Render("No PDF displayed.")
	}
	sb.WriteString(lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, page))
	sb.WriteByte('\n')

	sb.WriteString(lipgloss.PlaceHorizontal(cols, lipgloss.Center, labelStyle.Render(m.session.State().Label())))
	sb.WriteByte('\n')

	if m.input.Focused() {
		sb.WriteString(m.input.View())
	} else {
		sb.WriteString(m.help.View(m.keys))
	}
	return sb.String()
}
