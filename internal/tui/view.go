package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	title := titleStyle.Render("gsmd monitor")

	var body string
	if m.err != nil {
		body = dimStyle.Render(fmt.Sprintf("  error: %v", m.err))
	} else {
		body = m.viewClientList()
	}

	helpBar := helpStyle.Render("↑/k up · ↓/j down · r refresh · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, body, helpBar)
}

func (m Model) viewClientList() string {
	if len(m.clients) == 0 {
		return dimStyle.Render("  no clients registered") + "\n"
	}

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("  %-28s %-14s %-10s %s", "APP", "STARTUP ID", "STATUS", "OBJECT PATH")) + "\n")
	for i, c := range m.clients {
		line := fmt.Sprintf("%-28s %-14s %-10s %s", truncate(c.AppID, 28), truncate(c.StartupID, 14), c.Status, c.ObjectPath)
		indicator := statusIndicator(c.Status)
		rendered := indicator + " " + line
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> "+rendered) + "\n")
		} else {
			b.WriteString(itemStyle.Render(rendered) + "\n")
		}
	}
	return b.String()
}

func statusIndicator(status string) string {
	switch status {
	case "registered", "idle":
		return runningIndicator.String()
	default:
		return savedIndicator.String()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
