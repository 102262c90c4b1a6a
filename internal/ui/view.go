package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}

	title := titleStyle.Render("binder play · " + m.title)
	left := boxStyle.Render(m.renderEvents())
	right := boxStyle.Render(m.markup.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	parts := []string{title, body}
	if m.editing {
		parts = append(parts, "value: "+m.input.View())
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	}
	parts = append(parts, m.renderLog(5), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderEvents() string {
	if len(m.rows) == 0 {
		return mutedStyle.Render("no bound events")
	}
	lines := make([]string, len(m.rows))
	for i, r := range m.rows {
		if i == m.selected {
			lines[i] = selectedStyle.Render("> " + r.Label())
		} else {
			lines[i] = normalStyle.Render("  " + r.Label())
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLog(n int) string {
	start := max(len(m.log)-n, 0)
	return strings.Join(m.log[start:], "\n")
}

func (m Model) renderFooter() string {
	keys := []string{"↑/↓: Select", "Enter: Fire", "e: Fire with value", "u: Update", "?: Help", "q: Quit"}
	if m.editing {
		keys = []string{"Enter: Fire", "Esc: Cancel"}
	}
	return footerStyle.Render(strings.Join(keys, " • "))
}

func (m Model) renderHelp() string {
	km := DefaultKeyMap
	bindings := []struct{ keys, desc string }{
		{km.Up.Help().Key + ", " + km.Down.Help().Key, "Select event"},
		{km.Fire.Help().Key, km.Fire.Help().Desc},
		{km.Edit.Help().Key, km.Edit.Help().Desc},
		{km.Update.Help().Key, km.Update.Help().Desc},
		{"pgup/pgdown", "Scroll markup"},
		{km.Help.Help().Key, "Toggle this help"},
		{km.Quit.Help().Key, km.Quit.Help().Desc},
	}
	var lines []string
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("%s  %s", selectedStyle.Render(fmt.Sprintf("%-12s", b.keys)), b.desc))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		boxStyle.Render(strings.Join(lines, "\n")),
		mutedStyle.Render("Press ? to close help"),
	)
}
