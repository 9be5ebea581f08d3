package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/fbrowse/internal/opener"
	"github.com/pders01/fbrowse/internal/storage"
)

// recordItem is a list entry for one record.
type recordItem struct {
	record storage.Record
	kind   opener.Kind
}

func (i recordItem) Title() string { return i.record.Name }

func (i recordItem) Description() string {
	return i.kind.String() + " • " + humanSize(len(i.record.Content))
}

func (i recordItem) FilterValue() string { return i.record.Name }

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderCentered centers content within a width x height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}
