package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	styleInstalled = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleUpdate    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	styleBroken    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleMissing   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // grey
)

// StatusStyle renders a mod status label with its color.
func StatusStyle(status string) string {
	switch status {
	case "installed", "up-to-date":
		return styleInstalled.Render(status)
	case "update-available":
		return styleUpdate.Render(status)
	case "broken":
		return styleBroken.Render(status)
	default:
		return styleMissing.Render(status)
	}
}

// Title renders a section heading.
func Title(text string) string {
	return lipgloss.NewStyle().Bold(true).Render(text)
}
