package tui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Card     lipgloss.Style
	Toast    lipgloss.Style

	OK   lipgloss.Style
	Skip lipgloss.Style
	Fail lipgloss.Style
}

func DefaultTheme() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true),
		Subtitle: lipgloss.NewStyle().Faint(true),
		Help:     lipgloss.NewStyle().Faint(true),
		Card: lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")),
		Toast: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),

		OK:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Skip: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Fail: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
