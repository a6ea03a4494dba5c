package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the set of styles used to render output. It carries no layout,
// only colors, so plain terminals see plain text.
type Theme struct {
	Dark    bool
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewTheme returns the dark or light palette.
func NewTheme(dark bool) *Theme {
	if dark {
		return &Theme{
			Dark:    true,
			Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5E7EB")),
			Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
			Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
			Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399")),
			Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FCD34D")),
			Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
		}
	}
	return &Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#111827")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#B45309")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#047857")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#92400E")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#B91C1C")),
	}
}
