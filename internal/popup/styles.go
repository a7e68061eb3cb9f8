package popup

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#F59E0B"}

	focusedStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	checkedStyle = lipgloss.NewStyle().Foreground(accentColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	statusStyle  = lipgloss.NewStyle().Foreground(warnColor)
	dividerStyle = lipgloss.NewStyle().Foreground(mutedColor)

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)
