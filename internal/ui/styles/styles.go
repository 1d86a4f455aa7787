package styles

import "github.com/charmbracelet/lipgloss"

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	Header   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	Footer   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	Box      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	Selected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DCE13"))
	Item     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	Danger   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	Good     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7AF"))
	Faint    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
)

// ForPercent picks the usage colour for a percentage
func ForPercent(p float64) lipgloss.Style {
	switch {
	case p >= 90:
		return Danger
	case p >= 70:
		return Warn
	}
	return Good
}
