// Package tui implements claodex's status sidebar: a small read-only
// bubbletea dashboard that tails a workspace's ui/events.jsonl and
// ui/metrics.json (§6 Event bus contract) to show live cursor
// positions and the most recent bus events; metrics.json is read but
// not displayed.
// Grounded on the teacher's internal/tui (bubbletea + bubbles +
// lipgloss) conventions, reduced to a single view since claodex has no
// plan/issue/session browsing surface to page between.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette — the teacher's Catppuccin Mocha dark theme, kept
// verbatim since it is a generic terminal palette, not project-domain
// specific.
var (
	ColorBase     = lipgloss.Color("#1e1e2e")
	ColorSurface0 = lipgloss.Color("#313244")
	ColorSurface1 = lipgloss.Color("#45475a")
	ColorSurface2 = lipgloss.Color("#585b70")
	ColorOverlay0 = lipgloss.Color("#6c7086")
	ColorText     = lipgloss.Color("#cdd6f4")
	ColorSubtext0 = lipgloss.Color("#a6adc8")

	ColorRed     = lipgloss.Color("#f38ba8")
	ColorGreen   = lipgloss.Color("#a6e3a1")
	ColorYellow  = lipgloss.Color("#f9e2af")
	ColorBlue    = lipgloss.Color("#89b4fa")
	ColorMauve   = lipgloss.Color("#cba6f7")
	ColorPeach   = lipgloss.Color("#fab387")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBase).
			Background(ColorBlue).
			Padding(0, 2).
			MarginBottom(1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext0).
			Background(ColorSurface0).
			Padding(0, 1)

	StatusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMauve).
			Background(ColorSurface0)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSurface2).
			Padding(1, 2)

	CardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMauve).
			MarginBottom(1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMauve).
				BorderBottom(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(ColorSurface2).
				Padding(0, 1)

	AgentAStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	AgentBStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPeach)
	UserStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorYellow)

	AliveStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	DeadStyle  = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	DividerStyle = lipgloss.NewStyle().Foreground(ColorSurface2)

	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	EmptyStateStyle = lipgloss.NewStyle().
				Foreground(ColorOverlay0).
				Italic(true).
				Padding(1, 2)

	HelpTextStyle = lipgloss.NewStyle().Foreground(ColorSubtext0)
)

// agentStyle returns the speaker style for one of "A", "B", or "user".
func agentStyle(sender string) lipgloss.Style {
	switch sender {
	case "A":
		return AgentAStyle
	case "B":
		return AgentBStyle
	default:
		return UserStyle
	}
}
