package report

import "charm.land/lipgloss/v2"

// Palette
var (
	primary   = lipgloss.Color("#8B5CF6")
	secondary = lipgloss.Color("#14B8A6")
	accent    = lipgloss.Color("#F97316")
	success   = lipgloss.Color("#22C55E")
	failure   = lipgloss.Color("#F43F5E")
	textDim   = lipgloss.Color("#94A3B8")
	border    = lipgloss.Color("#334155")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(textDim).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(textDim).
			Italic(true)

	correctStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)

	incorrectStyle = lipgloss.NewStyle().
			Foreground(failure).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	barFilled = lipgloss.NewStyle().Foreground(secondary)
	barEmpty  = lipgloss.NewStyle().Foreground(border)
)
