package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// choice is a keyboard-driven option picker for one item.
type choice struct {
	options  []string
	selected int
}

func newChoice(options []string) choice {
	return choice{options: options}
}

// update moves the cursor. Letter and digit keys jump to an option.
func (c choice) update(msg tea.KeyMsg) choice {
	key := msg.String()
	switch key {
	case "up", "k":
		if c.selected > 0 {
			c.selected--
		}
		return c
	case "down", "j":
		if c.selected < len(c.options)-1 {
			c.selected++
		}
		return c
	}
	if len(key) == 1 {
		if i, ok := optionIndex(key[0]); ok && i < len(c.options) {
			c.selected = i
		}
	}
	return c
}

func optionIndex(k byte) (int, bool) {
	switch {
	case k >= 'a' && k <= 'i':
		return int(k - 'a'), true
	case k >= 'A' && k <= 'I':
		return int(k - 'A'), true
	case k >= '1' && k <= '9':
		return int(k - '1'), true
	}
	return 0, false
}

// value is the text of the selected option.
func (c choice) value() string {
	if len(c.options) == 0 {
		return ""
	}
	return c.options[c.selected]
}

func (c choice) view() string {
	var b strings.Builder
	for i, opt := range c.options {
		prefix := "  "
		style := textStyle
		if i == c.selected {
			prefix = "▸ "
			style = selectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%c)  %s", prefix, 'A'+i, opt)))
		b.WriteString("\n")
	}
	return b.String()
}

var (
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E2E8F0"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E")).Bold(true)
)
