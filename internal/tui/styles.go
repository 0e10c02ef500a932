package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Title lipgloss.Style
	Query lipgloss.Style
	Meta  lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Stage list
	Done    lipgloss.Style
	Active  lipgloss.Style
	Pending lipgloss.Style
	SubStep lipgloss.Style
	Value   lipgloss.Style

	// Slow-response and error panels
	Rotating lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Hint     lipgloss.Style

	// Buttons
	Button        lipgloss.Style
	ButtonFocused lipgloss.Style

	// Event log
	EventLifecycle lipgloss.Style
	EventSlow      lipgloss.Style
	EventAnalytics lipgloss.Style
}{
	// Layout styles
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	// Header styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Query: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	Meta: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Footer style
	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Stage list
	Done: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	Active: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	Pending: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	SubStep: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	Value: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220")),

	// Slow-response and error panels
	Rotating: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("177")),

	Warning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Buttons
	Button: lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("236")),

	ButtonFocused: lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(lipgloss.Color("16")).
		Background(lipgloss.Color("63")), // Bright blue for focused

	// Event log
	EventLifecycle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	EventSlow: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	EventAnalytics: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),
}
