package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette
var (
	// Core colors
	blue  = lipgloss.Color("#89b4fa") // primary
	green = lipgloss.Color("#a6e3a1") // success

	// Neutral tones
	subtext0 = lipgloss.Color("#a6adc8")
	overlay1 = lipgloss.Color("#7f849c")
	overlay0 = lipgloss.Color("#6c7086")
)

var (
	// Theme aliases
	primaryColor = blue
	successColor = green

	// Title
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	// List items
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(subtext0)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(primaryColor).
				Bold(true)

	// Status indicators
	runningIndicator = lipgloss.NewStyle().
				Foreground(successColor).
				SetString("●")

	savedIndicator = lipgloss.NewStyle().
			Foreground(overlay0).
			SetString("○")

	// Section header style
	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(overlay1).
				Bold(true)

	// Help bar
	helpStyle = lipgloss.NewStyle().
			Foreground(overlay1).
			Padding(1, 2)

	// Dimmed text
	dimStyle = lipgloss.NewStyle().
			Foreground(overlay0)
)
