package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess = lipgloss.Color("76")  // green
	colorWarning = lipgloss.Color("214") // orange
	colorError   = lipgloss.Color("196") // red
	colorMuted   = lipgloss.Color("242") // gray

	headerStyle = lipgloss.NewStyle().Bold(true)

	okMark       = lipgloss.NewStyle().Foreground(colorSuccess).Render("✓")
	missingMark  = lipgloss.NewStyle().Foreground(colorError).Render("✗")
	optionalMark = lipgloss.NewStyle().Foreground(colorWarning).Render("○")

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
