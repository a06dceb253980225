package ui

import "github.com/charmbracelet/lipgloss"

// Define colors
const (
	ColorHeaderFg = lipgloss.Color("252") // Light Gray
	ColorHeaderBg = lipgloss.Color("62")  // Purple

	ColorTitle    = lipgloss.Color("51")  // Cyan
	ColorDimmedFg = lipgloss.Color("244") // Dim gray

	ColorStatusSuccess = lipgloss.Color("40")  // Green
	ColorStatusFailed  = lipgloss.Color("196") // Red
	ColorStatusSkipped = lipgloss.Color("214") // Orange/Yellow
	ColorStatusPending = lipgloss.Color("244") // Dim gray
	ColorStatusRunning = lipgloss.Color("205") // Pink (matches spinner)
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorTitle)
	BoldStyle   = lipgloss.NewStyle().Bold(true)
	DimmedStyle = lipgloss.NewStyle().Foreground(ColorDimmedFg)

	StatusStyleSuccess = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed  = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleRunning = lipgloss.NewStyle().Foreground(ColorStatusRunning)
)
