package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("39")  // blue
	colorError  = lipgloss.Color("196") // red
	colorMuted  = lipgloss.Color("240")

	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	SpinnerStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	BarFilledStyle = lipgloss.NewStyle().Foreground(colorAccent)
	BarEmptyStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	ErrorStyle     = lipgloss.NewStyle().Foreground(colorError)
	MutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
)

// Download bar glyphs and width in cells.
const (
	SymbolBarFull   = "█"
	SymbolBarEmpty  = "░"
	DefaultBarWidth = 30
)
