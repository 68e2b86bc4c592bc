package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waftester/netbridge/pkg/exceptions"
)

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4") // Purple - brand color
	Secondary = lipgloss.Color("#00D4AA") // Cyan/Teal

	Success = lipgloss.Color("#00D26A") // Bright green
	Warning = lipgloss.Color("#FFB800") // Amber
	Error   = lipgloss.Color("#FF3838") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray

	// HTTP status code colors
	Status2xx = lipgloss.Color("#00D26A")
	Status3xx = lipgloss.Color("#4D96FF")
	Status4xx = lipgloss.Color("#FFD93D")
	Status5xx = lipgloss.Color("#FF3838")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(10)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	MessageStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)
)

// StatusCodeStyle returns the style for an HTTP status code.
func StatusCodeStyle(code int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return base.Foreground(Status2xx)
	case code >= 300 && code < 400:
		return base.Foreground(Status3xx)
	case code >= 400 && code < 500:
		return base.Foreground(Status4xx)
	case code >= 500:
		return base.Foreground(Status5xx)
	default:
		return base.Foreground(Muted)
	}
}

// ClassStyle returns the badge style for an exception class: network
// failures in red, iteration signals muted, everything else amber.
func ClassStyle(c exceptions.Class) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch {
	case c.Network():
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Error)
	case c == exceptions.ClassStopIteration, c == exceptions.ClassStopAsyncIteration:
		return base.Foreground(Muted)
	default:
		return base.Foreground(lipgloss.Color("#000000")).Background(Warning)
	}
}
