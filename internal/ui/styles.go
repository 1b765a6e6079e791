// Package ui renders CLI output with lipgloss.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	ColorPrimary   = lipgloss.Color("205") // Pink
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("160") // Red
	ColorWarning   = lipgloss.Color("214") // Orange/Yellow
	ColorText      = lipgloss.Color("252") // White/Gray
	ColorCyan      = lipgloss.Color("87")  // Cyan for folders
	ColorBlue      = lipgloss.Color("75")  // Blue for versions

	// Base Styles
	StyleTitle   = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorSecondary)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	// Components
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	StyleSectionTitle = lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true).
				Underline(true)

	// Branch tree
	StyleBranchActive = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleBranchLabel  = lipgloss.NewStyle().Foreground(ColorText)
	StyleBranchFolder = lipgloss.NewStyle().Foreground(ColorCyan)
	StyleTreeGuide    = lipgloss.NewStyle().Foreground(ColorSecondary)

	// Snapshots and diffs
	StyleVersion = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	StyleAdded   = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleRemoved = lipgloss.NewStyle().Foreground(ColorError)
	StyleChanged = lipgloss.NewStyle().Foreground(ColorWarning)
)

// Icon returns a styled icon string
func Icon(icon string, style lipgloss.Style) string {
	return style.Render(icon)
}
