// Package styles provides Lip Gloss styling shared by the TUI views.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary     = lipgloss.Color("#2563EB") // Blue
	Error       = lipgloss.Color("#EF4444") // Red
	Surface     = lipgloss.Color("#374151") // Dark gray
	TextPrimary = lipgloss.Color("#F9FAFB") // Almost white
	TextMuted   = lipgloss.Color("#9CA3AF") // Light gray

	// Header bar at the top of every view
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Padding(0, 1).
		MarginBottom(1)

	// Chapter draft text while it streams in
	DraftText = lipgloss.NewStyle().
			Foreground(TextPrimary).
			PaddingLeft(1)

	// Status bar at the bottom
	StatusBar = lipgloss.NewStyle().
			Background(Surface).
			Foreground(TextMuted).
			Padding(0, 1)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(TextMuted)

	// Help line
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(TextMuted)

	Spinner = lipgloss.NewStyle().
		Foreground(Primary)

	// Token counter shown during streaming
	TokenCounter = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)
)
