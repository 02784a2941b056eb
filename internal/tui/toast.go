package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToastLevel selects the toast color and icon.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

// Toast is a transient status message shown above the status bar.
type Toast struct {
	Message string
	Level   ToastLevel
	Visible bool
}

type clearToastMsg struct{}

var (
	toastBaseStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder())

	toastInfoStyle = toastBaseStyle.
			BorderForeground(lipgloss.Color("#00D7FF")).
			Foreground(lipgloss.Color("#00D7FF"))

	toastSuccessStyle = toastBaseStyle.
				BorderForeground(lipgloss.Color("#10B981")).
				Foreground(lipgloss.Color("#10B981"))

	toastWarningStyle = toastBaseStyle.
				BorderForeground(lipgloss.Color("#F59E0B")).
				Foreground(lipgloss.Color("#F59E0B"))

	toastErrorStyle = toastBaseStyle.
			BorderForeground(lipgloss.Color("#EF4444")).
			Foreground(lipgloss.Color("#EF4444"))
)

func (t Toast) icon() string {
	switch t.Level {
	case ToastSuccess:
		return "✓"
	case ToastError:
		return "✗"
	case ToastWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

func (t Toast) style() lipgloss.Style {
	switch t.Level {
	case ToastSuccess:
		return toastSuccessStyle
	case ToastError:
		return toastErrorStyle
	case ToastWarning:
		return toastWarningStyle
	default:
		return toastInfoStyle
	}
}

// showToast displays a toast and schedules its removal.
func showToast(msg string, level ToastLevel, duration time.Duration) (Toast, tea.Cmd) {
	return Toast{
			Message: msg,
			Level:   level,
			Visible: true,
		},
		tea.Tick(duration, func(time.Time) tea.Msg {
			return clearToastMsg{}
		})
}

// Update clears the toast when its timer fires.
func (t *Toast) Update(msg tea.Msg) {
	if _, ok := msg.(clearToastMsg); ok {
		t.Visible = false
		t.Message = ""
	}
}

// View renders the toast, truncated to maxWidth.
func (t Toast) View(maxWidth int) string {
	if !t.Visible || t.Message == "" {
		return ""
	}

	msg := t.Message
	if maxWidth > 10 {
		if runes := []rune(msg); len(runes) > maxWidth-10 {
			msg = string(runes[:maxWidth-13]) + "..."
		}
	}

	return t.style().Render(t.icon() + " " + msg)
}
