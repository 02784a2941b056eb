// Package tui provides the terminal user interface using Bubble Tea.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ekarat/bookwright/internal/tui/styles"
	"github.com/ekarat/bookwright/internal/writer"
)

// sessionEventMsg carries one session event into the Bubble Tea loop.
// ok is false once the session's event feed has closed.
type sessionEventMsg struct {
	event writer.Event
	ok    bool
}

// waitEvent blocks on the session event feed and converts the next
// event into a message. Re-issued after every received event.
func waitEvent(events <-chan writer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return sessionEventMsg{event: ev, ok: ok}
	}
}

// StreamModel renders a running chapter-generation session: the draft
// grows in the viewport as deltas arrive, ctrl+c cancels the session
// without quitting the program until the feed has drained.
type StreamModel struct {
	session *writer.Session
	title   string

	viewport viewport.Model
	spinner  spinner.Model
	toast    Toast

	draft     string
	finished  bool
	cancelled bool
	err       error

	width  int
	height int
	ready  bool
}

// NewStream creates a stream view for an already-started session.
func NewStream(session *writer.Session, bookTitle string) *StreamModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return &StreamModel{
		session: session,
		title:   bookTitle,
		spinner: sp,
	}
}

// RunStream drives the stream view to completion and returns the
// session error, if any.
func RunStream(session *writer.Session, bookTitle string) error {
	m := NewStream(session, bookTitle)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return m.err
}

// Init starts the spinner and the event pump.
func (m *StreamModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitEvent(m.session.Events()))
}

// Update handles messages.
func (m *StreamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.refreshViewport()

	case spinner.TickMsg:
		if !m.finished {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case sessionEventMsg:
		return m.handleSessionEvent(msg)

	case clearToastMsg:
		m.toast.Update(msg)
		if m.finished {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *StreamModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.finished {
			return m, tea.Quit
		}
		// Closing the feed unblocks the pending waitEvent, which then
		// observes the closed channel and finishes the view.
		m.session.Cancel()
		return m, nil

	case tea.KeyRunes:
		if m.finished && string(msg.Runes) == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *StreamModel) handleSessionEvent(msg sessionEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		// Feed closed. Without a terminal event this was a cancel.
		if !m.finished {
			m.finished = true
			m.cancelled = true
			m.draft = m.session.Draft()
			m.refreshViewport()
			var cmd tea.Cmd
			m.toast, cmd = showToast("Üretim iptal edildi, taslak kaydedilmedi", ToastWarning, 1500*time.Millisecond)
			return m, cmd
		}
		return m, tea.Quit
	}

	switch msg.event.Kind {
	case writer.EventDelta:
		m.draft = msg.event.Draft
		m.refreshViewport()
		return m, waitEvent(m.session.Events())

	case writer.EventDone:
		m.finished = true
		m.draft = msg.event.Draft
		m.refreshViewport()
		var cmd tea.Cmd
		m.toast, cmd = showToast("Bölüm kaydedildi", ToastSuccess, 1500*time.Millisecond)
		return m, tea.Batch(cmd, waitEvent(m.session.Events()))

	case writer.EventError:
		m.finished = true
		m.err = msg.event.Err
		m.draft = msg.event.Draft
		m.refreshViewport()
		var cmd tea.Cmd
		m.toast, cmd = showToast("Üretim başarısız: "+msg.event.Err.Error(), ToastError, 3*time.Second)
		return m, tea.Batch(cmd, waitEvent(m.session.Events()))
	}
	return m, waitEvent(m.session.Events())
}

func (m *StreamModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(styles.DraftText.Render(m.draft))
	m.viewport.GotoBottom()
}

// View renders the stream view.
func (m *StreamModel) View() string {
	if !m.ready {
		return "Başlatılıyor..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s — Bölüm %d", m.title, m.session.ChapterIndex())
	sb.WriteString(styles.Header.Render(header))
	sb.WriteString("\n")

	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if toast := m.toast.View(m.width); toast != "" {
		sb.WriteString(toast)
		sb.WriteString("\n")
	}

	sb.WriteString(m.statusLine())
	sb.WriteString("\n")

	var hint string
	if m.finished {
		hint = styles.HelpKey.Render("q") + styles.HelpDesc.Render(" çıkış")
	} else {
		hint = styles.HelpKey.Render("ctrl+c") + styles.HelpDesc.Render(" iptal")
	}
	sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, hint))

	return sb.String()
}

func (m *StreamModel) statusLine() string {
	chars := fmt.Sprintf("%d karakter", len([]rune(m.draft)))

	switch {
	case m.err != nil:
		return styles.ErrorText.Render("Hata: " + m.err.Error())
	case m.cancelled:
		return styles.StatusBar.Render("İptal edildi · " + chars)
	case m.finished:
		return styles.StatusBar.Render("Tamamlandı · " + chars)
	case m.session.State() == writer.StateRequesting:
		return m.spinner.View() + " " + styles.MutedText.Render("İstek gönderiliyor...")
	default:
		return m.spinner.View() + " " + styles.TokenCounter.Render("Yazılıyor · "+chars)
	}
}
