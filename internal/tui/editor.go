package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ekarat/bookwright/internal/tui/styles"
	"github.com/ekarat/bookwright/internal/writer"
)

// EditorModel is the manual draft editor for a single chapter. Every
// edit feeds the writer's debounced autosave; quitting flushes whatever
// is still pending so no keystrokes are lost.
type EditorModel struct {
	writer *writer.Writer
	index  int
	title  string

	textarea textarea.Model
	toast    Toast

	saveErr error
	width   int
	height  int
	ready   bool
}

// NewEditor creates an editor preloaded with the chapter's draft.
func NewEditor(w *writer.Writer, index int, bookTitle, draft string) *EditorModel {
	ta := textarea.New()
	ta.Placeholder = "Bölüm metnini buraya yazın..."
	ta.SetValue(draft)
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false

	return &EditorModel{
		writer:   w,
		index:    index,
		title:    bookTitle,
		textarea: ta,
	}
}

// RunEditor drives the editor to completion.
func RunEditor(w *writer.Writer, index int, bookTitle, draft string) error {
	m := NewEditor(w, index, bookTitle, draft)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return m.saveErr
}

// Init starts the cursor blink.
func (m *EditorModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages.
func (m *EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.saveErr = m.writer.FlushDraft()
			return m, tea.Quit

		case tea.KeyCtrlS:
			if err := m.writer.SaveChapter(m.index, m.textarea.Value()); err != nil {
				m.saveErr = err
				var cmd tea.Cmd
				m.toast, cmd = showToast("Kaydetme başarısız: "+err.Error(), ToastError, 3*time.Second)
				return m, cmd
			}
			var cmd tea.Cmd
			m.toast, cmd = showToast("Kaydedildi", ToastSuccess, time.Second)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(msg.Width - 2)
		m.textarea.SetHeight(msg.Height - 5)
		m.ready = true

	case clearToastMsg:
		m.toast.Update(msg)
		return m, nil
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)

	if after := m.textarea.Value(); after != before {
		m.writer.DraftChanged(m.index, after)
	}

	return m, cmd
}

// View renders the editor.
func (m *EditorModel) View() string {
	if !m.ready {
		return "Başlatılıyor..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s — Bölüm %d", m.title, m.index)
	sb.WriteString(styles.Header.Render(header))
	sb.WriteString("\n")

	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")

	if toast := m.toast.View(m.width); toast != "" {
		sb.WriteString(toast)
		sb.WriteString("\n")
	}

	hint := styles.HelpKey.Render("ctrl+s") + styles.HelpDesc.Render(" kaydet  ") +
		styles.HelpKey.Render("esc") + styles.HelpDesc.Render(" çıkış")
	sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, hint))

	return sb.String()
}
