package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/internal/store"
	"github.com/ekarat/bookwright/internal/writer"
	"github.com/ekarat/bookwright/pkg/types"
)

func newTestWriter(t *testing.T, delay time.Duration) *writer.Writer {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))
	return writer.New(s, nil, "b1", writer.WithAutosaveDelay(delay))
}

func typeText(m *EditorModel, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestEditorAutosavesAfterTyping(t *testing.T) {
	w := newTestWriter(t, 30*time.Millisecond)
	m := NewEditor(w, 1, "T", "")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	typeText(m, "merhaba")

	require.Eventually(t, func() bool {
		state, err := w.State()
		if err != nil {
			return false
		}
		ch, ok := state.ChapterAt(1)
		return ok && ch.Draft == "merhaba"
	}, time.Second, 10*time.Millisecond)
}

func TestEditorFlushOnExit(t *testing.T) {
	w := newTestWriter(t, 10*time.Second)
	m := NewEditor(w, 1, "T", "")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	typeText(m, "taslak")

	// Debounce has not fired yet; esc flushes it.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.NoError(t, m.saveErr)

	state, err := w.State()
	require.NoError(t, err)
	ch, ok := state.ChapterAt(1)
	require.True(t, ok)
	assert.Equal(t, "taslak", ch.Draft)
}

func TestEditorManualSave(t *testing.T) {
	w := newTestWriter(t, 10*time.Second)
	m := NewEditor(w, 2, "T", "mevcut")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	state, err := w.State()
	require.NoError(t, err)
	ch, ok := state.ChapterAt(2)
	require.True(t, ok)
	assert.Equal(t, "mevcut", ch.Draft)
	assert.Contains(t, m.View(), "Kaydedildi")
}
