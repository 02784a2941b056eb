package writer

import (
	"fmt"
	"strings"

	"github.com/ekarat/bookwright/internal/store"
)

// BuildManuscript assembles the full manuscript markdown from the plan
// metadata and every written chapter, persists it as the manuscript
// text, and returns it. Chapters appear in ascending index order under
// their "# Bölüm N" headings; unwritten indexes are skipped.
func (w *Writer) BuildManuscript() (string, error) {
	state, err := w.State()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if state.Plan.Title != "" {
		fmt.Fprintf(&b, "%s\n\n", state.Plan.Title)
	}
	if state.Plan.Genre != "" || state.Plan.Audience != "" {
		fmt.Fprintf(&b, "Tür: %s | Kitle: %s\n\n", state.Plan.Genre, state.Plan.Audience)
	}

	wrote := false
	for _, ch := range state.Chapters {
		if !ch.HasDraft() {
			continue
		}
		if wrote {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "# Bölüm %d\n\n%s", ch.Index, strings.TrimSpace(ch.Draft))
		wrote = true
	}
	if !wrote {
		return "", fmt.Errorf("no written chapters to assemble")
	}

	text := b.String()
	if err := w.store.SaveText(w.bookID, store.TextManuscript, text); err != nil {
		return "", err
	}
	return text, nil
}

// Manuscript returns the stored manuscript text, assembling it first
// when none has been built yet.
func (w *Writer) Manuscript() (string, error) {
	text, err := w.store.GetText(w.bookID, store.TextManuscript)
	if err != nil || strings.TrimSpace(text) == "" {
		return w.BuildManuscript()
	}
	return text, nil
}
