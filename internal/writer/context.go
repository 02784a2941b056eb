// Package writer implements the chapter drafting core: context
// assembly, generation sessions, autosave, and the AI-backed
// operations over a book's accumulated state.
package writer

import (
	"fmt"
	"strings"

	"github.com/ekarat/bookwright/pkg/types"
)

// DefaultContextWindow is how many prior chapters ride along in a
// generation prompt when the caller does not override it.
const DefaultContextWindow = 5

// TokenCounter reports token counts for window checks and trims text
// to a token limit when the assembled context outgrows the model.
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, maxTokens int, fromEnd bool) string
}

// Assembler builds the prompt context blob from a book state snapshot.
// Build is a pure function: identical inputs produce byte-identical
// output, no input is mutated, and empty collections render as empty
// sections.
type Assembler struct {
	// Window bounds how many chapters strictly before the target index
	// are included. Zero means DefaultContextWindow.
	Window int
}

// Build serializes the story state for generating the chapter at
// targetIndex. Section order is fixed: metadata, outline, characters,
// locations, rules, glossary, then the trailing chapter window in
// ascending index order.
func (a Assembler) Build(state types.BookState, targetIndex int) string {
	window := a.Window
	if window <= 0 {
		window = DefaultContextWindow
	}

	plan := state.Plan

	meta := fmt.Sprintf("Başlık: %s\nTür: %s\nKitle: %s\nDil: %s\nTon: %s",
		plan.Title, plan.Genre, plan.Audience, plan.Language, plan.Tone)

	outline := make([]string, 0, len(plan.Outline))
	for i, item := range plan.Outline {
		outline = append(outline, fmt.Sprintf("%d. %s — %s", i+1, item.Title, item.Summary))
	}

	chars := make([]string, 0, len(state.World.Characters))
	for _, c := range state.World.Characters {
		chars = append(chars, fmt.Sprintf("%s: %s", c.Name, c.Personality))
	}

	locs := make([]string, 0, len(state.World.Locations))
	for _, l := range state.World.Locations {
		locs = append(locs, fmt.Sprintf("%s: %s", l.Name, l.Detail))
	}

	gloss := make([]string, 0, len(state.Glossary))
	for _, g := range state.Glossary {
		gloss = append(gloss, fmt.Sprintf("%s: %s", g.Term, g.Definition))
	}

	prev := make([]string, 0, window)
	for _, c := range priorWindow(state.Chapters, targetIndex, window) {
		prev = append(prev, fmt.Sprintf("# Bölüm %d\n%s", c.Index, c.Draft))
	}

	sections := []string{
		meta,
		"Outline:\n" + strings.Join(outline, "\n"),
		"Karakterler:\n" + strings.Join(chars, "\n"),
		"Mekanlar:\n" + strings.Join(locs, "\n"),
		"Kurallar:\n" + strings.Join(state.World.Rules, "\n"),
		"Sözlük:\n" + strings.Join(gloss, "\n"),
		"Önceki Bölümler:\n" + strings.Join(prev, "\n\n"),
	}

	return strings.Join(sections, "\n\n")
}

// priorWindow returns the last n chapters with an index strictly below
// targetIndex, in ascending index order. Chapters are already sorted by
// the store.
func priorWindow(chapters []types.Chapter, targetIndex, n int) []types.Chapter {
	var prior []types.Chapter
	for _, c := range chapters {
		if c.Index < targetIndex {
			prior = append(prior, c)
		}
	}
	if len(prior) > n {
		prior = prior[len(prior)-n:]
	}
	return prior
}

// ContextTokens reports the token count of the assembled context for
// the target index, for pre-flight window checks. A nil counter yields
// zero.
func (a Assembler) ContextTokens(state types.BookState, targetIndex int, counter TokenCounter) int {
	if counter == nil {
		return 0
	}
	return counter.Count(a.Build(state, targetIndex))
}
