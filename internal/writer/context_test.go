package writer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/pkg/types"
)

func fullState() types.BookState {
	return types.BookState{
		Plan: types.Plan{
			Title:    "Sisli Liman",
			Genre:    "gizem",
			Audience: "yetişkin",
			Language: "Türkçe",
			Tone:     "karanlık",
			Outline: []types.OutlineItem{
				{Title: "Varış", Summary: "Dedektif kasabaya gelir."},
				{Title: "İlk İz", Summary: "Limanda bir ceset bulunur."},
			},
		},
		World: types.World{
			Characters: []types.Character{
				{Name: "Kerem", Personality: "içine kapanık, gözlemci"},
			},
			Locations: []types.Location{
				{Name: "Liman", Detail: "sisli, eski rıhtım"},
			},
			Rules: []string{"Kasabadan kimse ayrılamaz."},
		},
		Glossary: []types.GlossaryItem{
			{Term: "Sis Çanı", Definition: "Limanın uyarı çanı."},
		},
		Chapters: []types.Chapter{
			{Index: 1, Draft: "Birinci bölüm metni."},
			{Index: 2, Draft: "İkinci bölüm metni."},
		},
	}
}

// TestAssemblerDeterminism tests that identical inputs produce
// byte-identical output.
func TestAssemblerDeterminism(t *testing.T) {
	a := Assembler{Window: 5}
	state := fullState()

	first := a.Build(state, 3)
	second := a.Build(state, 3)
	assert.Equal(t, first, second)
}

// TestAssemblerSectionOrder tests the fixed section layout.
func TestAssemblerSectionOrder(t *testing.T) {
	a := Assembler{}
	out := a.Build(fullState(), 3)

	markers := []string{
		"Başlık: Sisli Liman",
		"Outline:",
		"Karakterler:",
		"Mekanlar:",
		"Kurallar:",
		"Sözlük:",
		"Önceki Bölümler:",
	}

	last := -1
	for _, marker := range markers {
		pos := strings.Index(out, marker)
		require.GreaterOrEqual(t, pos, 0, "missing section %q", marker)
		assert.Greater(t, pos, last, "section %q out of order", marker)
		last = pos
	}

	assert.Contains(t, out, "1. Varış — Dedektif kasabaya gelir.")
	assert.Contains(t, out, "Kerem: içine kapanık, gözlemci")
	assert.Contains(t, out, "Liman: sisli, eski rıhtım")
	assert.Contains(t, out, "Sis Çanı: Limanın uyarı çanı.")
	assert.Contains(t, out, "# Bölüm 1\nBirinci bölüm metni.")
}

// TestAssemblerWindow tests the strict prior-chapter window bound.
func TestAssemblerWindow(t *testing.T) {
	state := fullState()
	state.Chapters = nil
	for i := 1; i <= 10; i++ {
		state.Chapters = append(state.Chapters, types.Chapter{
			Index: i,
			Draft: fmt.Sprintf("bölüm %d metni", i),
		})
	}

	a := Assembler{Window: 3}
	out := a.Build(state, 8)

	// Last three strictly before the target, ascending.
	assert.Contains(t, out, "# Bölüm 5")
	assert.Contains(t, out, "# Bölüm 6")
	assert.Contains(t, out, "# Bölüm 7")
	assert.NotContains(t, out, "# Bölüm 4")
	assert.NotContains(t, out, "# Bölüm 8")
	assert.NotContains(t, out, "# Bölüm 9")

	assert.Less(t, strings.Index(out, "# Bölüm 5"), strings.Index(out, "# Bölüm 6"))
	assert.Less(t, strings.Index(out, "# Bölüm 6"), strings.Index(out, "# Bölüm 7"))
}

// TestAssemblerGaps tests that unwritten indexes are simply absent.
func TestAssemblerGaps(t *testing.T) {
	state := fullState()
	state.Chapters = []types.Chapter{
		{Index: 1, Draft: "bir"},
		{Index: 4, Draft: "dört"},
	}

	a := Assembler{Window: 5}
	out := a.Build(state, 5)

	assert.Contains(t, out, "# Bölüm 1")
	assert.Contains(t, out, "# Bölüm 4")
	assert.NotContains(t, out, "# Bölüm 2")
	assert.NotContains(t, out, "# Bölüm 3")
}

// TestAssemblerEmptyState tests that an empty book still renders every
// section header.
func TestAssemblerEmptyState(t *testing.T) {
	a := Assembler{}
	out := a.Build(types.BookState{}, 1)

	assert.Contains(t, out, "Başlık: ")
	assert.Contains(t, out, "Outline:")
	assert.Contains(t, out, "Önceki Bölümler:")
}

// TestAssemblerDoesNotMutate tests that Build never touches its input.
func TestAssemblerDoesNotMutate(t *testing.T) {
	state := fullState()
	chaptersBefore := len(state.Chapters)
	outlineBefore := len(state.Plan.Outline)

	Assembler{Window: 1}.Build(state, 2)

	assert.Len(t, state.Chapters, chaptersBefore)
	assert.Len(t, state.Plan.Outline, outlineBefore)
}

// fixedCounter counts and slices bytes, standing in for a tokenizer.
type fixedCounter struct{}

func (c fixedCounter) Count(text string) int { return len(text) }

func (c fixedCounter) Truncate(text string, maxTokens int, fromEnd bool) string {
	if maxTokens <= 0 {
		return ""
	}
	if len(text) <= maxTokens {
		return text
	}
	if fromEnd {
		return text[len(text)-maxTokens:]
	}
	return text[:maxTokens]
}

// TestContextTokens tests the pre-flight token report.
func TestContextTokens(t *testing.T) {
	a := Assembler{}
	state := fullState()

	assert.Equal(t, 0, a.ContextTokens(state, 3, nil))
	assert.Equal(t, len(a.Build(state, 3)), a.ContextTokens(state, 3, fixedCounter{}))
}
