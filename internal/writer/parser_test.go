package writer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/internal/llm"
	"github.com/ekarat/bookwright/pkg/types"
)

// TestParseOutline tests JSON extraction and the plain-text fallback.
func TestParseOutline(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []types.OutlineItem
	}{
		{
			name: "json array wrapped in prose",
			raw:  `Here it is: [{"title":"Awakening","summary":"The hero wakes."}] Enjoy!`,
			want: []types.OutlineItem{{Title: "Awakening", Summary: "The hero wakes."}},
		},
		{
			name: "bare json array",
			raw:  `[{"title":"Varış","summary":"Dedektif gelir."},{"title":"İz","summary":"Ceset bulunur."}]`,
			want: []types.OutlineItem{
				{Title: "Varış", Summary: "Dedektif gelir."},
				{Title: "İz", Summary: "Ceset bulunur."},
			},
		},
		{
			name: "numbered lines fallback",
			raw:  "1. Başlangıç\n2. Yolculuk\n- Dönüş\n",
			want: []types.OutlineItem{
				{Title: "Başlangıç"},
				{Title: "Yolculuk"},
				{Title: "Dönüş"},
			},
		},
		{
			name: "blank lines skipped in fallback",
			raw:  "Giriş\n\n\nSonuç",
			want: []types.OutlineItem{{Title: "Giriş"}, {Title: "Sonuç"}},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutline(tt.raw))
		})
	}
}

// TestParseOutlineBrokenJSONFallsBack tests that unparseable delimiters
// drop to the line fallback instead of failing.
func TestParseOutlineBrokenJSONFallsBack(t *testing.T) {
	raw := "Plan [not json] here"
	items := ParseOutline(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "Plan [not json] here", items[0].Title)
}

// TestParseWorld tests world payload extraction.
func TestParseWorld(t *testing.T) {
	raw := `Sure! {"characters":[{"name":"Kerem","age":42,"personality":"sessiz","relationships":["Ayla"]}],` +
		`"locations":[{"name":"Liman","detail":"sisli"}],"rules":["Kimse ayrılamaz."]} Done.`

	world, err := ParseWorld(raw)
	require.NoError(t, err)

	require.Len(t, world.Characters, 1)
	assert.Equal(t, "Kerem", world.Characters[0].Name)
	// Numeric ages are tolerated and kept as text.
	assert.Equal(t, "42", world.Characters[0].Age)
	assert.Equal(t, []string{"Ayla"}, world.Characters[0].Relationships)

	require.Len(t, world.Locations, 1)
	assert.Equal(t, "Liman", world.Locations[0].Name)
	assert.Equal(t, []string{"Kimse ayrılamaz."}, world.Rules)
}

// TestParseWorldMalformed tests the malformed-response error path.
func TestParseWorldMalformed(t *testing.T) {
	_, err := ParseWorld("no json at all")
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))

	_, err = ParseWorld(`{"characters": broken}`)
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))
}

// TestParseGlossary tests glossary extraction.
func TestParseGlossary(t *testing.T) {
	items, err := ParseGlossary(`Terimler: [{"term":"Sis Çanı","definition":"Uyarı çanı."}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sis Çanı", items[0].Term)

	_, err = ParseGlossary("düz metin")
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))
}

// TestParseBlurb tests final-review payload extraction.
func TestParseBlurb(t *testing.T) {
	raw := `İşte: {"notes":["Tempo iyi.","Son bölüm kısa."],"backCover":"Sisli bir liman kasabası...","short":"Bir dedektif hikayesi."}`

	blurb, err := ParseBlurb(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tempo iyi.", "Son bölüm kısa."}, blurb.Notes)
	assert.Equal(t, "Sisli bir liman kasabası...", blurb.BackCover)
	assert.Equal(t, "Bir dedektif hikayesi.", blurb.Short)

	_, err = ParseBlurb("hiç json yok")
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))
}
