package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/pkg/types"
)

func TestPlanFromAnswers(t *testing.T) {
	plan, err := PlanFromAnswers(PlanAnswers{
		Title:    "  Sisli Liman  ",
		Topic:    "Bir liman kasabasında kaybolan balıkçılar.",
		Genre:    "polisiye",
		Audience: "yetişkin",
		Language: "tr",
		Tone:     "karanlık",
		Length:   "orta",
		Mode:     string(types.OutlineThematic),
	})
	require.NoError(t, err)

	assert.Equal(t, "Sisli Liman", plan.Title)
	assert.Equal(t, "polisiye", plan.Genre)
	assert.Equal(t, types.OutlineThematic, plan.OutlineMode)
}

func TestPlanFromAnswersDefaults(t *testing.T) {
	plan, err := PlanFromAnswers(PlanAnswers{Title: "T"})
	require.NoError(t, err)

	assert.Equal(t, "tr", plan.Language)
	assert.Equal(t, types.OutlineChronological, plan.OutlineMode)
}

func TestPlanFromAnswersRejectsBlankTitle(t *testing.T) {
	_, err := PlanFromAnswers(PlanAnswers{Title: "   "})
	assert.Error(t, err)

	_, err = PlanFromAnswers(PlanAnswers{})
	assert.Error(t, err)
}

func TestPlanFromAnswersUnknownModeFallsBack(t *testing.T) {
	plan, err := PlanFromAnswers(PlanAnswers{Title: "T", Mode: "rastgele"})
	require.NoError(t, err)
	assert.Equal(t, types.OutlineChronological, plan.OutlineMode)
}

func TestNonEmptyValidator(t *testing.T) {
	v := nonEmpty("başlık")
	assert.Error(t, v(""))
	assert.Error(t, v("   "))
	assert.NoError(t, v("Sisli Liman"))
}
