package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/ekarat/bookwright/pkg/types"
)

// ErrWizardCancelled is returned when the user aborts the plan wizard.
var ErrWizardCancelled = errors.New("wizard cancelled")

// PlanAnswers holds the raw wizard answers before they become a plan.
type PlanAnswers struct {
	Title    string
	Topic    string
	MainIdea string
	Genre    string
	Audience string
	Language string
	Tone     string
	Style    string
	Length   string
	Mode     string
}

var genreOptions = []string{
	"fantastik",
	"bilim kurgu",
	"polisiye",
	"gerilim",
	"romantik",
	"dram",
	"çocuk",
	"kişisel gelişim",
}

var lengthOptions = []string{"kısa", "orta", "uzun"}

// RunPlanWizard collects a new book's writing plan interactively.
func RunPlanWizard() (types.Plan, error) {
	answers := PlanAnswers{
		Language: "tr",
		Length:   "orta",
		Mode:     string(types.OutlineChronological),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Kitap başlığı").
				Value(&answers.Title).
				Validate(nonEmpty("başlık")),
			huh.NewSelect[string]().
				Title("Tür").
				Options(huh.NewOptions(genreOptions...)...).
				Value(&answers.Genre),
			huh.NewInput().
				Title("Hedef kitle").
				Placeholder("yetişkin, genç yetişkin, çocuk...").
				Value(&answers.Audience),
			huh.NewInput().
				Title("Dil").
				Value(&answers.Language),
			huh.NewInput().
				Title("Ton").
				Placeholder("karanlık, mizahi, lirik...").
				Value(&answers.Tone),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Konu").
				Description("Kitap ne anlatıyor?").
				Value(&answers.Topic),
			huh.NewText().
				Title("Ana fikir").
				Value(&answers.MainIdea),
			huh.NewInput().
				Title("Üslup").
				Placeholder("sade, betimleyici, deneysel...").
				Value(&answers.Style),
			huh.NewSelect[string]().
				Title("Uzunluk").
				Options(huh.NewOptions(lengthOptions...)...).
				Value(&answers.Length),
			huh.NewSelect[string]().
				Title("Outline düzeni").
				Options(
					huh.NewOption("kronolojik", string(types.OutlineChronological)),
					huh.NewOption("tematik", string(types.OutlineThematic)),
				).
				Value(&answers.Mode),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return types.Plan{}, ErrWizardCancelled
		}
		return types.Plan{}, err
	}

	return PlanFromAnswers(answers)
}

// PlanFromAnswers validates wizard answers and builds the plan.
func PlanFromAnswers(a PlanAnswers) (types.Plan, error) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return types.Plan{}, fmt.Errorf("başlık boş olamaz")
	}

	language := strings.TrimSpace(a.Language)
	if language == "" {
		language = "tr"
	}

	mode := types.OutlineMode(a.Mode)
	if mode != types.OutlineChronological && mode != types.OutlineThematic {
		mode = types.OutlineChronological
	}

	return types.Plan{
		Title:       title,
		Topic:       strings.TrimSpace(a.Topic),
		MainIdea:    strings.TrimSpace(a.MainIdea),
		Genre:       a.Genre,
		Audience:    strings.TrimSpace(a.Audience),
		Language:    language,
		Tone:        strings.TrimSpace(a.Tone),
		Style:       strings.TrimSpace(a.Style),
		Length:      a.Length,
		OutlineMode: mode,
	}, nil
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s boş olamaz", field)
		}
		return nil
	}
}
