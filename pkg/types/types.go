// Package types provides shared data models for bookwright.
package types

import (
	"strings"
	"time"
)

// OutlineMode selects how the chapter plan is structured.
type OutlineMode string

const (
	// OutlineChronological orders chapters along the story timeline.
	OutlineChronological OutlineMode = "chronological"

	// OutlineThematic groups chapters by theme rather than time.
	OutlineThematic OutlineMode = "thematic"
)

// Book represents a single book in the user's library.
type Book struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Genre     string    `yaml:"genre" json:"genre"`
	Language  string    `yaml:"language" json:"language"`
	Tone      string    `yaml:"tone" json:"tone"`
	OwnerID   string    `yaml:"owner_id" json:"owner_id"`
	CoverURL  string    `yaml:"cover_url,omitempty" json:"cover_url,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// Plan is the per-book writing plan: what the book is about and the
// ordered chapter outline driving generation.
type Plan struct {
	Title          string        `json:"title"`
	Topic          string        `json:"topic"`
	MainIdea       string        `json:"main_idea"`
	Themes         string        `json:"themes"`
	Message        string        `json:"message"`
	Genre          string        `json:"genre"`
	Audience       string        `json:"audience"`
	Language       string        `json:"language"`
	Tone           string        `json:"tone"`
	Style          string        `json:"style"`
	Length         string        `json:"length"`
	OutlineMode    OutlineMode   `json:"outline_mode"`
	Outline        []OutlineItem `json:"outline"`
	RollingSummary string        `json:"rolling_summary"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// OutlineItem is a planned chapter. Its position in the outline slice
// defines the chapter number (1-based).
type OutlineItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Chapter is a written (or in-progress) chapter draft, keyed by its
// 1-based index within a book. At most one chapter exists per
// (book, index); indexes may have gaps while chapters are unwritten.
type Chapter struct {
	Index          int       `json:"index"`
	Draft          string    `json:"draft"`
	OutlineSummary string    `json:"outline_summary,omitempty"`
	Approved       bool      `json:"approved"`
	ApprovedAt     time.Time `json:"approved_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasDraft reports whether the chapter contains any non-blank text.
func (c Chapter) HasDraft() bool {
	return strings.TrimSpace(c.Draft) != ""
}

// Character is a cast member of the book's world.
type Character struct {
	Name          string   `json:"name"`
	Age           string   `json:"age,omitempty"`
	Personality   string   `json:"personality,omitempty"`
	Backstory     string   `json:"backstory,omitempty"`
	Motivation    string   `json:"motivation,omitempty"`
	Relationships []string `json:"relationships,omitempty"`
	Voice         string   `json:"voice,omitempty"`
}

// Location is a place in the book's world.
type Location struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// World holds the book's worldbuilding state: cast, places, and the
// rules the story must not break.
type World struct {
	Characters []Character `json:"characters"`
	Locations  []Location  `json:"locations"`
	Rules      []string    `json:"rules"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// GlossaryItem is a single term/definition pair in the book's glossary.
type GlossaryItem struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Blurb holds the final-review outputs for a book.
type Blurb struct {
	Notes     []string  `json:"notes"`
	BackCover string    `json:"back_cover"`
	Short     string    `json:"short"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookState is the accumulated story state consumed by the context
// assembler: plan, world, glossary, and whatever chapters exist so far
// in ascending index order.
type BookState struct {
	Plan     Plan
	World    World
	Glossary []GlossaryItem
	Chapters []Chapter
}

// OutlineItemAt returns the outline item for a 1-based chapter index,
// or a zero item when the outline has no entry there.
func (s BookState) OutlineItemAt(index int) OutlineItem {
	if index < 1 || index > len(s.Plan.Outline) {
		return OutlineItem{}
	}
	return s.Plan.Outline[index-1]
}

// ChapterAt returns the chapter at the given index and whether it
// exists.
func (s BookState) ChapterAt(index int) (Chapter, bool) {
	for _, c := range s.Chapters {
		if c.Index == index {
			return c, true
		}
	}
	return Chapter{}, false
}

// ArchiveEntry is a point-in-time snapshot of the book universe.
type ArchiveEntry struct {
	ID        int64          `json:"id"`
	Plan      Plan           `json:"plan"`
	World     World          `json:"world"`
	Glossary  []GlossaryItem `json:"glossary"`
	Blurb     Blurb          `json:"blurb"`
	CreatedAt time.Time      `json:"created_at"`
}

// GlobalConfig is the user-wide configuration at
// ~/.config/bookwright/config.yaml.
type GlobalConfig struct {
	Version   int                        `yaml:"version"`
	LibraryDB string                     `yaml:"library_db"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
	Defaults  DefaultsConfig             `yaml:"defaults"`
	Writing   WritingConfig              `yaml:"writing"`
}

// ProviderConfig holds API configuration for a generation provider.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// DefaultsConfig specifies default settings.
type DefaultsConfig struct {
	Provider string `yaml:"provider"`
	Owner    string `yaml:"owner"`
}

// WritingConfig tunes the generation pipeline.
type WritingConfig struct {
	// ContextWindow is how many prior chapters are included in a
	// generation prompt.
	ContextWindow int `yaml:"context_window"`

	// AutosaveDelayMs is the debounce quiet period for draft saves.
	AutosaveDelayMs int `yaml:"autosave_delay_ms"`

	// Temperature for generation requests.
	Temperature float64 `yaml:"temperature"`
}

// AISettings is the resolved provider selection for a single call:
// which backend, which credential, which model. It is threaded
// explicitly through the writer instead of read from ambient state.
type AISettings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// DefaultGlobalConfig returns a new GlobalConfig with sensible defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Version:   1,
		LibraryDB: "~/bookwright/library.db",
		Providers: make(map[string]*ProviderConfig),
		Defaults: DefaultsConfig{
			Provider: "openai",
		},
		Writing: WritingConfig{
			ContextWindow:   5,
			AutosaveDelayMs: 1200,
			Temperature:     0.7,
		},
	}
}
