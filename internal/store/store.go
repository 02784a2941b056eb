// Package store provides the SQLite-backed document store for the
// library: books, plans, world state, glossaries, chapters, and
// archives. Writes are merge-upserts that only touch the fields a
// caller provides; every committed write carries a store-assigned
// timestamp and notifies subscribers of the owning book.
package store

import (
	"errors"

	"github.com/ekarat/bookwright/pkg/types"
)

// Errors returned by store operations.
var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidIndex is returned for chapter indexes below 1.
	ErrInvalidIndex = errors.New("chapter index must be >= 1")
)

// ChapterPatch describes a merge-upsert of a chapter keyed by index.
// Nil fields are left untouched on an existing row; on first insert
// they take their zero defaults. The invariant of one chapter per
// (book, index) is enforced by the primary key.
type ChapterPatch struct {
	Index          int
	Draft          *string
	OutlineSummary *string
	Approved       *bool
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// Store is the persistence surface the writer core depends on:
// point reads by key, chapter queries ordered by index, merge-upsert
// writes, and change subscription.
type Store interface {
	CreateBook(book types.Book) error
	GetBook(id string) (types.Book, error)
	ListBooks(ownerID string) ([]types.Book, error)

	SavePlan(bookID string, plan types.Plan) error
	GetPlan(bookID string) (types.Plan, error)

	SaveWorld(bookID string, world types.World) error
	GetWorld(bookID string) (types.World, error)

	SaveGlossary(bookID string, items []types.GlossaryItem) error
	GetGlossary(bookID string) ([]types.GlossaryItem, error)

	UpsertChapter(bookID string, patch ChapterPatch) error
	GetChapter(bookID string, index int) (types.Chapter, error)
	ListChapters(bookID string) ([]types.Chapter, error)

	SaveText(bookID, name, text string) error
	GetText(bookID, name string) (string, error)

	SaveBlurb(bookID string, blurb types.Blurb) error
	GetBlurb(bookID string) (types.Blurb, error)

	AppendArchive(bookID string, entry types.ArchiveEntry) (int64, error)
	ListArchive(bookID string) ([]types.ArchiveEntry, error)

	// Subscribe returns a channel that receives a notification after
	// every committed write scoped to the book, plus a cancel func.
	// Notifications are coalesced; slow consumers never block writes.
	Subscribe(bookID string) (<-chan struct{}, func())

	Close() error
}

// Known names for freeform text documents under a book.
const (
	TextManuscript = "manuscript"
	TextRevision   = "revision"
)

// BookState assembles the full story state for a book from its plan,
// world, glossary, and chapters, in the shape the context assembler
// consumes. Missing documents yield empty sections, not errors.
func BookState(s Store, bookID string) (types.BookState, error) {
	var state types.BookState

	plan, err := s.GetPlan(bookID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return state, err
	}
	state.Plan = plan

	world, err := s.GetWorld(bookID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return state, err
	}
	state.World = world

	glossary, err := s.GetGlossary(bookID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return state, err
	}
	state.Glossary = glossary

	chapters, err := s.ListChapters(bookID)
	if err != nil {
		return state, err
	}
	state.Chapters = chapters

	return state, nil
}
