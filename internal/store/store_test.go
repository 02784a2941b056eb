package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestBooks tests book creation, lookup, and owner-scoped listing.
func TestBooks(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "Sisli Liman", OwnerID: "ayla"}))
	require.NoError(t, s.CreateBook(types.Book{ID: "b2", Title: "Kış Güncesi", OwnerID: "kerem"}))

	book, err := s.GetBook("b1")
	require.NoError(t, err)
	assert.Equal(t, "Sisli Liman", book.Title)
	assert.Equal(t, "ayla", book.OwnerID)
	assert.False(t, book.CreatedAt.IsZero())

	_, err = s.GetBook("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	mine, err := s.ListBooks("ayla")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "b1", mine[0].ID)

	all, err := s.ListBooks("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestMetaDocuments tests the plan/world/glossary/blurb round-trips.
func TestMetaDocuments(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	t.Run("plan", func(t *testing.T) {
		_, err := s.GetPlan("b1")
		assert.True(t, errors.Is(err, ErrNotFound))

		require.NoError(t, s.SavePlan("b1", types.Plan{
			Title:       "T",
			OutlineMode: types.OutlineThematic,
			Outline:     []types.OutlineItem{{Title: "Bir", Summary: "özet"}},
		}))

		plan, err := s.GetPlan("b1")
		require.NoError(t, err)
		assert.Equal(t, types.OutlineThematic, plan.OutlineMode)
		require.Len(t, plan.Outline, 1)
		assert.False(t, plan.UpdatedAt.IsZero())
	})

	t.Run("world", func(t *testing.T) {
		require.NoError(t, s.SaveWorld("b1", types.World{
			Characters: []types.Character{{Name: "Kerem"}},
			Rules:      []string{"kural"},
		}))
		world, err := s.GetWorld("b1")
		require.NoError(t, err)
		assert.Equal(t, "Kerem", world.Characters[0].Name)
	})

	t.Run("glossary", func(t *testing.T) {
		require.NoError(t, s.SaveGlossary("b1", []types.GlossaryItem{{Term: "Sis", Definition: "yoğun"}}))
		items, err := s.GetGlossary("b1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Sis", items[0].Term)
	})

	t.Run("blurb", func(t *testing.T) {
		require.NoError(t, s.SaveBlurb("b1", types.Blurb{Short: "kısa"}))
		blurb, err := s.GetBlurb("b1")
		require.NoError(t, err)
		assert.Equal(t, "kısa", blurb.Short)
	})

	t.Run("texts", func(t *testing.T) {
		require.NoError(t, s.SaveText("b1", TextManuscript, "metin"))
		text, err := s.GetText("b1", TextManuscript)
		require.NoError(t, err)
		assert.Equal(t, "metin", text)

		_, err = s.GetText("b1", TextRevision)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

// TestUpsertChapterMerge tests that a patch touches only the fields it
// carries.
func TestUpsertChapterMerge(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	// First write creates the row with defaults for absent fields.
	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
		Index: 1,
		Draft: String("ilk taslak"),
	}))

	ch, err := s.GetChapter("b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "ilk taslak", ch.Draft)
	assert.Equal(t, "", ch.OutlineSummary)
	assert.False(t, ch.Approved)

	// Approving must not disturb the draft.
	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
		Index:    1,
		Approved: Bool(true),
	}))

	ch, err = s.GetChapter("b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "ilk taslak", ch.Draft)
	assert.True(t, ch.Approved)
	assert.False(t, ch.ApprovedAt.IsZero())

	// Rewriting the draft must not disturb the approval.
	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
		Index:          1,
		Draft:          String("yeni taslak"),
		OutlineSummary: String("özet"),
	}))

	ch, err = s.GetChapter("b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "yeni taslak", ch.Draft)
	assert.Equal(t, "özet", ch.OutlineSummary)
	assert.True(t, ch.Approved)

	// Revoking approval clears the timestamp.
	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
		Index:    1,
		Approved: Bool(false),
	}))
	ch, err = s.GetChapter("b1", 1)
	require.NoError(t, err)
	assert.False(t, ch.Approved)
	assert.True(t, ch.ApprovedAt.IsZero())
}

// TestUpsertChapterSingleRow tests the one-row-per-index invariant.
func TestUpsertChapterSingleRow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
			Index: 2,
			Draft: String("sürüm"),
		}))
	}

	chapters, err := s.ListChapters("b1")
	require.NoError(t, err)
	assert.Len(t, chapters, 1)
}

// TestUpsertChapterInvalidIndex tests index validation.
func TestUpsertChapterInvalidIndex(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertChapter("b1", ChapterPatch{Index: 0})
	assert.True(t, errors.Is(err, ErrInvalidIndex))

	err = s.UpsertChapter("b1", ChapterPatch{Index: -3})
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

// TestListChaptersOrder tests ascending index order with gaps.
func TestListChaptersOrder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	for _, idx := range []int{7, 2, 5} {
		require.NoError(t, s.UpsertChapter("b1", ChapterPatch{
			Index: idx,
			Draft: String("metin"),
		}))
	}

	chapters, err := s.ListChapters("b1")
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, 2, chapters[0].Index)
	assert.Equal(t, 5, chapters[1].Index)
	assert.Equal(t, 7, chapters[2].Index)
}

// TestArchive tests appending and listing universe snapshots.
func TestArchive(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	first, err := s.AppendArchive("b1", types.ArchiveEntry{
		Plan: types.Plan{Title: "ilk"},
	})
	require.NoError(t, err)
	second, err := s.AppendArchive("b1", types.ArchiveEntry{
		Plan: types.Plan{Title: "ikinci"},
	})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	entries, err := s.ListArchive("b1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ilk", entries[0].Plan.Title)
	assert.Equal(t, "ikinci", entries[1].Plan.Title)
	assert.Equal(t, first, entries[0].ID)
}

// TestSubscribe tests the coalesced change feed.
func TestSubscribe(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))
	require.NoError(t, s.CreateBook(types.Book{ID: "b2", Title: "U"}))

	ch, cancel := s.Subscribe("b1")
	defer cancel()

	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{Index: 1, Draft: String("x")}))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification for subscribed book")
	}

	// Writes to other books stay silent.
	require.NoError(t, s.UpsertChapter("b2", ChapterPatch{Index: 1, Draft: String("y")}))
	select {
	case <-ch:
		t.Fatal("notification leaked across books")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

// TestBookState tests the aggregate snapshot helper.
func TestBookState(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBook(types.Book{ID: "b1", Title: "T"}))

	// Missing documents are empty sections, not errors.
	state, err := BookState(s, "b1")
	require.NoError(t, err)
	assert.Empty(t, state.Plan.Title)
	assert.Empty(t, state.Chapters)

	require.NoError(t, s.SavePlan("b1", types.Plan{Title: "T"}))
	require.NoError(t, s.UpsertChapter("b1", ChapterPatch{Index: 1, Draft: String("metin")}))

	state, err = BookState(s, "b1")
	require.NoError(t, err)
	assert.Equal(t, "T", state.Plan.Title)
	require.Len(t, state.Chapters, 1)

	ch, ok := state.ChapterAt(1)
	assert.True(t, ok)
	assert.True(t, ch.HasDraft())
}
