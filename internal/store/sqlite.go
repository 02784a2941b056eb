package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ekarat/bookwright/pkg/types"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string

	subMu  sync.Mutex
	subs   map[string]map[int]chan struct{}
	nextID int
}

// Open opens or creates the library database at path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		path: path,
		subs: make(map[string]map[int]chan struct{}),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// initialize creates the required tables if they don't exist.
func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		tone TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- One JSON document per (book, name): plan, world, glossary,
	-- blurb, manuscript, revision.
	CREATE TABLE IF NOT EXISTS meta_docs (
		book_id TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (book_id, name)
	);

	-- At most one chapter per (book, index).
	CREATE TABLE IF NOT EXISTS chapters (
		book_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		draft TEXT NOT NULL DEFAULT '',
		outline_summary TEXT NOT NULL DEFAULT '',
		approved INTEGER NOT NULL DEFAULT 0,
		approved_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (book_id, idx)
	);

	CREATE TABLE IF NOT EXISTS archive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archive_book ON archive(book_id);

	-- FTS5 index over chapter drafts, kept in sync on every write.
	CREATE VIRTUAL TABLE IF NOT EXISTS chapters_fts USING fts5(
		draft,
		book_id UNINDEXED,
		idx UNINDEXED,
		tokenize='porter unicode61'
	);

	-- FTS5 index over glossary entries, rebuilt per book on save.
	CREATE VIRTUAL TABLE IF NOT EXISTS glossary_fts USING fts5(
		term,
		definition,
		book_id UNINDEXED,
		tokenize='porter unicode61'
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// now returns the store-assigned write timestamp.
func now() int64 {
	return time.Now().UnixMilli()
}

// CreateBook inserts a new book record.
func (s *SQLiteStore) CreateBook(book types.Book) error {
	ts := now()
	_, err := s.db.Exec(`
		INSERT INTO books (id, title, genre, language, tone, owner_id, cover_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, book.ID, book.Title, book.Genre, book.Language, book.Tone, book.OwnerID, book.CoverURL, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	s.notify(book.ID)
	return nil
}

// GetBook returns a book by id.
func (s *SQLiteStore) GetBook(id string) (types.Book, error) {
	var b types.Book
	var createdAt, updatedAt int64
	err := s.db.QueryRow(`
		SELECT id, title, genre, language, tone, owner_id, cover_url, created_at, updated_at
		FROM books WHERE id = ?
	`, id).Scan(&b.ID, &b.Title, &b.Genre, &b.Language, &b.Tone, &b.OwnerID, &b.CoverURL, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return b, fmt.Errorf("book %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return b, err
	}
	b.CreatedAt = time.UnixMilli(createdAt)
	b.UpdatedAt = time.UnixMilli(updatedAt)
	return b, nil
}

// ListBooks returns the books owned by ownerID, newest first. An empty
// ownerID lists the whole library.
func (s *SQLiteStore) ListBooks(ownerID string) ([]types.Book, error) {
	query := `
		SELECT id, title, genre, language, tone, owner_id, cover_url, created_at, updated_at
		FROM books`
	args := []any{}
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		var b types.Book
		var createdAt, updatedAt int64
		if err := rows.Scan(&b.ID, &b.Title, &b.Genre, &b.Language, &b.Tone, &b.OwnerID, &b.CoverURL, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = time.UnixMilli(createdAt)
		b.UpdatedAt = time.UnixMilli(updatedAt)
		books = append(books, b)
	}
	return books, rows.Err()
}

// saveMeta writes a JSON document under (bookID, name).
func (s *SQLiteStore) saveMeta(bookID, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO meta_docs (book_id, name, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(book_id, name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, bookID, name, string(data), now())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	s.notify(bookID)
	return nil
}

// getMeta reads a JSON document under (bookID, name) into out.
func (s *SQLiteStore) getMeta(bookID, name string, out any) error {
	var data string
	err := s.db.QueryRow(
		"SELECT data FROM meta_docs WHERE book_id = ? AND name = ?",
		bookID, name,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s for book %q: %w", name, bookID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

// SavePlan persists the book's plan document.
func (s *SQLiteStore) SavePlan(bookID string, plan types.Plan) error {
	plan.UpdatedAt = time.UnixMilli(now())
	return s.saveMeta(bookID, "plan", plan)
}

// GetPlan returns the book's plan document.
func (s *SQLiteStore) GetPlan(bookID string) (types.Plan, error) {
	var plan types.Plan
	err := s.getMeta(bookID, "plan", &plan)
	return plan, err
}

// SaveWorld persists the book's world document.
func (s *SQLiteStore) SaveWorld(bookID string, world types.World) error {
	world.UpdatedAt = time.UnixMilli(now())
	return s.saveMeta(bookID, "world", world)
}

// GetWorld returns the book's world document.
func (s *SQLiteStore) GetWorld(bookID string) (types.World, error) {
	var world types.World
	err := s.getMeta(bookID, "world", &world)
	return world, err
}

// SaveGlossary persists the glossary and rebuilds its search index.
func (s *SQLiteStore) SaveGlossary(bookID string, items []types.GlossaryItem) error {
	if err := s.saveMeta(bookID, "glossary", items); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM glossary_fts WHERE book_id = ?", bookID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := tx.Exec(
			"INSERT INTO glossary_fts (term, definition, book_id) VALUES (?, ?, ?)",
			item.Term, item.Definition, bookID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetGlossary returns the book's glossary items.
func (s *SQLiteStore) GetGlossary(bookID string) ([]types.GlossaryItem, error) {
	var items []types.GlossaryItem
	err := s.getMeta(bookID, "glossary", &items)
	return items, err
}

// SaveBlurb persists the book's blurb document.
func (s *SQLiteStore) SaveBlurb(bookID string, blurb types.Blurb) error {
	blurb.UpdatedAt = time.UnixMilli(now())
	return s.saveMeta(bookID, "blurb", blurb)
}

// GetBlurb returns the book's blurb document.
func (s *SQLiteStore) GetBlurb(bookID string) (types.Blurb, error) {
	var blurb types.Blurb
	err := s.getMeta(bookID, "blurb", &blurb)
	return blurb, err
}

// SaveText persists a freeform text document (manuscript, revision).
func (s *SQLiteStore) SaveText(bookID, name, text string) error {
	return s.saveMeta(bookID, name, text)
}

// GetText returns a freeform text document.
func (s *SQLiteStore) GetText(bookID, name string) (string, error) {
	var text string
	err := s.getMeta(bookID, name, &text)
	return text, err
}

// UpsertChapter merge-upserts a chapter keyed by its index: the row is
// created if absent, and only the fields present in the patch are
// written. Fields the patch does not carry keep their stored value.
func (s *SQLiteStore) UpsertChapter(bookID string, patch ChapterPatch) error {
	if patch.Index < 1 {
		return ErrInvalidIndex
	}

	ts := now()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO chapters (book_id, idx, updated_at) VALUES (?, ?, ?)",
		bookID, patch.Index, ts,
	); err != nil {
		return fmt.Errorf("failed to upsert chapter: %w", err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{ts}
	if patch.Draft != nil {
		sets = append(sets, "draft = ?")
		args = append(args, *patch.Draft)
	}
	if patch.OutlineSummary != nil {
		sets = append(sets, "outline_summary = ?")
		args = append(args, *patch.OutlineSummary)
	}
	if patch.Approved != nil {
		sets = append(sets, "approved = ?", "approved_at = ?")
		approvedAt := int64(0)
		if *patch.Approved {
			approvedAt = ts
		}
		args = append(args, *patch.Approved, approvedAt)
	}
	args = append(args, bookID, patch.Index)

	if _, err := tx.Exec(
		"UPDATE chapters SET "+strings.Join(sets, ", ")+" WHERE book_id = ? AND idx = ?",
		args...,
	); err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}

	if patch.Draft != nil {
		if _, err := tx.Exec(
			"DELETE FROM chapters_fts WHERE book_id = ? AND idx = ?",
			bookID, patch.Index,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO chapters_fts (draft, book_id, idx) VALUES (?, ?, ?)",
			*patch.Draft, bookID, patch.Index,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(bookID)
	return nil
}

// GetChapter returns the chapter at a 1-based index.
func (s *SQLiteStore) GetChapter(bookID string, index int) (types.Chapter, error) {
	var c types.Chapter
	var approvedAt, updatedAt int64
	err := s.db.QueryRow(`
		SELECT idx, draft, outline_summary, approved, approved_at, updated_at
		FROM chapters WHERE book_id = ? AND idx = ?
	`, bookID, index).Scan(&c.Index, &c.Draft, &c.OutlineSummary, &c.Approved, &approvedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("chapter %d of book %q: %w", index, bookID, ErrNotFound)
	}
	if err != nil {
		return c, err
	}
	if approvedAt > 0 {
		c.ApprovedAt = time.UnixMilli(approvedAt)
	}
	c.UpdatedAt = time.UnixMilli(updatedAt)
	return c, nil
}

// ListChapters returns the book's chapters ordered by index ascending.
func (s *SQLiteStore) ListChapters(bookID string) ([]types.Chapter, error) {
	rows, err := s.db.Query(`
		SELECT idx, draft, outline_summary, approved, approved_at, updated_at
		FROM chapters WHERE book_id = ?
		ORDER BY idx ASC
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []types.Chapter
	for rows.Next() {
		var c types.Chapter
		var approvedAt, updatedAt int64
		if err := rows.Scan(&c.Index, &c.Draft, &c.OutlineSummary, &c.Approved, &approvedAt, &updatedAt); err != nil {
			return nil, err
		}
		if approvedAt > 0 {
			c.ApprovedAt = time.UnixMilli(approvedAt)
		}
		c.UpdatedAt = time.UnixMilli(updatedAt)
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// AppendArchive appends a universe snapshot for the book.
func (s *SQLiteStore) AppendArchive(bookID string, entry types.ArchiveEntry) (int64, error) {
	entry.CreatedAt = time.UnixMilli(now())
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal archive entry: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO archive (book_id, data, created_at) VALUES (?, ?, ?)",
		bookID, string(data), entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append archive: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.notify(bookID)
	return id, nil
}

// ListArchive returns the book's archive entries, oldest first.
func (s *SQLiteStore) ListArchive(bookID string) ([]types.ArchiveEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, data FROM archive WHERE book_id = ? ORDER BY id ASC",
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ArchiveEntry
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var entry types.ArchiveEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, err
		}
		entry.ID = id
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Subscribe registers a change feed for the book. The channel receives
// a coalesced notification after every committed write; cancel removes
// the subscription and closes the channel.
func (s *SQLiteStore) Subscribe(bookID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	if s.subs[bookID] == nil {
		s.subs[bookID] = make(map[int]chan struct{})
	}
	id := s.nextID
	s.nextID++
	s.subs[bookID][id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if book, ok := s.subs[bookID]; ok {
			if _, ok := book[id]; ok {
				delete(book, id)
				close(ch)
			}
		}
	}

	return ch, cancel
}

// notify signals all subscribers of the book without blocking.
func (s *SQLiteStore) notify(bookID string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[bookID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for advanced queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Verify SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)
