// Package search provides full-text search over a book's chapters and
// glossary, backed by the library database's FTS5 indexes.
package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// Source identifies which index a result came from.
type Source string

const (
	SourceChapter  Source = "chapter"
	SourceGlossary Source = "glossary"
)

// Result is a single search hit. Chapter hits carry the chapter index;
// glossary hits carry the term.
type Result struct {
	Source  Source
	Chapter int
	Term    string
	Snippet string
	Score   float64
}

// Engine runs FTS5 queries with BM25 scoring over the library database.
type Engine struct {
	db *sql.DB
}

// NewEngine creates a search engine over an open library database.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// Search matches query against the book's chapter drafts and glossary,
// returning hits ordered best match first. Highlighted snippets wrap
// matched terms in **.
func (e *Engine) Search(bookID, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	sanitized := sanitizeQuery(query)
	if sanitized == "" {
		return nil, nil
	}

	chapters, err := e.searchChapters(bookID, sanitized, limit)
	if err != nil {
		return nil, err
	}
	glossary, err := e.searchGlossary(bookID, sanitized, limit)
	if err != nil {
		return nil, err
	}

	results := append(chapters, glossary...)
	// bm25 scores are negative; lower is better. Order across both
	// sources by score.
	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) searchChapters(bookID, query string, limit int) ([]Result, error) {
	rows, err := e.db.Query(`
		SELECT
			idx,
			snippet(chapters_fts, 0, '**', '**', '...', 32),
			bm25(chapters_fts) AS score
		FROM chapters_fts
		WHERE chapters_fts MATCH ? AND book_id = ?
		ORDER BY score
		LIMIT ?`,
		query, bookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("chapter search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		r := Result{Source: SourceChapter}
		if err := rows.Scan(&r.Chapter, &r.Snippet, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (e *Engine) searchGlossary(bookID, query string, limit int) ([]Result, error) {
	rows, err := e.db.Query(`
		SELECT
			term,
			snippet(glossary_fts, 1, '**', '**', '...', 32),
			bm25(glossary_fts) AS score
		FROM glossary_fts
		WHERE glossary_fts MATCH ? AND book_id = ?
		ORDER BY score
		LIMIT ?`,
		query, bookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("glossary search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		r := Result{Source: SourceGlossary}
		if err := rows.Scan(&r.Term, &r.Snippet, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// sortByScore orders results ascending; bm25 reports better matches as
// more negative values. Insertion sort keeps the two pre-sorted source
// slices cheap to merge.
func sortByScore(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score < results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// sanitizeQuery strips FTS5 operators from the user query so raw input
// can never produce a syntax error. Words are joined with the implicit
// AND.
func sanitizeQuery(query string) string {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return ""
	}

	var sanitized []string
	for _, word := range words {
		if cleaned := cleanWord(word); cleaned != "" {
			sanitized = append(sanitized, cleaned)
		}
	}
	return strings.Join(sanitized, " ")
}

func cleanWord(word string) string {
	const specialChars = `"*^:()-`

	var result strings.Builder
	for _, ch := range word {
		if !strings.ContainsRune(specialChars, ch) {
			result.WriteRune(ch)
		}
	}
	return result.String()
}
