package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ekarat/bookwright/internal/llm"
	"github.com/ekarat/bookwright/internal/store"
	"github.com/ekarat/bookwright/internal/token"
	"github.com/ekarat/bookwright/pkg/types"
)

// Context window sizes for the consistency passes. The quick pass looks
// back a few chapters; the full pass covers most of the book.
const (
	quickCheckWindow = 3
	fullCheckWindow  = 8
)

// Writer binds a book's store state, a generation provider, and the
// session machinery into the operations the commands and TUI call.
// One Writer serves one book.
type Writer struct {
	store    store.Store
	provider llm.Provider
	bookID   string

	assembler  Assembler
	controller *Controller
	autosave   *Autosaver

	temperature float64
	counter     TokenCounter
}

// Option configures a Writer.
type Option func(*Writer)

// WithTemperature overrides the generation temperature.
func WithTemperature(t float64) Option {
	return func(w *Writer) { w.temperature = t }
}

// WithContextWindow overrides how many prior chapters ride along in
// chapter prompts.
func WithContextWindow(n int) Option {
	return func(w *Writer) { w.assembler.Window = n }
}

// WithAutosaveDelay overrides the autosave quiet period.
func WithAutosaveDelay(d time.Duration) Option {
	return func(w *Writer) {
		w.autosave = NewAutosaver(d, w.saveDraftPatch, w.chapterExists)
	}
}

// WithTokenCounter attaches a counter for context size reporting.
func WithTokenCounter(c TokenCounter) Option {
	return func(w *Writer) { w.counter = c }
}

// New creates a Writer for the given book.
func New(st store.Store, p llm.Provider, bookID string, opts ...Option) *Writer {
	w := &Writer{
		store:       st,
		provider:    p,
		bookID:      bookID,
		controller:  NewController(),
		temperature: 0.7,
	}
	w.autosave = NewAutosaver(DefaultAutosaveDelay, w.saveDraftPatch, w.chapterExists)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BookID returns the book this writer operates on.
func (w *Writer) BookID() string {
	return w.bookID
}

// State loads the current book state snapshot.
func (w *Writer) State() (types.BookState, error) {
	return store.BookState(w.store, w.bookID)
}

// Session returns the current generation session, or nil.
func (w *Writer) Session() *Session {
	return w.controller.Current()
}

func (w *Writer) saveDraftPatch(patch store.ChapterPatch) error {
	return w.store.UpsertChapter(w.bookID, patch)
}

func (w *Writer) chapterExists(index int) bool {
	_, err := w.store.GetChapter(w.bookID, index)
	return err == nil
}

func (w *Writer) request(prompt string) llm.Request {
	return llm.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: w.temperature,
	}
}

// GenerateOutline produces a chapter plan from the saved writing plan
// and persists it. Already-written chapter drafts are untouched.
func (w *Writer) GenerateOutline(ctx context.Context) ([]types.OutlineItem, error) {
	plan, err := w.store.GetPlan(w.bookID)
	if err != nil {
		return nil, err
	}

	raw, err := w.provider.Complete(ctx, w.request(outlinePrompt(plan)))
	if err != nil {
		return nil, err
	}

	items := ParseOutline(raw)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty outline", llm.ErrMalformedResponse)
	}

	plan.Outline = items
	if err := w.store.SavePlan(w.bookID, plan); err != nil {
		return nil, err
	}
	return items, nil
}

// GenerateWorld produces characters, locations, and story rules from
// the plan and persists them.
func (w *Writer) GenerateWorld(ctx context.Context) (types.World, error) {
	plan, err := w.store.GetPlan(w.bookID)
	if err != nil {
		return types.World{}, err
	}

	raw, err := w.provider.Complete(ctx, w.request(worldPrompt(plan)))
	if err != nil {
		return types.World{}, err
	}

	world, err := ParseWorld(raw)
	if err != nil {
		return types.World{}, err
	}

	if err := w.store.SaveWorld(w.bookID, world); err != nil {
		return types.World{}, err
	}
	return world, nil
}

// GenerateGlossary produces a term glossary over the recent story
// context and persists it.
func (w *Writer) GenerateGlossary(ctx context.Context) ([]types.GlossaryItem, error) {
	state, err := w.State()
	if err != nil {
		return nil, err
	}

	a := Assembler{Window: quickCheckWindow}
	contextBlob := a.Build(state, nextChapterIndex(state))

	raw, err := w.provider.Complete(ctx, w.request(glossaryPrompt(contextBlob)))
	if err != nil {
		return nil, err
	}

	items, err := ParseGlossary(raw)
	if err != nil {
		return nil, err
	}

	if err := w.store.SaveGlossary(w.bookID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// WriteChapter starts a streaming generation session for the chapter at
// index. The returned session exposes the event feed; on completion the
// draft and its outline-summary snapshot are persisted through a
// merge-upsert that preserves approval state.
func (w *Writer) WriteChapter(ctx context.Context, index int) (*Session, error) {
	if index < 1 {
		return nil, store.ErrInvalidIndex
	}

	state, err := w.State()
	if err != nil {
		return nil, err
	}

	item := state.OutlineItemAt(index)
	contextBlob := w.fitContext(w.assembler.Build(state, index))
	req := w.request(chapterPrompt(index, item, contextBlob))

	// The session owns the buffer now; a pending autosave would race
	// the stream.
	w.autosave.CancelPending()

	return w.controller.Start(ctx, w.provider, req, index, func(full string) error {
		w.autosave.CancelPending()
		return w.store.UpsertChapter(w.bookID, store.ChapterPatch{
			Index:          index,
			Draft:          store.String(full),
			OutlineSummary: store.String(item.Summary),
		})
	})
}

// CancelSession cancels the active generation session, if any.
func (w *Writer) CancelSession() {
	if s := w.controller.Current(); s != nil {
		s.Cancel()
	}
}

// DraftChanged feeds a manual edit into the autosave debouncer. Ignored
// while a generation session owns the buffer.
func (w *Writer) DraftChanged(index int, draft string) {
	if s := w.controller.Current(); s != nil && s.Active() {
		return
	}
	w.autosave.Update(index, draft)
}

// FlushDraft forces any pending autosave write.
func (w *Writer) FlushDraft() error {
	return w.autosave.Flush()
}

// SaveChapter persists a chapter draft immediately, bypassing the
// debouncer.
func (w *Writer) SaveChapter(index int, draft string) error {
	w.autosave.CancelPending()
	return w.store.UpsertChapter(w.bookID, store.ChapterPatch{
		Index: index,
		Draft: store.String(draft),
	})
}

// Approve marks the chapter at index approved.
func (w *Writer) Approve(index int) error {
	ch, err := w.store.GetChapter(w.bookID, index)
	if err != nil {
		return err
	}
	if !ch.HasDraft() {
		return fmt.Errorf("chapter %d has no draft to approve", index)
	}
	return w.store.UpsertChapter(w.bookID, store.ChapterPatch{
		Index:    index,
		Approved: store.Bool(true),
	})
}

// QuickConsistency runs a fast consistency check of the chapter at
// index against a short trailing context.
func (w *Writer) QuickConsistency(ctx context.Context, index int) (string, error) {
	state, err := w.State()
	if err != nil {
		return "", err
	}

	ch, ok := state.ChapterAt(index)
	if !ok || !ch.HasDraft() {
		return "", fmt.Errorf("chapter %d has no draft to check", index)
	}

	a := Assembler{Window: quickCheckWindow}
	contextBlob := a.Build(state, index)
	return w.provider.Complete(ctx, w.request(quickConsistencyPrompt(contextBlob, ch.Draft)))
}

// Consistency runs the comprehensive consistency analysis over the wide
// book context.
func (w *Writer) Consistency(ctx context.Context) (string, error) {
	state, err := w.State()
	if err != nil {
		return "", err
	}

	a := Assembler{Window: fullCheckWindow}
	contextBlob := a.Build(state, nextChapterIndex(state))
	return w.provider.Complete(ctx, w.request(consistencyPrompt(contextBlob)))
}

// Assist runs the side assistant over the chapter at index. With
// rewrite set, the reply is a full replacement for the draft and is
// persisted; otherwise it is advisory and nothing is written.
func (w *Writer) Assist(ctx context.Context, index int, instruction string, rewrite bool) (string, error) {
	state, err := w.State()
	if err != nil {
		return "", err
	}

	var draft string
	if ch, ok := state.ChapterAt(index); ok {
		draft = ch.Draft
	}

	contextBlob := w.assembler.Build(state, index)
	reply, err := w.provider.Complete(ctx, w.request(assistantPrompt(rewrite, instruction, draft, contextBlob)))
	if err != nil {
		return "", err
	}

	if rewrite {
		if err := w.SaveChapter(index, strings.TrimSpace(reply)); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// RevisionPass runs a style and language revision over the assembled
// manuscript and stores the result as the revision text.
func (w *Writer) RevisionPass(ctx context.Context) (string, error) {
	text, err := w.store.GetText(w.bookID, store.TextManuscript)
	if err != nil {
		manuscript, buildErr := w.BuildManuscript()
		if buildErr != nil {
			return "", buildErr
		}
		text = manuscript
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no manuscript to revise")
	}

	revised, err := w.provider.Complete(ctx, w.request(revisionPrompt(text)))
	if err != nil {
		return "", err
	}

	if err := w.store.SaveText(w.bookID, store.TextRevision, revised); err != nil {
		return "", err
	}
	return revised, nil
}

// FinalBlurb produces review notes, a back-cover text, and a short
// summary from the manuscript, and persists them.
func (w *Writer) FinalBlurb(ctx context.Context) (types.Blurb, error) {
	text, err := w.manuscriptOrRevision()
	if err != nil {
		return types.Blurb{}, err
	}

	raw, err := w.provider.Complete(ctx, w.request(blurbPrompt(text)))
	if err != nil {
		return types.Blurb{}, err
	}

	blurb, err := ParseBlurb(raw)
	if err != nil {
		return types.Blurb{}, err
	}

	if err := w.store.SaveBlurb(w.bookID, blurb); err != nil {
		return types.Blurb{}, err
	}
	return blurb, nil
}

// ArchiveUniverse snapshots the plan, world, glossary, and blurb into
// the archive and returns the entry id.
func (w *Writer) ArchiveUniverse() (int64, error) {
	state, err := w.State()
	if err != nil {
		return 0, err
	}

	blurb, err := w.store.GetBlurb(w.bookID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	return w.store.AppendArchive(w.bookID, types.ArchiveEntry{
		Plan:     state.Plan,
		World:    state.World,
		Glossary: state.Glossary,
		Blurb:    blurb,
	})
}

// ContextTokens reports the token size of the assembled context for the
// chapter at index. Zero without a configured counter.
func (w *Writer) ContextTokens(index int) (int, error) {
	state, err := w.State()
	if err != nil {
		return 0, err
	}
	return w.assembler.ContextTokens(state, index, w.counter), nil
}

// fitContext trims the assembled context so a chapter request leaves
// the model's reserved response room intact. The tail of the context is
// kept, where the most recent chapters live. A writer without a counter
// or provider passes the context through unchanged.
func (w *Writer) fitContext(contextBlob string) string {
	if w.counter == nil || w.provider == nil {
		return contextBlob
	}

	caps := w.provider.Capabilities()
	budget := token.NewBudgetWithConfig(caps.Model, caps.MaxContextTokens, token.DefaultRatios)

	systemTokens := w.counter.Count(SystemPrompt)
	if budget.Fits(systemTokens, w.counter.Count(contextBlob)) {
		return contextBlob
	}
	return w.counter.Truncate(contextBlob, budget.ContextRoom(systemTokens), true)
}

// manuscriptOrRevision prefers the revised text when one exists.
func (w *Writer) manuscriptOrRevision() (string, error) {
	if text, err := w.store.GetText(w.bookID, store.TextRevision); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	text, err := w.store.GetText(w.bookID, store.TextManuscript)
	if err != nil || strings.TrimSpace(text) == "" {
		return w.BuildManuscript()
	}
	return text, nil
}

// nextChapterIndex is one past the highest written chapter, so a
// trailing-window build sees the latest drafts.
func nextChapterIndex(state types.BookState) int {
	max := 0
	for _, c := range state.Chapters {
		if c.Index > max {
			max = c.Index
		}
	}
	return max + 1
}
