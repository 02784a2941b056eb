package writer

import (
	"strings"
	"sync"
	"time"

	"github.com/ekarat/bookwright/internal/store"
)

// DefaultAutosaveDelay is the quiet period after the last edit before
// the draft is persisted.
const DefaultAutosaveDelay = 1200 * time.Millisecond

// SaveFunc persists a chapter patch.
type SaveFunc func(patch store.ChapterPatch) error

// ExistsFunc reports whether a chapter row already exists at index.
type ExistsFunc func(index int) bool

// Autosaver debounces chapter draft writes. Every Update restarts the
// quiet-period timer, so a burst of edits produces a single write after
// the burst settles. An empty draft is persisted only when the chapter
// already exists; otherwise transient empty buffers never create rows.
type Autosaver struct {
	delay  time.Duration
	save   SaveFunc
	exists ExistsFunc

	// OnError receives failures from timer-driven saves. Optional.
	OnError func(error)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	index int
	draft string
}

// NewAutosaver creates an autosaver. A non-positive delay uses
// DefaultAutosaveDelay.
func NewAutosaver(delay time.Duration, save SaveFunc, exists ExistsFunc) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{delay: delay, save: save, exists: exists}
}

// Update records the latest draft for the chapter at index and restarts
// the quiet-period timer. Switching chapters discards any pending save
// for the previous one.
func (a *Autosaver) Update(index int, draft string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.index = index
	a.draft = draft
	a.gen++

	if a.timer != nil {
		a.timer.Stop()
	}
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() {
		a.fire(gen)
	})
}

// CancelPending discards any scheduled save without writing. Called
// when a generation session takes over the buffer and again when it
// releases it.
func (a *Autosaver) CancelPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// Flush writes the pending draft immediately, if there is one and the
// write guard passes.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	if a.timer == nil {
		a.mu.Unlock()
		return nil
	}
	a.cancelLocked()
	index, draft := a.index, a.draft
	a.mu.Unlock()

	return a.write(index, draft)
}

// Stop discards any pending save. The autosaver stays usable.
func (a *Autosaver) Stop() {
	a.CancelPending()
}

func (a *Autosaver) cancelLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	index, draft := a.index, a.draft
	a.mu.Unlock()

	if err := a.write(index, draft); err != nil && a.OnError != nil {
		a.OnError(err)
	}
}

// write applies the guard and performs the merge-upsert. Only the draft
// field is touched; approval and summary state are preserved.
func (a *Autosaver) write(index int, draft string) error {
	if strings.TrimSpace(draft) == "" && (a.exists == nil || !a.exists(index)) {
		return nil
	}
	return a.save(store.ChapterPatch{Index: index, Draft: store.String(draft)})
}
