package writer

import (
	"context"
	"strings"
	"sync"

	"github.com/ekarat/bookwright/internal/llm"
)

// State is the lifecycle of a generation session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventKind tags a session event.
type EventKind int

const (
	// EventDelta carries an incremental fragment appended to the draft.
	EventDelta EventKind = iota
	// EventDone signals successful completion after the authoritative
	// persist.
	EventDone
	// EventError signals failure; the draft keeps whatever streamed.
	EventError
)

// Event is a single observable step of a session.
type Event struct {
	Kind  EventKind
	Delta string
	Draft string
	Err   error
}

// CompleteFunc performs the authoritative persist of the finished
// draft. It runs exactly once per completed session.
type CompleteFunc func(full string) error

// Session is one chapter-generation request/response lifecycle. While a
// session is Requesting or Streaming it exclusively owns the draft
// buffer: deltas append to the session's accumulator and the final
// buffer is replaced from it, so manual edits made mid-stream are not
// merged.
type Session struct {
	chapterIndex int

	mu     sync.Mutex
	state  State
	buf    strings.Builder
	err    error
	handle *llm.StreamHandle

	events    chan Event
	closeOnce sync.Once
}

// ChapterIndex returns the 1-based chapter index the session targets.
func (s *Session) ChapterIndex() int {
	return s.chapterIndex
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns a snapshot of the accumulated draft text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Err returns the failure cause for a Failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Active reports whether the session is Requesting or Streaming.
func (s *Session) Active() bool {
	state := s.State()
	return state == StateRequesting || state == StateStreaming
}

// Events returns the session's event feed. The channel is closed after
// the terminal event, or without one when the session is cancelled.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Cancel stops the session. Streamed text stays in the draft; nothing
// is persisted automatically and no terminal event is emitted.
// Idempotent; a no-op once the session reached a terminal state.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state != StateRequesting && s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	handle := s.handle
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
	s.closeEvents()
}

// emit sends an event without blocking a slow consumer.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// emitTerminal delivers ev even when the consumer is behind. Buffered
// deltas are discarded to make room; the terminal event carries the
// full draft, so nothing observable is lost.
func (s *Session) emitTerminal(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

// closeEvents closes the event feed exactly once.
func (s *Session) closeEvents() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// Controller runs at most one generation session per editor instance.
type Controller struct {
	mu      sync.Mutex
	current *Session

	// StreamOptions bound each session; the zero value uses the llm
	// default timeout.
	StreamOptions llm.StreamOptions
}

// NewController creates a session controller.
func NewController() *Controller {
	return &Controller{}
}

// Current returns the active session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Start begins generating the chapter at chapterIndex. Any session
// still Requesting or Streaming is cancelled first. complete runs once
// on successful completion with the full accumulated text; its error
// marks the session Failed.
func (c *Controller) Start(ctx context.Context, p llm.Provider, req llm.Request, chapterIndex int, complete CompleteFunc) (*Session, error) {
	c.mu.Lock()
	if prior := c.current; prior != nil && prior.Active() {
		prior.Cancel()
	}

	session := &Session{
		chapterIndex: chapterIndex,
		state:        StateRequesting,
		events:       make(chan Event, 256),
	}
	c.current = session
	c.mu.Unlock()

	handle, err := llm.StreamText(ctx, p, req, llm.Callbacks{
		OnDelta: func(delta string) {
			session.mu.Lock()
			if session.state == StateCancelled {
				session.mu.Unlock()
				return
			}
			if session.state == StateRequesting {
				session.state = StateStreaming
			}
			session.buf.WriteString(delta)
			draft := session.buf.String()
			session.mu.Unlock()

			session.emit(Event{Kind: EventDelta, Delta: delta, Draft: draft})
		},
		OnDone: func(full string) {
			session.mu.Lock()
			if session.state == StateCancelled {
				session.mu.Unlock()
				session.closeEvents()
				return
			}
			// The accumulator is authoritative; the buffer is replaced
			// wholesale so interleaved edits cannot corrupt the draft.
			session.buf.Reset()
			session.buf.WriteString(full)
			session.mu.Unlock()

			var persistErr error
			if complete != nil {
				persistErr = complete(full)
			}

			session.mu.Lock()
			if persistErr != nil {
				session.state = StateFailed
				session.err = persistErr
			} else {
				session.state = StateCompleted
			}
			session.mu.Unlock()

			if persistErr != nil {
				session.emitTerminal(Event{Kind: EventError, Draft: full, Err: persistErr})
			} else {
				session.emitTerminal(Event{Kind: EventDone, Draft: full})
			}
			session.closeEvents()
		},
		OnError: func(err error) {
			session.mu.Lock()
			if session.state == StateCancelled {
				session.mu.Unlock()
				session.closeEvents()
				return
			}
			session.state = StateFailed
			session.err = err
			draft := session.buf.String()
			session.mu.Unlock()

			session.emitTerminal(Event{Kind: EventError, Draft: draft, Err: err})
			session.closeEvents()
		},
	}, c.StreamOptions)
	if err != nil {
		session.mu.Lock()
		session.state = StateFailed
		session.err = err
		session.mu.Unlock()
		session.closeEvents()
		return nil, err
	}

	session.mu.Lock()
	session.handle = handle
	// Cancel may have raced the handle assignment.
	cancelled := session.state == StateCancelled
	session.mu.Unlock()
	if cancelled {
		handle.Cancel()
	}

	return session, nil
}
