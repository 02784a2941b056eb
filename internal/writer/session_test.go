package writer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/internal/llm"
)

// fakeProvider replays a scripted stream. A non-nil gate blocks before
// every chunk after the first until the gate is released, so tests can
// interleave with a stream in flight.
type fakeProvider struct {
	deltas      []string
	streamErr   error
	completeOut string
	completeErr error
	gate        chan struct{}
	caps        *llm.Capabilities

	mu      sync.Mutex
	lastReq llm.Request
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	return p.completeOut, p.completeErr
}

func (p *fakeProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.lastReq = req
	p.mu.Unlock()

	out := make(chan llm.Chunk, len(p.deltas)+1)
	go func() {
		defer close(out)
		for i, delta := range p.deltas {
			if i > 0 && p.gate != nil {
				select {
				case <-p.gate:
				case <-ctx.Done():
					return
				}
			}
			out <- llm.Chunk{Delta: delta}
		}
		if p.streamErr != nil {
			out <- llm.Chunk{Error: p.streamErr, Done: true}
			return
		}
		out <- llm.Chunk{Done: true}
	}()
	return out, nil
}

func (p *fakeProvider) Capabilities() llm.Capabilities {
	if p.caps != nil {
		return *p.caps
	}
	return llm.Capabilities{NativeStreaming: true, Model: "fake"}
}

func (p *fakeProvider) seenRequest() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}

func (p *fakeProvider) Close() error { return nil }

func collectEvents(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for session events")
		}
	}
}

// TestSessionStreamOrder tests that deltas arrive in order and exactly
// one terminal event follows.
func TestSessionStreamOrder(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"Once ", "upon ", "a time."}}

	var mu sync.Mutex
	var persisted []string

	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{Prompt: "x"}, 1, func(full string) error {
		mu.Lock()
		defer mu.Unlock()
		persisted = append(persisted, full)
		return nil
	})
	require.NoError(t, err)

	events := collectEvents(t, session)
	require.NotEmpty(t, events)

	var got strings.Builder
	terminals := 0
	for _, ev := range events {
		switch ev.Kind {
		case EventDelta:
			assert.Zero(t, terminals, "delta after terminal event")
			got.WriteString(ev.Delta)
		case EventDone, EventError:
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Equal(t, "Once upon a time.", got.String())

	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Kind)
	assert.Equal(t, "Once upon a time.", last.Draft)

	assert.Equal(t, StateCompleted, session.State())
	assert.Equal(t, "Once upon a time.", session.Draft())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Once upon a time."}, persisted)
}

// TestSessionCancel tests that cancellation suppresses terminal events
// and skips the persist.
func TestSessionCancel(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{
		deltas: []string{"first ", "second ", "third"},
		gate:   gate,
	}

	persisted := false
	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{Prompt: "x"}, 1, func(full string) error {
		persisted = true
		return nil
	})
	require.NoError(t, err)

	// Wait for the first delta, then cancel mid-stream.
	select {
	case ev := <-session.Events():
		require.Equal(t, EventDelta, ev.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no first delta")
	}

	session.Cancel()
	close(gate)

	events := collectEvents(t, session)
	for _, ev := range events {
		assert.NotEqual(t, EventDone, ev.Kind, "terminal event after cancel")
		assert.NotEqual(t, EventError, ev.Kind, "terminal event after cancel")
	}

	assert.Equal(t, StateCancelled, session.State())
	assert.False(t, persisted)
	// Streamed text stays in the draft for the caller to keep or drop.
	assert.Contains(t, session.Draft(), "first")
}

// TestSessionCancelIdempotent tests that repeated cancels are safe.
func TestSessionCancelIdempotent(t *testing.T) {
	gate := make(chan struct{})
	provider := &fakeProvider{deltas: []string{"a", "b"}, gate: gate}

	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{}, 1, nil)
	require.NoError(t, err)

	session.Cancel()
	session.Cancel()
	close(gate)

	assert.Equal(t, StateCancelled, session.State())
}

// TestSessionStreamError tests that a stream failure surfaces as a
// single error event and a Failed state.
func TestSessionStreamError(t *testing.T) {
	provider := &fakeProvider{
		deltas:    []string{"partial "},
		streamErr: &llm.ProviderError{Status: 503, Message: "overloaded"},
	}

	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{}, 1, nil)
	require.NoError(t, err)

	events := collectEvents(t, session)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.True(t, errors.Is(last.Err, llm.ErrProviderUnavailable))

	assert.Equal(t, StateFailed, session.State())
	assert.True(t, errors.Is(session.Err(), llm.ErrProviderUnavailable))
	// Partial text survives the failure.
	assert.Equal(t, "partial ", session.Draft())
}

// TestSessionPersistFailure tests that a failing persist marks the
// session failed after a complete stream.
func TestSessionPersistFailure(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"done"}}
	persistErr := errors.New("disk full")

	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{}, 1, func(string) error {
		return persistErr
	})
	require.NoError(t, err)

	events := collectEvents(t, session)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, persistErr, last.Err)
	assert.Equal(t, StateFailed, session.State())
}

// TestControllerSingleSession tests that starting a new session cancels
// the previous active one.
func TestControllerSingleSession(t *testing.T) {
	gate := make(chan struct{})
	slow := &fakeProvider{deltas: []string{"a", "b"}, gate: gate}
	fast := &fakeProvider{deltas: []string{"quick"}}

	c := NewController()
	first, err := c.Start(context.Background(), slow, llm.Request{}, 1, nil)
	require.NoError(t, err)

	second, err := c.Start(context.Background(), fast, llm.Request{}, 2, nil)
	require.NoError(t, err)
	close(gate)

	collectEvents(t, second)
	assert.Equal(t, StateCancelled, first.State())
	assert.Equal(t, StateCompleted, second.State())
	assert.Same(t, second, c.Current())
}

// TestSessionStates tests the state string rendering.
func TestSessionStates(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "requesting", StateRequesting.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
}

// TestSessionTerminalEventSlowConsumer tests that the terminal event
// survives a consumer that falls further behind than the feed buffer:
// deltas may be dropped, but the feed never closes without its Done.
func TestSessionTerminalEventSlowConsumer(t *testing.T) {
	deltas := make([]string, 400)
	for i := range deltas {
		deltas[i] = "söz "
	}
	provider := &fakeProvider{deltas: deltas}

	persisted := false
	c := NewController()
	session, err := c.Start(context.Background(), provider, llm.Request{Prompt: "x"}, 1, func(full string) error {
		persisted = true
		return nil
	})
	require.NoError(t, err)

	// Do not read a single event until the session has fully finished.
	require.Eventually(t, func() bool {
		return session.State() == StateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	var terminals []Event
	for ev := range session.Events() {
		if ev.Kind != EventDelta {
			terminals = append(terminals, ev)
		}
	}

	require.Len(t, terminals, 1, "feed closed without the terminal event")
	assert.Equal(t, EventDone, terminals[0].Kind)
	assert.Equal(t, strings.Repeat("söz ", 400), terminals[0].Draft)
	assert.True(t, persisted)
}
