package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultStreamTimeout bounds a single streaming session so a hung
// transport cannot leave a session open forever.
const DefaultStreamTimeout = 120 * time.Second

// Callbacks receive streaming events. OnDelta fires zero or more times
// with fragments in arrival order. Exactly one of OnDone or OnError
// fires afterwards, unless the stream is cancelled first, in which case
// no further callback fires at all. Any callback may be nil.
type Callbacks struct {
	OnDelta func(delta string)
	OnDone  func(full string)
	OnError func(err error)
}

// StreamOptions tune a streaming session.
type StreamOptions struct {
	// Timeout is the ceiling for the whole session. Zero means
	// DefaultStreamTimeout.
	Timeout time.Duration
}

// StreamHandle controls one in-flight streaming session.
type StreamHandle struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	finished  bool
}

// Cancel stops the session. It is idempotent and guarantees that no
// callback fires after it returns, even if the transport is mid-flight.
func (h *StreamHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// Cancelled reports whether Cancel has been called.
func (h *StreamHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// deliver runs fn under the handle lock unless the session was
// cancelled or already finished. terminal marks the session finished so
// at most one terminal callback is delivered.
func (h *StreamHandle) deliver(terminal bool, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.finished {
		return
	}
	if terminal {
		h.finished = true
	}
	if fn != nil {
		fn()
	}
}

// StreamText runs a streaming generation against the provider and
// dispatches the chunks through cb. The returned handle cancels the
// session; cancellation is cooperative and suppresses all further
// callbacks. For providers without native incremental streaming the
// provider's Stream synthesizes one delta with the full text, so the
// callback contract is identical across variants.
func StreamText(ctx context.Context, p Provider, req Request, cb Callbacks, opts StreamOptions) (*StreamHandle, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}

	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	handle := &StreamHandle{cancel: cancel}

	chunks, err := p.Stream(streamCtx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		defer cancel()

		var full strings.Builder
		for chunk := range chunks {
			if chunk.Error != nil {
				err := chunk.Error
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("%w: stream timed out after %s", ErrProviderUnavailable, timeout)
				}
				handle.deliver(true, func() {
					if cb.OnError != nil {
						cb.OnError(err)
					}
				})
				return
			}

			if chunk.Delta != "" {
				delta := chunk.Delta
				delivered := false
				handle.deliver(false, func() {
					delivered = true
					if cb.OnDelta != nil {
						cb.OnDelta(delta)
					}
				})
				if !delivered {
					// Cancellation observed; discard in-flight bytes.
					return
				}
				full.WriteString(delta)
			}

			if chunk.Done {
				break
			}
		}

		handle.deliver(true, func() {
			if cb.OnDone != nil {
				cb.OnDone(full.String())
			}
		})
	}()

	return handle, nil
}
