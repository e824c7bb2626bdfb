// Package loadstate wraps a UI-bound unit of asynchronous work with
// loading/error bookkeeping and per-key duplicate suppression. Each view
// owns one Tracker; the TUI renders its State between updates.
package loadstate

import (
	"context"
	"net/http"
	"sync"

	"github.com/mamalink/mamalink-go/internal/apierr"
)

// State is a point-in-time snapshot of a tracker.
type State struct {
	Loading     bool
	Err         *apierr.Error
	UserMessage string
}

// HasError reports whether the last operation failed.
func (s State) HasError() bool { return s.Err != nil }

// IsAuthError reports an HTTP 401 failure.
func (s State) IsAuthError() bool {
	return s.Err != nil && s.Err.Kind == apierr.KindHTTP && s.Err.Status == http.StatusUnauthorized
}

// IsNetworkError reports a connectivity failure.
func (s State) IsNetworkError() bool {
	return s.Err != nil && s.Err.Kind == apierr.KindNetwork
}

// ShouldRetry reports whether the last failure is worth retrying.
func (s State) ShouldRetry() bool {
	return apierr.IsRetryable(s.Err)
}

// pendingOp is a shared in-flight operation; waiters block on done.
type pendingOp struct {
	done chan struct{}
	val  any
	err  error
}

// Tracker tracks one view's request lifecycle: idle -> loading ->
// (success|error) -> idle. With duplicate prevention on, a second Do with
// the same non-empty key while the first is pending shares its outcome
// instead of dispatching again.
type Tracker struct {
	mu                sync.Mutex
	active            int
	err               *apierr.Error
	userMessage       string
	preventDuplicates bool
	pending           map[string]*pendingOp
}

// NewTracker returns a Tracker with duplicate prevention enabled.
func NewTracker() *Tracker {
	return &Tracker{
		preventDuplicates: true,
		pending:           make(map[string]*pendingOp),
	}
}

// SetPreventDuplicates toggles per-key duplicate suppression.
func (t *Tracker) SetPreventDuplicates(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preventDuplicates = enabled
}

// Do executes fn under the optional operation key. On failure the error is
// classified, recorded, and re-thrown; on success the previous error is
// cleared. The pending slot for key is always released when fn settles.
func (t *Tracker) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	t.mu.Lock()
	if key != "" && t.preventDuplicates {
		if op, inFlight := t.pending[key]; inFlight {
			t.mu.Unlock()
			return t.wait(ctx, op)
		}
	}

	op := &pendingOp{done: make(chan struct{})}
	if key != "" && t.preventDuplicates {
		t.pending[key] = op
	}
	t.active++
	t.mu.Unlock()

	val, err := fn(ctx)
	classified := apierr.Classify(err)

	t.mu.Lock()
	t.active--
	if key != "" {
		delete(t.pending, key)
	}
	if classified != nil {
		t.err = classified
		t.userMessage = apierr.UserMessage(classified)
	} else {
		t.err = nil
		t.userMessage = ""
	}
	t.mu.Unlock()

	op.val = val
	if classified != nil {
		op.err = classified
	}
	close(op.done)

	if classified != nil {
		return nil, classified
	}
	return val, nil
}

// wait blocks until a shared in-flight operation settles, or ctx is done.
func (t *Tracker) wait(ctx context.Context, op *pendingOp) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-op.done:
		return op.val, op.err
	}
}

// State returns a snapshot of the tracker.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Loading:     t.active > 0,
		Err:         t.err,
		UserMessage: t.userMessage,
	}
}

// ClearError resets only the error fields.
func (t *Tracker) ClearError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = nil
	t.userMessage = ""
}

// Reset clears loading and error state and drops all pending bookkeeping.
// In-flight operations still settle, but later callers no longer share them.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = 0
	t.err = nil
	t.userMessage = ""
	t.pending = make(map[string]*pendingOp)
}
