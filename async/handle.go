package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

// Status is the lifecycle state of a handle.
type Status uint8

const (
	Pending Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether s is Completed or Failed.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// Waker is notified once when a polled handle becomes terminal.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to the Waker interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

type state struct {
	result value.Value
	err    error
	waker  Waker
	done   chan struct{}
	mu     sync.Mutex
	status Status
}

// Handle is a reference to one asynchronous operation.
// Copies of a *Handle share the same state.
type Handle struct {
	st *state
	id uint64
}

var _ value.Awaitable = (*Handle)(nil)

func newHandle(id uint64) *Handle {
	return &Handle{
		id: id,
		st: &state{done: make(chan struct{})},
	}
}

// ID returns the handle id.
func (h *Handle) ID() uint64 {
	return h.id
}

// Status returns the current status.
func (h *Handle) Status() Status {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	return h.st.status
}

// Start moves a pending handle to Running.
func (h *Handle) Start() error {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	if h.st.status != Pending {
		return errors.InvalidOperation(errors.PhaseAsync,
			"cannot start async operation %d in state %s", h.id, h.st.status)
	}
	h.st.status = Running
	return nil
}

// Complete stores v and marks the handle Completed.
func (h *Handle) Complete(v value.Value) error {
	return h.finish(Completed, v, nil, "cannot complete async operation that is already %s")
}

// Fail stores err and marks the handle Failed.
func (h *Handle) Fail(err error) error {
	return h.finish(Failed, nil, err, "cannot fail async operation that is already %s")
}

func (h *Handle) finish(to Status, v value.Value, err error, msg string) error {
	h.st.mu.Lock()
	if h.st.status.Terminal() {
		status := h.st.status
		h.st.mu.Unlock()
		return errors.InvalidOperation(errors.PhaseAsync, msg, status)
	}
	h.settle(to, v, err)
	waker := h.st.waker
	h.st.waker = nil
	h.st.mu.Unlock()

	if waker != nil {
		waker.Wake()
	}
	return nil
}

// settle must be called with the state lock held.
func (h *Handle) settle(to Status, v value.Value, err error) {
	h.st.status = to
	h.st.result = v
	h.st.err = err
	close(h.st.done)
}

// Result is the synchronous query. ok is false while the handle is not
// terminal. A failed handle returns its error.
func (h *Handle) Result() (v value.Value, ok bool, err error) {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	return h.resultLocked()
}

func (h *Handle) resultLocked() (value.Value, bool, error) {
	switch h.st.status {
	case Completed:
		if h.st.result == nil {
			return nil, true, errors.InvalidOperation(errors.PhaseAsync,
				"async operation %d completed without result", h.id)
		}
		return h.st.result, true, nil
	case Failed:
		if h.st.err == nil {
			return nil, true, errors.InvalidOperation(errors.PhaseAsync, "async operation failed")
		}
		return nil, true, h.st.err
	}
	return nil, false, nil
}

// Poll reports the result if the handle is terminal. Otherwise it stores w,
// replacing any earlier waker, and returns ready=false.
func (h *Handle) Poll(w Waker) (v value.Value, ready bool, err error) {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	v, ready, err = h.resultLocked()
	if !ready {
		h.st.waker = w
	}
	return v, ready, err
}

// Done returns a channel closed when the handle becomes terminal.
func (h *Handle) Done() <-chan struct{} {
	return h.st.done
}

// Wait blocks until the handle is terminal or ctx is done.
func (h *Handle) Wait(ctx context.Context) (value.Value, error) {
	select {
	case <-h.st.done:
	case <-ctx.Done():
		return nil, errors.Wrap(errors.PhaseAsync, errors.KindInvalidOperation, ctx.Err(),
			fmt.Sprintf("waiting for async operation %d", h.id))
	}
	v, _, err := h.Result()
	return v, err
}

// Value wraps the handle as a runtime value.
func (h *Handle) Value() value.AsyncHandle {
	return value.AsyncHandle{Handle: h}
}
