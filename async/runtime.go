package async

import (
	"sort"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

// Runtime is the registry of handles for one execution context.
type Runtime struct {
	handles map[uint64]*Handle
	next    uint64
}

// NewRuntime creates an empty registry. The first handle has id 1.
func NewRuntime() *Runtime {
	return &Runtime{
		handles: make(map[uint64]*Handle),
		next:    1,
	}
}

// Begin registers a new pending handle.
func (r *Runtime) Begin() *Handle {
	h := newHandle(r.next)
	r.next++
	r.handles[h.id] = h
	return h
}

// Lookup returns the registered handle with the given id.
func (r *Runtime) Lookup(id uint64) (*Handle, bool) {
	h, ok := r.handles[id]
	return h, ok
}

// Complete completes h with v.
func (r *Runtime) Complete(h *Handle, v value.Value) error {
	return h.Complete(v)
}

// Fail fails h with err.
func (r *Runtime) Fail(h *Handle, err error) error {
	return h.Fail(err)
}

// Status returns the status of h.
func (r *Runtime) Status(h *Handle) Status {
	return h.Status()
}

// Result is the synchronous query used by AsyncAwait.
func (r *Runtime) Result(h *Handle) (value.Value, bool, error) {
	return h.Result()
}

// CleanupCompleted drops every terminal handle from the registry and
// returns how many were removed. Handles held elsewhere stay usable.
func (r *Runtime) CleanupCompleted() int {
	removed := 0
	for id, h := range r.handles {
		if h.Status().Terminal() {
			delete(r.handles, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered handles.
func (r *Runtime) Len() int {
	return len(r.handles)
}

// IDs returns the registered handle ids in ascending order.
func (r *Runtime) IDs() []uint64 {
	ids := make([]uint64, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Promise is the producer side of a handle. Unlike Complete and Fail,
// Resolve and Reject only succeed from Pending.
type Promise struct {
	handle *Handle
}

// NewPromise returns a promise that settles h.
func NewPromise(h *Handle) *Promise {
	return &Promise{handle: h}
}

// Handle returns the handle the promise settles.
func (p *Promise) Handle() *Handle {
	return p.handle
}

// Resolve completes the handle with v.
func (p *Promise) Resolve(v value.Value) error {
	return p.settle(Completed, v, nil)
}

// Reject fails the handle with err.
func (p *Promise) Reject(err error) error {
	return p.settle(Failed, nil, err)
}

func (p *Promise) settle(to Status, v value.Value, err error) error {
	st := p.handle.st
	st.mu.Lock()
	if st.status != Pending {
		st.mu.Unlock()
		return errors.InvalidOperation(errors.PhaseAsync, "promise already resolved")
	}
	p.handle.settle(to, v, err)
	waker := st.waker
	st.waker = nil
	st.mu.Unlock()

	if waker != nil {
		waker.Wake()
	}
	return nil
}
