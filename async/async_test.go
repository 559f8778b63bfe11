package async_test

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/der-runtime/async"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

func TestBeginAssignsIncreasingIDs(t *testing.T) {
	r := async.NewRuntime()
	for want := uint64(1); want <= 3; want++ {
		h := r.Begin()
		if h.ID() != want {
			t.Errorf("ID = %d, want %d", h.ID(), want)
		}
		if h.Status() != async.Pending {
			t.Errorf("Status = %s, want pending", h.Status())
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestCompleteAndResult(t *testing.T) {
	r := async.NewRuntime()
	h := r.Begin()

	if _, ok, err := r.Result(h); ok || err != nil {
		t.Fatalf("pending Result = ok %v, err %v", ok, err)
	}

	if err := r.Complete(h, value.Int(42)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	v, ok, err := r.Result(h)
	if !ok || err != nil {
		t.Fatalf("Result = ok %v, err %v", ok, err)
	}
	if v != value.Int(42) {
		t.Errorf("Result = %v, want 42", v)
	}
	if r.Status(h) != async.Completed {
		t.Errorf("Status = %s", r.Status(h))
	}
}

func TestFailResult(t *testing.T) {
	r := async.NewRuntime()
	h := r.Begin()
	cause := errors.DivisionByZero()

	if err := r.Fail(h, cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	_, ok, err := r.Result(h)
	if !ok {
		t.Fatal("failed handle not terminal")
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("Result error = %v, want %v", err, cause)
	}

	h2 := r.Begin()
	_ = r.Fail(h2, nil)
	_, _, err = r.Result(h2)
	if err == nil || !errors.IsKind(err, errors.KindInvalidOperation) {
		t.Errorf("nil failure = %v, want generic invalid_operation", err)
	}
}

func TestTerminalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		settle func(h *async.Handle) error
		again  func(h *async.Handle) error
	}{
		{"complete twice", func(h *async.Handle) error { return h.Complete(value.Int(1)) }, func(h *async.Handle) error { return h.Complete(value.Int(2)) }},
		{"fail after complete", func(h *async.Handle) error { return h.Complete(value.Int(1)) }, func(h *async.Handle) error { return h.Fail(errors.DivisionByZero()) }},
		{"complete after fail", func(h *async.Handle) error { return h.Fail(errors.DivisionByZero()) }, func(h *async.Handle) error { return h.Complete(value.Int(1)) }},
		{"start after complete", func(h *async.Handle) error { return h.Complete(value.Int(1)) }, func(h *async.Handle) error { return h.Start() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := async.NewRuntime().Begin()
			if err := tt.settle(h); err != nil {
				t.Fatalf("first transition: %v", err)
			}
			err := tt.again(h)
			if !errors.IsKind(err, errors.KindInvalidOperation) {
				t.Errorf("second transition = %v, want invalid_operation", err)
			}
		})
	}
}

func TestRunningCanComplete(t *testing.T) {
	h := async.NewRuntime().Begin()
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.Status() != async.Running {
		t.Fatalf("Status = %s, want running", h.Status())
	}
	if err := h.Complete(value.String("ok")); err != nil {
		t.Fatalf("Complete from running: %v", err)
	}
}

func TestPollStoresWaker(t *testing.T) {
	h := async.NewRuntime().Begin()

	var first, second atomic.Int32
	_, ready, _ := h.Poll(async.WakerFunc(func() { first.Add(1) }))
	if ready {
		t.Fatal("pending handle reported ready")
	}
	_, _, _ = h.Poll(async.WakerFunc(func() { second.Add(1) }))

	_ = h.Complete(value.Bool(true))

	if first.Load() != 0 {
		t.Error("replaced waker was woken")
	}
	if second.Load() != 1 {
		t.Errorf("latest waker woken %d times, want 1", second.Load())
	}

	v, ready, err := h.Poll(nil)
	if !ready || err != nil || v != value.Bool(true) {
		t.Errorf("Poll after complete = %v, %v, %v", v, ready, err)
	}
}

func TestWait(t *testing.T) {
	h := async.NewRuntime().Begin()
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = h.Complete(value.Int(7))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != value.Int(7) {
		t.Errorf("Wait = %v, want 7", v)
	}
}

func TestWaitCanceled(t *testing.T) {
	h := async.NewRuntime().Begin()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Wait(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled in chain", err)
	}
}

func TestCleanupCompleted(t *testing.T) {
	r := async.NewRuntime()
	a := r.Begin()
	b := r.Begin()
	c := r.Begin()
	_ = a.Complete(value.Nil{})
	_ = c.Fail(errors.DivisionByZero())

	if n := r.CleanupCompleted(); n != 2 {
		t.Errorf("CleanupCompleted = %d, want 2", n)
	}
	ids := r.IDs()
	if len(ids) != 1 || ids[0] != b.ID() {
		t.Errorf("IDs = %v, want [%d]", ids, b.ID())
	}
	if _, ok := r.Lookup(a.ID()); ok {
		t.Error("cleaned handle still registered")
	}
	if v, ok, _ := a.Result(); !ok || v != (value.Nil{}) {
		t.Error("cleaned handle lost its result")
	}
}

func TestPromise(t *testing.T) {
	r := async.NewRuntime()

	t.Run("resolve", func(t *testing.T) {
		p := async.NewPromise(r.Begin())
		if err := p.Resolve(value.Int(1)); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if err := p.Resolve(value.Int(2)); err == nil {
			t.Error("second Resolve succeeded")
		}
		v, _, _ := p.Handle().Result()
		if v != value.Int(1) {
			t.Errorf("Result = %v, want 1", v)
		}
	})

	t.Run("reject", func(t *testing.T) {
		p := async.NewPromise(r.Begin())
		if err := p.Reject(errors.KeyNotFound("k")); err != nil {
			t.Fatalf("Reject: %v", err)
		}
		_, _, err := p.Handle().Result()
		if !errors.IsKind(err, errors.KindKeyNotFound) {
			t.Errorf("Result error = %v", err)
		}
	})

	t.Run("running is not pending", func(t *testing.T) {
		h := r.Begin()
		_ = h.Start()
		err := async.NewPromise(h).Resolve(value.Int(1))
		if err == nil {
			t.Error("Resolve on running handle succeeded")
		}
	})
}

func TestHandleValue(t *testing.T) {
	h := async.NewRuntime().Begin()
	v := h.Value()
	if v.Kind() != value.KindAsyncHandle {
		t.Errorf("Kind = %s", v.Kind())
	}
	if v.String() != "<async:1>" {
		t.Errorf("String = %q", v.String())
	}
}
