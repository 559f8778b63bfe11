package memory

import (
	"testing"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHeapEvent(e Event) {
	o.events = append(o.events, e)
}

func TestAllocateBumpsAddresses(t *testing.T) {
	m := New()

	a, err := m.Allocate(8, value.Int(1))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := m.Allocate(16, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if a != BaseAddress {
		t.Errorf("first address = 0x%x, want 0x%x", a, BaseAddress)
	}
	if b != BaseAddress+8 {
		t.Errorf("second address = 0x%x, want 0x%x", b, BaseAddress+8)
	}

	v, err := m.Load(b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := v.(value.Nil); !ok {
		t.Errorf("default initial value = %v, want nil", v)
	}
}

func TestAllocateRejects(t *testing.T) {
	tests := []struct {
		name  string
		limit uint64
		sizes []uint64
	}{
		{"zero size", DefaultLimit, []uint64{0}},
		{"over limit", 64, []uint64{65}},
		{"cumulative", 64, []uint64{32, 32, 1}},
		{"overflow", DefaultLimit, []uint64{8, ^uint64(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWithLimit(tt.limit)
			var err error
			for _, size := range tt.sizes {
				_, err = m.Allocate(size, nil)
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsKind(err, errors.KindInvalidOperation) {
				t.Errorf("kind = %s, want invalid_operation", errors.KindOf(err))
			}
		})
	}
}

func TestLimitCountsLiveBytes(t *testing.T) {
	m := NewWithLimit(64)
	a, err := m.Allocate(64, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := m.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	b, err := m.Allocate(64, nil)
	if err != nil {
		t.Fatalf("Allocate after free: %v", err)
	}
	if b == a {
		t.Errorf("address 0x%x reused", b)
	}
}

func TestLoadStore(t *testing.T) {
	m := New()
	addr, _ := m.Allocate(8, value.Int(1))

	if err := m.Store(addr, value.String("x")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	v, err := m.Load(addr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != value.String("x") {
		t.Errorf("Load = %v, want x", v)
	}
}

func TestFreedAccess(t *testing.T) {
	tests := []struct {
		name string
		op   func(m *Manager, addr uint64) error
		msg  string
	}{
		{"load", func(m *Manager, addr uint64) error { _, err := m.Load(addr); return err }, "accessing freed memory"},
		{"store", func(m *Manager, addr uint64) error { return m.Store(addr, value.Int(2)) }, "writing to freed memory"},
		{"double free", func(m *Manager, addr uint64) error { return m.Free(addr) }, "double free"},
		{"add ref", func(m *Manager, addr uint64) error { return m.AddRef(addr) }, "adding reference to freed memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			addr, _ := m.Allocate(8, value.Int(1))
			if err := m.Free(addr); err != nil {
				t.Fatalf("Free: %v", err)
			}
			err := tt.op(m, addr)
			if err == nil {
				t.Fatal("expected error")
			}
			if !containsSubstring(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestInvalidAddress(t *testing.T) {
	m := New()
	ops := map[string]func() error{
		"load":    func() error { _, err := m.Load(0x42); return err },
		"store":   func() error { return m.Store(0x42, value.Nil{}) },
		"free":    func() error { return m.Free(0x42) },
		"addref":  func() error { return m.AddRef(0x42) },
		"release": func() error { return m.ReleaseRef(0x42) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			if err == nil {
				t.Fatal("expected error")
			}
			if !containsSubstring(err.Error(), "invalid memory address: 0x42") {
				t.Errorf("error = %q", err)
			}
		})
	}
}

func TestReferenceCounting(t *testing.T) {
	m := New()
	addr, _ := m.Allocate(8, value.Int(1))

	if err := m.AddRef(addr); err != nil {
		t.Fatalf("AddRef: %v", err)
	}
	if got := m.Stats().TotalRefs; got != 2 {
		t.Errorf("TotalRefs = %d, want 2", got)
	}

	if err := m.ReleaseRef(addr); err != nil {
		t.Fatalf("ReleaseRef: %v", err)
	}
	obj, _ := m.Object(addr)
	if obj.Freed {
		t.Fatal("object freed with one reference left")
	}

	if err := m.ReleaseRef(addr); err != nil {
		t.Fatalf("ReleaseRef: %v", err)
	}
	obj, _ = m.Object(addr)
	if !obj.Freed {
		t.Fatal("object not freed at zero references")
	}

	err := m.ReleaseRef(addr)
	if err == nil || !containsSubstring(err.Error(), "reference count underflow") {
		t.Errorf("ReleaseRef at zero = %v, want underflow", err)
	}
}

func TestReleaseAfterFreeKeepsTotal(t *testing.T) {
	m := New()
	addr, _ := m.Allocate(8, nil)
	_ = m.Free(addr)
	if err := m.ReleaseRef(addr); err != nil {
		t.Fatalf("ReleaseRef: %v", err)
	}
	if got := m.Stats().TotalAllocated; got != 0 {
		t.Errorf("TotalAllocated = %d, want 0", got)
	}
}

func TestStatsAndCollect(t *testing.T) {
	m := New()
	a, _ := m.Allocate(8, nil)
	_, _ = m.Allocate(16, nil)
	c, _ := m.Allocate(4, nil)
	_ = m.Free(a)
	_ = m.Free(c)

	s := m.Stats()
	if s.TotalAllocated != 16 || s.ActiveObjects != 1 || s.FreedObjects != 2 || s.TotalRefs != 1 || s.HeapSize != 3 {
		t.Errorf("Stats = %+v", s)
	}

	if n := m.CollectGarbage(); n != 2 {
		t.Errorf("CollectGarbage = %d, want 2", n)
	}
	if n := m.CollectGarbage(); n != 0 {
		t.Errorf("second CollectGarbage = %d, want 0", n)
	}

	s = m.Stats()
	if s.HeapSize != 1 || s.FreedObjects != 0 {
		t.Errorf("Stats after collect = %+v", s)
	}
	if _, err := m.Load(a); err == nil || !containsSubstring(err.Error(), "invalid memory address") {
		t.Errorf("Load collected = %v, want invalid address", err)
	}
}

func TestObservers(t *testing.T) {
	m := New()
	obs := &testObserver{}
	m.Subscribe(obs)

	addr, _ := m.Allocate(8, value.Int(1))
	_ = m.Store(addr, value.Int(2))
	_ = m.Free(addr)
	m.CollectGarbage()

	want := []EventType{EventAllocated, EventStored, EventFreed, EventCollected}
	if len(obs.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(obs.events), len(want))
	}
	for i, typ := range want {
		if obs.events[i].Type != typ {
			t.Errorf("event[%d] = %s, want %s", i, obs.events[i].Type, typ)
		}
		if obs.events[i].Address != addr {
			t.Errorf("event[%d] address = 0x%x", i, obs.events[i].Address)
		}
	}

	m.Unsubscribe(obs)
	_, _ = m.Allocate(8, nil)
	if len(obs.events) != len(want) {
		t.Error("observer notified after Unsubscribe")
	}
}

func TestObserverFuncUnsubscribe(t *testing.T) {
	m := New()
	var a, b int
	stopA := m.Subscribe(ObserverFunc(func(Event) { a++ }))
	fn := ObserverFunc(func(Event) { b++ })
	m.Subscribe(fn)

	_, _ = m.Allocate(8, nil)
	if a != 1 || b != 1 {
		t.Fatalf("events = %d, %d, want 1, 1", a, b)
	}

	m.Unsubscribe(fn)
	stopA()
	stopA()
	_, _ = m.Allocate(8, nil)
	if a != 1 {
		t.Errorf("observer notified after its unsubscribe func ran: %d", a)
	}
	if b != 2 {
		t.Errorf("Unsubscribe removed a func observer: %d events", b)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
