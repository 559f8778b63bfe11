package memory

import (
	"reflect"
	"sync"

	derruntime "github.com/wippyai/der-runtime"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/value"
)

var _ derruntime.Heap = (*Manager)(nil)

// Manager is a bump-allocated heap of value cells.
type Manager struct {
	objects   map[uint64]*Object
	observers []subscription
	nextSub   uint64
	next      uint64
	total     uint64
	limit     uint64
	obsMu     sync.RWMutex
}

// New creates a heap with DefaultLimit.
func New() *Manager {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit creates a heap that refuses allocations beyond limit live bytes.
func NewWithLimit(limit uint64) *Manager {
	return &Manager{
		objects: make(map[uint64]*Object),
		next:    BaseAddress,
		limit:   limit,
	}
}

// Allocate reserves size bytes holding initial and returns the address.
func (m *Manager) Allocate(size uint64, initial value.Value) (uint64, error) {
	if size == 0 {
		return 0, errors.InvalidOperation(errors.PhaseMemory, "allocation size must be positive")
	}
	if m.total+size > m.limit || m.total+size < m.total {
		return 0, errors.New(errors.PhaseMemory, errors.KindInvalidOperation).
			Value(size).
			Detail("memory allocation limit exceeded (%d + %d > %d)", m.total, size, m.limit).
			Build()
	}
	if initial == nil {
		initial = value.Nil{}
	}

	addr := m.next
	m.next += size
	m.total += size
	m.objects[addr] = &Object{
		Address:  addr,
		Size:     size,
		Value:    initial,
		RefCount: 1,
	}

	m.notify(Event{Type: EventAllocated, Address: addr, Size: size, Value: initial})
	return addr, nil
}

// Load returns the value stored at addr.
func (m *Manager) Load(addr uint64) (value.Value, error) {
	obj, err := m.live(addr, "accessing freed memory")
	if err != nil {
		return nil, err
	}
	return obj.Value, nil
}

// Store replaces the value at addr.
func (m *Manager) Store(addr uint64, v value.Value) error {
	obj, err := m.live(addr, "writing to freed memory")
	if err != nil {
		return err
	}
	obj.Value = v
	m.notify(Event{Type: EventStored, Address: addr, Size: obj.Size, Value: v})
	return nil
}

// Free tombstones the object at addr.
func (m *Manager) Free(addr uint64) error {
	obj, err := m.live(addr, "double free")
	if err != nil {
		return err
	}
	m.tombstone(obj)
	return nil
}

// AddRef increments the reference count of a live object.
func (m *Manager) AddRef(addr uint64) error {
	obj, err := m.live(addr, "adding reference to freed memory")
	if err != nil {
		return err
	}
	obj.RefCount++
	return nil
}

// ReleaseRef decrements the reference count, freeing the object at zero.
func (m *Manager) ReleaseRef(addr uint64) error {
	obj, ok := m.objects[addr]
	if !ok {
		return invalidAddress(addr)
	}
	if obj.RefCount == 0 {
		return errors.New(errors.PhaseMemory, errors.KindInvalidOperation).
			Value(addr).
			Detail("reference count underflow at 0x%x", addr).
			Build()
	}
	obj.RefCount--
	if obj.RefCount == 0 && !obj.Freed {
		m.tombstone(obj)
	}
	return nil
}

// CollectGarbage removes every tombstone and returns how many were removed.
func (m *Manager) CollectGarbage() int {
	count := 0
	for addr, obj := range m.objects {
		if obj.Freed {
			delete(m.objects, addr)
			count++
			m.notify(Event{Type: EventCollected, Address: addr, Size: obj.Size})
		}
	}
	return count
}

// Stats summarizes the heap without modifying it.
func (m *Manager) Stats() derruntime.HeapStats {
	s := derruntime.HeapStats{
		TotalAllocated: m.total,
		HeapSize:       len(m.objects),
	}
	for _, obj := range m.objects {
		if obj.Freed {
			s.FreedObjects++
			continue
		}
		s.ActiveObjects++
		s.TotalRefs += obj.RefCount
	}
	return s
}

// Object returns a copy of the cell at addr, tombstones included.
func (m *Manager) Object(addr uint64) (Object, bool) {
	obj, ok := m.objects[addr]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Limit returns the configured allocation ceiling.
func (m *Manager) Limit() uint64 {
	return m.limit
}

type subscription struct {
	id uint64
	o  Observer
}

// Subscribe adds an observer for heap events. The returned func removes
// exactly this subscription and is safe to call more than once.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.observers = append(m.observers, subscription{id: id, o: o})
	return func() { m.remove(func(s subscription) bool { return s.id == id }) }
}

// Unsubscribe removes the first subscription of o. Observers whose
// dynamic type is not comparable, such as ObserverFunc, never match; use
// the func returned by Subscribe for those.
func (m *Manager) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	m.remove(func(s subscription) bool {
		return reflect.TypeOf(s.o).Comparable() && s.o == o
	})
}

func (m *Manager) remove(match func(subscription) bool) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for i, s := range m.observers {
		if match(s) {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

func (m *Manager) live(addr uint64, freedMsg string) (*Object, error) {
	obj, ok := m.objects[addr]
	if !ok {
		return nil, invalidAddress(addr)
	}
	if obj.Freed {
		return nil, errors.New(errors.PhaseMemory, errors.KindInvalidOperation).
			Value(addr).
			Detail("%s at 0x%x", freedMsg, addr).
			Build()
	}
	return obj, nil
}

func (m *Manager) tombstone(obj *Object) {
	obj.Freed = true
	m.total -= obj.Size
	m.notify(Event{Type: EventFreed, Address: obj.Address, Size: obj.Size, Value: obj.Value})
}

func (m *Manager) notify(e Event) {
	m.obsMu.RLock()
	defer m.obsMu.RUnlock()
	for _, s := range m.observers {
		s.o.OnHeapEvent(e)
	}
}

func invalidAddress(addr uint64) error {
	return errors.New(errors.PhaseMemory, errors.KindInvalidOperation).
		Value(addr).
		Detail("invalid memory address: 0x%x", addr).
		Build()
}
