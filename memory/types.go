package memory

import (
	"fmt"

	"github.com/wippyai/der-runtime/value"
)

const (
	// BaseAddress is the address of the first allocation.
	BaseAddress uint64 = 0x1000

	// DefaultLimit caps the live bytes of a Manager (1 GiB).
	DefaultLimit uint64 = 1 << 30
)

// EventType identifies a heap lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventStored
	EventFreed
	EventCollected
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventStored:
		return "stored"
	case EventFreed:
		return "freed"
	case EventCollected:
		return "collected"
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

// Event represents a heap lifecycle event.
type Event struct {
	Value   value.Value
	Address uint64
	Size    uint64
	Type    EventType
}

// Observer receives notifications about heap events.
type Observer interface {
	OnHeapEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHeapEvent(e Event) { f(e) }

// Object is a heap cell.
type Object struct {
	Value    value.Value
	Address  uint64
	Size     uint64
	RefCount uint64
	Freed    bool
}
