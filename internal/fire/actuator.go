package fire

import (
	"fmt"
	"sync"
)

// Actuator issues relative cursor motion and button presses.
type Actuator interface {
	MoveBy(dx, dy int) error
	MouseDown() error
	MouseUp() error
}

// EventKind labels a recorded actuator call.
type EventKind int

const (
	EventMove EventKind = iota
	EventDown
	EventUp
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventDown:
		return "down"
	case EventUp:
		return "up"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one recorded actuator call.
type Event struct {
	Kind   EventKind
	DX, DY int
}

// RecordingActuator records every call instead of producing input. It backs
// the synthetic run mode and tests.
type RecordingActuator struct {
	mu     sync.Mutex
	events []Event

	// Err, when set, is returned from every call after recording it.
	Err error
}

// NewRecordingActuator returns an empty recorder.
func NewRecordingActuator() *RecordingActuator {
	return &RecordingActuator{}
}

func (a *RecordingActuator) record(e Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return a.Err
}

func (a *RecordingActuator) MoveBy(dx, dy int) error { return a.record(Event{Kind: EventMove, DX: dx, DY: dy}) }
func (a *RecordingActuator) MouseDown() error        { return a.record(Event{Kind: EventDown}) }
func (a *RecordingActuator) MouseUp() error          { return a.record(Event{Kind: EventUp}) }

// Events returns a copy of the recorded calls.
func (a *RecordingActuator) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// Count returns how many calls of kind were recorded.
func (a *RecordingActuator) Count(kind EventKind) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops the recorded calls.
func (a *RecordingActuator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
}
