package hotkey

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
)

// Source reports the raw down state of a key.
type Source interface {
	IsDown(k Key) bool
}

// Sampler is implemented by sources that latch their state once per poll.
type Sampler interface {
	Sample()
}

// StaticSource is a Source whose keys are pressed and released explicitly.
type StaticSource struct {
	mu   sync.Mutex
	down map[Key]bool
}

// NewStaticSource returns a source with every key released.
func NewStaticSource() *StaticSource {
	return &StaticSource{down: make(map[Key]bool)}
}

func (s *StaticSource) Press(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down[k] = true
}

func (s *StaticSource) Release(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.down, k)
}

func (s *StaticSource) IsDown(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down[k]
}

const (
	// DefaultRepeatDelay covers the pause before a terminal starts
	// auto-repeating a held key.
	DefaultRepeatDelay = 700 * time.Millisecond
	// DefaultRepeatInterval covers the gap between auto-repeat events.
	DefaultRepeatInterval = 100 * time.Millisecond
)

// TerminalSource adapts tcell key events. Terminals report presses but not
// releases, so a key reads as down from its first event until no further
// event arrives within the hold window: RepeatDelay after the first event,
// RepeatInterval once auto-repeat has started. A held key therefore stays
// down across polls and a Debouncer fires it once.
type TerminalSource struct {
	RepeatDelay    time.Duration
	RepeatInterval time.Duration

	clock timeutil.Clock
	mu    sync.Mutex
	keys  map[Key]*heldKey
	down  map[Key]bool
}

type heldKey struct {
	last      time.Time
	repeating bool
}

// NewTerminalSource returns an empty terminal source timed by clock.
func NewTerminalSource(clock timeutil.Clock) *TerminalSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &TerminalSource{
		RepeatDelay:    DefaultRepeatDelay,
		RepeatInterval: DefaultRepeatInterval,
		clock:          clock,
		keys:           make(map[Key]*heldKey),
		down:           make(map[Key]bool),
	}
}

// HandleEvent records function-key presses and reports whether ev was consumed.
func (s *TerminalSource) HandleEvent(ev tcell.Event) bool {
	kev, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	k, ok := FromTcell(kev.Key())
	if !ok {
		return false
	}
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.keys[k]; ok && s.heldLocked(h, now) {
		h.last = now
		h.repeating = true
		return true
	}
	s.keys[k] = &heldKey{last: now}
	return true
}

func (s *TerminalSource) heldLocked(h *heldKey, now time.Time) bool {
	hold := s.RepeatDelay
	if h.repeating {
		hold = s.RepeatInterval
	}
	return now.Sub(h.last) <= hold
}

// Sample latches which keys are held at the current time.
func (s *TerminalSource) Sample() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	down := make(map[Key]bool, len(s.keys))
	for k, h := range s.keys {
		if s.heldLocked(h, now) {
			down[k] = true
			continue
		}
		delete(s.keys, k)
	}
	s.down = down
}

func (s *TerminalSource) IsDown(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down[k]
}
