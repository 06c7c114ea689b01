package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/targeting"
	"github.com/Memati8383/AI-Triggerbot/internal/tracking"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// Stats is the counter summary of a session.
type Stats struct {
	SessionID  string               `json:"session_id"`
	StartedAt  time.Time            `json:"started_at"`
	State      State                `json:"state"`
	Active     bool                 `json:"active"`
	Panic      bool                 `json:"panic"`
	Detections int64                `json:"detections"`
	Hits       int64                `json:"hits"`
	Misses     int64                `json:"misses"`
	Shots      int64                `json:"shots"`
	Accuracy   float64              `json:"accuracy"` // hits / shots * 100
	Profile    string               `json:"profile"`
	Priority   string               `json:"priority"`
	Confidence float64              `json:"confidence"`
	Perf       monitoring.PerfStats `json:"perf"`
}

// Snapshot is the consistent view the control loop publishes for readers.
// It is replaced whole; readers never observe a partially written snapshot.
type Snapshot struct {
	Seq       uint64               `json:"seq"`
	At        time.Time            `json:"at"`
	Frame     *vision.Frame        `json:"-"`
	Tracked   []tracking.Tracked   `json:"tracked"`
	Selection *targeting.Selection `json:"selection,omitempty"`
	AimPoint  *vision.Point        `json:"aim_point,omitempty"`
	State     State                `json:"state"`
}

// Session owns the process-wide mutable state: flags, counters and the
// shared snapshot.
type Session struct {
	ID        string
	StartedAt time.Time

	active   atomic.Bool
	panicked atomic.Bool
	running  atomic.Bool
	state    atomic.Int32

	detections atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64

	mu   sync.RWMutex
	snap Snapshot
	seq  uint64
}

// NewSession creates an inactive session with a fresh id.
func NewSession(startedAt time.Time) *Session {
	return &Session{ID: uuid.NewString(), StartedAt: startedAt}
}

func (s *Session) Active() bool { return s.active.Load() }
func (s *Session) Panic() bool  { return s.panicked.Load() }

// Running reports whether the control loop should keep going.
func (s *Session) Running() bool { return s.running.Load() }

// State returns the state set by the most recent tick.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Snapshot returns the latest published snapshot. The tracked slice is
// shared read-only with other readers and must not be modified.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// publish replaces the shared snapshot. The caller hands over ownership of
// the tracked slice.
func (s *Session) publish(snap Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	snap.Seq = s.seq
	s.snap = snap
	return snap
}

func (s *Session) resetCounters() {
	s.detections.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
}
