package engine

import (
	"fmt"
	"math"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/targeting"
)

const (
	minConfidence = 0.10
	maxConfidence = 0.95
)

// Toggle flips the active flag and always leaves panic mode. It returns the
// new active value.
func (e *Engine) Toggle() bool {
	active := !e.session.active.Load()
	e.session.active.Store(active)
	e.session.panicked.Store(false)
	if !active {
		e.session.setState(Idle)
	}
	monitoring.Logf("[engine] active=%t", active)
	return active
}

// SetActive sets the active flag explicitly and leaves panic mode.
func (e *Engine) SetActive(active bool) {
	e.session.active.Store(active)
	e.session.panicked.Store(false)
}

// Panic deactivates the loop until the next Toggle.
func (e *Engine) Panic() {
	e.session.panicked.Store(true)
	e.session.active.Store(false)
	e.session.setState(Idle)
	monitoring.Logf("[engine] panic mode")
}

// Active reports whether ticks run the pipeline.
func (e *Engine) Active() bool { return e.session.Active() && !e.session.Panic() }

// State returns the state of the most recent tick.
func (e *Engine) State() State { return e.session.State() }

// Stats returns the current counters together with performance figures.
func (e *Engine) Stats() Stats {
	cfg := e.store.Snapshot()
	s := Stats{
		SessionID:  e.session.ID,
		StartedAt:  e.session.StartedAt,
		State:      e.session.State(),
		Active:     e.session.Active(),
		Panic:      e.session.Panic(),
		Detections: e.session.detections.Load(),
		Hits:       e.session.hits.Load(),
		Misses:     e.session.misses.Load(),
		Shots:      e.sequencer.Shots(),
		Profile:    cfg.GetProfile(),
		Priority:   cfg.GetTargetPriority(),
		Confidence: cfg.GetConfidence(),
		Perf:       e.perf.Stats(),
	}
	if s.Shots > 0 {
		s.Accuracy = float64(s.Hits) / float64(s.Shots) * 100
	}
	return s
}

// ApplyProfile merges a named profile into the configuration.
func (e *Engine) ApplyProfile(name string) error {
	if err := e.store.ApplyProfile(name); err != nil {
		return err
	}
	monitoring.Logf("[engine] profile: %s", name)
	return nil
}

// CycleProfile applies the next profile in cycle order and returns its name.
func (e *Engine) CycleProfile() (string, error) {
	next := config.NextProfile(e.store.Snapshot().GetProfile())
	return next, e.ApplyProfile(next)
}

// CyclePriority advances the target priority mode and returns it.
func (e *Engine) CyclePriority() (targeting.Mode, error) {
	cur, _ := targeting.ParseMode(e.store.Snapshot().GetTargetPriority())
	next := cur.Next()
	if err := e.store.Set("target_priority", next.String()); err != nil {
		return cur, err
	}
	monitoring.Logf("[engine] priority: %s", next)
	return next, nil
}

// AdjustConfidence shifts the detection threshold by delta, clamped to
// [0.10, 0.95], and returns the new value.
func (e *Engine) AdjustConfidence(delta float64) (float64, error) {
	cur := e.store.Snapshot().GetConfidence()
	next := math.Round((cur+delta)*100) / 100
	next = math.Max(minConfidence, math.Min(maxConfidence, next))
	if err := e.store.Set("confidence", next); err != nil {
		return cur, err
	}
	monitoring.Logf("[engine] confidence: %.2f", next)
	return next, nil
}

// ToggleSetting flips a boolean configuration key and returns the new value.
func (e *Engine) ToggleSetting(key string) (bool, error) {
	v, ok := e.store.Get(key, nil).(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is not a boolean setting", config.ErrUnknownKey, key)
	}
	if err := e.store.Set(key, !v); err != nil {
		return v, err
	}
	monitoring.Logf("[engine] %s=%t", key, !v)
	return !v, nil
}

// SaveConfig persists the configuration store.
func (e *Engine) SaveConfig() error { return e.store.Save() }

// LoadConfig reloads the configuration store from disk.
func (e *Engine) LoadConfig() error { return e.store.Load() }

// Reset clears tracks, aim history, the last selection and all counters. It
// is safe to call from any goroutine and waits for an in-flight tick.
func (e *Engine) Reset() {
	e.pipelineMu.Lock()
	defer e.pipelineMu.Unlock()
	e.registry.Reset()
	e.planner.Reset()
	e.prioritizer.Reset()
	e.sequencer.Reset()
	e.perf.Reset()
	e.session.resetCounters()
	e.session.setState(Idle)
}
