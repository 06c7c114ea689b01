// Package fire sequences click and recoil-compensation input once a target is
// inside tolerance, with optional humanization of timing.
package fire

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
)

const (
	// DefaultHoldDuration is how long the button stays down per shot.
	DefaultHoldDuration = 50 * time.Millisecond
	// DefaultBurstShotDelay is the fixed pre-click delay of each burst shot.
	DefaultBurstShotDelay = 10 * time.Millisecond
)

// Result describes one Fire or Burst call.
type Result struct {
	Shots   int
	Delays  []time.Duration
	Aborted bool
}

// Sequencer turns fire decisions into actuator calls.
type Sequencer struct {
	HoldDuration   time.Duration
	BurstShotDelay time.Duration

	actuator  Actuator
	clock     timeutil.Clock
	humanizer *Humanizer
	shots     atomic.Int64
}

// NewSequencer creates a sequencer. A nil clock uses the real clock; a nil
// humanizer disables humanized delays even when requested.
func NewSequencer(actuator Actuator, clock timeutil.Clock, humanizer *Humanizer) *Sequencer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Sequencer{
		HoldDuration:   DefaultHoldDuration,
		BurstShotDelay: DefaultBurstShotDelay,
		actuator:       actuator,
		clock:          clock,
		humanizer:      humanizer,
	}
}

// Fire waits the reaction delay (humanized when requested), then presses and
// releases the button. Actuator failures are logged and do not stop the sequence.
func (s *Sequencer) Fire(ctx context.Context, baseDelay time.Duration, humanize bool) Result {
	delay := baseDelay
	if humanize && s.humanizer != nil {
		delay = s.humanizer.Delay(baseDelay)
	}
	if !s.shoot(ctx, delay) {
		return Result{Aborted: true}
	}
	return Result{Shots: 1, Delays: []time.Duration{delay}}
}

// Burst fires count shots. Before shot i a vertical compensation move of
// recoil[i] is issued when the pattern covers i and the entry is non-zero.
// interShot separates consecutive shots. Cancelling ctx stops the burst
// between shots.
func (s *Sequencer) Burst(ctx context.Context, count int, interShot time.Duration, recoil []int) Result {
	var res Result
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			res.Aborted = true
			return res
		}
		if i < len(recoil) && recoil[i] != 0 {
			s.call("move", func() error { return s.actuator.MoveBy(0, recoil[i]) })
		}
		if !s.shoot(ctx, s.BurstShotDelay) {
			res.Aborted = true
			return res
		}
		res.Shots++
		res.Delays = append(res.Delays, s.BurstShotDelay)
		if i < count-1 {
			s.clock.Sleep(interShot)
		}
	}
	return res
}

func (s *Sequencer) shoot(ctx context.Context, delay time.Duration) bool {
	s.clock.Sleep(delay)
	if ctx.Err() != nil {
		return false
	}
	s.call("mouse down", s.actuator.MouseDown)
	s.clock.Sleep(s.HoldDuration)
	s.call("mouse up", s.actuator.MouseUp)
	s.shots.Add(1)
	return true
}

func (s *Sequencer) call(what string, fn func() error) {
	if err := fn(); err != nil {
		monitoring.Logf("[fire] %s failed: %v", what, err)
	}
}

// Move issues a relative cursor move, logging failures.
func (s *Sequencer) Move(dx, dy int) {
	s.call("move", func() error { return s.actuator.MoveBy(dx, dy) })
}

// Shots returns the number of shots fired since creation or Reset.
func (s *Sequencer) Shots() int64 {
	return s.shots.Load()
}

// Reset zeroes the shot counter.
func (s *Sequencer) Reset() {
	s.shots.Store(0)
}
