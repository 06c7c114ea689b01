package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_SleepNonPositive(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	clock.Sleep(0)
	clock.Sleep(-time.Second)
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Sleep with non-positive duration should return immediately")
	}
}

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Sleep(50 * time.Millisecond)
	clock.Sleep(10 * time.Millisecond)

	if got := clock.Since(start); got != 60*time.Millisecond {
		t.Errorf("Since() = %v, want 60ms", got)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 50*time.Millisecond || sleeps[1] != 10*time.Millisecond {
		t.Errorf("Sleeps() = %v", sleeps)
	}
	if clock.TotalSlept() != 60*time.Millisecond {
		t.Errorf("TotalSlept() = %v, want 60ms", clock.TotalSlept())
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(time.Second)
	if !clock.Now().Equal(start.Add(time.Second)) {
		t.Errorf("Now() = %v after Advance", clock.Now())
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("Now() = %v after Set", clock.Now())
	}

	// Sleeps must be a copy.
	clock.Sleep(time.Millisecond)
	s := clock.Sleeps()
	s[0] = 0
	if clock.Sleeps()[0] != time.Millisecond {
		t.Error("Sleeps() should return a copy")
	}
}
