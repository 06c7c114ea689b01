package aim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

func TestAimPoint(t *testing.T) {
	t.Parallel()
	box := vision.Detection{X1: 0, Y1: 0, X2: 100, Y2: 100}

	assert.Equal(t, vision.Point{X: 50, Y: 20}, AimPoint(box, true))
	assert.Equal(t, vision.Point{X: 50, Y: 40}, AimPoint(box, false))

	e2e := vision.Detection{X1: 180, Y1: 180, X2: 220, Y2: 220}
	p := AimPoint(e2e, true)
	assert.Equal(t, vision.Point{X: 200, Y: 188}, p)
	assert.InDelta(t, 12.0, Distance(p, 200), 1e-9)
}

func TestPredict(t *testing.T) {
	t.Parallel()
	pl := NewPlanner()

	// Fewer than three samples: unchanged.
	assert.Equal(t, vision.Point{X: 0, Y: 0}, pl.Predict(vision.Point{X: 0, Y: 0}, 0.5))
	assert.Equal(t, vision.Point{X: 10, Y: 0}, pl.Predict(vision.Point{X: 10, Y: 0}, 0.5))

	// Third sample: last three 0, 10, 20 -> delta 20.
	got := pl.Predict(vision.Point{X: 20, Y: 0}, 0.5)
	assert.Equal(t, vision.Point{X: 30, Y: 0}, got)
}

func TestPredict_CurrentJoinsHistory(t *testing.T) {
	t.Parallel()
	pl := NewPlanner()
	for _, x := range []float64{0, 10, 20} {
		pl.Predict(vision.Point{X: x}, 0.5)
	}
	// History 0, 10, 20 then current 20: last three 10, 20, 20 -> delta 10.
	got := pl.Predict(vision.Point{X: 20}, 0.5)
	assert.Equal(t, vision.Point{X: 25}, got)
	assert.Len(t, pl.History(), 4)
}

func TestPredict_UsesLastThreeOnly(t *testing.T) {
	t.Parallel()
	pl := NewPlanner()
	for _, x := range []float64{0, 100, 200, 202, 204} {
		pl.Predict(vision.Point{X: x}, 1)
	}
	// Last three: 202, 204, 206 -> velocity 4, ignoring the earlier jump.
	got := pl.Predict(vision.Point{X: 206}, 1)
	assert.Equal(t, vision.Point{X: 210}, got)
}

func TestPredict_HistoryBounded(t *testing.T) {
	t.Parallel()
	pl := NewPlanner()
	for i := 0; i < 8; i++ {
		pl.Predict(vision.Point{X: float64(i)}, 0.18)
	}
	h := pl.History()
	assert.Len(t, h, HistoryCapacity)
	assert.Equal(t, vision.Point{X: 3}, h[0])
	assert.Equal(t, vision.Point{X: 7}, h[4])

	h[0].X = 99
	assert.Equal(t, 3.0, pl.History()[0].X)

	pl.Reset()
	assert.Empty(t, pl.History())
	assert.Equal(t, vision.Point{X: 40}, pl.Predict(vision.Point{X: 40}, 1))
}

func TestSmooth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     vision.Point
		center     float64
		smoothness float64
		dx, dy     int
		ok         bool
	}{
		{"half step right", vision.Point{X: 150, Y: 100}, 100, 0.5, 25, 0, true},
		{"truncates toward zero", vision.Point{X: 97, Y: 103}, 100, 0.5, -1, 1, false},
		{"negative truncation", vision.Point{X: 90, Y: 100}, 100, 0.35, -3, 0, true},
		{"micro jitter suppressed", vision.Point{X: 101.9, Y: 98.1}, 100, 1, 1, -1, false},
		{"one axis over threshold", vision.Point{X: 100, Y: 104}, 100, 0.5, 0, 2, true},
		{"full step", vision.Point{X: 60, Y: 130}, 100, 1, -40, 30, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dx, dy, ok := Smooth(tt.target, tt.center, tt.smoothness)
			assert.Equal(t, tt.dx, dx)
			assert.Equal(t, tt.dy, dy)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLead(t *testing.T) {
	t.Parallel()
	got := Lead(vision.Point{X: 10, Y: 10}, vision.Point{X: 4, Y: -2}, 0.5)
	assert.Equal(t, vision.Point{X: 12, Y: 9}, got)
}

func TestAverageTrajectory(t *testing.T) {
	t.Parallel()
	pl := NewPlanner()
	assert.Equal(t, vision.Point{X: 10, Y: 0}, pl.AverageTrajectory(vision.Point{X: 10}))
	assert.Equal(t, vision.Point{X: 15, Y: 5}, pl.AverageTrajectory(vision.Point{X: 20, Y: 10}))

	for i := 0; i < DefaultTrajectoryWindow; i++ {
		pl.AverageTrajectory(vision.Point{X: 100, Y: 100})
	}
	assert.Equal(t, vision.Point{X: 100, Y: 100}, pl.AverageTrajectory(vision.Point{X: 100, Y: 100}))
}
