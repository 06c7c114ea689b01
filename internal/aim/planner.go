// Package aim converts a selected box into an aim point, leads it by recent
// motion and turns the remaining offset into a relative cursor move.
package aim

import (
	"math"

	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

const (
	// HistoryCapacity bounds the prediction history.
	HistoryCapacity = 5
	// predictionWindow is the number of most recent samples used for velocity.
	predictionWindow = 3
	// DefaultTrajectoryWindow bounds AverageTrajectory.
	DefaultTrajectoryWindow = 10

	headshotFraction = 0.2
	bodyFraction     = 0.4
)

// AimPoint returns the point to aim at inside box: horizontally centred and
// biased toward the top of the box (20% down for headshots, 40% otherwise).
func AimPoint(box vision.Detection, headshot bool) vision.Point {
	frac := bodyFraction
	if headshot {
		frac = headshotFraction
	}
	return vision.Point{
		X: (box.X1 + box.X2) / 2,
		Y: box.Y1 + box.Height()*frac,
	}
}

// Smooth scales the offset from center to target by smoothness and truncates
// toward zero. ok is false when neither axis moves by more than one pixel.
func Smooth(target vision.Point, center, smoothness float64) (dx, dy int, ok bool) {
	dx = int((target.X - center) * smoothness)
	dy = int((target.Y - center) * smoothness)
	if abs(dx) <= 1 && abs(dy) <= 1 {
		return dx, dy, false
	}
	return dx, dy, true
}

// Lead offsets p by velocity scaled by k.
func Lead(p, velocity vision.Point, k float64) vision.Point {
	return vision.Point{X: p.X + velocity.X*k, Y: p.Y + velocity.Y*k}
}

// Planner holds the bounded aim history used for prediction. It is owned by
// the control loop and not safe for concurrent use.
type Planner struct {
	history    []vision.Point
	trajectory []vision.Point
	trajWindow int
}

// NewPlanner returns a planner with empty history.
func NewPlanner() *Planner {
	return &Planner{
		history:    make([]vision.Point, 0, HistoryCapacity),
		trajWindow: DefaultTrajectoryWindow,
	}
}

// Predict records p and returns it led by the raw positional delta across the
// last three samples times factor. With fewer than three samples p is
// returned unchanged.
func (pl *Planner) Predict(p vision.Point, factor float64) vision.Point {
	pl.history = push(pl.history, p, HistoryCapacity)
	if len(pl.history) < predictionWindow {
		return p
	}
	recent := pl.history[len(pl.history)-predictionWindow:]
	oldest, newest := recent[0], recent[len(recent)-1]
	velocity := vision.Point{X: newest.X - oldest.X, Y: newest.Y - oldest.Y}
	return Lead(p, velocity, factor)
}

// AverageTrajectory records p and returns the mean of the trajectory window.
func (pl *Planner) AverageTrajectory(p vision.Point) vision.Point {
	pl.trajectory = push(pl.trajectory, p, pl.trajWindow)
	var sx, sy float64
	for _, q := range pl.trajectory {
		sx += q.X
		sy += q.Y
	}
	n := float64(len(pl.trajectory))
	return vision.Point{X: sx / n, Y: sy / n}
}

// History returns a copy of the prediction history, oldest first.
func (pl *Planner) History() []vision.Point {
	out := make([]vision.Point, len(pl.history))
	copy(out, pl.history)
	return out
}

// Reset clears the prediction and trajectory history.
func (pl *Planner) Reset() {
	pl.history = pl.history[:0]
	pl.trajectory = pl.trajectory[:0]
}

// Distance returns how far p is from the square region centre.
func Distance(p vision.Point, center float64) float64 {
	return math.Hypot(p.X-center, p.Y-center)
}

func push(buf []vision.Point, p vision.Point, capacity int) []vision.Point {
	if len(buf) >= capacity {
		copy(buf, buf[len(buf)-capacity+1:])
		buf = buf[:capacity-1]
	}
	return append(buf, p)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
