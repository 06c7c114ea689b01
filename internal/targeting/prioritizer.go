// Package targeting filters and scores the detections of one frame and picks
// at most one target.
package targeting

import (
	"fmt"
	"math"

	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// Mode selects the scoring criterion.
type Mode int

const (
	Closest Mode = iota
	HighestConfidence
	Largest
)

var modeNames = [...]string{
	Closest:           "closest",
	HighestConfidence: "highest_conf",
	Largest:           "largest",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode maps a configuration string to a Mode. Unrecognised strings fall
// back to Closest and report false.
func ParseMode(s string) (Mode, bool) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), true
		}
	}
	return Closest, false
}

// Next returns the following mode in the hotkey cycle.
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % len(modeNames))
}

// Modes lists every mode in cycle order.
func Modes() []Mode {
	return []Mode{Closest, HighestConfidence, Largest}
}

// Selection is the chosen target of one tick.
type Selection struct {
	Detection vision.Detection `json:"detection"`
	AimX      float64          `json:"aim_x"`
	AimY      float64          `json:"aim_y"`
	Distance  float64          `json:"distance"`
}

// Criteria bundles the filter thresholds and scoring mode.
type Criteria struct {
	Mode        Mode
	MaxDistance float64
	MinSize     float64
}

// Prioritizer selects targets and remembers the last selection for reporting.
// The remembered selection never influences the next choice.
type Prioritizer struct {
	last    Selection
	hasLast bool
}

// NewPrioritizer returns an empty prioritizer.
func NewPrioritizer() *Prioritizer {
	return &Prioritizer{}
}

// Select picks the highest-scoring detection whose centre lies within
// maxDistance of (screenCenter, screenCenter) and whose area is at least
// minSize. Ties keep the first encountered detection. It reports false when
// nothing survives the filters.
func (p *Prioritizer) Select(dets []vision.Detection, screenCenter float64, mode Mode, maxDistance, minSize float64) (Selection, bool) {
	sel, ok := Best(dets, screenCenter, Criteria{Mode: mode, MaxDistance: maxDistance, MinSize: minSize})
	if ok {
		p.last = sel
		p.hasLast = true
	}
	return sel, ok
}

// Last returns the most recent successful selection.
func (p *Prioritizer) Last() (Selection, bool) {
	return p.last, p.hasLast
}

// Reset forgets the last selection.
func (p *Prioritizer) Reset() {
	p.last = Selection{}
	p.hasLast = false
}

// Best is the stateless selection used by Select.
func Best(dets []vision.Detection, screenCenter float64, c Criteria) (Selection, bool) {
	center := vision.Point{X: screenCenter, Y: screenCenter}

	var best Selection
	bestScore := math.Inf(-1)
	found := false
	for _, d := range dets {
		dc := d.Center()
		dist := dc.Dist(center)
		if dist > c.MaxDistance || d.Area() < c.MinSize {
			continue
		}
		s := score(d, dist, c.Mode)
		if !found || s > bestScore {
			best = Selection{Detection: d, AimX: dc.X, AimY: dc.Y, Distance: dist}
			bestScore = s
			found = true
		}
	}
	return best, found
}

func score(d vision.Detection, dist float64, m Mode) float64 {
	switch m {
	case HighestConfidence:
		return d.Confidence * 1000
	case Largest:
		return d.Area()
	default:
		return -dist
	}
}

// InTolerance reports whether an aim point at distance from the screen
// centre is close enough to fire.
func InTolerance(distance, tolerance float64) bool {
	return distance <= tolerance
}
