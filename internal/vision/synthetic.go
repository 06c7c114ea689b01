package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
)

// SyntheticTarget is one moving box in a SyntheticScene. Positions are box
// centres in capture-region pixels; velocities are pixels per frame.
type SyntheticTarget struct {
	X, Y          float64
	VX, VY        float64
	Width, Height float64
	Confidence    float64
	ClassID       int
}

// SyntheticScene is a deterministic Capturer and Detector for development
// and tests. Each Capture advances every target by its velocity, bouncing off
// the region edges, and Detect reports the boxes of the latest capture.
type SyntheticScene struct {
	mu      sync.Mutex
	clock   timeutil.Clock
	targets []SyntheticTarget
	seq     uint64
	last    []Detection
	lastSeq uint64

	background color.NRGBA
	fill       color.NRGBA
}

// NewSyntheticScene creates a scene with the given targets. A nil clock uses
// the real clock.
func NewSyntheticScene(clock timeutil.Clock, targets ...SyntheticTarget) *SyntheticScene {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ts := make([]SyntheticTarget, len(targets))
	copy(ts, targets)
	return &SyntheticScene{
		clock:      clock,
		targets:    ts,
		background: color.NRGBA{R: 24, G: 24, B: 32, A: 255},
		fill:       color.NRGBA{R: 220, G: 60, B: 60, A: 255},
	}
}

// DefaultSyntheticScene returns two targets crossing a 400 px region: one
// drifting slowly near the centre and one sweeping across the edge.
func DefaultSyntheticScene(clock timeutil.Clock) *SyntheticScene {
	return NewSyntheticScene(clock,
		SyntheticTarget{X: 170, Y: 200, VX: 1.5, VY: 0.5, Width: 40, Height: 90, Confidence: 0.82},
		SyntheticTarget{X: 60, Y: 120, VX: 4, VY: 2, Width: 30, Height: 70, Confidence: 0.55},
	)
}

// Capture advances the scene one step and renders it.
func (s *SyntheticScene) Capture(ctx context.Context, size int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid capture size %d", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	bound := float64(size)
	img := imaging.New(size, size, s.background)
	dets := make([]Detection, 0, len(s.targets))
	for i := range s.targets {
		t := &s.targets[i]
		t.X += t.VX
		t.Y += t.VY
		if t.X < t.Width/2 || t.X > bound-t.Width/2 {
			t.VX = -t.VX
			t.X = clamp(t.X, t.Width/2, bound-t.Width/2)
		}
		if t.Y < t.Height/2 || t.Y > bound-t.Height/2 {
			t.VY = -t.VY
			t.Y = clamp(t.Y, t.Height/2, bound-t.Height/2)
		}

		d := Detection{
			X1:         t.X - t.Width/2,
			Y1:         t.Y - t.Height/2,
			X2:         t.X + t.Width/2,
			Y2:         t.Y + t.Height/2,
			Confidence: t.Confidence,
			ClassID:    t.ClassID,
		}
		dets = append(dets, d)

		box := imaging.New(int(t.Width), int(t.Height), s.fill)
		img = imaging.Paste(img, box, image.Pt(int(d.X1), int(d.Y1)))
	}
	s.last = dets
	s.lastSeq = s.seq

	return &Frame{
		Seq:        s.seq,
		Size:       size,
		CapturedAt: s.clock.Now(),
		Image:      img,
	}, nil
}

// Detect returns the boxes rendered into frame whose confidence reaches threshold.
func (s *SyntheticScene) Detect(ctx context.Context, frame *Frame, threshold float64) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame == nil || frame.Seq != s.lastSeq {
		return nil, fmt.Errorf("frame is not the latest synthetic capture")
	}
	out := make([]Detection, 0, len(s.last))
	for _, d := range s.last {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out, nil
}

// Targets returns a copy of the current target states.
func (s *SyntheticScene) Targets() []SyntheticTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SyntheticTarget, len(s.targets))
	copy(out, s.targets)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
