// Package vision defines the perception contracts consumed by the control
// loop: captured frames, detector output, and the collaborator interfaces that
// produce them.
package vision

import (
	"context"
	"image"
	"math"
	"time"
)

// Point is a position in capture-region pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Detection is one detector output: an axis-aligned box with a score and class.
// Detections are values; a tick never mutates one after the detector returns it.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

func (d Detection) Width() float64  { return d.X2 - d.X1 }
func (d Detection) Height() float64 { return d.Y2 - d.Y1 }

// Area returns width*height.
func (d Detection) Area() float64 {
	return d.Width() * d.Height()
}

// Center returns the box midpoint.
func (d Detection) Center() Point {
	return Point{X: (d.X1 + d.X2) / 2, Y: (d.Y1 + d.Y2) / 2}
}

// Frame is one captured square region centred on the display.
type Frame struct {
	Seq        uint64
	Size       int
	CapturedAt time.Time
	Image      *image.NRGBA
}

// Center returns the region centre, the scalar used for both axes.
func (f *Frame) Center() float64 {
	return float64(f.Size) / 2
}

// Capturer grabs a size×size region centred on the display.
type Capturer interface {
	Capture(ctx context.Context, size int) (*Frame, error)
}

// Detector returns detections of the configured class with confidence at or
// above threshold.
type Detector interface {
	Detect(ctx context.Context, frame *Frame, threshold float64) ([]Detection, error)
}
