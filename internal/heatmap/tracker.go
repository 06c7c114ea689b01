// Package heatmap accumulates where targets were seen on screen. Deposits are
// spread by a small Gaussian kernel and the whole grid decays every frame, so
// the map shows recent target density rather than all-time history.
package heatmap

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/palette/moreland"
)

const (
	// DepositScale multiplies a detection confidence before it is spread
	// over the kernel.
	DepositScale = 10.0

	// DecayFactor is applied to every cell on each Decay call.
	DecayFactor = 0.95

	// OverlayOpacity is the blend weight of the coloured map in Overlay.
	OverlayOpacity = 0.3

	kernelSize  = 15
	kernelSigma = 2.6
)

// kernel is a normalised kernelSize x kernelSize Gaussian.
var kernel = gaussianKernel(kernelSize, kernelSigma)

func gaussianKernel(n int, sigma float64) *mat.Dense {
	k := mat.NewDense(n, n, nil)
	half := n / 2
	var sum float64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			dx := float64(c - half)
			dy := float64(r - half)
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			k.Set(r, c, v)
			sum += v
		}
	}
	k.Scale(1/sum, k)
	return k
}

// Tracker is a size x size grid of accumulated target weight. It is safe for
// concurrent use; the control loop writes while the API and overlay read.
type Tracker struct {
	mu   sync.RWMutex
	size int
	grid *mat.Dense
}

// NewTracker creates an empty square heatmap. Sizes below 1 are raised to 1.
func NewTracker(size int) *Tracker {
	if size < 1 {
		size = 1
	}
	return &Tracker{size: size, grid: mat.NewDense(size, size, nil)}
}

// Size returns the side length of the grid.
func (t *Tracker) Size() int { return t.size }

// Add deposits conf*DepositScale around the pixel containing (fx, fy).
// Points outside the grid are ignored; kernel cells that fall off the edge
// are dropped.
func (t *Tracker) Add(fx, fy, conf float64) {
	if fx < 0 || fy < 0 || fx >= float64(t.size) || fy >= float64(t.size) {
		return
	}
	x, y := int(fx), int(fy)
	weight := conf * DepositScale
	half := kernelSize / 2

	t.mu.Lock()
	defer t.mu.Unlock()
	for r := 0; r < kernelSize; r++ {
		gy := y + r - half
		if gy < 0 || gy >= t.size {
			continue
		}
		for c := 0; c < kernelSize; c++ {
			gx := x + c - half
			if gx < 0 || gx >= t.size {
				continue
			}
			t.grid.Set(gy, gx, t.grid.At(gy, gx)+weight*kernel.At(r, c))
		}
	}
}

// Decay multiplies every cell by DecayFactor.
func (t *Tracker) Decay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grid.Scale(DecayFactor, t.grid)
}

// Reset clears the grid.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grid.Zero()
}

// At returns the weight at pixel (x, y), or 0 outside the grid.
func (t *Tracker) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= t.size || y >= t.size {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.grid.At(y, x)
}

// Max returns the largest cell value.
func (t *Tracker) Max() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return mat.Max(t.grid)
}

// Sum returns the total weight in the grid.
func (t *Tracker) Sum() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return mat.Sum(t.grid)
}

// Grid returns a copy of the grid indexed (row=y, col=x).
func (t *Tracker) Grid() *mat.Dense {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return mat.DenseCopyOf(t.grid)
}

// Image renders the grid, min-max normalised, through a black-body colour
// map. An all-zero grid renders black.
func (t *Tracker) Image() *image.NRGBA {
	g := t.Grid()
	lo, hi := mat.Min(g), mat.Max(g)

	cmap := moreland.ExtendedBlackBody()
	cmap.SetMin(0)
	cmap.SetMax(1)

	img := image.NewNRGBA(image.Rect(0, 0, t.size, t.size))
	for y := 0; y < t.size; y++ {
		for x := 0; x < t.size; x++ {
			v := 0.0
			if hi > lo {
				v = (g.At(y, x) - lo) / (hi - lo)
			}
			img.Set(x, y, colourAt(cmap, v))
		}
	}
	return img
}

type colourMap interface {
	At(float64) (color.Color, error)
}

func colourAt(cmap colourMap, v float64) color.Color {
	c, err := cmap.At(math.Min(math.Max(v, 0), 1))
	if err != nil {
		return color.Black
	}
	return c
}

// Overlay blends the coloured heatmap over frame at OverlayOpacity and
// returns a new image the size of frame. An empty heatmap returns an
// unmodified copy of frame.
func (t *Tracker) Overlay(frame image.Image) *image.NRGBA {
	if t.Max() <= 0 {
		return imaging.Clone(frame)
	}
	colored := t.Image()
	b := frame.Bounds()
	if b.Dx() != t.size || b.Dy() != t.size {
		colored = imaging.Resize(colored, b.Dx(), b.Dy(), imaging.Linear)
	}
	return imaging.Overlay(frame, colored, b.Min, OverlayOpacity)
}
