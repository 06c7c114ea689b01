package overlay

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
)

// Canvas is the cell surface primitives draw on. tcell.Screen satisfies it.
type Canvas interface {
	SetContent(x int, y int, primary rune, combining []rune, style tcell.Style)
}

// Crosshair is the shape drawn at the screen centre.
type Crosshair int

const (
	CrosshairCross Crosshair = iota
	CrosshairDot
	CrosshairCircle
	CrosshairSquare
)

var crosshairNames = [...]string{"cross", "dot", "circle", "square"}

func (c Crosshair) String() string {
	if c < 0 || int(c) >= len(crosshairNames) {
		return fmt.Sprintf("Crosshair(%d)", int(c))
	}
	return crosshairNames[c]
}

// ParseCrosshair maps a config name to a Crosshair. Unknown names yield
// CrosshairCross and false.
func ParseCrosshair(name string) (Crosshair, bool) {
	for i, n := range crosshairNames {
		if n == name {
			return Crosshair(i), true
		}
	}
	return CrosshairCross, false
}

// Draw renders crosshair c centred on (cx, cy). size is the arm length in
// cells; terminal cells are roughly twice as tall as wide so horizontal
// extents are doubled.
func Draw(cv Canvas, c Crosshair, cx, cy, size int, st tcell.Style) {
	if size < 1 {
		size = 1
	}
	switch c {
	case CrosshairDot:
		cv.SetContent(cx, cy, '●', nil, st)
	case CrosshairCircle:
		drawEllipse(cv, cx, cy, float64(2*size), float64(size), '•', st)
		cv.SetContent(cx, cy, '·', nil, st)
	case CrosshairSquare:
		drawRect(cv, cx-2*size, cy-size, cx+2*size, cy+size, st)
	default:
		for dx := 1; dx <= 2*size; dx++ {
			cv.SetContent(cx-dx, cy, '─', nil, st)
			cv.SetContent(cx+dx, cy, '─', nil, st)
		}
		for dy := 1; dy <= size; dy++ {
			cv.SetContent(cx, cy-dy, '│', nil, st)
			cv.SetContent(cx, cy+dy, '│', nil, st)
		}
		cv.SetContent(cx, cy, '┼', nil, st)
	}
}

func drawRect(cv Canvas, x1, y1, x2, y2 int, st tcell.Style) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	for x := x1 + 1; x < x2; x++ {
		cv.SetContent(x, y1, '─', nil, st)
		cv.SetContent(x, y2, '─', nil, st)
	}
	for y := y1 + 1; y < y2; y++ {
		cv.SetContent(x1, y, '│', nil, st)
		cv.SetContent(x2, y, '│', nil, st)
	}
	cv.SetContent(x1, y1, '┌', nil, st)
	cv.SetContent(x2, y1, '┐', nil, st)
	cv.SetContent(x1, y2, '└', nil, st)
	cv.SetContent(x2, y2, '┘', nil, st)
}

// drawEllipse plots the outline with enough samples that adjacent points
// land in neighbouring cells.
func drawEllipse(cv Canvas, cx, cy int, rx, ry float64, r rune, st tcell.Style) {
	if rx <= 0 || ry <= 0 {
		return
	}
	steps := int(math.Ceil(2*math.Pi*math.Max(rx, ry))) * 2
	if steps < 8 {
		steps = 8
	}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(math.Round(rx*math.Cos(a)))
		y := cy + int(math.Round(ry*math.Sin(a)))
		cv.SetContent(x, y, r, nil, st)
	}
}

func drawText(cv Canvas, x, y int, s string, st tcell.Style) {
	for _, r := range s {
		cv.SetContent(x, y, r, nil, st)
		x++
	}
}
