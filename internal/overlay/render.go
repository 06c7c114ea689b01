package overlay

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/tracking"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// HelpLine lists the key bindings shown at the bottom of the overlay.
const HelpLine = "F2 toggle  F3/F4 conf  F5 prio  F6 save  F7 load  F8 panic  F9 window  F10 profile  F11 heat  F12 sound  q hide  ^C quit"

var (
	styleBox      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleAim      = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTrail    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleFOV      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleCross    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleText     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePanic    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed).Bold(true)
)

// HeatSource is the read side of the heatmap.
type HeatSource interface {
	Size() int
	At(x, y int) float64
	Max() float64
}

// Scene is everything one overlay frame shows.
type Scene struct {
	Snapshot engine.Snapshot
	Tracks   []tracking.Track
	Stats    engine.Stats
	Config   *config.Config
	Heat     HeatSource
}

// projection maps frame pixels onto a w x h cell grid.
type projection struct {
	sx, sy float64
}

func newProjection(frameSize, w, h int) projection {
	if frameSize < 1 {
		frameSize = 1
	}
	return projection{sx: float64(w) / float64(frameSize), sy: float64(h) / float64(frameSize)}
}

func (p projection) cell(pt vision.Point) (int, int) {
	return int(math.Floor(pt.X * p.sx)), int(math.Floor(pt.Y * p.sy))
}

// Render draws sc onto a w x h canvas. The caller clears the canvas first.
func Render(cv Canvas, w, h int, sc Scene) {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.EmptyConfig()
	}

	if !cfg.GetShowWindow() {
		renderStats(cv, sc)
		drawText(cv, 0, h-1, "overlay hidden (F9)", styleText)
		return
	}

	frameSize := cfg.GetBoxSize()
	if sc.Snapshot.Frame != nil && sc.Snapshot.Frame.Size > 0 {
		frameSize = sc.Snapshot.Frame.Size
	}
	proj := newProjection(frameSize, w, h)
	center := vision.Point{X: float64(frameSize) / 2, Y: float64(frameSize) / 2}
	cx, cy := proj.cell(center)

	if cfg.GetShowHeatmap() && sc.Heat != nil {
		renderHeat(cv, w, h, sc.Heat)
	}

	if cfg.GetFOVCircle() {
		tol := cfg.GetAimTolerance()
		drawEllipse(cv, cx, cy, tol*proj.sx, tol*proj.sy, '·', styleFOV)
	}

	if cfg.GetShowTrails() {
		for _, tr := range sc.Tracks {
			for _, p := range tr.Trail {
				x, y := proj.cell(p)
				cv.SetContent(x, y, '∙', nil, styleTrail)
			}
		}
	}

	for _, td := range sc.Snapshot.Tracked {
		st := styleBox
		if sel := sc.Snapshot.Selection; sel != nil && sel.Detection == td.Detection {
			st = styleSelected
		}
		x1, y1 := proj.cell(vision.Point{X: td.Detection.X1, Y: td.Detection.Y1})
		x2, y2 := proj.cell(vision.Point{X: td.Detection.X2, Y: td.Detection.Y2})
		drawRect(cv, x1, y1, x2, y2, st)

		label := fmt.Sprintf("%.2f", td.Detection.Confidence)
		if td.TrackID != 0 {
			label = fmt.Sprintf("#%d %s", td.TrackID, label)
		}
		ly := y1 - 1
		if ly < 0 {
			ly = y2 + 1
		}
		drawText(cv, x1, ly, label, st)
	}

	style, _ := ParseCrosshair(cfg.GetCrosshairStyle())
	Draw(cv, style, cx, cy, 1, styleCross)

	if ap := sc.Snapshot.AimPoint; ap != nil {
		x, y := proj.cell(*ap)
		cv.SetContent(x, y, '×', nil, styleAim)
	}

	if cfg.GetShowPerformance() {
		renderStats(cv, sc)
	}
	drawText(cv, 0, h-1, HelpLine, styleText)
}

func renderHeat(cv Canvas, w, h int, heat HeatSource) {
	peak := heat.Max()
	if peak <= 0 {
		return
	}
	size := heat.Size()
	for y := 0; y < h; y++ {
		py := int((float64(y) + 0.5) * float64(size) / float64(h))
		for x := 0; x < w; x++ {
			px := int((float64(x) + 0.5) * float64(size) / float64(w))
			v := heat.At(px, py) / peak
			if v < 0.05 {
				continue
			}
			bg := tcell.NewRGBColor(int32(255*v), int32(96*v), 0)
			cv.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(bg))
		}
	}
}

// StatsLines formats the stats panel.
func StatsLines(s engine.Stats) []string {
	active := "off"
	if s.Active {
		active = "on"
	}
	return []string{
		fmt.Sprintf("state %-9s active %s", s.State, active),
		fmt.Sprintf("fps %5.1f  frame %.1fms  p95 %.1fms", s.Perf.FPS, s.Perf.AvgFrameMs, s.Perf.P95FrameMs),
		fmt.Sprintf("detect %.1fms  aim %.2fms", s.Perf.AvgDetectionMs, s.Perf.AvgAimMs),
		fmt.Sprintf("det %d  shots %d  hits %d  acc %.1f%%", s.Detections, s.Shots, s.Hits, s.Accuracy),
		fmt.Sprintf("profile %s  prio %s  conf %.2f", s.Profile, s.Priority, s.Confidence),
	}
}

func renderStats(cv Canvas, sc Scene) {
	lines := StatsLines(sc.Stats)
	for i, l := range lines {
		drawText(cv, 0, i, l, styleText)
	}
	if sc.Stats.Panic {
		drawText(cv, 0, len(lines), " PANIC (F2 to resume) ", stylePanic)
	}
}
