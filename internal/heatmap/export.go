package heatmap

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg"
)

// PNGSide is the edge length of the exported PNG plot.
const PNGSide = 12 * vg.Centimeter

// htmlCells bounds the number of cells per axis sent to the browser.
const htmlCells = 64

// gridXYZ adapts a dense grid to plotter.GridXYZ. Rows are flipped so the
// plot shows screen orientation (y grows downwards).
type gridXYZ struct {
	m *mat.Dense
}

func (g gridXYZ) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g gridXYZ) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g gridXYZ) X(c int) float64 { return float64(c) }

func (g gridXYZ) Y(r int) float64 {
	rows, _ := g.m.Dims()
	return float64(rows - 1 - r)
}

// WritePNG renders the heatmap as a PNG plot with axes.
func (t *Tracker) WritePNG(w io.Writer) error {
	grid := t.Grid()

	p := plot.New()
	p.Title.Text = "Target heatmap"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"

	pal := moreland.ExtendedBlackBody().Palette(255)
	hm := plotter.NewHeatMap(gridXYZ{m: grid}, pal)
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	wt, err := p.WriterTo(PNGSide, PNGSide, "png")
	if err != nil {
		return fmt.Errorf("heatmap: create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("heatmap: write png: %w", err)
	}
	return nil
}

// Cells downsamples the grid to at most n x n buckets by summing, returning
// the bucket edge length in pixels alongside the buckets.
func (t *Tracker) Cells(n int) (*mat.Dense, int) {
	if n < 1 {
		n = 1
	}
	step := (t.size + n - 1) / n
	if step < 1 {
		step = 1
	}
	cells := (t.size + step - 1) / step

	grid := t.Grid()
	out := mat.NewDense(cells, cells, nil)
	for y := 0; y < t.size; y++ {
		for x := 0; x < t.size; x++ {
			r, c := y/step, x/step
			out.Set(r, c, out.At(r, c)+grid.At(y, x))
		}
	}
	return out, step
}

// WriteHTML renders an interactive echarts heatmap page.
func (t *Tracker) WriteHTML(w io.Writer, assetsHost string) error {
	cells, step := t.Cells(htmlCells)
	n, _ := cells.Dims()

	axis := make([]string, n)
	for i := range axis {
		axis[i] = fmt.Sprintf("%d", i*step)
	}

	data := make([]opts.HeatMapData, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, cells.At(r, c)}})
		}
	}

	maxV := float32(mat.Max(cells))
	if maxV <= 0 {
		maxV = 1
	}

	hm := charts.NewHeatMap()
	initOpts := opts.Initialization{PageTitle: "Target Heatmap", Theme: "dark", Width: "900px", Height: "900px"}
	if assetsHost != "" {
		initOpts.AssetsHost = assetsHost
	}
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Target Heatmap", Subtitle: fmt.Sprintf("size=%d cell=%dpx", t.size, step)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: axis, Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: axis, Name: "y (px)", Inverse: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        maxV,
			InRange:    &opts.VisualMapInRange{Color: []string{"#000000", "#5b1a1a", "#b2221c", "#e2711d", "#f4c430", "#ffffff"}},
		}),
	)
	hm.AddSeries("heat", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("heatmap: render html: %w", err)
	}
	return nil
}
