package charts

import (
	"image/color"
	"math"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// pieChart draws each value as a wedge proportional to its share of the
// total. Negative values are drawn as empty wedges.
type pieChart struct {
	values []float64
	total  float64
}

func newPieChart(groups []domain.GroupTotal) *pieChart {
	pc := &pieChart{values: make([]float64, len(groups))}
	for i, g := range groups {
		v := math.Max(g.Sales, 0)
		pc.values[i] = v
		pc.total += v
	}
	return pc
}

func (pc *pieChart) share(i int) float64 {
	if pc.total == 0 {
		return 0
	}
	return pc.values[i] / pc.total
}

func (pc *pieChart) wedge(i int) plot.Thumbnailer {
	return wedgeThumb{color: plotutil.Color(i)}
}

// Plot implements plot.Plotter.
func (pc *pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	if pc.total == 0 {
		return
	}
	size := c.Size()
	radius := vg.Length(math.Min(float64(size.X), float64(size.Y))) / 2 * 0.9
	center := vg.Point{
		X: c.Min.X + size.X/2,
		Y: c.Min.Y + size.Y/2,
	}

	// Start at twelve o'clock and go clockwise.
	start := math.Pi / 2
	for i := range pc.values {
		sweep := -2 * math.Pi * pc.share(i)
		if sweep == 0 {
			continue
		}
		var path vg.Path
		path.Move(center)
		path.Arc(center, radius, start, sweep)
		path.Close()

		c.SetColor(plotutil.Color(i))
		c.Fill(path)
		start += sweep
	}
}

type wedgeThumb struct {
	color color.Color
}

// Thumbnail implements plot.Thumbnailer.
func (w wedgeThumb) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(w.color, c.ClipPolygonY(pts))
}
