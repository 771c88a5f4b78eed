package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/reframe/internal/lidar/cloud"
)

// DefaultMaxPoints bounds how many points a chart carries.
const DefaultMaxPoints = 8000

// framePoints returns the x, y, z of every stride-th point, with the stride
// chosen so at most maxPoints are returned.
func framePoints(pc *cloud.PointBuffer, maxPoints int) ([][3]float64, int, error) {
	if err := pc.Validate(); err != nil {
		return nil, 0, err
	}
	offs := [3]uint32{0, cloud.FieldSize, 2 * cloud.FieldSize}
	for k, name := range []string{"x", "y", "z"} {
		if f, ok := pc.Field(name); ok {
			offs[k] = f.Offset
		}
	}
	if pc.PointStep < offs[0]+cloud.FieldSize || pc.PointStep < offs[1]+cloud.FieldSize || pc.PointStep < offs[2]+cloud.FieldSize {
		return nil, 0, fmt.Errorf("%w: point step %d too small for x, y, z", cloud.ErrMalformedBuffer, pc.PointStep)
	}

	n := len(pc.Data) / int(pc.PointStep)
	stride := 1
	if maxPoints > 0 && n > maxPoints {
		stride = int(math.Ceil(float64(n) / float64(maxPoints)))
	}
	out := make([][3]float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		out = append(out, [3]float64{
			float64(pc.Float32At(i, offs[0])),
			float64(pc.Float32At(i, offs[1])),
			float64(pc.Float32At(i, offs[2])),
		})
	}
	return out, stride, nil
}

// renderScatter writes a top-down echarts view of the frame, coloured by z.
func renderScatter(w io.Writer, pc *cloud.PointBuffer, maxPoints int) error {
	pts, stride, err := framePoints(pc, maxPoints)
	if err != nil {
		return err
	}

	data := make([]opts.ScatterData, 0, len(pts))
	maxAbs, zMin, zMax := 0.0, math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p[0]), math.Abs(p[1])))
		zMin = math.Min(zMin, p[2])
		zMax = math.Max(zMax, p[2])
		data = append(data, opts.ScatterData{Value: []interface{}{p[0], p[1], p[2]}})
	}
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1
	}
	if len(pts) == 0 {
		zMin, zMax = 0, 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Downsampled frame", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Last downsampled frame", Subtitle: fmt.Sprintf("seq=%d points=%d stride=%d", pc.Header.Seq, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(zMin),
			Max:        float32(zMax),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// renderPNG writes a top-down PNG of the frame.
func renderPNG(w io.Writer, pc *cloud.PointBuffer, maxPoints int) error {
	pts, _, err := framePoints(pc, maxPoints)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Downsampled frame seq=%d (%d points)", pc.Header.Seq, len(pts))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	if len(pts) > 0 {
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("failed to build scatter: %w", err)
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1)
		s.GlyphStyle.Color = color.RGBA{R: 38, G: 130, B: 142, A: 255}
		p.Add(s)
	}
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
