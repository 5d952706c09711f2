package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"smacross/internal/domain"
	"smacross/internal/strategy"
)

// LineStyle is how a line is stroked.
type LineStyle int

const (
	Solid LineStyle = iota
	Dashed
	Dotted
)

// Line is one named series of a chart.
type Line struct {
	Label  string
	Values []float64
	Style  LineStyle
}

// ChartData is everything a renderer needs: a shared date axis and the
// lines drawn on it.
type ChartData struct {
	Title  string
	XLabel string
	YLabel string
	Dates  []time.Time
	Series []Line
}

// NewChartData builds the comparison chart: strategy (solid), asset
// buy-and-hold (dashed) and, when bench is not nil, benchmark buy-and-hold
// (dotted).
func NewChartData(r *strategy.Result, bench *strategy.Curve, benchmark string) ChartData {
	sc, bh := r.StrategyCurve(), r.BuyHoldCurve()
	series := []Line{
		{Label: sc.Label, Values: sc.Values, Style: Solid},
		{Label: bh.Label, Values: bh.Values, Style: Dashed},
	}
	if bench != nil {
		series = append(series, Line{Label: bench.Label, Values: bench.Values, Style: Dotted})
	}
	return ChartData{
		Title:  fmt.Sprintf("SMA Strategy vs Buy & Hold (%s vs %s)", r.Symbol, benchmark),
		XLabel: "Date",
		YLabel: "Cumulative Return",
		Dates:  r.Dates,
		Series: series,
	}
}

func (d ChartData) validate() error {
	if len(d.Dates) == 0 || len(d.Series) == 0 {
		return fmt.Errorf("%w: nothing to chart", domain.ErrInsufficientData)
	}
	for _, s := range d.Series {
		if len(s.Values) != len(d.Dates) {
			return fmt.Errorf("%w: series %q has %d points for %d dates", domain.ErrAlignment, s.Label, len(s.Values), len(d.Dates))
		}
	}
	return nil
}

// Renderer draws ChartData to an image file.
type Renderer interface {
	Name() string
	Render(data ChartData, path string) error
}

// NewRenderer returns the renderer for engine: "gonum" (PNG, SVG or PDF by
// file extension) or "echarts" (PNG or SVG).
func NewRenderer(engine string) (Renderer, error) {
	switch strings.ToLower(engine) {
	case "", "gonum":
		return GonumRenderer{Width: 12 * vg.Inch, Height: 6 * vg.Inch}, nil
	case "echarts":
		return EChartsRenderer{Width: 1200, Height: 600}, nil
	default:
		return nil, fmt.Errorf("%w: unknown chart engine %q", domain.ErrInvalidParameter, engine)
	}
}

// ---------------------------------------------------------------------------
// gonum/plot
// ---------------------------------------------------------------------------

var lineColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
}

// GonumRenderer draws with gonum.org/v1/plot.
type GonumRenderer struct {
	Width  vg.Length
	Height vg.Length
}

func (GonumRenderer) Name() string { return "gonum" }

// Render saves the chart to path; the format follows the file extension.
func (g GonumRenderer) Render(data ChartData, path string) error {
	if err := data.validate(); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = data.Title
	p.X.Label.Text = data.XLabel
	p.Y.Label.Text = data.YLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true

	grid := plotter.NewGrid()
	dashes := []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = dashes
	grid.Vertical.Dashes = dashes
	p.Add(grid)

	for i, s := range data.Series {
		xys := make(plotter.XYs, len(data.Dates))
		for j, d := range data.Dates {
			xys[j].X = float64(d.Unix())
			xys[j].Y = s.Values[j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("creating line %q: %w", s.Label, err)
		}
		line.LineStyle.Color = lineColors[i%len(lineColors)]
		line.LineStyle.Width = vg.Points(1.2)
		if s.Style == Solid {
			line.LineStyle.Width = vg.Points(2)
		}
		line.LineStyle.Dashes = lineDashes(s.Style)
		p.Add(line)
		p.Legend.Add(s.Label, line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := p.Save(g.Width, g.Height, path); err != nil {
		return fmt.Errorf("saving chart %s: %w", path, err)
	}
	return nil
}

func lineDashes(style LineStyle) []vg.Length {
	switch style {
	case Dashed:
		return []vg.Length{vg.Points(6), vg.Points(3)}
	case Dotted:
		return []vg.Length{vg.Points(1), vg.Points(2)}
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// go-charts (ECharts style)
// ---------------------------------------------------------------------------

// EChartsRenderer draws with github.com/vicanso/go-charts.
type EChartsRenderer struct {
	Width  int
	Height int
}

func (EChartsRenderer) Name() string { return "echarts" }

// Render writes a PNG, or an SVG when path ends in ".svg". Lines are drawn
// solid; go-charts has no per-series dash option.
func (e EChartsRenderer) Render(data ChartData, path string) error {
	if err := data.validate(); err != nil {
		return err
	}

	x := make([]string, len(data.Dates))
	for i, d := range data.Dates {
		x[i] = domain.DateKey(d)
	}
	values := make([][]float64, len(data.Series))
	names := make([]string, len(data.Series))
	for i, s := range data.Series {
		values[i] = s.Values
		names[i] = s.Label
	}

	outType := charts.PNGTypeOption()
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		outType = charts.SVGTypeOption()
	}

	painter, err := charts.LineRender(values,
		outType,
		charts.TitleTextOptionFunc(data.Title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: x, BoundaryGap: charts.FalseFlag(), SplitNumber: 12}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(e.Width),
		charts.HeightOptionFunc(e.Height),
	)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	buf, err := painter.Bytes()
	if err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
