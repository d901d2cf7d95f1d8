// Package volcano renders the differential-expression result table as a volcano chart:
// log2 fold change on the x axis against -log10 of the adjusted p-value on the y axis.
package volcano

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
	"github.com/askiada/go-rnaseq/pkg/table"
)

const (
	defaultAlpha      = 0.05
	defaultFoldChange = 1.0
	defaultWidth      = 1000
	defaultHeight     = 600
	// dpi of raster output, sizes are given in pixels
	dpi = 96
)

// ErrUnsupportedFormat is returned for an output path whose extension has no chart format.
var ErrUnsupportedFormat = errors.New("unsupported chart format")

var formats = map[string]struct{}{
	"png": {}, "svg": {}, "pdf": {}, "eps": {}, "jpg": {}, "jpeg": {}, "tif": {}, "tiff": {},
}

type options struct {
	alpha      float64
	foldChange float64
	width      int
	height     int
	title      string
}

type Option func(o *options)

// Alpha sets the adjusted p-value under which a feature is significant.
func Alpha(alpha float64) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// FoldChange sets the absolute log2 fold change a significant feature must reach.
func FoldChange(lfc float64) Option {
	return func(o *options) {
		o.foldChange = lfc
	}
}

// Size sets the chart size in pixels.
func Size(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

func Title(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// Summary counts the plotted features.
type Summary struct {
	Points  int
	Up      int
	Down    int
	Skipped int
}

type point struct {
	x, y float64
	padj float64
}

type class int

const (
	neutral class = iota
	down
	up
)

func (c class) String() string {
	switch c {
	case up:
		return "up"
	case down:
		return "down"
	default:
		return "not significant"
	}
}

// Render draws results into the chart file at outPath, whose extension selects the format
// (png, svg, pdf...). The result table must have a fold change column and either an
// adjusted p-value column or a precomputed -log10 of it. A missing column is a format error
// and no file is written.
func Render(results *table.Results, outPath string, opts ...Option) (Summary, error) {
	cfg := options{
		alpha:      defaultAlpha,
		foldChange: defaultFoldChange,
		width:      defaultWidth,
		height:     defaultHeight,
		title:      "Volcano Plot of Differentially Expressed Genes",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(outPath), "."))
	if _, ok := formats[format]; !ok {
		return Summary{}, errors.Wrapf(ErrUnsupportedFormat, "%q", outPath)
	}

	points, skipped, err := collect(results)
	if err != nil {
		return Summary{}, err
	}

	chart, summary, err := newPlot(points, cfg)
	if err != nil {
		return Summary{}, err
	}

	summary.Skipped = skipped

	err = write(outPath, format, chart, cfg)
	if err != nil {
		return Summary{}, err
	}

	return summary, nil
}

func collect(results *table.Results) ([]point, int, error) {
	lfc, err := results.Column(table.FoldChangeColumn)
	if err != nil {
		return nil, 0, err
	}

	var negLog, padj []float64

	switch {
	case results.HasColumn(table.NegLog10PadjColumn):
		negLog, err = results.Column(table.NegLog10PadjColumn)
		if err != nil {
			return nil, 0, err
		}

		capInfinite(negLog)

		padj = make([]float64, len(negLog))
		for i, v := range negLog {
			padj[i] = math.Pow(10, -v)
		}
	case results.HasColumn(table.AdjustedPColumn):
		padj, err = results.Column(table.AdjustedPColumn)
		if err != nil {
			return nil, 0, err
		}

		negLog = negLog10(padj)
	default:
		return nil, 0, errors.Wrapf(model.ErrFormat, "missing column %q or %q", table.AdjustedPColumn, table.NegLog10PadjColumn)
	}

	points := make([]point, 0, len(lfc))
	skipped := 0

	for i := range lfc {
		if math.IsNaN(lfc[i]) || math.IsInf(lfc[i], 0) || math.IsNaN(negLog[i]) {
			skipped++

			continue
		}

		points = append(points, point{x: lfc[i], y: negLog[i], padj: padj[i]})
	}

	return points, skipped, nil
}

// negLog10 computes -log10(p). A p-value of zero is drawn at the highest finite value.
func negLog10(padj []float64) []float64 {
	out := make([]float64, len(padj))

	for i, p := range padj {
		switch {
		case math.IsNaN(p):
			out[i] = math.NaN()
		case p <= 0:
			out[i] = math.Inf(1)
		default:
			out[i] = -math.Log10(p)
		}
	}

	capInfinite(out)

	return out
}

// capInfinite replaces +Inf with the highest finite value (1 when there is none) and -Inf
// with NaN so the row is skipped.
func capInfinite(values []float64) {
	maxFinite := 0.0

	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > maxFinite {
			maxFinite = v
		}
	}

	if maxFinite == 0 {
		maxFinite = 1
	}

	for i, v := range values {
		switch {
		case math.IsInf(v, 1):
			values[i] = maxFinite
		case math.IsInf(v, -1):
			values[i] = math.NaN()
		}
	}
}

func classify(p point, cfg options) class {
	if p.padj >= cfg.alpha || math.Abs(p.x) < cfg.foldChange {
		return neutral
	}

	if p.x > 0 {
		return up
	}

	return down
}

func newPlot(points []point, cfg options) (*plot.Plot, Summary, error) {
	summary := Summary{Points: len(points)}

	pal, err := newPalette()
	if err != nil {
		return nil, summary, err
	}

	groups := map[class]plotter.XYs{}
	xmax, ymax := cfg.foldChange, -math.Log10(cfg.alpha)

	for _, p := range points {
		c := classify(p, cfg)

		switch c {
		case up:
			summary.Up++
		case down:
			summary.Down++
		case neutral:
		}

		groups[c] = append(groups[c], plotter.XY{X: p.x, Y: p.y})
		xmax = math.Max(xmax, math.Abs(p.x))
		ymax = math.Max(ymax, p.y)
	}

	xmax *= 1.05
	ymax *= 1.05

	chart := plot.New()
	chart.Title.Text = cfg.title
	chart.X.Label.Text = "Log2 Fold Change"
	chart.Y.Label.Text = "-Log10 Adjusted P-value"
	chart.X.Min, chart.X.Max = -xmax, xmax
	chart.Y.Min, chart.Y.Max = 0, ymax
	chart.Legend.Top = true
	chart.Add(plotter.NewGrid())

	sigY := -math.Log10(cfg.alpha)

	for _, xys := range []plotter.XYs{
		{{X: -xmax, Y: sigY}, {X: xmax, Y: sigY}},
		{{X: -cfg.foldChange, Y: 0}, {X: -cfg.foldChange, Y: ymax}},
		{{X: cfg.foldChange, Y: 0}, {X: cfg.foldChange, Y: ymax}},
	} {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, summary, errors.Wrap(err, "unable to draw threshold")
		}

		line.LineStyle.Color = pal.threshold
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)} //nolint:gomnd
		chart.Add(line)
	}

	// significant points are drawn last, on top
	for _, c := range []class{neutral, down, up} {
		xys := groups[c]
		if len(xys) == 0 {
			continue
		}

		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, summary, errors.Wrapf(err, "unable to draw %s points", c)
		}

		scatter.GlyphStyle.Color = pal.colour(c)
		scatter.GlyphStyle.Radius = vg.Points(2.5) //nolint:gomnd
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}

		chart.Add(scatter)
		chart.Legend.Add(c.String(), scatter)
	}

	return chart, summary, nil
}

type palette struct {
	up, down, neutral, threshold color.Color
}

func (p palette) colour(c class) color.Color {
	switch c {
	case up:
		return p.up
	case down:
		return p.down
	default:
		return p.neutral
	}
}

func newPalette() (palette, error) {
	values := [][3]uint8{{214, 39, 40}, {31, 119, 180}, {160, 160, 160}, {85, 85, 85}}
	out := make([]color.Color, len(values))

	for i, v := range values {
		rgb, err := colors.RGB(v[0], v[1], v[2]) //nolint
		if err != nil {
			return palette{}, errors.Wrap(err, "unable to get colour")
		}

		out[i] = color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255} //nolint:gomnd
	}

	return palette{up: out[0], down: out[1], neutral: out[2], threshold: out[3]}, nil
}

// write renders the chart to a temporary file next to outPath and moves it into place.
func write(outPath, format string, chart *plot.Plot, cfg options) error {
	width := vg.Length(cfg.width) * vg.Inch / dpi
	height := vg.Length(cfg.height) * vg.Inch / dpi

	rendered, err := chart.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrap(err, "unable to render chart")
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".volcano-*."+format)
	if err != nil {
		return errors.Wrapf(model.ErrEnvironment, "unable to create chart in %s: %v", filepath.Dir(outPath), err)
	}

	_, err = rendered.WriteTo(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return errors.Wrap(err, "unable to write chart")
	}

	err = os.Rename(tmp.Name(), outPath)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return errors.Wrapf(err, "unable to move chart to %s", outPath)
	}

	return nil
}
