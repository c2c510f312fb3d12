package services

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"garage-scraper/models"
	"garage-scraper/utils"
)

var permitColors = map[models.PermitType]color.RGBA{
	models.PermitGold:       {R: 0xff, G: 0xe9, B: 0x3e, A: 0xff},
	models.PermitOrange:     {R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	models.PermitPurple:     {R: 0x6c, G: 0x06, B: 0xb1, A: 0xff},
	models.PermitPayBySpace: {R: 0x39, G: 0xcd, B: 0xe4, A: 0xff},
}

var hourTicks = func() plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 24)
	for h := range ticks {
		ticks[h] = plot.Tick{Value: float64(h), Label: strconv.Itoa(h)}
	}
	return ticks
}()

// Renderer draws hourly trend charts as PNG files.
type Renderer struct {
	outDir string
	logger *utils.Logger
}

func NewRenderer(outDir string, logger *utils.Logger) (*Renderer, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("renderer: create chart dir: %w", err)
	}
	return &Renderer{outDir: outDir, logger: logger}, nil
}

// Render draws one line per permit type present in result and saves the chart
// under a name derived from id.
func (r *Renderer) Render(result *models.AggregationResult, id models.StreamID) (string, error) {
	if result == nil {
		return "", errors.New("renderer: nil aggregation result")
	}

	p, err := chart(result, id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(r.outDir, id.ChartName())
	if err := p.Save(12*vg.Inch, 8*vg.Inch, path); err != nil {
		return "", fmt.Errorf("renderer: save %q: %w", path, err)
	}

	r.logger.Info("[renderer] Graph saved as %s", path)
	return path, nil
}

// chart builds the plot for result. Hours without data are simply absent from
// a line; the x axis always shows all 24 hours.
func chart(result *models.AggregationResult, id models.StreamID) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Average Parking Spaces Left on %s for Garage %d", id.Weekday, id.Garage)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Hour of the Day (24-hour format)"
	p.Y.Label.Text = "Average Spaces Left"
	p.X.Tick.Marker = hourTicks
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false

	lines, maxY, err := permitSeries(result, id)
	if err != nil {
		return nil, err
	}
	for _, ps := range lines {
		p.Add(ps.line, ps.points)
		p.Legend.Add(string(ps.permit), ps.line, ps.points)
	}

	p.X.Min, p.X.Max = 0, 23
	p.Y.Min = 0
	p.Y.Max = 1
	if maxY > 0 {
		p.Y.Max = maxY * 1.1
	}
	return p, nil
}

type series struct {
	permit models.PermitType
	line   *plotter.Line
	points *plotter.Scatter
}

// permitSeries builds one coloured line per permit in vocabulary order and
// reports the largest mean seen.
func permitSeries(result *models.AggregationResult, id models.StreamID) ([]series, float64, error) {
	var (
		out  []series
		maxY float64
	)
	for _, permit := range result.PermitTypes() {
		hours := result.Hours(permit)
		pts := make(plotter.XYs, len(hours))
		for i, h := range hours {
			mean, _ := result.Mean(permit, h)
			pts[i].X = float64(h)
			pts[i].Y = mean
			if mean > maxY {
				maxY = mean
			}
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, 0, fmt.Errorf("renderer: %s %s: %w", id, permit, err)
		}
		c := permitColors[permit]
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(3)

		out = append(out, series{permit: permit, line: line, points: points})
	}
	return out, maxY, nil
}
