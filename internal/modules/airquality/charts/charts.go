package charts

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/types"
)

// ErrNotEnoughData is returned when a chart would have no visible extent.
var ErrNotEnoughData = errors.New("not enough data to draw chart")

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat maps a query value to a Format; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	default:
		return "", fmt.Errorf("invalid format %q (allowed: png, svg)", s)
	}
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

type Size struct {
	Width  int
	Height int
}

var (
	lineColor    = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	boxColor     = drawing.Color{R: 49, G: 130, B: 189, A: 255}
	outlierColor = drawing.Color{R: 90, G: 90, B: 90, A: 255}
	// Light to dark blue, one per statistic in the comparison chart.
	blues = []drawing.Color{
		{R: 158, G: 202, B: 225, A: 255},
		{R: 66, G: 146, B: 198, A: 255},
		{R: 8, G: 69, B: 148, A: 255},
	}
)

func axisName(c types.Column) string {
	if u := c.Unit(); u != "" {
		return fmt.Sprintf("%s (%s)", c.Label(), u)
	}
	return c.Label()
}

// paddedRange widens [lo, hi] by 5% and never returns an empty range.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// TimeSeries draws one column as a line over time, in dataset order.
func TimeSeries(w io.Writer, format Format, c types.Column, points []types.Point, size Size) error {
	if len(points) < 2 {
		return ErrNotEnoughData
	}
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	first, last := points[0].Time, points[0].Time
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = p.Value
		if p.Time.Before(first) {
			first = p.Time
		}
		if p.Time.After(last) {
			last = p.Time
		}
	}
	if first.Equal(last) {
		return ErrNotEnoughData
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s over time", c.Label()),
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		YAxis: chart.YAxis{
			Name:  axisName(c),
			Range: paddedRange(floats.Min(ys), floats.Max(ys)),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    c.Label(),
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: lineColor, StrokeWidth: 1.5},
			},
		},
	}
	return ch.Render(format.provider(), w)
}

// Distribution draws a horizontal box plot from precomputed box statistics.
func Distribution(w io.Writer, format Format, box analysis.BoxStats, size Size) error {
	const (
		bottom, top = 0.3, 0.7
		mid         = 0.5
		capLo       = 0.4
		capHi       = 0.6
	)
	lo, hi := box.LowerWhisker, box.UpperWhisker
	if len(box.Outliers) > 0 {
		lo = min(lo, floats.Min(box.Outliers))
		hi = max(hi, floats.Max(box.Outliers))
	}

	line := func(name string, xs, ys []float64, width float64) chart.ContinuousSeries {
		return chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: boxColor, StrokeWidth: width},
		}
	}
	series := []chart.Series{
		line("box", []float64{box.Q1, box.Q3, box.Q3, box.Q1, box.Q1}, []float64{bottom, bottom, top, top, bottom}, 2),
		line("median", []float64{box.Median, box.Median}, []float64{bottom, top}, 3),
		line("lower whisker", []float64{box.LowerWhisker, box.Q1}, []float64{mid, mid}, 1.5),
		line("upper whisker", []float64{box.Q3, box.UpperWhisker}, []float64{mid, mid}, 1.5),
		line("lower cap", []float64{box.LowerWhisker, box.LowerWhisker}, []float64{capLo, capHi}, 1.5),
		line("upper cap", []float64{box.UpperWhisker, box.UpperWhisker}, []float64{capLo, capHi}, 1.5),
	}
	if len(box.Outliers) > 0 {
		ys := make([]float64, len(box.Outliers))
		for i := range ys {
			ys[i] = mid
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "outliers",
			XValues: box.Outliers,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    outlierColor,
			},
		})
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Distribution of %s", box.Column.Label()),
		Width:      size.Width,
		Height:     size.Height / 2,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  axisName(box.Column),
			Range: paddedRange(lo, hi),
		},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	return ch.Render(format.provider(), w)
}

// Comparison draws mean, max and min of each summarised column as bars.
func Comparison(w io.Writer, format Format, summaries []analysis.SummaryStats, size Size) error {
	if len(summaries) == 0 {
		return ErrNotEnoughData
	}
	bars := make([]chart.Value, 0, 3*len(summaries))
	lo, hi := 0.0, 0.0
	for _, s := range summaries {
		for i, v := range []struct {
			label string
			value float64
		}{
			{"mean", s.Mean},
			{"max", s.Max},
			{"min", s.Min},
		} {
			bars = append(bars, chart.Value{
				Label: fmt.Sprintf("%s %s", s.Column, v.label),
				Value: v.value,
				Style: chart.Style{FillColor: blues[i], StrokeColor: blues[i]},
			})
			lo, hi = min(lo, v.value), max(hi, v.value)
		}
	}
	if lo == hi {
		hi = lo + 1
	}

	// Bars grow from zero, downwards for negative values.
	bc := chart.BarChart{
		Title:        "Mean, max and min per variable",
		Width:        size.Width,
		Height:       size.Height,
		BarWidth:     max(8, size.Width/(2*len(bars)+2)),
		Background:   chart.Style{Padding: chart.Box{Top: 40}},
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Bars:         bars,
	}
	return bc.Render(format.provider(), w)
}
