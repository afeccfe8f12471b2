package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"airquality-server/internal/modules/airquality/types"
)

// SummaryStats is the describe() style summary of one column. Std is the
// sample standard deviation (n-1 denominator) and is 0 for a single value.
type SummaryStats struct {
	Column types.Column `json:"column"`
	Count  int          `json:"count"`
	Mean   float64      `json:"mean"`
	Std    float64      `json:"std"`
	Min    float64      `json:"min"`
	Q1     float64      `json:"q1"`
	Median float64      `json:"median"`
	Q3     float64      `json:"q3"`
	Max    float64      `json:"max"`
}

// Summarize computes SummaryStats over the present values of c.
func Summarize(ds *types.Dataset, c types.Column) (SummaryStats, error) {
	vals := ds.Values(c)
	if len(vals) == 0 {
		return SummaryStats{}, &EmptyColumnError{Column: c}
	}
	sorted := sortedCopy(vals)
	n := len(sorted)

	s := SummaryStats{
		Column: c,
		Count:  n,
		Mean:   stat.Mean(vals, nil),
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[n-1],
	}
	if n > 1 {
		s.Std = stat.StdDev(vals, nil)
	}
	return s, nil
}

// BoxStats describes a Tukey box plot.
type BoxStats struct {
	Column       types.Column `json:"column"`
	Q1           float64      `json:"q1"`
	Median       float64      `json:"median"`
	Q3           float64      `json:"q3"`
	LowerWhisker float64      `json:"lowerWhisker"`
	UpperWhisker float64      `json:"upperWhisker"`
	Outliers     []float64    `json:"outliers"`
}

// BoxPlot places whiskers at the furthest values within 1.5 IQR of the box.
func BoxPlot(ds *types.Dataset, c types.Column) (BoxStats, error) {
	vals := ds.Values(c)
	if len(vals) == 0 {
		return BoxStats{}, &EmptyColumnError{Column: c}
	}
	sorted := sortedCopy(vals)
	b := BoxStats{
		Column: c,
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr

	b.LowerWhisker = math.Inf(1)
	b.UpperWhisker = math.Inf(-1)
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b, nil
}

func sortedCopy(vals []float64) []float64 {
	out := make([]float64, len(vals))
	copy(out, vals)
	sort.Float64s(out)
	return out
}

// quantile interpolates linearly between closest ranks at position q*(n-1).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
