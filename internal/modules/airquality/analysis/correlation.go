package analysis

import (
	"encoding/json"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"airquality-server/internal/modules/airquality/types"
)

// Coefficient is a Pearson coefficient. Defined is false when the pair has
// fewer than two complete rows or either side has zero variance.
type Coefficient struct {
	R       float64
	Defined bool
}

func (c Coefficient) MarshalJSON() ([]byte, error) {
	if !c.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(c.R)
}

func (c *Coefficient) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = Coefficient{}
		return nil
	}
	if err := json.Unmarshal(b, &c.R); err != nil {
		return err
	}
	c.Defined = true
	return nil
}

func (c Coefficient) String() string {
	if !c.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(c.R, 'f', 2, 64)
}

// CorrelationMatrix is symmetric; Counts holds the number of rows used per pair.
type CorrelationMatrix struct {
	Columns []types.Column  `json:"columns"`
	Values  [][]Coefficient `json:"values"`
	Counts  [][]int         `json:"counts"`
}

// At returns the coefficient for the pair (a, b).
func (m CorrelationMatrix) At(a, b types.Column) (Coefficient, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return Coefficient{}, false
	}
	return m.Values[i][j], true
}

func (m CorrelationMatrix) index(c types.Column) int {
	for i, col := range m.Columns {
		if col == c {
			return i
		}
	}
	return -1
}

// Correlate computes pairwise Pearson correlation. Each pair uses every row
// where both of its columns are present, regardless of other columns.
func Correlate(ds *types.Dataset, columns []types.Column) CorrelationMatrix {
	n := len(columns)
	m := CorrelationMatrix{
		Columns: append([]types.Column(nil), columns...),
		Values:  make([][]Coefficient, n),
		Counts:  make([][]int, n),
	}
	for i := range columns {
		m.Values[i] = make([]Coefficient, n)
		m.Counts[i] = make([]int, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			xs, ys := pairwiseComplete(ds, columns[i], columns[j])
			var c Coefficient
			if i == j {
				c = selfCoefficient(xs)
			} else {
				c = pearson(xs, ys)
			}
			m.Values[i][j], m.Values[j][i] = c, c
			m.Counts[i][j], m.Counts[j][i] = len(xs), len(xs)
		}
	}
	return m
}

func pairwiseComplete(ds *types.Dataset, a, b types.Column) (xs, ys []float64) {
	for _, o := range ds.Observations {
		x, okX := o.Value(a)
		y, okY := o.Value(b)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func selfCoefficient(xs []float64) Coefficient {
	if len(xs) < 2 || constant(xs) {
		return Coefficient{}
	}
	return Coefficient{R: 1, Defined: true}
}

func pearson(xs, ys []float64) Coefficient {
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return Coefficient{}
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return Coefficient{}
	}
	return Coefficient{R: math.Max(-1, math.Min(1, r)), Defined: true}
}

func constant(xs []float64) bool {
	return floats.Min(xs) == floats.Max(xs)
}
