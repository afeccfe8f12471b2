package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"airquality-server/internal/modules/airquality/types"
)

// minFitRows is the number of free parameters: intercept plus two slopes.
const minFitRows = 3

// collinearTol bounds 1-r² between the two features below which the design is singular.
const collinearTol = 1e-10

// FeatureRange summarises one feature over the rows a model was fitted on.
type FeatureRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Model is an ordinary least squares fit of Target on two Features.
type Model struct {
	Target       types.Column    `json:"target"`
	Features     [2]types.Column `json:"features"`
	Coefficients [2]float64      `json:"coefficients"`
	Intercept    float64         `json:"intercept"`
	N            int             `json:"n"`
	R2           float64         `json:"r2"`
	TargetMean   float64         `json:"targetMean"`
	Ranges       [2]FeatureRange `json:"ranges"`
}

// FeaturesFor returns the two columns other than target, in canonical order.
func FeaturesFor(target types.Column) ([2]types.Column, error) {
	var out [2]types.Column
	if !isColumn(target) {
		return out, fmt.Errorf("unknown target column %q", target)
	}
	i := 0
	for _, c := range types.Columns {
		if c != target {
			out[i] = c
			i++
		}
	}
	return out, nil
}

func isColumn(c types.Column) bool {
	for _, col := range types.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// Fit regresses target on features using only rows where all three columns are present.
func Fit(ds *types.Dataset, target types.Column, features [2]types.Column) (*Model, error) {
	for _, c := range []types.Column{target, features[0], features[1]} {
		if !isColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}
	if features[0] == features[1] {
		return nil, fmt.Errorf("features must differ, got %s twice", features[0])
	}
	if features[0] == target || features[1] == target {
		return nil, fmt.Errorf("target %s cannot also be a feature", target)
	}

	var x1, x2, y []float64
	for _, o := range ds.Observations {
		t, okT := o.Value(target)
		a, okA := o.Value(features[0])
		b, okB := o.Value(features[1])
		if okT && okA && okB {
			y = append(y, t)
			x1 = append(x1, a)
			x2 = append(x2, b)
		}
	}
	n := len(y)
	if n < minFitRows {
		return nil, &InsufficientDataError{Rows: n, Required: minFitRows}
	}

	m1, m2, my := stat.Mean(x1, nil), stat.Mean(x2, nil), stat.Mean(y, nil)
	var s11, s22, s12 float64
	for i := range y {
		d1, d2 := x1[i]-m1, x2[i]-m2
		s11 += d1 * d1
		s22 += d2 * d2
		s12 += d1 * d2
	}
	if s11 == 0 || s22 == 0 || 1-(s12*s12)/(s11*s22) < collinearTol {
		return nil, &SingularDesignError{Features: features}
	}

	// Centring the features decouples the intercept from the slopes.
	design := mat.NewDense(n, 3, nil)
	for i := range y {
		design.Set(i, 0, 1)
		design.Set(i, 1, x1[i]-m1)
		design.Set(i, 2, x2[i]-m2)
	}
	response := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var xty mat.VecDense
	xty.MulVec(design.T(), response)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) || errors.Is(err, mat.ErrSingular) {
			return nil, &SingularDesignError{Features: features}
		}
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}

	b1, b2 := beta.AtVec(1), beta.AtVec(2)
	model := &Model{
		Target:       target,
		Features:     features,
		Coefficients: [2]float64{b1, b2},
		Intercept:    beta.AtVec(0) - b1*m1 - b2*m2,
		N:            n,
		TargetMean:   my,
		Ranges: [2]FeatureRange{
			{Min: floats.Min(x1), Max: floats.Max(x1), Mean: m1},
			{Min: floats.Min(x2), Max: floats.Max(x2), Mean: m2},
		},
	}

	var ssRes, ssTot float64
	for i := range y {
		r := y[i] - model.Predict([2]float64{x1[i], x2[i]})
		ssRes += r * r
		d := y[i] - my
		ssTot += d * d
	}
	model.R2 = 1
	if ssTot > 0 {
		model.R2 = 1 - ssRes/ssTot
	}
	return model, nil
}

// Predict evaluates the fitted plane at the given feature values.
func (m *Model) Predict(x [2]float64) float64 {
	return m.Intercept + m.Coefficients[0]*x[0] + m.Coefficients[1]*x[1]
}

// Equation renders the model as "T = b0 + (b1 × F1) + (b2 × F2)".
func (m *Model) Equation() string {
	return fmt.Sprintf("%s = %.2f + (%.2f × %s) + (%.2f × %s)",
		m.Target, m.Intercept,
		m.Coefficients[0], m.Features[0],
		m.Coefficients[1], m.Features[1],
	)
}
