// Package regress fits ordinary least-squares models and scores their predictions.
package regress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoObservations is returned when a fit or score has no rows.
	ErrNoObservations = errors.New("no observations")
	// ErrShape is returned when rows, targets or coefficients disagree in size.
	ErrShape = errors.New("shape mismatch")
)

// Linear is a fitted model y = Intercept + Coefficients·x.
type Linear struct {
	Intercept    float64
	Coefficients []float64
	// Rank is the numerical rank of the centred design matrix. A rank below
	// len(Coefficients) means the minimum-norm solution was taken.
	Rank int
}

// Fit solves the least-squares problem with an intercept. X and y are centred
// on their means and the centred system is solved through the SVD
// pseudo-inverse, discarding singular values below eps*max(m,n)*s_max; the
// intercept is then mean(y) - mean(X)·β. Rank-deficient designs (duplicate
// rows, constant features, fewer rows than features) get the minimum-norm
// coefficients rather than an error.
func Fit(x [][]float64, y []float64) (*Linear, error) {
	m := len(x)
	if m == 0 {
		return nil, ErrNoObservations
	}
	if len(y) != m {
		return nil, fmt.Errorf("fit: %d rows, %d targets: %w", m, len(y), ErrShape)
	}
	n := len(x[0])
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("fit: row %d has %d features, want %d: %w", i, len(row), n, ErrShape)
		}
		if !allFinite(row) {
			return nil, fmt.Errorf("fit: row %d has a non-finite feature", i)
		}
	}
	if !allFinite(y) {
		return nil, fmt.Errorf("fit: non-finite target")
	}

	xMean := make([]float64, n)
	for _, row := range x {
		floats.Add(xMean, row)
	}
	floats.Scale(1/float64(m), xMean)
	yMean := stat.Mean(y, nil)

	model := &Linear{Coefficients: make([]float64, n)}
	if n == 0 {
		model.Intercept = yMean
		return model, nil
	}

	a := mat.NewDense(m, n, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v-xMean[j])
		}
	}
	b := make([]float64, m)
	for i, v := range y {
		b[i] = v - yMean
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("fit: singular value decomposition failed")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 0.0
	if len(s) > 0 {
		tol = s[0] * float64(max(m, n)) * eps
	}

	// β = V · diag(1/s) · Uᵀ · b over the retained singular values.
	for k, sk := range s {
		if sk <= tol || sk == 0 {
			continue
		}
		model.Rank++
		var ub float64
		for i := 0; i < m; i++ {
			ub += u.At(i, k) * b[i]
		}
		ub /= sk
		for j := 0; j < n; j++ {
			model.Coefficients[j] += v.At(j, k) * ub
		}
	}
	model.Intercept = yMean - floats.Dot(xMean, model.Coefficients)
	return model, nil
}

// eps is float64 machine epsilon.
const eps = 2.220446049250313e-16

func allFinite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Predict evaluates the model for one feature vector.
func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(l.Coefficients) {
		return 0, fmt.Errorf("predict: %d features, model has %d: %w", len(x), len(l.Coefficients), ErrShape)
	}
	return l.Intercept + floats.Dot(l.Coefficients, x), nil
}

// PredictAll evaluates the model for every row, preserving order.
func (l *Linear) PredictAll(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := l.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// RMSE is the root of the mean squared difference between actual and predicted.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, ErrNoObservations
	}
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("rmse: %d actual, %d predicted: %w", len(actual), len(predicted), ErrShape)
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// PearsonR2 is the squared Pearson correlation of actual and predicted. It is
// NaN when either side is constant, since the correlation is then undefined.
func PearsonR2(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, ErrNoObservations
	}
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("r2: %d actual, %d predicted: %w", len(actual), len(predicted), ErrShape)
	}
	if len(actual) < 2 || stat.Variance(actual, nil) == 0 || stat.Variance(predicted, nil) == 0 {
		return math.NaN(), nil
	}
	r := stat.Correlation(actual, predicted, nil)
	return r * r, nil
}

// Line fits y = alpha + beta*x for drawing a trend line. ok is false when the
// line is undefined (fewer than two points or constant x).
func Line(x, y []float64) (alpha, beta float64, ok bool) {
	if len(x) < 2 || len(x) != len(y) || stat.Variance(x, nil) == 0 {
		return 0, 0, false
	}
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return 0, 0, false
	}
	return alpha, beta, true
}
