package forecast

import (
	"errors"
	"math"
)

// Model is an additive decomposition y = trend + seasonal + noise, fitted
// jointly by ordinary least squares with one dummy per season slot.
type Model struct {
	Intercept float64
	Slope     float64
	// Seasonal holds one offset per season slot, summing to zero.
	// Empty when the history is too short to estimate seasonality.
	Seasonal []float64
	// Phase is the season slot of the first observation.
	Phase int
	Sigma float64
	N     int

	seasonLength int
	beta         []float64
	xtxInv       [][]float64
}

// Fit estimates the model from equally spaced observations.
// Seasonality is fitted only when at least two full cycles are present.
func Fit(y []float64, seasonLength, phase int) (*Model, error) {
	n := len(y)
	if n < 2 {
		return nil, errors.New("at least 2 observations are required")
	}

	m := &Model{N: n, Phase: phase}
	if seasonLength > 1 && n >= 2*seasonLength {
		m.seasonLength = seasonLength
	}

	p := m.width()
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([]float64, p)
	for t, v := range y {
		x := m.row(t)
		for i := 0; i < p; i++ {
			xty[i] += x[i] * v
			for j := 0; j < p; j++ {
				xtx[i][j] += x[i] * x[j]
			}
		}
	}

	inv, err := invert(xtx)
	if err != nil {
		return nil, err
	}
	m.xtxInv = inv
	m.beta = make([]float64, p)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			m.beta[i] += inv[i][j] * xty[j]
		}
	}

	var sse float64
	for t, v := range y {
		e := v - dot(m.row(t), m.beta)
		sse += e * e
	}
	if n > p {
		m.Sigma = math.Sqrt(sse / float64(n-p))
	}

	m.Intercept, m.Slope = m.beta[0], m.beta[1]
	if m.seasonLength > 0 {
		m.Seasonal = make([]float64, m.seasonLength)
		var mean float64
		for k := 1; k < m.seasonLength; k++ {
			m.Seasonal[k] = m.beta[1+k]
			mean += m.Seasonal[k]
		}
		mean /= float64(m.seasonLength)
		for k := range m.Seasonal {
			m.Seasonal[k] -= mean
		}
		m.Intercept += mean
	}
	return m, nil
}

// Predict returns the point estimate and its prediction standard error at
// index t, counted from the first observation.
func (m *Model) Predict(t int) (estimate, stderr float64) {
	x := m.row(t)
	estimate = dot(x, m.beta)
	var q float64
	for i := range x {
		q += x[i] * dot(m.xtxInv[i], x)
	}
	stderr = m.Sigma * math.Sqrt(1+q)
	return estimate, stderr
}

func (m *Model) width() int {
	if m.seasonLength == 0 {
		return 2
	}
	return 1 + m.seasonLength
}

// row is the design vector: intercept, time, then a dummy for every
// season slot except slot 0.
func (m *Model) row(t int) []float64 {
	x := make([]float64, m.width())
	x[0] = 1
	x[1] = float64(t)
	if m.seasonLength > 0 {
		if k := (m.Phase + t) % m.seasonLength; k > 0 {
			x[1+k] = 1
		}
	}
	return x
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// invert returns the inverse of a square matrix by Gauss-Jordan elimination
// with partial pivoting. a is left untouched.
func invert(a [][]float64) ([][]float64, error) {
	n := len(a)
	aug := make([][]float64, n)
	for i := range a {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, errors.New("singular design matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		pv := aug[col][col]
		for j := range aug[col] {
			aug[col][j] /= pv
		}
		for r := 0; r < n; r++ {
			if r == col || aug[r][col] == 0 {
				continue
			}
			f := aug[r][col]
			for j := range aug[r] {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}
	inv := make([][]float64, n)
	for i := range aug {
		inv[i] = aug[i][n:]
	}
	return inv, nil
}

// zScore returns the two-sided standard normal quantile for level.
func zScore(level float64) float64 {
	return math.Sqrt2 * math.Erfinv(level)
}
