// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package predictor

import (
	"errors"
	"math"
)

// errSingular is returned when the normal equations cannot be solved.
var errSingular = errors.New("singular feature matrix")

// LinearModel is a least-squares linear regression. Exported fields for gob
// persistence inside the model artifact.
type LinearModel struct {
	// Weights has one coefficient per feature column.
	Weights []float64

	// Intercept is the bias term.
	Intercept float64
}

// fitLinear solves the normal equations (X'X + eps*I) w = X'y with an
// intercept column. The tiny ridge term keeps collinear feature matrices
// (constant columns are common here) solvable.
func fitLinear(x [][]float64, y []float64) (*LinearModel, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("empty or mismatched training data")
	}
	cols := len(x[0]) + 1 // leading intercept column

	// Accumulate X'X and X'y directly so memory stays O(cols^2).
	xtx := make([][]float64, cols)
	for i := range xtx {
		xtx[i] = make([]float64, cols)
	}
	xty := make([]float64, cols)

	row := make([]float64, cols)
	for r := range x {
		if len(x[r]) != cols-1 {
			return nil, errors.New("ragged feature row")
		}
		row[0] = 1
		copy(row[1:], x[r])
		for i := 0; i < cols; i++ {
			for j := 0; j < cols; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * y[r]
		}
	}

	const eps = 1e-8
	for i := 0; i < cols; i++ {
		xtx[i][i] += eps
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	return &LinearModel{Intercept: weights[0], Weights: weights[1:]}, nil
}

// Predict returns the linear response for one feature row. Missing trailing
// features are treated as zero.
func (m *LinearModel) Predict(features []float64) float64 {
	sum := m.Intercept
	n := len(features)
	if n > len(m.Weights) {
		n = len(m.Weights)
	}
	for i := 0; i < n; i++ {
		sum += m.Weights[i] * features[i]
	}
	return sum
}

// solve runs Gaussian elimination with partial pivoting on a (in place).
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}
