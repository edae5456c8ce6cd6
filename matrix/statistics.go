// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Channel statistics used by calibration and per-block PCA:
//     centering and the sample covariance of columns.
//
// Exposed API:
//   - CenterColumns(X) -> (Xc, means) // subtract per-column mean
//   - Covariance(X)    -> (Cov, means) // (Xcᵀ Xc)/(r-1), columns are variables
//
// Determinism:
//   - Fixed i→j traversal; Covariance is bitwise symmetric because (i,j) and
//     (j,i) accumulate identical products in identical order.

package matrix

const (
	opCenterColumns = "CenterColumns"
	opCovariance    = "Covariance"
)

// columnMeans returns Σ_i X[i,j] / r for every column j.
func columnMeans(X Matrix) ([]float64, error) {
	r, c := X.Rows(), X.Cols()
	means := make([]float64, c)
	if r == 0 || c == 0 {
		return means, nil
	}

	var i, j int
	if d, ok := X.(*Dense); ok {
		var base int
		for i = 0; i < r; i++ {
			base = i * c
			for j = 0; j < c; j++ {
				means[j] += d.data[base+j]
			}
		}
	} else {
		var v float64
		var err error
		for i = 0; i < r; i++ {
			for j = 0; j < c; j++ {
				if v, err = X.At(i, j); err != nil {
					return nil, err
				}
				means[j] += v
			}
		}
	}
	inv := 1.0 / float64(r)
	for j = range means {
		means[j] *= inv
	}

	return means, nil
}

// CenterColumns returns Xc = X − mean(X, by columns) and the column means.
// Zero-size input is a no-op that returns X itself.
//
// Complexity: Time O(r*c), Space O(r*c).
func CenterColumns(X Matrix) (*Dense, []float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	means, err := columnMeans(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	r, c := X.Rows(), X.Cols()
	out := newDenseZeroOK(r, c)
	if err = out.CopyFrom(X); err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	var i, j, base int
	for i = 0; i < r; i++ {
		base = i * c
		for j = 0; j < c; j++ {
			out.data[base+j] -= means[j]
		}
	}

	return out, means, nil
}

// Covariance computes the sample covariance of columns: Cov = (Xcᵀ Xc)/(r-1).
// Implementation:
//   - Stage 1: Validate X, require r >= 2 (sample denominator) and c > 0.
//   - Stage 2: CenterColumns, then Transpose → Mul → Scale.
//
// Returns the c×c covariance and the column means used for centering.
//
// Errors: ErrNilMatrix; ErrDimensionMismatch when r < 2 or c == 0.
//
// Notes:
//   - Positive semi-definite on finite data; a flat column yields a zero
//     row and column, hence a zero eigenvalue downstream.
func Covariance(X Matrix) (*Dense, []float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	r, c := X.Rows(), X.Cols()
	if r < 2 || c == 0 {
		return nil, nil, matrixErrorf(opCovariance, ErrDimensionMismatch)
	}

	Xc, means, err := CenterColumns(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	Xct, err := Transpose(Xc)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	G, err := Mul(Xct, Xc)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	Cov, err := Scale(G, 1.0/float64(r-1))
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}

	return Cov, means, nil
}
