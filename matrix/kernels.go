// SPDX-License-Identifier: MIT
// Package matrix provides the linear-algebra kernels used by the PCA stages
// of the filter: multiplication, transpose and scaling.
//
// Notes:
//   - Every kernel validates first and never mutates its operands.
//   - Results are fresh *Dense values; zero-sized shapes are legal results.
//   - *Dense operands take a flat-slice fast path; other Matrix
//     implementations go through At with identical loop order.

package matrix

import "fmt"

// Operation name constants for unified error wrapping.
const (
	opMul       = "Mul"
	opTranspose = "Transpose"
	opScale     = "Scale"
)

// zeroSum is the initial value of every accumulator.
const zeroSum = 0.0

// matrixErrorf wraps err with an operation tag, preserving it for errors.Is.
// Call only with a non-nil err.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Mul performs C = A × B.
// Implementation:
//   - Stage 1: ValidateMulCompatible(A, B).
//   - Stage 2: *Dense × *Dense uses i→k→j over row-major strides and skips zero A[i,k];
//     otherwise a fixed i→j→k loop through At.
//
// Complexity: Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	aRows, aCols, bCols := a.Rows(), a.Cols(), b.Cols()
	res := newDenseZeroOK(aRows, bCols)

	var i, j, k int
	var av, bv, acc float64
	da, okA := a.(*Dense)
	db, okB := b.(*Dense)
	if okA && okB {
		var rowA, rowB, rowR int
		for i = 0; i < aRows; i++ {
			rowA = i * aCols
			rowR = i * bCols
			for k = 0; k < aCols; k++ {
				av = da.data[rowA+k]
				if av == 0 {
					continue
				}
				rowB = k * bCols
				for j = 0; j < bCols; j++ {
					res.data[rowR+j] += av * db.data[rowB+j]
				}
			}
		}
		return res, nil
	}

	var err error
	for i = 0; i < aRows; i++ {
		for j = 0; j < bCols; j++ {
			acc = zeroSum
			for k = 0; k < aCols; k++ {
				if av, err = a.At(i, k); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				if av == 0 {
					continue
				}
				if bv, err = b.At(k, j); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				acc += av * bv
			}
			res.data[i*bCols+j] = acc
		}
	}

	return res, nil
}

// Transpose returns mᵀ as a new matrix.
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	rows, cols := m.Rows(), m.Cols()
	res := newDenseZeroOK(cols, rows)

	var i, j int
	if dm, ok := m.(*Dense); ok {
		var base int
		for i = 0; i < rows; i++ {
			base = i * cols
			for j = 0; j < cols; j++ {
				res.data[j*rows+i] = dm.data[base+j]
			}
		}
		return res, nil
	}

	var v float64
	var err error
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, matrixErrorf(opTranspose, err)
			}
			res.data[j*rows+i] = v
		}
	}

	return res, nil
}

// Scale returns alpha * m.
func Scale(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	rows, cols := m.Rows(), m.Cols()
	res := newDenseZeroOK(rows, cols)
	if dm, ok := m.(*Dense); ok {
		for i, v := range dm.data {
			res.data[i] = alpha * v
		}
		return res, nil
	}

	var i, j int
	var v float64
	var err error
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, matrixErrorf(opScale, err)
			}
			res.data[i*cols+j] = alpha * v
		}
	}

	return res, nil
}
