// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Symmetric eigendecomposition for covariance matrices via cyclic Jacobi sweeps.
//   - A stable component ordering (eigenvalue descending, ties by original index)
//     so that component k means the same thing across calls and across backends.

package matrix

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

const (
	opEigen    = "Eigen"
	opEigenSym = "EigenSym"
)

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix.
// Implementation:
//   - Stage 1: ValidateSymmetric(m, tol); copy m into a private *Dense A; Q := I.
//   - Stage 2: per sweep, stop when max|A[p,q]| < tol; otherwise visit every pair
//     p<q in row order and annihilate A[p,q] with a Jacobi rotation when |A[p,q]| ≥ tol.
//   - Stage 3: eigenvalues are diag(A); eigenvectors are the columns of Q.
//
// Returns values in solver order (unsorted) and Q (n×n).
//
// Errors:
//   - ErrNonSquare, ErrAsymmetry (via validation), ErrEigenFailed when the
//     off-diagonal is still ≥ tol after maxSweeps.
//
// Complexity: Time O(maxSweeps * n^3), Space O(n^2).
func Eigen(m Matrix, tol float64, maxSweeps int) ([]float64, *Dense, error) {
	if err := ValidateSymmetric(m, tol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	n := m.Rows()
	a := newDenseZeroOK(n, n)
	if err := a.CopyFrom(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	q := newDenseZeroOK(n, n)
	var i int
	for i = 0; i < n; i++ {
		q.data[i*n+i] = 1.0
	}

	A, Q := a.data, q.data
	var (
		sweep, p, r        int
		app, aqq, apq      float64
		aip, aiq, qip, qiq float64
		theta, t, c, s     float64
	)
	converged := false
	for sweep = 0; sweep < maxSweeps; sweep++ {
		if maxOffDiagonal(A, n) < tol {
			converged = true
			break
		}
		for p = 0; p < n-1; p++ {
			for r = p + 1; r < n; r++ {
				apq = A[p*n+r]
				if math.Abs(apq) < tol {
					continue
				}
				app, aqq = A[p*n+p], A[r*n+r]

				// t = sign(θ) / (|θ| + √(θ²+1)), θ = (aqq−app)/(2·apq)
				theta = (aqq - app) / (2 * apq)
				t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
				c = 1.0 / math.Sqrt(t*t+1)
				s = t * c

				for i = 0; i < n; i++ {
					if i == p || i == r {
						continue
					}
					aip, aiq = A[i*n+p], A[i*n+r]
					A[i*n+p] = c*aip - s*aiq
					A[p*n+i] = A[i*n+p]
					A[i*n+r] = s*aip + c*aiq
					A[r*n+i] = A[i*n+r]
				}
				A[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
				A[r*n+r] = s*s*app + 2*c*s*apq + c*c*aqq
				A[p*n+r], A[r*n+p] = 0, 0

				for i = 0; i < n; i++ {
					qip, qiq = Q[i*n+p], Q[i*n+r]
					Q[i*n+p] = c*qip - s*qiq
					Q[i*n+r] = s*qip + c*qiq
				}
			}
		}
	}
	if !converged && maxOffDiagonal(A, n) >= tol {
		return nil, nil, matrixErrorf(opEigen, ErrEigenFailed)
	}

	values := make([]float64, n)
	for i = 0; i < n; i++ {
		values[i] = A[i*n+i]
	}

	return values, q, nil
}

// maxOffDiagonal scans the strict upper triangle of a row-major n×n buffer.
func maxOffDiagonal(a []float64, n int) float64 {
	var i, j int
	var off, maxOff float64
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			off = math.Abs(a[i*n+j])
			if off > maxOff {
				maxOff = off
			}
		}
	}

	return maxOff
}

// EigenSym is the entry point used by the filter: Eigen with a tolerance
// relative to the magnitude of m, followed by SortEigenDesc.
//
// EEG covariances range from ~1 (µV² of quiet signal) to ~1e8 (movement
// artifacts); an absolute tolerance would either never converge or stop
// too early, so the off-diagonal threshold is eps * max|a_ij|.
//
// Options: WithEpsilon, WithMaxSweeps.
func EigenSym(m Matrix, opts ...Option) ([]float64, *Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, nil, matrixErrorf(opEigenSym, err)
	}
	o := gatherOptions(opts...)
	scale, err := maxAbs(m)
	if err != nil {
		return nil, nil, matrixErrorf(opEigenSym, err)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, nil, matrixErrorf(opEigenSym, ErrNaNInf)
	}
	tol := math.Max(o.eps*scale, absTolFloor)

	values, vectors, err := Eigen(m, tol, o.maxSweeps)
	if err != nil {
		return nil, nil, matrixErrorf(opEigenSym, err)
	}
	if err = SortEigenDesc(values, vectors); err != nil {
		return nil, nil, matrixErrorf(opEigenSym, err)
	}

	return values, vectors, nil
}

// maxAbs returns max |m[i,j]|, or NaN when any entry is NaN.
func maxAbs(m Matrix) (float64, error) {
	var best float64
	visit := func(v float64) bool {
		if math.IsNaN(v) {
			best = math.NaN()
			return false
		}
		best = math.Max(best, math.Abs(v))
		return true
	}
	if d, ok := m.(*Dense); ok {
		for _, v := range d.data {
			if !visit(v) {
				break
			}
		}
		return best, nil
	}

	var i, j int
	var v float64
	var err error
	for i = 0; i < m.Rows(); i++ {
		for j = 0; j < m.Cols(); j++ {
			if v, err = m.At(i, j); err != nil {
				return 0, err
			}
			if !visit(v) {
				return best, nil
			}
		}
	}

	return best, nil
}

// SortEigenDesc reorders values (and the matching columns of vectors) by
// eigenvalue descending. Equal eigenvalues keep their solver order, which
// gives every backend the same deterministic index → component mapping.
//
// Errors: ErrDimensionMismatch when vectors is not len(values) square.
func SortEigenDesc(values []float64, vectors *Dense) error {
	n := len(values)
	if vectors == nil || vectors.r != n || vectors.c != n {
		return fmt.Errorf("SortEigenDesc: %w", ErrDimensionMismatch)
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(x, y int) int {
		return cmp.Compare(values[y], values[x])
	})

	sortedVals := make([]float64, n)
	sortedVecs := make([]float64, n*n)
	var i, k int
	for k = 0; k < n; k++ {
		sortedVals[k] = values[perm[k]]
		for i = 0; i < n; i++ {
			sortedVecs[i*n+k] = vectors.data[i*n+perm[k]]
		}
	}
	copy(values, sortedVals)
	copy(vectors.data, sortedVecs)

	return nil
}
