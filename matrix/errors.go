// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Every kernel returns one of these sentinels, optionally wrapped with an
// operation tag via matrixErrorf. Callers match with errors.Is.

package matrix

import "errors"

// NOTE ON NAMING
// --------------
// Every message is prefixed with "matrix: ..." so log lines can be grepped.
// Wrap with fmt.Errorf("ctx: %w", ErrX) at the boundary; never compare strings.

var (
	// ErrInvalidDimensions is returned when a requested shape has a negative
	// or (for public constructors) zero dimension.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand shapes, e.g. Mul
	// with a.Cols != b.Rows or a backing slice of the wrong length.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrAsymmetry signals that a matrix expected to be symmetric is not,
	// within the configured epsilon.
	ErrAsymmetry = errors.New("matrix: matrix is not symmetric within eps")

	// ErrNaNInf signals a NaN or ±Inf where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil Matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrEigenFailed indicates that the Jacobi solver did not reach the
	// requested off-diagonal tolerance within the sweep budget.
	ErrEigenFailed = errors.New("matrix: eigen decomposition failed")
)
