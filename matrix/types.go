// SPDX-License-Identifier: MIT

// Package matrix: the public Matrix contract shared by Dense, the statistics
// helpers and the linalg backends.
package matrix

// Matrix represents a two-dimensional mutable array of float64 values.
//
// In this module a multichannel signal window is stored channels × samples
// (one row per electrode), while statistical helpers treat columns as
// variables. Transpose bridges the two views.
//
// Complexity notes: all methods are expected O(1) except Clone (O(r*c)).
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i or j are outside the matrix.
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid.
	Set(i, j int, v float64) error

	// Clone returns an independent deep copy of the matrix.
	Clone() Matrix
}
