// Package matrix is the dense linear-algebra primitive behind the ASR filter.
//
// The package provides:
//
//   - Dense, a row-major float64 matrix with bounds-checked accessors and an
//     optional finite-only numeric policy.
//   - Kernels: Mul, Transpose, Scale.
//   - Statistics: CenterColumns, Covariance.
//   - EigenSym, a cyclic Jacobi solver for symmetric input that returns
//     components ordered by eigenvalue, largest first.
//
// All kernels validate first, never mutate their operands and return
// sentinel errors (ErrDimensionMismatch, ErrNilMatrix, ...) wrapped with the
// operation name, so callers match with errors.Is.
//
// Sizes in this module are small (channels ≤ a few hundred), so every
// routine favors determinism and clarity over blocking or SIMD tricks.
package matrix
