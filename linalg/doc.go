// Package linalg is the linear-algebra capability consumed by the ASR filter.
//
// The filter never calls a numeric library directly. It holds a Backend,
// which exposes exactly the four operations PCA needs:
//
//   - Mul and Transpose, to project blocks onto a basis and back;
//   - Covariance, over columns (observations are rows);
//   - EigenSym, the symmetric eigendecomposition, largest eigenvalue first.
//
// Two implementations ship with the module:
//
//   - Native() delegates to package matrix (cyclic Jacobi, no dependencies).
//   - Gonum() adapts gonum.org/v1/gonum/mat and gonum.org/v1/gonum/stat.
//
// Both return components in the same order (eigenvalue descending, ties in
// solver order), so threshold vectors learned with one backend index the same
// components as the other. Eigenvector signs are backend-specific.
//
// Lookup maps a configuration name ("native", "gonum") to a Backend.
package linalg
