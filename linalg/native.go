// SPDX-License-Identifier: MIT

package linalg

import "github.com/katalvlaran/asrfilter/matrix"

type native struct {
	opts []matrix.Option
}

// Native returns the dependency-free backend built on package matrix.
// opts tune the Jacobi solver (matrix.WithEpsilon, matrix.WithMaxSweeps).
func Native(opts ...matrix.Option) Backend {
	return native{opts: opts}
}

func (native) Name() string { return NameNative }

func (native) Mul(a, b matrix.Matrix) (*matrix.Dense, error) { return matrix.Mul(a, b) }

func (native) Transpose(m matrix.Matrix) (*matrix.Dense, error) { return matrix.Transpose(m) }

func (native) Covariance(x matrix.Matrix) (*matrix.Dense, []float64, error) {
	return matrix.Covariance(x)
}

func (n native) EigenSym(m matrix.Matrix) ([]float64, *matrix.Dense, error) {
	return matrix.EigenSym(m, n.opts...)
}
