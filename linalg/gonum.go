// SPDX-License-Identifier: MIT

package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/asrfilter/matrix"
)

// symmetryEpsilon is the relative asymmetry EigenSym tolerates before
// refusing its input; it matches matrix.DefaultEpsilon.
const symmetryEpsilon = matrix.DefaultEpsilon

type gonumBackend struct{}

// Gonum returns a backend adapting gonum's LAPACK-style routines:
// mat.Dense.Mul, mat.EigenSym and stat.CovarianceMatrix.
//
// gonum panics on shape errors and rejects zero-length matrices, so every
// method validates with package matrix first and falls back to the native
// kernels for zero-sized shapes.
func Gonum() Backend { return gonumBackend{} }

func (gonumBackend) Name() string { return NameGonum }

func gonumErrorf(op string, err error) error {
	return fmt.Errorf("linalg: gonum.%s: %w", op, err)
}

// toGonum views m as a *mat.Dense. A *matrix.Dense shares its storage;
// anything else is copied through At.
func toGonum(m matrix.Matrix) (*mat.Dense, error) {
	r, c := m.Rows(), m.Cols()
	if d, ok := m.(*matrix.Dense); ok {
		return mat.NewDense(r, c, d.Data()), nil
	}
	data := make([]float64, r*c)
	var i, j int
	var err error
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			if data[i*c+j], err = m.At(i, j); err != nil {
				return nil, err
			}
		}
	}

	return mat.NewDense(r, c, data), nil
}

// fromGonum copies any gonum matrix into a fresh *matrix.Dense.
func fromGonum(g mat.Matrix) (*matrix.Dense, error) {
	r, c := g.Dims()
	data := make([]float64, r*c)
	var i, j int
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			data[i*c+j] = g.At(i, j)
		}
	}

	return matrix.NewDenseFrom(r, c, data)
}

func (gonumBackend) Mul(a, b matrix.Matrix) (*matrix.Dense, error) {
	if err := matrix.ValidateMulCompatible(a, b); err != nil {
		return nil, gonumErrorf("Mul", err)
	}
	if a.Rows() == 0 || a.Cols() == 0 || b.Cols() == 0 {
		return matrix.Mul(a, b)
	}
	ga, err := toGonum(a)
	if err != nil {
		return nil, gonumErrorf("Mul", err)
	}
	gb, err := toGonum(b)
	if err != nil {
		return nil, gonumErrorf("Mul", err)
	}
	var out mat.Dense
	out.Mul(ga, gb)

	return fromGonum(&out)
}

func (gonumBackend) Transpose(m matrix.Matrix) (*matrix.Dense, error) {
	if err := matrix.ValidateNotNil(m); err != nil {
		return nil, gonumErrorf("Transpose", err)
	}
	if m.Rows() == 0 || m.Cols() == 0 {
		return matrix.Transpose(m)
	}
	gm, err := toGonum(m)
	if err != nil {
		return nil, gonumErrorf("Transpose", err)
	}

	return fromGonum(gm.T())
}

func (gonumBackend) Covariance(x matrix.Matrix) (*matrix.Dense, []float64, error) {
	if err := matrix.ValidateNotNil(x); err != nil {
		return nil, nil, gonumErrorf("Covariance", err)
	}
	r, c := x.Rows(), x.Cols()
	if r < 2 || c == 0 {
		return nil, nil, gonumErrorf("Covariance", matrix.ErrDimensionMismatch)
	}
	gx, err := toGonum(x)
	if err != nil {
		return nil, nil, gonumErrorf("Covariance", err)
	}

	cov := mat.NewSymDense(c, nil)
	stat.CovarianceMatrix(cov, gx, nil)

	means := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, gx)
		means[j] = stat.Mean(col, nil)
	}

	out, err := fromGonum(cov)
	if err != nil {
		return nil, nil, gonumErrorf("Covariance", err)
	}

	return out, means, nil
}

func (gonumBackend) EigenSym(m matrix.Matrix) ([]float64, *matrix.Dense, error) {
	if err := matrix.ValidateSquare(m); err != nil {
		return nil, nil, gonumErrorf("EigenSym", err)
	}
	gm, err := toGonum(m)
	if err != nil {
		return nil, nil, gonumErrorf("EigenSym", err)
	}
	n, _ := gm.Dims()
	scale := 0.0
	for _, v := range gm.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, gonumErrorf("EigenSym", matrix.ErrNaNInf)
		}
		scale = math.Max(scale, math.Abs(v))
	}
	if err = matrix.ValidateSymmetric(m, symmetryEpsilon*scale); err != nil {
		return nil, nil, gonumErrorf("EigenSym", err)
	}

	// NewSymDense reads the upper triangle only.
	upper := make([]float64, n*n)
	copy(upper, gm.RawMatrix().Data)
	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(n, upper), true); !ok {
		return nil, nil, gonumErrorf("EigenSym", matrix.ErrEigenFailed)
	}
	values := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	vectors, err := fromGonum(&ev)
	if err != nil {
		return nil, nil, gonumErrorf("EigenSym", err)
	}
	if err = matrix.SortEigenDesc(values, vectors); err != nil {
		return nil, nil, gonumErrorf("EigenSym", err)
	}

	return values, vectors, nil
}
