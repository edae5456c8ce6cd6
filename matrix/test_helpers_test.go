// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers.
//
// Purpose:
//   • Small deterministic fixtures for kernels and the eigen solver.
//   • hide{} masks *Dense so that the At/Set fallback paths are exercised.

package matrix_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/asrfilter/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions,
// forcing kernels onto their generic path.
type hide struct{ matrix.Matrix }

// MustDense allocates an r×c *Dense filled row-major from vals.
func MustDense(t *testing.T, r, c int, vals ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(r, c)
	require.NoError(t, err)
	if len(vals) > 0 {
		require.Len(t, vals, r*c)
		copy(m.Data(), vals)
	}

	return m
}

// MustAt reads (i,j) or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}

// RequireClose compares two matrices element-wise within tol.
func RequireClose(t *testing.T, want, got matrix.Matrix, tol float64) {
	t.Helper()
	require.Equal(t, want.Rows(), got.Rows(), "rows")
	require.Equal(t, want.Cols(), got.Cols(), "cols")
	for i := 0; i < want.Rows(); i++ {
		for j := 0; j < want.Cols(); j++ {
			require.InDelta(t, MustAt(t, want, i, j), MustAt(t, got, i, j), tol, "(%d,%d)", i, j)
		}
	}
}

// randomSignal returns a samples×channels matrix of mixed sinusoids plus
// uniform noise, seeded for reproducibility.
func randomSignal(t *testing.T, samples, channels int, seed int64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := MustDense(t, samples, channels)
	data := m.Data()
	for i := 0; i < samples; i++ {
		for j := 0; j < channels; j++ {
			data[i*channels+j] = math.Sin(float64(i)*0.1*float64(j+1)) + 0.5*rng.Float64()
		}
	}

	return m
}
