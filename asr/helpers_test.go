// SPDX-License-Identifier: MIT

package asr_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/asrfilter/asr"
	"github.com/katalvlaran/asrfilter/matrix"
)

// hide masks *matrix.Dense so the filter takes its At/Set path.
type hide struct{ matrix.Matrix }

func dense(t *testing.T, rows, cols int, fn func(ch, s int) float64) *matrix.Dense {
	t.Helper()
	data := make([]float64, rows*cols)
	if fn != nil {
		for ch := 0; ch < rows; ch++ {
			for s := 0; s < cols; s++ {
				data[ch*cols+s] = fn(ch, s)
			}
		}
	}
	m, err := matrix.NewDenseFrom(rows, cols, data)
	require.NoError(t, err)

	return m
}

func noise(rng *rand.Rand, sd float64) func(int, int) float64 {
	return func(int, int) float64 { return sd * rng.NormFloat64() }
}

// feed pushes in through f in chunks of at most chunk samples and returns
// the concatenated output.
func feed(t *testing.T, f *asr.Filter, in *matrix.Dense, chunk int) *matrix.Dense {
	t.Helper()
	rows, cols := in.Rows(), in.Cols()
	out := dense(t, rows, cols, nil)
	for off := 0; off < cols; off += chunk {
		n := min(chunk, cols-off)
		part := dense(t, rows, n, func(ch, s int) float64 { return in.Data()[ch*cols+off+s] })
		res := dense(t, rows, n, nil)
		require.NoError(t, f.Process(part, res))
		for ch := 0; ch < rows; ch++ {
			copy(out.Data()[ch*cols+off:ch*cols+off+n], res.Data()[ch*n:(ch+1)*n])
		}
	}

	return out
}

// requireDelayed asserts out[t] == in[t-lag] (zero before lag) within tol.
func requireDelayed(t *testing.T, in, out *matrix.Dense, lag int, tol float64) {
	t.Helper()
	rows, cols := in.Rows(), in.Cols()
	for ch := 0; ch < rows; ch++ {
		for s := 0; s < cols; s++ {
			want := 0.0
			if s >= lag {
				want = in.Data()[ch*cols+s-lag]
			}
			require.InDelta(t, want, out.Data()[ch*cols+s], tol, "channel %d sample %d", ch, s)
		}
	}
}

func maxAbsRow(m *matrix.Dense, ch, from, to int) float64 {
	row, _ := m.RawRow(ch)
	var best float64
	for _, v := range row[from:to] {
		best = math.Max(best, math.Abs(v))
	}

	return best
}
