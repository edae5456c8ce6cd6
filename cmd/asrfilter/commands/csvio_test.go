// SPDX-License-Identifier: MIT

package commands

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/asrfilter/matrix"
)

func TestSampleReader_HeaderAndChunks(t *testing.T) {
	t.Parallel()

	in := "fp1, fp2\n1,10\n2,20\n3,30\n4,40\n5,50\n"
	sr, err := newSampleReader(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"fp1", "fp2"}, sr.Header())
	require.Equal(t, 2, sr.Columns())

	var sizes []int
	var ch0 []float64
	for {
		chunk, err := sr.Next(2)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, 2, chunk.Rows())
		sizes = append(sizes, chunk.Cols())
		row, err := chunk.RawRow(0)
		require.NoError(t, err)
		ch0 = append(ch0, row...)
	}
	require.Equal(t, []int{2, 2, 1}, sizes)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, ch0)
}

func TestSampleReader_NoHeader(t *testing.T) {
	t.Parallel()

	sr, err := newSampleReader(strings.NewReader("# comment\n0.5,-1,2e3\n1.5,-2,3e3\n"))
	require.NoError(t, err)
	require.Nil(t, sr.Header())
	require.Equal(t, 3, sr.Columns())

	chunk, err := sr.Next(10)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 1.5, -1, -2, 2000, 3000}, chunk.Data())

	_, err = sr.Next(10)
	require.ErrorIs(t, err, io.EOF)
}

func TestSampleReader_Errors(t *testing.T) {
	t.Parallel()

	_, err := newSampleReader(strings.NewReader(""))
	require.ErrorContains(t, err, "empty input")

	sr, err := newSampleReader(strings.NewReader("a,b\n1,2\n3,x\n"))
	require.NoError(t, err)
	_, err = sr.Next(10)
	require.ErrorContains(t, err, "line 3")

	sr, err = newSampleReader(strings.NewReader("1,2\n3\n"))
	require.NoError(t, err)
	_, err = sr.Next(10)
	require.ErrorIs(t, err, csv.ErrFieldCount)
}

func TestSampleWriter_SkipsLeadingColumns(t *testing.T) {
	t.Parallel()

	m, err := matrix.NewDenseFrom(2, 3, []float64{1, 2, 3, 0.25, -0.5, 1e-9})
	require.NoError(t, err)

	var buf bytes.Buffer
	sw, err := newSampleWriter(&buf, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, sw.Write(m, 1))
	require.NoError(t, sw.Flush())
	require.Equal(t, "a,b\n2,-0.5\n3,1e-09\n", buf.String())
}
