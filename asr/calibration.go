// SPDX-License-Identifier: MIT

package asr

import (
	"fmt"

	"github.com/katalvlaran/asrfilter/blockbuf"
	"github.com/katalvlaran/asrfilter/linalg"
	"github.com/katalvlaran/asrfilter/matrix"
)

// Calibration is the outcome of a completed baseline.
type Calibration struct {
	// Mean is the baseline channel mean.
	Mean []float64

	// Eigenvalues of the baseline covariance, descending, clamped at 0.
	Eigenvalues []float64

	// Basis holds the matching unit eigenvectors as columns (channels × channels).
	Basis *matrix.Dense

	// Thresholds[k] = Threshold × ThresholdMultiplier × Eigenvalues[k].
	Thresholds []float64

	// Samples is the baseline length in samples.
	Samples int

	// Backend names the linear-algebra backend that produced it.
	Backend string
}

// clone deep-copies c so callers cannot mutate filter state.
func (c Calibration) clone() Calibration {
	out := c
	out.Mean = append([]float64(nil), c.Mean...)
	out.Eigenvalues = append([]float64(nil), c.Eigenvalues...)
	out.Thresholds = append([]float64(nil), c.Thresholds...)
	if c.Basis != nil {
		out.Basis = c.Basis.Clone().(*matrix.Dense)
	}

	return out
}

// ZeroComponents returns the indices whose eigenvalue is 0. Such components
// have a zero threshold and are suppressed whenever they carry any energy.
func (c Calibration) ZeroComponents() []int {
	var idx []int
	for k, v := range c.Eigenvalues {
		if v == 0 {
			idx = append(idx, k)
		}
	}

	return idx
}

// calibrator accumulates non-overlapping blocks into a preallocated
// observations × channels store.
type calibrator struct {
	channels  int
	blockSize int
	target    int // blocks

	store     *matrix.Dense // target*blockSize × channels
	accepted  int
	nextStart int64
}

func newCalibrator(channels, blockSize, target int) (*calibrator, error) {
	store, err := matrix.NewDense(target*blockSize, channels)
	if err != nil {
		return nil, err
	}

	return &calibrator{channels: channels, blockSize: blockSize, target: target, store: store}, nil
}

// add copies blk into the baseline when it does not overlap the previously
// accepted block. It reports whether the baseline is now complete.
func (c *calibrator) add(blk blockbuf.Block) bool {
	if c.done() || blk.Start < c.nextStart {
		return c.done()
	}
	src := blk.Data.Data()
	dst := c.store.Data()
	base := c.accepted * c.blockSize
	var j, ch int
	for j = 0; j < c.blockSize; j++ {
		for ch = 0; ch < c.channels; ch++ {
			dst[(base+j)*c.channels+ch] = src[ch*c.blockSize+j]
		}
	}
	c.accepted++
	c.nextStart = blk.Start + int64(c.blockSize)

	return c.done()
}

func (c *calibrator) done() bool { return c.accepted >= c.target }

// progress returns accepted and target block counts.
func (c *calibrator) progress() (int, int) { return c.accepted, c.target }

// finish derives a Calibration from the full baseline.
// Implementation:
//   - Stage 1: covariance of the baseline observations (columns = channels).
//   - Stage 2: symmetric eigendecomposition, descending.
//   - Stage 3: clamp negative round-off to 0 and scale into thresholds.
func (c *calibrator) finish(b linalg.Backend, scale float64) (Calibration, error) {
	cov, means, err := b.Covariance(c.store)
	if err != nil {
		return Calibration{}, fmt.Errorf("asr: calibration covariance: %w", err)
	}
	values, vectors, err := b.EigenSym(cov)
	if err != nil {
		return Calibration{}, fmt.Errorf("asr: calibration eigendecomposition: %w", err)
	}
	thresholds := make([]float64, len(values))
	for k, v := range values {
		if v < 0 {
			values[k] = 0
		}
		thresholds[k] = scale * values[k]
	}

	return Calibration{
		Mean:        means,
		Eigenvalues: values,
		Basis:       vectors,
		Thresholds:  thresholds,
		Samples:     c.accepted * c.blockSize,
		Backend:     b.Name(),
	}, nil
}

// reset discards a partial baseline.
func (c *calibrator) reset() {
	c.store.Zero()
	c.accepted = 0
	c.nextStart = 0
}
