// SPDX-License-Identifier: MIT

package asr

import (
	"fmt"
	"math"

	"github.com/katalvlaran/asrfilter/linalg"
	"github.com/katalvlaran/asrfilter/matrix"
)

// cleaner is the per-block PCA threshold stage.
type cleaner struct {
	backend     linalg.Backend
	projection  Projection
	suppression Suppression
	refresh     int

	// cached block eigenbasis for ProjectBlock with refresh > 1
	blockBasis *matrix.Dense
	sinceBasis int
}

func newCleaner(o Options) *cleaner {
	return &cleaner{
		backend:     o.Backend,
		projection:  o.Projection,
		suppression: o.Suppression,
		refresh:     o.EigenRefresh,
	}
}

// clean writes the cleaned version of block (channels × B) into out.
// basis is the calibration eigenbasis, or nil to force ProjectBlock.
// It returns the number of suppressed components.
//
// Implementation:
//   - Stage 1: observations X = blockᵀ (B × C), centered per channel.
//   - Stage 2: pick V (calibration basis, or the block's own eigenbasis).
//   - Stage 3: Y = Xc·V; component k has variance Σ_t Y[t,k]² / (B−1) and
//     is zeroed or clamped when that variance > thresholds[k].
//   - Stage 4: out = (Y·Vᵀ + mean)ᵀ.
func (c *cleaner) clean(block *matrix.Dense, basis *matrix.Dense, thresholds []float64, out *matrix.Dense) (int, error) {
	channels, size := block.Rows(), block.Cols()

	x, err := c.backend.Transpose(block)
	if err != nil {
		return 0, fmt.Errorf("asr: clean: %w", err)
	}
	xc, means, err := matrix.CenterColumns(x)
	if err != nil {
		return 0, fmt.Errorf("asr: clean: %w", err)
	}

	v := basis
	if v == nil || c.projection == ProjectBlock {
		if v, err = c.blockEigenbasis(xc); err != nil {
			return 0, err
		}
	}

	y, err := c.backend.Mul(xc, v)
	if err != nil {
		return 0, fmt.Errorf("asr: clean: project: %w", err)
	}

	yd := y.Data()
	denom := float64(size - 1)
	suppressed := 0
	var t, k int
	var energy, gain float64
	for k = 0; k < channels; k++ {
		energy = 0
		for t = 0; t < size; t++ {
			energy += yd[t*channels+k] * yd[t*channels+k]
		}
		energy /= denom
		if energy <= thresholds[k] {
			continue
		}
		suppressed++
		gain = 0
		if c.suppression == SuppressClamp && thresholds[k] > 0 {
			gain = math.Sqrt(thresholds[k] / energy)
		}
		for t = 0; t < size; t++ {
			yd[t*channels+k] *= gain
		}
	}

	if suppressed == 0 {
		// V is orthonormal, so the round trip is the identity.
		copy(out.Data(), block.Data())
		return 0, nil
	}

	vt, err := c.backend.Transpose(v)
	if err != nil {
		return 0, fmt.Errorf("asr: clean: %w", err)
	}
	xhat, err := c.backend.Mul(y, vt)
	if err != nil {
		return 0, fmt.Errorf("asr: clean: reconstruct: %w", err)
	}
	xd, od := xhat.Data(), out.Data()
	var ch int
	for ch = 0; ch < channels; ch++ {
		for t = 0; t < size; t++ {
			od[ch*size+t] = xd[t*channels+ch] + means[ch]
		}
	}

	return suppressed, nil
}

// blockEigenbasis returns the eigenvectors of the centered block's
// covariance, recomputed every refresh blocks.
func (c *cleaner) blockEigenbasis(xc *matrix.Dense) (*matrix.Dense, error) {
	if c.blockBasis != nil && c.sinceBasis < c.refresh {
		c.sinceBasis++
		return c.blockBasis, nil
	}
	cov, _, err := c.backend.Covariance(xc)
	if err != nil {
		return nil, fmt.Errorf("asr: clean: block covariance: %w", err)
	}
	_, vectors, err := c.backend.EigenSym(cov)
	if err != nil {
		return nil, fmt.Errorf("asr: clean: block eigendecomposition: %w", err)
	}
	c.blockBasis = vectors
	c.sinceBasis = 1

	return vectors, nil
}

// reset drops the cached block basis.
func (c *cleaner) reset() {
	c.blockBasis = nil
	c.sinceBasis = 0
}
