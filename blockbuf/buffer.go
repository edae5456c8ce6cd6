// SPDX-License-Identifier: MIT

package blockbuf

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/asrfilter/matrix"
)

var (
	// ErrBadGeometry is returned by New when channels or blockSize is not
	// positive, or blockSkip is outside [1, blockSize].
	ErrBadGeometry = errors.New("blockbuf: invalid block geometry")

	// ErrSampleLength is returned by Push when a sample does not carry
	// exactly one value per channel.
	ErrSampleLength = errors.New("blockbuf: sample length does not match channel count")
)

// Block is one analysis window.
type Block struct {
	// Start is the stream position of column 0.
	Start int64
	// Data is channels × blockSize. It is owned by the Buffer and
	// overwritten on the next emission; copy it to retain it.
	Data *matrix.Dense
}

// EmitFunc receives each completed block. A non-nil error stops Push.
type EmitFunc func(Block) error

// Buffer is a streaming block assembler. Not safe for concurrent use.
type Buffer struct {
	channels  int
	blockSize int
	blockSkip int

	store []float64 // blockSize slots × channels, slot = position % blockSize
	total int64     // samples pushed since the last Reset
	start int64     // stream position of the next window

	block *matrix.Dense
}

// New allocates a Buffer and its single reusable block matrix.
func New(channels, blockSize, blockSkip int) (*Buffer, error) {
	if channels <= 0 || blockSize <= 0 || blockSkip < 1 || blockSkip > blockSize {
		return nil, fmt.Errorf("%w: channels=%d blockSize=%d blockSkip=%d",
			ErrBadGeometry, channels, blockSize, blockSkip)
	}
	block, err := matrix.NewDense(channels, blockSize)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		channels:  channels,
		blockSize: blockSize,
		blockSkip: blockSkip,
		store:     make([]float64, channels*blockSize),
		block:     block,
	}, nil
}

// Channels returns the number of values per sample.
func (b *Buffer) Channels() int { return b.channels }

// BlockSize returns the window length in samples.
func (b *Buffer) BlockSize() int { return b.blockSize }

// BlockSkip returns the stride between window starts.
func (b *Buffer) BlockSkip() int { return b.blockSkip }

// Total returns the number of samples pushed since construction or Reset.
func (b *Buffer) Total() int64 { return b.total }

// Pending returns how many buffered samples belong to the next window.
// It is always < BlockSize.
func (b *Buffer) Pending() int { return int(b.total - b.start) }

// Push appends one sample (one value per channel) and, if that completes a
// window, calls emit with it before returning.
func (b *Buffer) Push(sample []float64, emit EmitFunc) error {
	if len(sample) != b.channels {
		return fmt.Errorf("%w: got %d, want %d", ErrSampleLength, len(sample), b.channels)
	}
	slot := int(b.total % int64(b.blockSize))
	copy(b.store[slot*b.channels:(slot+1)*b.channels], sample)
	b.total++

	if b.total-b.start < int64(b.blockSize) {
		return nil
	}

	b.fill()
	blk := Block{Start: b.start, Data: b.block}
	b.start += int64(b.blockSkip)
	if emit == nil {
		return nil
	}
	if err := emit(blk); err != nil {
		return fmt.Errorf("blockbuf: emit block at %d: %w", blk.Start, err)
	}

	return nil
}

// fill transposes the window [start, start+blockSize) from the sample-major
// store into the channel-major block matrix.
func (b *Buffer) fill() {
	dst := b.block.Data()
	var j, ch, slot int
	for j = 0; j < b.blockSize; j++ {
		slot = int((b.start + int64(j)) % int64(b.blockSize))
		for ch = 0; ch < b.channels; ch++ {
			dst[ch*b.blockSize+j] = b.store[slot*b.channels+ch]
		}
	}
}

// Reset forgets every buffered sample and restarts stream positions at 0.
func (b *Buffer) Reset() {
	clear(b.store)
	b.block.Zero()
	b.total = 0
	b.start = 0
}
