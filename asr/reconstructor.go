// SPDX-License-Identifier: MIT

package asr

import "github.com/katalvlaran/asrfilter/matrix"

// reconstructor blends overlapping cleaned blocks with a triangular
// cross-fade and releases every stream position exactly once, in order.
//
// Block j-th sample weight: w(j) = min(j+1, B−j). A position covered by
// blocks b₁..bₘ is Σ w·x / Σ w, which degrades to the block's own value
// when m == 1.
type reconstructor struct {
	channels   int
	blockSize  int
	blockSkip  int
	numOverlap int

	slots  []*matrix.Dense // channels × blockSize each
	starts []int64
	head   int // oldest live slot
	live   int

	next    int64 // first position not yet finalized
	weights []float64
	sample  []float64
}

func newReconstructor(channels, blockSize, blockSkip int) (*reconstructor, error) {
	n := (blockSize + blockSkip - 1) / blockSkip
	r := &reconstructor{
		channels:   channels,
		blockSize:  blockSize,
		blockSkip:  blockSkip,
		numOverlap: n,
		slots:      make([]*matrix.Dense, n),
		starts:     make([]int64, n),
		weights:    make([]float64, blockSize),
		sample:     make([]float64, channels),
	}
	var err error
	for i := range r.slots {
		if r.slots[i], err = matrix.NewDense(channels, blockSize); err != nil {
			return nil, err
		}
	}
	for j := range r.weights {
		r.weights[j] = float64(min(j+1, blockSize-j))
	}

	return r, nil
}

// add stores the block starting at start and finalizes every position
// below start+blockSkip, which no later block can reach. emit receives
// each finalized sample; the slice is reused between calls.
func (r *reconstructor) add(start int64, block *matrix.Dense, emit func([]float64)) {
	if r.live == 0 && r.next < start {
		r.next = start
	}
	slot := (r.head + r.live) % r.numOverlap
	if r.live == r.numOverlap {
		// Only reachable when blocks arrive with gaps; drop the oldest.
		r.head = (r.head + 1) % r.numOverlap
		r.live--
	}
	copy(r.slots[slot].Data(), block.Data())
	r.starts[slot] = start
	r.live++

	limit := start + int64(r.blockSkip)
	for ; r.next < limit; r.next++ {
		r.blend(r.next)
		emit(r.sample)
	}

	for r.live > 0 && r.starts[r.head]+int64(r.blockSize) <= r.next {
		r.head = (r.head + 1) % r.numOverlap
		r.live--
	}
}

// blend computes the weighted average at pos into r.sample.
func (r *reconstructor) blend(pos int64) {
	clear(r.sample)
	var wsum float64
	var i, slot, j, ch int
	var w float64
	for i = 0; i < r.live; i++ {
		slot = (r.head + i) % r.numOverlap
		j = int(pos - r.starts[slot])
		if j < 0 || j >= r.blockSize {
			continue
		}
		w = r.weights[j]
		wsum += w
		data := r.slots[slot].Data()
		for ch = 0; ch < r.channels; ch++ {
			r.sample[ch] += w * data[ch*r.blockSize+j]
		}
	}
	if wsum == 0 {
		return
	}
	for ch = 0; ch < r.channels; ch++ {
		r.sample[ch] /= wsum
	}
}

// pending returns the number of live blocks.
func (r *reconstructor) pending() int { return r.live }

func (r *reconstructor) reset() {
	r.head, r.live, r.next = 0, 0, 0
	for _, s := range r.slots {
		s.Zero()
	}
}

// delayLine is a FIFO of finalized samples, sample-major.
type delayLine struct {
	channels   int
	buf        []float64
	head, tail int64
}

func newDelayLine(channels, capacity int) *delayLine {
	return &delayLine{channels: channels, buf: make([]float64, channels*capacity)}
}

func (d *delayLine) capacity() int64 { return int64(len(d.buf) / d.channels) }

func (d *delayLine) len() int { return int(d.tail - d.head) }

// push appends one sample. The caller guarantees len() < capacity.
func (d *delayLine) push(sample []float64) {
	i := int(d.tail % d.capacity())
	copy(d.buf[i*d.channels:(i+1)*d.channels], sample)
	d.tail++
}

// pop returns the oldest sample; the slice aliases internal storage and is
// valid until the next push.
func (d *delayLine) pop() ([]float64, bool) {
	if d.head == d.tail {
		return nil, false
	}
	i := int(d.head % d.capacity())
	d.head++

	return d.buf[i*d.channels : (i+1)*d.channels], true
}

func (d *delayLine) reset() {
	d.head, d.tail = 0, 0
	clear(d.buf)
}
