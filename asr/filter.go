// SPDX-License-Identifier: MIT

package asr

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/asrfilter/blockbuf"
	"github.com/katalvlaran/asrfilter/matrix"
)

// Stats are cumulative counters since New. Reset does not clear them.
type Stats struct {
	SamplesIn            int64
	SamplesOut           int64
	Blocks               int64 // blocks assembled while not in Bypass
	BlocksCleaned        int64 // blocks that went through thresholding
	BlocksDegraded       int64 // blocks passed through after a numeric failure
	ComponentsSuppressed int64
	Calibrations         int64
}

// Filter is a streaming ASR filter for a fixed number of channels.
//
// A Filter is not safe for concurrent use; it starts no goroutines.
type Filter struct {
	channels int
	opts     Options
	log      *slog.Logger

	mode       Mode
	lastActive Mode // restored by TurnOn

	buf   *blockbuf.Buffer
	cal   *calibrator
	clean *cleaner
	recon *reconstructor
	delay *delayLine

	calibration *Calibration
	fixed       []float64
	notify      *Calibration // OnCalibrated payload, delivered when Process returns

	scratch *matrix.Dense // cleaned block
	sample  []float64
	stats   Stats
}

// New builds a Filter in Calibrating mode.
//
// Errors: ErrInvalidConfig for channels ≤ 0, BlockSkip > BlockSize or a
// calibration baseline too large to store;
// ErrOptionViolation for any invalid Option.
func New(channels int, opts ...Option) (*Filter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channels must be > 0 (%d)", ErrInvalidConfig, channels)
	}
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.BlockSkip > o.BlockSize {
		return nil, fmt.Errorf("%w: BlockSkip %d exceeds BlockSize %d", ErrInvalidConfig, o.BlockSkip, o.BlockSize)
	}

	buf, err := blockbuf.New(channels, o.BlockSize, o.BlockSkip)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	target, err := o.calibrationBlocks(channels)
	if err != nil {
		return nil, err
	}
	cal, err := newCalibrator(channels, o.BlockSize, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	recon, err := newReconstructor(channels, o.BlockSize, o.BlockSkip)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	scratch, err := matrix.NewDense(channels, o.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	f := &Filter{
		channels:   channels,
		opts:       o,
		log:        o.Logger.With("component", "asr"),
		mode:       Calibrating,
		lastActive: Calibrating,
		buf:        buf,
		cal:        cal,
		clean:      newCleaner(o),
		recon:      recon,
		delay:      newDelayLine(channels, o.BlockSize),
		scratch:    scratch,
		sample:     make([]float64, channels),
	}
	f.log.Debug("filter created",
		"channels", channels,
		"block_size", o.BlockSize,
		"block_skip", o.BlockSkip,
		"calibration_blocks", cal.target,
		"backend", o.Backend.Name())

	return f, nil
}

// Channels returns the channel count fixed at construction.
func (f *Filter) Channels() int { return f.channels }

// Options returns the effective configuration.
func (f *Filter) Options() Options { return f.opts }

// Latency is the fixed delay, in samples, between an input sample and its
// cleaned counterpart in every mode except Bypass. The first Latency output
// samples after New, TurnOn or Reset are zero.
func (f *Filter) Latency() int { return f.opts.BlockSize - 1 }

// Stats returns a copy of the cumulative counters.
func (f *Filter) Stats() Stats { return f.stats }

// Process cleans in (channels × N) into out, which must have the same shape.
// N may be zero. Shape violations are reported before anything is written.
//
// The OnCalibrated hook for a baseline completed during the call runs after
// every column of out has been written, so the hook may change modes or
// Reset the filter.
func (f *Filter) Process(in, out matrix.Matrix) error {
	if err := f.checkShapes(in, out); err != nil {
		return err
	}
	n := in.Cols()
	if n == 0 {
		return nil
	}
	f.stats.SamplesIn += int64(n)

	if f.mode == Bypass {
		if err := copyMatrix(out, in); err != nil {
			return fmt.Errorf("asr: bypass: %w", err)
		}
		f.stats.SamplesOut += int64(n)
		return nil
	}

	defer f.notifyCalibrated()
	for t := 0; t < n; t++ {
		if err := readColumn(in, t, f.sample); err != nil {
			return fmt.Errorf("asr: read sample %d: %w", t, err)
		}
		if err := f.buf.Push(f.sample, f.onBlock); err != nil {
			return err
		}
		if err := f.emit(out, t); err != nil {
			return err
		}
	}
	f.stats.SamplesOut += int64(n)

	return nil
}

func (f *Filter) checkShapes(in, out matrix.Matrix) error {
	if err := matrix.ValidateNotNil(in); err != nil {
		return fmt.Errorf("%w: in: %w", ErrShapeMismatch, err)
	}
	if err := matrix.ValidateNotNil(out); err != nil {
		return fmt.Errorf("%w: out: %w", ErrShapeMismatch, err)
	}
	if in.Rows() != f.channels {
		return fmt.Errorf("%w: in has %d rows, filter has %d channels", ErrShapeMismatch, in.Rows(), f.channels)
	}
	if out.Rows() != in.Rows() || out.Cols() != in.Cols() {
		return fmt.Errorf("%w: in %dx%d, out %dx%d", ErrShapeMismatch, in.Rows(), in.Cols(), out.Rows(), out.Cols())
	}

	return nil
}

// emit writes output column t: the finalized sample Latency positions back,
// or zero during the pre-roll.
func (f *Filter) emit(out matrix.Matrix, t int) error {
	pos := f.buf.Total() - 1
	var sample []float64
	if pos >= int64(f.Latency()) {
		var ok bool
		if sample, ok = f.delay.pop(); !ok {
			return fmt.Errorf("asr: no finalized sample for position %d", pos-int64(f.Latency()))
		}
	}

	return writeColumn(out, t, sample, f.channels)
}

// onBlock routes one assembled block according to the current mode.
func (f *Filter) onBlock(blk blockbuf.Block) error {
	f.stats.Blocks++
	switch {
	case f.mode == Calibrating:
		complete := f.cal.add(blk)
		f.recon.add(blk.Start, blk.Data, f.delay.push)
		if complete {
			f.completeCalibration()
		}
	case f.mode.cleaning():
		f.recon.add(blk.Start, f.cleanBlock(blk), f.delay.push)
	}

	return nil
}

// cleanBlock thresholds blk into the scratch block. A numeric failure
// passes the raw block through.
func (f *Filter) cleanBlock(blk blockbuf.Block) *matrix.Dense {
	var (
		basis      *matrix.Dense
		thresholds []float64
	)
	if f.mode == Calibrated {
		basis, thresholds = f.calibration.Basis, f.calibration.Thresholds
	} else {
		thresholds = f.fixed
	}

	n, err := f.clean.clean(blk.Data, basis, thresholds, f.scratch)
	if err != nil {
		f.stats.BlocksDegraded++
		f.log.Warn("block passed through uncleaned", "start", blk.Start, "error", err)
		return blk.Data
	}
	f.stats.BlocksCleaned++
	if n > 0 {
		f.stats.ComponentsSuppressed += int64(n)
		f.log.Debug("components suppressed", "start", blk.Start, "count", n, "mode", f.mode.String())
	}

	return f.scratch
}

func (f *Filter) completeCalibration() {
	c, err := f.cal.finish(f.opts.Backend, f.opts.Threshold*f.opts.ThresholdMultiplier)
	if err != nil {
		f.log.Warn("calibration failed, collecting a new baseline", "error", err)
		f.cal.reset()
		return
	}
	f.cal.reset()
	f.calibration = &c
	f.mode = Calibrated
	f.lastActive = Calibrated
	f.stats.Calibrations++

	f.log.Info("calibration complete",
		"samples", c.Samples,
		"backend", c.Backend,
		"max_eigenvalue", c.Eigenvalues[0],
		"min_eigenvalue", c.Eigenvalues[len(c.Eigenvalues)-1])
	if zero := c.ZeroComponents(); len(zero) > 0 {
		f.log.Warn("degenerate baseline: components with zero variance are always suppressed",
			"components", zero)
	}
	snap := c.clone()
	f.notify = &snap
}

func (f *Filter) notifyCalibrated() {
	if f.notify == nil {
		return
	}
	c := *f.notify
	f.notify = nil
	f.opts.OnCalibrated(c)
}

// resetStream forgets buffered samples, pending blocks and the delay line.
func (f *Filter) resetStream() {
	f.buf.Reset()
	f.recon.reset()
	f.delay.reset()
	f.clean.reset()
}

// Reset restarts the stream: buffered and pending samples are dropped and
// a partial baseline is discarded. Mode, calibration and fixed thresholds
// are kept.
func (f *Filter) Reset() {
	f.resetStream()
	f.cal.reset()
}

// Mode returns the current mode.
func (f *Filter) Mode() Mode { return f.mode }

// IsOn reports whether the filter is in any mode other than Bypass.
func (f *Filter) IsOn() bool { return f.mode != Bypass }

// TurnOn leaves Bypass. The filter resumes FixedThreshold if that was the
// last active mode, otherwise Calibrated when a basis exists, otherwise
// Calibrating. No-op when already on.
//
// The stream restarts, so the next Latency output samples are zero pre-roll.
func (f *Filter) TurnOn() {
	if f.mode != Bypass {
		return
	}
	next := Calibrating
	switch {
	case f.lastActive == FixedThreshold && f.fixed != nil:
		next = FixedThreshold
	case f.calibration != nil:
		next = Calibrated
	}
	f.enter(next)
}

// TurnOff enters Bypass, dropping the stream state and a partial baseline.
// Up to Latency finalized samples still in the delay line are discarded,
// not emitted: the output skips them at the switch, and TurnOn later inserts
// Latency zeros.
func (f *Filter) TurnOff() {
	if f.mode == Bypass {
		return
	}
	f.lastActive = f.mode
	f.resetStream()
	f.cal.reset()
	f.setMode(Bypass)
}

// SetMode performs a checked transition.
//
// Errors: ErrIllegalTransition for an unknown mode, ErrNotCalibrated for
// Calibrated without a basis, ErrNoThresholds for FixedThreshold without
// thresholds. Calibrating is equivalent to Recalibrate.
func (f *Filter) SetMode(m Mode) error {
	if !m.valid() {
		return fmt.Errorf("%w: %v → %v", ErrIllegalTransition, f.mode, m)
	}
	if m == f.mode {
		return nil
	}
	switch m {
	case Bypass:
		f.TurnOff()
	case Calibrating:
		f.Recalibrate()
	case Calibrated:
		if f.calibration == nil {
			return fmt.Errorf("%w: %v → %v", ErrNotCalibrated, f.mode, m)
		}
		f.enter(Calibrated)
	case FixedThreshold:
		if f.fixed == nil {
			return fmt.Errorf("%w: %v → %v", ErrNoThresholds, f.mode, m)
		}
		f.enter(FixedThreshold)
	}

	return nil
}

// SetFixedThresholds installs one threshold per component and switches to
// FixedThreshold. Values must be finite and ≥ 0.
func (f *Filter) SetFixedThresholds(thresholds []float64) error {
	if len(thresholds) != f.channels {
		return fmt.Errorf("%w: got %d values, want %d", ErrBadThresholds, len(thresholds), f.channels)
	}
	for k, v := range thresholds {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: thresholds[%d] = %g", ErrBadThresholds, k, v)
		}
	}
	f.fixed = append([]float64(nil), thresholds...)
	f.enter(FixedThreshold)

	return nil
}

// Recalibrate drops the learned basis and starts a new baseline on the
// current stream.
func (f *Filter) Recalibrate() {
	f.calibration = nil
	f.cal.reset()
	f.enter(Calibrating)
}

// enter switches to an active mode. Leaving Calibrating discards the
// partial baseline.
func (f *Filter) enter(m Mode) {
	if f.mode == Calibrating && m != Calibrating {
		f.cal.reset()
	}
	f.lastActive = m
	f.setMode(m)
}

func (f *Filter) setMode(m Mode) {
	if f.mode == m {
		return
	}
	f.log.Info("mode changed", "from", f.mode.String(), "to", m.String())
	f.mode = m
}

// Calibration returns a copy of the learned calibration, if any.
func (f *Filter) Calibration() (Calibration, bool) {
	if f.calibration == nil {
		return Calibration{}, false
	}

	return f.calibration.clone(), true
}

// CalibrationProgress returns the accepted and required baseline blocks.
func (f *Filter) CalibrationProgress() (accepted, required int) {
	return f.cal.progress()
}

// Thresholds returns a copy of the thresholds used in the current mode,
// or nil in Calibrating and Bypass.
func (f *Filter) Thresholds() []float64 {
	switch f.mode {
	case Calibrated:
		return append([]float64(nil), f.calibration.Thresholds...)
	case FixedThreshold:
		return append([]float64(nil), f.fixed...)
	default:
		return nil
	}
}

// readColumn copies column t of m into dst.
func readColumn(m matrix.Matrix, t int, dst []float64) error {
	if d, ok := m.(*matrix.Dense); ok {
		data, cols := d.Data(), d.Cols()
		for ch := range dst {
			dst[ch] = data[ch*cols+t]
		}
		return nil
	}
	var err error
	for ch := range dst {
		if dst[ch], err = m.At(ch, t); err != nil {
			return err
		}
	}

	return nil
}

// writeColumn stores sample (or zeros when sample is nil) in column t.
func writeColumn(m matrix.Matrix, t int, sample []float64, channels int) error {
	if d, ok := m.(*matrix.Dense); ok {
		data, cols := d.Data(), d.Cols()
		for ch := 0; ch < channels; ch++ {
			v := 0.0
			if sample != nil {
				v = sample[ch]
			}
			data[ch*cols+t] = v
		}
		return nil
	}
	for ch := 0; ch < channels; ch++ {
		v := 0.0
		if sample != nil {
			v = sample[ch]
		}
		if err := m.Set(ch, t, v); err != nil {
			return fmt.Errorf("asr: write sample %d: %w", t, err)
		}
	}

	return nil
}

// copyMatrix copies src into dst of the same shape.
func copyMatrix(dst, src matrix.Matrix) error {
	if d, ok := dst.(*matrix.Dense); ok {
		return d.CopyFrom(src)
	}
	var v float64
	var err error
	for i := 0; i < src.Rows(); i++ {
		for j := 0; j < src.Cols(); j++ {
			if v, err = src.At(i, j); err != nil {
				return err
			}
			if err = dst.Set(i, j, v); err != nil {
				return err
			}
		}
	}

	return nil
}
