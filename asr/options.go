// SPDX-License-Identifier: MIT

package asr

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/asrfilter/linalg"
	"github.com/katalvlaran/asrfilter/matrix"
)

// Defaults match the reference EEG configuration.
const (
	DefaultBlockSize           = 64
	DefaultBlockSkip           = 1
	DefaultThreshold           = 12000.0
	DefaultThresholdMultiplier = 1.0
	DefaultCalibrationTime     = 60.0  // seconds
	DefaultSampleRate          = 128.0 // Hz, used to convert CalibrationTime to samples
	DefaultEigenRefresh        = 1

	// MinCalibrationBlocks is the smallest baseline, in non-overlapping
	// blocks, from which thresholds are derived.
	MinCalibrationBlocks = 2
)

// Projection chooses the basis blocks are decomposed on in Calibrated mode.
type Projection int

const (
	// ProjectCalibration projects every block onto the calibration
	// eigenvectors; component k is compared with threshold k.
	ProjectCalibration Projection = iota

	// ProjectBlock decomposes every block on its own covariance; the k-th
	// largest block component is compared with threshold k.
	// FixedThreshold mode always uses this variant.
	ProjectBlock
)

// String implements fmt.Stringer.
func (p Projection) String() string {
	switch p {
	case ProjectCalibration:
		return "calibration"
	case ProjectBlock:
		return "block"
	default:
		return fmt.Sprintf("Projection(%d)", int(p))
	}
}

// Suppression chooses what happens to a component above its threshold.
type Suppression int

const (
	// SuppressZero removes the component entirely.
	SuppressZero Suppression = iota

	// SuppressClamp scales the component so that its variance equals
	// the threshold.
	SuppressClamp
)

// String implements fmt.Stringer.
func (s Suppression) String() string {
	switch s {
	case SuppressZero:
		return "zero"
	case SuppressClamp:
		return "clamp"
	default:
		return fmt.Sprintf("Suppression(%d)", int(s))
	}
}

// Option configures a Filter via functional arguments. An invalid value
// is recorded and surfaced by New as ErrOptionViolation.
type Option func(*Options)

// Options holds every tunable of a Filter.
type Options struct {
	// BlockSize is the analysis window length in samples (≥ 2).
	BlockSize int

	// BlockSkip is the stride between windows, in [1, BlockSize].
	BlockSkip int

	// Threshold scales calibration eigenvalues into component thresholds.
	Threshold float64

	// ThresholdMultiplier is an extra factor on Threshold.
	ThresholdMultiplier float64

	// CalibrationTime is the baseline length in seconds.
	CalibrationTime float64

	// SampleRate converts CalibrationTime into samples.
	SampleRate float64

	// Backend provides Mul/Transpose/Covariance/EigenSym.
	Backend linalg.Backend

	// Projection selects the Calibrated-mode decomposition.
	Projection Projection

	// Suppression selects the treatment of offending components.
	Suppression Suppression

	// EigenRefresh recomputes the per-block eigenbasis every n blocks
	// under ProjectBlock and reuses it in between.
	EigenRefresh int

	// Logger receives calibration and degradation events.
	Logger *slog.Logger

	// OnCalibrated is called once each time a baseline completes.
	OnCalibrated func(Calibration)

	// internal error recorded during option parsing
	err error
}

// DefaultOptions returns the documented defaults: 64-sample blocks sliding
// by one sample, threshold 12000, a 60 s baseline at 128 Hz, the native
// backend, projection on the calibration basis, zeroing suppression and a
// logger that discards everything.
func DefaultOptions() Options {
	return Options{
		BlockSize:           DefaultBlockSize,
		BlockSkip:           DefaultBlockSkip,
		Threshold:           DefaultThreshold,
		ThresholdMultiplier: DefaultThresholdMultiplier,
		CalibrationTime:     DefaultCalibrationTime,
		SampleRate:          DefaultSampleRate,
		Backend:             linalg.Native(),
		Projection:          ProjectCalibration,
		Suppression:         SuppressZero,
		EigenRefresh:        DefaultEigenRefresh,
		Logger:              slog.New(slog.DiscardHandler),
		OnCalibrated:        func(Calibration) {},
	}
}

func (o *Options) violate(format string, args ...any) {
	if o.err == nil {
		o.err = fmt.Errorf("%w: "+format, append([]any{ErrOptionViolation}, args...)...)
	}
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// WithBlockSize sets the analysis window length; n must be ≥ 2 so that
// per-block variances are defined.
func WithBlockSize(n int) Option {
	return func(o *Options) {
		if n < 2 {
			o.violate("BlockSize must be >= 2 (%d)", n)
			return
		}
		o.BlockSize = n
	}
}

// WithBlockSkip sets the stride between windows (≥ 1, ≤ BlockSize; the upper
// bound is checked by New once all options are applied).
func WithBlockSkip(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.violate("BlockSkip must be >= 1 (%d)", n)
			return
		}
		o.BlockSkip = n
	}
}

// WithThreshold sets the eigenvalue multiplier used to derive thresholds.
func WithThreshold(v float64) Option {
	return func(o *Options) {
		if !finitePositive(v) {
			o.violate("Threshold must be finite and > 0 (%g)", v)
			return
		}
		o.Threshold = v
	}
}

// WithThresholdMultiplier sets an extra scale applied on top of Threshold.
func WithThresholdMultiplier(v float64) Option {
	return func(o *Options) {
		if !finitePositive(v) {
			o.violate("ThresholdMultiplier must be finite and > 0 (%g)", v)
			return
		}
		o.ThresholdMultiplier = v
	}
}

// WithCalibrationTime sets the baseline length in seconds.
func WithCalibrationTime(seconds float64) Option {
	return func(o *Options) {
		if !finitePositive(seconds) {
			o.violate("CalibrationTime must be finite and > 0 (%g)", seconds)
			return
		}
		o.CalibrationTime = seconds
	}
}

// WithSampleRate sets the stream rate in Hz.
func WithSampleRate(hz float64) Option {
	return func(o *Options) {
		if !finitePositive(hz) {
			o.violate("SampleRate must be finite and > 0 (%g)", hz)
			return
		}
		o.SampleRate = hz
	}
}

// WithBackend injects the linear-algebra capability. nil keeps the default.
func WithBackend(b linalg.Backend) Option {
	return func(o *Options) {
		if b != nil {
			o.Backend = b
		}
	}
}

// WithProjection selects the Calibrated-mode decomposition variant.
func WithProjection(p Projection) Option {
	return func(o *Options) {
		if p != ProjectCalibration && p != ProjectBlock {
			o.violate("unknown %v", p)
			return
		}
		o.Projection = p
	}
}

// WithSuppression selects how offending components are attenuated.
func WithSuppression(s Suppression) Option {
	return func(o *Options) {
		if s != SuppressZero && s != SuppressClamp {
			o.violate("unknown %v", s)
			return
		}
		o.Suppression = s
	}
}

// WithEigenRefresh recomputes the per-block eigenbasis every n blocks.
func WithEigenRefresh(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.violate("EigenRefresh must be >= 1 (%d)", n)
			return
		}
		o.EigenRefresh = n
	}
}

// WithLogger sets the structured logger. nil keeps the discarding default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithOnCalibrated registers a hook run when a baseline completes. The
// Calibration passed in is a private copy.
func WithOnCalibrated(fn func(Calibration)) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnCalibrated = fn
		}
	}
}

// calibrationBlocks converts CalibrationTime into whole non-overlapping
// blocks, never fewer than MinCalibrationBlocks. The count is computed in
// float64 so a baseline too large to store is reported instead of wrapping.
func (o *Options) calibrationBlocks(channels int) (int, error) {
	samples := math.Ceil(o.CalibrationTime * o.SampleRate)
	blocks := math.Ceil(samples / float64(o.BlockSize))
	if blocks*float64(o.BlockSize)*float64(channels) > matrix.MaxElements {
		return 0, fmt.Errorf("%w: baseline of %g s at %g Hz does not fit %d values",
			ErrInvalidConfig, o.CalibrationTime, o.SampleRate, matrix.MaxElements)
	}

	return max(int(blocks), MinCalibrationBlocks), nil
}
