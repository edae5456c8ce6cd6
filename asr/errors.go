// SPDX-License-Identifier: MIT

package asr

import "errors"

// Sentinel errors. Only precondition violations are reported; numeric
// degradation (flat channels, eigensolver trouble) is logged and absorbed.
var (
	// ErrOptionViolation is returned by New when an Option carries an
	// invalid value (e.g. a non-positive block size).
	ErrOptionViolation = errors.New("asr: invalid option supplied")

	// ErrInvalidConfig is returned by New for an inconsistent combination
	// of otherwise valid parameters, or a non-positive channel count.
	ErrInvalidConfig = errors.New("asr: invalid configuration")

	// ErrShapeMismatch is returned by Process when in is not channels × N
	// or out does not have exactly the shape of in.
	ErrShapeMismatch = errors.New("asr: input/output shape mismatch")

	// ErrNotCalibrated is returned when Calibrated mode is requested
	// before a calibration basis has been learned.
	ErrNotCalibrated = errors.New("asr: no calibration basis learned")

	// ErrNoThresholds is returned when FixedThreshold mode is requested
	// before thresholds have been supplied.
	ErrNoThresholds = errors.New("asr: no fixed thresholds supplied")

	// ErrIllegalTransition is returned by SetMode for an unknown mode.
	ErrIllegalTransition = errors.New("asr: illegal mode transition")

	// ErrBadThresholds is returned by SetFixedThresholds when the vector
	// length differs from the channel count or a value is negative or
	// not finite.
	ErrBadThresholds = errors.New("asr: invalid threshold vector")
)
