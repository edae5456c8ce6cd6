// SPDX-License-Identifier: MIT

package asr

import "strconv"

// Mode selects the path every block takes through the filter.
type Mode int

const (
	// Calibrating collects the quiet baseline. Blocks pass through
	// unchanged (delayed by Latency) until the baseline is complete.
	Calibrating Mode = iota + 1

	// Calibrated cleans blocks against the learned thresholds.
	Calibrated

	// FixedThreshold cleans blocks against caller-supplied thresholds.
	FixedThreshold

	// Bypass copies input to output without delay or computation.
	Bypass
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Calibrating:
		return "calibrating"
	case Calibrated:
		return "calibrated"
	case FixedThreshold:
		return "fixed-threshold"
	case Bypass:
		return "bypass"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

func (m Mode) valid() bool { return m >= Calibrating && m <= Bypass }

// cleaning reports whether blocks in this mode go through PCA thresholding.
func (m Mode) cleaning() bool { return m == Calibrated || m == FixedThreshold }
