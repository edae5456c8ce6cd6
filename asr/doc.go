// Package asr implements Artifact Subspace Reconstruction for multichannel
// biosignal streams (EEG and similar).
//
// A Filter takes successive channels × N sample matrices and writes a cleaned
// matrix of the same shape. Internally the stream is cut into overlapping
// blocks (see package blockbuf); each block is decomposed with PCA, every
// component whose variance exceeds its threshold is zeroed (or clamped), and
// the cleaned blocks are stitched back together with a triangular overlap-add
// cross-fade.
//
// Thresholds are learned from a quiet baseline recorded at the start of the
// stream (Calibrating mode):
//
//	threshold_k = Threshold × ThresholdMultiplier × λ_k
//
// where λ_k is the k-th largest eigenvalue of the baseline covariance. They
// may also be supplied directly with SetFixedThresholds.
//
// Modes:
//
//	Calibrating ──baseline complete──▶ Calibrated
//	     ▲  SetFixedThresholds ──▶ FixedThreshold
//	     │
//	TurnOn ◀── Bypass ◀── TurnOff (from any mode)
//
// Output timing: outside Bypass, output column t carries the cleaned input
// sample t − Latency() (Latency = BlockSize − 1); the first Latency samples
// after a (re)start are zero. During Calibrating the input passes through
// unchanged on the same delayed path. Bypass copies input to output with
// no delay.
//
// Only precondition violations (shapes, options, illegal transitions) are
// returned as errors. A flat channel gives a zero eigenvalue and hence a
// zero threshold, so that component is always suppressed; this, and
// eigensolver failures, are reported through the injected slog.Logger.
//
// The linear algebra is an injected capability (linalg.Backend), either
// the dependency-free native Jacobi solver or gonum.
//
// A Filter is single-threaded: it starts no goroutines and callers must
// serialise access.
package asr
