// Package asrfilter is a real-time Artifact Subspace Reconstruction filter
// for multichannel biosignals such as EEG.
//
// 🚀 What is asrfilter?
//
//	A streaming, sample-in/sample-out cleaner that:
//		• Learns what "quiet" looks like from a calibration baseline
//		• Projects each sliding block onto principal components
//		• Suppresses components whose variance exceeds the learned threshold
//		• Blends overlapping cleaned blocks back into a continuous stream
//
// Packages:
//
//	asr/       - the Filter: modes, calibration, cleaning, reconstruction
//	blockbuf/  - sliding window that emits fixed-size overlapping blocks
//	linalg/    - pluggable covariance + eigensolver backends (native, gonum)
//	matrix/    - dense row-major matrices and a Jacobi eigensolver
//	config/    - YAML configuration mapped onto asr options
//	logging/   - slog setup with rotating file output
//	cmd/asrfilter - CLI: stream CSV recordings, produce fixed thresholds
//
// Quick example:
//
//	f, _ := asr.New(8, asr.WithSampleRate(250), asr.WithBlockSkip(16))
//	for chunk := range acquisition {
//		_ = f.Process(chunk, out) // out lags chunk by f.Latency() samples
//	}
//
//	go install github.com/katalvlaran/asrfilter/cmd/asrfilter@latest
package asrfilter
