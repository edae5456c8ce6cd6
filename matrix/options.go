// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for the eigen solver and the
// numeric policy of Dense.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - Safe by construction: WithX panics only on nonsensical values (programmer error).
//   - Options fields are unexported; public APIs consume ...Option.
package matrix

import "math"

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultEpsilon is the relative tolerance used by EigenSym: the solver
	// stops once every off-diagonal entry is below eps * max|a_ij|.
	DefaultEpsilon = 1e-12

	// DefaultMaxSweeps bounds the number of Jacobi sweeps. One sweep is
	// n(n-1)/2 rotations; symmetric matrices converge quadratically, so a
	// handful of sweeps suffices for any realistic channel count.
	DefaultMaxSweeps = 64

	// DefaultValidateNaNInf toggles strict finite-value validation on Set.
	DefaultValidateNaNInf = true

	// absTolFloor keeps the scaled tolerance strictly positive so that an
	// all-zero covariance (every channel flat) converges immediately.
	absTolFloor = 1e-300
)

const (
	panicEpsilonInvalid   = "matrix: WithEpsilon: eps must be finite and > 0"
	panicMaxSweepsInvalid = "matrix: WithMaxSweeps: sweeps must be > 0"
)

// Option mutates internal options.
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	eps            float64 // relative off-diagonal tolerance
	maxSweeps      int     // Jacobi sweep budget
	validateNaNInf bool    // reject NaN/Inf in Set of results
}

// WithEpsilon sets the relative convergence tolerance of EigenSym.
// Panics if eps is not finite or not strictly positive.
func WithEpsilon(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		panic(panicEpsilonInvalid)
	}

	return func(o *Options) { o.eps = eps }
}

// WithMaxSweeps sets the Jacobi sweep budget of EigenSym.
func WithMaxSweeps(sweeps int) Option {
	if sweeps <= 0 {
		panic(panicMaxSweepsInvalid)
	}

	return func(o *Options) { o.maxSweeps = sweeps }
}

// WithNoValidateNaNInf disables NaN/Inf validation on matrices produced by
// NewDenseWith. Use only for ingestion paths that sanitize later.
func WithNoValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = false }
}

// defaultOptions returns the documented defaults.
func defaultOptions() Options {
	return Options{
		eps:            DefaultEpsilon,
		maxSweeps:      DefaultMaxSweeps,
		validateNaNInf: DefaultValidateNaNInf,
	}
}

// gatherOptions applies opts on top of the defaults, ignoring nil entries.
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
