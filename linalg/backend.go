// SPDX-License-Identifier: MIT

package linalg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/asrfilter/matrix"
)

// Backend names accepted by Lookup.
const (
	NameNative = "native"
	NameGonum  = "gonum"
)

// ErrUnknownBackend is returned by Lookup for an unrecognized name.
var ErrUnknownBackend = errors.New("linalg: unknown backend")

// Backend is the dense linear-algebra capability used by calibration and
// per-block PCA. Implementations must not mutate their operands and must be
// safe to share between filters that are driven from a single goroutine.
type Backend interface {
	// Name identifies the backend in logs and configuration.
	Name() string

	// Mul returns a × b.
	Mul(a, b matrix.Matrix) (*matrix.Dense, error)

	// Transpose returns mᵀ.
	Transpose(m matrix.Matrix) (*matrix.Dense, error)

	// Covariance returns the sample covariance of the columns of x
	// (divisor rows-1) together with the column means.
	Covariance(x matrix.Matrix) (cov *matrix.Dense, means []float64, err error)

	// EigenSym decomposes a symmetric matrix. values are sorted descending
	// and column k of vectors is the unit eigenvector of values[k].
	EigenSym(m matrix.Matrix) (values []float64, vectors *matrix.Dense, err error)
}

// Lookup resolves a backend by name (case-insensitive). The empty name
// selects the native backend.
func Lookup(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameNative:
		return Native(), nil
	case NameGonum:
		return Gonum(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
