// SPDX-License-Identifier: MIT

package asr_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/asrfilter/asr"
	"github.com/katalvlaran/asrfilter/linalg"
	"github.com/katalvlaran/asrfilter/matrix"
)

const (
	testChannels  = 4
	testBlockSize = 8
	testBlockSkip = 4
)

// FilterSuite exercises a small filter: 4 channels, 8-sample blocks sliding
// by 4, a two-block baseline.
type FilterSuite struct {
	suite.Suite
	rng *rand.Rand
	f   *asr.Filter
}

func TestFilterSuite(t *testing.T) {
	suite.Run(t, new(FilterSuite))
}

func (s *FilterSuite) SetupTest() {
	s.rng = rand.New(rand.NewSource(42))
	s.f = s.newSmallFilter()
}

func (s *FilterSuite) newSmallFilter() *asr.Filter {
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithThreshold(100),
		asr.WithCalibrationTime(2),
		asr.WithSampleRate(1),
	)
	s.Require().NoError(err)

	return f
}

func (s *FilterSuite) calibrate() {
	baseline := dense(s.T(), testChannels, 2*testBlockSize, noise(s.rng, 1))
	feed(s.T(), s.f, baseline, testBlockSize)
	s.Require().Equal(asr.Calibrated, s.f.Mode())
}

func (s *FilterSuite) TestInitialState() {
	s.Equal(asr.Calibrating, s.f.Mode())
	s.True(s.f.IsOn())
	s.Equal(testBlockSize-1, s.f.Latency())
	s.Nil(s.f.Thresholds())
	_, ok := s.f.Calibration()
	s.False(ok)
	got, want := s.f.CalibrationProgress()
	s.Equal(0, got)
	s.Equal(asr.MinCalibrationBlocks, want)
}

func (s *FilterSuite) TestBypassIdentity() {
	s.f.TurnOff()
	s.False(s.f.IsOn())
	s.Equal(asr.Bypass, s.f.Mode())

	for _, n := range []int{1, 3, 8, 50} {
		in := dense(s.T(), testChannels, n, noise(s.rng, 1e3))
		out := dense(s.T(), testChannels, n, nil)
		s.Require().NoError(s.f.Process(in, out))
		s.Equal(in.Data(), out.Data(), "chunk %d", n)

		out2 := dense(s.T(), testChannels, n, nil)
		s.Require().NoError(s.f.Process(hide{in}, hide{out2}))
		s.Equal(in.Data(), out2.Data(), "generic path, chunk %d", n)
	}
}

func (s *FilterSuite) TestShapeViolationsWriteNothing() {
	sentinel := func(int, int) float64 { return 7 }
	in := dense(s.T(), testChannels, 5, noise(s.rng, 1))

	cases := map[string]struct {
		in, out matrix.Matrix
	}{
		"wrong channel count": {dense(s.T(), 3, 5, nil), dense(s.T(), 3, 5, sentinel)},
		"out fewer columns":   {in, dense(s.T(), testChannels, 4, sentinel)},
		"out more rows":       {in, dense(s.T(), testChannels+1, 5, sentinel)},
	}
	for name, tc := range cases {
		err := s.f.Process(tc.in, tc.out)
		s.Require().ErrorIs(err, asr.ErrShapeMismatch, name)
		for _, v := range tc.out.(*matrix.Dense).Data() {
			s.Require().Equal(7.0, v, name)
		}
	}

	s.Require().ErrorIs(s.f.Process(nil, in), asr.ErrShapeMismatch)
	s.Require().ErrorIs(s.f.Process(in, nil), matrix.ErrNilMatrix)
	s.Equal(int64(0), s.f.Stats().SamplesIn)
}

func (s *FilterSuite) TestEmptyCall() {
	empty, err := matrix.NewDenseFrom(testChannels, 0, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.f.Process(empty, empty))
}

func (s *FilterSuite) TestCalibratingPassesThroughDelayed() {
	in := dense(s.T(), testChannels, 40, func(ch, t int) float64 { return float64(100*ch + t) })
	for _, chunk := range []int{1, 3, 8, 40} {
		// Huge baseline so the whole input stays in Calibrating.
		f, err := asr.New(testChannels, asr.WithBlockSize(testBlockSize), asr.WithBlockSkip(testBlockSkip))
		s.Require().NoError(err)
		out := feed(s.T(), f, in, chunk)
		s.Equal(asr.Calibrating, f.Mode())
		requireDelayed(s.T(), in, out, f.Latency(), 1e-9)
	}
}

func (s *FilterSuite) TestGenericMatrixPathMatchesDense() {
	in := dense(s.T(), testChannels, 24, noise(s.rng, 1))
	outDense := dense(s.T(), testChannels, 24, nil)
	s.Require().NoError(s.f.Process(in, outDense))

	other := s.newSmallFilter()
	outGeneric := dense(s.T(), testChannels, 24, nil)
	s.Require().NoError(other.Process(hide{in}, hide{outGeneric}))
	s.InDeltaSlice(outDense.Data(), outGeneric.Data(), 1e-12)
}

func (s *FilterSuite) TestModeTransitions() {
	s.Require().ErrorIs(s.f.SetMode(asr.Calibrated), asr.ErrNotCalibrated)
	s.Require().ErrorIs(s.f.SetMode(asr.FixedThreshold), asr.ErrNoThresholds)
	s.Require().ErrorIs(s.f.SetMode(asr.Mode(0)), asr.ErrIllegalTransition)
	s.Require().ErrorIs(s.f.SetMode(asr.Mode(9)), asr.ErrIllegalTransition)
	s.Equal(asr.Calibrating, s.f.Mode())

	s.Require().ErrorIs(s.f.SetFixedThresholds([]float64{1, 2}), asr.ErrBadThresholds)
	s.Require().ErrorIs(s.f.SetFixedThresholds([]float64{1, 2, math.NaN(), 4}), asr.ErrBadThresholds)
	s.Require().ErrorIs(s.f.SetFixedThresholds([]float64{1, -2, 3, 4}), asr.ErrBadThresholds)

	s.Require().NoError(s.f.SetFixedThresholds([]float64{5, 5, 5, 5}))
	s.Equal(asr.FixedThreshold, s.f.Mode())
	s.Equal([]float64{5, 5, 5, 5}, s.f.Thresholds())

	s.f.TurnOff()
	s.False(s.f.IsOn())
	s.f.TurnOff()
	s.Equal(asr.Bypass, s.f.Mode())
	s.f.TurnOn()
	s.True(s.f.IsOn())
	s.Equal(asr.FixedThreshold, s.f.Mode(), "fixed thresholds resume")

	s.Require().NoError(s.f.SetMode(asr.Calibrating))
	s.calibrate()
	s.Len(s.f.Thresholds(), testChannels)

	s.Require().NoError(s.f.SetMode(asr.Bypass))
	s.False(s.f.IsOn())
	s.f.TurnOn()
	s.Equal(asr.Calibrated, s.f.Mode(), "learned basis resumes")

	s.Require().NoError(s.f.SetMode(asr.FixedThreshold))
	s.Require().NoError(s.f.SetMode(asr.Calibrated))
	s.Require().NoError(s.f.SetMode(asr.Calibrated))

	s.f.Recalibrate()
	s.Equal(asr.Calibrating, s.f.Mode())
	_, ok := s.f.Calibration()
	s.False(ok)
	s.Require().ErrorIs(s.f.SetMode(asr.Calibrated), asr.ErrNotCalibrated)
}

func (s *FilterSuite) TestTurnOnWithoutBasisCalibrates() {
	s.f.TurnOff()
	s.f.TurnOn()
	s.Equal(asr.Calibrating, s.f.Mode())
	s.f.TurnOn()
	s.Equal(asr.Calibrating, s.f.Mode())
}

func (s *FilterSuite) TestTurnOffDiscardsPartialBaseline() {
	half := dense(s.T(), testChannels, testBlockSize, noise(s.rng, 1))
	feed(s.T(), s.f, half, testBlockSize)
	got, _ := s.f.CalibrationProgress()
	s.Equal(1, got)

	s.f.TurnOff()
	s.f.TurnOn()
	got, _ = s.f.CalibrationProgress()
	s.Equal(0, got)

	// The stream restarted: pre-roll zeros again.
	in := dense(s.T(), testChannels, testBlockSize, func(int, int) float64 { return 3 })
	out := feed(s.T(), s.f, in, testBlockSize)
	requireDelayed(s.T(), in, out, s.f.Latency(), 1e-12)
}

func (s *FilterSuite) TestCalibrationSnapshotAndHook() {
	var calls []asr.Calibration
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithThreshold(10),
		asr.WithThresholdMultiplier(3),
		asr.WithCalibrationTime(2),
		asr.WithSampleRate(1),
		asr.WithOnCalibrated(func(c asr.Calibration) { calls = append(calls, c) }),
	)
	s.Require().NoError(err)
	feed(s.T(), f, dense(s.T(), testChannels, 3*testBlockSize, noise(s.rng, 1)), 5)

	s.Require().Len(calls, 1)
	c, ok := f.Calibration()
	s.Require().True(ok)
	s.Equal(2*testBlockSize, c.Samples)
	s.Equal(c.Thresholds, calls[0].Thresholds)
	for k, lambda := range c.Eigenvalues {
		s.GreaterOrEqual(lambda, 0.0)
		s.InDelta(30*lambda, c.Thresholds[k], 1e-9)
	}
	s.Equal(int64(1), f.Stats().Calibrations)

	calls[0].Thresholds[0] = -1
	s.NotEqual(-1.0, f.Thresholds()[0])
}

func (s *FilterSuite) TestHookMayTurnOffMidCall() {
	var f *asr.Filter
	hooked := 0
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithThreshold(100),
		asr.WithCalibrationTime(2),
		asr.WithSampleRate(1),
		asr.WithOnCalibrated(func(asr.Calibration) {
			hooked++
			f.TurnOff()
		}),
	)
	s.Require().NoError(err)

	// The baseline completes at sample 16, mid-call.
	in := dense(s.T(), testChannels, 20, noise(s.rng, 1))
	out := dense(s.T(), testChannels, 20, nil)
	s.Require().NoError(f.Process(in, out))
	s.Equal(1, hooked)
	s.Equal(asr.Bypass, f.Mode())
	requireDelayed(s.T(), in, out, f.Latency(), 1e-9)

	next := dense(s.T(), testChannels, 5, noise(s.rng, 1))
	res := dense(s.T(), testChannels, 5, nil)
	s.Require().NoError(f.Process(next, res))
	s.Equal(next.Data(), res.Data())
}

func (s *FilterSuite) TestFixedThresholdAttenuatesSpike() {
	s.Require().NoError(s.f.SetFixedThresholds([]float64{1, 1, 1, 1}))
	s.Require().Equal(asr.FixedThreshold, s.f.Mode())

	const n, at, spike = 48, 24, 500.0
	in := dense(s.T(), testChannels, n, noise(s.rng, 0.1))
	in.Data()[at] = spike
	out := feed(s.T(), s.f, in, 6)

	st := s.f.Stats()
	s.Positive(st.BlocksCleaned)
	s.Positive(st.ComponentsSuppressed)
	s.Zero(st.BlocksDegraded)

	lag := s.f.Latency()
	s.Less(maxAbsRow(out, 0, at+lag, at+lag+1), spike/5)
	s.Less(maxAbsRow(out, 0, lag, n), spike/5)
	for ch := 1; ch < testChannels; ch++ {
		s.Less(maxAbsRow(out, ch, lag, n), 2.0, "channel %d", ch)
	}
}

func (s *FilterSuite) TestCleanNoiseKeepsEnergy() {
	s.calibrate()
	in := dense(s.T(), testChannels, 64, noise(s.rng, 1))
	out := feed(s.T(), s.f, in, 16)
	s.Equal(int64(0), s.f.Stats().ComponentsSuppressed)

	// Output is the input delayed; compare the overlapping span.
	lag := s.f.Latency()
	var eIn, eOut float64
	for ch := 0; ch < testChannels; ch++ {
		for t := lag; t < 64; t++ {
			eIn += math.Pow(in.Data()[ch*64+t-lag], 2)
			eOut += math.Pow(out.Data()[ch*64+t], 2)
		}
	}
	s.InEpsilon(eIn, eOut, 1e-9)
}

func (s *FilterSuite) TestResetRestartsPreRoll() {
	in := dense(s.T(), testChannels, 20, func(int, int) float64 { return 1 })
	feed(s.T(), s.f, in, 20)
	s.f.Reset()
	out := feed(s.T(), s.f, in, 20)
	requireDelayed(s.T(), in, out, s.f.Latency(), 1e-12)
	s.Equal(int64(40), s.f.Stats().SamplesOut)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		opts     []asr.Option
		want     error
	}{
		{"no channels", 0, nil, asr.ErrInvalidConfig},
		{"block size 1", 2, []asr.Option{asr.WithBlockSize(1)}, asr.ErrOptionViolation},
		{"skip zero", 2, []asr.Option{asr.WithBlockSkip(0)}, asr.ErrOptionViolation},
		{"skip beyond block", 2, []asr.Option{asr.WithBlockSize(8), asr.WithBlockSkip(9)}, asr.ErrInvalidConfig},
		{"negative threshold", 2, []asr.Option{asr.WithThreshold(-1)}, asr.ErrOptionViolation},
		{"NaN multiplier", 2, []asr.Option{asr.WithThresholdMultiplier(math.NaN())}, asr.ErrOptionViolation},
		{"zero calibration", 2, []asr.Option{asr.WithCalibrationTime(0)}, asr.ErrOptionViolation},
		{"infinite rate", 2, []asr.Option{asr.WithSampleRate(math.Inf(1))}, asr.ErrOptionViolation},
		{"projection", 2, []asr.Option{asr.WithProjection(asr.Projection(5))}, asr.ErrOptionViolation},
		{"suppression", 2, []asr.Option{asr.WithSuppression(asr.Suppression(5))}, asr.ErrOptionViolation},
		{"refresh", 2, []asr.Option{asr.WithEigenRefresh(0)}, asr.ErrOptionViolation},
		{"baseline too large", 2, []asr.Option{asr.WithCalibrationTime(1e13)}, asr.ErrInvalidConfig},
		{"baseline wraps int", 2, []asr.Option{asr.WithCalibrationTime(1e300)}, asr.ErrInvalidConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := asr.New(tc.channels, tc.opts...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	f, err := asr.New(8, nil, asr.WithLogger(nil), asr.WithBackend(nil))
	require.NoError(t, err)
	o := f.Options()
	require.Equal(t, asr.DefaultBlockSize, o.BlockSize)
	require.Equal(t, asr.DefaultBlockSkip, o.BlockSkip)
	require.Equal(t, asr.DefaultThreshold, o.Threshold)
	require.Equal(t, asr.DefaultCalibrationTime, o.CalibrationTime)
	require.Equal(t, linalg.NameNative, o.Backend.Name())
	require.Equal(t, 63, f.Latency())
	_, want := f.CalibrationProgress()
	require.Equal(t, 120, want)
}

// calibrationThresholds learns thresholds from a fixed baseline.
func calibrationThresholds(t *testing.T, b linalg.Backend, baseline *matrix.Dense) []float64 {
	t.Helper()
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithThreshold(100),
		asr.WithCalibrationTime(4),
		asr.WithSampleRate(8),
		asr.WithBackend(b),
	)
	require.NoError(t, err)
	feed(t, f, baseline, 7)
	require.Equal(t, asr.Calibrated, f.Mode())

	return f.Thresholds()
}

func TestCalibration_Deterministic(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	baseline := dense(t, testChannels, 32, func(ch, s int) float64 {
		return float64(ch+1)*math.Sin(0.3*float64(s*(ch+1))) + rng.NormFloat64()
	})

	first := calibrationThresholds(t, linalg.Native(), baseline)
	second := calibrationThresholds(t, linalg.Native(), baseline)
	require.Equal(t, first, second)

	viaGonum := calibrationThresholds(t, linalg.Gonum(), baseline)
	for k := range first {
		require.InEpsilon(t, first[k], viaGonum[k], 1e-8, "component %d", k)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(8))
	baseline := dense(t, testChannels, 2*testBlockSize, noise(rng, 1))
	test := dense(t, testChannels, 48, func(ch, s int) float64 {
		v := rng.NormFloat64()
		if ch == 1 && s%12 < 3 {
			v += 40
		}
		if ch == 3 && s%7 == 0 {
			v -= 15
		}
		return v
	})

	prev := int64(math.MaxInt64)
	for _, threshold := range []float64{0.5, 2, 10, 50, 200, 1e5} {
		f, err := asr.New(testChannels,
			asr.WithBlockSize(testBlockSize),
			asr.WithBlockSkip(testBlockSkip),
			asr.WithThreshold(threshold),
			asr.WithCalibrationTime(2),
			asr.WithSampleRate(1),
		)
		require.NoError(t, err)
		feed(t, f, baseline, testBlockSize)
		feed(t, f, test, testBlockSize)

		n := f.Stats().ComponentsSuppressed
		require.LessOrEqual(t, n, prev, "threshold %g", threshold)
		prev = n
	}
	require.Zero(t, prev, "a loose enough threshold suppresses nothing")
}

func TestOverlapContinuity(t *testing.T) {
	t.Parallel()

	const (
		amp   = 10.0
		omega = 0.05
	)
	in := dense(t, testChannels, 400, func(ch, s int) float64 {
		return amp * math.Sin(omega*float64(s)+float64(ch))
	})
	for _, opt := range []asr.Option{
		asr.WithProjection(asr.ProjectCalibration),
		asr.WithProjection(asr.ProjectBlock),
	} {
		f, err := asr.New(testChannels,
			asr.WithBlockSize(testBlockSize),
			asr.WithBlockSkip(3),
			asr.WithThreshold(1e6),
			asr.WithCalibrationTime(2),
			asr.WithSampleRate(1),
			opt,
		)
		require.NoError(t, err)
		out := feed(t, f, in, 13)
		require.Equal(t, asr.Calibrated, f.Mode())
		require.Positive(t, f.Stats().BlocksCleaned)

		maxStep := amp*omega + 1e-9
		for ch := 0; ch < testChannels; ch++ {
			for s := f.Latency() + 1; s < 400; s++ {
				step := math.Abs(out.Data()[ch*400+s] - out.Data()[ch*400+s-1])
				require.LessOrEqual(t, step, maxStep, "channel %d sample %d", ch, s)
			}
		}
	}
}

type brokenBackend struct{ linalg.Backend }

func (brokenBackend) EigenSym(matrix.Matrix) ([]float64, *matrix.Dense, error) {
	return nil, nil, errors.New("no convergence")
}

func TestCalibrationFailureRestartsBaseline(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithCalibrationTime(2),
		asr.WithSampleRate(1),
		asr.WithBackend(brokenBackend{linalg.Native()}),
		asr.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))
	feed(t, f, dense(t, testChannels, 2*testBlockSize, noise(rng, 1)), testBlockSize)

	require.Equal(t, asr.Calibrating, f.Mode())
	got, _ := f.CalibrationProgress()
	require.Zero(t, got)
	require.Zero(t, f.Stats().Calibrations)
	require.Contains(t, logs.String(), "calibration failed")
	require.Contains(t, logs.String(), "level=WARN")
}

func TestDegenerateChannelIsLogged(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	f, err := asr.New(testChannels,
		asr.WithBlockSize(testBlockSize),
		asr.WithBlockSkip(testBlockSkip),
		asr.WithCalibrationTime(2),
		asr.WithSampleRate(1),
		asr.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	feed(t, f, dense(t, testChannels, 2*testBlockSize, func(ch, _ int) float64 {
		if ch == 2 {
			return 0
		}
		return rng.NormFloat64()
	}), testBlockSize)

	require.Equal(t, asr.Calibrated, f.Mode())
	c, ok := f.Calibration()
	require.True(t, ok)
	require.Equal(t, []int{testChannels - 1}, c.ZeroComponents())
	require.Contains(t, logs.String(), `"msg":"calibration complete"`)
	require.Contains(t, logs.String(), "degenerate baseline")
}
