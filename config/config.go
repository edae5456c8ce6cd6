// SPDX-License-Identifier: MIT

// Package config loads filter parameters from YAML.
//
// A file only needs the keys it changes; everything else keeps Default():
//
//	channels: 8
//	block_size: 64
//	block_skip: 16
//	threshold: 12000
//	calibration_time: 60
//	sample_rate: 250
//	backend: gonum
//	log:
//	  filename: /var/log/asrfilter.log
//	  level: INFO
//
// Supplying fixed_thresholds (one per channel) starts the filter in
// FixedThreshold mode instead of calibrating.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/asrfilter/asr"
	"github.com/katalvlaran/asrfilter/linalg"
	"github.com/katalvlaran/asrfilter/logging"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config mirrors asr.Options in a serializable form.
type Config struct {
	Channels            int       `yaml:"channels"`
	BlockSize           int       `yaml:"block_size"`
	BlockSkip           int       `yaml:"block_skip"`
	Threshold           float64   `yaml:"threshold"`
	ThresholdMultiplier float64   `yaml:"threshold_multiplier"`
	CalibrationTime     float64   `yaml:"calibration_time"` // seconds
	SampleRate          float64   `yaml:"sample_rate"`      // Hz
	Projection          string    `yaml:"projection"`       // calibration | block
	Suppression         string    `yaml:"suppression"`      // zero | clamp
	EigenRefresh        int       `yaml:"eigen_refresh"`
	Backend             string    `yaml:"backend"` // native | gonum
	FixedThresholds     []float64 `yaml:"fixed_thresholds,omitempty"`

	Log logging.Config `yaml:"log"`
}

// Default returns the asr defaults for a single channel, logging to stderr.
func Default() Config {
	return Config{
		Channels:            1,
		BlockSize:           asr.DefaultBlockSize,
		BlockSkip:           asr.DefaultBlockSkip,
		Threshold:           asr.DefaultThreshold,
		ThresholdMultiplier: asr.DefaultThresholdMultiplier,
		CalibrationTime:     asr.DefaultCalibrationTime,
		SampleRate:          asr.DefaultSampleRate,
		Projection:          asr.ProjectCalibration.String(),
		Suppression:         asr.SuppressZero.String(),
		EigenRefresh:        asr.DefaultEigenRefresh,
		Backend:             linalg.NameNative,
		Log:                 logging.PresetConfigConsole,
	}
}

// Load reads and validates a YAML file on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Validate checks every field without building anything.
func (c Config) Validate() error {
	switch {
	case c.Channels <= 0:
		return invalid("channels must be > 0 (%d)", c.Channels)
	case c.BlockSize < 2:
		return invalid("block_size must be >= 2 (%d)", c.BlockSize)
	case c.BlockSkip < 1 || c.BlockSkip > c.BlockSize:
		return invalid("block_skip must be in [1, %d] (%d)", c.BlockSize, c.BlockSkip)
	case !finitePositive(c.Threshold):
		return invalid("threshold must be finite and > 0 (%g)", c.Threshold)
	case !finitePositive(c.ThresholdMultiplier):
		return invalid("threshold_multiplier must be finite and > 0 (%g)", c.ThresholdMultiplier)
	case !finitePositive(c.CalibrationTime):
		return invalid("calibration_time must be finite and > 0 (%g)", c.CalibrationTime)
	case !finitePositive(c.SampleRate):
		return invalid("sample_rate must be finite and > 0 (%g)", c.SampleRate)
	case c.EigenRefresh < 1:
		return invalid("eigen_refresh must be >= 1 (%d)", c.EigenRefresh)
	}
	if _, err := ParseProjection(c.Projection); err != nil {
		return err
	}
	if _, err := ParseSuppression(c.Suppression); err != nil {
		return err
	}
	if _, err := linalg.Lookup(c.Backend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.FixedThresholds != nil {
		if len(c.FixedThresholds) != c.Channels {
			return invalid("fixed_thresholds has %d values for %d channels", len(c.FixedThresholds), c.Channels)
		}
		for k, v := range c.FixedThresholds {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return invalid("fixed_thresholds[%d] = %g", k, v)
			}
		}
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalid, err)
	}

	return nil
}

// ParseProjection maps "calibration" or "block" to an asr.Projection.
func ParseProjection(s string) (asr.Projection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", asr.ProjectCalibration.String():
		return asr.ProjectCalibration, nil
	case asr.ProjectBlock.String():
		return asr.ProjectBlock, nil
	default:
		return 0, invalid("unknown projection %q", s)
	}
}

// ParseSuppression maps "zero" or "clamp" to an asr.Suppression.
func ParseSuppression(s string) (asr.Suppression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", asr.SuppressZero.String():
		return asr.SuppressZero, nil
	case asr.SuppressClamp.String():
		return asr.SuppressClamp, nil
	default:
		return 0, invalid("unknown suppression %q", s)
	}
}

// Options translates c into asr options. logger may be nil.
func (c Config) Options(logger *slog.Logger) ([]asr.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	backend, _ := linalg.Lookup(c.Backend)
	proj, _ := ParseProjection(c.Projection)
	supp, _ := ParseSuppression(c.Suppression)

	return []asr.Option{
		asr.WithBlockSize(c.BlockSize),
		asr.WithBlockSkip(c.BlockSkip),
		asr.WithThreshold(c.Threshold),
		asr.WithThresholdMultiplier(c.ThresholdMultiplier),
		asr.WithCalibrationTime(c.CalibrationTime),
		asr.WithSampleRate(c.SampleRate),
		asr.WithProjection(proj),
		asr.WithSuppression(supp),
		asr.WithEigenRefresh(c.EigenRefresh),
		asr.WithBackend(backend),
		asr.WithLogger(logger),
	}, nil
}

// NewFilter builds a filter from c. With FixedThresholds set the filter
// starts in FixedThreshold mode. extra options are applied last.
func (c Config) NewFilter(logger *slog.Logger, extra ...asr.Option) (*asr.Filter, error) {
	opts, err := c.Options(logger)
	if err != nil {
		return nil, err
	}
	f, err := asr.New(c.Channels, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	if c.FixedThresholds != nil {
		if err = f.SetFixedThresholds(c.FixedThresholds); err != nil {
			return nil, err
		}
	}

	return f, nil
}
