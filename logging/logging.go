// SPDX-License-Identifier: MIT

// Package logging builds the structured logger used by the asrfilter
// command: log/slog records written to stderr, discarded, or appended to a
// size-rotated file managed by lumberjack.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Special Filename values.
const (
	FilenameConsole = "-" // stderr
	FilenameDiscard = "." // drop every record
)

// LevelTrace is below slog.LevelDebug. The filter logs nothing finer than
// DEBUG, so TRACE only matters to callers that log at this level themselves.
const LevelTrace = slog.LevelDebug - 4

var (
	ErrInvalidLevel  = errors.New("logging: invalid level")
	ErrInvalidFormat = errors.New("logging: invalid format")
)

// Config describes the log sink.
type Config struct {
	Filename   string `yaml:"filename"`              // "-" stderr, "." discard, otherwise a file path
	Level      string `yaml:"level"`                 // TRACE, DEBUG, INFO, WARN, ERROR
	Format     string `yaml:"format"`                // text or json
	Append     bool   `yaml:"append"`                // keep writing to an existing file instead of rotating it first
	Console    bool   `yaml:"console"`               // also copy file output to stderr
	MaxSize    int    `yaml:"max_size,omitempty"`    // megabytes before rotation
	MaxBackups int    `yaml:"max_backups,omitempty"` // rotated files to keep
	MaxAge     int    `yaml:"max_age,omitempty"`     // days to keep rotated files
	Compress   bool   `yaml:"compress,omitempty"`    // gzip rotated files
}

// PresetConfigConsole logs INFO and above as text on stderr.
var PresetConfigConsole = Config{
	Filename: FilenameConsole,
	Level:    "INFO",
	Format:   "text",
	Append:   true,
}

// PresetConfigDiscard drops every record.
var PresetConfigDiscard = Config{
	Filename: FilenameDiscard,
	Level:    "INFO",
	Format:   "text",
}

// ParseLevel maps a level name (case-insensitive) to a slog.Level.
// The empty string means INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// Validate checks Level and Format without opening anything.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
}

// New opens the sink described by cfg and returns a logger plus the closer
// that releases it. Closing a console or discard sink is a no-op.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Filename {
	case "", FilenameDiscard:
		return slog.New(slog.DiscardHandler), closer, nil
	case FilenameConsole:
		w = os.Stderr
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		if !cfg.Append {
			if err := lj.Rotate(); err != nil {
				return nil, nil, fmt.Errorf("logging: rotate %s: %w", cfg.Filename, err)
			}
		}
		w, closer = lj, lj
		if cfg.Console {
			w = io.MultiWriter(lj, os.Stderr)
		}
	}

	logger, err := NewWithWriter(w, cfg)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return logger, closer, nil
}

// NewWithWriter builds a logger on an arbitrary writer using cfg's level
// and format; Filename and rotation settings are ignored.
func NewWithWriter(w io.Writer, cfg Config) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
