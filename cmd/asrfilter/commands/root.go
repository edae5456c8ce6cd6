// SPDX-License-Identifier: MIT

package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/asrfilter/config"
	"github.com/katalvlaran/asrfilter/logging"
)

// globals holds the persistent flags and what PersistentPreRunE derives
// from them.
type globals struct {
	configPath string
	logFile    string
	logLevel   string

	cfg       config.Config
	cfgLoaded bool // true when --config was given
	logger    *slog.Logger
	logCloser io.Closer
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "asrfilter",
		Short: "Artifact Subspace Reconstruction for multichannel recordings",
		Long: `asrfilter removes large transient artifacts (blinks, movement, electrode
pops) from multichannel biosignal recordings.

Filter parameters come from a YAML file (--config); anything not set there
keeps its default. Without --config the channel count is taken from the
input CSV.

Example config (asr.yaml):
  channels: 8
  block_size: 64
  block_skip: 16
  threshold: 12000
  calibration_time: 60
  sample_rate: 250
  backend: gonum`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if g.logCloser != nil {
				return g.logCloser.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&g.logFile, "log-file", "", `log destination: "-" stderr, "." discard, or a file path (overrides config)`)
	pf.StringVar(&g.logLevel, "log-level", "", "TRACE, DEBUG, INFO, WARN or ERROR (overrides config)")

	root.AddCommand(newRunCmd(g), newCalibrateCmd(g))

	return root
}

// Execute runs the command tree on os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (g *globals) setup() error {
	g.cfg = config.Default()
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		g.cfg, g.cfgLoaded = cfg, true
	}
	if g.logFile != "" {
		g.cfg.Log.Filename = g.logFile
	}
	if g.logLevel != "" {
		g.cfg.Log.Level = g.logLevel
	}

	logger, closer, err := logging.New(g.cfg.Log)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	g.logger, g.logCloser = logger.With("app", "asrfilter"), closer

	return nil
}

// matchChannels reconciles the configured channel count with the CSV.
func (g *globals) matchChannels(columns int) error {
	if !g.cfgLoaded {
		g.cfg.Channels = columns
		return nil
	}
	if g.cfg.Channels != columns {
		return fmt.Errorf("config has %d channels, input has %d columns", g.cfg.Channels, columns)
	}

	return nil
}
