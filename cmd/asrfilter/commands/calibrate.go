// SPDX-License-Identifier: MIT

package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/asrfilter/asr"
	"github.com/katalvlaran/asrfilter/matrix"
)

// calibrateChunk is the number of samples per processing call.
const calibrateChunk = 256

func newCalibrateCmd(g *globals) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Learn thresholds from a quiet baseline",
		Long: `Run the calibration stage on a quiet baseline recording and print the
resulting configuration, with fixed_thresholds filled in, as YAML.

Feed the printed file back with --config to filter other recordings in
fixed-threshold mode without recalibrating.

Examples:
  asrfilter calibrate -c asr.yaml --in baseline.csv > fixed.yaml
  asrfilter run -c fixed.yaml --in session.csv --out clean.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return calibrate(cmd, g, in)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", `baseline CSV ("-" for stdin)`)

	return cmd
}

func calibrate(cmd *cobra.Command, g *globals, path string) error {
	in, closeIn, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer closeIn()

	sr, err := newSampleReader(in)
	if err != nil {
		return err
	}
	if err = g.matchChannels(sr.Columns()); err != nil {
		return err
	}
	cfg := g.cfg
	cfg.FixedThresholds = nil
	f, err := cfg.NewFilter(g.logger)
	if err != nil {
		return err
	}

	for f.Mode() == asr.Calibrating {
		chunk, rerr := sr.Next(calibrateChunk)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
		scratch, derr := matrix.NewDense(chunk.Rows(), chunk.Cols())
		if derr != nil {
			return derr
		}
		if err = f.Process(chunk, scratch); err != nil {
			return err
		}
	}

	cal, ok := f.Calibration()
	if !ok {
		got, want := f.CalibrationProgress()
		return fmt.Errorf("baseline too short: %d of %d blocks collected", got, want)
	}
	cfg.FixedThresholds = cal.Thresholds
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)

	return err
}
