// SPDX-License-Identifier: MIT

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/asrfilter/asr"
	"github.com/katalvlaran/asrfilter/matrix"
)

type runFlags struct {
	in    string
	out   string
	chunk int
	align bool
}

func newRunCmd(g *globals) *cobra.Command {
	fl := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream a CSV recording through the filter",
		Long: `Stream a CSV recording through the filter in chunks, the way an
acquisition loop would, and write the cleaned samples as CSV.

The filter first collects a calibration baseline (calibration_time seconds)
unless the config supplies fixed_thresholds. Output lags input by
block_size-1 samples and starts with that many zero rows; --align drops the
lead-in and flushes the tail so output row i matches input row i.

Examples:
  asrfilter run -c asr.yaml --in raw.csv --out clean.csv
  asrfilter run --in raw.csv --align --chunk 128 > clean.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd, g, fl)
		},
	}
	cmd.Flags().StringVarP(&fl.in, "in", "i", "-", `input CSV ("-" for stdin)`)
	cmd.Flags().StringVarP(&fl.out, "out", "o", "-", `output CSV ("-" for stdout)`)
	cmd.Flags().IntVar(&fl.chunk, "chunk", 32, "samples per processing call")
	cmd.Flags().BoolVar(&fl.align, "align", false, "compensate the filter latency")

	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func runFilter(cmd *cobra.Command, g *globals, fl *runFlags) (err error) {
	if fl.chunk <= 0 {
		return fmt.Errorf("--chunk must be > 0 (%d)", fl.chunk)
	}
	in, closeIn, err := openInput(cmd, fl.in)
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
	f, err := g.cfg.NewFilter(g.logger)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, fl.out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); err == nil {
			err = cerr
		}
	}()
	sw, err := newSampleWriter(out, sr.Header())
	if err != nil {
		return err
	}

	skip := 0
	if fl.align {
		skip = f.Latency()
	}
	process := func(chunk *matrix.Dense) error {
		res, perr := matrix.NewDense(chunk.Rows(), chunk.Cols())
		if perr != nil {
			return perr
		}
		if perr = f.Process(chunk, res); perr != nil {
			return perr
		}
		drop := min(skip, res.Cols())
		skip -= drop
		return sw.Write(res, drop)
	}

	for {
		chunk, rerr := sr.Next(fl.chunk)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
		if err = process(chunk); err != nil {
			return err
		}
	}
	if fl.align {
		tail, terr := matrix.NewDense(sr.Columns(), f.Latency())
		if terr != nil {
			return terr
		}
		if err = process(tail); err != nil {
			return err
		}
	}
	if err = sw.Flush(); err != nil {
		return err
	}

	logSummary(g, f)

	return nil
}

func logSummary(g *globals, f *asr.Filter) {
	st := f.Stats()
	g.logger.Info("run complete",
		"mode", f.Mode().String(),
		"samples", st.SamplesIn,
		"blocks", st.Blocks,
		"blocks_cleaned", st.BlocksCleaned,
		"components_suppressed", st.ComponentsSuppressed,
		"latency", f.Latency())
	if f.Mode() == asr.Calibrating {
		got, want := f.CalibrationProgress()
		g.logger.Warn("recording ended before calibration completed; output is unfiltered",
			"baseline_blocks", got, "required_blocks", want)
	}
}
