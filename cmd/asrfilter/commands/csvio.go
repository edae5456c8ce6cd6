// SPDX-License-Identifier: MIT

package commands

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/asrfilter/matrix"
)

// sampleReader reads a CSV of time samples (rows) × channels (columns) in
// chunks, returning each chunk channel-major as the filter expects.
type sampleReader struct {
	r       *csv.Reader
	header  []string
	columns int
	first   []float64 // data row consumed while sniffing for a header
	line    int
}

func newSampleReader(r io.Reader) (*sampleReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	s := &sampleReader{r: cr, columns: len(rec), line: 1}
	if row, perr := parseRow(rec); perr == nil {
		s.first = row
	} else {
		s.header = append([]string(nil), rec...)
	}

	return s, nil
}

// Columns returns the channel count.
func (s *sampleReader) Columns() int { return s.columns }

// Header returns the header row, or nil when the file has none.
func (s *sampleReader) Header() []string { return s.header }

// Next returns up to limit samples as a channels × n matrix, or io.EOF once
// the input is exhausted.
func (s *sampleReader) Next(limit int) (*matrix.Dense, error) {
	rows := make([][]float64, 0, limit)
	if s.first != nil {
		rows = append(rows, s.first)
		s.first = nil
	}
	for len(rows) < limit {
		rec, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		s.line++
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", s.line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}

	n := len(rows)
	data := make([]float64, s.columns*n)
	for t, row := range rows {
		for ch, v := range row {
			data[ch*n+t] = v
		}
	}

	return matrix.NewDenseFrom(s.columns, n, data)
}

func parseRow(rec []string) ([]float64, error) {
	row := make([]float64, len(rec))
	var err error
	for i, field := range rec {
		if row[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return nil, err
		}
	}

	return row, nil
}

// sampleWriter writes channel-major chunks back as sample rows.
type sampleWriter struct {
	w   *csv.Writer
	rec []string
}

func newSampleWriter(w io.Writer, header []string) (*sampleWriter, error) {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
	}

	return &sampleWriter{w: cw}, nil
}

// Write emits columns [from, m.Cols()) of m as rows.
func (s *sampleWriter) Write(m *matrix.Dense, from int) error {
	channels, n := m.Rows(), m.Cols()
	if cap(s.rec) < channels {
		s.rec = make([]string, channels)
	}
	s.rec = s.rec[:channels]
	data := m.Data()
	for t := from; t < n; t++ {
		for ch := 0; ch < channels; ch++ {
			s.rec[ch] = strconv.FormatFloat(data[ch*n+t], 'g', -1, 64)
		}
		if err := s.w.Write(s.rec); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}

	return nil
}

// Flush flushes buffered rows and reports any write error.
func (s *sampleWriter) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	return nil
}
