// Package source reads spreadsheet extracts as normalized rows.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/deliverypulse/engine/internal/normalize"
)

// Reader yields normalized rows in file order. Next returns io.EOF after the
// last row.
type Reader interface {
	Next() (normalize.Row, error)
	// Headers returns the flattened header labels as they appeared in the file.
	Headers() []string
	// Unmapped returns header labels that match no canonical field.
	Unmapped() []string
	Close() error
}

// planReader applies a header plan to raw cell rows.
type planReader struct {
	headers []string
	plan    *normalize.Plan
	rows    [][]string
	pos     int
	closer  io.Closer
}

func (r *planReader) Next() (normalize.Row, error) {
	for r.pos < len(r.rows) {
		cells := r.rows[r.pos]
		r.pos++
		if blank(cells) {
			continue
		}
		return r.plan.Apply(cells), nil
	}
	return nil, io.EOF
}

func (r *planReader) Headers() []string  { return r.headers }
func (r *planReader) Unmapped() []string { return r.plan.Unmapped() }

func (r *planReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func blank(cells []string) bool {
	for _, c := range cells {
		for _, ch := range c {
			if ch != ' ' && ch != '\t' {
				return false
			}
		}
	}
	return true
}

// Slice returns a Reader over rows that are already normalized.
func Slice(rows ...normalize.Row) Reader {
	return &sliceReader{rows: rows}
}

type sliceReader struct {
	rows []normalize.Row
	pos  int
}

func (s *sliceReader) Next() (normalize.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceReader) Headers() []string  { return nil }
func (s *sliceReader) Unmapped() []string { return nil }
func (s *sliceReader) Close() error       { return nil }

// Format is a supported extract file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a filename extension.
func FormatOf(filename string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	case ".csv":
		return FormatCSV, true
	}
	return "", false
}

// Open reads data in the format implied by filename.
func Open(filename string, data io.Reader, sheet string, n *normalize.Normalizer) (Reader, error) {
	format, ok := FormatOf(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q: expected .xlsx, .xlsm or .csv", filepath.Ext(filename))
	}
	if format == FormatCSV {
		return OpenCSV(data, n)
	}
	return OpenXLSX(data, sheet, n)
}
