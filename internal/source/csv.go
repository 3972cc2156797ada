package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/deliverypulse/engine/internal/normalize"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// OpenCSV reads a comma or semicolon separated extract with one or two header rows.
func OpenCSV(r io.Reader, n *normalize.Normalizer) (Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = sniffDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return newPlanReader(rows, n, nil), nil
}

// sniffDelimiter picks ';' when the first line has more semicolons than commas.
func sniffDelimiter(raw []byte) rune {
	first, _, _ := bytes.Cut(raw, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}
