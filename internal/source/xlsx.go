package source

import (
	"fmt"
	"io"
	"slices"

	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/xuri/excelize/v2"
)

// OpenXLSX reads one worksheet. An empty sheet name selects the first sheet.
// Cells are read raw so date cells arrive as serial numbers, which the row
// mapper understands. A two-row grouped header is flattened when the second
// row looks like labels; otherwise the first row alone is the header.
func OpenXLSX(r io.Reader, sheet string, n *normalize.Normalizer) (Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	if !slices.Contains(sheets, sheet) {
		_ = f.Close()
		return nil, fmt.Errorf("worksheet %q not found, available: %v", sheet, sheets)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	fillMergedHeaders(f, sheet, rows)

	return newPlanReader(rows, n, f), nil
}

// fillMergedHeaders copies the value of a merged header cell across the
// columns it spans in the first header row.
func fillMergedHeaders(f *excelize.File, sheet string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return
	}
	for _, m := range merged {
		startCol, startRow, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil || startRow != 1 {
			continue
		}
		endCol, _, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		for len(rows[0]) < endCol {
			rows[0] = append(rows[0], "")
		}
		for c := startCol; c <= endCol; c++ {
			rows[0][c-1] = m.GetCellValue()
		}
	}
}

func newPlanReader(rows [][]string, n *normalize.Normalizer, closer io.Closer) *planReader {
	var top, sub []string
	if len(rows) > 0 {
		top = rows[0]
	}
	if len(rows) > 1 {
		sub = rows[1]
	}

	headers, _ := normalize.FlattenHeaders(top, nil)
	plan := n.Plan(headers)
	data := [][]string{}
	if len(rows) > 1 {
		data = rows[1:]
	}

	// An all-text first data row also looks like a sub-header; keep the
	// two-level reading only when it resolves more columns.
	if flat, twoLevel := normalize.FlattenHeaders(top, sub); twoLevel {
		if fp := n.Plan(flat); fp.Mapped() > plan.Mapped() {
			headers, plan, data = flat, fp, rows[2:]
		}
	}
	return &planReader{
		headers: headers,
		plan:    plan,
		rows:    data,
		closer:  closer,
	}
}
