package normalize

import (
	"strconv"
	"strings"
)

// FlattenHeaders joins a two-row grouped header into single labels
// ("Progress" over "%W" becomes "Progress %W"). A blank sub-label keeps only
// the group label and a blank group label keeps only the sub-label. Group
// labels spanning merged cells are carried right while the columns keep
// having sub-labels.
//
// The second return value is false when sub does not look like a header row
// (no labels at all, or cells that parse as numbers). Callers then treat top
// as a single header row and sub as data.
func FlattenHeaders(top, sub []string) ([]string, bool) {
	if !looksLikeHeaderRow(sub) {
		return trimAll(top), false
	}

	n := max(len(top), len(sub))
	out := make([]string, n)
	group := ""
	prevHadSub := false
	for i := 0; i < n; i++ {
		a := strings.TrimSpace(at(top, i))
		b := strings.TrimSpace(at(sub, i))

		switch {
		case a != "":
			group = a
		case b != "" && prevHadSub:
			a = group
		default:
			group = ""
		}
		prevHadSub = b != ""

		switch {
		case b == "" || isAnonymous(b):
			out[i] = a
		case a == "" || isAnonymous(a):
			out[i] = b
		default:
			out[i] = a + " " + b
		}
	}
	return out, true
}

func looksLikeHeaderRow(row []string) bool {
	labels := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64); err == nil {
			return false
		}
		labels++
	}
	return labels > 0
}

// isAnonymous matches the placeholder names dataframe exports give to blank header cells.
func isAnonymous(label string) bool {
	return strings.HasPrefix(label, "Unnamed")
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, s := range row {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
