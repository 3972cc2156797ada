// Package normalize maps spreadsheet header text to canonical snake_case field keys.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separators = regexp.MustCompile(`[\s-]+`)
	underscore = regexp.MustCompile(`_+`)
)

// StripAccents decomposes s and drops combining marks ("Desviación" -> "Desviacion").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Snake lower-cases a header, turns "%" into "pct", removes punctuation and
// joins words with single underscores. Snake(Snake(s)) == Snake(s).
func Snake(s string) string {
	s = strings.TrimSpace(s)
	s = StripAccents(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "%", "pct")
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "_")
	s = underscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
