package mapper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"nat":  true,
	"n/a":  true,
	"#n/a": true,
}

// IsNull reports whether a cell carries no value.
func IsNull(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseText returns nil for blank and NaN-like cells.
func ParseText(s string) *string {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return nil
	}
	return &s
}

// ParseFloat parses a numeric cell. A lone decimal comma is accepted; anything
// unparseable, NaN or infinite yields nil.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return nil
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var (
	trueTokens  = map[string]bool{"true": true, "verdadero": true, "1": true, "yes": true, "y": true, "si": true, "sí": true}
	falseTokens = map[string]bool{"false": true, "falso": true, "0": true, "no": true, "n": true}
)

// ParseBool accepts English and Spanish spellings of yes/no.
func ParseBool(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	var v bool
	switch {
	case trueTokens[s]:
		v = true
	case falseTokens[s]:
		v = false
	default:
		return nil
	}
	return &v
}

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31.
const maxSerial = 2958465

var (
	// A serial number glued to a month/day suffix is a broken export, not a date.
	brokenSerial = regexp.MustCompile(`^\d{5,}-\d{2}-\d{2}$`)
	// Shorter digit runs are years or day numbers, not serials.
	serialDate = regexp.MustCompile(`^\d{5,}(\.\d+)?$`)

	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		"2/1/2006 15:04:05",
		"2/1/2006 15:04",
		"2/1/2006",
		"2-1-2006",
		"2.1.2006",
		"2/1/06",
		"2-1-06",
		"2.1.06",
		"2 Jan 2006",
		"02-Jan-2006",
		"2-Jan-06",
		"Jan 2, 2006",
		"2006",
	}
)

// ParseDate accepts ISO dates, day-first dates, bare years and spreadsheet
// serial numbers of five or more digits. Anything unparseable yields nil.
// The result is the calendar date at UTC midnight.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if IsNull(s) || brokenSerial.MatchString(s) {
		return nil
	}
	if serialDate.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return fromSerial(f)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

func fromSerial(f float64) *time.Time {
	if math.IsNaN(f) || f <= 0 || f > maxSerial {
		return nil
	}
	d := serialEpoch.AddDate(0, 0, int(f))
	return &d
}

// NormalizeCode renders numeric codes without a fractional part, so a cell
// read as 1001.0 and one read as "1001" name the same project.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
