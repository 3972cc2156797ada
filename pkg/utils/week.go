package utils

import "fmt"

// WeekLabel renders a snapshot year/week as an ISO-style label, e.g. 2026-W06.
func WeekLabel(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
