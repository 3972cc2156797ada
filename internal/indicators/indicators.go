// Package indicators derives traffic-light signals from a project's snapshot history.
//
// Every function expects history ordered oldest to newest. Orange doubles as
// the "not enough data" answer; none of these functions fail.
package indicators

import (
	"github.com/deliverypulse/engine/internal/models"
)

// Color is a traffic-light signal.
type Color string

const (
	Red    Color = "red"
	Amber  Color = "amber"
	Orange Color = "orange"
	Green  Color = "green"
)

// Fold collapses amber into orange for display.
func (c Color) Fold() Color {
	switch c {
	case Red, Green:
		return c
	default:
		return Orange
	}
}

// Report holds the three folded indicators and their aggregate.
type Report struct {
	Productivity Color `json:"productivity"`
	Deviation    Color `json:"deviation"`
	Phase        Color `json:"phase"`
	Aggregate    Color `json:"aggregate"`
}

// Evaluate computes every indicator for history.
func Evaluate(history []models.Snapshot) Report {
	r := Report{
		Productivity: Productivity(history).Fold(),
		Deviation:    Deviation(history).Fold(),
		Phase:        Phase(history).Fold(),
	}
	r.Aggregate = Aggregate(r.Productivity, r.Deviation, r.Phase)
	return r
}

// Aggregate returns the worst of the folded colors.
func Aggregate(colors ...Color) Color {
	worst := Green
	for _, c := range colors {
		switch c.Fold() {
		case Red:
			return Red
		case Orange:
			worst = Orange
		}
	}
	return worst
}

func lastTwo(history []models.Snapshot) (prev, latest *models.Snapshot, ok bool) {
	if len(history) < 2 {
		return nil, nil, false
	}
	return &history[len(history)-2], &history[len(history)-1], true
}

// Productivity compares hours spent against progress made in the latest week.
func Productivity(history []models.Snapshot) Color {
	prev, latest, ok := lastTwo(history)
	if !ok {
		return Orange
	}
	if latest.RealHours == nil || prev.RealHours == nil || latest.ProgressW == nil || prev.ProgressW == nil {
		return Orange
	}

	spent, prevSpent := *latest.RealHours, *prev.RealHours
	switch {
	case spent > prevSpent && *latest.ProgressW <= *prev.ProgressW:
		return Red
	case latest.TheoreticalHours != nil && spent > *latest.TheoreticalHours:
		return Amber
	case prev.TheoreticalHours != nil && spent < *prev.TheoreticalHours:
		return Green
	default:
		return Orange
	}
}

// Deviation tracks the direction of the deviation percentage.
func Deviation(history []models.Snapshot) Color {
	prev, latest, ok := lastTwo(history)
	if !ok || latest.DeviationPct == nil || prev.DeviationPct == nil {
		return Orange
	}
	switch cur, before := *latest.DeviationPct, *prev.DeviationPct; {
	case cur > before:
		return Red
	case cur == before:
		return Amber
	default:
		return Green
	}
}

// Direction classifies how a milestone date moved between two snapshots.
type Direction string

const (
	Later   Direction = "later"
	Earlier Direction = "earlier"
	Unknown Direction = "unknown"
)

// Change is one milestone movement between consecutive snapshots.
type Change struct {
	Milestone models.MilestoneKey `json:"milestone"`
	Year      int                 `json:"year"`
	Week      int                 `json:"week"`
	Direction Direction           `json:"direction"`
}

// Changes lists every milestone movement across the whole history, in order.
func Changes(history []models.Snapshot) []Change {
	var out []Change
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1].Milestones, history[i].Milestones
		for _, key := range models.MilestoneKeys {
			a, b := prev.Get(key), cur.Get(key)
			var dir Direction
			switch {
			case a == nil && b == nil:
				continue
			case a == nil || b == nil:
				dir = Unknown
			case b.After(*a):
				dir = Later
			case b.Before(*a):
				dir = Earlier
			default:
				continue
			}
			out = append(out, Change{Milestone: key, Year: history[i].SnapshotYear, Week: history[i].SnapshotWeek, Direction: dir})
		}
	}
	return out
}

// Phase is red if any milestone ever slipped, else green if any was pulled
// forward, else orange.
func Phase(history []models.Snapshot) Color {
	var earlier bool
	for _, c := range Changes(history) {
		switch c.Direction {
		case Later:
			return Red
		case Earlier:
			earlier = true
		}
	}
	if earlier {
		return Green
	}
	return Orange
}
