package services

import (
	"github.com/deliverypulse/engine/internal/mapper"
	"github.com/deliverypulse/engine/internal/models"
)

// ComputeDeltas compares cur with the chronologically preceding snapshot.
// With no predecessor every delta is nil.
func ComputeDeltas(prev *models.SnapshotMetrics, cur models.SnapshotMetrics) models.Deltas {
	if prev == nil {
		return models.Deltas{}
	}
	d := models.Deltas{
		ProgressWDelta:        mapper.Sub(cur.ProgressW, prev.ProgressW),
		RealHoursDelta:        mapper.Sub(cur.RealHours, prev.RealHours),
		OrderedTotalDelta:     mapper.Sub(cur.OrderedTotal, prev.OrderedTotal),
		TheoreticalHoursDelta: mapper.Sub(cur.TheoreticalHours, prev.TheoreticalHours),
		DeviationPctDelta:     mapper.Sub(cur.DeviationPct, prev.DeviationPct),
	}
	d.ProductivityRatio = mapper.Ratio(d.RealHoursDelta, d.TheoreticalHoursDelta, 1)
	return d
}
