package services

import (
	"context"
	"slices"
	"time"

	"github.com/deliverypulse/engine/internal/indicators"
	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/pkg/logger"
	"go.uber.org/zap"
)

// IndicatorService evaluates traffic lights over a project's history.
type IndicatorService interface {
	Compute(ctx context.Context, code string) (*IndicatorResult, error)
	Series(ctx context.Context, code string, limit int, newestFirst bool) ([]SnapshotSummary, error)
}

// IndicatorResult is the indicator report for one project.
type IndicatorResult struct {
	ProjectCode string  `json:"project_code"`
	ProjectName *string `json:"project_name"`
	Snapshots   int     `json:"snapshots"`
	indicators.Report
	Changes []indicators.Change `json:"changes"`
}

// SnapshotSummary is the compact per-week view used by the series endpoint.
type SnapshotSummary struct {
	Year             int       `json:"year"`
	Week             int       `json:"week"`
	SnapshotAt       time.Time `json:"snapshot_at"`
	ProgressW        *float64  `json:"progress_w"`
	RealHours        *float64  `json:"real_hours"`
	TheoreticalHours *float64  `json:"theoretical_hours"`
	DeviationPct     *float64  `json:"deviation_pct"`
	OrderedTotal     *float64  `json:"ordered_total"`
	models.Deltas
}

type indicatorService struct {
	store *repository.Store
}

func NewIndicatorService(store *repository.Store) IndicatorService {
	return &indicatorService{store: store}
}

var _ IndicatorService = (*indicatorService)(nil)

func (s *indicatorService) Compute(ctx context.Context, code string) (*IndicatorResult, error) {
	p, err := s.store.Projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	hist, err := s.store.Snapshots.History(ctx, p.ID, 0)
	if err != nil {
		return nil, err
	}
	res := &IndicatorResult{
		ProjectCode: p.Code,
		ProjectName: p.Name,
		Snapshots:   len(hist),
		Report:      indicators.Evaluate(hist),
		Changes:     indicators.Changes(hist),
	}
	if res.Changes == nil {
		res.Changes = []indicators.Change{}
	}
	logger.L().Debug("indicators computed",
		zap.String("project_code", p.Code),
		zap.Int("snapshots", len(hist)),
		zap.String("aggregate", string(res.Aggregate)),
	)
	return res, nil
}

func (s *indicatorService) Series(ctx context.Context, code string, limit int, newestFirst bool) ([]SnapshotSummary, error) {
	p, err := s.store.Projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	hist, err := s.store.Snapshots.History(ctx, p.ID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotSummary, len(hist))
	for i, h := range hist {
		out[i] = summarize(h)
	}
	if newestFirst {
		slices.Reverse(out)
	}
	return out, nil
}

func summarize(h models.Snapshot) SnapshotSummary {
	return SnapshotSummary{
		Year:             h.SnapshotYear,
		Week:             h.SnapshotWeek,
		SnapshotAt:       h.SnapshotAt,
		ProgressW:        h.ProgressW,
		RealHours:        h.RealHours,
		TheoreticalHours: h.TheoreticalHours,
		DeviationPct:     h.DeviationPct,
		OrderedTotal:     h.OrderedTotal,
		Deltas:           h.Deltas,
	}
}
