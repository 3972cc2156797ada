package services

import (
	"context"
	"slices"
	"strings"

	"github.com/deliverypulse/engine/internal/indicators"
	"github.com/deliverypulse/engine/internal/mapper"
	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/repository"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// deviationWeeks is how many recent weeks the deviation report carries.
const deviationWeeks = 5

// ReportService builds the cross-project views.
type ReportService interface {
	Deviations(ctx context.Context, filter repository.SnapshotFilter) ([]DeviationRow, error)
	Filters(ctx context.Context) (*FilterOptions, error)
	Portfolio(ctx context.Context, manager string) ([]PortfolioEntry, error)
}

// DeviationWeek is one week of the deviation report.
type DeviationWeek struct {
	Year         int      `json:"year"`
	Week         int      `json:"week"`
	OrderedTotal *float64 `json:"ordered_total"`
	RealHours    *float64 `json:"real_hours"`
	DeviationPct *float64 `json:"deviation_pct"`
}

// DeviationRow is a project whose latest two weeks both show a deviation.
type DeviationRow struct {
	ProjectCode string          `json:"project_code"`
	ProjectName string          `json:"project_name"`
	Team        *string         `json:"team"`
	OrderPhase  *string         `json:"order_phase"`
	Comment     *string         `json:"comment"`
	Weeks       []DeviationWeek `json:"weeks"`
}

// FilterOptions lists the values the deviation report can be filtered by.
type FilterOptions struct {
	Teams       []string `json:"teams"`
	OrderPhases []string `json:"order_phases"`
}

// PortfolioEntry is one project in a manager's portfolio.
type PortfolioEntry struct {
	ProjectCode  string           `json:"project_code"`
	ProjectName  string           `json:"project_name"`
	Client       *string          `json:"client"`
	IsHistorical bool             `json:"is_historical"`
	Year         int              `json:"year"`
	Week         int              `json:"week"`
	ProgressW    *float64         `json:"progress_w"`
	OrderedTotal *float64         `json:"ordered_total"`
	RealHours    *float64         `json:"real_hours"`
	DeviationPct *float64         `json:"deviation_pct"`
	Indicator    indicators.Color `json:"indicator"`
}

type reportService struct {
	store *repository.Store
}

func NewReportService(store *repository.Store) ReportService {
	return &reportService{store: store}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) Deviations(ctx context.Context, filter repository.SnapshotFilter) ([]DeviationRow, error) {
	byProject, err := s.store.Snapshots.LatestPerProject(ctx, deviationWeeks, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(byProject))
	for id, snaps := range byProject {
		if len(snaps) >= 2 && deviating(snaps[0]) && deviating(snaps[1]) {
			ids = append(ids, id)
		}
	}
	projects, err := s.store.Projects.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]DeviationRow, 0, len(projects))
	for _, p := range projects {
		snaps := byProject[p.ID]
		latest := snaps[0]
		row := DeviationRow{
			ProjectCode: p.Code,
			ProjectName: p.DisplayName(),
			Team:        latest.Team,
			OrderPhase:  latest.OrderPhase,
			Comment:     p.Comments,
			Weeks:       make([]DeviationWeek, len(snaps)),
		}
		if row.Comment == nil {
			row.Comment = latest.Comments
		}
		for i, sn := range snaps {
			row.Weeks[i] = DeviationWeek{
				Year:         sn.SnapshotYear,
				Week:         sn.SnapshotWeek,
				OrderedTotal: orderedTotal(sn.SnapshotMetrics),
				RealHours:    sn.RealHours,
				DeviationPct: sn.DeviationPct,
			}
		}
		rows = append(rows, row)
	}
	sortByName(rows, func(r DeviationRow) (string, string) { return r.ProjectName, r.ProjectCode })

	logger.L().Info("deviation report",
		zap.String("team", filter.Team),
		zap.String("order_phase", filter.OrderPhase),
		zap.Int("projects", len(rows)),
	)
	return rows, nil
}

func (s *reportService) Filters(ctx context.Context) (*FilterOptions, error) {
	teams, err := s.store.Snapshots.DistinctTeams(ctx)
	if err != nil {
		return nil, err
	}
	phases, err := s.store.Snapshots.DistinctOrderPhases(ctx)
	if err != nil {
		return nil, err
	}
	return &FilterOptions{Teams: nonNil(teams), OrderPhases: nonNil(phases)}, nil
}

func (s *reportService) Portfolio(ctx context.Context, manager string) ([]PortfolioEntry, error) {
	manager = strings.TrimSpace(manager)
	if manager == "" {
		return nil, appErr.New(appErr.CodeInvalid, "manager name is required")
	}
	projects, err := s.store.Projects.ListByManager(ctx, manager)
	if err != nil {
		return nil, err
	}

	out := make([]PortfolioEntry, 0, len(projects))
	for _, p := range projects {
		hist, err := s.store.Snapshots.History(ctx, p.ID, 0)
		if err != nil {
			return nil, err
		}
		e := PortfolioEntry{
			ProjectCode:  p.Code,
			ProjectName:  p.DisplayName(),
			Client:       p.Client,
			IsHistorical: p.IsHistorical,
			Indicator:    indicators.Evaluate(hist).Aggregate,
		}
		if n := len(hist); n > 0 {
			latest := hist[n-1]
			e.Year, e.Week = latest.SnapshotYear, latest.SnapshotWeek
			e.ProgressW = latest.ProgressW
			e.OrderedTotal = orderedTotal(latest.SnapshotMetrics)
			e.RealHours = latest.RealHours
			e.DeviationPct = latest.DeviationPct
		}
		out = append(out, e)
	}
	sortByName(out, func(e PortfolioEntry) (string, string) { return e.ProjectName, e.ProjectCode })

	logger.L().Info("manager portfolio", zap.String("manager", manager), zap.Int("projects", len(out)))
	return out, nil
}

func deviating(s models.Snapshot) bool {
	return s.DeviationPct != nil && *s.DeviationPct != 0
}

// orderedTotal falls back to the sum of the ordered parts for snapshots
// stored without a total.
func orderedTotal(m models.SnapshotMetrics) *float64 {
	if m.OrderedTotal != nil {
		return m.OrderedTotal
	}
	return mapper.OrderedTotal(m.OrderedN, m.OrderedE)
}

func sortByName[T any](items []T, key func(T) (name, code string)) {
	slices.SortStableFunc(items, func(a, b T) int {
		an, ac := key(a)
		bn, bc := key(b)
		if c := strings.Compare(strings.ToLower(an), strings.ToLower(bn)); c != 0 {
			return c
		}
		return strings.Compare(ac, bc)
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
