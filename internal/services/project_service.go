package services

import (
	"context"
	"strings"
	"time"

	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/repository"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"go.uber.org/zap"
)

// ProjectService reads project state and maintains the hand-edited project fields.
type ProjectService interface {
	Search(ctx context.Context, q string, limit int) ([]models.Project, error)
	Overview(ctx context.Context, code string, weeksBack int) (*ProjectOverview, error)
	Details(ctx context.Context, code string) (*ProjectDetails, error)
	WeeklyMetrics(ctx context.Context, code string) ([]WeeklyPoint, error)
	PhaseHistory(ctx context.Context, code string) ([]PhasePoint, error)

	SetPhaseHours(ctx context.Context, code, phase string, hours *float64) (*models.Project, error)
	SetRoleHours(ctx context.Context, code, role string, hours *float64) (*models.Project, error)
	SetComment(ctx context.Context, code string, comment *string) (*models.Project, error)

	ListHistorical(ctx context.Context) ([]models.HistoricalRecord, error)
}

// SeriesPoint is one week of the overview chart.
type SeriesPoint struct {
	Year           int       `json:"year"`
	Week           int       `json:"week"`
	SnapshotAt     time.Time `json:"snapshot_at"`
	ProgressC      *float64  `json:"progress_c"`
	DeviationCD    *float64  `json:"deviation_cd"`
	PaymentPending *float64  `json:"payment_pending"`
	DistC          *float64  `json:"dist_c"`
	DistPM         *float64  `json:"dist_pm"`
	DistE          *float64  `json:"dist_e"`
}

// ProjectOverview is a project with its newest snapshot and recent weeks.
type ProjectOverview struct {
	Project *models.Project  `json:"project"`
	State   ProjectState     `json:"state"`
	Latest  *models.Snapshot `json:"latest"`
	Series  []SeriesPoint    `json:"series"`
}

// ProjectDetails adds the hand-maintained fields to the newest snapshot.
type ProjectDetails struct {
	Project            *models.Project          `json:"project"`
	Latest             *models.Snapshot         `json:"latest"`
	AssignedHoursPhase map[models.Phase]float64 `json:"assigned_hours_phase"`
	AssignedHoursRole  map[models.Role]float64  `json:"assigned_hours_role"`
	ProjectComment     *string                  `json:"project_comment"`
	ExcelComment       *string                  `json:"excel_comment"`
}

// WeeklyPoint is one week of hour and progress metrics.
type WeeklyPoint struct {
	Year             int      `json:"year"`
	Week             int      `json:"week"`
	ProgressW        *float64 `json:"progress_w"`
	DeviationPct     *float64 `json:"deviation_pct"`
	RealHours        *float64 `json:"real_hours"`
	TheoreticalHours *float64 `json:"theoretical_hours"`
	models.Deltas
}

// PhasePoint is the milestone plan as recorded in one week.
type PhasePoint struct {
	Year int `json:"year"`
	Week int `json:"week"`
	models.Milestones
}

type projectService struct {
	store *repository.Store
}

func NewProjectService(store *repository.Store) ProjectService {
	return &projectService{store: store}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

func (s *projectService) Search(ctx context.Context, q string, limit int) ([]models.Project, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, appErr.New(appErr.CodeInvalid, "search query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	logger.L().Info("search projects", zap.String("q", q), zap.Int("limit", limit))
	return s.store.Projects.Search(ctx, q, limit)
}

func (s *projectService) Overview(ctx context.Context, code string, weeksBack int) (*ProjectOverview, error) {
	logger.L().Info("project overview", zap.String("project_code", code), zap.Int("weeks_back", weeksBack))
	p, err := s.store.Projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if weeksBack <= 0 {
		weeksBack = 20
	}
	hist, err := s.store.Snapshots.History(ctx, p.ID, weeksBack)
	if err != nil {
		return nil, err
	}
	if len(hist) == 0 {
		return nil, appErr.New(appErr.CodeNotFound, "no snapshots for project").WithMeta("project_code", code)
	}

	series := make([]SeriesPoint, len(hist))
	for i, h := range hist {
		series[i] = SeriesPoint{
			Year:           h.SnapshotYear,
			Week:           h.SnapshotWeek,
			SnapshotAt:     h.SnapshotAt,
			ProgressC:      h.ProgressC,
			DeviationCD:    h.DeviationCD,
			PaymentPending: h.PaymentPending,
			DistC:          h.DistC,
			DistPM:         h.DistPM,
			DistE:          h.DistE,
		}
	}
	latest := hist[len(hist)-1]
	return &ProjectOverview{Project: p, State: StateOf(p), Latest: &latest, Series: series}, nil
}

func (s *projectService) Details(ctx context.Context, code string) (*ProjectDetails, error) {
	logger.L().Info("project details", zap.String("project_code", code))
	p, err := s.store.Projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.Snapshots.Latest(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, appErr.New(appErr.CodeNotFound, "no snapshots for project").WithMeta("project_code", code)
	}
	excel, err := s.store.Snapshots.LatestComment(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	comment := p.Comments
	if comment == nil {
		comment = excel
	}
	return &ProjectDetails{
		Project:            p,
		Latest:             latest,
		AssignedHoursPhase: p.ByPhase(),
		AssignedHoursRole:  p.ByRole(),
		ProjectComment:     comment,
		ExcelComment:       excel,
	}, nil
}

func (s *projectService) WeeklyMetrics(ctx context.Context, code string) ([]WeeklyPoint, error) {
	hist, err := s.history(ctx, code)
	if err != nil {
		return nil, err
	}
	out := make([]WeeklyPoint, len(hist))
	for i, h := range hist {
		out[i] = WeeklyPoint{
			Year:             h.SnapshotYear,
			Week:             h.SnapshotWeek,
			ProgressW:        h.ProgressW,
			DeviationPct:     h.DeviationPct,
			RealHours:        h.RealHours,
			TheoreticalHours: h.TheoreticalHours,
			Deltas:           h.Deltas,
		}
	}
	return out, nil
}

func (s *projectService) PhaseHistory(ctx context.Context, code string) ([]PhasePoint, error) {
	hist, err := s.history(ctx, code)
	if err != nil {
		return nil, err
	}
	out := make([]PhasePoint, len(hist))
	for i, h := range hist {
		out[i] = PhasePoint{Year: h.SnapshotYear, Week: h.SnapshotWeek, Milestones: h.Milestones}
	}
	return out, nil
}

func (s *projectService) history(ctx context.Context, code string) ([]models.Snapshot, error) {
	p, err := s.store.Projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.store.Snapshots.History(ctx, p.ID, 0)
}

func (s *projectService) SetPhaseHours(ctx context.Context, code, phase string, hours *float64) (*models.Project, error) {
	ph := models.Phase(strings.ToLower(strings.TrimSpace(phase)))
	if _, ok := new(models.AssignedHours).PhaseField(ph); !ok {
		return nil, appErr.Newf(appErr.CodeInvalid, "invalid phase %q", phase).WithMeta("phase", phase)
	}
	logger.L().Info("set phase hours", zap.String("project_code", code), zap.String("phase", string(ph)))
	return s.store.Projects.SetPhaseHours(ctx, code, ph, valueOrZero(hours))
}

func (s *projectService) SetRoleHours(ctx context.Context, code, role string, hours *float64) (*models.Project, error) {
	r := models.Role(strings.ToLower(strings.TrimSpace(role)))
	if _, ok := new(models.AssignedHours).RoleField(r); !ok {
		return nil, appErr.Newf(appErr.CodeInvalid, "invalid role %q", role).WithMeta("role", role)
	}
	logger.L().Info("set role hours", zap.String("project_code", code), zap.String("role", string(r)))
	return s.store.Projects.SetRoleHours(ctx, code, r, valueOrZero(hours))
}

func (s *projectService) SetComment(ctx context.Context, code string, comment *string) (*models.Project, error) {
	logger.L().Info("set project comment", zap.String("project_code", code), zap.Bool("clear", comment == nil))
	return s.store.Projects.SetComment(ctx, code, comment)
}

func (s *projectService) ListHistorical(ctx context.Context) ([]models.HistoricalRecord, error) {
	return s.store.Historical.List(ctx)
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
