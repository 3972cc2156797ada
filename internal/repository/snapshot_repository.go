package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/deliverypulse/engine/internal/models"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Snapshot orderings by week, breaking same-week ties by capture time.
const (
	newestFirst = "snapshot_year DESC, snapshot_week DESC, snapshot_at DESC"
	oldestFirst = "snapshot_year ASC, snapshot_week ASC, snapshot_at ASC"
)

type SnapshotRepository interface {
	// Upsert inserts the (project, year, week) snapshot or merges metrics
	// into the stored one. created reports which happened.
	Upsert(ctx context.Context, projectID uuid.UUID, batchID *uuid.UUID, year, week int, metrics models.SnapshotMetrics) (snap *models.Snapshot, created bool, err error)
	// Previous returns the snapshot with the greatest (year, week) strictly
	// before the given week, or nil when there is none.
	Previous(ctx context.Context, projectID uuid.UUID, year, week int) (*models.Snapshot, error)
	// Next returns the snapshot with the smallest (year, week) strictly after
	// the given week, or nil when there is none.
	Next(ctx context.Context, projectID uuid.UUID, year, week int) (*models.Snapshot, error)
	// SetDeltas overwrites every delta column of one snapshot, nulls included.
	SetDeltas(ctx context.Context, id uuid.UUID, d models.Deltas) error
	// Latest returns the newest snapshot, or nil when the project has none.
	Latest(ctx context.Context, projectID uuid.UUID) (*models.Snapshot, error)
	// History returns up to limit of the newest snapshots ordered oldest to
	// newest. limit <= 0 returns the whole history.
	History(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Snapshot, error)
	// LatestPerProject returns up to perProject newest snapshots for every
	// project, newest first within each project.
	LatestPerProject(ctx context.Context, perProject int, filter SnapshotFilter) (map[uuid.UUID][]models.Snapshot, error)
	DistinctTeams(ctx context.Context) ([]string, error)
	DistinctOrderPhases(ctx context.Context) ([]string, error)
	// LatestComment returns the newest non-empty spreadsheet comment.
	LatestComment(ctx context.Context, projectID uuid.UUID) (*string, error)
}

// SnapshotFilter narrows report queries. Empty fields match everything.
type SnapshotFilter struct {
	Team       string
	OrderPhase string
}

type snapshotRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db, now: time.Now}
}

func (r *snapshotRepository) Upsert(ctx context.Context, projectID uuid.UUID, batchID *uuid.UUID, year, week int, metrics models.SnapshotMetrics) (*models.Snapshot, bool, error) {
	db := r.db.WithContext(ctx)
	now := r.now().UTC()

	s := &models.Snapshot{
		ProjectID:       projectID,
		ImportBatchID:   batchID,
		SnapshotYear:    year,
		SnapshotWeek:    week,
		SnapshotAt:      now,
		SnapshotMetrics: metrics,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "snapshot_year"}, {Name: "snapshot_week"}},
		DoNothing: true,
	}).Create(s)
	if res.Error != nil {
		return nil, false, classify(res.Error, "insert snapshot failed")
	}
	if res.RowsAffected == 1 {
		return s, true, nil
	}

	var existing models.Snapshot
	err := forUpdate(db).
		Where("project_id = ? AND snapshot_year = ? AND snapshot_week = ?", projectID, year, week).
		First(&existing).Error
	if err != nil {
		return nil, false, classify(err, "lock snapshot failed")
	}
	MergeSnapshot(&existing.SnapshotMetrics, metrics)
	if batchID != nil {
		existing.ImportBatchID = batchID
	}
	existing.SnapshotAt = now
	if err := db.Save(&existing).Error; err != nil {
		return nil, false, classify(err, "update snapshot failed")
	}
	return &existing, false, nil
}

func (r *snapshotRepository) Previous(ctx context.Context, projectID uuid.UUID, year, week int) (*models.Snapshot, error) {
	return r.first(r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("snapshot_year < ? OR (snapshot_year = ? AND snapshot_week < ?)", year, year, week), newestFirst)
}

func (r *snapshotRepository) Next(ctx context.Context, projectID uuid.UUID, year, week int) (*models.Snapshot, error) {
	return r.first(r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("snapshot_year > ? OR (snapshot_year = ? AND snapshot_week > ?)", year, year, week), oldestFirst)
}

func (r *snapshotRepository) SetDeltas(ctx context.Context, id uuid.UUID, d models.Deltas) error {
	res := r.db.WithContext(ctx).Model(&models.Snapshot{}).Where("id = ?", id).Updates(map[string]any{
		"progress_w_delta":        d.ProgressWDelta,
		"real_hours_delta":        d.RealHoursDelta,
		"ordered_total_delta":     d.OrderedTotalDelta,
		"theoretical_hours_delta": d.TheoreticalHoursDelta,
		"deviation_pct_delta":     d.DeviationPctDelta,
		"productivity_ratio":      d.ProductivityRatio,
	})
	if res.Error != nil {
		return classify(res.Error, "update snapshot deltas failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "snapshot not found").WithMeta("id", id.String())
	}
	return nil
}

func (r *snapshotRepository) Latest(ctx context.Context, projectID uuid.UUID) (*models.Snapshot, error) {
	return r.first(r.db.WithContext(ctx).Where("project_id = ?", projectID), newestFirst)
}

func (r *snapshotRepository) first(q *gorm.DB, order string) (*models.Snapshot, error) {
	var s models.Snapshot
	if err := q.Order(order).Limit(1).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err, "get snapshot failed")
	}
	return &s, nil
}

func (r *snapshotRepository) History(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Snapshot, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Snapshot
	if err := q.Find(&out).Error; err != nil {
		return nil, classify(err, "list snapshots failed")
	}
	slices.Reverse(out)
	return out, nil
}

func (r *snapshotRepository) LatestPerProject(ctx context.Context, perProject int, filter SnapshotFilter) (map[uuid.UUID][]models.Snapshot, error) {
	ranked := r.db.WithContext(ctx).
		Model(&models.Snapshot{}).
		Select("project_snapshots.*, ROW_NUMBER() OVER (PARTITION BY project_id ORDER BY " + newestFirst + ") AS rn")
	if filter.Team != "" {
		ranked = ranked.Where("team = ?", filter.Team)
	}
	if filter.OrderPhase != "" {
		ranked = ranked.Where("order_phase = ?", filter.OrderPhase)
	}

	var rows []models.Snapshot
	err := r.db.WithContext(ctx).
		Table("(?) AS ranked", ranked).
		Where("rn <= ?", perProject).
		Order("project_id, rn").
		Find(&rows).Error
	if err != nil {
		return nil, classify(err, "rank snapshots failed")
	}

	out := make(map[uuid.UUID][]models.Snapshot)
	for _, s := range rows {
		out[s.ProjectID] = append(out[s.ProjectID], s)
	}
	return out, nil
}

func (r *snapshotRepository) DistinctTeams(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "team")
}

func (r *snapshotRepository) DistinctOrderPhases(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "order_phase")
}

// distinct is only called with fixed column names.
func (r *snapshotRepository) distinct(ctx context.Context, column string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).
		Model(&models.Snapshot{}).
		Where(clause.Neq{Column: clause.Column{Name: column}, Value: ""}).
		Order(column).
		Distinct().
		Pluck(column, &out).Error
	if err != nil {
		return nil, classify(err, "list distinct "+column+" failed")
	}
	return out, nil
}

func (r *snapshotRepository) LatestComment(ctx context.Context, projectID uuid.UUID) (*string, error) {
	s, err := r.first(r.db.WithContext(ctx).
		Where("project_id = ? AND comments IS NOT NULL AND comments <> ''", projectID), newestFirst)
	if err != nil || s == nil {
		return nil, err
	}
	return s.Comments, nil
}
