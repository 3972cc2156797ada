package repository

import (
	"context"
	"testing"
	"time"

	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/testutil"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	f = testutil.Float
	s = testutil.String
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestMergeSnapshotNonNilWins(t *testing.T) {
	dst := models.SnapshotMetrics{
		RealHours: f(10),
		ProgressW: f(20),
		Team:      s("Blue"),
		Milestones: models.Milestones{
			DateKickoff: date(2024, 1, 1),
			DateGolive:  date(2024, 6, 1),
		},
		Deltas: models.Deltas{RealHoursDelta: f(4)},
	}
	MergeSnapshot(&dst, models.SnapshotMetrics{
		RealHours:  f(12),
		OrderPhase: s("Build"),
		Milestones: models.Milestones{DateKickoff: date(2024, 1, 8)},
	})

	assert.Equal(t, 12.0, *dst.RealHours)
	assert.Equal(t, 20.0, *dst.ProgressW)
	assert.Equal(t, "Blue", *dst.Team)
	assert.Equal(t, "Build", *dst.OrderPhase)
	assert.Equal(t, 4.0, *dst.RealHoursDelta)
	assert.Equal(t, *date(2024, 1, 8), *dst.DateKickoff)
	assert.Nil(t, dst.DateGolive, "cleared milestone must propagate")
}

func TestMergeSnapshotZeroIsAValue(t *testing.T) {
	dst := models.SnapshotMetrics{DeviationPct: f(5)}
	MergeSnapshot(&dst, models.SnapshotMetrics{DeviationPct: f(0)})
	assert.Equal(t, 0.0, *dst.DeviationPct)
}

func TestMergeDoesNotAlias(t *testing.T) {
	in := models.ProjectAttributes{Client: s("Acme")}
	var dst models.ProjectAttributes
	MergeAttributes(&dst, in)
	*in.Client = "Other"
	assert.Equal(t, "Acme", *dst.Client)
}

func TestProjectUpsertMerges(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(testutil.NewDB(t))

	first, err := repo.Upsert(ctx, "P1", models.ProjectAttributes{Name: s("Alpha"), Client: s("Acme")})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, "P1", models.ProjectAttributes{Team: s("Blue")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetByCode(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", *got.Name)
	assert.Equal(t, "Acme", *got.Client)
	assert.Equal(t, "Blue", *got.Team)
	assert.False(t, got.IsHistorical)
}

func TestProjectGetByCodeNotFound(t *testing.T) {
	_, err := NewProjectRepository(testutil.NewDB(t)).GetByCode(context.Background(), "missing")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestProjectSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(testutil.NewDB(t))
	for code, attrs := range map[string]models.ProjectAttributes{
		"1001": {Name: s("Warehouse North"), Client: s("Acme")},
		"1002": {Name: s("Conveyor"), Client: s("Globex")},
		"2001": {Name: s("100% Shuttle")},
	} {
		_, err := repo.Upsert(ctx, code, attrs)
		require.NoError(t, err)
	}

	got, err := repo.Search(ctx, "ACME", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1001", got[0].Code)

	got, err = repo.Search(ctx, "100", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2001", got[0].Code)

	got, err = repo.Search(ctx, "0", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestProjectAssignedHoursAndComment(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(testutil.NewDB(t))
	_, err := repo.Upsert(ctx, "P1", models.ProjectAttributes{})
	require.NoError(t, err)

	p, err := repo.SetPhaseHours(ctx, "P1", models.PhaseDesign, 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, p.HoursDesign)

	p, err = repo.SetRoleHours(ctx, "P1", models.RolePM, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, p.HoursPM)
	assert.Equal(t, 40.0, p.HoursDesign)

	_, err = repo.SetPhaseHours(ctx, "P1", models.Phase("qa"), 1)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = repo.SetRoleHours(ctx, "nope", models.RolePM, 1)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	p, err = repo.SetComment(ctx, "P1", s("waiting on client"))
	require.NoError(t, err)
	assert.Equal(t, "waiting on client", *p.Comments)

	p, err = repo.SetComment(ctx, "P1", nil)
	require.NoError(t, err)
	assert.Nil(t, p.Comments)
}

func TestSnapshotUpsertMergeAndMilestoneOverwrite(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	projects := NewProjectRepository(db)
	repo := NewSnapshotRepository(db)

	p, err := projects.Upsert(ctx, "P1", models.ProjectAttributes{})
	require.NoError(t, err)

	first, created, err := repo.Upsert(ctx, p.ID, nil, 2024, 10, models.SnapshotMetrics{
		RealHours:  f(10),
		ProgressW:  f(30),
		Milestones: models.Milestones{DateDesign: date(2024, 4, 1)},
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.Upsert(ctx, p.ID, nil, 2024, 10, models.SnapshotMetrics{RealHours: f(11)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.SnapshotAt.Before(first.SnapshotAt))

	hist, err := repo.History(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	got, err := repo.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 11.0, *got.RealHours)
	assert.Equal(t, 30.0, *got.ProgressW)
	assert.Nil(t, got.DateDesign)
}

func TestSnapshotPreviousIgnoresInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	p, err := NewProjectRepository(db).Upsert(ctx, "P1", models.ProjectAttributes{})
	require.NoError(t, err)
	repo := NewSnapshotRepository(db)

	for _, wk := range [][3]float64{{2024, 12, 30}, {2023, 52, 5}, {2024, 3, 10}, {2024, 20, 50}} {
		_, _, err := repo.Upsert(ctx, p.ID, nil, int(wk[0]), int(wk[1]), models.SnapshotMetrics{RealHours: f(wk[2])})
		require.NoError(t, err)
	}

	prev, err := repo.Previous(ctx, p.ID, 2024, 12)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 3, prev.SnapshotWeek)

	prev, err = repo.Previous(ctx, p.ID, 2024, 3)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 2023, prev.SnapshotYear)

	prev, err = repo.Previous(ctx, p.ID, 2023, 52)
	require.NoError(t, err)
	assert.Nil(t, prev)

	hist, err := repo.History(ctx, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, []int{3, 12, 20}, []int{hist[0].SnapshotWeek, hist[1].SnapshotWeek, hist[2].SnapshotWeek})

	latest, err := repo.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, latest.SnapshotWeek)

	none, err := repo.Latest(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSnapshotNextAndSetDeltas(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	p, err := NewProjectRepository(db).Upsert(ctx, "P1", models.ProjectAttributes{})
	require.NoError(t, err)
	repo := NewSnapshotRepository(db)

	for _, wk := range [][2]int{{2024, 20}, {2023, 52}, {2024, 3}} {
		_, _, err := repo.Upsert(ctx, p.ID, nil, wk[0], wk[1], models.SnapshotMetrics{
			Deltas: models.Deltas{RealHoursDelta: f(1), ProgressWDelta: f(2)},
		})
		require.NoError(t, err)
	}

	next, err := repo.Next(ctx, p.ID, 2023, 52)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 3, next.SnapshotWeek)

	next, err = repo.Next(ctx, p.ID, 2024, 3)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 20, next.SnapshotWeek)

	none, err := repo.Next(ctx, p.ID, 2024, 20)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.SetDeltas(ctx, next.ID, models.Deltas{RealHoursDelta: f(40)}))
	got, err := repo.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, *got.RealHoursDelta)
	assert.Nil(t, got.ProgressWDelta, "absent deltas are cleared")

	err = repo.SetDeltas(ctx, uuid.New(), models.Deltas{})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestSnapshotLatestPerProjectAndFilters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	projects := NewProjectRepository(db)
	repo := NewSnapshotRepository(db)

	a, err := projects.Upsert(ctx, "A", models.ProjectAttributes{})
	require.NoError(t, err)
	b, err := projects.Upsert(ctx, "B", models.ProjectAttributes{})
	require.NoError(t, err)

	for w := 1; w <= 7; w++ {
		_, _, err := repo.Upsert(ctx, a.ID, nil, 2024, w, models.SnapshotMetrics{Team: s("Blue"), OrderPhase: s("Build")})
		require.NoError(t, err)
	}
	_, _, err = repo.Upsert(ctx, b.ID, nil, 2024, 1, models.SnapshotMetrics{Team: s("Red"), OrderPhase: s("")})
	require.NoError(t, err)

	all, err := repo.LatestPerProject(ctx, 5, SnapshotFilter{})
	require.NoError(t, err)
	require.Len(t, all[a.ID], 5)
	assert.Equal(t, 7, all[a.ID][0].SnapshotWeek)
	assert.Equal(t, 3, all[a.ID][4].SnapshotWeek)
	assert.Len(t, all[b.ID], 1)

	blue, err := repo.LatestPerProject(ctx, 5, SnapshotFilter{Team: "Blue"})
	require.NoError(t, err)
	assert.Len(t, blue, 1)

	teams, err := repo.DistinctTeams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue", "Red"}, teams)

	phases, err := repo.DistinctOrderPhases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Build"}, phases)
}

func TestHistoricalRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := NewHistoricalRepository(db)

	rec := &models.HistoricalRecord{
		ProjectCode:           "P1",
		ProjectID:             uuid.New(),
		ProgressW:             100,
		MovedToHistoricalWeek: "2024-W10",
		ArchivedAt:            time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, rec))

	ok, err := repo.Exists(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, ok)

	err = repo.Create(ctx, rec)
	require.True(t, appErr.IsCode(err, appErr.CodeConflict), "got %v", err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteByCode(ctx, "P1"))
	ok, err = repo.Exists(ctx, "P1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.True(t, appErr.IsCode(repo.DeleteByCode(ctx, "P1"), appErr.CodeNotFound))
}

func TestStoreTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.NewDB(t))

	err := store.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Projects.Upsert(ctx, "P1", models.ProjectAttributes{}); err != nil {
			return err
		}
		return appErr.New(appErr.CodeInternal, "boom")
	})
	require.Error(t, err)

	_, err = store.Projects.GetByCode(ctx, "P1")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	err = store.Transaction(ctx, func(tx *Store) error {
		_, err := tx.Projects.Upsert(ctx, "P2", models.ProjectAttributes{})
		return err
	})
	require.NoError(t, err)
	_, err = store.Projects.GetByCode(ctx, "P2")
	require.NoError(t, err)
}

func TestStoreTransactionRecoversPanic(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	err := store.Transaction(context.Background(), func(tx *Store) error { panic("bad row") })
	require.True(t, appErr.IsCode(err, appErr.CodeInternal))
	require.NoError(t, store.Ping(context.Background()))
}

func TestSnapshotLatestCommentSkipsBlank(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	p, err := NewProjectRepository(db).Upsert(ctx, "P1", models.ProjectAttributes{})
	require.NoError(t, err)
	repo := NewSnapshotRepository(db)

	got, err := repo.LatestComment(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, _, err = repo.Upsert(ctx, p.ID, nil, 2024, 9, models.SnapshotMetrics{Comments: s("waiting on client")})
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, p.ID, nil, 2024, 10, models.SnapshotMetrics{Comments: s("")})
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, p.ID, nil, 2024, 11, models.SnapshotMetrics{RealHours: f(3)})
	require.NoError(t, err)

	got, err = repo.LatestComment(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "waiting on client", *got)
}

func TestProjectListByIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(testutil.NewDB(t))

	a, err := repo.Upsert(ctx, "A", models.ProjectAttributes{})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "B", models.ProjectAttributes{})
	require.NoError(t, err)

	got, err := repo.ListByIDs(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Code)

	got, err = repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
