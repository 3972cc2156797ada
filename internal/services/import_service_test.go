package services

import (
	"context"
	"testing"
	"time"

	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/source"
	"github.com/deliverypulse/engine/internal/testutil"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type importFixture struct {
	db    *gorm.DB
	store *repository.Store
	svc   ImportService
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	return &importFixture{db: db, store: store, svc: NewImportService(store, normalize.New(nil))}
}

func (f *importFixture) ingest(t *testing.T, mode models.ImportMode, year, week int, rows ...normalize.Row) *ImportResult {
	t.Helper()
	res, err := f.svc.Ingest(context.Background(), BatchMeta{
		Filename: "extract.xlsx",
		Year:     year,
		Week:     week,
		Mode:     mode,
	}, source.Slice(rows...))
	require.NoError(t, err)
	return res
}

func (f *importFixture) project(t *testing.T, code string) *models.Project {
	t.Helper()
	p, err := f.store.Projects.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return p
}

func (f *importFixture) snapshots(t *testing.T, code string) []models.Snapshot {
	t.Helper()
	hist, err := f.store.Snapshots.History(context.Background(), f.project(t, code).ID, 0)
	require.NoError(t, err)
	return hist
}

// requireLifecycleConsistent checks that the historical flag and the archive
// record agree for code.
func (f *importFixture) requireLifecycleConsistent(t *testing.T, code string) {
	t.Helper()
	exists, err := f.store.Historical.Exists(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, f.project(t, code).IsHistorical, exists)
}

func TestIngestSubsetComputesMetricsAndDeltas(t *testing.T) {
	f := newImportFixture(t)

	res := f.ingest(t, models.ImportSubset, 2024, 10,
		normalize.Row{"project_code": "P1001", "project_name": "Alpha", "real_hours": "40", "ordered_n": "60", "ordered_e": "40", "progress_w": "50"},
		normalize.Row{"project_name": "no code"},
	)
	assert.Equal(t, Counters{Imported: 1, Skipped: 1}, res.Counters)

	f.ingest(t, models.ImportSubset, 2024, 11,
		normalize.Row{"project_code": "P1001", "real_hours": "55", "ordered_n": "60", "ordered_e": "40", "progress_w": "60"},
	)

	hist := f.snapshots(t, "P1001")
	require.Len(t, hist, 2)
	first, second := hist[0], hist[1]
	assert.InDelta(t, -20.0, *first.DeviationPct, 1e-9)
	assert.Nil(t, first.RealHoursDelta)

	assert.InDelta(t, 15, *second.RealHoursDelta, 1e-9)
	assert.InDelta(t, 10, *second.TheoreticalHoursDelta, 1e-9)
	assert.InDelta(t, 1.5, *second.ProductivityRatio, 1e-9)
	assert.InDelta(t, 0, *second.OrderedTotalDelta, 1e-9)

	assert.Equal(t, "Alpha", *f.project(t, "P1001").Name, "later rows without a name keep the stored one")
}

func TestIngestDeltasUseChronologicalPredecessor(t *testing.T) {
	f := newImportFixture(t)
	row := func(real string) normalize.Row { return normalize.Row{"project_code": "P1", "real_hours": real} }

	f.ingest(t, models.ImportSubset, 2024, 20, row("100"))
	f.ingest(t, models.ImportSubset, 2024, 5, row("10"))
	f.ingest(t, models.ImportSubset, 2024, 12, row("60"))

	hist := f.snapshots(t, "P1")
	require.Len(t, hist, 3)
	assert.Equal(t, []int{5, 12, 20}, []int{hist[0].SnapshotWeek, hist[1].SnapshotWeek, hist[2].SnapshotWeek})
	assert.Nil(t, hist[0].RealHoursDelta)
	assert.InDelta(t, 50, *hist[1].RealHoursDelta, 1e-9)
	assert.InDelta(t, 40, *hist[2].RealHoursDelta, 1e-9, "later week follows its new predecessor")

	f.ingest(t, models.ImportSubset, 2024, 12, row("70"))
	hist = f.snapshots(t, "P1")
	assert.InDelta(t, 60, *hist[1].RealHoursDelta, 1e-9)
	assert.InDelta(t, 30, *hist[2].RealHoursDelta, 1e-9)
}

func TestIngestIsIdempotent(t *testing.T) {
	f := newImportFixture(t)
	rows := []normalize.Row{
		{"project_code": "A", "real_hours": "10", "progress_w": "10", "ordered_n": "100", "date_golive": "01/06/2024"},
		{"project_code": "B", "real_hours": "5", "team": "Blue"},
	}
	f.ingest(t, models.ImportSubset, 2024, 1, normalize.Row{"project_code": "A", "real_hours": "4", "progress_w": "5", "ordered_n": "100"})

	f.ingest(t, models.ImportSubset, 2024, 2, rows...)
	before := f.snapshots(t, "A")
	beforeB := f.project(t, "B")

	f.ingest(t, models.ImportSubset, 2024, 2, rows...)
	after := f.snapshots(t, "A")
	afterB := f.project(t, "B")

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].SnapshotMetrics, after[i].SnapshotMetrics)
	}
	assert.Equal(t, beforeB.ProjectAttributes, afterB.ProjectAttributes)
}

func TestIngestDuplicateRowsLatestWins(t *testing.T) {
	f := newImportFixture(t)
	f.ingest(t, models.ImportSubset, 2024, 3,
		normalize.Row{"project_code": "A", "real_hours": "10", "team": "Blue"},
		normalize.Row{"project_code": "A", "real_hours": "12"},
	)
	hist := f.snapshots(t, "A")
	require.Len(t, hist, 1)
	assert.Equal(t, 12.0, *hist[0].RealHours)
	assert.Equal(t, "Blue", *hist[0].Team)
}

func TestFullImportArchivesActiveProject(t *testing.T) {
	f := newImportFixture(t)
	f.ingest(t, models.ImportSubset, 2024, 9, normalize.Row{
		"project_code": "P2000", "project_name": "Closing", "real_hours": "80", "ordered_n": "100", "progress_w": "90",
	})

	res := f.ingest(t, models.ImportFull, 2024, 10, normalize.Row{"project_code": "P2000", "internal_status": "closed"})
	assert.Equal(t, Counters{Archived: 1}, res.Counters)

	p := f.project(t, "P2000")
	assert.True(t, p.IsHistorical)
	f.requireLifecycleConsistent(t, "P2000")
	assert.Len(t, f.snapshots(t, "P2000"), 1, "archival writes no snapshot")

	list, err := f.store.Historical.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	rec := list[0]
	assert.Equal(t, 100.0, rec.ProgressW)
	assert.Equal(t, "2024-W10", rec.MovedToHistoricalWeek)
	assert.Equal(t, "extract.xlsx", rec.SourceFilename)
	assert.Equal(t, 80.0, *rec.RealHours)
	assert.Equal(t, 100.0, *rec.OrderedTotal)
	assert.Equal(t, "Closing", *rec.ProjectName)
}

func TestFullImportRestoresHistoricalProject(t *testing.T) {
	f := newImportFixture(t)
	f.ingest(t, models.ImportSubset, 2024, 9, normalize.Row{"project_code": "P2000", "real_hours": "80"})
	f.ingest(t, models.ImportFull, 2024, 10, normalize.Row{"project_code": "P2000", "internal_status": "hided"})

	res := f.ingest(t, models.ImportFull, 2024, 14, normalize.Row{"project_code": "P2000", "internal_status": "Normal", "real_hours": "95"})
	assert.Equal(t, Counters{Imported: 1, Restored: 1}, res.Counters)

	p := f.project(t, "P2000")
	assert.False(t, p.IsHistorical)
	f.requireLifecycleConsistent(t, "P2000")

	hist := f.snapshots(t, "P2000")
	require.Len(t, hist, 2)
	assert.Equal(t, 14, hist[1].SnapshotWeek)
	assert.InDelta(t, 15, *hist[1].RealHoursDelta, 1e-9, "delta against the last snapshot before archival")
}

func TestFullImportHistoricalStaysFrozen(t *testing.T) {
	f := newImportFixture(t)
	f.ingest(t, models.ImportSubset, 2024, 9, normalize.Row{"project_code": "P3", "project_name": "Old", "real_hours": "1"})
	f.ingest(t, models.ImportFull, 2024, 10, normalize.Row{"project_code": "P3", "internal_status": "closed"})
	before := f.project(t, "P3")

	for _, token := range []string{"closed", "HIDED"} {
		res := f.ingest(t, models.ImportFull, 2024, 11, normalize.Row{"project_code": "P3", "project_name": "Renamed", "internal_status": token, "real_hours": "9"})
		assert.Equal(t, Counters{Skipped: 1}, res.Counters)
	}

	after := f.project(t, "P3")
	assert.Equal(t, before.ProjectAttributes, after.ProjectAttributes)
	assert.Len(t, f.snapshots(t, "P3"), 1)

	list, err := f.store.Historical.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	f.requireLifecycleConsistent(t, "P3")
}

func TestFullImportSkipsUnknownTokens(t *testing.T) {
	f := newImportFixture(t)
	res := f.ingest(t, models.ImportFull, 2024, 1,
		normalize.Row{"project_code": "A", "internal_status": "on hold"},
		normalize.Row{"project_code": "B"},
		normalize.Row{"project_code": "C", "internal_status": "normal"},
	)
	assert.Equal(t, Counters{Imported: 1, Skipped: 2}, res.Counters)

	_, err := f.store.Projects.GetByCode(context.Background(), "A")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestSubsetImportNeverTouchesLifecycle(t *testing.T) {
	f := newImportFixture(t)
	res := f.ingest(t, models.ImportSubset, 2024, 1, normalize.Row{"project_code": "A", "internal_status": "closed"})
	assert.Equal(t, Counters{Imported: 1}, res.Counters)
	assert.False(t, f.project(t, "A").IsHistorical)
	f.requireLifecycleConsistent(t, "A")
}

func TestIngestRejectsBadMeta(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.svc.Ingest(context.Background(), BatchMeta{Filename: "x.xlsx", Year: 2024, Week: 54}, source.Slice())
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

type failingReader struct{ source.Reader }

func (failingReader) Next() (normalize.Row, error) { return nil, assert.AnError }

func TestIngestRollsBackOnReadError(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.svc.Ingest(context.Background(), BatchMeta{Filename: "x.csv", Year: 2024, Week: 1}, failingReader{source.Slice()})
	require.Error(t, err)

	batches, err := f.store.Batches.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestIngestRollsBackOnCancel(t *testing.T) {
	f := newImportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Ingest(ctx, BatchMeta{Filename: "x.csv", Year: 2024, Week: 1}, source.Slice(normalize.Row{"project_code": "A"}))
	require.Error(t, err)

	_, err = f.store.Projects.GetByCode(context.Background(), "A")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestIngestDryRunWritesNothing(t *testing.T) {
	f := newImportFixture(t)
	res, err := f.svc.Ingest(context.Background(), BatchMeta{Filename: "x.csv", Year: 2024, Week: 1, DryRun: true},
		source.Slice(normalize.Row{"project_code": "A"}, normalize.Row{}))
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, Counters{Imported: 1, Skipped: 1}, res.Counters)

	_, err = f.store.Projects.GetByCode(context.Background(), "A")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestIngestFileCSV(t *testing.T) {
	f := newImportFixture(t)
	data := []byte("Code,Project name,Real,Ordered N,Progress %W,Extra\n1001.0,Alpha,40,100,50,x\n")

	res, err := f.svc.IngestFile(context.Background(), BatchMeta{Filename: "w10.csv", Year: 2024, Week: 10}, data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"Extra"}, res.UnmappedHeaders)

	batch, err := f.svc.GetBatch(context.Background(), res.BatchID)
	require.NoError(t, err)
	assert.Len(t, batch.FileSHA256, 64)
	assert.JSONEq(t, `["Extra"]`, string(batch.UnmappedHeaders))
	assert.WithinDuration(t, time.Now(), batch.CreatedAt, time.Minute)

	_, err = f.svc.GetBatch(context.Background(), uuid.New())
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	hist := f.snapshots(t, "1001")
	require.Len(t, hist, 1)
	assert.InDelta(t, -20, *hist[0].DeviationPct, 1e-9)
	require.NotNil(t, hist[0].ImportBatchID)
	assert.Equal(t, res.BatchID, *hist[0].ImportBatchID)
}

func TestIngestFileRejectsUnknownFormat(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.svc.IngestFile(context.Background(), BatchMeta{Filename: "w10.pdf", Year: 2024, Week: 10}, []byte("%PDF"))
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}
