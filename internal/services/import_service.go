package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/deliverypulse/engine/internal/mapper"
	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/normalize"
	"github.com/deliverypulse/engine/internal/repository"
	"github.com/deliverypulse/engine/internal/source"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"github.com/deliverypulse/engine/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// BatchMeta describes one import run.
type BatchMeta struct {
	Filename       string            `json:"filename" validate:"required"`
	Sheet          string            `json:"sheet"`
	Year           int               `json:"snapshot_year" validate:"gte=2000,lte=2100"`
	Week           int               `json:"snapshot_week" validate:"gte=1,lte=53"`
	MappingVersion string            `json:"mapping_version"`
	Mode           models.ImportMode `json:"mode" validate:"oneof=subset full"`
	// DryRun runs the whole batch and rolls it back, reporting what would change.
	DryRun bool `json:"dry_run"`

	FileSHA256      string   `json:"file_sha256,omitempty"`
	UnmappedHeaders []string `json:"unmapped_headers,omitempty"`
}

// Counters tally row outcomes. A restored row is also counted as imported.
type Counters struct {
	Imported int `json:"imported_rows"`
	Archived int `json:"archived_rows"`
	Restored int `json:"restored_rows"`
	Skipped  int `json:"skipped_rows"`
}

// ImportResult is returned for every completed batch.
type ImportResult struct {
	BatchID uuid.UUID         `json:"batch_id"`
	Mode    models.ImportMode `json:"mode"`
	DryRun  bool              `json:"dry_run"`
	Counters
	UnmappedHeaders []string `json:"unmapped_headers"`
}

type ImportService interface {
	// Ingest applies rows in file order inside one transaction. Rows without
	// a project code or with an unrecognized lifecycle token are skipped and
	// counted; any persistence failure rolls the whole batch back.
	Ingest(ctx context.Context, meta BatchMeta, rows source.Reader) (*ImportResult, error)
	// IngestFile opens data according to meta.Filename and ingests it.
	IngestFile(ctx context.Context, meta BatchMeta, data []byte) (*ImportResult, error)
	// RecentBatches lists the newest import batches first.
	RecentBatches(ctx context.Context, limit int) ([]models.ImportBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
}

type importService struct {
	store      *repository.Store
	normalizer *normalize.Normalizer
	validate   *validator.Validate
	now        func() time.Time
}

func NewImportService(store *repository.Store, normalizer *normalize.Normalizer) ImportService {
	return &importService{
		store:      store,
		normalizer: normalizer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

var _ ImportService = (*importService)(nil)

var errDryRun = errors.New("dry run")

func (s *importService) IngestFile(ctx context.Context, meta BatchMeta, data []byte) (*ImportResult, error) {
	rows, err := source.Open(meta.Filename, bytes.NewReader(data), meta.Sheet, s.normalizer)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "cannot read import file").WithMeta("filename", meta.Filename)
	}
	defer rows.Close()

	meta.FileSHA256 = utils.SHA256Hex(data)
	meta.UnmappedHeaders = rows.Unmapped()
	return s.Ingest(ctx, meta, rows)
}

func (s *importService) RecentBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Batches.ListRecent(ctx, limit)
}

func (s *importService) GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var b models.ImportBatch
	if err := s.store.Batches.GetByID(ctx, id, &b); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "import batch not found").WithMeta("batch_id", id.String())
		}
		return nil, err
	}
	return &b, nil
}

func (s *importService) Ingest(ctx context.Context, meta BatchMeta, rows source.Reader) (*ImportResult, error) {
	if meta.Mode == "" {
		meta.Mode = models.ImportSubset
	}
	if err := s.validate.Struct(meta); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid batch metadata")
	}
	if meta.UnmappedHeaders == nil {
		meta.UnmappedHeaders = rows.Unmapped()
	}

	log := logger.L().With(
		zap.String("filename", meta.Filename),
		zap.Int("year", meta.Year),
		zap.Int("week", meta.Week),
		zap.String("mode", string(meta.Mode)),
	)
	log.Info("import started", zap.Bool("dry_run", meta.DryRun), zap.Strings("unmapped_headers", meta.UnmappedHeaders))
	started := s.now()

	result := &ImportResult{Mode: meta.Mode, DryRun: meta.DryRun, UnmappedHeaders: meta.UnmappedHeaders}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		batch, err := s.createBatch(ctx, tx, meta)
		if err != nil {
			return err
		}
		result.BatchID = batch.ID

		b := &batchRun{tx: tx, meta: meta, batchID: batch.ID, now: s.now, log: log}
		for {
			if err := ctx.Err(); err != nil {
				return appErr.Wrap(err, appErr.CodeDeadline, "import interrupted")
			}
			row, err := rows.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return appErr.Wrap(err, appErr.CodeInvalid, "read row failed")
			}
			if err := b.apply(ctx, row); err != nil {
				return err
			}
		}
		result.Counters = b.counters
		if meta.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		log.Error("import failed", zap.Error(err))
		return nil, err
	}

	log.Info("import finished",
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("imported", result.Imported),
		zap.Int("archived", result.Archived),
		zap.Int("restored", result.Restored),
		zap.Int("skipped", result.Skipped),
		zap.Duration("took", s.now().Sub(started)),
	)
	return result, nil
}

func (s *importService) createBatch(ctx context.Context, tx *repository.Store, meta BatchMeta) (*models.ImportBatch, error) {
	headers := meta.UnmappedHeaders
	if headers == nil {
		headers = []string{}
	}
	unmapped, err := json.Marshal(headers)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode unmapped headers failed")
	}
	batch := &models.ImportBatch{
		Filename:        meta.Filename,
		Sheet:           meta.Sheet,
		SnapshotYear:    meta.Year,
		SnapshotWeek:    meta.Week,
		MappingVersion:  meta.MappingVersion,
		Mode:            meta.Mode,
		FileSHA256:      meta.FileSHA256,
		UnmappedHeaders: datatypes.JSON(unmapped),
	}
	if err := tx.Batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// batchRun holds the per-batch state while rows are applied.
type batchRun struct {
	tx       *repository.Store
	meta     BatchMeta
	batchID  uuid.UUID
	now      func() time.Time
	log      *zap.Logger
	counters Counters
}

func (b *batchRun) apply(ctx context.Context, row normalize.Row) error {
	res, ok := mapper.Map(row)
	if !ok {
		b.counters.Skipped++
		return nil
	}

	current, err := b.tx.Projects.GetByCode(ctx, res.Code)
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return err
	}
	if current != nil && current.Name != nil && res.HasPlaceholderName() {
		// A stored name is never replaced by the placeholder.
		res.Project.Name = nil
	}
	action := Decide(b.meta.Mode, StateOf(current), res.LifecycleToken())
	b.log.Debug("row decided", zap.String("project_code", res.Code), zap.Stringer("action", action))

	switch action {
	case ActionSkip:
		b.counters.Skipped++
		return nil
	case ActionArchive:
		if err := b.archive(ctx, res); err != nil {
			return err
		}
		b.counters.Archived++
		return nil
	case ActionRestore:
		if err := b.restore(ctx, current); err != nil {
			return err
		}
		b.counters.Restored++
	}

	if err := b.ingest(ctx, res); err != nil {
		return err
	}
	b.counters.Imported++
	return nil
}

// ingest upserts the project, which also locks its row, then derives deltas
// from the persisted predecessor week and upserts the snapshot. The next
// stored week has its deltas recomputed against the written one.
func (b *batchRun) ingest(ctx context.Context, res mapper.Result) error {
	p, err := b.tx.Projects.Upsert(ctx, res.Code, res.Project)
	if err != nil {
		return err
	}
	prev, err := b.tx.Snapshots.Previous(ctx, p.ID, b.meta.Year, b.meta.Week)
	if err != nil {
		return err
	}

	metrics := res.Snapshot
	var prevMetrics *models.SnapshotMetrics
	if prev != nil {
		prevMetrics = &prev.SnapshotMetrics
	}
	metrics.Deltas = ComputeDeltas(prevMetrics, metrics)

	batchID := b.batchID
	written, _, err := b.tx.Snapshots.Upsert(ctx, p.ID, &batchID, b.meta.Year, b.meta.Week, metrics)
	if err != nil {
		return err
	}

	next, err := b.tx.Snapshots.Next(ctx, p.ID, b.meta.Year, b.meta.Week)
	if err != nil || next == nil {
		return err
	}
	return b.tx.Snapshots.SetDeltas(ctx, next.ID, ComputeDeltas(&written.SnapshotMetrics, next.SnapshotMetrics))
}

// archive freezes the latest known figures into the historical archive. The
// row's own values take precedence over the newest stored snapshot.
func (b *batchRun) archive(ctx context.Context, res mapper.Result) error {
	p, err := b.tx.Projects.Upsert(ctx, res.Code, res.Project)
	if err != nil {
		return err
	}
	latest, err := b.tx.Snapshots.Latest(ctx, p.ID)
	if err != nil {
		return err
	}

	var frozen models.SnapshotMetrics
	if latest != nil {
		frozen = latest.SnapshotMetrics
	}
	repository.MergeSnapshot(&frozen, res.Snapshot)

	rec := &models.HistoricalRecord{
		ProjectCode:           p.Code,
		ProjectID:             p.ID,
		ProjectName:           p.Name,
		Client:                p.Client,
		Team:                  p.Team,
		ProjectManager:        p.ProjectManager,
		OrderedTotal:          frozen.OrderedTotal,
		RealHours:             frozen.RealHours,
		DeviationPct:          frozen.DeviationPct,
		ProgressW:             100,
		MovedToHistoricalWeek: utils.WeekLabel(b.meta.Year, b.meta.Week),
		SourceFilename:        b.meta.Filename,
		ArchivedAt:            b.now().UTC(),
	}
	if err := b.tx.Historical.Create(ctx, rec); err != nil {
		return err
	}
	if err := b.tx.Projects.SetHistorical(ctx, p.ID, true); err != nil {
		return err
	}
	b.log.Info("project archived", zap.String("project_code", p.Code), zap.String("week", rec.MovedToHistoricalWeek))
	return nil
}

func (b *batchRun) restore(ctx context.Context, p *models.Project) error {
	if err := b.tx.Historical.DeleteByCode(ctx, p.Code); err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return err
	}
	if err := b.tx.Projects.SetHistorical(ctx, p.ID, false); err != nil {
		return err
	}
	b.log.Info("project restored", zap.String("project_code", p.Code))
	return nil
}
