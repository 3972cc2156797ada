package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deliverypulse/engine/internal/services"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeImportIngest is the task type for a queued spreadsheet import.
const TypeImportIngest = "import:ingest"

// ImportPayload carries the batch metadata and the uploaded file.
type ImportPayload struct {
	Meta services.BatchMeta `json:"meta"`
	Data []byte             `json:"data"`
}

// NewImportTask builds an import task. Retries are capped because every
// attempt re-runs the whole batch transaction.
func NewImportTask(meta services.BatchMeta, data []byte, timeout time.Duration) (*asynq.Task, error) {
	pb, err := json.Marshal(ImportPayload{Meta: meta, Data: data})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode import task failed")
	}
	opts := []asynq.Option{asynq.MaxRetry(3)}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(TypeImportIngest, pb, opts...), nil
}

// Enqueuer hands imports to the background worker.
type Enqueuer struct {
	client  *asynq.Client
	timeout time.Duration
}

func NewEnqueuer(client *asynq.Client, timeout time.Duration) *Enqueuer {
	return &Enqueuer{client: client, timeout: timeout}
}

// Enqueue queues the import and returns the task id.
func (e *Enqueuer) Enqueue(ctx context.Context, meta services.BatchMeta, data []byte) (string, error) {
	task, err := NewImportTask(meta, data, e.timeout)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		logger.L().Error("enqueue import task failed", zap.Error(err), zap.String("filename", meta.Filename))
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "enqueue import task failed")
	}
	logger.L().Info("import enqueued",
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.String("filename", meta.Filename),
		zap.Int("year", meta.Year),
		zap.Int("week", meta.Week),
	)
	return info.ID, nil
}

// ImportTaskHandler runs queued imports.
type ImportTaskHandler struct {
	imports services.ImportService
}

func NewImportTaskHandler(imports services.ImportService) *ImportTaskHandler {
	return &ImportTaskHandler{imports: imports}
}

// Register binds the handler to its task type.
func (h *ImportTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeImportIngest, h.HandleIngest)
}

func (h *ImportTaskHandler) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var p ImportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid import task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("handling import task",
		zap.String("filename", p.Meta.Filename),
		zap.Int("year", p.Meta.Year),
		zap.Int("week", p.Meta.Week),
		zap.Int("bytes", len(p.Data)),
	)

	res, err := h.imports.IngestFile(ctx, p.Meta, p.Data)
	if err != nil {
		logger.L().Error("import task failed", zap.Error(err), zap.String("filename", p.Meta.Filename))
		// A malformed file or bad metadata fails the same way on every retry.
		if appErr.IsCode(err, appErr.CodeInvalid) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.L().Info("import task completed",
		zap.String("batch_id", res.BatchID.String()),
		zap.Int("imported", res.Imported),
		zap.Int("archived", res.Archived),
		zap.Int("restored", res.Restored),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}
