package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deliverypulse/engine/internal/api/types"
	"github.com/deliverypulse/engine/internal/services"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportQueue hands an import to the background worker.
type ImportQueue interface {
	Enqueue(ctx context.Context, meta services.BatchMeta, data []byte) (taskID string, err error)
}

type ImportsHandler struct {
	imports  services.ImportService
	queue    ImportQueue
	maxBytes int64
	timeout  time.Duration
}

// NewImportsHandler builds the upload handler. queue may be nil, in which
// case async uploads are refused.
func NewImportsHandler(imports services.ImportService, queue ImportQueue, maxBytes int64, timeout time.Duration) *ImportsHandler {
	return &ImportsHandler{imports: imports, queue: queue, maxBytes: maxBytes, timeout: timeout}
}

// Upload accepts a multipart spreadsheet upload with the fields file,
// snapshot_year, snapshot_week, sheet, mapping_version, import_type,
// dry_run and async.
func (h *ImportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeErrorStr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "read upload failed"))
		return
	}

	meta, async, err := batchMetaFromForm(r, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if async {
		if h.queue == nil {
			writeError(w, r, appErr.New(appErr.CodeUnavailable, "async imports are not configured"))
			return
		}
		id, err := h.queue.Enqueue(r.Context(), meta, data)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, r, http.StatusAccepted, types.ImportAccepted{TaskID: id, Filename: meta.Filename})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	res, err := h.imports.IngestFile(ctx, meta, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Info("import upload processed",
		zap.String("filename", meta.Filename),
		zap.String("batch_id", res.BatchID.String()),
		zap.Bool("dry_run", res.DryRun),
	)
	writeData(w, r, http.StatusOK, res)
}

func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.imports.RecentBatches(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, items)
}

// Get handles GET /imports/{id}.
func (h *ImportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, appErr.New(appErr.CodeInvalid, "batch id must be a UUID").WithMeta("id", raw))
		return
	}
	batch, err := h.imports.GetBatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, batch)
}

func batchMetaFromForm(r *http.Request, filename string) (services.BatchMeta, bool, error) {
	year, err := formInt(r, "snapshot_year")
	if err != nil {
		return services.BatchMeta{}, false, err
	}
	week, err := formInt(r, "snapshot_week")
	if err != nil {
		return services.BatchMeta{}, false, err
	}
	mode, err := services.ParseMode(r.FormValue("import_type"))
	if err != nil {
		return services.BatchMeta{}, false, err
	}
	dryRun, err := formBool(r, "dry_run")
	if err != nil {
		return services.BatchMeta{}, false, err
	}
	async, err := formBool(r, "async")
	if err != nil {
		return services.BatchMeta{}, false, err
	}
	return services.BatchMeta{
		Filename:       filename,
		Sheet:          strings.TrimSpace(r.FormValue("sheet")),
		Year:           year,
		Week:           week,
		MappingVersion: strings.TrimSpace(r.FormValue("mapping_version")),
		Mode:           mode,
		DryRun:         dryRun,
	}, async, nil
}

func formInt(r *http.Request, key string) (int, error) {
	s := strings.TrimSpace(r.FormValue(key))
	if s == "" {
		return 0, appErr.Newf(appErr.CodeInvalid, "%s is required", key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, appErr.Newf(appErr.CodeInvalid, "%s must be an integer", key).WithMeta(key, s)
	}
	return n, nil
}

func formBool(r *http.Request, key string) (bool, error) {
	s := strings.TrimSpace(r.FormValue(key))
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, appErr.Newf(appErr.CodeInvalid, "%s must be a boolean", key).WithMeta(key, s)
	}
	return b, nil
}
