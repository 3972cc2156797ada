package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/services"
	"github.com/deliverypulse/engine/internal/source"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/deliverypulse/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if _, err := logger.InitWriter(io.Discard, "info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockImportService struct {
	mock.Mock
}

func (m *mockImportService) Ingest(ctx context.Context, meta services.BatchMeta, rows source.Reader) (*services.ImportResult, error) {
	args := m.Called(ctx, meta, rows)
	if v := args.Get(0); v != nil {
		return v.(*services.ImportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockImportService) IngestFile(ctx context.Context, meta services.BatchMeta, data []byte) (*services.ImportResult, error) {
	args := m.Called(ctx, meta, data)
	if v := args.Get(0); v != nil {
		return v.(*services.ImportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockImportService) RecentBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.ImportBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockImportService) GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.ImportBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

var testMeta = services.BatchMeta{Filename: "week11.csv", Year: 2024, Week: 11, Mode: "full"}

func TestHandleIngestRunsImport(t *testing.T) {
	svc := new(mockImportService)
	data := []byte("project_code\nP1\n")
	svc.On("IngestFile", mock.Anything, testMeta, data).
		Return(&services.ImportResult{BatchID: uuid.New(), Counters: services.Counters{Imported: 1}}, nil)

	task, err := NewImportTask(testMeta, data, 0)
	require.NoError(t, err)
	require.Equal(t, TypeImportIngest, task.Type())

	require.NoError(t, NewImportTaskHandler(svc).HandleIngest(context.Background(), task))
	svc.AssertExpectations(t)
}

func TestHandleIngestBadPayloadSkipsRetry(t *testing.T) {
	svc := new(mockImportService)
	err := NewImportTaskHandler(svc).HandleIngest(context.Background(), asynq.NewTask(TypeImportIngest, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	svc.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleIngestInvalidFileSkipsRetry(t *testing.T) {
	svc := new(mockImportService)
	svc.On("IngestFile", mock.Anything, testMeta, []byte("x")).
		Return(nil, appErr.New(appErr.CodeInvalid, "cannot read import file"))

	task, err := NewImportTask(testMeta, []byte("x"), 0)
	require.NoError(t, err)

	err = NewImportTaskHandler(svc).HandleIngest(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestHandleIngestTransientFailureRetries(t *testing.T) {
	svc := new(mockImportService)
	down := appErr.Wrap(errors.New("connection refused"), appErr.CodeUnavailable, "database unreachable")
	svc.On("IngestFile", mock.Anything, testMeta, []byte("x")).Return(nil, down)

	task, err := NewImportTask(testMeta, []byte("x"), 0)
	require.NoError(t, err)

	err = NewImportTaskHandler(svc).HandleIngest(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestRegisterBindsTaskType(t *testing.T) {
	svc := new(mockImportService)
	svc.On("IngestFile", mock.Anything, testMeta, []byte("x")).Return(&services.ImportResult{}, nil)

	mux := asynq.NewServeMux()
	NewImportTaskHandler(svc).Register(mux)

	task, err := NewImportTask(testMeta, []byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	svc.AssertExpectations(t)
}
