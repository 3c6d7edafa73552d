package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// StatementImporter is the banking service operation the job drives.
type StatementImporter interface {
	ImportStatement(ctx context.Context, tenant shared.TenantID, filename string, raw []byte) (banking.ImportResult, error)
}

// StatementImportJob runs queued statement imports.
type StatementImportJob struct {
	Importer StatementImporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewStatementImportJob initialises the import handler.
func NewStatementImportJob(importer StatementImporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementImportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle executes one import. Files that can never import are not retried;
// a file that was already imported counts as success.
func (j *StatementImportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Importer == nil {
		return errors.New("statement import: handler not configured")
	}
	tracker := j.Metrics.Track(TaskStatementImport)
	defer func() {
		err = tracker.End(err)
	}()

	var payload StatementImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("statement import: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tenant := shared.TenantID(payload.TenantID)
	result, err := j.Importer.ImportStatement(ctx, tenant, payload.Filename, payload.Content)
	switch {
	case errors.Is(err, banking.ErrStatementAlreadyImported):
		j.Logger.Info("statement already imported", slog.Int64("tenant_id", payload.TenantID), slog.String("filename", payload.Filename))
		return nil
	case errors.Is(err, banking.ErrNoStatements),
		errors.Is(err, banking.ErrEmptyFile),
		errors.Is(err, httpx.ErrTooLarge),
		errors.Is(err, shared.ErrTenantRequired):
		j.Logger.Warn("statement rejected", slog.Any("error", err), slog.Int64("tenant_id", payload.TenantID), slog.String("filename", payload.Filename))
		return fmt.Errorf("statement import: %v: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}
	j.Logger.Info("statement import job done",
		slog.String("job", TaskStatementImport),
		slog.Int64("tenant_id", payload.TenantID),
		slog.String("import_id", result.Import.ID.String()),
		slog.Int("transactions", result.Transactions),
	)
	return nil
}
