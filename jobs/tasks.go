package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueImports holds statement imports so a burst of uploads cannot
	// starve the integrity cron.
	QueueImports = "imports"

	// TaskStatementImport parses and stores one MT940 file.
	TaskStatementImport = "banking:statement_import"
	// TaskGLIntegrity re-sums postings and compares them to stored balances.
	TaskGLIntegrity = "ledger:gl_integrity"
)

// StatementImportPayload carries a statement file to the worker.
type StatementImportPayload struct {
	TenantID int64  `json:"tenant_id"`
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// NewStatementImportTask constructs an Asynq task. The task id is derived from
// the content fingerprint so the same file queued twice runs once.
func NewStatementImportTask(payload StatementImportPayload, fingerprint string) (*asynq.Task, error) {
	if payload.TenantID <= 0 {
		return nil, fmt.Errorf("jobs: statement import requires tenant")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueImports), asynq.MaxRetry(5)}
	if fingerprint != "" {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("statement:%d:%s", payload.TenantID, fingerprint)))
	}
	return asynq.NewTask(TaskStatementImport, data, opts...), nil
}

// GLIntegrityPayload selects the tenants to check; empty means all.
type GLIntegrityPayload struct {
	TenantIDs []int64 `json:"tenant_ids,omitempty"`
}

// NewGLIntegrityTask constructs the integrity check task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
