package perf

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type countingImporter struct {
	seen map[string]bool
}

func (c *countingImporter) ImportStatement(_ context.Context, tenant shared.TenantID, filename string, raw []byte) (banking.ImportResult, error) {
	if len(raw) == 0 {
		return banking.ImportResult{}, banking.ErrEmptyFile
	}
	key := tenant.String() + ":" + banking.Fingerprint(raw)
	if c.seen[key] {
		return banking.ImportResult{}, banking.ErrStatementAlreadyImported
	}
	c.seen[key] = true
	return banking.ImportResult{Transactions: 1}, nil
}

func importTask(t *testing.T, tenant int64, content []byte) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(jobs.StatementImportPayload{TenantID: tenant, Filename: "bulk.sta", Content: content})
	require.NoError(t, err)
	return asynq.NewTask(jobs.TaskStatementImport, data)
}

func TestStatementImportJobReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := jobs.NewStatementImportJob(&countingImporter{seen: map[string]bool{}}, nil, metrics)
	ctx := context.Background()
	raw := largeStatement(10)

	// Redelivered tasks for the same file count as successful runs.
	for tenant := int64(1); tenant <= 20; tenant++ {
		require.NoError(t, job.Handle(ctx, importTask(t, tenant, raw)))
		require.NoError(t, job.Handle(ctx, importTask(t, tenant, raw)))
	}
	for i := 0; i < 2; i++ {
		err := job.Handle(ctx, importTask(t, 1, nil))
		require.ErrorIs(t, err, asynq.SkipRetry)
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	success := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": jobs.TaskStatementImport, "status": "success"})
	failure := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": jobs.TaskStatementImport, "status": "failure"})
	require.Equal(t, float64(40), success)
	require.Equal(t, float64(2), failure)
	require.GreaterOrEqual(t, success/(success+failure), 0.95)
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
