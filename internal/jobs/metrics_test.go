package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestTrackerRecordsRunsAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 5; i++ {
		if err := metrics.Track("ledger.gl_integrity").End(nil); err != nil {
			t.Fatalf("unexpected error ending tracker: %v", err)
		}
	}
	boom := errors.New("timeout")
	if err := metrics.Track("banking.statement_import").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
	metrics.AddIntegrityMismatches("balance", 7, 2)
	metrics.AddIntegrityMismatches("balance", 7, 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if got := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": "ledger.gl_integrity", "status": "success"}); got != 5 {
		t.Fatalf("expected 5 successful runs, got %f", got)
	}
	if got := metricValue(t, families, "odyssey_jobs_failures_total", map[string]string{"job": "banking.statement_import"}); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := metricValue(t, families, "odyssey_ledger_integrity_mismatches_total", map[string]string{"kind": "balance", "tenant": "7"}); got != 2 {
		t.Fatalf("expected 2 mismatches, got %f", got)
	}
	if mean := histogramMean(t, families, "odyssey_job_duration_seconds", map[string]string{"job": "ledger.gl_integrity"}); mean > 1 {
		t.Fatalf("tracker duration unexpectedly large: %f", mean)
	}
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var metrics *Metrics
	boom := errors.New("boom")
	if err := metrics.Track("x").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
	metrics.AddIntegrityMismatches("balance", 1, 1)
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		val, ok := labels[lp.GetName()]
		if !ok {
			continue
		}
		if lp.GetValue() != val {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
