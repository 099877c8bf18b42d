package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestDedupeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDedupeMetrics(reg)

	m.ObserveDetection("all", 10, 2, 0.01)
	m.ObserveDetection("target", 3, 1, 0.002)
	m.ObserveMerge("success")
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)
	m.ObserveScanJob("completed")

	if got := testutil.ToFloat64(m.comparisonsTotal); got != 13 {
		t.Fatalf("expected 13 comparisons, got %v", got)
	}
	if got := testutil.ToFloat64(m.groupsTotal.WithLabelValues("all")); got != 2 {
		t.Fatalf("expected 2 groups, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.mergesTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 merge, got %v", got)
	}
}

func TestDedupeMetricsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDedupeMetrics(reg)
	m.ObserveDetection("import", 5, 0, 0.2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "landlead_dedupe_detect_duration_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	if hist == nil {
		t.Fatalf("detect duration histogram not registered")
	}
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() != 0.2 {
		t.Fatalf("unexpected histogram %v/%v", hist.GetSampleCount(), hist.GetSampleSum())
	}
}

func TestDedupeMetricsNilSafe(t *testing.T) {
	var m *DedupeMetrics
	m.ObserveDetection("all", 1, 1, 0.1)
	m.ObserveMerge("failed")
	m.ObserveCacheLookup(true)
	m.ObserveScanJob("failed")
}
