package metrics

import "github.com/prometheus/client_golang/prometheus"

// DedupeMetrics exposes counters/histograms for duplicate detection, merges
// and import screening.
type DedupeMetrics struct {
	comparisonsTotal prometheus.Counter
	groupsTotal      *prometheus.CounterVec
	detectDuration   *prometheus.HistogramVec
	mergesTotal      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	scanJobsTotal    *prometheus.CounterVec
}

func NewDedupeMetrics(reg prometheus.Registerer) *DedupeMetrics {
	m := &DedupeMetrics{
		comparisonsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "comparisons_total",
			Help:      "Total lead pairs scored",
		}),
		groupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "groups_total",
			Help:      "Total duplicate groups found",
		}, []string{"mode"}),
		detectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "detect_duration_seconds",
			Help:      "Latency of duplicate detection passes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		mergesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "merges_total",
			Help:      "Total merge attempts",
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "cache_lookups_total",
			Help:      "Match cache lookups by result",
		}, []string{"result"}),
		scanJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landlead",
			Subsystem: "dedupe",
			Name:      "scan_jobs_total",
			Help:      "Import screening jobs by final status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.comparisonsTotal, m.groupsTotal, m.detectDuration, m.mergesTotal, m.cacheLookups, m.scanJobsTotal)
	return m
}

// ObserveDetection records one detection pass. mode is "target", "all" or "import".
func (m *DedupeMetrics) ObserveDetection(mode string, comparisons, groups int, seconds float64) {
	if m == nil {
		return
	}
	m.comparisonsTotal.Add(float64(comparisons))
	m.groupsTotal.WithLabelValues(mode).Add(float64(groups))
	m.detectDuration.WithLabelValues(mode).Observe(seconds)
}

func (m *DedupeMetrics) ObserveMerge(status string) {
	if m == nil {
		return
	}
	m.mergesTotal.WithLabelValues(status).Inc()
}

func (m *DedupeMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *DedupeMetrics) ObserveScanJob(status string) {
	if m == nil {
		return
	}
	m.scanJobsTotal.WithLabelValues(status).Inc()
}
