// Package metrics provides Prometheus metrics for the storage engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pager and tree.
type Metrics struct {
	CommitsTotal         prometheus.Counter
	RollbacksTotal       prometheus.Counter
	PageAllocsTotal      prometheus.Counter
	PageFreesTotal       prometheus.Counter
	GrowsTotal           prometheus.Counter
	CommitDuration       prometheus.Histogram
	PageCount            prometheus.Gauge

	TreeSplitsTotal *prometheus.CounterVec
	TreeGetsTotal   prometheus.Counter
	TreePutsTotal   prometheus.Counter
}

// New creates and registers every metric against reg. Passing a fresh
// *prometheus.Registry (rather than prometheus.DefaultRegisterer) lets
// multiple pagers, or repeated test runs, coexist without a duplicate
// registration panic.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_pager_commits_total",
			Help: "Total number of transactions committed.",
		}),
		RollbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_pager_rollbacks_total",
			Help: "Total number of transactions rolled back.",
		}),
		PageAllocsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_pager_page_allocs_total",
			Help: "Total number of pages allocated.",
		}),
		PageFreesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_pager_page_frees_total",
			Help: "Total number of pages freed.",
		}),
		GrowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_pager_grows_total",
			Help: "Total number of times the backing file was grown.",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zdb_pager_commit_duration_seconds",
			Help:    "Duration of transaction commits in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		PageCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zdb_pager_page_count",
			Help: "Current number of pages in the backing file.",
		}),
		TreeSplitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zdb_tree_splits_total",
			Help: "Total number of node splits, by kind.",
		}, []string{"kind"}),
		TreeGetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_tree_gets_total",
			Help: "Total number of Get calls.",
		}),
		TreePutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zdb_tree_puts_total",
			Help: "Total number of Put calls.",
		}),
	}
}

// RecordCommit records a completed commit of the given duration.
func (m *Metrics) RecordCommit(d time.Duration) {
	m.CommitsTotal.Inc()
	m.CommitDuration.Observe(d.Seconds())
}

// RecordRollback records a rollback.
func (m *Metrics) RecordRollback() {
	m.RollbacksTotal.Inc()
}

// RecordAlloc records a page allocation.
func (m *Metrics) RecordAlloc() {
	m.PageAllocsTotal.Inc()
}

// RecordFree records a page being returned to the free list.
func (m *Metrics) RecordFree() {
	m.PageFreesTotal.Inc()
}

// RecordGrowth records the backing file being grown, and the resulting page count.
func (m *Metrics) RecordGrowth(newPageCount uint32) {
	m.GrowsTotal.Inc()
	m.PageCount.Set(float64(newPageCount))
}

// SetPageCount updates the current page count gauge without recording a growth event.
func (m *Metrics) SetPageCount(pageCount uint32) {
	m.PageCount.Set(float64(pageCount))
}

// RecordSplit records a node split of the given kind ("leaf" or "internal").
func (m *Metrics) RecordSplit(kind string) {
	m.TreeSplitsTotal.WithLabelValues(kind).Inc()
}

// RecordGet records a tree Get call.
func (m *Metrics) RecordGet() {
	m.TreeGetsTotal.Inc()
}

// RecordPut records a tree Put call.
func (m *Metrics) RecordPut() {
	m.TreePutsTotal.Inc()
}
