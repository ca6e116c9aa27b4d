package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the threshold module. Resolution sits
// on the hot path of every verification, so cache effectiveness matters.
type Metrics struct {
	ResolveDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Updates         prometheus.Counter
	UpdateConflicts prometheus.Counter
}

// New creates a new Metrics instance with all threshold module metrics registered.
func New() *Metrics {
	return &Metrics{
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idswyft_threshold_resolve_duration_seconds",
			Help:    "Duration of threshold resolution (verification critical path)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_threshold_cache_hits_total",
			Help: "Total threshold resolutions served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_threshold_cache_misses_total",
			Help: "Total threshold resolutions that fell through to the store",
		}),
		Updates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_threshold_updates_total",
			Help: "Total successful threshold configuration updates",
		}),
		UpdateConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_threshold_update_conflicts_total",
			Help: "Total threshold updates lost to a concurrent writer",
		}),
	}
}

// ObserveResolve records the duration of a Resolve operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

// IncrementCacheHit records a resolve served from cache.
func (m *Metrics) IncrementCacheHit() { m.CacheHits.Inc() }

// IncrementCacheMiss records a resolve that loaded from the store.
func (m *Metrics) IncrementCacheMiss() { m.CacheMisses.Inc() }

// IncrementUpdate records a successful configuration update.
func (m *Metrics) IncrementUpdate() { m.Updates.Inc() }

// IncrementUpdateConflict records an update lost to a concurrent writer.
func (m *Metrics) IncrementUpdateConflict() { m.UpdateConflicts.Inc() }
