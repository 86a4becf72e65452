package metrics

import (
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "offline_sync"

// EngineMetrics exports cache, queue and sync activity to Prometheus.
type EngineMetrics struct {
	cacheRequests     *prometheus.CounterVec
	cacheEvictions    *prometheus.CounterVec
	cacheExpirations  prometheus.Counter
	cacheBytes        prometheus.Gauge
	queueDepth        prometheus.Gauge
	actionsDispatched *prometheus.CounterVec
	dispatchDuration  *prometheus.HistogramVec
	syncPasses        *prometheus.CounterVec
	syncDuration      prometheus.Histogram
	persistenceErrors *prometheus.CounterVec
}

// NewEngineMetrics creates the collectors and registers them with reg.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by result (hit or miss)",
		}, []string{"result"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted to satisfy the byte budget, by priority",
		}, []string{"priority"}),
		cacheExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_expirations_total",
			Help:      "Entries removed because their TTL elapsed",
		}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_bytes",
			Help:      "Serialized bytes currently held by the cache",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Actions waiting for dispatch, in flight included",
		}),
		actionsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Action dispatches by type and outcome",
		}, []string{"type", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_dispatch_duration_seconds",
			Help:      "Handler latency per action type",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Drain passes by outcome",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_pass_duration_seconds",
			Help:      "Wall time of drain passes",
			Buckets:   prometheus.DefBuckets,
		}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed saves by namespace",
		}, []string{"namespace"}),
	}

	reg.MustRegister(
		m.cacheRequests,
		m.cacheEvictions,
		m.cacheExpirations,
		m.cacheBytes,
		m.queueDepth,
		m.actionsDispatched,
		m.dispatchDuration,
		m.syncPasses,
		m.syncDuration,
		m.persistenceErrors,
	)
	return m
}

func (m *EngineMetrics) CacheHit()  { m.cacheRequests.WithLabelValues("hit").Inc() }
func (m *EngineMetrics) CacheMiss() { m.cacheRequests.WithLabelValues("miss").Inc() }

func (m *EngineMetrics) CacheEviction(p cache.Priority) {
	m.cacheEvictions.WithLabelValues(p.String()).Inc()
}

func (m *EngineMetrics) CacheExpiration(n int)  { m.cacheExpirations.Add(float64(n)) }
func (m *EngineMetrics) CacheBytes(total int64) { m.cacheBytes.Set(float64(total)) }
func (m *EngineMetrics) QueueDepth(n int)       { m.queueDepth.Set(float64(n)) }

func (m *EngineMetrics) ActionDispatched(t string, outcome string, d time.Duration) {
	m.actionsDispatched.WithLabelValues(t, outcome).Inc()
	if d > 0 {
		m.dispatchDuration.WithLabelValues(t).Observe(d.Seconds())
	}
}

func (m *EngineMetrics) SyncPass(outcome string, d time.Duration) {
	m.syncPasses.WithLabelValues(outcome).Inc()
	if outcome != ports.OutcomeSkipped {
		m.syncDuration.Observe(d.Seconds())
	}
}

func (m *EngineMetrics) PersistenceError(ns string) {
	m.persistenceErrors.WithLabelValues(ns).Inc()
}

var _ ports.EngineMetrics = (*EngineMetrics)(nil)
