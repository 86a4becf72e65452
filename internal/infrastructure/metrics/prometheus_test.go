package metrics

import (
	"testing"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics_RecordsEngineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheEviction(cache.PriorityStandard)
	m.CacheExpiration(3)
	m.CacheBytes(2048)
	m.QueueDepth(7)
	m.ActionDispatched("submit_form", ports.OutcomeSuccess, 20*time.Millisecond)
	m.ActionDispatched("submit_form", ports.OutcomeRetry, 0)
	m.SyncPass(ports.OutcomeCompleted, time.Second)
	m.SyncPass(ports.OutcomeSkipped, 0)
	m.PersistenceError(ports.NamespaceQueue)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvictions.WithLabelValues("standard")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cacheExpirations))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.cacheBytes))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionsDispatched.WithLabelValues("submit_form", ports.OutcomeRetry)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncPasses.WithLabelValues(ports.OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistenceErrors.WithLabelValues(ports.NamespaceQueue)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "offline_sync_queue_depth")
	assert.Contains(t, names, "offline_sync_sync_pass_duration_seconds")
}

func TestEngineMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewEngineMetrics(reg)
	assert.Panics(t, func() { NewEngineMetrics(reg) })
}
