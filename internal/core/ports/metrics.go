package ports

import (
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
)

// EngineMetrics is how the cache, queue and sync processor report what they are doing.
// Services fall back to NoopMetrics so call sites never check for nil.
type EngineMetrics interface {
	CacheHit()
	CacheMiss()
	CacheEviction(p cache.Priority)
	CacheExpiration(n int)
	CacheBytes(total int64)
	QueueDepth(n int)
	ActionDispatched(t string, outcome string, d time.Duration)
	SyncPass(outcome string, d time.Duration)
	PersistenceError(namespace string)
}

// Dispatch outcomes reported to EngineMetrics.
const (
	OutcomeSuccess     = "success"
	OutcomeRetry       = "retry"
	OutcomePermanent   = "permanent"
	OutcomeSkipped     = "skipped"
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
)

type NoopMetrics struct{}

func (NoopMetrics) CacheHit()                                      {}
func (NoopMetrics) CacheMiss()                                     {}
func (NoopMetrics) CacheEviction(cache.Priority)                   {}
func (NoopMetrics) CacheExpiration(int)                            {}
func (NoopMetrics) CacheBytes(int64)                               {}
func (NoopMetrics) QueueDepth(int)                                 {}
func (NoopMetrics) ActionDispatched(string, string, time.Duration) {}
func (NoopMetrics) SyncPass(string, time.Duration)                 {}
func (NoopMetrics) PersistenceError(string)                        {}
