package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/domain/status"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// OfflineServiceConfig bundles the configuration of every engine component.
type OfflineServiceConfig struct {
	Cache   BoundedCacheConfig
	Queue   ActionQueueConfig
	Sync    SyncProcessorConfig
	Network NetworkMonitorConfig
	// SyncOnEnqueue asks the processor for a pass after each queued action.
	SyncOnEnqueue bool
}

// OfflineService is the engine's public surface. It owns the components and wires their
// change notifications into the status publisher.
type OfflineService struct {
	cache     *BoundedCache
	queue     *ActionQueue
	registry  *HandlerRegistry
	monitor   *NetworkMonitor
	processor *SyncProcessor
	publisher *StatusPublisher
	logger    *logrus.Logger

	syncOnEnqueue bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewOfflineService(store ports.PersistenceAdapter, probe ports.ConnectivityProbe, cfg *OfflineServiceConfig, logger *logrus.Logger, metrics ports.EngineMetrics) *OfflineService {
	if cfg == nil {
		cfg = &OfflineServiceConfig{Queue: *DefaultActionQueueConfig(), SyncOnEnqueue: true}
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}

	monitor := NewNetworkMonitor(probe, &cfg.Network, logger)
	boundedCache := NewBoundedCache(store, &cfg.Cache, logger, metrics)
	queue := NewActionQueue(store, &cfg.Queue, logger, metrics)
	registry := NewHandlerRegistry()
	processor := NewSyncProcessor(queue, registry, monitor, &cfg.Sync, logger, metrics)
	publisher := NewStatusPublisher(monitor, queue, boundedCache, processor, logger)

	monitor.Subscribe(func(network.Snapshot) { publisher.Publish() })
	boundedCache.OnChange(publisher.Publish)
	queue.OnChange(publisher.Publish)
	processor.OnChange(publisher.Publish)

	return &OfflineService{
		cache:         boundedCache,
		queue:         queue,
		registry:      registry,
		monitor:       monitor,
		processor:     processor,
		publisher:     publisher,
		logger:        logger,
		syncOnEnqueue: cfg.SyncOnEnqueue,
	}
}

// Start restores persisted state and launches the monitor, the expiry sweeper and the
// sync loop. Restore failures are logged and the engine starts empty.
func (s *OfflineService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("offline service already started")
	}

	if err := s.queue.Restore(ctx); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("failed to restore action queue; starting empty")
	}
	if err := s.cache.Restore(ctx); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("failed to restore cache; starting empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.monitor.Start(runCtx)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.cache.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.processor.Run(runCtx)
	}()

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"queue_size":    s.queue.Size(),
			"handler_types": s.registry.Types(),
		}).Info("offline service started")
	}
	return nil
}

// Close stops background work and flushes the cache table.
func (s *OfflineService) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	err := s.cache.Flush(ctx)
	s.cache.Close()
	return err
}

// RegisterHandler binds a handler to an action type. Register before queuing actions of it.
func (s *OfflineService) RegisterHandler(t action.Type, h ports.ActionHandler) error {
	return s.registry.Register(t, h)
}

func (s *OfflineService) CacheGet(ctx context.Context, key string) ([]byte, bool) {
	return s.cache.Get(ctx, key)
}

func (s *OfflineService) CacheGetOrLoad(ctx context.Context, key string, opts cache.PutOptions, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	return s.cache.GetOrLoad(ctx, key, opts, loader)
}

func (s *OfflineService) CachePut(ctx context.Context, key string, payload any, opts cache.PutOptions) error {
	return s.cache.Put(ctx, key, payload, opts)
}

func (s *OfflineService) CacheDelete(ctx context.Context, key string) bool {
	return s.cache.Delete(ctx, key)
}

func (s *OfflineService) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

func (s *OfflineService) GetCacheStats() cache.Stats {
	return s.cache.Stats()
}

// QueueAction rejects types without a registered handler, then enqueues.
func (s *OfflineService) QueueAction(ctx context.Context, req *action.EnqueueRequest) (*action.Action, error) {
	if req == nil || req.Type == "" {
		return nil, action.ErrInvalidType
	}
	if !s.registry.Has(req.Type) {
		return nil, fmt.Errorf("%w: %s", action.ErrUnknownType, req.Type)
	}
	a, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.syncOnEnqueue {
		s.processor.Trigger()
	}
	return a, nil
}

func (s *OfflineService) ListQueue() []*action.Action {
	return s.queue.List()
}

func (s *OfflineService) ClearQueue(ctx context.Context) {
	s.queue.Clear(ctx)
}

func (s *OfflineService) ForceSyncNow(ctx context.Context) (*action.SyncResult, error) {
	return s.processor.ForceSyncNow(ctx)
}

func (s *OfflineService) LastSyncResult() *action.SyncResult {
	return s.processor.LastResult()
}

func (s *OfflineService) GetStatus() status.Status {
	return s.publisher.Current()
}

func (s *OfflineService) Subscribe(listener func(status.Status)) func() {
	return s.publisher.Subscribe(listener)
}

// ReportNetwork forwards a connectivity change pushed by the platform.
func (s *OfflineService) ReportNetwork(snap network.Snapshot) {
	s.monitor.Report(snap)
}

// CurrentNetwork returns the latest snapshot and whether one has been observed.
func (s *OfflineService) CurrentNetwork() (network.Snapshot, bool) {
	return s.monitor.Current()
}

// RefreshNetwork probes connectivity immediately. Without a probe it returns the current snapshot.
func (s *OfflineService) RefreshNetwork(ctx context.Context) network.Snapshot {
	if s.monitor.probe == nil {
		snap, _ := s.monitor.Current()
		return snap
	}
	return s.monitor.Refresh(ctx)
}

var _ ports.OfflineService = (*OfflineService)(nil)
