package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const (
	skipReasonOffline = "offline"
	skipReasonUnknown = "connectivity unknown"
)

// SyncProcessorConfig holds the timing parameters of the drain loop.
type SyncProcessorConfig struct {
	Interval        time.Duration
	DispatchTimeout time.Duration
	Clock           func() time.Time
}

// SyncProcessor drains the action queue one action at a time while the device is online.
type SyncProcessor struct {
	queue    ports.ActionQueue
	registry ports.HandlerRegistry
	monitor  ports.NetworkMonitor
	logger   *logrus.Logger
	metrics  ports.EngineMetrics

	interval        time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time

	running atomic.Bool
	trigger chan struct{}

	mu         sync.RWMutex
	lastSync   time.Time
	lastResult *action.SyncResult

	listenersMu sync.RWMutex
	listeners   []func()
}

func NewSyncProcessor(queue ports.ActionQueue, registry ports.HandlerRegistry, monitor ports.NetworkMonitor, cfg *SyncProcessorConfig, logger *logrus.Logger, metrics ports.EngineMetrics) *SyncProcessor {
	interval := 30 * time.Second
	timeout := 30 * time.Second
	clock := time.Now
	if cfg != nil {
		if cfg.Interval > 0 {
			interval = cfg.Interval
		}
		if cfg.DispatchTimeout > 0 {
			timeout = cfg.DispatchTimeout
		}
		if cfg.Clock != nil {
			clock = cfg.Clock
		}
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SyncProcessor{
		queue:           queue,
		registry:        registry,
		monitor:         monitor,
		logger:          logger,
		metrics:         metrics,
		interval:        interval,
		dispatchTimeout: timeout,
		now:             clock,
		trigger:         make(chan struct{}, 1),
	}
}

// OnChange registers fn to run when a pass starts or finishes.
func (p *SyncProcessor) OnChange(fn func()) {
	p.listenersMu.Lock()
	p.listeners = append(p.listeners, fn)
	p.listenersMu.Unlock()
}

// Trigger requests a pass from the Run loop. Requests made while one is pending collapse.
func (p *SyncProcessor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run drives passes from connectivity-regained events, the periodic timer and Trigger
// until ctx is cancelled.
func (p *SyncProcessor) Run(ctx context.Context) {
	unsubscribe := p.monitor.Subscribe(func(s network.Snapshot) {
		if s.Online() {
			p.Trigger()
		}
	})
	defer unsubscribe()
	// a snapshot that arrived before the subscription produced no event
	if snap, known := p.monitor.Current(); known && snap.Online() {
		p.Trigger()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runScheduled(ctx)
		case <-p.trigger:
			p.runScheduled(ctx)
		}
	}
}

func (p *SyncProcessor) runScheduled(ctx context.Context) {
	if _, err := p.ForceSyncNow(ctx); err != nil && !errors.Is(err, action.ErrSyncInProgress) && p.logger != nil {
		p.logger.WithError(err).Error("scheduled sync pass failed")
	}
}

// ForceSyncNow runs one drain pass on the calling goroutine. It returns ErrSyncInProgress
// if another pass is active. Being offline is not an error: the result is marked Skipped.
func (p *SyncProcessor) ForceSyncNow(ctx context.Context) (*action.SyncResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, action.ErrSyncInProgress
	}
	p.notify()
	defer func() {
		p.running.Store(false)
		p.notify()
	}()

	result := &action.SyncResult{StartedAt: p.now()}

	if reason, ok := p.offlineReason(); ok {
		result.Skipped = true
		result.SkipReason = reason
		result.FinishedAt = p.now()
		p.metrics.SyncPass(ports.OutcomeSkipped, result.FinishedAt.Sub(result.StartedAt))
		p.record(result, false)
		if p.logger != nil {
			p.logger.WithField("reason", reason).Debug("sync pass skipped")
		}
		return result, nil
	}

	batch := p.queue.DrainSnapshot(ctx)
	for i, a := range batch {
		if _, offline := p.offlineReason(); offline || ctx.Err() != nil {
			p.queue.Release(ctx, batch[i:])
			result.Interrupted = true
			break
		}
		if !p.dispatch(ctx, a, result) {
			p.queue.Release(ctx, batch[i+1:])
			result.Interrupted = true
			break
		}
	}

	result.FinishedAt = p.now()
	outcome := ports.OutcomeCompleted
	if result.Interrupted {
		outcome = ports.OutcomeInterrupted
	}
	p.metrics.SyncPass(outcome, result.FinishedAt.Sub(result.StartedAt))
	p.record(result, true)

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"drained":     len(batch),
			"processed":   result.ProcessedCount,
			"failed":      result.FailedCount,
			"retried":     result.RetriedCount,
			"interrupted": result.Interrupted,
			"duration":    result.FinishedAt.Sub(result.StartedAt).String(),
		}).Info("sync pass finished")
	}
	return result, nil
}

// dispatch runs one action and settles it in the queue. It returns false when the pass
// must stop because ctx was cancelled during the handler call; the action is then released
// without consuming a retry.
func (p *SyncProcessor) dispatch(ctx context.Context, a *action.Action, result *action.SyncResult) bool {
	fields := logrus.Fields{"action_id": a.ID, "action_type": a.Type, "retry_count": a.RetryCount}

	h, ok := p.registry.Lookup(a.Type)
	if !ok {
		p.fail(ctx, a, fmt.Errorf("%w: %s", action.ErrUnknownType, a.Type), result)
		p.metrics.ActionDispatched(string(a.Type), ports.OutcomePermanent, 0)
		return true
	}

	start := p.now()
	err := p.invoke(ctx, h, a)
	elapsed := p.now().Sub(start)

	switch {
	case err == nil:
		p.queue.Complete(ctx, a.ID)
		result.ProcessedCount++
		p.metrics.ActionDispatched(string(a.Type), ports.OutcomeSuccess, elapsed)
		if p.logger != nil {
			p.logger.WithFields(fields).Debug("action dispatched")
		}
	case ctx.Err() != nil:
		p.queue.Release(ctx, []*action.Action{a})
		return false
	case action.IsPermanent(err) || a.RetriesExhausted():
		p.fail(ctx, a, err, result)
		p.metrics.ActionDispatched(string(a.Type), ports.OutcomePermanent, elapsed)
	default:
		p.queue.Requeue(ctx, a, err)
		result.RetriedCount++
		p.metrics.ActionDispatched(string(a.Type), ports.OutcomeRetry, elapsed)
	}
	return true
}

func (p *SyncProcessor) fail(ctx context.Context, a *action.Action, err error, result *action.SyncResult) {
	p.queue.Drop(ctx, a.ID)
	result.FailedCount++
	result.PermanentFailures = append(result.PermanentFailures, action.PermanentFailure{
		ActionID: a.ID,
		Type:     a.Type,
		Reason:   err.Error(),
		Attempts: a.RetryCount + 1,
	})
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"action_id":   a.ID,
			"action_type": a.Type,
			"retry_count": a.RetryCount,
		}).WithError(err).Error("action failed permanently and was dropped")
	}
}

// invoke calls the handler bounded by the dispatch timeout. A timeout or a panic is
// returned as an ordinary error.
func (p *SyncProcessor) invoke(ctx context.Context, h ports.ActionHandler, a *action.Action) error {
	dctx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler for %s panicked: %v", a.Type, r)
			}
		}()
		done <- h.Handle(dctx, a)
	}()

	select {
	case err := <-done:
		return err
	case <-dctx.Done():
		return fmt.Errorf("dispatch of action %s timed out: %w", a.ID, dctx.Err())
	}
}

func (p *SyncProcessor) offlineReason() (string, bool) {
	snap, known := p.monitor.Current()
	if !known {
		return skipReasonUnknown, true
	}
	if !snap.Online() {
		return skipReasonOffline, true
	}
	return "", false
}

func (p *SyncProcessor) record(result *action.SyncResult, ran bool) {
	p.mu.Lock()
	if ran {
		p.lastSync = result.FinishedAt
	}
	p.lastResult = result
	p.mu.Unlock()
}

// LastSyncTime reports when the last pass that actually ran finished.
func (p *SyncProcessor) LastSyncTime() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync, !p.lastSync.IsZero()
}

// LastResult returns a copy of the most recent pass result, skipped passes included.
func (p *SyncProcessor) LastResult() *action.SyncResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastResult == nil {
		return nil
	}
	r := *p.lastResult
	r.PermanentFailures = append([]action.PermanentFailure(nil), p.lastResult.PermanentFailures...)
	return &r
}

func (p *SyncProcessor) Syncing() bool {
	return p.running.Load()
}

func (p *SyncProcessor) notify() {
	p.listenersMu.RLock()
	fns := append([]func(){}, p.listeners...)
	p.listenersMu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

var _ ports.SyncProcessor = (*SyncProcessor)(nil)
