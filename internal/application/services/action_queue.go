package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const queueBlobVersion = 1

// ActionQueueConfig controls retry defaults and backoff for queued actions.
type ActionQueueConfig struct {
	DefaultMaxRetries int
	// RetryBaseDelay is the wait before the first retry; it doubles per retry up to
	// RetryMaxDelay. Zero makes requeued actions eligible on the next pass.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Clock          func() time.Time
}

func DefaultActionQueueConfig() *ActionQueueConfig {
	return &ActionQueueConfig{
		DefaultMaxRetries: 3,
		RetryBaseDelay:    5 * time.Second,
		RetryMaxDelay:     5 * time.Minute,
	}
}

// ActionQueue holds pending actions plus the ones drained for the current pass. Both sets are
// persisted on every mutation, so a crash mid-pass re-delivers instead of losing work.
type ActionQueue struct {
	// saveMu serializes mutate+save so blobs reach the store in mutation order.
	saveMu sync.Mutex
	mu     sync.Mutex

	pending  []*action.Action
	inflight map[string]*action.Action
	seq      uint64

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	now        func() time.Time

	store   ports.PersistenceAdapter
	logger  *logrus.Logger
	metrics ports.EngineMetrics

	listenersMu sync.RWMutex
	listeners   []func()
}

type queueBlob struct {
	Version int              `json:"version"`
	Seq     uint64           `json:"seq"`
	Actions []*action.Action `json:"actions"`
}

func NewActionQueue(store ports.PersistenceAdapter, cfg *ActionQueueConfig, logger *logrus.Logger, metrics ports.EngineMetrics) *ActionQueue {
	if cfg == nil {
		cfg = DefaultActionQueueConfig()
	}
	maxRetries := cfg.DefaultMaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = cfg.RetryBaseDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &ActionQueue{
		inflight:   make(map[string]*action.Action),
		maxRetries: maxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		maxDelay:   maxDelay,
		now:        clock,
		store:      store,
		logger:     logger,
		metrics:    metrics,
	}
}

// OnChange registers fn to run whenever the queue length changes.
func (q *ActionQueue) OnChange(fn func()) {
	q.listenersMu.Lock()
	q.listeners = append(q.listeners, fn)
	q.listenersMu.Unlock()
}

func (q *ActionQueue) Enqueue(ctx context.Context, req *action.EnqueueRequest) (*action.Action, error) {
	if req == nil || req.Type == "" {
		return nil, action.ErrInvalidType
	}
	var payload json.RawMessage
	if req.Payload != nil {
		data, err := encodePayload(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize action payload: %w", err)
		}
		payload = data
	}
	maxRetries := q.maxRetries
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			return nil, fmt.Errorf("max retries must not be negative")
		}
		maxRetries = *req.MaxRetries
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate action id: %w", err)
	}

	a := &action.Action{
		ID:         id.String(),
		Type:       req.Type,
		Payload:    payload,
		Priority:   req.Priority,
		CreatedAt:  q.now(),
		MaxRetries: maxRetries,
		OwnerID:    req.OwnerID,
	}

	size := q.mutate(ctx, func() bool {
		q.seq++
		a.Seq = q.seq
		q.pending = append(q.pending, a)
		return true
	})

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{
			"action_id":   a.ID,
			"action_type": a.Type,
			"priority":    a.Priority.String(),
			"queue_size":  size,
		}).Info("action queued")
	}
	q.notify()
	return a.Clone(), nil
}

// DrainSnapshot moves every eligible pending action in flight and returns copies in
// dispatch order. Actions still in backoff stay pending.
func (q *ActionQueue) DrainSnapshot(ctx context.Context) []*action.Action {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	var drained, waiting []*action.Action
	for _, a := range q.pending {
		if !a.NextAttemptAt.IsZero() && a.NextAttemptAt.After(now) {
			waiting = append(waiting, a)
			continue
		}
		drained = append(drained, a)
	}
	q.pending = waiting
	sort.Slice(drained, func(i, j int) bool { return drained[i].Before(drained[j]) })

	out := make([]*action.Action, len(drained))
	for i, a := range drained {
		q.inflight[a.ID] = a
		out[i] = a.Clone()
	}
	return out
}

// Complete removes a successfully dispatched action.
func (q *ActionQueue) Complete(ctx context.Context, id string) {
	if q.remove(ctx, id) {
		q.notify()
	}
}

// Drop removes an action that failed permanently.
func (q *ActionQueue) Drop(ctx context.Context, id string) {
	if q.remove(ctx, id) {
		q.notify()
	}
}

// Requeue returns an in-flight action to the pending set with its retry count incremented.
// Actions removed by Clear while in flight are ignored.
func (q *ActionQueue) Requeue(ctx context.Context, a *action.Action, cause error) {
	var requeued *action.Action
	q.mutate(ctx, func() bool {
		cur, ok := q.inflight[a.ID]
		if !ok {
			return false
		}
		delete(q.inflight, a.ID)
		cur.RetryCount++
		if cause != nil {
			cur.LastError = cause.Error()
		}
		cur.NextAttemptAt = q.nextAttempt(cur.RetryCount)
		q.pending = append(q.pending, cur)
		requeued = cur
		return true
	})
	if requeued != nil && q.logger != nil {
		q.logger.WithFields(logrus.Fields{
			"action_id":   requeued.ID,
			"action_type": requeued.Type,
			"retry_count": requeued.RetryCount,
			"max_retries": requeued.MaxRetries,
		}).WithError(cause).Warn("action requeued for retry")
	}
}

// Release returns drained actions that were never dispatched, unchanged. It neither saves
// nor notifies: in-flight actions are already in the persisted blob and Size counts them.
func (q *ActionQueue) Release(ctx context.Context, actions []*action.Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range actions {
		if cur, ok := q.inflight[a.ID]; ok {
			delete(q.inflight, a.ID)
			q.pending = append(q.pending, cur)
		}
	}
}

// Size counts pending and in-flight actions.
func (q *ActionQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inflight)
}

// List returns copies of every queued action in dispatch order.
func (q *ActionQueue) List() []*action.Action {
	q.mu.Lock()
	all := q.allLocked()
	out := make([]*action.Action, len(all))
	for i, a := range all {
		out[i] = a.Clone()
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Clear drops every pending and in-flight action.
func (q *ActionQueue) Clear(ctx context.Context) {
	removed := 0
	q.mutate(ctx, func() bool {
		removed = len(q.pending) + len(q.inflight)
		if removed == 0 {
			return false
		}
		q.pending = nil
		q.inflight = make(map[string]*action.Action)
		return true
	})
	if removed == 0 {
		return
	}
	if q.logger != nil {
		q.logger.WithField("removed", removed).Info("action queue cleared")
	}
	q.notify()
}

// Restore loads the persisted queue. Actions that were in flight when the process stopped
// become pending again.
func (q *ActionQueue) Restore(ctx context.Context) error {
	if q.store == nil {
		return nil
	}
	data, ok, err := q.store.Load(ctx, ports.NamespaceQueue)
	if err != nil {
		return fmt.Errorf("failed to load action queue: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var blob queueBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to decode action queue: %w", err)
	}

	q.mu.Lock()
	seen := make(map[string]bool, len(q.pending)+len(q.inflight))
	for _, a := range q.allLocked() {
		seen[a.ID] = true
	}
	if blob.Seq > q.seq {
		q.seq = blob.Seq
	}
	restored := 0
	for _, a := range blob.Actions {
		if a == nil || a.ID == "" || seen[a.ID] {
			continue
		}
		if a.Seq > q.seq {
			q.seq = a.Seq
		}
		q.pending = append(q.pending, a)
		seen[a.ID] = true
		restored++
	}
	size := len(q.pending) + len(q.inflight)
	q.mu.Unlock()

	q.metrics.QueueDepth(size)
	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{"restored": restored, "queue_size": size}).Info("action queue restored")
	}
	if restored > 0 {
		q.notify()
	}
	return nil
}

func (q *ActionQueue) remove(ctx context.Context, id string) bool {
	removed := false
	q.mutate(ctx, func() bool {
		if _, ok := q.inflight[id]; ok {
			delete(q.inflight, id)
			removed = true
			return true
		}
		for i, a := range q.pending {
			if a.ID == id {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				removed = true
				return true
			}
		}
		return false
	})
	return removed
}

// mutate applies fn under the queue lock and, when fn reports a change, saves the full
// queue before returning. It returns the resulting queue size.
func (q *ActionQueue) mutate(ctx context.Context, fn func() bool) int {
	q.saveMu.Lock()
	defer q.saveMu.Unlock()

	q.mu.Lock()
	changed := fn()
	size := len(q.pending) + len(q.inflight)
	var data []byte
	var err error
	if changed && q.store != nil {
		data, err = json.Marshal(queueBlob{Version: queueBlobVersion, Seq: q.seq, Actions: q.allLocked()})
	}
	q.mu.Unlock()

	if !changed {
		return size
	}
	q.metrics.QueueDepth(size)
	if q.store == nil {
		return size
	}
	if err == nil {
		err = q.store.Save(ctx, ports.NamespaceQueue, data)
	}
	if err != nil {
		q.metrics.PersistenceError(ports.NamespaceQueue)
		if q.logger != nil {
			q.logger.WithFields(logrus.Fields{"namespace": ports.NamespaceQueue}).WithError(err).Error("failed to persist action queue; in-memory queue remains authoritative")
		}
	}
	return size
}

func (q *ActionQueue) allLocked() []*action.Action {
	all := make([]*action.Action, 0, len(q.pending)+len(q.inflight))
	all = append(all, q.pending...)
	for _, a := range q.inflight {
		all = append(all, a)
	}
	return all
}

// nextAttempt gates a retry by base*2^(retry-1), capped at maxDelay.
func (q *ActionQueue) nextAttempt(retry int) time.Time {
	if q.baseDelay <= 0 || retry <= 0 {
		return time.Time{}
	}
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     q.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         q.maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()
	delay := bo.NextBackOff()
	for i := 1; i < retry && delay < q.maxDelay; i++ {
		delay = bo.NextBackOff()
	}
	if delay > q.maxDelay {
		delay = q.maxDelay
	}
	return q.now().Add(delay)
}

func (q *ActionQueue) notify() {
	q.listenersMu.RLock()
	fns := append([]func(){}, q.listeners...)
	q.listenersMu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

var _ ports.ActionQueue = (*ActionQueue)(nil)
