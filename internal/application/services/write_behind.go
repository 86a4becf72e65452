package services

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// writeBehind persists a namespace asynchronously. Schedule never blocks: bursts of
// mutations collapse into a single pending signal, and the worker always serializes the
// latest state, so durability lags memory by at most one save.
type writeBehind struct {
	store     ports.PersistenceAdapter
	namespace string
	snapshot  func() ([]byte, error)
	timeout   time.Duration
	logger    *logrus.Logger
	metrics   ports.EngineMetrics

	// saveMu orders snapshot+save pairs so an older blob never overwrites a newer one.
	saveMu sync.Mutex

	signal    chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newWriteBehind(store ports.PersistenceAdapter, namespace string, snapshot func() ([]byte, error), logger *logrus.Logger, metrics ports.EngineMetrics) *writeBehind {
	w := &writeBehind{
		store:     store,
		namespace: namespace,
		snapshot:  snapshot,
		timeout:   10 * time.Second,
		logger:    logger,
		metrics:   metrics,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

// Schedule marks the namespace dirty.
func (w *writeBehind) Schedule() {
	select {
	case w.signal <- struct{}{}:
	default:
		// a save is already pending and will pick up this change
	}
}

func (w *writeBehind) worker() {
	defer w.wg.Done()
	for {
		select {
		case <-w.signal:
			w.save()
		case <-w.done:
			select {
			case <-w.signal:
				w.save()
			default:
			}
			return
		}
	}
}

func (w *writeBehind) save() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	_ = w.Flush(ctx)
}

// Flush snapshots and saves synchronously. Errors are logged and returned.
func (w *writeBehind) Flush(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	data, err := w.snapshot()
	if err == nil {
		err = w.store.Save(ctx, w.namespace, data)
	}
	if err != nil {
		w.metrics.PersistenceError(w.namespace)
		if w.logger != nil {
			w.logger.WithFields(logrus.Fields{"namespace": w.namespace}).WithError(err).Error("write-behind save failed; in-memory state remains authoritative")
		}
	}
	return err
}

// Close stops the worker after any pending save has run.
func (w *writeBehind) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}
