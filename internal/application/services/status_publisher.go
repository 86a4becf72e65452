package services

import (
	"sync"

	"github.com/avatarctic/offline-sync/internal/core/domain/status"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// QueueLength is the part of the action queue the publisher reads.
type QueueLength interface {
	Size() int
}

// CacheUsage reports live item count and bytes without side effects.
type CacheUsage interface {
	Usage() (items int, bytes int64)
}

// StatusPublisher composes connectivity, queue, cache and sync state into one Status and
// pushes it to subscribers on every change.
type StatusPublisher struct {
	monitor ports.NetworkMonitor
	queue   QueueLength
	cache   CacheUsage
	syncer  ports.SyncProcessor
	logger  *logrus.Logger

	mu        sync.Mutex
	listeners map[uint64]func(status.Status)
	nextID    uint64
}

func NewStatusPublisher(monitor ports.NetworkMonitor, queue QueueLength, cache CacheUsage, syncer ports.SyncProcessor, logger *logrus.Logger) *StatusPublisher {
	return &StatusPublisher{
		monitor:   monitor,
		queue:     queue,
		cache:     cache,
		syncer:    syncer,
		logger:    logger,
		listeners: make(map[uint64]func(status.Status)),
	}
}

// Current composes the status from the live components.
func (p *StatusPublisher) Current() status.Status {
	var st status.Status
	if p.monitor != nil {
		snap, known := p.monitor.Current()
		st.Known = known
		st.IsConnected = snap.IsConnected
		st.IsReachable = snap.IsReachable
		st.ConnectionType = snap.TransportType
	}
	if p.queue != nil {
		st.QueueLength = p.queue.Size()
	}
	if p.cache != nil {
		st.CacheItems, st.CacheBytes = p.cache.Usage()
	}
	if p.syncer != nil {
		st.Syncing = p.syncer.Syncing()
		if t, ok := p.syncer.LastSyncTime(); ok {
			st.LastSyncTime = &t
		}
	}
	return st
}

// Subscribe delivers the current status to listener right away and then on every Publish.
func (p *StatusPublisher) Subscribe(listener func(status.Status)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	p.mu.Unlock()

	p.deliver(listener, p.Current())

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Publish recomposes the status and notifies every subscriber.
func (p *StatusPublisher) Publish() {
	st := p.Current()

	p.mu.Lock()
	targets := make([]func(status.Status), 0, len(p.listeners))
	for _, l := range p.listeners {
		targets = append(targets, l)
	}
	p.mu.Unlock()

	for _, l := range targets {
		p.deliver(l, st)
	}
}

func (p *StatusPublisher) deliver(l func(status.Status), st status.Status) {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.WithField("panic", r).Error("status listener panicked")
		}
	}()
	l(st)
}

var _ ports.StatusPublisher = (*StatusPublisher)(nil)
