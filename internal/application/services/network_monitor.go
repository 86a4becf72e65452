package services

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// NetworkMonitor tracks connectivity by polling a ConnectivityProbe and by accepting pushed
// reports from a platform bridge. Listeners hear about each online/offline transition once.
type NetworkMonitor struct {
	probe    ports.ConnectivityProbe
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger

	mu        sync.RWMutex
	current   network.Snapshot
	known     bool
	listeners map[uint64]func(network.Snapshot)
	nextID    uint64

	ready     chan struct{}
	readyOnce sync.Once
}

// NetworkMonitorConfig groups polling parameters for the monitor.
type NetworkMonitorConfig struct {
	PollInterval time.Duration
	ProbeTimeout time.Duration
}

func NewNetworkMonitor(probe ports.ConnectivityProbe, cfg *NetworkMonitorConfig, logger *logrus.Logger) *NetworkMonitor {
	interval := 10 * time.Second
	timeout := 5 * time.Second
	if cfg != nil {
		if cfg.PollInterval > 0 {
			interval = cfg.PollInterval
		}
		if cfg.ProbeTimeout > 0 {
			timeout = cfg.ProbeTimeout
		}
	}
	return &NetworkMonitor{
		probe:     probe,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		listeners: make(map[uint64]func(network.Snapshot)),
		ready:     make(chan struct{}),
	}
}

// Current returns a copy of the latest snapshot. known is false until the first observation.
func (m *NetworkMonitor) Current() (network.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.known
}

// Ready is closed once the first snapshot has been recorded.
func (m *NetworkMonitor) Ready() <-chan struct{} {
	return m.ready
}

func (m *NetworkMonitor) Subscribe(listener func(network.Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Start polls the probe until ctx is cancelled. The first probe runs immediately.
// Without a probe the monitor relies on Report calls only.
func (m *NetworkMonitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}
	go func() {
		m.Refresh(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Refresh(ctx)
			}
		}
	}()
}

// Refresh probes once and records the result. Probe errors are recorded as offline.
func (m *NetworkMonitor) Refresh(ctx context.Context) network.Snapshot {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snap, err := m.probe.Probe(pctx)
	if err != nil {
		if m.logger != nil {
			m.logger.WithError(err).Debug("connectivity probe failed; treating as offline")
		}
		snap = network.Offline(time.Now())
	}
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	m.Report(snap)
	return snap
}

// Report records a snapshot pushed by the platform. Listeners are notified only when the
// online state differs from the previous snapshot, or for the very first snapshot.
func (m *NetworkMonitor) Report(snap network.Snapshot) {
	m.mu.Lock()
	first := !m.known
	changed := first || m.current.Online() != snap.Online()
	m.current = snap
	m.known = true
	var targets []func(network.Snapshot)
	if changed {
		targets = make([]func(network.Snapshot), 0, len(m.listeners))
		for _, l := range m.listeners {
			targets = append(targets, l)
		}
	}
	m.mu.Unlock()

	if first {
		m.readyOnce.Do(func() { close(m.ready) })
	}
	if !changed {
		return
	}
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"connected": snap.IsConnected, "reachable": snap.IsReachable, "transport": snap.TransportType}).Info("connectivity changed")
	}
	for _, l := range targets {
		m.deliver(l, snap)
	}
}

func (m *NetworkMonitor) deliver(l func(network.Snapshot), snap network.Snapshot) {
	defer func() {
		if r := recover(); r != nil && m.logger != nil {
			m.logger.WithField("panic", r).Error("network listener panicked")
		}
	}()
	l(snap)
}

var _ ports.NetworkMonitor = (*NetworkMonitor)(nil)
