package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/ports"
)

// PersistenceMock is an in-memory PersistenceAdapter whose behaviour can be overridden.
// Without overrides it stores blobs in a map and records every Save.
type PersistenceMock struct {
	LoadFn func(ctx context.Context, namespace string) ([]byte, bool, error)
	SaveFn func(ctx context.Context, namespace string, data []byte) error

	mu    sync.Mutex
	blobs map[string][]byte
	saves map[string]int
}

func (m *PersistenceMock) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, namespace)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[namespace]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *PersistenceMock) Save(ctx context.Context, namespace string, data []byte) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, namespace, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
		m.saves = make(map[string]int)
	}
	m.blobs[namespace] = append([]byte(nil), data...)
	m.saves[namespace]++
	return nil
}

// Saves returns how many times namespace was saved through the default store.
func (m *PersistenceMock) Saves(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[namespace]
}

// Blob returns the last blob saved through the default store.
func (m *PersistenceMock) Blob(namespace string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[namespace]
	return data, ok
}

// ProbeMock is a ConnectivityProbe returning a settable snapshot.
type ProbeMock struct {
	ProbeFn func(ctx context.Context) (network.Snapshot, error)

	mu    sync.Mutex
	snap  network.Snapshot
	err   error
	calls int
}

func (m *ProbeMock) Set(snap network.Snapshot, err error) {
	m.mu.Lock()
	m.snap, m.err = snap, err
	m.mu.Unlock()
}

func (m *ProbeMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *ProbeMock) Probe(ctx context.Context) (network.Snapshot, error) {
	m.mu.Lock()
	m.calls++
	snap, err := m.snap, m.err
	m.mu.Unlock()
	if m.ProbeFn != nil {
		return m.ProbeFn(ctx)
	}
	return snap, err
}

// Online and Offline build snapshots for tests.
func Online() network.Snapshot {
	return network.Snapshot{IsConnected: true, IsReachable: true, TransportType: network.TransportWiFi, ObservedAt: time.Now()}
}

func Offline() network.Snapshot {
	return network.Offline(time.Now())
}

// MonitorMock is a NetworkMonitor with a settable snapshot.
type MonitorMock struct {
	mu        sync.Mutex
	snap      network.Snapshot
	known     bool
	listeners map[int]func(network.Snapshot)
	next      int
}

func NewMonitorMock(snap network.Snapshot) *MonitorMock {
	return &MonitorMock{snap: snap, known: true, listeners: make(map[int]func(network.Snapshot))}
}

// Set replaces the snapshot and notifies subscribers.
func (m *MonitorMock) Set(snap network.Snapshot) {
	m.mu.Lock()
	m.snap, m.known = snap, true
	fns := make([]func(network.Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, l)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (m *MonitorMock) SetUnknown() {
	m.mu.Lock()
	m.known = false
	m.mu.Unlock()
}

func (m *MonitorMock) Current() (network.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.known
}

func (m *MonitorMock) Subscribe(listener func(network.Snapshot)) func() {
	m.mu.Lock()
	if m.listeners == nil {
		m.listeners = make(map[int]func(network.Snapshot))
	}
	id := m.next
	m.next++
	m.listeners[id] = listener
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// HandlerMock records dispatched actions and returns HandleFn's result.
type HandlerMock struct {
	HandleFn func(ctx context.Context, a *action.Action) error

	mu    sync.Mutex
	calls []*action.Action
}

func (m *HandlerMock) Handle(ctx context.Context, a *action.Action) error {
	m.mu.Lock()
	m.calls = append(m.calls, a.Clone())
	m.mu.Unlock()
	if m.HandleFn != nil {
		return m.HandleFn(ctx, a)
	}
	return nil
}

func (m *HandlerMock) Calls() []*action.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*action.Action(nil), m.calls...)
}

// MetricsMock counts engine metric events.
type MetricsMock struct {
	mu          sync.Mutex
	Hits        int
	Misses      int
	Evictions   map[cache.Priority]int
	Expirations int
	Bytes       int64
	Depth       int
	Dispatches  map[string]int
	Passes      map[string]int
	PersistErrs map[string]int
}

func NewMetricsMock() *MetricsMock {
	return &MetricsMock{
		Evictions:   make(map[cache.Priority]int),
		Dispatches:  make(map[string]int),
		Passes:      make(map[string]int),
		PersistErrs: make(map[string]int),
	}
}

func (m *MetricsMock) CacheHit()  { m.mu.Lock(); m.Hits++; m.mu.Unlock() }
func (m *MetricsMock) CacheMiss() { m.mu.Lock(); m.Misses++; m.mu.Unlock() }
func (m *MetricsMock) CacheEviction(p cache.Priority) {
	m.mu.Lock()
	m.Evictions[p]++
	m.mu.Unlock()
}
func (m *MetricsMock) CacheExpiration(n int)  { m.mu.Lock(); m.Expirations += n; m.mu.Unlock() }
func (m *MetricsMock) CacheBytes(total int64) { m.mu.Lock(); m.Bytes = total; m.mu.Unlock() }
func (m *MetricsMock) QueueDepth(n int)       { m.mu.Lock(); m.Depth = n; m.mu.Unlock() }
func (m *MetricsMock) ActionDispatched(t string, outcome string, d time.Duration) {
	m.mu.Lock()
	m.Dispatches[outcome]++
	m.mu.Unlock()
}
func (m *MetricsMock) SyncPass(outcome string, d time.Duration) {
	m.mu.Lock()
	m.Passes[outcome]++
	m.mu.Unlock()
}
func (m *MetricsMock) PersistenceError(namespace string) {
	m.mu.Lock()
	m.PersistErrs[namespace]++
	m.mu.Unlock()
}

// Count reads a counter under the lock.
func (m *MetricsMock) Count(fn func(m *MetricsMock) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

// AuthServiceMock is a lightweight mock for AuthService
type AuthServiceMock struct {
	LoginFn         func(ctx context.Context, req *auth.LoginRequest) (*auth.AuthTokens, error)
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (m *AuthServiceMock) Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthTokens, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, req)
	}
	return nil, fmt.Errorf("invalid credentials")
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return nil, fmt.Errorf("invalid token")
}

// EmailServiceMock records sent messages.
type EmailServiceMock struct {
	SendFn func(ctx context.Context, msg *ports.EmailMessage) error
	Sent   []*ports.EmailMessage
}

func (m *EmailServiceMock) Send(ctx context.Context, msg *ports.EmailMessage) error {
	m.Sent = append(m.Sent, msg)
	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	return nil
}

// HealthCheckerMock is a named checker returning Err.
type HealthCheckerMock struct {
	CheckerName string
	Err         error
}

func (m *HealthCheckerMock) Name() string                    { return m.CheckerName }
func (m *HealthCheckerMock) Check(ctx context.Context) error { return m.Err }

var (
	_ ports.PersistenceAdapter = (*PersistenceMock)(nil)
	_ ports.ConnectivityProbe  = (*ProbeMock)(nil)
	_ ports.NetworkMonitor     = (*MonitorMock)(nil)
	_ ports.ActionHandler      = (*HandlerMock)(nil)
	_ ports.EngineMetrics      = (*MetricsMock)(nil)
	_ ports.AuthService        = (*AuthServiceMock)(nil)
	_ ports.EmailService       = (*EmailServiceMock)(nil)
	_ ports.HealthChecker      = (*HealthCheckerMock)(nil)
)
