package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const cacheTableVersion = 1

// BoundedCacheConfig groups the byte budget and expiry parameters of the cache.
type BoundedCacheConfig struct {
	MaxBytes      int64
	TargetRatio   float64 // eviction stops at MaxBytes*TargetRatio
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Clock         func() time.Time
}

// BoundedCache is an in-memory payload cache with a global byte budget, per-entry TTL and
// priority-aware eviction. Memory is authoritative; the table is mirrored to the
// PersistenceAdapter through a write-behind worker.
type BoundedCache struct {
	mu          sync.Mutex
	entries     map[string]*cache.Entry
	totalBytes  int64
	maxBytes    int64
	targetBytes int64

	defaultTTL    time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	store   ports.PersistenceAdapter
	persist *writeBehind
	logger  *logrus.Logger
	metrics ports.EngineMetrics
	sf      singleflight.Group

	listenersMu sync.RWMutex
	listeners   []func()
}

// cacheTable is the persisted form of the cache.
type cacheTable struct {
	Version int            `json:"version"`
	Entries []*cache.Entry `json:"entries"`
}

func NewBoundedCache(store ports.PersistenceAdapter, cfg *BoundedCacheConfig, logger *logrus.Logger, metrics ports.EngineMetrics) *BoundedCache {
	maxBytes := int64(10 << 20)
	ratio := 0.8
	ttl := 24 * time.Hour
	sweep := 5 * time.Minute
	clock := time.Now
	if cfg != nil {
		if cfg.MaxBytes > 0 {
			maxBytes = cfg.MaxBytes
		}
		if cfg.TargetRatio > 0 && cfg.TargetRatio <= 1 {
			ratio = cfg.TargetRatio
		}
		if cfg.DefaultTTL > 0 {
			ttl = cfg.DefaultTTL
		}
		if cfg.SweepInterval > 0 {
			sweep = cfg.SweepInterval
		}
		if cfg.Clock != nil {
			clock = cfg.Clock
		}
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}

	c := &BoundedCache{
		entries:       make(map[string]*cache.Entry),
		maxBytes:      maxBytes,
		targetBytes:   int64(float64(maxBytes) * ratio),
		defaultTTL:    ttl,
		sweepInterval: sweep,
		now:           clock,
		store:         store,
		logger:        logger,
		metrics:       metrics,
	}
	if store != nil {
		c.persist = newWriteBehind(store, ports.NamespaceCache, c.encodeTable, logger, metrics)
	}
	return c
}

// OnChange registers fn to run after any change of the cache contents.
func (c *BoundedCache) OnChange(fn func()) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

// Put serializes payload and upserts it. []byte and json.RawMessage are stored as-is,
// anything else is JSON encoded. Only serialization failures are returned.
func (c *BoundedCache) Put(ctx context.Context, key string, payload any, opts cache.PutOptions) error {
	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize cache payload for %q: %w", key, err)
	}
	c.put(key, data, opts)
	return nil
}

func (c *BoundedCache) put(key string, data []byte, opts cache.PutOptions) {
	now := c.now()
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &cache.Entry{
		Key:       key,
		Payload:   data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Priority:  opts.Priority,
		SizeBytes: int64(len(data)),
	}

	c.mu.Lock()
	c.insertLocked(e)
	expired, evicted := c.evictLocked(now)
	total := c.totalBytes
	c.mu.Unlock()

	c.report(expired, evicted, total)
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "size_bytes": e.SizeBytes, "priority": e.Priority.String(), "total_bytes": total}).Debug("cache entry stored")
	}
	c.changed()
}

// Get returns a copy of the payload. Expired entries are deleted on access and reported absent.
func (c *BoundedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.metrics.CacheMiss()
		return nil, false
	}
	if e.IsExpired(now) {
		c.removeLocked(key)
		total := c.totalBytes
		c.mu.Unlock()
		c.metrics.CacheMiss()
		c.report(1, nil, total)
		c.changed()
		return nil, false
	}
	data := append([]byte(nil), e.Payload...)
	c.mu.Unlock()

	c.metrics.CacheHit()
	return data, true
}

// GetJSON decodes the payload stored under key into out.
func (c *BoundedCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("failed to decode cache payload for %q: %w", key, err)
	}
	return true, nil
}

// GetOrLoad is a read-through lookup. Concurrent misses for the same key share one loader call.
func (c *BoundedCache) GetOrLoad(ctx context.Context, key string, opts cache.PutOptions, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	if data, ok := c.Get(ctx, key); ok {
		return data, nil
	}
	res, err, _ := c.sf.Do(key, func() (any, error) {
		if data, ok := c.Get(ctx, key); ok {
			return data, nil
		}
		payload, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := encodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize cache payload for %q: %w", key, err)
		}
		c.put(key, data, opts)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data, ok := res.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key and reports whether it was present.
func (c *BoundedCache) Delete(ctx context.Context, key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		c.removeLocked(key)
	}
	total := c.totalBytes
	c.mu.Unlock()

	if ok {
		c.metrics.CacheBytes(total)
		c.changed()
	}
	return ok
}

// Clear removes every entry. Clearing an empty cache does nothing.
func (c *BoundedCache) Clear(ctx context.Context) {
	c.mu.Lock()
	if len(c.entries) == 0 {
		c.mu.Unlock()
		return
	}
	c.entries = make(map[string]*cache.Entry)
	c.totalBytes = 0
	c.mu.Unlock()

	c.metrics.CacheBytes(0)
	if c.logger != nil {
		c.logger.Info("cache cleared")
	}
	c.changed()
}

// Stats purges expired entries and reports the live contents.
func (c *BoundedCache) Stats() cache.Stats {
	c.mu.Lock()
	expired := c.purgeExpiredLocked(c.now())
	st := cache.Stats{
		ItemCount:       len(c.entries),
		TotalBytes:      c.totalBytes,
		MaxBytes:        c.maxBytes,
		BytesByPriority: make(map[cache.Priority]int64, 3),
		OverBudget:      c.totalBytes > c.maxBytes,
	}
	for _, p := range cache.Priorities() {
		st.BytesByPriority[p] = 0
	}
	for _, e := range c.entries {
		st.BytesByPriority[e.Priority] += e.SizeBytes
	}
	c.mu.Unlock()

	if expired > 0 {
		c.report(expired, nil, st.TotalBytes)
		c.changed()
	}
	return st
}

// Usage reports the stored item count and bytes without purging.
func (c *BoundedCache) Usage() (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.totalBytes
}

// Sweep removes every expired entry regardless of priority and returns how many were removed.
func (c *BoundedCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	n := c.purgeExpiredLocked(c.now())
	total := c.totalBytes
	c.mu.Unlock()

	if n > 0 {
		c.report(n, nil, total)
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"expired": n, "total_bytes": total}).Debug("cache expiry sweep")
		}
		c.changed()
	}
	return n
}

// Run sweeps expired entries every SweepInterval until ctx is cancelled.
func (c *BoundedCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Restore loads the persisted table. Expired entries are dropped and the budget is re-applied.
func (c *BoundedCache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	data, ok, err := c.store.Load(ctx, ports.NamespaceCache)
	if err != nil {
		return fmt.Errorf("failed to load cache table: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var table cacheTable
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("failed to decode cache table: %w", err)
	}

	now := c.now()
	dropped := 0
	c.mu.Lock()
	for _, e := range table.Entries {
		if e == nil || e.IsExpired(now) || !e.ExpiresAt.After(e.CreatedAt) {
			dropped++
			continue
		}
		e.SizeBytes = int64(len(e.Payload))
		c.insertLocked(e)
	}
	_, evicted := c.evictLocked(now)
	items, total := len(c.entries), c.totalBytes
	c.mu.Unlock()

	c.metrics.CacheBytes(total)
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"items": items, "total_bytes": total, "dropped": dropped, "evicted": len(evicted)}).Info("cache restored")
	}
	if dropped > 0 || len(evicted) > 0 {
		c.schedulePersist()
	}
	c.notify()
	return nil
}

// Flush writes the current table synchronously.
func (c *BoundedCache) Flush(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	return c.persist.Flush(ctx)
}

// Close stops the write-behind worker after its pending save.
func (c *BoundedCache) Close() {
	if c.persist != nil {
		c.persist.Close()
	}
}

func (c *BoundedCache) insertLocked(e *cache.Entry) {
	if old, ok := c.entries[e.Key]; ok {
		c.totalBytes -= old.SizeBytes
	}
	c.entries[e.Key] = e
	c.totalBytes += e.SizeBytes
}

func (c *BoundedCache) removeLocked(key string) {
	if e, ok := c.entries[key]; ok {
		c.totalBytes -= e.SizeBytes
		delete(c.entries, key)
	}
}

func (c *BoundedCache) encodeTable() ([]byte, error) {
	c.mu.Lock()
	table := cacheTable{Version: cacheTableVersion, Entries: make([]*cache.Entry, 0, len(c.entries))}
	for _, e := range c.entries {
		table.Entries = append(table.Entries, e)
	}
	c.mu.Unlock()
	// entries are never mutated after insertion, so encoding outside the lock is safe
	return json.Marshal(table)
}

func (c *BoundedCache) report(expired int, evicted []*cache.Entry, total int64) {
	if expired > 0 {
		c.metrics.CacheExpiration(expired)
	}
	for _, e := range evicted {
		c.metrics.CacheEviction(e.Priority)
	}
	c.metrics.CacheBytes(total)
}

func (c *BoundedCache) schedulePersist() {
	if c.persist != nil {
		c.persist.Schedule()
	}
}

func (c *BoundedCache) changed() {
	c.schedulePersist()
	c.notify()
}

func (c *BoundedCache) notify() {
	c.listenersMu.RLock()
	fns := append([]func(){}, c.listeners...)
	c.listenersMu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return append([]byte{}, v...), nil
	case json.RawMessage:
		return append([]byte{}, v...), nil
	default:
		return json.Marshal(payload)
	}
}

var _ ports.Cache = (*BoundedCache)(nil)
