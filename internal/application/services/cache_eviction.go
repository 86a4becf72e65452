package services

import (
	"sort"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/sirupsen/logrus"
)

// evictLocked restores the byte budget after a write. Expired entries go first; then
// non-critical entries are evicted oldest-first per band until the total reaches targetBytes.
// Critical entries are only touched when nothing else is left and the total still exceeds
// maxBytes, and then only down to maxBytes.
func (c *BoundedCache) evictLocked(now time.Time) (int, []*cache.Entry) {
	if c.totalBytes <= c.maxBytes {
		return 0, nil
	}
	expired := c.purgeExpiredLocked(now)
	if c.totalBytes <= c.maxBytes {
		return expired, nil
	}

	var evicted []*cache.Entry
	for _, e := range c.evictionOrderLocked(false) {
		if c.totalBytes <= c.targetBytes {
			break
		}
		c.removeLocked(e.Key)
		evicted = append(evicted, e)
	}
	if c.totalBytes <= c.maxBytes {
		c.logEviction(evicted)
		return expired, evicted
	}

	for _, e := range c.evictionOrderLocked(true) {
		if c.totalBytes <= c.maxBytes {
			break
		}
		c.removeLocked(e.Key)
		evicted = append(evicted, e)
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"key":         e.Key,
				"size_bytes":  e.SizeBytes,
				"total_bytes": c.totalBytes,
				"max_bytes":   c.maxBytes,
			}).Warn("evicting critical cache entry; budget is smaller than the critical working set")
		}
	}
	c.logEviction(evicted)
	return expired, evicted
}

// evictionOrderLocked returns the candidates of one class ordered by priority, age and key.
func (c *BoundedCache) evictionOrderLocked(critical bool) []*cache.Entry {
	out := make([]*cache.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if (e.Priority == cache.PriorityCritical) == critical {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Key < b.Key
	})
	return out
}

func (c *BoundedCache) purgeExpiredLocked(now time.Time) int {
	n := 0
	for key, e := range c.entries {
		if e.IsExpired(now) {
			c.totalBytes -= e.SizeBytes
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *BoundedCache) logEviction(evicted []*cache.Entry) {
	if len(evicted) == 0 || c.logger == nil {
		return
	}
	var freed int64
	for _, e := range evicted {
		freed += e.SizeBytes
	}
	c.logger.WithFields(logrus.Fields{
		"evicted":     len(evicted),
		"freed_bytes": freed,
		"total_bytes": c.totalBytes,
	}).Debug("cache eviction")
}
