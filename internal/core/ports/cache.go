package ports

import (
	"context"

	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
)

// Cache defines the bounded, priority-aware payload cache.
// Implementations never fail reads or writes because of storage problems: persistence is
// best-effort and in-memory state stays authoritative.
type Cache interface {
	// Get returns the serialized payload for key. ok=false if absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Put serializes payload and stores it. Only serialization errors are returned.
	Put(ctx context.Context, key string, payload any, opts cache.PutOptions) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) bool
	// Clear removes every entry.
	Clear(ctx context.Context)
	Stats() cache.Stats
}
