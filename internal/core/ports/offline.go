package ports

import (
	"context"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/domain/status"
)

// StatusPublisher broadcasts the consolidated status to observers.
type StatusPublisher interface {
	// Subscribe invokes listener immediately with the current status and again on every change.
	Subscribe(listener func(status.Status)) (unsubscribe func())
	Current() status.Status
}

// OfflineService is the public surface applications use instead of reaching into components.
type OfflineService interface {
	CacheGet(ctx context.Context, key string) ([]byte, bool)
	CachePut(ctx context.Context, key string, payload any, opts cache.PutOptions) error
	CacheDelete(ctx context.Context, key string) bool
	ClearCache(ctx context.Context)
	GetCacheStats() cache.Stats

	QueueAction(ctx context.Context, req *action.EnqueueRequest) (*action.Action, error)
	ListQueue() []*action.Action
	ClearQueue(ctx context.Context)
	ForceSyncNow(ctx context.Context) (*action.SyncResult, error)

	GetStatus() status.Status
	Subscribe(listener func(status.Status)) (unsubscribe func())
}
