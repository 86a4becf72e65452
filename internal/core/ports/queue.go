package ports

import (
	"context"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
)

// ActionQueue is the durable list of pending offline actions. Every mutation is persisted
// before it returns, which gives handlers at-least-once delivery across restarts.
type ActionQueue interface {
	Enqueue(ctx context.Context, req *action.EnqueueRequest) (*action.Action, error)
	// DrainSnapshot removes every eligible action for one pass, ordered for dispatch.
	// Drained actions stay persisted until Complete, Requeue or Drop.
	DrainSnapshot(ctx context.Context) []*action.Action
	// Complete removes a successfully dispatched action.
	Complete(ctx context.Context, id string)
	// Requeue returns a failed action for the next pass with RetryCount incremented.
	Requeue(ctx context.Context, a *action.Action, cause error)
	// Drop removes an action that failed permanently.
	Drop(ctx context.Context, id string)
	// Release returns drained but undispatched actions unchanged.
	Release(ctx context.Context, actions []*action.Action)
	Size() int
}
