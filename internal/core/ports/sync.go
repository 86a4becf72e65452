package ports

import (
	"context"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
)

// ActionHandler performs the real-world effect of an action (submit a form, send an e-mail).
// A nil error means success; wrap errors with action.Permanent to prevent retries.
// Handlers may see the same action more than once and must tolerate duplicates.
type ActionHandler interface {
	Handle(ctx context.Context, a *action.Action) error
}

// ActionHandlerFunc adapts a plain function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, a *action.Action) error

func (f ActionHandlerFunc) Handle(ctx context.Context, a *action.Action) error {
	return f(ctx, a)
}

// HandlerRegistry maps action types to handlers.
type HandlerRegistry interface {
	Register(t action.Type, h ActionHandler) error
	Lookup(t action.Type) (ActionHandler, bool)
	Has(t action.Type) bool
	Types() []action.Type
}

// SyncProcessor drains the action queue while online.
type SyncProcessor interface {
	// ForceSyncNow runs one drain pass synchronously.
	ForceSyncNow(ctx context.Context) (*action.SyncResult, error)
	// Trigger requests an asynchronous drain pass without blocking.
	Trigger()
	LastSyncTime() (time.Time, bool)
	LastResult() *action.SyncResult
	Syncing() bool
}
