package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
)

// HandlerRegistry maps action types to the handlers that perform them.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[action.Type]ports.ActionHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[action.Type]ports.ActionHandler)}
}

// Register binds h to t, replacing any previous handler for t.
func (r *HandlerRegistry) Register(t action.Type, h ports.ActionHandler) error {
	if t == "" {
		return action.ErrInvalidType
	}
	if h == nil {
		return fmt.Errorf("handler for %q must not be nil", t)
	}
	r.mu.Lock()
	r.handlers[t] = h
	r.mu.Unlock()
	return nil
}

func (r *HandlerRegistry) Lookup(t action.Type) (ports.ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

func (r *HandlerRegistry) Has(t action.Type) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Types lists the registered types in lexical order.
func (r *HandlerRegistry) Types() []action.Type {
	r.mu.RLock()
	out := make([]action.Type, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ ports.HandlerRegistry = (*HandlerRegistry)(nil)
