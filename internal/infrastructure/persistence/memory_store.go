package persistence

import (
	"context"
	"sync"

	"github.com/avatarctic/offline-sync/internal/core/ports"
)

// MemoryStore keeps blobs in process memory. State does not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[namespace]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, namespace string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[namespace] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

var _ ports.PersistenceAdapter = (*MemoryStore)(nil)
