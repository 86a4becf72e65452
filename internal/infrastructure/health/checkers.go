// Package health adapts persistence backends to ports.HealthChecker.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	infraDB "github.com/avatarctic/offline-sync/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

const defaultCheckTimeout = time.Second

// StoreChecker pings one persistence backend. Name is reported as "persistence:<backend>".
type StoreChecker struct {
	backend string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

func (s *StoreChecker) Name() string { return "persistence:" + s.backend }

func (s *StoreChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", s.backend, err)
	}
	return nil
}

func NewStoreChecker(backend string, ping func(ctx context.Context) error) *StoreChecker {
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}
	return &StoreChecker{backend: backend, timeout: defaultCheckTimeout, ping: ping}
}

func NewPostgresChecker(db *infraDB.Database) *StoreChecker {
	return NewStoreChecker("postgres", db.DB.PingContext)
}

func NewRedisChecker(client redis.UniversalClient) *StoreChecker {
	return NewStoreChecker("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
}

var _ ports.HealthChecker = (*StoreChecker)(nil)
