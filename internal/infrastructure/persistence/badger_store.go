package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	badgerdb "github.com/dgraph-io/badger/v4"
)

// BadgerStore is the embedded on-device backend.
type BadgerStore struct {
	db     *badgerdb.DB
	prefix string
}

func NewBadgerStore(path, prefix string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}
	db, err := badgerdb.Open(badgerdb.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (s *BadgerStore) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(namespacedKey(s.prefix, namespace)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger load %s: %w", namespace, err)
	}
	return data, true, nil
}

func (s *BadgerStore) Save(ctx context.Context, namespace string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(namespacedKey(s.prefix, namespace)), data)
	})
	if err != nil {
		return fmt.Errorf("badger save %s: %w", namespace, err)
	}
	return nil
}

// Ping verifies a read transaction can be opened.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badgerdb.Txn) error { return nil })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ ports.PersistenceAdapter = (*BadgerStore)(nil)
