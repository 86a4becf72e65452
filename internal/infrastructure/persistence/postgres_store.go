package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps namespace blobs in the offline_blobs table created by the migrations.
type PostgresStore struct {
	db     *sqlx.DB
	prefix string
}

func NewPostgresStore(db *sqlx.DB, prefix string) *PostgresStore {
	return &PostgresStore{db: db, prefix: prefix}
}

func (s *PostgresStore) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	var data []byte
	query := `SELECT data FROM offline_blobs WHERE namespace = $1`
	err := s.db.GetContext(ctx, &data, query, namespacedKey(s.prefix, namespace))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres load %s: %w", namespace, err)
	}
	return data, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, namespace string, data []byte) error {
	query := `
		INSERT INTO offline_blobs (namespace, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (namespace) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, namespacedKey(s.prefix, namespace), data); err != nil {
		return fmt.Errorf("postgres save %s: %w", namespace, err)
	}
	return nil
}

var _ ports.PersistenceAdapter = (*PostgresStore)(nil)
