package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/avatarctic/offline-sync/configs"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	infraDB "github.com/avatarctic/offline-sync/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every PersistenceAdapter must share.
func exerciseStore(t *testing.T, store ports.PersistenceAdapter) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Load(ctx, ports.NamespaceQueue)
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	require.NoError(t, store.Save(ctx, ports.NamespaceQueue, []byte(`{"version":1}`)))
	data, ok, err := store.Load(ctx, ports.NamespaceQueue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"version":1}`, string(data))

	require.NoError(t, store.Save(ctx, ports.NamespaceQueue, []byte(`{"version":2}`)))
	data, _, err = store.Load(ctx, ports.NamespaceQueue)
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(data), "save replaces the whole blob")

	_, ok, err = store.Load(ctx, ports.NamespaceCache)
	require.NoError(t, err)
	assert.False(t, ok, "namespaces are independent")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, ports.NamespaceCache, []byte(fmt.Sprintf(`{"writer":%d}`, i))))
		}(i)
	}
	wg.Wait()
	data, ok, err = store.Load(ctx, ports.NamespaceCache)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Regexp(t, `^\{"writer":\d\}$`, string(data), "concurrent saves never interleave")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	blob := []byte("abc")
	require.NoError(t, store.Save(ctx, "ns", blob))
	blob[0] = 'z'

	data, _, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	data[1] = 'z'
	again, _, _ := store.Load(ctx, "ns")
	assert.Equal(t, "abc", string(again))
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBadgerStore(dir, "")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, ports.NamespaceQueue, []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	data, ok, err := reopened.Load(ctx, ports.NamespaceQueue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "persisted", string(data))
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "offline.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)
}

func TestSQLiteStore_PrefixesIsolateTenants(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline.db")

	a, err := NewSQLiteStore(path, "device-a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := NewSQLiteStore(path, "device-b")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, a.Save(ctx, ports.NamespaceQueue, []byte("a")))
	_, ok, err := b.Load(ctx, ports.NamespaceQueue)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	prefix := fmt.Sprintf("offline-test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		client.Del(context.Background(), namespacedKey(prefix, ports.NamespaceQueue), namespacedKey(prefix, ports.NamespaceCache))
	})
	exerciseStore(t, NewRedisStore(client, prefix))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	database, err := infraDB.NewDatabase(context.Background(), &configs.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	version, err := database.Migrate("")
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	prefix := fmt.Sprintf("offline-test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = database.DB.Exec(`DELETE FROM offline_blobs WHERE namespace LIKE $1`, prefix+":%")
	})
	exerciseStore(t, NewPostgresStore(database.DB, prefix))
}

func TestOpen_MemoryAndUnknownBackends(t *testing.T) {
	cfg := &configs.Config{Persistence: configs.PersistenceConfig{Backend: configs.BackendMemory}}
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "persistence:memory", b.Checker.Name())
	require.NoError(t, b.Checker.Check(context.Background()))
	require.NoError(t, b.Close())

	cfg.Persistence.Backend = "floppy"
	_, err = Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpen_EmbeddedBackends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{configs.BackendBadger, configs.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := &configs.Config{Persistence: configs.PersistenceConfig{
				Backend:    backend,
				BadgerPath: filepath.Join(dir, "badger"),
				SQLitePath: filepath.Join(dir, "sqlite", "offline.db"),
			}}
			b, err := Open(context.Background(), cfg, nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })

			assert.Equal(t, "persistence:"+backend, b.Checker.Name())
			require.NoError(t, b.Checker.Check(context.Background()))
			exerciseStore(t, b.Store)
		})
	}
}

func TestNamespacedKey(t *testing.T) {
	assert.Equal(t, "queue", namespacedKey("", "queue"))
	assert.Equal(t, "app:queue", namespacedKey("app", "queue"))
}
