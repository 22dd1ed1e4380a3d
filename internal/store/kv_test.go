package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite KV for testing
func setupTestDB(t *testing.T) *SQLiteKV {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	kv, err := NewSQLiteKV(sqlDB)
	if err != nil {
		t.Fatalf("Failed to prepare test database: %v", err)
	}

	t.Cleanup(func() {
		kv.Close()
	})

	return kv
}

func setupTestRedis(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return NewRedisKV(client, "stride:"), server
}

func TestKVBackends(t *testing.T) {
	redisKV, _ := setupTestRedis(t)

	backends := []struct {
		name string
		kv   KV
	}{
		{"sqlite", setupTestDB(t)},
		{"redis", redisKV},
		{"memory", NewMemoryKV()},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := b.kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.kv.Set(ctx, "k", "v1"))
			v, ok, err := b.kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v1", v)

			require.NoError(t, b.kv.Set(ctx, "k", "v2"))
			v, _, err = b.kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v2", v, "set overwrites")

			require.NoError(t, b.kv.Remove(ctx, "k"))
			_, ok, err = b.kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.kv.Remove(ctx, "k"), "removing a missing key")
		})
	}
}

func TestRedisKVPrefix(t *testing.T) {
	kv, server := setupTestRedis(t)
	require.NoError(t, kv.Set(context.Background(), ActiveRunKey, "{}"))

	got, err := server.Get("stride:" + ActiveRunKey)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestRedisKVUnavailable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := ConnectRedis(context.Background(), RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestOpenCreatesDatabase(t *testing.T) {
	path := t.TempDir() + "/nested/data.db"
	kv, err := Open(path)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set(context.Background(), "k", "v"))
	kv.Close()

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
