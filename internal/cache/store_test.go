package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/modlocker/modlocker/internal/database/testutil"
)

func openRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	srv := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store := openRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pending:pi_123", []byte(`{"plan":"monthly"}`), time.Minute))

	value, found, err := store.Get(ctx, "pending:pi_123")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"plan":"monthly"}`, string(value))

	require.NoError(t, store.Delete(ctx, "pending:pi_123"))

	_, found, err = store.Get(ctx, "pending:pi_123")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store := openRedisStore(t)
	ctx := context.Background()

	count, _, err := store.IncrementWithTTL(ctx, "rate:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, ttl, err := store.IncrementWithTTL(ctx, "rate:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Greater(t, ttl, time.Duration(0))
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pending:pi_9", []byte("v"), time.Minute))

	value, found, err := store.Get(ctx, "pending:pi_9")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), value)

	require.NoError(t, store.Delete(ctx, "pending:pi_9"))
	_, found, err = store.Get(ctx, "pending:pi_9")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisStoreTakeConsumesOnce(t *testing.T) {
	store := openRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pending:pi_7", []byte("v"), time.Minute))

	value, found, err := store.Take(ctx, "pending:pi_7")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), value)

	_, found, err = store.Take(ctx, "pending:pi_7")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreTakeConsumesOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pending:pi_7", []byte("v"), time.Minute))

	value, found, err := store.Take(ctx, "pending:pi_7")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), value)

	_, found, err = store.Take(ctx, "pending:pi_7")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = store.Get(ctx, "pending:pi_7")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreTakeSkipsExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("v"), -time.Second))

	_, found, err := store.Take(ctx, "stale")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), -time.Second))

	_, found, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreIncrement(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, _, err := store.IncrementWithTTL(ctx, "rate:path", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("v"), -time.Minute))
	require.NoError(t, store.Set(ctx, "fresh", []byte("v"), time.Hour))
	require.NoError(t, store.Set(ctx, "pinned", []byte("v"), 0))

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, found, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = store.Get(ctx, "pinned")
	require.NoError(t, err)
	require.True(t, found)
}
