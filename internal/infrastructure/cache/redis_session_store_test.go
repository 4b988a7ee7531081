package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bimate/backend/internal/application/navigation"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStoreWithClient(client, "test:session:", time.Hour), mr
}

func testSession() *navigation.Session {
	s := navigation.NewSession(7, 700, navigation.FlowReport, 2024)
	s.State = navigation.WeekPicker
	s.History = []navigation.State{navigation.ReportTypeMenu, navigation.WeekYearPicker, navigation.WeekMonthPicker}
	s.Subtype = navigation.SubtypeWeekly
	s.Selection = navigation.Selection{Granularity: period.Week, Year: 2023, Month: 2}
	s.MessageID = 55
	return s
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession()))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, navigation.WeekPicker, got.State)
	assert.Equal(t, 2023, got.Selection.Year)
	assert.Equal(t, 2, got.Selection.Month)
	assert.Equal(t, 55, got.MessageID)
	assert.Len(t, got.History, 3)

	assert.True(t, mr.Exists("test:session:7"))
	assert.Equal(t, time.Hour, mr.TTL("test:session:7"))
}

func TestRedisSessionStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionStore_CorruptEntry(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("test:session:7", "{not json"))

	_, err := store.Get(context.Background(), 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession()))

	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession()))

	require.NoError(t, store.Delete(ctx, 7))
	require.NoError(t, store.Delete(ctx, 7))

	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionStore_Defaults(t *testing.T) {
	store := NewRedisSessionStoreWithClient(redis.NewClient(&redis.Options{}), "", 0)
	defer store.Close()

	assert.Equal(t, DefaultKeyPrefix, store.keyPrefix)
	assert.Equal(t, DefaultSessionTTL, store.ttl)
}

func TestSessionStoreFactory(t *testing.T) {
	t.Run("disabled uses memory", func(t *testing.T) {
		store, err := NewSessionStoreFactory(config.RedisConfig{}).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &navigation.MemoryStore{}, store)
	})

	t.Run("reachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		store, err := NewSessionStoreFactory(config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}).CreateStore()
		require.NoError(t, err)
		rs, ok := store.(*RedisSessionStore)
		require.True(t, ok)
		defer rs.Close()
	})

	t.Run("unreachable falls back", func(t *testing.T) {
		cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
		store, err := NewSessionStoreFactory(cfg).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &navigation.MemoryStore{}, store)
	})

	t.Run("unreachable without fallback", func(t *testing.T) {
		cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
		_, err := NewSessionStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})
}
