package cache

import (
	"context"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.GeocodeCache = (*PostgresGeocodeCache)(nil)
	_ ports.GeocodeCache = (*SqliteGeocodeCache)(nil)
	_ ports.GeocodeCache = (*RedisGeocodeCache)(nil)
)

func exerciseCache(t *testing.T, c ports.GeocodeCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "anna salai, chennai")
	require.NoError(t, err)
	assert.False(t, ok)

	chennai := domain.Coordinates{Lat: 13.0827, Lon: 80.2707}
	require.NoError(t, c.Put(ctx, "anna salai, chennai", chennai))

	got, ok, err := c.Get(ctx, "anna salai, chennai")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, chennai, got)

	moved := domain.Coordinates{Lat: 13.06, Lon: 80.25}
	require.NoError(t, c.Put(ctx, "anna salai, chennai", moved))

	got, _, err = c.Get(ctx, "anna salai, chennai")
	require.NoError(t, err)
	assert.Equal(t, moved, got)

	assert.Error(t, c.Put(ctx, "  ", chennai))
}

func TestSqliteGeocodeCache(t *testing.T) {
	c, err := OpenSqliteGeocodeCache(filepath.Join(t.TempDir(), "geocode.db"))
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)
}

func TestSqliteGeocodeCachePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode.db")
	ctx := context.Background()

	c, err := OpenSqliteGeocodeCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "madurai", domain.Coordinates{Lat: 9.9252, Lon: 78.1198}))
	require.NoError(t, c.Close())

	reopened, err := OpenSqliteGeocodeCache(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok, err := reopened.Get(ctx, "madurai")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGeocodeCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisGeocodeCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	defer c.Close()

	exerciseCache(t, c)
}

func TestRedisGeocodeCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisGeocodeCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "coimbatore", domain.Coordinates{Lat: 11.0168, Lon: 76.9558}))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"coimbatore"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "coimbatore")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenRedisGeocodeCacheFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := OpenRedisGeocodeCache(ctx, addr, time.Hour)
	require.Error(t, err)
}
