package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geocode:"

type redisEntry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RedisGeocodeCache shares geocoding results between service instances.
// Entries expire after TTL so moved or corrected addresses are eventually re-resolved.
type RedisGeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: ttl}
}

// OpenRedisGeocodeCache connects to addr and verifies the connection with PING.
func OpenRedisGeocodeCache(ctx context.Context, addr string, ttl time.Duration) (*RedisGeocodeCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis geocode cache: ping %s: %w", addr, err)
	}
	return NewRedisGeocodeCache(client, ttl), nil
}

func (r *RedisGeocodeCache) Get(ctx context.Context, address string) (_ domain.Coordinates, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.Get")(&err)

	raw, err := r.client.Get(ctx, redisKeyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache: decode %q: %w", address, err)
	}

	return domain.Coordinates{Lat: e.Lat, Lon: e.Lon}, true, nil
}

func (r *RedisGeocodeCache) Put(ctx context.Context, address string, coords domain.Coordinates) error {
	if strings.TrimSpace(address) == "" {
		return errors.New("insert geocode cache: empty address key")
	}

	raw, err := json.Marshal(redisEntry{Lat: coords.Lat, Lon: coords.Lon})
	if err != nil {
		return fmt.Errorf("insert geocode cache: encode: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+address, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, err)
	}
	return nil
}

func (r *RedisGeocodeCache) Close() error {
	return r.client.Close()
}
