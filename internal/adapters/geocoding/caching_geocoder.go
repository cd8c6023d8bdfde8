package geocoding

import (
	"context"
	"log/slog"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/metrics"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
)

// CachingGeocoder consults a persistent cache before calling the wrapped Geocoder.
//
// Keys are normalized with domain.NormalizeAddress. Only successful resolutions are cached;
// cache failures are logged and never fail a lookup.
type CachingGeocoder struct {
	next  ports.Geocoder
	cache ports.GeocodeCache
}

func NewCachingGeocoder(next ports.Geocoder, cache ports.GeocodeCache) *CachingGeocoder {
	return &CachingGeocoder{next: next, cache: cache}
}

func (c *CachingGeocoder) Resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	key := domain.NormalizeAddress(address)

	if key != "" {
		coords, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "geocode cache read failed", "req_id", obs.RequestID(ctx), "address", key, "err", err)
		case ok:
			metrics.GeocodeResolutions.WithLabelValues("cache_hit").Inc()
			return coords, nil
		}
	}

	coords, err := c.next.Resolve(ctx, address)
	if err != nil {
		return domain.Coordinates{}, err
	}

	if key != "" && coords.Validate() == nil {
		if err := c.cache.Put(ctx, key, coords); err != nil {
			slog.WarnContext(ctx, "geocode cache write failed", "req_id", obs.RequestID(ctx), "address", key, "err", err)
		}
	}

	return coords, nil
}
