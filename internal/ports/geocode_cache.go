package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: persistent address -> coordinate cache placed in front of a Geocoder.
// Keys are expected to be normalized by the caller.
type GeocodeCache interface {
	// Get returns the cached coordinates and whether the key was present.
	Get(ctx context.Context, address string) (domain.Coordinates, bool, error)
	Put(ctx context.Context, address string, coords domain.Coordinates) error
}
