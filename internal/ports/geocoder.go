package ports

import (
	"context"
	"errors"
	"fmt"
	"parcel-dispatch-service/internal/domain"
)

// ErrAddressNotFound is returned by a Geocoder when the address has no match.
// It is a normal outcome, not a fault.
var ErrAddressNotFound = errors.New("address not found")

// TransientError marks a geocoding failure that may succeed when retried
// (rate limiting, 5xx responses, network errors).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient geocoding failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Port: resolves a free-text address to coordinates.
type Geocoder interface {
	// Resolve returns the coordinates for address, ErrAddressNotFound, or a *TransientError.
	Resolve(ctx context.Context, address string) (domain.Coordinates, error)
}
