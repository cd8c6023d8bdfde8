package domain

import (
	"errors"
	"fmt"
)

var (
	// Status machine rejections.
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("illegal status transition")

	// Routing outcomes surfaced to the caller.
	ErrNoActiveParcels          = errors.New("no active parcels")
	ErrOriginUnresolved         = errors.New("route origin could not be geocoded")
	ErrNoResolvableDestinations = errors.New("no delivery address could be geocoded")

	ErrAgentNotFound    = errors.New("agent not found")
	ErrParcelNotFound   = errors.New("parcel not found")
	ErrConcurrentUpdate = errors.New("parcel status changed concurrently")
)

// TransitionError describes a rejected status change and the state that would have been accepted.
type TransitionError struct {
	ParcelID  string
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	required := "none (terminal)"
	if next, ok := e.Current.Next(); ok {
		required = fmt.Sprintf("%q", next.String())
	}
	return fmt.Sprintf(
		"parcel %s: cannot move from %q to %q; status must follow Picked Up -> In Transit -> Delivered, next allowed is %s",
		e.ParcelID, e.Current.String(), e.Requested.String(), required,
	)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
