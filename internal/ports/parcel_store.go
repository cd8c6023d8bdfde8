package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: read access to parcels for routing and agent queries.
type ParcelReader interface {
	// Report whether agentID identifies a known agent.
	AgentExists(ctx context.Context, agentID string) (bool, error)
	// Retrieve parcels assigned to agentID whose status is not terminal.
	ListActiveByAgent(ctx context.Context, agentID string) ([]*domain.Parcel, error)
	// Retrieve every parcel assigned to agentID, whatever its status.
	ListByAgent(ctx context.Context, agentID string) ([]*domain.Parcel, error)
	// Retrieve a single parcel; domain.ErrParcelNotFound if absent.
	GetParcel(ctx context.Context, parcelID string) (*domain.Parcel, error)
}

// Port: persists a status transition already applied to the parcel in memory.
type ParcelStatusWriter interface {
	// SaveStatus stores status, remarks and delivery timestamp only if the stored status still
	// equals previous; otherwise it returns domain.ErrConcurrentUpdate.
	SaveStatus(ctx context.Context, parcel *domain.Parcel, previous domain.Status) error
}

// ParcelStore combines the read and write sides.
type ParcelStore interface {
	ParcelReader
	ParcelStatusWriter
}
