package ports

import (
	"context"
	"time"
)

// StatusChanged is emitted after a parcel status transition has been persisted.
type StatusChanged struct {
	ParcelID    string     `json:"parcel_id"`
	AgentID     string     `json:"agent_id,omitempty"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Remarks     string     `json:"remarks,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Port: publishes parcel lifecycle events to a message broker.
type StatusEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged) error
}
