package services

import (
	"context"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"slices"
)

// AgentDashboard summarises an agent's workload.
type AgentDashboard struct {
	AgentID   string
	Created   int // every parcel ever assigned
	Delivered int
	Pending   int // picked up or in transit
}

// AgentParcels answers read-only parcel queries for agents and single parcels.
type AgentParcels struct {
	parcels ports.ParcelReader
}

func NewAgentParcels(parcels ports.ParcelReader) *AgentParcels {
	return &AgentParcels{parcels: parcels}
}

// Active lists the agent's undelivered parcels, fast deliveries first, then newest first.
func (a *AgentParcels) Active(ctx context.Context, agentID string) (_ []*domain.Parcel, err error) {
	defer obs.Time(ctx, "services.AgentParcels.Active")(&err)

	if err := a.requireAgent(ctx, agentID); err != nil {
		return nil, err
	}

	parcels, err := a.parcels.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("active parcels: list for agent %q: %w", agentID, err)
	}

	out := make([]*domain.Parcel, 0, len(parcels))
	for _, p := range parcels {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(x, y *domain.Parcel) int {
		if x.FastDelivery != y.FastDelivery {
			if x.FastDelivery {
				return -1
			}
			return 1
		}
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	return out, nil
}

// Dashboard counts the agent's parcels by lifecycle stage.
func (a *AgentParcels) Dashboard(ctx context.Context, agentID string) (_ *AgentDashboard, err error) {
	defer obs.Time(ctx, "services.AgentParcels.Dashboard")(&err)

	if err := a.requireAgent(ctx, agentID); err != nil {
		return nil, err
	}

	parcels, err := a.parcels.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list for agent %q: %w", agentID, err)
	}

	d := &AgentDashboard{AgentID: agentID, Created: len(parcels)}
	for _, p := range parcels {
		switch p.Status {
		case domain.StatusDelivered:
			d.Delivered++
		case domain.StatusPickedUp, domain.StatusInTransit:
			d.Pending++
		}
	}

	return d, nil
}

// Parcel returns a single parcel by id.
func (a *AgentParcels) Parcel(ctx context.Context, parcelID string) (*domain.Parcel, error) {
	p, err := a.parcels.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, fmt.Errorf("get parcel %s: %w", parcelID, err)
	}
	return p, nil
}

func (a *AgentParcels) requireAgent(ctx context.Context, agentID string) error {
	exists, err := a.parcels.AgentExists(ctx, agentID)
	if err != nil {
		return fmt.Errorf("check agent %q: %w", agentID, err)
	}
	if !exists {
		return fmt.Errorf("agent %q: %w", agentID, domain.ErrAgentNotFound)
	}
	return nil
}
