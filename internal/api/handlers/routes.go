package handlers

import (
	"context"
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/domain"
)

type RoutePlanner interface {
	Plan(ctx context.Context, agentID string) (*domain.RoutePlan, error)
}

// RouteHandler serves the delivery route for one agent.
type RouteHandler struct {
	Planner RoutePlanner
}

func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agentID")

	plan, err := h.Planner.Plan(r.Context(), agentID)
	if err != nil {
		writeDomainError(w, r, "plan route", err)
		return
	}

	res := dto.RouteResponse{
		AgentID:             plan.AgentID,
		Origin:              dto.CoordinatesResponse{Lat: plan.Origin.Lat, Lon: plan.Origin.Lon},
		Steps:               make([]dto.RouteStepResponse, 0, len(plan.Steps)),
		UnresolvedParcelIDs: make([]string, 0, len(plan.Unresolved)),
	}
	for _, s := range plan.Steps {
		res.Steps = append(res.Steps, dto.RouteStepResponse{
			Ordinal:  s.Ordinal,
			ParcelID: s.ParcelID,
			Address:  s.Address,
			Type:     string(s.Type),
		})
	}
	res.UnresolvedParcelIDs = append(res.UnresolvedParcelIDs, plan.Unresolved...)

	writeJSON(w, r, http.StatusOK, res)
}
