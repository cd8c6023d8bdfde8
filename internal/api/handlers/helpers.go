package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
)

// statusClientClosedRequest is the nginx convention for a request the client abandoned.
const statusClientClosedRequest = 499

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "encode failed", "req_id", obs.RequestID(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg, Code: code})
}

// writeDomainError maps service errors onto HTTP responses. Unknown errors are logged and
// reported as 500 without leaking details.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var te *domain.TransitionError

	switch {
	case errors.As(err, &te):
		writeError(w, r, http.StatusBadRequest, "illegal_transition", te.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, domain.ErrParcelNotFound):
		writeError(w, r, http.StatusNotFound, "parcel_not_found", domain.ErrParcelNotFound.Error())
	case errors.Is(err, domain.ErrAgentNotFound):
		writeError(w, r, http.StatusNotFound, "agent_not_found", domain.ErrAgentNotFound.Error())
	case errors.Is(err, domain.ErrNoActiveParcels):
		writeError(w, r, http.StatusNotFound, "no_active_parcels", "agent has no active parcels to route")
	case errors.Is(err, domain.ErrOriginUnresolved):
		writeError(w, r, http.StatusUnprocessableEntity, "origin_unresolved", domain.ErrOriginUnresolved.Error())
	case errors.Is(err, domain.ErrNoResolvableDestinations):
		writeError(w, r, http.StatusUnprocessableEntity, "no_resolvable_destinations", domain.ErrNoResolvableDestinations.Error())
	case errors.Is(err, domain.ErrConcurrentUpdate):
		writeError(w, r, http.StatusConflict, "concurrent_update", domain.ErrConcurrentUpdate.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.Is(err, context.Canceled):
		slog.InfoContext(r.Context(), op+" canceled by client", "req_id", obs.RequestID(r.Context()))
		writeError(w, r, statusClientClosedRequest, "canceled", "request canceled")
	default:
		slog.ErrorContext(r.Context(), op+" failed", "req_id", obs.RequestID(r.Context()), "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func toParcelResponse(p *domain.Parcel) dto.ParcelResponse {
	return dto.ParcelResponse{
		ParcelID:        p.ParcelID,
		AgentID:         p.AgentID,
		Status:          p.Status.String(),
		SenderAddress:   p.SenderAddress,
		ReceiverAddress: p.ReceiverAddress,
		FastDelivery:    p.FastDelivery,
		CreatedAt:       p.CreatedAt,
		DeliveredAt:     p.DeliveredAt,
		Remarks:         p.Remarks,
	}
}
