package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/services"
	"strings"
)

type ParcelQueries interface {
	Active(ctx context.Context, agentID string) ([]*domain.Parcel, error)
	Dashboard(ctx context.Context, agentID string) (*services.AgentDashboard, error)
	Parcel(ctx context.Context, parcelID string) (*domain.Parcel, error)
}

type StatusAdvancer interface {
	Advance(ctx context.Context, parcelID string, update services.StatusUpdate) (*services.StatusUpdateResult, error)
}

// ParcelHandler exposes parcel lookups and the status update endpoint.
type ParcelHandler struct {
	Queries        ParcelQueries
	Updater        StatusAdvancer
	MaxUploadBytes int64
}

func (h *ParcelHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Queries.Parcel(r.Context(), r.PathValue("parcelID"))
	if err != nil {
		writeDomainError(w, r, "get parcel", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toParcelResponse(p))
}

func (h *ParcelHandler) ListForAgent(w http.ResponseWriter, r *http.Request) {
	parcels, err := h.Queries.Active(r.Context(), r.PathValue("agentID"))
	if err != nil {
		writeDomainError(w, r, "list parcels", err)
		return
	}

	res := dto.ListParcelsResponse{Parcels: make([]dto.ParcelResponse, 0, len(parcels))}
	for _, p := range parcels {
		res.Parcels = append(res.Parcels, toParcelResponse(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *ParcelHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Queries.Dashboard(r.Context(), r.PathValue("agentID"))
	if err != nil {
		writeDomainError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.DashboardResponse{
		AgentID:   d.AgentID,
		Created:   d.Created,
		Delivered: d.Delivered,
		Pending:   d.Pending,
	})
}

// UpdateStatus advances a parcel to new_status. A proof image that fails to store does not undo
// the update; it is reported in proof_error.
func (h *ParcelHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	var req dto.StatusUpdateRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "body must contain only one JSON object")
		return
	}

	status, err := domain.ParseStatus(req.NewStatus)
	if err != nil {
		writeDomainError(w, r, "update status", err)
		return
	}

	image, err := decodeImage(req.DeliveryImage)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_image", "delivery_image must be base64 encoded")
		return
	}

	result, err := h.Updater.Advance(r.Context(), r.PathValue("parcelID"), services.StatusUpdate{
		Status:     status,
		Remark:     req.Remarks,
		ProofImage: image,
	})
	if err != nil {
		writeDomainError(w, r, "update status", err)
		return
	}

	res := dto.StatusUpdateResponse{
		Parcel:   toParcelResponse(result.Parcel),
		ProofRef: result.ProofRef,
	}
	if result.ProofError != nil {
		res.ProofError = "delivery image could not be stored"
	}
	writeJSON(w, r, http.StatusOK, res)
}

// decodeImage accepts raw base64 or a data URL ("data:image/png;base64,...").
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		s = payload
	}
	return base64.StdEncoding.DecodeString(s)
}
