package dto

import "time"

type ParcelResponse struct {
	ParcelID        string     `json:"parcel_id"`
	AgentID         string     `json:"agent_id,omitempty"`
	Status          string     `json:"status"`
	SenderAddress   string     `json:"sender_address"`
	ReceiverAddress string     `json:"receiver_address"`
	FastDelivery    bool       `json:"fast_delivery"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at"`
	Remarks         string     `json:"remarks"`
}

type ListParcelsResponse struct {
	Parcels []ParcelResponse `json:"parcels"`
}

type DashboardResponse struct {
	AgentID   string `json:"agent_id"`
	Created   int    `json:"created"`
	Delivered int    `json:"delivered"`
	Pending   int    `json:"pending"`
}

// StatusUpdateRequest advances a parcel one lifecycle step.
// DeliveryImage is a base64 PNG, optionally as a data: URL.
type StatusUpdateRequest struct {
	NewStatus     string `json:"new_status"`
	Remarks       string `json:"remarks"`
	DeliveryImage string `json:"delivery_image"`
}

type StatusUpdateResponse struct {
	Parcel     ParcelResponse `json:"parcel"`
	ProofRef   string         `json:"proof_ref,omitempty"`
	ProofError string         `json:"proof_error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
