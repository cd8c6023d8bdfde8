package dto

type CoordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RouteStepResponse struct {
	Ordinal  int    `json:"ordinal"`
	ParcelID string `json:"parcel_id"`
	Address  string `json:"address"`
	Type     string `json:"type"`
}

type RouteResponse struct {
	AgentID string              `json:"agent_id"`
	Origin  CoordinatesResponse `json:"origin"`
	Steps   []RouteStepResponse `json:"steps"`
	// Parcels left out because their receiver address could not be geocoded.
	UnresolvedParcelIDs []string `json:"unresolved_parcel_ids"`
}
