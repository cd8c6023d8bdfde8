package domain

// StepType classifies a route step. The origin is implicit and never emitted as a step.
type StepType string

const StepDelivery StepType = "Delivery"

// Represents a single stop in an agent's delivery route.
// Ordinals are 1-based and contiguous.
type RouteStep struct {
	Ordinal  int
	ParcelID string
	Address  string
	Type     StepType
}

// A parcel with its resolved receiver coordinate, eligible for sequencing.
type RouteCandidate struct {
	ParcelID string
	Address  string
	Coords   Coordinates
}

// Represents the planned visiting order for one agent.
// A RoutePlan is computed per request and never stored. Unresolved lists the eligible parcels
// whose receiver address could not be geocoded and were left out of Steps.
type RoutePlan struct {
	AgentID    string
	Origin     Coordinates
	Steps      []RouteStep
	Unresolved []string
}
