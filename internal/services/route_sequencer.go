package services

import (
	"errors"
	"fmt"
	"math"
	"parcel-dispatch-service/internal/domain"
)

// Order delivery candidates into a single visiting sequence using a greedy nearest-neighbor heuristic.
//
// Starting at origin, the closest unvisited candidate (haversine distance) becomes the next step.
// Candidates at equal distance are taken in input order, so the same input always yields the same route.
// It does not attempt global route optimization: n candidates cost O(n²) distance evaluations,
// which is fine for the tens of parcels an agent carries.
func SequenceRoute(origin domain.Coordinates, candidates []domain.RouteCandidate) ([]domain.RouteStep, error) {
	if len(candidates) == 0 {
		return nil, errors.New("sequence route: candidates must be non-empty")
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ParcelID]; dup {
			return nil, fmt.Errorf("sequence route: duplicate parcel id %q", c.ParcelID)
		}
		seen[c.ParcelID] = struct{}{}
	}

	// Kept in input order; removal preserves the relative order of the rest.
	remaining := make([]domain.RouteCandidate, len(candidates))
	copy(remaining, candidates)

	current := origin
	steps := make([]domain.RouteStep, 0, len(candidates))

	for len(remaining) > 0 {
		best := -1
		minDistance := math.Inf(1)

		// Strict comparison: the first candidate seen at the minimum distance wins.
		for i, c := range remaining {
			if d := domain.Distance(current, c.Coords); d < minDistance {
				minDistance = d
				best = i
			}
		}

		if best < 0 {
			return nil, errors.New("sequence route: failed to select next candidate")
		}
		next := remaining[best]

		steps = append(steps, domain.RouteStep{
			Ordinal:  len(steps) + 1,
			ParcelID: next.ParcelID,
			Address:  next.Address,
			Type:     domain.StepDelivery,
		})

		remaining = append(remaining[:best], remaining[best+1:]...)
		current = next.Coords
	}

	return steps, nil
}
