package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/metrics"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultGeocodeConcurrency = 4
	defaultRetryBackoff       = 250 * time.Millisecond

	// One attempt plus a single retry on transient failures.
	maxResolveAttempts = 2
)

// RoutePlanner builds a delivery route for one agent from its active parcels.
// It is read-only: planning never changes parcel or agent state.
type RoutePlanner struct {
	parcels     ports.ParcelReader
	geocoder    ports.Geocoder
	concurrency int
	backoff     time.Duration
}

type PlannerOption func(*RoutePlanner)

// WithConcurrency bounds the number of in-flight geocoding calls per request.
func WithConcurrency(n int) PlannerOption {
	return func(p *RoutePlanner) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRetryBackoff sets the pause before retrying a transient geocoding failure.
func WithRetryBackoff(d time.Duration) PlannerOption {
	return func(p *RoutePlanner) {
		if d >= 0 {
			p.backoff = d
		}
	}
}

func NewRoutePlanner(parcels ports.ParcelReader, geocoder ports.Geocoder, opts ...PlannerOption) *RoutePlanner {
	p := &RoutePlanner{
		parcels:     parcels,
		geocoder:    geocoder,
		concurrency: defaultGeocodeConcurrency,
		backoff:     defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type resolution struct {
	coords domain.Coordinates
	err    error
}

// Plan computes the visiting order for agentID's active parcels.
//
// The origin is the sender address of the earliest created active parcel. Receiver addresses that
// cannot be geocoded are left out of the route and listed in RoutePlan.Unresolved. The request fails
// with domain.ErrNoActiveParcels, domain.ErrOriginUnresolved or domain.ErrNoResolvableDestinations
// when no route can be built, and with the context error if ctx ends first.
func (p *RoutePlanner) Plan(ctx context.Context, agentID string) (_ *domain.RoutePlan, err error) {
	defer obs.Time(ctx, "services.RoutePlanner.Plan")(&err)
	defer func() { metrics.RoutePlans.WithLabelValues(planOutcome(err)).Inc() }()

	exists, err := p.parcels.AgentExists(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("plan route: check agent %q: %w", agentID, err)
	}
	if !exists {
		return nil, fmt.Errorf("plan route: agent %q: %w", agentID, domain.ErrAgentNotFound)
	}

	listed, err := p.parcels.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("plan route: list active parcels for agent %q: %w", agentID, err)
	}

	eligible := make([]*domain.Parcel, 0, len(listed))
	for _, parcel := range listed {
		if parcel != nil && parcel.IsActive() {
			eligible = append(eligible, parcel)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("plan route: agent %q: %w", agentID, domain.ErrNoActiveParcels)
	}

	// Creation order is the insertion order the sequencer breaks ties with.
	slices.SortStableFunc(eligible, func(a, b *domain.Parcel) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ParcelID, b.ParcelID)
	})

	originAddr := strings.TrimSpace(eligible[0].SenderAddress)
	if originAddr == "" {
		return nil, fmt.Errorf("plan route: parcel %s has no sender address: %w", eligible[0].ParcelID, domain.ErrOriginUnresolved)
	}
	origin, err := p.resolve(ctx, originAddr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("plan route: %w", ctxErr)
		}
		return nil, fmt.Errorf("plan route: origin %q: %w: %w", originAddr, domain.ErrOriginUnresolved, err)
	}

	// Parcels sharing a receiver address are geocoded once.
	addrIndex := make(map[string]int)
	addresses := make([]string, 0, len(eligible))
	parcelAddr := make([]int, len(eligible))
	for i, parcel := range eligible {
		addr := strings.TrimSpace(parcel.ReceiverAddress)
		if addr == "" {
			parcelAddr[i] = -1
			continue
		}
		key := domain.NormalizeAddress(addr)
		idx, ok := addrIndex[key]
		if !ok {
			idx = len(addresses)
			addrIndex[key] = idx
			addresses = append(addresses, addr)
		}
		parcelAddr[i] = idx
	}

	results := make([]resolution, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			coords, err := p.resolve(gctx, addr)
			results[i] = resolution{coords: coords, err: err}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan route: resolve destinations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	candidates := make([]domain.RouteCandidate, 0, len(eligible))
	var unresolved []string
	for i, parcel := range eligible {
		idx := parcelAddr[i]
		if idx < 0 {
			slog.WarnContext(ctx, "route candidate excluded",
				"req_id", obs.RequestID(ctx), "agent_id", agentID, "parcel_id", parcel.ParcelID, "reason", "empty receiver address")
			unresolved = append(unresolved, parcel.ParcelID)
			continue
		}
		if res := results[idx]; res.err != nil {
			slog.WarnContext(ctx, "route candidate excluded",
				"req_id", obs.RequestID(ctx), "agent_id", agentID, "parcel_id", parcel.ParcelID, "address", addresses[idx], "err", res.err)
			unresolved = append(unresolved, parcel.ParcelID)
			continue
		}
		candidates = append(candidates, domain.RouteCandidate{
			ParcelID: parcel.ParcelID,
			Address:  strings.TrimSpace(parcel.ReceiverAddress),
			Coords:   results[idx].coords,
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("plan route: agent %q, %d parcels: %w", agentID, len(eligible), domain.ErrNoResolvableDestinations)
	}

	steps, err := SequenceRoute(origin, candidates)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	metrics.RouteStops.Observe(float64(len(steps)))

	return &domain.RoutePlan{
		AgentID:    agentID,
		Origin:     origin,
		Steps:      steps,
		Unresolved: unresolved,
	}, nil
}

// resolve geocodes one address, retrying once on a transient failure.
// Coordinates outside the valid ranges count as a failed resolution.
func (p *RoutePlanner) resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	var lastErr error

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Coordinates{}, err
		}

		coords, err := p.geocoder.Resolve(ctx, address)
		if err == nil {
			if verr := coords.Validate(); verr != nil {
				metrics.GeocodeResolutions.WithLabelValues("invalid").Inc()
				return domain.Coordinates{}, fmt.Errorf("resolve %q: %w", address, verr)
			}
			metrics.GeocodeResolutions.WithLabelValues("resolved").Inc()
			return coords, nil
		}
		lastErr = err

		if !ports.IsTransient(err) {
			if errors.Is(err, ports.ErrAddressNotFound) {
				metrics.GeocodeResolutions.WithLabelValues("not_found").Inc()
			}
			return domain.Coordinates{}, fmt.Errorf("resolve %q: %w", address, err)
		}
		metrics.GeocodeResolutions.WithLabelValues("transient").Inc()

		if attempt == maxResolveAttempts {
			break
		}

		timer := time.NewTimer(p.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Coordinates{}, ctx.Err()
		case <-timer.C:
		}
	}

	return domain.Coordinates{}, fmt.Errorf("resolve %q: retries exhausted: %w", address, lastErr)
}

func planOutcome(err error) string {
	switch {
	case err == nil:
		return "planned"
	case errors.Is(err, domain.ErrNoActiveParcels):
		return "no_active_parcels"
	case errors.Is(err, domain.ErrOriginUnresolved):
		return "origin_unresolved"
	case errors.Is(err, domain.ErrNoResolvableDestinations):
		return "no_destinations"
	case errors.Is(err, domain.ErrAgentNotFound):
		return "agent_not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
