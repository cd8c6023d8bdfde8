package services

import (
	"context"
	"errors"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// seedAgent stores three active parcels for agent AG1 plus one delivered parcel.
// The earliest parcel (P1) is sent from "Hub Road".
func seedAgent() (*memStore, *fakeGeocoder) {
	store := newMemStore("AG1", "AG2")
	store.add(domain.Parcel{ParcelID: "P2", AgentID: "AG1", Status: domain.StatusInTransit,
		SenderAddress: "Side Street", ReceiverAddress: "Ten Km Lane", CreatedAt: baseTime.Add(time.Hour)})
	store.add(domain.Parcel{ParcelID: "P1", AgentID: "AG1", Status: domain.StatusPickedUp,
		SenderAddress: "Hub Road", ReceiverAddress: "Three Km Lane", CreatedAt: baseTime})
	store.add(domain.Parcel{ParcelID: "P3", AgentID: "AG1", Status: domain.StatusPickedUp,
		SenderAddress: "Hub Road", ReceiverAddress: "Seven Km Lane", CreatedAt: baseTime.Add(2 * time.Hour)})
	delivered := baseTime.Add(-time.Hour)
	store.add(domain.Parcel{ParcelID: "P0", AgentID: "AG1", Status: domain.StatusDelivered,
		SenderAddress: "Old Depot", ReceiverAddress: "Far Away", CreatedAt: baseTime.Add(-24 * time.Hour), DeliveredAt: &delivered})

	geo := newFakeGeocoder(map[string]domain.Coordinates{
		"Hub Road":      east(0),
		"Side Street":   east(50),
		"Ten Km Lane":   east(10),
		"Three Km Lane": east(3),
		"Seven Km Lane": east(7),
		"Far Away":      east(1),
	})
	return store, geo
}

func TestRoutePlannerPlan(t *testing.T) {
	store, geo := seedAgent()
	planner := NewRoutePlanner(store, geo, WithRetryBackoff(0))

	plan, err := planner.Plan(context.Background(), "AG1")
	require.NoError(t, err)

	assert.Equal(t, "AG1", plan.AgentID)
	assert.Equal(t, east(0), plan.Origin)
	assert.Empty(t, plan.Unresolved)

	want := []domain.RouteStep{
		{Ordinal: 1, ParcelID: "P1", Address: "Three Km Lane", Type: domain.StepDelivery},
		{Ordinal: 2, ParcelID: "P3", Address: "Seven Km Lane", Type: domain.StepDelivery},
		{Ordinal: 3, ParcelID: "P2", Address: "Ten Km Lane", Type: domain.StepDelivery},
	}
	if diff := cmp.Diff(want, plan.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	// Delivered parcels are neither origin nor destination.
	assert.Zero(t, geo.callCount("Far Away"))
	assert.Zero(t, geo.callCount("Old Depot"))
	assert.Zero(t, geo.callCount("Side Street"))
}

func TestRoutePlannerExcludesUnresolvedCandidate(t *testing.T) {
	store, geo := seedAgent()
	delete(geo.answers, "Seven Km Lane")

	plan, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, []string{"P1", "P2"}, stepIDs(plan.Steps))
	assert.Equal(t, 2, plan.Steps[1].Ordinal)
	assert.Equal(t, []string{"P3"}, plan.Unresolved)
}

func TestRoutePlannerNoActiveParcels(t *testing.T) {
	store, geo := seedAgent()
	delivered := baseTime
	store.add(domain.Parcel{ParcelID: "Q1", AgentID: "AG2", Status: domain.StatusDelivered,
		SenderAddress: "Hub Road", ReceiverAddress: "Three Km Lane", CreatedAt: baseTime, DeliveredAt: &delivered})

	_, err := NewRoutePlanner(store, geo).Plan(context.Background(), "AG2")
	require.ErrorIs(t, err, domain.ErrNoActiveParcels)
	assert.Zero(t, geo.totalCalls(), "no geocoding may happen without active parcels")
}

func TestRoutePlannerUnknownAgent(t *testing.T) {
	store, geo := seedAgent()

	_, err := NewRoutePlanner(store, geo).Plan(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.Zero(t, geo.totalCalls())
}

func TestRoutePlannerOriginUnresolved(t *testing.T) {
	store, geo := seedAgent()
	delete(geo.answers, "Hub Road")

	_, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.ErrorIs(t, err, domain.ErrOriginUnresolved)
	assert.Zero(t, geo.callCount("Three Km Lane"), "destinations must not be resolved without an origin")
}

func TestRoutePlannerNoResolvableDestinations(t *testing.T) {
	store, geo := seedAgent()
	for _, addr := range []string{"Three Km Lane", "Seven Km Lane", "Ten Km Lane"} {
		delete(geo.answers, addr)
	}

	_, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.ErrorIs(t, err, domain.ErrNoResolvableDestinations)
}

func TestRoutePlannerRetriesTransientOnce(t *testing.T) {
	store, geo := seedAgent()
	geo.failWith("Seven Km Lane", &ports.TransientError{Err: errors.New("429 too many requests")})

	plan, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.NoError(t, err)

	assert.Equal(t, 2, geo.callCount("Seven Km Lane"))
	assert.Equal(t, []string{"P1", "P3", "P2"}, stepIDs(plan.Steps))
}

func TestRoutePlannerTransientExhaustionExcludes(t *testing.T) {
	store, geo := seedAgent()
	transient := &ports.TransientError{Err: errors.New("503 service unavailable")}
	geo.failWith("Seven Km Lane", transient, transient, transient)

	plan, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.NoError(t, err)

	assert.Equal(t, 2, geo.callCount("Seven Km Lane"))
	assert.Equal(t, []string{"P3"}, plan.Unresolved)
}

func TestRoutePlannerNotFoundIsNotRetried(t *testing.T) {
	store, geo := seedAgent()
	delete(geo.answers, "Seven Km Lane")

	_, err := NewRoutePlanner(store, geo, WithRetryBackoff(0)).Plan(context.Background(), "AG1")
	require.NoError(t, err)
	assert.Equal(t, 1, geo.callCount("Seven Km Lane"))
}

func TestRoutePlannerInvalidCoordinatesExcluded(t *testing.T) {
	store, geo := seedAgent()
	geo.answers["Seven Km Lane"] = domain.Coordinates{Lat: 120, Lon: 0}

	plan, err := NewRoutePlanner(store, geo).Plan(context.Background(), "AG1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, plan.Unresolved)
}

func TestRoutePlannerGeocodesSharedAddressOnce(t *testing.T) {
	store, geo := seedAgent()
	store.add(domain.Parcel{ParcelID: "P4", AgentID: "AG1", Status: domain.StatusPickedUp,
		SenderAddress: "Hub Road", ReceiverAddress: "  three km   LANE ", CreatedAt: baseTime.Add(3 * time.Hour)})

	plan, err := NewRoutePlanner(store, geo).Plan(context.Background(), "AG1")
	require.NoError(t, err)

	assert.Equal(t, 1, geo.callCount("Three Km Lane"))
	assert.Zero(t, geo.callCount("three km   LANE"))
	assert.Equal(t, []string{"P1", "P4", "P3", "P2"}, stepIDs(plan.Steps))
	assert.Equal(t, "three km   LANE", plan.Steps[1].Address)
}

func TestRoutePlannerIdempotentUnderConcurrency(t *testing.T) {
	store, geo := seedAgent()
	// Reverse completion order relative to submission.
	geo.delay = func(address string) time.Duration {
		switch address {
		case "Three Km Lane":
			return 15 * time.Millisecond
		case "Seven Km Lane":
			return 5 * time.Millisecond
		}
		return 0
	}
	planner := NewRoutePlanner(store, geo, WithConcurrency(3))

	first, err := planner.Plan(context.Background(), "AG1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := planner.Plan(context.Background(), "AG1")
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestRoutePlannerCancellationReturnsNoRoute(t *testing.T) {
	store, geo := seedAgent()
	geo.block = true
	// Only destination lookups block; the origin resolves immediately.
	originOnly := &originFirstGeocoder{fakeGeocoder: geo, origin: "Hub Road"}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	plan, err := NewRoutePlanner(store, originOnly).Plan(ctx, "AG1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, plan)
}

func TestRoutePlannerDoesNotWrite(t *testing.T) {
	store, geo := seedAgent()

	_, err := NewRoutePlanner(store, geo).Plan(context.Background(), "AG1")
	require.NoError(t, err)
	assert.Zero(t, store.saves)
}

type originFirstGeocoder struct {
	*fakeGeocoder
	origin string
}

func (g *originFirstGeocoder) Resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	if address == g.origin {
		return g.answers[address], nil
	}
	return g.fakeGeocoder.Resolve(ctx, address)
}
