package services

import (
	"context"
	"errors"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"strings"
	"sync"
	"time"
)

// kmPerDegree is the haversine length of one degree of longitude on the equator.
const kmPerDegree = 6371.0 * 3.141592653589793 / 180

// east returns a point on the equator km kilometers east of (0, 0).
func east(km float64) domain.Coordinates {
	return domain.Coordinates{Lat: 0, Lon: km / kmPerDegree}
}

type memStore struct {
	mu      sync.Mutex
	agents  map[string]bool
	parcels map[string]*domain.Parcel
	order   []string
	saves   int
	saveErr error
}

func newMemStore(agents ...string) *memStore {
	s := &memStore{agents: map[string]bool{}, parcels: map[string]*domain.Parcel{}}
	for _, a := range agents {
		s.agents[a] = true
	}
	return s
}

func (s *memStore) add(p domain.Parcel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parcels[p.ParcelID] = &p
	s.order = append(s.order, p.ParcelID)
}

func (s *memStore) AgentExists(_ context.Context, agentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents[agentID], nil
}

func (s *memStore) ListActiveByAgent(ctx context.Context, agentID string) ([]*domain.Parcel, error) {
	all, _ := s.ListByAgent(ctx, agentID)
	out := all[:0]
	for _, p := range all {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ListByAgent(_ context.Context, agentID string) ([]*domain.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Parcel
	for _, id := range s.order {
		if p := s.parcels[id]; p.AgentID == agentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) GetParcel(_ context.Context, parcelID string) (*domain.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parcels[parcelID]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) SaveStatus(_ context.Context, parcel *domain.Parcel, previous domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.parcels[parcel.ParcelID]
	if !ok {
		return domain.ErrParcelNotFound
	}
	if stored.Status != previous {
		return domain.ErrConcurrentUpdate
	}
	cp := *parcel
	s.parcels[parcel.ParcelID] = &cp
	s.saves++
	return nil
}

// fakeGeocoder answers from a fixed table. Errors queued for an address are returned first,
// one per call, before the table answer.
type fakeGeocoder struct {
	mu      sync.Mutex
	answers map[string]domain.Coordinates
	errs    map[string][]error
	calls   map[string]int
	delay   func(address string) time.Duration
	block   bool
}

func newFakeGeocoder(answers map[string]domain.Coordinates) *fakeGeocoder {
	return &fakeGeocoder{answers: answers, errs: map[string][]error{}, calls: map[string]int{}}
}

func (g *fakeGeocoder) failWith(address string, errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[address] = append(g.errs[address], errs...)
}

func (g *fakeGeocoder) Resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	g.mu.Lock()
	g.calls[address]++
	var queued error
	if q := g.errs[address]; len(q) > 0 {
		queued, g.errs[address] = q[0], q[1:]
	}
	coords, ok := g.answers[address]
	block := g.block && ok
	var delay time.Duration
	if g.delay != nil {
		delay = g.delay(address)
	}
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.Coordinates{}, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Coordinates{}, ctx.Err()
		}
	}
	if queued != nil {
		return domain.Coordinates{}, queued
	}
	if !ok {
		return domain.Coordinates{}, ports.ErrAddressNotFound
	}
	return coords, nil
}

func (g *fakeGeocoder) callCount(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[address]
}

func (g *fakeGeocoder) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

type memFiles struct {
	saved   map[string][]byte
	deleted []string
	err     error
}

func (f *memFiles) Save(_ context.Context, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[name] = data
	return "proofs/" + name, nil
}

func (f *memFiles) Delete(_ context.Context, ref string) error {
	name := strings.TrimPrefix(ref, "proofs/")
	if _, ok := f.saved[name]; !ok {
		return errors.New("no such file")
	}
	delete(f.saved, name)
	f.deleted = append(f.deleted, ref)
	return nil
}

type recordingPublisher struct {
	events []ports.StatusChanged
	err    error
}

func (r *recordingPublisher) PublishStatusChanged(_ context.Context, event ports.StatusChanged) error {
	r.events = append(r.events, event)
	return r.err
}
