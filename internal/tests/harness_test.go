package tests

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/pricing"
	"ridepool/internal/repository"
	"ridepool/internal/repository/memory"
	"ridepool/internal/routing"
	"ridepool/internal/service"
)

// origin is the reference point of every test scenario. 0.01 degrees of
// latitude is roughly 1.11 km.
var origin = geo.Point{Lat: 12.9716, Lng: 77.5946}

func north(km float64) geo.Point {
	return geo.Point{Lat: origin.Lat + km/111.195, Lng: origin.Lng}
}

type harness struct {
	store      *memory.Store
	repos      repository.Repositories
	requests   *MockRequestRepository
	locker     *MockLocker
	dispatcher *MockDispatcher
	cache      *MockStatusCache
	log        *logrus.Logger
	hook       *test.Hook

	engineCfg service.EngineConfig
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	repos := store.Repositories()
	requests := &MockRequestRepository{RequestRepository: repos.Requests}
	repos.Requests = requests

	cfg := service.DefaultEngineConfig()
	cfg.LockWait = 50 * time.Millisecond
	cfg.LockRetryInterval = 5 * time.Millisecond

	return &harness{
		store:      store,
		repos:      repos,
		requests:   requests,
		locker:     NewMockLocker(),
		dispatcher: NewMockDispatcher(),
		cache:      NewMockStatusCache(),
		log:        log,
		hook:       hook,
		engineCfg:  cfg,
		clock:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (h *harness) engine() *service.PoolingEngine {
	return service.NewPoolingEngine(h.repos, h.store, h.locker, h.engineCfg, h.log)
}

func (h *harness) routes() *service.RouteService {
	return service.NewRouteService(h.repos, h.store, routing.NewSequencer(), h.cache, 0.5, h.log)
}

func (h *harness) requestService() *service.RequestService {
	return service.NewRequestService(
		h.repos, h.store, h.dispatcher, h.cache,
		pricing.NewEngine(pricing.DefaultConfig()), nil, routing.NewSequencer(), h.log,
	)
}

func (h *harness) worker() *service.Worker {
	return service.NewWorker(h.engine(), h.routes(), h.log)
}

func (h *harness) addRider(t *testing.T, id string) *domain.Rider {
	t.Helper()
	r := &domain.Rider{ID: id, Name: "Rider " + id, Phone: "+91-" + id, CreatedAt: h.clock}
	if err := h.repos.Riders.Create(context.Background(), r); err != nil {
		t.Fatalf("failed to create rider: %v", err)
	}
	return r
}

func (h *harness) addVehicle(t *testing.T, id string, at geo.Point, seats, luggage int) *domain.Vehicle {
	t.Helper()
	v := &domain.Vehicle{
		ID:              id,
		DriverName:      "Driver " + id,
		TotalSeats:      seats,
		LuggageCapacity: luggage,
		Location:        at,
		Status:          domain.VehicleStatusAvailable,
		CreatedAt:       h.clock,
	}
	if err := h.repos.Vehicles.Create(context.Background(), v); err != nil {
		t.Fatalf("failed to create vehicle: %v", err)
	}
	return v
}

type requestOpts struct {
	seats     int
	luggage   int
	tolerance int
}

var defaultRequestOpts = requestOpts{seats: 1, luggage: 1, tolerance: 15}

// addRequest stores a pending request created one minute after the previous
// one, so insertion order is FIFO order unless the caller says otherwise.
func (h *harness) addRequest(t *testing.T, id string, pickup, drop geo.Point, opts requestOpts) *domain.Request {
	t.Helper()
	h.clock = h.clock.Add(time.Minute)
	return h.addRequestAt(t, id, pickup, drop, opts, h.clock)
}

func (h *harness) addRequestAt(t *testing.T, id string, pickup, drop geo.Point, opts requestOpts, createdAt time.Time) *domain.Request {
	t.Helper()
	req := &domain.Request{
		ID:                     id,
		RiderID:                "rider-1",
		Pickup:                 pickup,
		Drop:                   drop,
		Seats:                  opts.seats,
		Luggage:                opts.luggage,
		DetourToleranceMinutes: opts.tolerance,
		Status:                 domain.RequestStatusPending,
		CreatedAt:              createdAt,
	}
	if err := h.repos.Requests.Create(context.Background(), req); err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return req
}

func (h *harness) request(t *testing.T, id string) *domain.Request {
	t.Helper()
	req, err := h.repos.Requests.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load request %s: %v", id, err)
	}
	return req
}

func (h *harness) vehicle(t *testing.T, id string) *domain.Vehicle {
	t.Helper()
	v, err := h.repos.Vehicles.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load vehicle %s: %v", id, err)
	}
	return v
}

func (h *harness) pool(t *testing.T, id string) *domain.Pool {
	t.Helper()
	p, err := h.repos.Pools.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load pool %s: %v", id, err)
	}
	return p
}

func (h *harness) members(t *testing.T, poolID string) []*domain.PoolMember {
	t.Helper()
	members, err := h.repos.Memberships.ListMembers(context.Background(), poolID)
	if err != nil {
		t.Fatalf("failed to list members of %s: %v", poolID, err)
	}
	return members
}

func (h *harness) poolOf(t *testing.T, requestID string) string {
	t.Helper()
	m, err := h.repos.Memberships.GetByRequestID(context.Background(), requestID)
	if err != nil {
		t.Fatalf("request %s has no membership: %v", requestID, err)
	}
	return m.PoolID
}

func (h *harness) hasLog(level logrus.Level, msg string) bool {
	for _, e := range h.hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func pricingEngine() *pricing.Engine {
	return pricing.NewEngine(pricing.DefaultConfig())
}

func sequencer() *routing.Sequencer {
	return routing.NewSequencer()
}
