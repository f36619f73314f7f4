package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/repository"
	"ridepool/internal/service"
)

func TestVehicleRegistration_IndexesLocation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	locations := NewMockLocationStore()
	svc := service.NewVehicleService(locations, h.repos.Vehicles, h.store, h.log)

	v, err := svc.RegisterVehicle(ctx, service.RegisterVehicleInput{
		DriverName:      "Asha",
		TotalSeats:      4,
		LuggageCapacity: 2,
		Location:        origin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.Status != domain.VehicleStatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", v.Status)
	}
	if _, ok := locations.Location(v.ID); !ok {
		t.Error("expected vehicle in the location index")
	}
}

func TestVehicleRegistration_Validation(t *testing.T) {
	h := newHarness(t)
	svc := service.NewVehicleService(nil, h.repos.Vehicles, h.store, h.log)

	tests := []struct {
		name string
		in   service.RegisterVehicleInput
		want error
	}{
		{"no driver", service.RegisterVehicleInput{TotalSeats: 4, Location: origin}, service.ErrInvalidVehicle},
		{"no seats", service.RegisterVehicleInput{DriverName: "A", Location: origin}, service.ErrInvalidVehicle},
		{"negative luggage", service.RegisterVehicleInput{DriverName: "A", TotalSeats: 4, LuggageCapacity: -1, Location: origin}, service.ErrInvalidVehicle},
		{"bad location", service.RegisterVehicleInput{DriverName: "A", TotalSeats: 4, Location: geo.Point{Lat: 100}}, service.ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RegisterVehicle(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVehicleLocationUpdate_BringsOfflineVehicleBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	locations := NewMockLocationStore()
	svc := service.NewVehicleService(locations, h.repos.Vehicles, h.store, h.log)

	v := h.addVehicle(t, "v1", origin, 4, 4)
	v.Status = domain.VehicleStatusOffline
	if err := h.repos.Vehicles.Update(ctx, v); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	updated, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{VehicleID: "v1", Location: north(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.VehicleStatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", updated.Status)
	}
	if got := h.vehicle(t, "v1").Location; got != north(1) {
		t.Errorf("expected stored location %v, got %v", north(1), got)
	}
	loc, ok := locations.Location("v1")
	if !ok || loc.Lat != north(1).Lat {
		t.Errorf("expected indexed location, got %+v", loc)
	}
}

func TestVehicleLocationUpdate_KeepsBusyVehicleBusy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := service.NewVehicleService(nil, h.repos.Vehicles, h.store, h.log)

	v := h.addVehicle(t, "v1", origin, 4, 4)
	v.Status = domain.VehicleStatusBusy
	if err := h.repos.Vehicles.Update(ctx, v); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	updated, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{VehicleID: "v1", Location: north(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.VehicleStatusBusy {
		t.Errorf("expected BUSY, got %s", updated.Status)
	}
}

func TestVehicleLocationUpdate_Rejections(t *testing.T) {
	h := newHarness(t)
	svc := service.NewVehicleService(nil, h.repos.Vehicles, h.store, h.log)

	if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{Location: origin}); !errors.Is(err, service.ErrInvalidVehicleID) {
		t.Errorf("expected ErrInvalidVehicleID, got %v", err)
	}
	if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{VehicleID: "v1", Location: geo.Point{Lat: 12, Lng: 200}}); !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
	if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{VehicleID: "missing", Location: origin}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVehicleOffline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	locations := NewMockLocationStore()
	svc := service.NewVehicleService(locations, h.repos.Vehicles, h.store, h.log)

	h.addVehicle(t, "v1", origin, 4, 4)
	if err := locations.UpdateLocation(ctx, "v1", origin.Lat, origin.Lng); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	v, err := svc.SetVehicleOffline(ctx, "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != domain.VehicleStatusOffline {
		t.Errorf("expected OFFLINE, got %s", v.Status)
	}
	if _, ok := locations.Location("v1"); ok {
		t.Error("expected vehicle removed from the location index")
	}
}

func TestVehicleOffline_RejectedWhileServingPool(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	pooledPair(t, h)
	svc := service.NewVehicleService(nil, h.repos.Vehicles, h.store, h.log)

	if _, err := svc.SetVehicleOffline(ctx, "v1"); !errors.Is(err, service.ErrVehicleBusy) {
		t.Errorf("expected ErrVehicleBusy, got %v", err)
	}
}

func TestOfflineVehicleIsNotMatched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := service.NewVehicleService(nil, h.repos.Vehicles, h.store, h.log)

	h.addVehicle(t, "v1", origin, 4, 4)
	if _, err := svc.SetVehicleOffline(ctx, "v1"); err != nil {
		t.Fatalf("offline failed: %v", err)
	}
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if result.RequestsPending != 1 {
		t.Errorf("expected request to stay pending, got %+v", result)
	}
}

// racingPass sets up v1 with r1 filling all of its seats, and returns a
// vehicle service whose reads and transactions let one matching pass run
// in the middle of the call under test.
func racingPass(t *testing.T, h *harness) (*service.VehicleService, *error) {
	t.Helper()
	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), requestOpts{seats: 4, luggage: 1, tolerance: 15})

	passErr := new(error)
	interleave := sync.OnceFunc(func() {
		_, *passErr = h.engine().RunMatchingPass(context.Background())
	})

	vehicles := &MockVehicleRepository{VehicleRepository: h.repos.Vehicles, AfterGetByID: interleave}
	tx := &MockTransactor{Transactor: h.store, BeforeTx: interleave}
	return service.NewVehicleService(nil, vehicles, tx, h.log), passErr
}

func TestVehicleLocationUpdate_RacingPassKeepsVehicleBusy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc, passErr := racingPass(t, h)

	updated, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{VehicleID: "v1", Location: north(0.5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *passErr != nil {
		t.Fatalf("pass failed: %v", *passErr)
	}
	if got := h.request(t, "r1").Status; got != domain.RequestStatusPooled {
		t.Fatalf("expected the concurrent pass to pool r1, got %s", got)
	}

	if updated.Status != domain.VehicleStatusBusy {
		t.Errorf("expected returned vehicle BUSY, got %s", updated.Status)
	}
	v := h.vehicle(t, "v1")
	if v.Status != domain.VehicleStatusBusy {
		t.Fatalf("location update overwrote BUSY with %s", v.Status)
	}
	if v.Location != north(0.5) {
		t.Errorf("expected location to be updated, got %+v", v.Location)
	}

	// r2 cannot join the full pool, and v1 must not open a second one.
	h.addRequest(t, "r2", north(0.6), north(3), defaultRequestOpts)
	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if result.PoolsCreated != 0 {
		t.Errorf("expected no new pool on a busy vehicle, got %+v", result)
	}
	if got := h.request(t, "r2").Status; got != domain.RequestStatusPending {
		t.Errorf("expected r2 pending, got %s", got)
	}
}

func TestVehicleOffline_RacingPassIsRejected(t *testing.T) {
	h := newHarness(t)
	svc, passErr := racingPass(t, h)

	if _, err := svc.SetVehicleOffline(context.Background(), "v1"); !errors.Is(err, service.ErrVehicleBusy) {
		t.Fatalf("expected ErrVehicleBusy, got %v", err)
	}
	if *passErr != nil {
		t.Fatalf("pass failed: %v", *passErr)
	}
	if got := h.vehicle(t, "v1").Status; got != domain.VehicleStatusBusy {
		t.Errorf("expected v1 to stay BUSY, got %s", got)
	}
}
