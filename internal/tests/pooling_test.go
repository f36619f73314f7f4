package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
	"ridepool/internal/service"
)

func TestPooling_OneVehicleTwoRequestsShareAPool(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)
	h.addRequest(t, "r2", north(0.2), north(4), defaultRequestOpts)

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PoolsCreated != 1 {
		t.Errorf("expected 1 pool created, got %d", result.PoolsCreated)
	}
	if result.RequestsPooled != 2 {
		t.Errorf("expected 2 requests pooled, got %d", result.RequestsPooled)
	}
	if result.RequestsPending != 0 {
		t.Errorf("expected 0 requests pending, got %d", result.RequestsPending)
	}
	if len(result.TouchedPools) != 1 {
		t.Fatalf("expected 1 touched pool, got %v", result.TouchedPools)
	}

	poolID := result.TouchedPools[0]
	pool := h.pool(t, poolID)
	if pool.VehicleID != "v1" || pool.Status != domain.PoolStatusPooled {
		t.Errorf("unexpected pool %+v", pool)
	}

	members := h.members(t, poolID)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Request.ID != "r1" || members[0].Membership.Sequence != 1 {
		t.Errorf("expected r1 at sequence 1, got %s at %d", members[0].Request.ID, members[0].Membership.Sequence)
	}
	if members[1].Request.ID != "r2" || members[1].Membership.Sequence != 2 {
		t.Errorf("expected r2 at sequence 2, got %s at %d", members[1].Request.ID, members[1].Membership.Sequence)
	}

	for _, id := range []string{"r1", "r2"} {
		if got := h.request(t, id).Status; got != domain.RequestStatusPooled {
			t.Errorf("expected %s POOLED, got %s", id, got)
		}
	}
	if got := h.vehicle(t, "v1").Status; got != domain.VehicleStatusBusy {
		t.Errorf("expected vehicle BUSY, got %s", got)
	}
}

func TestPooling_SecondPassChangesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)
	h.addRequest(t, "r2", north(0.2), north(4), defaultRequestOpts)

	engine := h.engine()
	if _, err := engine.RunMatchingPass(ctx); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	result, err := engine.RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if result.PoolsCreated != 0 || result.RequestsPooled != 0 || result.RequestsPending != 0 {
		t.Errorf("expected an empty second pass, got %+v", result)
	}
	if len(h.members(t, h.poolOf(t, "r1"))) != 2 {
		t.Error("expected membership to be unchanged")
	}
}

func TestPooling_PickupOutsideRadiusStaysPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(5), north(10), defaultRequestOpts)

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PoolsCreated != 0 || result.RequestsPooled != 0 || result.RequestsPending != 1 {
		t.Errorf("expected request to stay pending, got %+v", result)
	}
	if got := h.request(t, "r1").Status; got != domain.RequestStatusPending {
		t.Errorf("expected PENDING, got %s", got)
	}
	if got := h.vehicle(t, "v1").Status; got != domain.VehicleStatusAvailable {
		t.Errorf("expected vehicle AVAILABLE, got %s", got)
	}
}

func TestPooling_SeatCapacityIsNeverExceeded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 2, 4)
	h.addRequest(t, "r1", north(0.1), north(5), requestOpts{seats: 2, luggage: 0, tolerance: 15})
	h.addRequest(t, "r2", north(0.2), north(5), requestOpts{seats: 1, luggage: 0, tolerance: 15})

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestsPooled != 1 || result.RequestsPending != 1 {
		t.Errorf("expected 1 pooled and 1 pending, got %+v", result)
	}
	if got := h.request(t, "r2").Status; got != domain.RequestStatusPending {
		t.Errorf("expected r2 PENDING, got %s", got)
	}
}

func TestPooling_LuggageCapacityIsNeverExceeded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 1)
	h.addRequest(t, "r1", north(0.1), north(5), requestOpts{seats: 1, luggage: 1, tolerance: 15})
	h.addRequest(t, "r2", north(0.2), north(5), requestOpts{seats: 1, luggage: 1, tolerance: 15})

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestsPooled != 1 || result.RequestsPending != 1 {
		t.Errorf("expected 1 pooled and 1 pending, got %+v", result)
	}

	load := domain.LoadOf(h.members(t, h.poolOf(t, "r1")))
	if load.Luggage > 1 {
		t.Errorf("luggage capacity exceeded: %d", load.Luggage)
	}
}

func TestPooling_RequestLargerThanAnyVehicleStaysPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 2, 2)
	h.addRequest(t, "r1", north(0.1), north(5), requestOpts{seats: 3, luggage: 0, tolerance: 15})

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PoolsCreated != 0 || result.RequestsPending != 1 {
		t.Errorf("expected no pool and 1 pending, got %+v", result)
	}
	if got := h.vehicle(t, "v1").Status; got != domain.VehicleStatusAvailable {
		t.Errorf("expected vehicle to stay AVAILABLE, got %s", got)
	}
}

func TestPooling_DetourToleranceLimitsJoining(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", origin, north(5), requestOpts{seats: 1, tolerance: 0})
	// 1 km from the vehicle; 1 minute of tolerance allows 0.5 km.
	h.addRequest(t, "r2", north(1), north(5), requestOpts{seats: 1, tolerance: 1})
	// Same pickup; 4 minutes allow 2 km.
	h.addRequest(t, "r3", north(1), north(5), requestOpts{seats: 1, tolerance: 4})

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PoolsCreated != 1 || result.RequestsPooled != 2 || result.RequestsPending != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if got := h.request(t, "r2").Status; got != domain.RequestStatusPending {
		t.Errorf("expected r2 PENDING, got %s", got)
	}
	if h.poolOf(t, "r3") != h.poolOf(t, "r1") {
		t.Error("expected r3 to join r1's pool")
	}
}

func TestPooling_OldestRequestIsServedFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 1, 1)
	newer := h.clock.Add(10 * time.Minute)
	older := h.clock.Add(5 * time.Minute)
	h.addRequestAt(t, "r-new", north(0.1), north(5), defaultRequestOpts, newer)
	h.addRequestAt(t, "r-old", north(0.1), north(5), defaultRequestOpts, older)

	if _, err := h.engine().RunMatchingPass(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := h.request(t, "r-old").Status; got != domain.RequestStatusPooled {
		t.Errorf("expected older request POOLED, got %s", got)
	}
	if got := h.request(t, "r-new").Status; got != domain.RequestStatusPending {
		t.Errorf("expected newer request PENDING, got %s", got)
	}
}

func TestPooling_NewPoolUsesNearestVehicle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v-far", north(2.5), 4, 4)
	h.addVehicle(t, "v-near", north(0.5), 4, 4)
	h.addRequest(t, "r1", origin, north(5), defaultRequestOpts)

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PoolsCreated != 1 {
		t.Fatalf("expected a pool, got %+v", result)
	}

	if got := h.pool(t, result.TouchedPools[0]).VehicleID; got != "v-near" {
		t.Errorf("expected v-near, got %s", got)
	}
	if got := h.vehicle(t, "v-far").Status; got != domain.VehicleStatusAvailable {
		t.Errorf("expected v-far AVAILABLE, got %s", got)
	}
}

func TestPooling_ReleasesPassLock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)

	if _, err := h.engine().RunMatchingPass(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&h.locker.AcquireCallCount) != 1 {
		t.Errorf("expected 1 acquire, got %d", h.locker.AcquireCallCount)
	}
	if atomic.LoadInt32(&h.locker.ReleaseCallCount) != 1 {
		t.Errorf("expected 1 release, got %d", h.locker.ReleaseCallCount)
	}
	if h.locker.IsHeld(service.PassLockName) {
		t.Error("expected lock to be released")
	}
}

func TestPooling_HeldLockTimesOutAndPassRunsUnlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)
	h.locker.Hold(service.PassLockName)

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestsPooled != 1 {
		t.Errorf("expected pass to run unlocked, got %+v", result)
	}
	if atomic.LoadInt32(&h.locker.AcquireCallCount) < 2 {
		t.Errorf("expected acquisition to be retried, got %d attempts", h.locker.AcquireCallCount)
	}
	if atomic.LoadInt32(&h.locker.ReleaseCallCount) != 0 {
		t.Error("expected no release of a lock that was never acquired")
	}
	if !h.hasLog(logrus.WarnLevel, "timed out waiting for pass lock, running pass unlocked") {
		t.Error("expected a warning about the lock timeout")
	}
}

func TestPooling_LockServiceErrorDegradesToUnlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)
	h.locker.AcquireError = errors.New("connection refused")

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestsPooled != 1 {
		t.Errorf("expected pass to run unlocked, got %+v", result)
	}
	if !h.hasLog(logrus.WarnLevel, "lock service unavailable, running pass unlocked") {
		t.Error("expected a warning about the lock service")
	}
}

func TestPooling_NoLockerRunsUnlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)

	engine := service.NewPoolingEngine(h.repos, h.store, nil, h.engineCfg, h.log)
	result, err := engine.RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequestsPooled != 1 {
		t.Errorf("expected 1 pooled, got %+v", result)
	}
}

func TestPooling_ListPendingFailureFailsThePass(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.requests.ListPendingError = errors.New("db down")

	result, err := h.engine().RunMatchingPass(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if result != nil {
		t.Errorf("expected no result, got %+v", result)
	}
	if h.locker.IsHeld(service.PassLockName) {
		t.Error("expected lock to be released after a failed pass")
	}
}

func TestPooling_StaleRequestIsSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	req := h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)

	// Cancelled after the pending list was read.
	cancelled := *req
	cancelled.Status = domain.RequestStatusCancelled
	if err := h.repos.Requests.Update(ctx, &cancelled); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}
	h.requests.ListPendingOverride = []*domain.Request{req}

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestsPooled != 0 || result.RequestsPending != 0 || result.PoolsCreated != 0 {
		t.Errorf("expected stale request to be skipped, got %+v", result)
	}
	if _, err := h.repos.Memberships.GetByRequestID(ctx, "r1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected no membership, got %v", err)
	}
}

func TestPooling_VanishedRequestIsSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.requests.ListPendingOverride = []*domain.Request{{ID: "ghost", Status: domain.RequestStatusPending}}

	result, err := h.engine().RunMatchingPass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequestsPending != 0 || result.RequestsPooled != 0 {
		t.Errorf("expected vanished request to be skipped, got %+v", result)
	}
	if !h.hasLog(logrus.WarnLevel, "request disappeared before placement") {
		t.Error("expected a warning about the missing request")
	}
}

func TestPooling_CancelledContextStopsBetweenRequests(t *testing.T) {
	h := newHarness(t)

	h.addVehicle(t, "v1", origin, 4, 4)
	h.addRequest(t, "r1", north(0.1), north(5), defaultRequestOpts)
	h.addRequest(t, "r2", north(0.2), north(5), defaultRequestOpts)

	engine := service.NewPoolingEngine(h.repos, h.store, nil, h.engineCfg, h.log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.RunMatchingPass(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.RequestsPending != 2 || result.RequestsPooled != 0 {
		t.Errorf("expected both requests left pending, got %+v", result)
	}
}

func TestPooling_ConcurrentPassesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		h.addVehicle(t, fmt.Sprintf("v%d", i), north(float64(i)*0.1), 4, 4)
	}
	var ids []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("r%02d", i)
		ids = append(ids, id)
		h.addRequest(t, id, north(0.05), north(5), defaultRequestOpts)
	}

	const passes = 4
	results := make([]*service.PassResult, passes)
	errs := make([]error, passes)

	var wg sync.WaitGroup
	wg.Add(passes)
	for i := 0; i < passes; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.engine().RunMatchingPass(ctx)
		}(i)
	}
	wg.Wait()

	pooled, created := 0, 0
	for i := 0; i < passes; i++ {
		if errs[i] != nil {
			t.Fatalf("pass %d failed: %v", i, errs[i])
		}
		pooled += results[i].RequestsPooled
		created += results[i].PoolsCreated
	}

	if pooled != 20 {
		t.Errorf("expected every request pooled exactly once, got %d placements", pooled)
	}
	if created != 5 {
		t.Errorf("expected 5 pools, got %d", created)
	}

	seen := make(map[string]int)
	for _, id := range ids {
		if got := h.request(t, id).Status; got != domain.RequestStatusPooled {
			t.Errorf("expected %s POOLED, got %s", id, got)
		}
		seen[h.poolOf(t, id)]++
	}
	for poolID := range seen {
		pool := h.pool(t, poolID)
		v := h.vehicle(t, pool.VehicleID)
		load := domain.LoadOf(h.members(t, poolID))
		if load.Seats > v.TotalSeats || load.Luggage > v.LuggageCapacity {
			t.Errorf("pool %s over capacity: %+v on %d seats / %d luggage", poolID, load, v.TotalSeats, v.LuggageCapacity)
		}
	}
}
