package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/observability"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
)

// PassLockName is the advisory lock shared by every matching worker.
const PassLockName = "pooling_engine_lock"

// EngineConfig holds pooling engine parameters.
type EngineConfig struct {
	PickupRadiusKm    float64       // Max vehicle-to-pickup distance
	DetourKmPerMinute float64       // Converts rider tolerance minutes to km
	LockTTL           time.Duration // Advisory lock expiry
	LockWait          time.Duration // How long to wait for a held lock
	LockRetryInterval time.Duration // Poll interval while waiting
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PickupRadiusKm:    3.0,
		DetourKmPerMinute: 0.5,
		LockTTL:           30 * time.Second,
		LockWait:          30 * time.Second,
		LockRetryInterval: 100 * time.Millisecond,
	}
}

// PoolingEngine assigns pending requests to pools.
type PoolingEngine struct {
	repos  repository.Repositories
	tx     repository.Transactor
	locker redis.Locker
	cfg    EngineConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewPoolingEngine creates a new PoolingEngine. locker may be nil, in which
// case passes run without the advisory lock.
func NewPoolingEngine(
	repos repository.Repositories,
	tx repository.Transactor,
	locker redis.Locker,
	cfg EngineConfig,
	log logrus.FieldLogger,
) *PoolingEngine {
	return &PoolingEngine{
		repos:  repos,
		tx:     tx,
		locker: locker,
		cfg:    cfg,
		log:    log.WithField("component", "pooling_engine"),
		now:    time.Now,
	}
}

// PassResult summarises one matching pass.
type PassResult struct {
	PoolsCreated    int `json:"pools_created"`
	RequestsPooled  int `json:"requests_pooled"`
	RequestsPending int `json:"requests_pending"`

	// TouchedPools lists pools that gained members, in first-touch order.
	TouchedPools []string `json:"-"`
}

type placement struct {
	poolID  string
	created bool
	placed  bool
}

// RunMatchingPass tries to place every pending request, oldest first, into
// an existing pool or a new pool on the nearest available vehicle.
// Per-request failures leave the request pending; only failing to list the
// pending requests fails the pass.
func (e *PoolingEngine) RunMatchingPass(ctx context.Context) (*PassResult, error) {
	start := time.Now()

	lock := e.acquirePassLock(ctx)
	defer e.releasePassLock(ctx, lock)

	pending, err := e.repos.Requests.ListPending(ctx)
	if err != nil {
		observability.PassesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	result := &PassResult{}
	touched := make(map[string]bool)

	for i, req := range pending {
		if err := ctx.Err(); err != nil {
			result.RequestsPending += len(pending) - i
			observability.PassesTotal.WithLabelValues("interrupted").Inc()
			return result, err
		}

		entry := e.log.WithField("request_id", req.ID)

		p, err := e.placeRequest(ctx, req.ID)
		switch {
		case errors.Is(err, ErrRequestNotPending):
			entry.Debug("request changed state before placement")
			continue
		case errors.Is(err, repository.ErrNotFound):
			entry.Warn("request disappeared before placement")
			continue
		case err != nil:
			observability.PlacementErrors.WithLabelValues(placementErrorReason(err)).Inc()
			entry.WithError(err).Warn("failed to place request")
			result.RequestsPending++
			continue
		case !p.placed:
			result.RequestsPending++
			continue
		}

		result.RequestsPooled++
		if p.created {
			result.PoolsCreated++
		}
		if !touched[p.poolID] {
			touched[p.poolID] = true
			result.TouchedPools = append(result.TouchedPools, p.poolID)
		}
		entry.WithFields(logrus.Fields{"pool_id": p.poolID, "new_pool": p.created}).Info("request pooled")
	}

	observability.PassesTotal.WithLabelValues("completed").Inc()
	observability.PassDuration.Observe(time.Since(start).Seconds())
	observability.PoolsCreatedTotal.Add(float64(result.PoolsCreated))
	observability.RequestsPooledTotal.Add(float64(result.RequestsPooled))
	observability.RequestsPending.Set(float64(result.RequestsPending))

	e.log.WithFields(logrus.Fields{
		"pools_created":    result.PoolsCreated,
		"requests_pooled":  result.RequestsPooled,
		"requests_pending": result.RequestsPending,
		"duration":         time.Since(start),
	}).Info("matching pass finished")

	return result, nil
}

// placeRequest locks the request, revalidates it and places it.
func (e *PoolingEngine) placeRequest(ctx context.Context, requestID string) (placement, error) {
	var p placement

	err := withExclusiveRequest(ctx, e.tx, requestID, func(ctx context.Context, repos repository.Repositories, req *domain.Request) error {
		if req.Status != domain.RequestStatusPending {
			return ErrRequestNotPending
		}

		poolID, ok, err := e.findExistingPool(ctx, repos, req)
		if err != nil {
			return err
		}

		created := false
		if !ok {
			poolID, ok, err = e.createNewPool(ctx, repos, req)
			if err != nil {
				return err
			}
			created = ok
		}
		if !ok {
			return nil
		}

		req.Status = domain.RequestStatusPooled
		if err := repos.Requests.Update(ctx, req); err != nil {
			return err
		}

		p = placement{poolID: poolID, created: created, placed: true}
		return nil
	})

	return p, err
}

// findExistingPool adds req to the first active pool whose vehicle is close
// enough, has room, and is within the rider's detour tolerance.
func (e *PoolingEngine) findExistingPool(ctx context.Context, repos repository.Repositories, req *domain.Request) (string, bool, error) {
	pools, err := repos.Pools.ListActiveForUpdate(ctx)
	if err != nil {
		return "", false, err
	}

	maxDetourKm := float64(req.DetourToleranceMinutes) * e.cfg.DetourKmPerMinute

	for _, pool := range pools {
		entry := e.log.WithFields(logrus.Fields{"request_id": req.ID, "pool_id": pool.ID})

		vehicle, err := repos.Vehicles.GetByID(ctx, pool.VehicleID)
		if errors.Is(err, repository.ErrNotFound) {
			entry.Warn("pool vehicle not found, skipping pool")
			continue
		}
		if err != nil {
			return "", false, err
		}

		dist := geo.Distance(vehicle.Location, req.Pickup)
		if dist > e.cfg.PickupRadiusKm {
			continue
		}

		members, err := repos.Memberships.ListMembers(ctx, pool.ID)
		if err != nil {
			return "", false, err
		}
		if !vehicle.Fits(domain.LoadOf(members), req) {
			continue
		}

		if dist > maxDetourKm {
			entry.WithField("distance_km", dist).Debug("pickup exceeds detour tolerance")
			continue
		}

		if err := e.addMember(ctx, repos, vehicle, pool.ID, req, members); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				continue
			}
			return "", false, err
		}
		return pool.ID, true, nil
	}

	return "", false, nil
}

// createNewPool starts a pool on the nearest available vehicle within the
// pickup radius that can carry req. Vehicles locked by a concurrent matcher
// are not considered.
func (e *PoolingEngine) createNewPool(ctx context.Context, repos repository.Repositories, req *domain.Request) (string, bool, error) {
	vehicles, err := repos.Vehicles.ListAvailableForUpdate(ctx)
	if err != nil {
		return "", false, err
	}

	var best *domain.Vehicle
	bestDist := math.Inf(1)
	for _, v := range vehicles {
		if !v.Fits(domain.Load{}, req) {
			continue
		}
		d := geo.Distance(v.Location, req.Pickup)
		if d <= e.cfg.PickupRadiusKm && d < bestDist {
			best, bestDist = v, d
		}
	}
	if best == nil {
		return "", false, nil
	}

	now := e.now()
	pool := &domain.Pool{
		ID:        uuid.New().String(),
		VehicleID: best.ID,
		Status:    domain.PoolStatusPooled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Pools.Create(ctx, pool); err != nil {
		return "", false, err
	}

	best.Status = domain.VehicleStatusBusy
	if err := repos.Vehicles.Update(ctx, best); err != nil {
		return "", false, err
	}

	if err := e.addMember(ctx, repos, best, pool.ID, req, nil); err != nil {
		return "", false, err
	}

	return pool.ID, true, nil
}

// addMember inserts req into the pool after checking the vehicle capacity
// against the current members.
func (e *PoolingEngine) addMember(
	ctx context.Context,
	repos repository.Repositories,
	vehicle *domain.Vehicle,
	poolID string,
	req *domain.Request,
	members []*domain.PoolMember,
) error {
	if !vehicle.Fits(domain.LoadOf(members), req) {
		return ErrCapacityExceeded
	}

	return repos.Memberships.Create(ctx, &domain.Membership{
		ID:        uuid.New().String(),
		PoolID:    poolID,
		RequestID: req.ID,
		Sequence:  len(members) + 1,
		CreatedAt: e.now(),
	})
}

// acquirePassLock takes the advisory lock, waiting up to LockWait for
// another holder. Returns nil when the pass must run unlocked.
func (e *PoolingEngine) acquirePassLock(ctx context.Context) redis.Lock {
	if e.locker == nil {
		observability.LockDegradedTotal.WithLabelValues("disabled").Inc()
		e.log.Debug("no lock service configured, running pass unlocked")
		return nil
	}

	deadline := time.Now().Add(e.cfg.LockWait)
	for {
		lock, err := e.locker.TryAcquire(ctx, PassLockName, e.cfg.LockTTL)
		if err != nil {
			observability.LockDegradedTotal.WithLabelValues("unavailable").Inc()
			e.log.WithError(err).Warn("lock service unavailable, running pass unlocked")
			return nil
		}
		if lock != nil {
			return lock
		}

		if !time.Now().Before(deadline) {
			observability.LockDegradedTotal.WithLabelValues("timeout").Inc()
			e.log.WithField("waited", e.cfg.LockWait).Warn("timed out waiting for pass lock, running pass unlocked")
			return nil
		}
		if !waitFor(ctx, e.cfg.LockRetryInterval) {
			return nil
		}
	}
}

func (e *PoolingEngine) releasePassLock(ctx context.Context, lock redis.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		e.log.WithError(err).Warn("failed to release pass lock")
	}
}

func placementErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, repository.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "storage"
	}
}
