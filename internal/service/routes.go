package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/observability"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
	"ridepool/internal/routing"
)

// RouteService keeps each pool's stop order in step with its membership.
type RouteService struct {
	repos       repository.Repositories
	tx          repository.Transactor
	sequencer   *routing.Sequencer
	cache       redis.StatusCache
	kmPerMinute float64
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewRouteService creates a new RouteService. cache may be nil.
func NewRouteService(
	repos repository.Repositories,
	tx repository.Transactor,
	sequencer *routing.Sequencer,
	cache redis.StatusCache,
	kmPerMinute float64,
	log logrus.FieldLogger,
) *RouteService {
	return &RouteService{
		repos:       repos,
		tx:          tx,
		sequencer:   sequencer,
		cache:       cache,
		kmPerMinute: kmPerMinute,
		log:         log.WithField("component", "route_service"),
		now:         time.Now,
	}
}

// PoolView is a pool with its vehicle and members in pickup order.
type PoolView struct {
	Pool    *domain.Pool
	Vehicle *domain.Vehicle
	Members []*domain.PoolMember
}

// SyncPool resequences the stops of a pool and stores the new pickup and
// drop positions with their ETAs. A pool left without members is cancelled
// and its vehicle released. Completed or cancelled pools are left alone.
func (s *RouteService) SyncPool(ctx context.Context, poolID string) error {
	if poolID == "" {
		return ErrInvalidPoolID
	}

	var affected []string

	err := withExclusivePool(ctx, s.tx, poolID, func(ctx context.Context, repos repository.Repositories, pool *domain.Pool) error {
		if pool.Status != domain.PoolStatusPooled {
			return nil
		}

		vehicle, err := repos.Vehicles.GetByID(ctx, pool.VehicleID)
		if err != nil {
			return err
		}

		members, err := repos.Memberships.ListMembers(ctx, pool.ID)
		if err != nil {
			return err
		}

		if len(members) == 0 {
			return s.closePool(ctx, repos, pool, vehicle, domain.PoolStatusCancelled)
		}

		input := make([]routing.Member, len(members))
		byRequest := make(map[string]*domain.Membership, len(members))
		for i, m := range members {
			input[i] = routing.Member{
				RequestID:              m.Request.ID,
				Pickup:                 m.Request.Pickup,
				Drop:                   m.Request.Drop,
				DetourToleranceMinutes: m.Request.DetourToleranceMinutes,
			}
			byRequest[m.Request.ID] = m.Membership
			affected = append(affected, m.Request.ID)
		}

		stops := s.sequencer.Sequence(vehicle.Location, input)
		etas := routing.Schedule(vehicle.Location, stops, s.now(), s.kmPerMinute)

		// Both sequences count positions in the full stop list.
		for i, stop := range stops {
			m := byRequest[stop.RequestID]
			switch stop.Kind {
			case routing.StopPickup:
				m.Sequence = i + 1
				m.PickupETA = etas[i]
			case routing.StopDrop:
				m.DropSequence = i + 1
				m.DropETA = etas[i]
			}
		}

		for _, m := range members {
			if err := repos.Memberships.Update(ctx, m.Membership); err != nil {
				return err
			}
		}

		pool.UpdatedAt = s.now()
		return repos.Pools.Update(ctx, pool)
	})
	if err != nil {
		observability.RouteSyncsTotal.WithLabelValues("failed").Inc()
		return err
	}

	observability.RouteSyncsTotal.WithLabelValues("synced").Inc()
	s.invalidate(ctx, affected)

	s.log.WithFields(logrus.Fields{"pool_id": poolID, "members": len(affected)}).Debug("pool route synced")
	return nil
}

// CompletePool marks an active pool completed and frees its vehicle.
func (s *RouteService) CompletePool(ctx context.Context, poolID string) (*domain.Pool, error) {
	if poolID == "" {
		return nil, ErrInvalidPoolID
	}

	var (
		result   *domain.Pool
		affected []string
	)

	err := withExclusivePool(ctx, s.tx, poolID, func(ctx context.Context, repos repository.Repositories, pool *domain.Pool) error {
		if pool.Status != domain.PoolStatusPooled {
			return ErrPoolNotActive
		}

		vehicle, err := repos.Vehicles.GetByID(ctx, pool.VehicleID)
		if err != nil {
			return err
		}

		members, err := repos.Memberships.ListMembers(ctx, pool.ID)
		if err != nil {
			return err
		}
		for _, m := range members {
			affected = append(affected, m.Request.ID)
		}

		if err := s.closePool(ctx, repos, pool, vehicle, domain.PoolStatusCompleted); err != nil {
			return err
		}
		result = pool
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, affected)
	s.log.WithFields(logrus.Fields{"pool_id": poolID, "vehicle_id": result.VehicleID}).Info("pool completed")
	return result, nil
}

// GetPool returns a pool with its vehicle and members.
func (s *RouteService) GetPool(ctx context.Context, poolID string) (*PoolView, error) {
	if poolID == "" {
		return nil, ErrInvalidPoolID
	}

	pool, err := s.repos.Pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.repos.Vehicles.GetByID(ctx, pool.VehicleID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	members, err := s.repos.Memberships.ListMembers(ctx, pool.ID)
	if err != nil {
		return nil, err
	}

	return &PoolView{Pool: pool, Vehicle: vehicle, Members: members}, nil
}

func (s *RouteService) closePool(
	ctx context.Context,
	repos repository.Repositories,
	pool *domain.Pool,
	vehicle *domain.Vehicle,
	status domain.PoolStatus,
) error {
	pool.Status = status
	pool.UpdatedAt = s.now()
	if err := repos.Pools.Update(ctx, pool); err != nil {
		return err
	}

	if vehicle.Status == domain.VehicleStatusBusy {
		vehicle.Status = domain.VehicleStatusAvailable
		if err := repos.Vehicles.Update(ctx, vehicle); err != nil {
			return err
		}
	}

	s.log.WithFields(logrus.Fields{
		"pool_id":    pool.ID,
		"vehicle_id": vehicle.ID,
		"status":     status,
	}).Info("pool closed")
	return nil
}

func (s *RouteService) invalidate(ctx context.Context, requestIDs []string) {
	if s.cache == nil || len(requestIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateStatuses(ctx, requestIDs...); err != nil {
		s.log.WithError(err).Warn("failed to invalidate status cache")
	}
}
