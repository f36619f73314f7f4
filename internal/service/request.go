package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/observability"
	"ridepool/internal/pricing"
	"ridepool/internal/queue"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
	"ridepool/internal/routing"
)

// RequestService handles the rider-facing request lifecycle.
type RequestService struct {
	repos      repository.Repositories
	tx         repository.Transactor
	dispatcher queue.Dispatcher
	cache      redis.StatusCache
	pricing    *pricing.Engine
	surge      *SurgeService
	sequencer  *routing.Sequencer
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewRequestService creates a new RequestService. cache and surge may be nil.
func NewRequestService(
	repos repository.Repositories,
	tx repository.Transactor,
	dispatcher queue.Dispatcher,
	cache redis.StatusCache,
	pricingEngine *pricing.Engine,
	surge *SurgeService,
	sequencer *routing.Sequencer,
	log logrus.FieldLogger,
) *RequestService {
	return &RequestService{
		repos:      repos,
		tx:         tx,
		dispatcher: dispatcher,
		cache:      cache,
		pricing:    pricingEngine,
		surge:      surge,
		sequencer:  sequencer,
		log:        log.WithField("component", "request_service"),
		now:        time.Now,
	}
}

// CreateRequestInput contains the parameters for creating a ride request.
type CreateRequestInput struct {
	RiderID                string `validate:"required"`
	Pickup                 geo.Point
	Drop                   geo.Point
	Seats                  int `validate:"gte=1"`
	Luggage                int `validate:"gte=0"`
	DetourToleranceMinutes int `validate:"gte=0"`
}

var createRequestFieldErrs = map[string]error{
	"RiderID":                ErrInvalidRiderID,
	"Pickup":                 ErrInvalidPickupLocation,
	"Drop":                   ErrInvalidDropLocation,
	"Seats":                  ErrInvalidSeats,
	"Luggage":                ErrInvalidLuggage,
	"DetourToleranceMinutes": ErrInvalidDetourTolerance,
}

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	Request       *domain.Request
	AffectedPools []string
}

// StatusView is the rider-facing status of a request.
type StatusView struct {
	RequestID      string
	Status         domain.RequestStatus
	Assigned       bool
	PoolID         string
	VehicleID      string
	PickupETA      time.Time
	DropETA        time.Time
	PassengerCount int
	Fare           *pricing.Quote
}

// CreateRequest validates and stores a new pending request, then schedules a
// matching pass. Scheduling failures are logged; the request stays pending
// until the next pass.
func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*domain.Request, error) {
	if err := validateInput(in, createRequestFieldErrs, ErrInvalidPickupLocation); err != nil {
		return nil, err
	}

	if _, err := s.repos.Riders.GetByID(ctx, in.RiderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRiderNotFound
		}
		return nil, err
	}

	req := &domain.Request{
		ID:                     uuid.New().String(),
		RiderID:                in.RiderID,
		Pickup:                 in.Pickup,
		Drop:                   in.Drop,
		Seats:                  in.Seats,
		Luggage:                in.Luggage,
		DetourToleranceMinutes: in.DetourToleranceMinutes,
		Status:                 domain.RequestStatusPending,
		CreatedAt:              s.now(),
	}

	if err := s.repos.Requests.Create(ctx, req); err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"request_id": req.ID, "rider_id": req.RiderID})
	if err := s.dispatcher.Dispatch(ctx, queue.MatchJob(req.ID)); err != nil {
		entry.WithError(err).Error("failed to schedule matching pass")
	}

	entry.Info("ride request created")
	return req, nil
}

// CancelRequest cancels a request and removes it from its pool. The
// affected pools are resequenced in the background.
func (s *RequestService) CancelRequest(ctx context.Context, requestID string) (*CancelResult, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	result := &CancelResult{}

	err := withExclusiveRequest(ctx, s.tx, requestID, func(ctx context.Context, repos repository.Repositories, req *domain.Request) error {
		if req.Status == domain.RequestStatusCancelled {
			return ErrRequestAlreadyCancelled
		}

		req.Status = domain.RequestStatusCancelled
		req.CancelledAt = s.now()
		if err := repos.Requests.Update(ctx, req); err != nil {
			return err
		}

		pools, err := repos.Memberships.DeleteByRequestID(ctx, req.ID)
		if err != nil {
			return err
		}

		result.Request = req
		result.AffectedPools = pools
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithField("request_id", requestID)
	for _, poolID := range result.AffectedPools {
		if err := s.dispatcher.Dispatch(ctx, queue.RouteSyncJob(poolID)); err != nil {
			entry.WithError(err).WithField("pool_id", poolID).Error("failed to schedule route sync")
		}
	}

	s.invalidate(ctx, requestID)
	entry.WithField("affected_pools", len(result.AffectedPools)).Info("ride request cancelled")
	return result, nil
}

// GetRequest returns a request by ID.
func (s *RequestService) GetRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	return s.repos.Requests.GetByID(ctx, requestID)
}

// ListRequests returns the most recent requests.
func (s *RequestService) ListRequests(ctx context.Context) ([]*domain.Request, error) {
	return s.repos.Requests.GetAll(ctx)
}

// QuoteStatus returns the pool assignment of a request and, once pooled, its
// ETAs and fare. The fare uses the pool's passenger count, the direct trip
// distance, and the extra distance the shared route adds to this rider's
// leg.
func (s *RequestService) QuoteStatus(ctx context.Context, requestID string) (*StatusView, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	if view := s.cached(ctx, requestID); view != nil {
		return view, nil
	}

	req, err := s.repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{RequestID: req.ID, Status: req.Status}

	membership, err := s.repos.Memberships.GetByRequestID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.store(ctx, view)
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	pool, err := s.repos.Pools.GetByID(ctx, membership.PoolID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.repos.Vehicles.GetByID(ctx, pool.VehicleID)
	if err != nil {
		return nil, err
	}
	members, err := s.repos.Memberships.ListMembers(ctx, pool.ID)
	if err != nil {
		return nil, err
	}

	direct := req.DirectDistanceKm()
	detour := 0.0
	stops := s.sequencer.Sequence(vehicle.Location, toRouteMembers(members))
	if onRoute, ok := routing.RideDistance(stops, req.ID); ok {
		detour = math.Max(0, onRoute-direct)
	}

	demand := 1.0
	if s.surge != nil {
		demand = s.surge.GetMultiplier(ctx, req.Pickup)
	}

	quote := s.pricing.Quote(pricing.QuoteInput{
		DistanceKm:       direct,
		Passengers:       len(members),
		DemandMultiplier: demand,
		DetourKm:         detour,
	})
	observability.QuotesTotal.Inc()

	view.Assigned = true
	view.PoolID = pool.ID
	view.VehicleID = vehicle.ID
	view.PickupETA = membership.PickupETA
	view.DropETA = membership.DropETA
	view.PassengerCount = len(members)
	view.Fare = &quote

	s.store(ctx, view)
	return view, nil
}

func toRouteMembers(members []*domain.PoolMember) []routing.Member {
	out := make([]routing.Member, len(members))
	for i, m := range members {
		out[i] = routing.Member{
			RequestID:              m.Request.ID,
			Pickup:                 m.Request.Pickup,
			Drop:                   m.Request.Drop,
			DetourToleranceMinutes: m.Request.DetourToleranceMinutes,
		}
	}
	return out
}

func (s *RequestService) cached(ctx context.Context, requestID string) *StatusView {
	if s.cache == nil {
		return nil
	}

	c, err := s.cache.GetStatus(ctx, requestID)
	if err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Warn("status cache read failed")
		return nil
	}
	if c == nil {
		return nil
	}

	view := &StatusView{
		RequestID:      c.RequestID,
		Status:         domain.RequestStatus(c.Status),
		Assigned:       c.Assigned,
		PoolID:         c.PoolID,
		VehicleID:      c.VehicleID,
		PickupETA:      c.PickupETA,
		DropETA:        c.DropETA,
		PassengerCount: c.PassengerCount,
	}
	if c.Fare != nil {
		view.Fare = &pricing.Quote{
			FinalPrice:          c.Fare.FinalPrice,
			BaseIndividualPrice: c.Fare.BaseIndividualPrice,
			PoolingDiscount:     c.Fare.PoolingDiscount,
			DetourCompensation:  c.Fare.DetourCompensation,
			SurgeAmount:         c.Fare.SurgeAmount,
		}
	}
	return view
}

func (s *RequestService) store(ctx context.Context, view *StatusView) {
	if s.cache == nil {
		return
	}

	c := &redis.CachedStatus{
		RequestID:      view.RequestID,
		Status:         string(view.Status),
		Assigned:       view.Assigned,
		PoolID:         view.PoolID,
		VehicleID:      view.VehicleID,
		PickupETA:      view.PickupETA,
		DropETA:        view.DropETA,
		PassengerCount: view.PassengerCount,
	}
	if view.Fare != nil {
		c.Fare = &redis.CachedFare{
			FinalPrice:          view.Fare.FinalPrice,
			BaseIndividualPrice: view.Fare.BaseIndividualPrice,
			PoolingDiscount:     view.Fare.PoolingDiscount,
			DetourCompensation:  view.Fare.DetourCompensation,
			SurgeAmount:         view.Fare.SurgeAmount,
		}
	}

	if err := s.cache.SetStatus(ctx, c); err != nil {
		s.log.WithError(err).WithField("request_id", view.RequestID).Warn("status cache write failed")
	}
}

func (s *RequestService) invalidate(ctx context.Context, requestIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStatuses(ctx, requestIDs...); err != nil {
		s.log.WithError(err).Warn("failed to invalidate status cache")
	}
}
