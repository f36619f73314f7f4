package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
)

// VehicleService handles vehicle operations.
type VehicleService struct {
	locationStore redis.LocationStoreInterface
	vehicleRepo   repository.VehicleRepository
	tx            repository.Transactor
	log           logrus.FieldLogger
	now           func() time.Time
}

// NewVehicleService creates a new VehicleService. locationStore may be nil.
func NewVehicleService(
	locationStore redis.LocationStoreInterface,
	vehicleRepo repository.VehicleRepository,
	tx repository.Transactor,
	log logrus.FieldLogger,
) *VehicleService {
	return &VehicleService{
		locationStore: locationStore,
		vehicleRepo:   vehicleRepo,
		tx:            tx,
		log:           log.WithField("component", "vehicle_service"),
		now:           time.Now,
	}
}

// RegisterVehicleInput contains the parameters for registering a vehicle.
type RegisterVehicleInput struct {
	DriverName      string `validate:"required"`
	TotalSeats      int    `validate:"gte=1"`
	LuggageCapacity int    `validate:"gte=0"`
	Location        geo.Point
}

// UpdateLocationRequest contains the parameters for updating a vehicle location.
type UpdateLocationRequest struct {
	VehicleID string
	Location  geo.Point
}

// RegisterVehicle adds a new available vehicle.
func (s *VehicleService) RegisterVehicle(ctx context.Context, in RegisterVehicleInput) (*domain.Vehicle, error) {
	if err := validateInput(in, map[string]error{"Location": ErrInvalidLocation}, ErrInvalidVehicle); err != nil {
		return nil, err
	}

	vehicle := &domain.Vehicle{
		ID:              uuid.New().String(),
		DriverName:      in.DriverName,
		TotalSeats:      in.TotalSeats,
		LuggageCapacity: in.LuggageCapacity,
		Location:        in.Location,
		Status:          domain.VehicleStatusAvailable,
		CreatedAt:       s.now(),
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	s.index(ctx, vehicle)
	s.log.WithField("vehicle_id", vehicle.ID).Info("vehicle registered")
	return vehicle, nil
}

// ListVehicles returns all vehicles.
func (s *VehicleService) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	return s.vehicleRepo.GetAll(ctx)
}

// GetVehicle returns a vehicle by ID.
func (s *VehicleService) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	return s.vehicleRepo.GetByID(ctx, vehicleID)
}

// UpdateLocation moves a vehicle. An offline vehicle reporting its location
// comes back as AVAILABLE.
func (s *VehicleService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*domain.Vehicle, error) {
	if req.VehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	if !req.Location.Valid() {
		return nil, ErrInvalidLocation
	}

	var vehicle *domain.Vehicle
	err := withExclusiveVehicle(ctx, s.tx, req.VehicleID, func(ctx context.Context, repos repository.Repositories, v *domain.Vehicle) error {
		v.Location = req.Location
		if v.Status == domain.VehicleStatusOffline {
			v.Status = domain.VehicleStatusAvailable
		}
		vehicle = v
		return repos.Vehicles.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, vehicle)
	return vehicle, nil
}

// SetVehicleOffline takes an idle vehicle out of service.
func (s *VehicleService) SetVehicleOffline(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	var vehicle *domain.Vehicle
	err := withExclusiveVehicle(ctx, s.tx, vehicleID, func(ctx context.Context, repos repository.Repositories, v *domain.Vehicle) error {
		if v.Status == domain.VehicleStatusBusy {
			return ErrVehicleBusy
		}
		v.Status = domain.VehicleStatusOffline
		vehicle = v
		return repos.Vehicles.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	if s.locationStore != nil {
		if err := s.locationStore.RemoveLocation(ctx, vehicleID); err != nil {
			s.log.WithError(err).WithField("vehicle_id", vehicleID).Warn("failed to remove vehicle from location index")
		}
	}

	return vehicle, nil
}

// index mirrors the vehicle position into the GEO index. Storage stays the
// source of truth, so failures are only logged.
func (s *VehicleService) index(ctx context.Context, v *domain.Vehicle) {
	if s.locationStore == nil {
		return
	}
	err := s.locationStore.UpdateLocation(ctx, v.ID, v.Location.Lat, v.Location.Lng)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.WithError(err).WithField("vehicle_id", v.ID).Warn("failed to index vehicle location")
	}
}
