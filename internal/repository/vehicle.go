package repository

import (
	"context"

	"ridepool/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// Create adds a new vehicle.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// GetByIDForUpdate retrieves a vehicle and locks its row until the
	// enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Vehicle, error)

	// GetAll retrieves all vehicles.
	GetAll(ctx context.Context) ([]*domain.Vehicle, error)

	// ListAvailableForUpdate retrieves available vehicles, locking each row and
	// skipping rows already locked by another transaction.
	ListAvailableForUpdate(ctx context.Context) ([]*domain.Vehicle, error)

	// Update updates status and location of an existing vehicle.
	Update(ctx context.Context, vehicle *domain.Vehicle) error
}
