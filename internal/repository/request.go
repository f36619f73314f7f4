package repository

import (
	"context"

	"ridepool/internal/domain"
)

// RequestRepository defines the persistence operations for ride requests.
type RequestRepository interface {
	// Create persists a new request.
	Create(ctx context.Context, req *domain.Request) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.Request, error)

	// GetByIDForUpdate retrieves a request and locks its row until the
	// enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error)

	// ListPending retrieves pending requests, oldest first.
	ListPending(ctx context.Context) ([]*domain.Request, error)

	// GetAll retrieves the most recent requests.
	GetAll(ctx context.Context) ([]*domain.Request, error)

	// Update updates an existing request.
	Update(ctx context.Context, req *domain.Request) error
}
