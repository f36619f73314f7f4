package repository

import (
	"context"

	"ridepool/internal/domain"
)

// PoolRepository defines the persistence operations for pools.
type PoolRepository interface {
	// Create persists a new pool.
	Create(ctx context.Context, pool *domain.Pool) error

	// GetByID retrieves a pool by ID.
	GetByID(ctx context.Context, id string) (*domain.Pool, error)

	// GetByIDForUpdate retrieves a pool and locks its row.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Pool, error)

	// ListActiveForUpdate retrieves pools still accepting riders, oldest
	// first, locking every returned row.
	ListActiveForUpdate(ctx context.Context) ([]*domain.Pool, error)

	// Update updates the status of an existing pool.
	Update(ctx context.Context, pool *domain.Pool) error
}

// MembershipRepository defines the persistence operations for pool memberships.
type MembershipRepository interface {
	// Create adds a request to a pool. Returns ErrAlreadyMember if the
	// request is already placed.
	Create(ctx context.Context, m *domain.Membership) error

	// ListMembers retrieves the members of a pool with their requests,
	// ordered by pickup sequence.
	ListMembers(ctx context.Context, poolID string) ([]*domain.PoolMember, error)

	// GetByRequestID retrieves the membership of a request.
	GetByRequestID(ctx context.Context, requestID string) (*domain.Membership, error)

	// DeleteByRequestID removes every membership of a request and returns the
	// IDs of the pools it left.
	DeleteByRequestID(ctx context.Context, requestID string) ([]string, error)

	// Update updates sequence numbers and ETAs of a membership.
	Update(ctx context.Context, m *domain.Membership) error
}
