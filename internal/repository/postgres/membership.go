package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

// MembershipRepository is a PostgreSQL implementation of repository.MembershipRepository.
type MembershipRepository struct {
	q Querier
}

// NewMembershipRepository creates a new PostgreSQL membership repository.
func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{q: db}
}

// Create adds a request to a pool.
func (r *MembershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO pool_members (id, pool_id, request_id, sequence_order, drop_order, pickup_eta, drop_eta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		m.ID,
		m.PoolID,
		m.RequestID,
		m.Sequence,
		m.DropSequence,
		toNullTime(m.PickupETA),
		toNullTime(m.DropETA),
		m.CreatedAt,
	)
	if isUniqueViolation(err, "") {
		return repository.ErrAlreadyMember
	}
	return err
}

// ListMembers retrieves the members of a pool joined with their requests.
func (r *MembershipRepository) ListMembers(ctx context.Context, poolID string) ([]*domain.PoolMember, error) {
	query := `
		SELECT m.id, m.pool_id, m.request_id, m.sequence_order, m.drop_order, m.pickup_eta, m.drop_eta, m.created_at,
		       r.id, r.rider_id, r.pickup_lat, r.pickup_lng, r.drop_lat, r.drop_lng, r.seats, r.luggage,
		       r.detour_tolerance_minutes, r.status, r.created_at, r.cancelled_at
		FROM pool_members m
		JOIN ride_requests r ON r.id = m.request_id
		WHERE m.pool_id = $1
		ORDER BY m.sequence_order ASC, m.created_at ASC
	`
	rows, err := r.q.QueryContext(ctx, query, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.PoolMember
	for rows.Next() {
		var m domain.Membership
		var req domain.Request
		var pickupETA, dropETA, cancelledAt sql.NullTime

		if err := rows.Scan(
			&m.ID,
			&m.PoolID,
			&m.RequestID,
			&m.Sequence,
			&m.DropSequence,
			&pickupETA,
			&dropETA,
			&m.CreatedAt,
			&req.ID,
			&req.RiderID,
			&req.Pickup.Lat,
			&req.Pickup.Lng,
			&req.Drop.Lat,
			&req.Drop.Lng,
			&req.Seats,
			&req.Luggage,
			&req.DetourToleranceMinutes,
			&req.Status,
			&req.CreatedAt,
			&cancelledAt,
		); err != nil {
			return nil, err
		}

		m.PickupETA = fromNullTime(pickupETA)
		m.DropETA = fromNullTime(dropETA)
		req.CancelledAt = fromNullTime(cancelledAt)
		members = append(members, &domain.PoolMember{Membership: &m, Request: &req})
	}
	return members, rows.Err()
}

// GetByRequestID retrieves the membership of a request.
func (r *MembershipRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Membership, error) {
	query := `
		SELECT id, pool_id, request_id, sequence_order, drop_order, pickup_eta, drop_eta, created_at
		FROM pool_members WHERE request_id = $1
	`

	var m domain.Membership
	var pickupETA, dropETA sql.NullTime
	err := r.q.QueryRowContext(ctx, query, requestID).Scan(
		&m.ID,
		&m.PoolID,
		&m.RequestID,
		&m.Sequence,
		&m.DropSequence,
		&pickupETA,
		&dropETA,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	m.PickupETA = fromNullTime(pickupETA)
	m.DropETA = fromNullTime(dropETA)
	return &m, nil
}

// DeleteByRequestID removes the memberships of a request.
func (r *MembershipRepository) DeleteByRequestID(ctx context.Context, requestID string) ([]string, error) {
	query := `DELETE FROM pool_members WHERE request_id = $1 RETURNING pool_id`
	rows, err := r.q.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poolIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		poolIDs = append(poolIDs, id)
	}
	return poolIDs, rows.Err()
}

// Update updates sequence numbers and ETAs of a membership.
func (r *MembershipRepository) Update(ctx context.Context, m *domain.Membership) error {
	query := `
		UPDATE pool_members
		SET sequence_order = $1, drop_order = $2, pickup_eta = $3, drop_eta = $4
		WHERE id = $5
	`
	result, err := r.q.ExecContext(ctx, query,
		m.Sequence,
		m.DropSequence,
		toNullTime(m.PickupETA),
		toNullTime(m.DropETA),
		m.ID,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}
