package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

const requestColumns = `id, rider_id, pickup_lat, pickup_lng, drop_lat, drop_lng, seats, luggage, detour_tolerance_minutes, status, created_at, cancelled_at`

// RequestRepository is a PostgreSQL implementation of repository.RequestRepository.
type RequestRepository struct {
	q Querier
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{q: db}
}

// NewRequestRepositoryWithTx creates a request repository using a transaction.
func NewRequestRepositoryWithTx(tx *sql.Tx) *RequestRepository {
	return &RequestRepository{q: tx}
}

// Create persists a new request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO ride_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.RiderID,
		req.Pickup.Lat,
		req.Pickup.Lng,
		req.Drop.Lat,
		req.Drop.Lng,
		req.Seats,
		req.Luggage,
		req.DetourToleranceMinutes,
		req.Status,
		req.CreatedAt,
		toNullTime(req.CancelledAt),
	)
	return err
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = $1`
	return scanRequest(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a request and locks its row.
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(r.q.QueryRowContext(ctx, query, id))
}

// ListPending retrieves pending requests, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]*domain.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ride_requests
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, domain.RequestStatusPending)
}

// GetAll retrieves the most recent requests.
func (r *RequestRepository) GetAll(ctx context.Context) ([]*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests ORDER BY created_at DESC LIMIT 100`
	return r.list(ctx, query)
}

// Update updates an existing request.
func (r *RequestRepository) Update(ctx context.Context, req *domain.Request) error {
	query := `
		UPDATE ride_requests
		SET seats = $1, luggage = $2, detour_tolerance_minutes = $3, status = $4, cancelled_at = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		req.Seats,
		req.Luggage,
		req.DetourToleranceMinutes,
		req.Status,
		toNullTime(req.CancelledAt),
		req.ID,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}

func (r *RequestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Request, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row scanner) (*domain.Request, error) {
	var req domain.Request
	var cancelledAt sql.NullTime

	err := row.Scan(
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
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	req.CancelledAt = fromNullTime(cancelledAt)
	return &req, nil
}
