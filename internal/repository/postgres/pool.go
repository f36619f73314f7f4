package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

const poolColumns = `id, vehicle_id, status, created_at, updated_at`

// PoolRepository is a PostgreSQL implementation of repository.PoolRepository.
type PoolRepository struct {
	q Querier
}

// NewPoolRepository creates a new PostgreSQL pool repository.
func NewPoolRepository(db *sql.DB) *PoolRepository {
	return &PoolRepository{q: db}
}

// Create persists a new pool.
func (r *PoolRepository) Create(ctx context.Context, p *domain.Pool) error {
	query := `INSERT INTO pools (` + poolColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, p.ID, p.VehicleID, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetByID retrieves a pool by ID.
func (r *PoolRepository) GetByID(ctx context.Context, id string) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	return scanPool(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a pool and locks its row.
func (r *PoolRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1 FOR UPDATE`
	return scanPool(r.q.QueryRowContext(ctx, query, id))
}

// ListActiveForUpdate retrieves pooled pools, oldest first, and locks them.
func (r *PoolRepository) ListActiveForUpdate(ctx context.Context) ([]*domain.Pool, error) {
	query := `
		SELECT ` + poolColumns + `
		FROM pools
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`
	rows, err := r.q.QueryContext(ctx, query, domain.PoolStatusPooled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []*domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// Update updates the status of an existing pool.
func (r *PoolRepository) Update(ctx context.Context, p *domain.Pool) error {
	query := `UPDATE pools SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.q.ExecContext(ctx, query, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}

func scanPool(row scanner) (*domain.Pool, error) {
	var p domain.Pool
	err := row.Scan(&p.ID, &p.VehicleID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
