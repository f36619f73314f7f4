package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

const vehicleColumns = `id, driver_name, total_seats, luggage_capacity, current_lat, current_lng, status, created_at`

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// Create adds a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (` + vehicleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.ExecContext(ctx, query,
		v.ID,
		v.DriverName,
		v.TotalSeats,
		v.LuggageCapacity,
		v.Location.Lat,
		v.Location.Lng,
		v.Status,
		v.CreatedAt,
	)
	return err
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return scanVehicle(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a vehicle and locks its row.
func (r *VehicleRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 FOR UPDATE`
	return scanVehicle(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all vehicles.
func (r *VehicleRepository) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query)
}

// ListAvailableForUpdate retrieves available vehicles. Rows locked by a
// concurrent matcher are skipped rather than waited on.
func (r *VehicleRepository) ListAvailableForUpdate(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE SKIP LOCKED
	`
	return r.list(ctx, query, domain.VehicleStatusAvailable)
}

// Update updates status and location of an existing vehicle.
func (r *VehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET driver_name = $1, total_seats = $2, luggage_capacity = $3, current_lat = $4, current_lng = $5, status = $6
		WHERE id = $7
	`
	result, err := r.q.ExecContext(ctx, query,
		v.DriverName,
		v.TotalSeats,
		v.LuggageCapacity,
		v.Location.Lat,
		v.Location.Lng,
		v.Status,
		v.ID,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}

func (r *VehicleRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Vehicle, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func scanVehicle(row scanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID,
		&v.DriverName,
		&v.TotalSeats,
		&v.LuggageCapacity,
		&v.Location.Lat,
		&v.Location.Lng,
		&v.Status,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
