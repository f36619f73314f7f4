package service

import (
	"context"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

// withExclusiveRequest runs fn in a transaction holding the row lock of the
// request. fn sees the state as of the lock and must revalidate it.
func withExclusiveRequest(
	ctx context.Context,
	tx repository.Transactor,
	requestID string,
	fn func(ctx context.Context, repos repository.Repositories, req *domain.Request) error,
) error {
	return tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		return fn(ctx, repos, req)
	})
}

// withExclusivePool runs fn in a transaction holding the row lock of the pool.
func withExclusivePool(
	ctx context.Context,
	tx repository.Transactor,
	poolID string,
	fn func(ctx context.Context, repos repository.Repositories, pool *domain.Pool) error,
) error {
	return tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		pool, err := repos.Pools.GetByIDForUpdate(ctx, poolID)
		if err != nil {
			return err
		}
		return fn(ctx, repos, pool)
	})
}

// withExclusiveVehicle runs fn in a transaction holding the row lock of the
// vehicle, so status changes made by a concurrent pass are seen by fn.
func withExclusiveVehicle(
	ctx context.Context,
	tx repository.Transactor,
	vehicleID string,
	fn func(ctx context.Context, repos repository.Repositories, vehicle *domain.Vehicle) error,
) error {
	return tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		vehicle, err := repos.Vehicles.GetByIDForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		return fn(ctx, repos, vehicle)
	})
}

// waitFor sleeps for d and reports false if ctx ended first.
func waitFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
