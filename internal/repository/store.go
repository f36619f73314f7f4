package repository

import "context"

// Repositories groups the repositories that share one connection or
// transaction.
type Repositories struct {
	Riders      RiderRepository
	Requests    RequestRepository
	Vehicles    VehicleRepository
	Pools       PoolRepository
	Memberships MembershipRepository
}

// Transactor runs fn inside a single transaction. Row locks taken through
// the ForUpdate methods of repos are held until fn returns. The transaction
// commits if fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
