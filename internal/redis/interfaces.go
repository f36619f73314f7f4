package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for vehicle location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, vehicleID string, lat, lng float64) error
	FindNearbyVehicles(ctx context.Context, lat, lng, radiusKm float64) ([]VehicleLocation, error)
	RemoveLocation(ctx context.Context, vehicleID string) error
}

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out named distributed locks.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lock, error)
}

// StatusCache caches quote statuses.
type StatusCache interface {
	GetStatus(ctx context.Context, requestID string) (*CachedStatus, error)
	SetStatus(ctx context.Context, status *CachedStatus) error
	InvalidateStatuses(ctx context.Context, requestIDs ...string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ Locker                 = (*LockStore)(nil)
	_ StatusCache            = (*CacheStore)(nil)
)
