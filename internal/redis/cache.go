package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCacheTTL bounds how stale a cached quote status can be.
const StatusCacheTTL = 10 * time.Second

const statusCachePrefix = "cache:request_status:"

// CachedStatus is the serialised quote status of a request.
type CachedStatus struct {
	RequestID      string      `json:"request_id"`
	Status         string      `json:"status"`
	Assigned       bool        `json:"assigned"`
	PoolID         string      `json:"pool_id,omitempty"`
	VehicleID      string      `json:"vehicle_id,omitempty"`
	PickupETA      time.Time   `json:"pickup_eta"`
	DropETA        time.Time   `json:"drop_eta"`
	PassengerCount int         `json:"passenger_count"`
	Fare           *CachedFare `json:"fare,omitempty"`
}

// CachedFare is the serialised fare breakdown of a cached status.
type CachedFare struct {
	FinalPrice          float64 `json:"final_price"`
	BaseIndividualPrice float64 `json:"base_individual_price"`
	PoolingDiscount     float64 `json:"pooling_discount"`
	DetourCompensation  float64 `json:"detour_compensation"`
	SurgeAmount         float64 `json:"surge_amount"`
}

// CacheStore handles quote status caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetStatus retrieves a cached status. Returns nil, nil on a miss.
func (s *CacheStore) GetStatus(ctx context.Context, requestID string) (*CachedStatus, error) {
	data, err := s.client.Get(ctx, statusCachePrefix+requestID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var status CachedStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetStatus stores a status in cache.
func (s *CacheStore) SetStatus(ctx context.Context, status *CachedStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, statusCachePrefix+status.RequestID, data, StatusCacheTTL).Err()
}

// InvalidateStatuses removes cached statuses for the given requests in one
// round trip.
func (s *CacheStore) InvalidateStatuses(ctx context.Context, requestIDs ...string) error {
	if len(requestIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range requestIDs {
		pipe.Del(ctx, statusCachePrefix+id)
	}
	_, err := pipe.Exec(ctx)
	return err
}
