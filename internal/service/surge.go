package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
)

// SurgeService calculates the demand multiplier from local supply and demand.
type SurgeService struct {
	locationStore redis.LocationStoreInterface
	requestRepo   repository.RequestRepository
	vehicleRepo   repository.VehicleRepository
	config        SurgeConfig
	log           logrus.FieldLogger
}

// NewSurgeService creates a new SurgeService. locationStore may be nil, in
// which case supply is counted from the vehicle repository.
func NewSurgeService(
	locationStore redis.LocationStoreInterface,
	requestRepo repository.RequestRepository,
	vehicleRepo repository.VehicleRepository,
	config SurgeConfig,
	log logrus.FieldLogger,
) *SurgeService {
	return &SurgeService{
		locationStore: locationStore,
		requestRepo:   requestRepo,
		vehicleRepo:   vehicleRepo,
		config:        config,
		log:           log.WithField("component", "surge_service"),
	}
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm       float64 // Radius to check for supply/demand
	LowSurgeRatio  float64 // Demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // Demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // Demand/supply ratio for 2.0x surge
	MaxSurge       float64 // Maximum surge multiplier
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:       5.0,
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// GetMultiplier calculates the demand multiplier around p.
// Returns 1.0 if no surge, up to MaxSurge if demand outstrips supply.
func (s *SurgeService) GetMultiplier(ctx context.Context, p geo.Point) float64 {
	supply := s.countVehiclesInArea(ctx, p)
	demand := s.countPendingRequestsInArea(ctx, p)
	return s.calculateSurgeMultiplier(supply, demand)
}

// countVehiclesInArea counts vehicles in the GEO index near p. Busy vehicles
// are included since a pooled vehicle can still take riders.
func (s *SurgeService) countVehiclesInArea(ctx context.Context, p geo.Point) int {
	if s.locationStore != nil {
		vehicles, err := s.locationStore.FindNearbyVehicles(ctx, p.Lat, p.Lng, s.config.RadiusKm)
		if err == nil {
			return len(vehicles)
		}
		s.log.WithError(err).Warn("location index unavailable, counting supply from storage")
	}

	vehicles, err := s.vehicleRepo.GetAll(ctx)
	if err != nil {
		// Fail open: no surge.
		return -1
	}

	count := 0
	for _, v := range vehicles {
		if v.Status == domain.VehicleStatusOffline {
			continue
		}
		if geo.Distance(v.Location, p) <= s.config.RadiusKm {
			count++
		}
	}
	return count
}

// countPendingRequestsInArea counts unplaced requests picking up near p.
func (s *SurgeService) countPendingRequestsInArea(ctx context.Context, p geo.Point) int {
	pending, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return 0
	}

	count := 0
	for _, req := range pending {
		if geo.Distance(req.Pickup, p) <= s.config.RadiusKm {
			count++
		}
	}
	return count
}

// calculateSurgeMultiplier determines the multiplier based on demand/supply.
// A negative supply means it could not be measured.
func (s *SurgeService) calculateSurgeMultiplier(supply, demand int) float64 {
	if supply < 0 {
		return 1.0
	}
	if supply == 0 {
		if demand > 0 {
			return s.config.MaxSurge
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)

	switch {
	case ratio >= s.config.HighSurgeRatio:
		return s.config.MaxSurge
	case ratio >= s.config.MedSurgeRatio:
		return 1.5
	case ratio >= s.config.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}
