package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

// RiderService handles rider registration.
type RiderService struct {
	riderRepo repository.RiderRepository
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewRiderService creates a new RiderService.
func NewRiderService(riderRepo repository.RiderRepository, log logrus.FieldLogger) *RiderService {
	return &RiderService{
		riderRepo: riderRepo,
		log:       log.WithField("component", "rider_service"),
		now:       time.Now,
	}
}

// RegisterRider creates a rider. Phone numbers are unique.
func (s *RiderService) RegisterRider(ctx context.Context, name, phone string) (*domain.Rider, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, ErrInvalidRider
	}

	rider := &domain.Rider{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		CreatedAt: s.now(),
	}
	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, err
	}

	s.log.WithField("rider_id", rider.ID).Info("rider registered")
	return rider, nil
}

// GetRider returns a rider by ID.
func (s *RiderService) GetRider(ctx context.Context, riderID string) (*domain.Rider, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.riderRepo.GetByID(ctx, riderID)
}

// ListRiders returns all riders.
func (s *RiderService) ListRiders(ctx context.Context) ([]*domain.Rider, error) {
	return s.riderRepo.GetAll(ctx)
}
