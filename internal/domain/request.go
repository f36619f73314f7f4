package domain

import (
	"time"

	"ridepool/internal/geo"
)

// RequestStatus represents the lifecycle state of a ride request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusPooled    RequestStatus = "POOLED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// Request is a rider's ask to travel from Pickup to Drop in a shared vehicle.
type Request struct {
	ID                     string
	RiderID                string
	Pickup                 geo.Point
	Drop                   geo.Point
	Seats                  int
	Luggage                int
	DetourToleranceMinutes int
	Status                 RequestStatus
	CreatedAt              time.Time
	CancelledAt            time.Time
}

// DirectDistanceKm is the straight-line trip length.
func (r *Request) DirectDistanceKm() float64 {
	return geo.Distance(r.Pickup, r.Drop)
}
