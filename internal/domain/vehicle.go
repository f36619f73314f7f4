package domain

import (
	"time"

	"ridepool/internal/geo"
)

// VehicleStatus represents the current status of a vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "AVAILABLE"
	VehicleStatusBusy      VehicleStatus = "BUSY"
	VehicleStatusOffline   VehicleStatus = "OFFLINE"
)

// Vehicle is a cab that can serve one pool at a time.
type Vehicle struct {
	ID              string
	DriverName      string
	TotalSeats      int
	LuggageCapacity int
	Location        geo.Point
	Status          VehicleStatus
	CreatedAt       time.Time
}

// Fits reports whether the vehicle can take req on top of load.
func (v *Vehicle) Fits(load Load, req *Request) bool {
	return load.Seats+req.Seats <= v.TotalSeats &&
		load.Luggage+req.Luggage <= v.LuggageCapacity
}
