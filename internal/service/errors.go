package service

import "errors"

var (
	// ErrCapacityExceeded is returned when adding a request would overfill a vehicle.
	ErrCapacityExceeded = errors.New("vehicle capacity exceeded")

	// ErrRequestNotPending is returned when a request changed state before it could be placed.
	ErrRequestNotPending = errors.New("request is no longer pending")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrRiderNotFound is returned when a request references an unknown rider.
	ErrRiderNotFound = errors.New("rider not found")

	// ErrInvalidRequestID is returned when request ID is empty.
	ErrInvalidRequestID = errors.New("invalid request id")

	// ErrInvalidPoolID is returned when pool ID is empty.
	ErrInvalidPoolID = errors.New("invalid pool id")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropLocation is returned when drop coordinates are invalid.
	ErrInvalidDropLocation = errors.New("invalid drop location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidSeats is returned when fewer than one seat is requested.
	ErrInvalidSeats = errors.New("seats must be at least 1")

	// ErrInvalidLuggage is returned when luggage is negative.
	ErrInvalidLuggage = errors.New("luggage must not be negative")

	// ErrInvalidDetourTolerance is returned when detour tolerance is negative.
	ErrInvalidDetourTolerance = errors.New("detour tolerance must not be negative")

	// ErrInvalidVehicle is returned when vehicle registration data is invalid.
	ErrInvalidVehicle = errors.New("invalid vehicle")

	// ErrInvalidRider is returned when rider registration data is invalid.
	ErrInvalidRider = errors.New("name and phone are required")

	// ErrInvalidQuote is returned when fare quote input is invalid.
	ErrInvalidQuote = errors.New("invalid quote input")

	// ErrRequestAlreadyCancelled is returned when cancelling a cancelled request.
	ErrRequestAlreadyCancelled = errors.New("request already cancelled")

	// ErrPoolNotActive is returned when operating on a completed or cancelled pool.
	ErrPoolNotActive = errors.New("pool is not active")

	// ErrVehicleBusy is returned when taking a vehicle offline while it serves a pool.
	ErrVehicleBusy = errors.New("vehicle is serving a pool")
)
