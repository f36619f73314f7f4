package domain

import "time"

// PoolStatus represents the lifecycle state of a pool.
type PoolStatus string

const (
	PoolStatusPooled    PoolStatus = "POOLED"
	PoolStatusCompleted PoolStatus = "COMPLETED"
	PoolStatusCancelled PoolStatus = "CANCELLED"
)

// Pool is a shared trip served by exactly one vehicle.
type Pool struct {
	ID        string
	VehicleID string
	Status    PoolStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership places a request in a pool. Sequence is the 1-based position of
// the pickup stop, DropSequence that of the drop stop (0 until the route has
// been sequenced). Zero ETAs mean not yet estimated.
type Membership struct {
	ID           string
	PoolID       string
	RequestID    string
	Sequence     int
	DropSequence int
	PickupETA    time.Time
	DropETA      time.Time
	CreatedAt    time.Time
}

// PoolMember is a membership joined with its request.
type PoolMember struct {
	Membership *Membership
	Request    *Request
}

// Load is the seat and luggage occupancy of a pool.
type Load struct {
	Seats   int
	Luggage int
}

// LoadOf sums the seats and luggage of members.
func LoadOf(members []*PoolMember) Load {
	var l Load
	for _, m := range members {
		l.Seats += m.Request.Seats
		l.Luggage += m.Request.Luggage
	}
	return l
}
