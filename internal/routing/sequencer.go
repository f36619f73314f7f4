// Package routing orders the pickup and drop stops of a pooled trip.
package routing

import (
	"math"
	"time"

	"ridepool/internal/geo"
)

// StopKind distinguishes pickups from drops.
type StopKind string

const (
	StopPickup StopKind = "PICKUP"
	StopDrop   StopKind = "DROP"
)

// Member is one rider's leg of a pooled trip.
type Member struct {
	RequestID string
	Pickup    geo.Point
	Drop      geo.Point
	// DetourToleranceMinutes is carried for callers; sequencing does not
	// reject on it.
	DetourToleranceMinutes int
}

// Stop is a single visit in a sequenced route.
type Stop struct {
	RequestID string
	Kind      StopKind
	Point     geo.Point
}

// Sequencer orders stops with a nearest-neighbour search that never visits a
// drop before its pickup.
type Sequencer struct{}

// NewSequencer creates a new Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// candidate is a stop eligible for the next visit, in enumeration order.
type candidate struct {
	member int
	kind   StopKind
}

// Sequence returns the visit order starting from start. Ties go to the
// candidate enumerated first: members in input order, pickup before drop.
// If no candidate remains before every drop is visited, the partial order
// built so far is returned.
func (s *Sequencer) Sequence(start geo.Point, members []Member) []Stop {
	if len(members) == 0 {
		return nil
	}

	pickedUp := make([]bool, len(members))
	dropped := make([]bool, len(members))
	remaining := len(members)

	route := make([]Stop, 0, 2*len(members))
	current := start

	for remaining > 0 {
		best := -1
		var bestKind StopKind
		bestDist := math.Inf(1)

		for _, c := range candidates(pickedUp, dropped) {
			p := members[c.member].Pickup
			if c.kind == StopDrop {
				p = members[c.member].Drop
			}
			if d := geo.Distance(current, p); d < bestDist {
				best, bestKind, bestDist = c.member, c.kind, d
			}
		}

		if best < 0 {
			return route
		}

		m := members[best]
		stop := Stop{RequestID: m.RequestID, Kind: bestKind, Point: m.Pickup}
		if bestKind == StopPickup {
			pickedUp[best] = true
		} else {
			stop.Point = m.Drop
			dropped[best] = true
			remaining--
		}

		route = append(route, stop)
		current = stop.Point
	}

	return route
}

func candidates(pickedUp, dropped []bool) []candidate {
	out := make([]candidate, 0, len(pickedUp))
	for i := range pickedUp {
		switch {
		case !pickedUp[i]:
			out = append(out, candidate{member: i, kind: StopPickup})
		case !dropped[i]:
			out = append(out, candidate{member: i, kind: StopDrop})
		}
	}
	return out
}

// Schedule estimates an arrival time for every stop, travelling from start at
// kmPerMinute along straight-line legs.
func Schedule(start geo.Point, stops []Stop, departAt time.Time, kmPerMinute float64) []time.Time {
	etas := make([]time.Time, len(stops))
	if kmPerMinute <= 0 {
		for i := range etas {
			etas[i] = departAt
		}
		return etas
	}

	var travelled float64
	current := start
	for i, stop := range stops {
		travelled += geo.Distance(current, stop.Point)
		minutes := travelled / kmPerMinute
		etas[i] = departAt.Add(time.Duration(minutes * float64(time.Minute)))
		current = stop.Point
	}
	return etas
}

// RideDistance returns the on-route distance in kilometres between the pickup
// and the drop of requestID. ok is false unless both stops are present with
// the pickup first.
func RideDistance(stops []Stop, requestID string) (km float64, ok bool) {
	pickupAt := -1
	for i, stop := range stops {
		if stop.RequestID != requestID {
			continue
		}
		if stop.Kind == StopPickup {
			pickupAt = i
			continue
		}
		if pickupAt < 0 {
			return 0, false
		}
		for j := pickupAt + 1; j <= i; j++ {
			km += geo.Distance(stops[j-1].Point, stops[j].Point)
		}
		return km, true
	}
	return 0, false
}

// Length returns the total straight-line length of the route from start.
func Length(start geo.Point, stops []Stop) float64 {
	var total float64
	current := start
	for _, stop := range stops {
		total += geo.Distance(current, stop.Point)
		current = stop.Point
	}
	return total
}
