// Package pricing computes per-rider fares for pooled trips.
package pricing

import "math"

// Config holds the fare parameters.
type Config struct {
	BaseFare              float64
	RatePerKm             float64
	DetourPenaltyFraction float64
}

// DefaultConfig returns the standard fare parameters.
func DefaultConfig() Config {
	return Config{
		BaseFare:              50.0,
		RatePerKm:             12.0,
		DetourPenaltyFraction: 0.8,
	}
}

// QuoteInput describes a single rider's trip for pricing.
type QuoteInput struct {
	DistanceKm       float64 `validate:"gte=0"`
	Passengers       int     `validate:"gte=1"`
	DemandMultiplier float64 `validate:"gte=0"`
	DetourKm         float64 `validate:"gte=0"`
}

// Quote is the priced breakdown for one rider. All amounts are rounded to
// two decimal places.
type Quote struct {
	FinalPrice          float64 `json:"final_price"`
	BaseIndividualPrice float64 `json:"base_individual_price"`
	PoolingDiscount     float64 `json:"pooling_discount"`
	DetourCompensation  float64 `json:"detour_compensation"`
	SurgeAmount         float64 `json:"surge_amount"`
}

// Engine is a stateless fare calculator.
type Engine struct {
	cfg Config
}

// NewEngine creates a new Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's fare parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// Quote prices a rider's share of a pooled trip.
func (e *Engine) Quote(in QuoteInput) Quote {
	individual := e.cfg.BaseFare + in.DistanceKm*e.cfg.RatePerKm
	surge := individual * (in.DemandMultiplier - 1)
	subtotal := individual + surge

	discount := subtotal * DiscountRate(in.Passengers)
	compensation := in.DetourKm * e.cfg.RatePerKm * e.cfg.DetourPenaltyFraction

	final := math.Max(e.cfg.BaseFare, subtotal-discount-compensation)

	return Quote{
		FinalPrice:          round2(final),
		BaseIndividualPrice: round2(individual),
		PoolingDiscount:     round2(discount),
		DetourCompensation:  round2(compensation),
		SurgeAmount:         round2(surge),
	}
}

// DiscountRate returns the pooling discount for the given occupancy.
func DiscountRate(passengers int) float64 {
	switch {
	case passengers >= 3:
		return 0.40
	case passengers == 2:
		return 0.25
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
