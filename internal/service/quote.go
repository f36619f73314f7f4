package service

import (
	"ridepool/internal/observability"
	"ridepool/internal/pricing"
)

// QuoteService prices trips that are not tied to a stored request.
type QuoteService struct {
	engine *pricing.Engine
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(engine *pricing.Engine) *QuoteService {
	return &QuoteService{engine: engine}
}

// Quote validates in and returns its fare breakdown.
func (s *QuoteService) Quote(in pricing.QuoteInput) (pricing.Quote, error) {
	if err := validateInput(in, nil, ErrInvalidQuote); err != nil {
		return pricing.Quote{}, err
	}
	observability.QuotesTotal.Inc()
	return s.engine.Quote(in), nil
}
