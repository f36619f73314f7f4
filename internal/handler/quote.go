package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/pricing"
	"ridepool/internal/service"
)

// QuoteHandler handles ad-hoc fare quotes.
type QuoteHandler struct {
	quoteService *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// QuoteRequest is the HTTP request body for a fare quote.
type QuoteRequest struct {
	DistanceKm       float64  `json:"distance_km"`
	Passengers       int      `json:"passengers"`
	DemandMultiplier *float64 `json:"demand_multiplier,omitempty"`
	DetourKm         float64  `json:"detour_km"`
}

// Quote handles POST /v1/quotes
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	quote, err := h.quoteService.Quote(pricing.QuoteInput{
		DistanceKm:       req.DistanceKm,
		Passengers:       req.Passengers,
		DemandMultiplier: floatOr(req.DemandMultiplier, defaultDemandMultiplier),
		DetourKm:         req.DetourKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, FareResponse{
		FinalPrice:          quote.FinalPrice,
		BaseIndividualPrice: quote.BaseIndividualPrice,
		PoolingDiscount:     quote.PoolingDiscount,
		DetourCompensation:  quote.DetourCompensation,
		SurgeAmount:         quote.SurgeAmount,
	})
}
