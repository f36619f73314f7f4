package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/service"
)

const (
	defaultSeats                  = 1
	defaultLuggage                = 1
	defaultDetourToleranceMinutes = 15
	defaultDemandMultiplier       = 1.0
)

// RequestHandler handles HTTP requests for ride requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateRequestBody is the HTTP request body for creating a ride request.
// Omitted seats, luggage and detour tolerance take their defaults.
type CreateRequestBody struct {
	RiderID                string    `json:"rider_id"`
	Pickup                 PointBody `json:"pickup"`
	Drop                   PointBody `json:"drop"`
	Seats                  *int      `json:"seats,omitempty"`
	Luggage                *int      `json:"luggage,omitempty"`
	DetourToleranceMinutes *int      `json:"detour_tolerance_minutes,omitempty"`
}

// RequestResponse is the HTTP response for ride request data.
type RequestResponse struct {
	ID                     string    `json:"id"`
	RiderID                string    `json:"rider_id"`
	Pickup                 PointBody `json:"pickup"`
	Drop                   PointBody `json:"drop"`
	Seats                  int       `json:"seats"`
	Luggage                int       `json:"luggage"`
	DetourToleranceMinutes int       `json:"detour_tolerance_minutes"`
	Status                 string    `json:"status"`
	CreatedAt              string    `json:"created_at"`
	CancelledAt            string    `json:"cancelled_at,omitempty"`
}

// CancelResponse is the HTTP response for cancelling a ride request.
type CancelResponse struct {
	Request       RequestResponse `json:"request"`
	AffectedPools []string        `json:"affected_pools"`
}

// FareResponse is a fare breakdown.
type FareResponse struct {
	FinalPrice          float64 `json:"final_price"`
	BaseIndividualPrice float64 `json:"base_individual_price"`
	PoolingDiscount     float64 `json:"pooling_discount"`
	DetourCompensation  float64 `json:"detour_compensation"`
	SurgeAmount         float64 `json:"surge_amount"`
}

// StatusResponse is the HTTP response for a request's pool assignment.
type StatusResponse struct {
	RequestID      string        `json:"request_id"`
	Status         string        `json:"status"`
	Assigned       bool          `json:"assigned"`
	PoolID         string        `json:"pool_id,omitempty"`
	VehicleID      string        `json:"vehicle_id,omitempty"`
	PickupETA      string        `json:"pickup_eta,omitempty"`
	DropETA        string        `json:"drop_eta,omitempty"`
	PassengerCount int           `json:"passenger_count,omitempty"`
	Fare           *FareResponse `json:"fare,omitempty"`
}

// CreateRequest handles POST /v1/requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.CreateRequest(c.Request.Context(), service.CreateRequestInput{
		RiderID:                body.RiderID,
		Pickup:                 geo.Point{Lat: body.Pickup.Lat, Lng: body.Pickup.Lng},
		Drop:                   geo.Point{Lat: body.Drop.Lat, Lng: body.Drop.Lng},
		Seats:                  intOr(body.Seats, defaultSeats),
		Luggage:                intOr(body.Luggage, defaultLuggage),
		DetourToleranceMinutes: intOr(body.DetourToleranceMinutes, defaultDetourToleranceMinutes),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRequestResponse(req))
}

// GetRequest handles GET /v1/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}

// GetAll handles GET /v1/requests
func (h *RequestHandler) GetAll(c *gin.Context) {
	reqs, err := h.requestService.ListRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		response = append(response, toRequestResponse(r))
	}

	c.JSON(http.StatusOK, response)
}

// CancelRequest handles POST /v1/requests/:id/cancel
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	result, err := h.requestService.CancelRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	pools := result.AffectedPools
	if pools == nil {
		pools = []string{}
	}

	respondJSON(c, http.StatusOK, CancelResponse{
		Request:       toRequestResponse(result.Request),
		AffectedPools: pools,
	})
}

// GetStatus handles GET /v1/requests/:id/status
func (h *RequestHandler) GetStatus(c *gin.Context) {
	view, err := h.requestService.QuoteStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := StatusResponse{
		RequestID:      view.RequestID,
		Status:         string(view.Status),
		Assigned:       view.Assigned,
		PoolID:         view.PoolID,
		VehicleID:      view.VehicleID,
		PickupETA:      formatTime(view.PickupETA),
		DropETA:        formatTime(view.DropETA),
		PassengerCount: view.PassengerCount,
	}
	if view.Fare != nil {
		response.Fare = &FareResponse{
			FinalPrice:          view.Fare.FinalPrice,
			BaseIndividualPrice: view.Fare.BaseIndividualPrice,
			PoolingDiscount:     view.Fare.PoolingDiscount,
			DetourCompensation:  view.Fare.DetourCompensation,
			SurgeAmount:         view.Fare.SurgeAmount,
		}
	}

	respondJSON(c, http.StatusOK, response)
}

func toRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:                     r.ID,
		RiderID:                r.RiderID,
		Pickup:                 PointBody{Lat: r.Pickup.Lat, Lng: r.Pickup.Lng},
		Drop:                   PointBody{Lat: r.Drop.Lat, Lng: r.Drop.Lng},
		Seats:                  r.Seats,
		Luggage:                r.Luggage,
		DetourToleranceMinutes: r.DetourToleranceMinutes,
		Status:                 string(r.Status),
		CreatedAt:              formatTime(r.CreatedAt),
		CancelledAt:            formatTime(r.CancelledAt),
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
