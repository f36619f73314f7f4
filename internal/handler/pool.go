package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/domain"
	"ridepool/internal/service"
)

// PoolHandler handles HTTP requests for pools and matching passes.
type PoolHandler struct {
	routeService *service.RouteService
	worker       *service.Worker
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(routeService *service.RouteService, worker *service.Worker) *PoolHandler {
	return &PoolHandler{
		routeService: routeService,
		worker:       worker,
	}
}

// PoolMemberResponse is one rider of a pool.
type PoolMemberResponse struct {
	RequestID    string    `json:"request_id"`
	RiderID      string    `json:"rider_id"`
	Seats        int       `json:"seats"`
	Luggage      int       `json:"luggage"`
	Pickup       PointBody `json:"pickup"`
	Drop         PointBody `json:"drop"`
	Sequence     int       `json:"sequence"`
	DropSequence int       `json:"drop_sequence,omitempty"`
	PickupETA    string    `json:"pickup_eta,omitempty"`
	DropETA      string    `json:"drop_eta,omitempty"`
}

// PoolResponse is the HTTP response for pool data.
type PoolResponse struct {
	ID        string               `json:"id"`
	VehicleID string               `json:"vehicle_id"`
	Status    string               `json:"status"`
	Vehicle   *VehicleResponse     `json:"vehicle,omitempty"`
	Members   []PoolMemberResponse `json:"members"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

// GetPool handles GET /v1/pools/:id
func (h *PoolHandler) GetPool(c *gin.Context) {
	view, err := h.routeService.GetPool(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := toPoolResponse(view.Pool)
	if view.Vehicle != nil {
		v := toVehicleResponse(view.Vehicle)
		response.Vehicle = &v
	}
	for _, m := range view.Members {
		response.Members = append(response.Members, toPoolMemberResponse(m))
	}

	respondJSON(c, http.StatusOK, response)
}

// CompletePool handles POST /v1/pools/:id/complete
func (h *PoolHandler) CompletePool(c *gin.Context) {
	pool, err := h.routeService.CompletePool(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPoolResponse(pool))
}

// RunMatching handles POST /v1/matching/run
func (h *PoolHandler) RunMatching(c *gin.Context) {
	result, err := h.worker.RunPass(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

func toPoolResponse(p *domain.Pool) PoolResponse {
	return PoolResponse{
		ID:        p.ID,
		VehicleID: p.VehicleID,
		Status:    string(p.Status),
		Members:   []PoolMemberResponse{},
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toPoolMemberResponse(m *domain.PoolMember) PoolMemberResponse {
	return PoolMemberResponse{
		RequestID:    m.Request.ID,
		RiderID:      m.Request.RiderID,
		Seats:        m.Request.Seats,
		Luggage:      m.Request.Luggage,
		Pickup:       PointBody{Lat: m.Request.Pickup.Lat, Lng: m.Request.Pickup.Lng},
		Drop:         PointBody{Lat: m.Request.Drop.Lat, Lng: m.Request.Drop.Lng},
		Sequence:     m.Membership.Sequence,
		DropSequence: m.Membership.DropSequence,
		PickupETA:    formatTime(m.Membership.PickupETA),
		DropETA:      formatTime(m.Membership.DropETA),
	}
}
