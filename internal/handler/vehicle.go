package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/domain"
	"ridepool/internal/geo"
	"ridepool/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicleService *service.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleService *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// RegisterVehicleRequest is the HTTP request body for vehicle registration.
type RegisterVehicleRequest struct {
	DriverName      string    `json:"driver_name"`
	TotalSeats      int       `json:"total_seats"`
	LuggageCapacity int       `json:"luggage_capacity"`
	Location        PointBody `json:"location"`
}

// UpdateLocationRequest is the HTTP request body for updating vehicle location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VehicleResponse is the HTTP response for vehicle data.
type VehicleResponse struct {
	ID              string    `json:"id"`
	DriverName      string    `json:"driver_name"`
	TotalSeats      int       `json:"total_seats"`
	LuggageCapacity int       `json:"luggage_capacity"`
	Location        PointBody `json:"location"`
	Status          string    `json:"status"`
}

// Register handles POST /v1/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	var req RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	vehicle, err := h.vehicleService.RegisterVehicle(c.Request.Context(), service.RegisterVehicleInput{
		DriverName:      req.DriverName,
		TotalSeats:      req.TotalSeats,
		LuggageCapacity: req.LuggageCapacity,
		Location:        geo.Point{Lat: req.Location.Lat, Lng: req.Location.Lng},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toVehicleResponse(vehicle))
}

// GetVehicle handles GET /v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// GetAll handles GET /v1/vehicles
func (h *VehicleHandler) GetAll(c *gin.Context) {
	vehicles, err := h.vehicleService.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		response = append(response, toVehicleResponse(v))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateLocation handles POST /v1/vehicles/:id/location
func (h *VehicleHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	vehicle, err := h.vehicleService.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
		VehicleID: c.Param("id"),
		Location:  geo.Point{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// SetOffline handles POST /v1/vehicles/:id/offline
func (h *VehicleHandler) SetOffline(c *gin.Context) {
	vehicle, err := h.vehicleService.SetVehicleOffline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

func toVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:              v.ID,
		DriverName:      v.DriverName,
		TotalSeats:      v.TotalSeats,
		LuggageCapacity: v.LuggageCapacity,
		Location:        PointBody{Lat: v.Location.Lat, Lng: v.Location.Lng},
		Status:          string(v.Status),
	}
}
