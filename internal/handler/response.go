package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridepool/internal/repository"
	"ridepool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PointBody is a coordinate pair in request and response bodies.
type PointBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(code, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRiderNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRequestID),
		errors.Is(err, service.ErrInvalidPoolID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropLocation),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidSeats),
		errors.Is(err, service.ErrInvalidLuggage),
		errors.Is(err, service.ErrInvalidDetourTolerance),
		errors.Is(err, service.ErrInvalidVehicle),
		errors.Is(err, service.ErrInvalidRider),
		errors.Is(err, service.ErrInvalidQuote):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, repository.ErrDuplicatePhone),
		errors.Is(err, repository.ErrAlreadyMember),
		errors.Is(err, service.ErrRequestAlreadyCancelled),
		errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrPoolNotActive),
		errors.Is(err, service.ErrVehicleBusy):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
