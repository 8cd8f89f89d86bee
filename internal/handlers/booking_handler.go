package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/middleware"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/services"
)

// BookingHandler handles HTTP requests for the booking lifecycle
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	logger       *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(orchestrator *services.BookingOrchestratorService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// requireUser extracts the authenticated user set by AuthMiddleware.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User context not found",
			"code":    "MISSING_USER_CONTEXT",
		})
	}
	return userID, ok
}

// CreateBooking handles POST /api/v1/bookings
// @Summary Create a pending booking from flight, hotel and car selections
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Selections"
// @Success 201 {object} models.BookingView
// @Failure 400 {object} map[string]interface{} "Invalid selection"
// @Failure 409 {object} map[string]interface{} "Resource unavailable"
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid create booking request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	view, err := h.orchestrator.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// ListBookings handles GET /api/v1/bookings
// @Summary List the caller's bookings, newest first
// @Tags Bookings
// @Produce json
// @Success 200 {array} models.BookingView
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	views, err := h.orchestrator.ListBookings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": views, "count": len(views)})
}

// GetBooking handles GET /api/v1/bookings/:id
// @Summary Fetch one booking with its line items, passengers and payment
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingView
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.orchestrator.GetBooking(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ProcessPayment handles POST /api/v1/bookings/:id/payment
// @Summary Pay for a pending booking, confirming it
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.ProcessPaymentRequest true "Payment details"
// @Success 200 {object} models.BookingView
// @Failure 400 {object} map[string]interface{} "Amount mismatch"
// @Failure 409 {object} map[string]interface{} "Wrong state or capacity lost"
// @Router /api/v1/bookings/{id}/payment [post]
func (h *BookingHandler) ProcessPayment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid payment request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	view, err := h.orchestrator.ProcessPayment(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CancelBooking handles DELETE /api/v1/bookings/:id
// @Summary Cancel a pending or confirmed booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingView
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Already cancelled"
// @Router /api/v1/bookings/{id} [delete]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.orchestrator.CancelBooking(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdatePassenger handles PUT /api/v1/passengers/:id
// @Summary Update passenger details on an owned booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Passenger ID"
// @Param request body models.UpdatePassengerRequest true "Fields to change"
// @Success 200 {object} models.Passenger
// @Failure 404 {object} map[string]interface{} "Passenger not found"
// @Router /api/v1/passengers/{id} [put]
func (h *BookingHandler) UpdatePassenger(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpdatePassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid passenger update request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	passenger, err := h.orchestrator.UpdatePassenger(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, passenger)
}
