package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/services"
)

// SearchHandler handles HTTP requests for catalog and availability search
type SearchHandler struct {
	service *services.SearchService
	logger  *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// ListCities handles GET /api/v1/cities
// @Summary List bookable cities
// @Tags Search
// @Produce json
// @Success 200 {array} models.City
// @Router /api/v1/cities [get]
func (h *SearchHandler) ListCities(c *gin.Context) {
	cities, err := h.service.ListCities(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities, "count": len(cities)})
}

// ListAirports handles GET /api/v1/airports
// @Summary List airports, optionally filtered by city
// @Tags Search
// @Produce json
// @Param city_id query string false "City ID"
// @Success 200 {array} models.Airport
// @Router /api/v1/airports [get]
func (h *SearchHandler) ListAirports(c *gin.Context) {
	airports, err := h.service.ListAirports(c.Request.Context(), c.Query("city_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"airports": airports, "count": len(airports)})
}

// SearchFlights handles GET /api/v1/search/flights
// @Summary Search flights with live seat availability
// @Tags Search
// @Produce json
// @Param origin query string false "Origin airport code"
// @Param destination query string false "Destination airport code"
// @Param date query string false "Departure date (YYYY-MM-DD)"
// @Param passengers query int false "Party size"
// @Success 200 {array} models.FlightWithAvailability
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Router /api/v1/search/flights [get]
func (h *SearchHandler) SearchFlights(c *gin.Context) {
	passengers, _ := strconv.Atoi(c.DefaultQuery("passengers", "1"))

	flights, err := h.service.SearchFlights(
		c.Request.Context(),
		c.Query("origin"),
		c.Query("destination"),
		c.Query("date"),
		passengers,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"origin":      c.Query("origin"),
		"destination": c.Query("destination"),
		"results":     len(flights),
	}).Info("Flight search completed")

	c.JSON(http.StatusOK, gin.H{"flights": flights, "count": len(flights)})
}

// SearchRooms handles GET /api/v1/search/hotels
// @Summary Search hotel rooms with live availability over a stay
// @Tags Search
// @Produce json
// @Param city_id query string false "City ID"
// @Param check_in query string true "Check-in date (YYYY-MM-DD)"
// @Param check_out query string true "Check-out date (YYYY-MM-DD)"
// @Param guests query int false "Party size"
// @Success 200 {array} models.RoomWithAvailability
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Router /api/v1/search/hotels [get]
func (h *SearchHandler) SearchRooms(c *gin.Context) {
	guests, _ := strconv.Atoi(c.DefaultQuery("guests", "1"))

	rooms, err := h.service.SearchRooms(
		c.Request.Context(),
		c.Query("city_id"),
		c.Query("check_in"),
		c.Query("check_out"),
		guests,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
}

// SearchCars handles GET /api/v1/search/cars
// @Summary Search rental cars with live availability over a span
// @Tags Search
// @Produce json
// @Param city_id query string false "City ID"
// @Param pickup_time query string true "Pickup time (RFC3339)"
// @Param dropoff_time query string true "Dropoff time (RFC3339)"
// @Success 200 {array} models.CarWithAvailability
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Router /api/v1/search/cars [get]
func (h *SearchHandler) SearchCars(c *gin.Context) {
	cars, err := h.service.SearchCars(
		c.Request.Context(),
		c.Query("city_id"),
		c.Query("pickup_time"),
		c.Query("dropoff_time"),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars, "count": len(cars)})
}
