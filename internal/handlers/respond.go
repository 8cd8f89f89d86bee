package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/services"
)

// statusForKind maps engine error kinds to HTTP status codes. Unavailable
// capacity is a conflict, not a client mistake: the request was well formed
// and simply lost to other bookings.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindInvalidSelection, services.KindPassengerRequired, services.KindAmountMismatch:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindResourceUnavailable:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// respondError writes the standard error body for a service failure.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := services.KindOf(err)
	message := "The booking engine is temporarily unavailable"

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	} else {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Unclassified error")
	}

	c.JSON(statusForKind(kind), gin.H{
		"error":   string(kind),
		"message": message,
		"code":    strings.ToUpper(string(kind)),
	})
}
