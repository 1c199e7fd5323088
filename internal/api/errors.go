package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"atlab/internal/booking"
	"atlab/internal/metrics"
	"atlab/internal/store"
)

// status maps a booking error to an HTTP status and a metrics reason.
func status(err error) (int, string) {
	var se *booking.StoreError
	switch {
	case errors.Is(err, booking.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, booking.ErrFormat):
		return http.StatusBadRequest, "format"
	case errors.Is(err, booking.ErrAlreadyBooked):
		return http.StatusConflict, "already_booked"
	case errors.Is(err, booking.ErrSlotTaken):
		return http.StatusConflict, "slot_taken"
	case errors.Is(err, booking.ErrNoConsecutiveSlot):
		return http.StatusConflict, "no_consecutive_slot"
	case errors.Is(err, booking.ErrSameDayLock):
		return http.StatusUnprocessableEntity, "same_day_lock"
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrLockTimeout):
		return http.StatusServiceUnavailable, "busy"
	case errors.As(err, &se):
		return http.StatusServiceUnavailable, "store"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(c *gin.Context, err error) {
	code, reason := status(err)
	metrics.Rejections.WithLabelValues(reason).Inc()

	msg := err.Error()
	switch code {
	case http.StatusServiceUnavailable:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "the booking table is temporarily unavailable, please try again"
	case http.StatusInternalServerError:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	c.JSON(code, gin.H{"error": msg, "reason": reason})
}
