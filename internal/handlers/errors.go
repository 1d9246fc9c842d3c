package handlers

import (
	"errors"
	"net/http"

	"latemate_console/internal/models"
	"latemate_console/internal/service"
	"latemate_console/internal/transport"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidScenario),
		errors.Is(err, models.ErrInvalidReport),
		errors.Is(err, service.ErrInvalidBatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownPage):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSweepRunning),
		errors.Is(err, service.ErrNothingToArchive):
		return http.StatusConflict
	case errors.Is(err, transport.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err under logKey and writes it with its mapped status.
// Internal errors are not echoed to the client.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	fields := append([]interface{}{"err", err, "status", code}, kv...)
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		h.log.Errorw(logKey, fields...)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	h.log.Infow(logKey, fields...)
	c.JSON(code, gin.H{"error": err.Error()})
}
