package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Start the calibration sweep
// @Tags         calibration
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/calibration/find [post]
// @Security     BearerAuth
func (h *Handler) findSensor(c *gin.Context) {
	if err := h.services.Find(c.Request.Context()); err != nil {
		h.respondError(c, "calibration_find_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sweeping"})
}

// @Summary      Cancel the calibration sweep
// @Tags         calibration
// @Produce      json
// @Success      200  {object}  map[string]bool  "cancelled"
// @Router       /api/v1/calibration/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelSweep(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.services.CancelSweep()})
}

// @Summary      Calibration phase and last result
// @Tags         calibration
// @Produce      json
// @Success      200  {object}  models.CalibrationView
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/calibration [get]
// @Security     BearerAuth
func (h *Handler) getCalibration(c *gin.Context) {
	v, err := h.services.CalibrationView(c.Request.Context())
	if err != nil {
		h.respondError(c, "calibration_view_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}
