package handlers

import (
	"net/http"

	"latemate_console/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Background light level
// @Tags         monitor
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "last, window"
// @Router       /api/v1/monitor [get]
// @Security     BearerAuth
func (h *Handler) getMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"last":   h.services.LastLightLevel(),
		"window": h.services.LightWindow(),
	})
}

// @Summary      Send one HID report
// @Tags         remote
// @Accept       json
// @Produce      json
// @Param        body  body   models.InputReport  true  "Report"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/remote/hid [post]
// @Security     BearerAuth
func (h *Handler) sendHID(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := models.ParseInputReport(raw)
	if err != nil {
		h.respondError(c, "remote_bad_report", err)
		return
	}
	if err := h.services.SendReport(c.Request.Context(), rep); err != nil {
		h.respondError(c, "remote_send_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// @Summary      Device and USB status
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.StatusView
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.StatusView())
}

// @Summary      Ask the device for its status
// @Tags         status
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/status/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshStatus(c *gin.Context) {
	if err := h.services.RefreshStatus(c.Request.Context()); err != nil {
		h.respondError(c, "status_refresh_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "requested"})
}

// @Summary      Switch console page
// @Tags         pages
// @Produce      json
// @Param        slug  path  string  true  "Page"  Enums(status,monitor,remote,measure,calibration)
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/pages/{slug} [post]
// @Security     BearerAuth
func (h *Handler) showPage(c *gin.Context) {
	if err := h.services.ShowPage(c.Request.Context(), c.Param("slug")); err != nil {
		h.respondError(c, "page_switch_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": h.services.CurrentPage()})
}
