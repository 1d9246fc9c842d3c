package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"latemate_console/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	defaultBatchCount    = 50
	defaultBatchInterval = 500 * time.Millisecond
)

// BatchRequest is the payload of POST /api/v1/measure/batch.
type BatchRequest struct {
	// Scenario in the same shape POST /api/v1/measure accepts
	Scenario json.RawMessage `json:"scenario" swaggertype:"object"`
	// Number of dispatches; defaults to the configured batch count
	Count int `json:"count,omitempty" example:"50"`
	// Pause between dispatches in milliseconds; omitted means the configured interval, 0 means back to back
	IntervalMS *int `json:"interval_ms,omitempty" example:"500"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Dispatch a scenario
// @Description  Sends one scenario unless a dispatch or batch is already in flight; then "dispatched" is false.
// @Tags         measure
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool  "dispatched"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/measure [post]
// @Security     BearerAuth
func (h *Handler) measure(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, err := models.ParseScenario(raw)
	if err != nil {
		h.respondError(c, "measure_bad_scenario", err)
		return
	}
	ok, err := h.services.Dispatch(c.Request.Context(), &sc)
	if err != nil {
		h.respondError(c, "measure_dispatch_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatched": ok})
}

// @Summary      Preset scenarios
// @Tags         measure
// @Produce      json
// @Success      200  {array}  service.Preset
// @Router       /api/v1/measure/presets [get]
// @Security     BearerAuth
func (h *Handler) presets(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Presets())
}

// @Summary      Latency statistics since the scenario last changed
// @Tags         measure
// @Produce      json
// @Success      200  {object}  models.LatencyStats
// @Router       /api/v1/measure/stats [get]
// @Security     BearerAuth
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Stats())
}

// @Summary      Archive the scatter history
// @Description  Writes the change-point history as PNG and clears the charts.
// @Tags         measure
// @Produce      json
// @Success      200  {object}  service.ArchiveResult
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/measure/archive [post]
// @Security     BearerAuth
func (h *Handler) archive(c *gin.Context) {
	res, err := h.services.Archive(c.Request.Context())
	if err != nil {
		h.respondError(c, "measure_archive_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Start a repeat batch
// @Tags         measure
// @Accept       json
// @Produce      json
// @Param        body  body   BatchRequest  true  "Batch payload"
// @Success      200   {object}  map[string]interface{}  "started, batch"
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/measure/batch [post]
// @Security     BearerAuth
func (h *Handler) startBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	sc, err := models.ParseScenario(req.Scenario)
	if err != nil {
		h.respondError(c, "batch_bad_scenario", err)
		return
	}

	count := req.Count
	if count == 0 {
		count = h.batch.Count
	}
	interval := h.batch.Interval
	if req.IntervalMS != nil {
		interval = time.Duration(*req.IntervalMS) * time.Millisecond
	}

	ok, err := h.services.StartBatch(c.Request.Context(), &sc, count, interval)
	if err != nil {
		h.respondError(c, "batch_start_failed", err, "count", count, "interval", interval)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": ok, "batch": h.services.BatchState()})
}

// @Summary      Cancel the running batch
// @Description  No further dispatches are scheduled once the pending wait elapses.
// @Tags         measure
// @Produce      json
// @Success      200  {object}  map[string]bool  "cancelled"
// @Router       /api/v1/measure/batch/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelBatch(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.services.CancelBatch()})
}

// @Summary      Running batch
// @Tags         measure
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "running, batch"
// @Router       /api/v1/measure/batch [get]
// @Security     BearerAuth
func (h *Handler) getBatch(c *gin.Context) {
	st := h.services.BatchState()
	c.JSON(http.StatusOK, gin.H{"running": st != nil, "batch": st, "in_flight": h.services.InFlight()})
}
