package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"latemate_console/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      Measurement history
// @Description  Filter by time (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD') and scenario key. A date-only 'to' covers that whole day.
// @Tags         history
// @Produce      json
// @Param        from      query   string  false  "Start of range"  example(2025-08-01)
// @Param        to        query   string  false  "End of range; date-only means end of day"  example(2025-08-31)
// @Param        scenario  query   string  false  "Scenario key"
// @Success      200   {object}  map[string]interface{}  "count, records"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/history [get]
// @Security     BearerAuth
func (h *Handler) getHistory(c *gin.Context) {
	var (
		from, to time.Time
		err      error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
		return
	}

	records, err := h.services.History.List(c.Request.Context(), service.HistoryFilter{
		From:        from,
		To:          to,
		ScenarioKey: c.Query("scenario"),
	})
	if err != nil {
		h.respondError(c, "history_list_failed", err, "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
