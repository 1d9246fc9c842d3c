package handlers

import (
	"time"

	"latemate_console/internal/display"
	"latemate_console/internal/logger"
	"latemate_console/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Stream is the browser-facing side of the display hub.
type Stream interface {
	Subscribe(buf int) (<-chan display.Envelope, func())
	Snapshot() []display.Envelope
}

// BatchDefaults fill in batch requests that omit count or interval.
type BatchDefaults struct {
	Count    int
	Interval time.Duration
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	stream   Stream
	batch    BatchDefaults
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, stream Stream, batch BatchDefaults, log *logger.Logger) *Handler {
	if batch.Count <= 0 {
		batch.Count = defaultBatchCount
	}
	if batch.Interval <= 0 {
		batch.Interval = defaultBatchInterval
	}
	return &Handler{services: services, stream: stream, batch: batch, log: logger.OrNop(log).Named("http")}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// display stream for the operator's browser
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdentity)
	{
		h.registerMeasureRoutes(api)
		h.registerCalibrationRoutes(api)
		h.registerConsoleRoutes(api)
		api.GET("/history", h.getHistory)
	}
}

func (h *Handler) registerMeasureRoutes(api *gin.RouterGroup) {
	measure := api.Group("/measure")
	{
		// Body: {"type":"measure","duration_ms":300,"before":[],"start":{...},"followup":null,"after":[]}
		measure.POST("", h.measure)
		measure.GET("/presets", h.presets)
		measure.GET("/stats", h.stats)
		measure.POST("/archive", h.archive)

		// Body: {"scenario":{...},"count":50,"interval_ms":500}
		measure.POST("/batch", h.startBatch)
		measure.POST("/batch/cancel", h.cancelBatch)
		measure.GET("/batch", h.getBatch)
	}
}

func (h *Handler) registerCalibrationRoutes(api *gin.RouterGroup) {
	cal := api.Group("/calibration")
	{
		cal.POST("/find", h.findSensor)
		cal.POST("/cancel", h.cancelSweep)
		cal.GET("", h.getCalibration)
	}
}

func (h *Handler) registerConsoleRoutes(api *gin.RouterGroup) {
	api.GET("/monitor", h.getMonitor)
	api.POST("/remote/hid", h.sendHID)
	api.GET("/status", h.getStatus)
	api.POST("/status/refresh", h.refreshStatus)
	api.POST("/pages/:slug", h.showPage)
}
