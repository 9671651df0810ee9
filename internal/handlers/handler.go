package handlers

import (
	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/logger"
	"energy_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services, the chart frame hub and logging.
type Handler struct {
	services *service.Service
	frames   *chart.Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, frames *chart.Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, frames: frames, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// Chart frame stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsFrames)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerEnergyRoutes(api)
		h.registerNotificationRoutes(api)
	}
}

func (h *Handler) registerEnergyRoutes(api *gin.RouterGroup) {
	energy := api.Group("/energy")
	{
		energy.GET("/summary", h.getSummary)
		energy.GET("/distribution", h.getDistribution)
		energy.GET("/years", h.getYears)
		// Body example: {"mode":"day","day":"2026-08-29"}
		energy.POST("/mode", h.setMode)
		energy.POST("/drilldown", h.openDrillDown)
		energy.DELETE("/drilldown", h.closeDrillDown)
	}
}

func (h *Handler) registerNotificationRoutes(api *gin.RouterGroup) {
	notices := api.Group("/notifications")
	{
		notices.GET("/", h.getNotifications)
	}
}
