// Package handlers is the HTTP adapter: operator auth, zone state, manual
// overrides, the event log, audit verification and the live stream.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"zone_controller/internal/logger"
	"zone_controller/internal/service"
)

type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler
}

// NewHandler wires the adapter. A nil log discards output; a nil metrics
// handler leaves /metrics unregistered.
func NewHandler(services *service.Service, log *logger.Logger, metrics http.Handler) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log, metrics: metrics}
}

// InitRoutes builds the gin engine with every route registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/healthz", h.healthz)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}

	api := router.Group("/api/v1", h.userIdMiddleware)
	{
		api.GET("/zone/state", h.getState)

		ov := api.Group("/override")
		ov.GET("", h.getOverride)
		// Body example: {"mode":"HEAT_ON","duration_minutes":30}
		ov.POST("", h.applyOverride)
		ov.DELETE("", h.cancelOverride)

		api.GET("/logs/", h.getLogs)
		api.GET("/audit/verify", h.verifyAudit)
	}

	router.GET("/ws", h.wsConnect)
	return router
}
