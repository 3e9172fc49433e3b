package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter sets up the Gin router. HTTP metrics are registered on registry and served from /metrics.
func SetupRouter(authService *service.AuthService, logger *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	metrics := NewMetrics(registry)

	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger.Named("http")), metrics.Middleware())

	handlers := NewVerificationHandlers(authService, logger.Named("http"))

	verification := router.Group("/api/v1/verification")
	{
		verification.POST("/request-message", handlers.RequestMessage)
		verification.POST("/verify-message", handlers.VerifyMessage)
		verification.POST("/retrieve", handlers.Retrieve)
	}

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return router
}
