package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldshow/bandcatalog/internal/middleware"
)

// NewRouter assembles the admin API routes. Health and metrics are open;
// everything under /api/v1 requires an API key.
func NewRouter(admin *AdminHandler, health *HealthHandler, apiKeys []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/health", health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", middleware.APIKeyAuth(apiKeys))
	{
		api.POST("/sync", admin.TriggerSync)
		api.GET("/sync/jobs", admin.ListJobs)
		api.GET("/sync/jobs/:id", admin.GetJob)
		api.POST("/maintenance/cleanup", admin.TriggerCleanup)
		api.GET("/quota", admin.QuotaStatus)
	}

	return router
}
