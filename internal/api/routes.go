package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, tokens TokenValidator, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))
	router.Use(Metrics())

	// Health check
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		github := v1.Group("/github", Auth(tokens))
		{
			github.POST("/analyze", handler.AnalyzeRepository)
			github.POST("/analyze/refresh", handler.RefreshRepository)
			github.GET("/repos", handler.ListRepositories)

			github.POST("/skills", handler.EvaluateSkills)
			github.GET("/skills/all", handler.ListSkills)

			github.GET("/projects", handler.ListProjects)
			github.GET("/projects/:projectId", handler.GetProject)
		}
	}

	return router
}
