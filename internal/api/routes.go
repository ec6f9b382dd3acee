package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(RequestID())
	router.Use(gin.Logger())

	router.GET("/", handler.Index)
	router.GET("/health", handler.HealthCheck)
	router.GET("/search", handler.Search)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/packages/:name", handler.GetPackage)
		v1.GET("/stats", handler.Stats)
	}

	return router
}
