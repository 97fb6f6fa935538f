package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bkharvest/harvester/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/restaurants", handler.GetRestaurants)
		v1.GET("/restaurants/:restaurantId", handler.GetRestaurant)
		v1.GET("/stores/:storeId/menu", handler.GetStoreMenu)
		v1.GET("/items/:itemId", handler.GetItem)

		harvest := v1.Group("/harvest")
		{
			harvest.POST("/refresh", handler.StartRefresh)
			harvest.GET("/status", handler.HarvestStatus)
		}
	}

	return router
}
