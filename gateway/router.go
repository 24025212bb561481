package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/middleware"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// corsMiddleware allows browser clients from any origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func setupRouter(clients *ServiceClients, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware(), metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())
	router.GET("/health/services", func(c *gin.Context) {
		utils.OKResponse(c, "Service status retrieved", clients.GetServiceStatus(c.Request.Context()))
	})

	api := router.Group("/")
	api.Use(authMiddleware.RequireAuth())
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	{
		// Colonies, rooms, rentals and summaries
		api.Any("/colonies", clients.ColonyService.ProxyRequest)
		api.Any("/colonies/*path", clients.ColonyService.ProxyRequest)
		api.GET("/portfolio/dashboard", clients.ColonyService.ProxyRequest)
		api.GET("/prorate", clients.ColonyService.ProxyRequest)

		// Event delivery observability
		api.GET("/notifier/status", clients.NotifierService.ProxyRequest)
		api.POST("/notifier/reconnect", clients.NotifierService.ProxyRequest)
		api.GET("/retry/stats", func(c *gin.Context) {
			c.Request.URL.Path = "/stats"
			clients.RetryConsumerService.ProxyRequest(c)
		})
	}

	return router
}
