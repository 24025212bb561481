package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/middleware"
	"github.com/pavitra93/colony-rent-manager/shared/rentals"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// setupRouter registers every colony service route
func setupRouter(svc *rentals.Service, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter, clock Clock) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Colony service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/")
	api.Use(authMiddleware.RequireAuth())
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	{
		api.GET("/prorate", handleProrate())
		api.GET("/portfolio/dashboard", handlePortfolioDashboard(svc, clock))
		api.POST("/colonies", handleCreateColony(svc))
		api.GET("/colonies", handleListColonies(svc))
	}

	colony := api.Group("/colonies/:id")
	colony.Use(authMiddleware.RequireColonyOwner(svc.Colonies.Get))
	{
		colony.GET("", handleGetColony(svc))
		colony.PUT("", handleUpdateColony(svc))
		colony.DELETE("", handleDeleteColony(svc))

		// Rooms
		colony.GET("/rooms", handleListRooms(svc))
		colony.POST("/rooms", handleAddRoom(svc))
		colony.POST("/rooms/generate", handleGenerateRooms(svc))
		colony.POST("/rooms/allot", handleAllotRooms(svc))
		colony.DELETE("/rooms/:room_id", handleDeleteRoom(svc))

		// Rentals and payments
		colony.POST("/rentals/:rental_id/payments", handleRentalPayment(svc))
		colony.POST("/rentals/:rental_id/close", handleCloseRental(svc, clock))
		colony.POST("/companies/payments", handleCompanyPayment(svc))

		// Summaries
		colony.GET("/dashboard", handleDashboard(svc, clock))
		colony.GET("/companies", handleCompanies(svc, clock))
		colony.GET("/companies/history", handleCompanyHistory(svc, clock))
		colony.GET("/history", handleHistory(svc))
	}

	return router
}
