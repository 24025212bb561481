package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/colony-rent-manager/shared/config"
	"github.com/pavitra93/colony-rent-manager/shared/delivery"
	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

func setupRouter(retryConsumer *RetryConsumer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Retry consumer is healthy", gin.H{"service": "retry-consumer"})
	})
	router.GET("/metrics", metrics.Handler())

	router.GET("/stats", func(c *gin.Context) {
		stats, err := retryConsumer.GetRetryStats(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		utils.OKResponse(c, "Retry statistics retrieved successfully", stats)
	})

	return router
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load("8085")
	config.InitLogger(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	if err := db.AutoMigrate(&models.FailedDelivery{}); err != nil {
		log.Fatal("Failed to migrate failed deliveries: ", err)
	}

	retryConsumer := NewRetryConsumer(delivery.NewQueue(db), delivery.NewWebhookClient(cfg.WebhookEndpoint), cfg.MaxRetries)
	go retryConsumer.Run(ctx)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: setupRouter(retryConsumer)}
	go func() {
		logrus.Infof("Retry Consumer starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start Retry Consumer: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down retry consumer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Retry consumer shutdown failed")
	}
}
