package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/colony-rent-manager/shared/config"
	"github.com/pavitra93/colony-rent-manager/shared/middleware"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

func serviceURL(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load("8080")
	config.InitLogger(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis for caching
	if err := utils.InitRedis(ctx); err != nil {
		logrus.Warnf("Failed to connect to Redis, caching disabled: %v", err)
	}
	defer utils.CloseRedis()

	// The gateway only verifies tokens; users are recorded by the colony service
	authMiddleware, err := middleware.NewAuthMiddleware(nil, cfg.AWSRegion, cfg.CognitoUserPoolID)
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst, 2*time.Minute)
	go limiter.Run()
	defer limiter.Stop()

	clients := &ServiceClients{
		ColonyService:        NewServiceClient("colony", serviceURL("COLONY_SERVICE_URL", "http://localhost:8001")),
		NotifierService:      NewServiceClient("notifier", serviceURL("NOTIFIER_SERVICE_URL", "http://localhost:8004")),
		RetryConsumerService: NewServiceClient("retry-consumer", serviceURL("RETRY_CONSUMER_URL", "http://localhost:8085")),
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: setupRouter(clients, authMiddleware, limiter)}
	go func() {
		logrus.Infof("API Gateway starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start API Gateway: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down API Gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("API Gateway shutdown failed")
	}
}
