package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/colony-rent-manager/shared/config"
	"github.com/pavitra93/colony-rent-manager/shared/middleware"
	"github.com/pavitra93/colony-rent-manager/shared/rentals"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load("8001")
	config.InitLogger(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis only caches verified token claims
	if err := utils.InitRedis(ctx); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, token claims will not be cached")
	}
	defer utils.CloseRedis()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	authMiddleware, err := middleware.NewAuthMiddleware(db, cfg.AWSRegion, cfg.CognitoUserPoolID)
	if err != nil {
		log.Fatal("Failed to initialize auth middleware: ", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst, 2*time.Minute)
	go limiter.Run()
	defer limiter.Stop()

	producer := NewRentalEventProducer(cfg.KafkaBroker, cfg.KafkaTopic)
	defer producer.Close()

	svc := rentals.NewService(store.New(db), producer)
	router := setupRouter(svc, authMiddleware, limiter, Clock{Location: cfg.Location()})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logrus.Infof("Colony service starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start colony service: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down colony service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Colony service shutdown failed")
	}
}
