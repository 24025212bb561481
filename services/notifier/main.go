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
	"github.com/pavitra93/colony-rent-manager/shared/delivery"
	"github.com/pavitra93/colony-rent-manager/shared/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load("8004")
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

	client := delivery.NewWebhookClient(cfg.WebhookEndpoint)
	queue := delivery.NewQueue(db)

	consumer := NewKafkaConsumer(cfg.KafkaBroker, cfg.KafkaTopic, client, queue)
	defer consumer.Close()
	go consumer.Run(ctx)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: setupRouter(client, consumer, queue)}
	go func() {
		logrus.Infof("Notifier service starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start notifier service: ", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down notifier service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Notifier shutdown failed")
	}
}
