package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/colony-rent-manager/shared/delivery"
	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// NotifierStatus is the payload of /notifier/status
type NotifierStatus struct {
	Webhook  delivery.WebhookStatus `json:"webhook"`
	Consumer ConsumerStats          `json:"consumer"`
	Queue    delivery.Stats         `json:"queue"`
}

// handleGetNotifierStatus reports webhook health, consumer counters and the retry backlog
func handleGetNotifierStatus(client *delivery.WebhookClient, consumer *KafkaConsumer, queue *delivery.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := queue.Stats(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Notifier status retrieved successfully", NotifierStatus{
			Webhook:  client.Status(),
			Consumer: consumer.Stats(),
			Queue:    stats,
		})
	}
}

// handleReconnectWebhook checks the webhook and closes its breaker
func handleReconnectWebhook(client *delivery.WebhookClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := client.Reconnect(c.Request.Context()); err != nil {
			utils.ServiceUnavailableResponse(c, "Failed to reconnect: "+err.Error())
			return
		}

		utils.OKResponse(c, "Successfully reconnected to webhook", nil)
	}
}

func setupRouter(client *delivery.WebhookClient, consumer *KafkaConsumer, queue *delivery.Queue) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Notifier service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	notifier := router.Group("/notifier")
	{
		notifier.GET("/status", handleGetNotifierStatus(client, consumer, queue))
		notifier.POST("/reconnect", handleReconnectWebhook(client))
	}

	return router
}
