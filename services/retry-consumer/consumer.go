package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/colony-rent-manager/shared/delivery"
)

// RetryConsumer re-sends failed rental event deliveries on a fixed interval
type RetryConsumer struct {
	queue         *delivery.Queue
	sender        delivery.Sender
	maxRetries    int
	batchSize     int
	checkInterval time.Duration
}

// NewRetryConsumer creates a new retry consumer
func NewRetryConsumer(queue *delivery.Queue, sender delivery.Sender, maxRetries int) *RetryConsumer {
	return &RetryConsumer{
		queue:         queue,
		sender:        sender,
		maxRetries:    maxRetries,
		batchSize:     100,
		checkInterval: 30 * time.Second,
	}
}

// Run processes due deliveries until ctx is cancelled
func (rc *RetryConsumer) Run(ctx context.Context) {
	logrus.Info("Starting retry consumer")

	ticker := time.NewTicker(rc.checkInterval)
	defer ticker.Stop()

	for {
		rc.processBatch(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processBatch drains due deliveries one batch at a time
func (rc *RetryConsumer) processBatch(ctx context.Context) {
	for ctx.Err() == nil {
		result, err := rc.queue.RetryDue(ctx, rc.sender, rc.batchSize, rc.maxRetries)
		if err != nil {
			logrus.WithError(err).Error("Error retrying failed deliveries")
			return
		}
		if result.Attempted == 0 {
			return
		}

		logrus.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"resolved":  result.Resolved,
			"failed":    result.Failed,
		}).Info("Processed failed deliveries")

		// a short batch means nothing else is due
		if result.Attempted < rc.batchSize {
			return
		}
	}
}

// RetryStats is the payload of /stats
type RetryStats struct {
	RetryStats delivery.Stats `json:"retry_stats"`
	Config     RetryConfig    `json:"config"`
}

// RetryConfig echoes the consumer settings
type RetryConfig struct {
	MaxRetries    int    `json:"max_retries"`
	BatchSize     int    `json:"batch_size"`
	CheckInterval string `json:"check_interval"`
}

// GetRetryStats returns retry statistics
func (rc *RetryConsumer) GetRetryStats(ctx context.Context) (RetryStats, error) {
	stats, err := rc.queue.Stats(ctx)
	if err != nil {
		return RetryStats{}, err
	}

	return RetryStats{
		RetryStats: stats,
		Config: RetryConfig{
			MaxRetries:    rc.maxRetries,
			BatchSize:     rc.batchSize,
			CheckInterval: rc.checkInterval.String(),
		},
	}, nil
}
