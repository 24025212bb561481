package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/delivery"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageReader is the part of kafka.Reader the consumer needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// failureRecorder stores events whose delivery failed
type failureRecorder interface {
	RecordFailure(ctx context.Context, event models.RentalEvent, cause error) (*models.FailedDelivery, error)
}

// KafkaConsumer forwards rental events from Kafka to the webhook
type KafkaConsumer struct {
	reader   messageReader
	sender   delivery.Sender
	failures failureRecorder

	consumed  atomic.Int64
	delivered atomic.Int64
	deferred  atomic.Int64
	skipped   atomic.Int64
}

// ConsumerStats counts what the consumer did with each message
type ConsumerStats struct {
	Consumed  int64 `json:"consumed"`
	Delivered int64 `json:"delivered"`
	Deferred  int64 `json:"deferred"`
	Skipped   int64 `json:"skipped"`
}

// NewKafkaConsumer creates a consumer in the notifier group
func NewKafkaConsumer(broker, topic string, sender delivery.Sender, failures failureRecorder) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        "notifier",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return newKafkaConsumer(reader, sender, failures)
}

func newKafkaConsumer(reader messageReader, sender delivery.Sender, failures failureRecorder) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, sender: sender, failures: failures}
}

// Run consumes until ctx is cancelled
func (kc *KafkaConsumer) Run(ctx context.Context) {
	logrus.Info("Starting rental events consumer")

	for {
		msg, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("Error reading rental event")
			time.Sleep(time.Second)
			continue
		}

		if err := kc.handle(ctx, msg); err != nil {
			// not committed, redelivered after a restart
			logrus.WithError(err).WithField("offset", msg.Offset).Error("Failed to handle rental event")
			continue
		}

		if err := kc.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("Failed to commit rental event")
		}
	}
}

// handle delivers one message. Undeliverable events go to the retry queue;
// an error is returned only when the event could be neither delivered nor stored.
func (kc *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) error {
	kc.consumed.Add(1)

	var event models.RentalEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		kc.skipped.Add(1)
		logrus.WithError(err).WithField("offset", msg.Offset).Warn("Skipping malformed rental event")
		return nil
	}

	sendErr := kc.sender.Send(ctx, string(event.Type), msg.Value)
	if sendErr == nil {
		kc.delivered.Add(1)
		logrus.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"colony_id":  event.ColonyID,
		}).Debug("Delivered rental event")
		return nil
	}

	if _, err := kc.failures.RecordFailure(ctx, event, sendErr); err != nil {
		return fmt.Errorf("delivery failed (%v) and could not be stored: %w", sendErr, err)
	}
	kc.deferred.Add(1)
	logrus.WithError(sendErr).WithField("event_id", event.ID).Warn("Rental event queued for retry")
	return nil
}

// Stats returns message counters
func (kc *KafkaConsumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:  kc.consumed.Load(),
		Delivered: kc.delivered.Load(),
		Deferred:  kc.deferred.Load(),
		Skipped:   kc.skipped.Load(),
	}
}

// Close closes the Kafka reader
func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close rental events reader: %w", err)
	}
	return nil
}
