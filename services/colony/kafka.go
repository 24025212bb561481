package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the part of kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RentalEventProducer publishes rental events to Kafka through a worker pool
type RentalEventProducer struct {
	writer       messageWriter
	topic        string
	eventChan    chan models.RentalEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewRentalEventProducer creates a producer writing to topic on broker
func NewRentalEventProducer(broker, topic string) *RentalEventProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
	return newRentalEventProducer(writer, topic, 1000, 4)
}

func newRentalEventProducer(writer messageWriter, topic string, queueSize, workers int) *RentalEventProducer {
	p := &RentalEventProducer{
		writer:       writer,
		topic:        topic,
		eventChan:    make(chan models.RentalEvent, queueSize),
		workerCount:  workers,
		shutdownChan: make(chan struct{}),
	}
	p.startWorkers()
	return p
}

func (p *RentalEventProducer) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logrus.WithField("workers", p.workerCount).Info("Started rental event workers")
}

func (p *RentalEventProducer) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.eventChan:
			p.deliver(id, event)
		case <-p.shutdownChan:
			// drain what is already queued
			for {
				select {
				case event := <-p.eventChan:
					p.deliver(id, event)
				default:
					return
				}
			}
		}
	}
}

func (p *RentalEventProducer) deliver(worker int, event models.RentalEvent) {
	if err := p.sendSync(event); err != nil {
		logrus.WithFields(logrus.Fields{
			"worker":     worker,
			"event_id":   event.ID,
			"event_type": event.Type,
		}).WithError(err).Error("Failed to send rental event")
	}
}

// Publish queues an event without blocking. A full queue drops the event.
func (p *RentalEventProducer) Publish(_ context.Context, event models.RentalEvent) error {
	select {
	case p.eventChan <- event:
		return nil
	default:
		metrics.EventsDroppedTotal.Inc()
		return fmt.Errorf("rental event queue full, event %s dropped", event.ID)
	}
}

func (p *RentalEventProducer) sendSync(event models.RentalEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rental event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ColonyID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "colony_id", Value: []byte(event.ColonyID.String())},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write rental event to Kafka: %w", err)
	}
	return nil
}

// Close stops the workers after the queue drains and closes the writer
func (p *RentalEventProducer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		logrus.Info("Shutting down rental event producer")
		close(p.shutdownChan)
		p.wg.Wait()
		if cerr := p.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
		}
	})
	return err
}
