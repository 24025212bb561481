package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/colony-rent-manager/shared/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	block    chan struct{}
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() models.RentalEvent {
	rental := &models.Rental{ID: uuid.New(), RoomID: uuid.New(), CompanyName: "Acme"}
	return models.NewRentalEvent(models.EventPaymentApplied, uuid.New(), rental, decimal.RequireFromString("12.50"))
}

func TestRentalEventProducer_WritesKeyedMessages(t *testing.T) {
	writer := &fakeWriter{}
	producer := newRentalEventProducer(writer, "rental-events", 10, 2)

	event := sampleEvent()
	require.NoError(t, producer.Publish(context.Background(), event))
	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "rental-events", msg.Topic)
	assert.Equal(t, event.ColonyID.String(), string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event_type", Value: []byte("payment.applied")},
		{Key: "colony_id", Value: []byte(event.ColonyID.String())},
	}, msg.Headers)

	var decoded models.RentalEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.True(t, decoded.Amount.Equal(event.Amount))
}

func TestRentalEventProducer_DropsWhenQueueFull(t *testing.T) {
	writer := &fakeWriter{block: make(chan struct{})}
	producer := newRentalEventProducer(writer, "rental-events", 1, 1)

	// the worker holds one event while the queue holds another
	require.NoError(t, producer.Publish(context.Background(), sampleEvent()))
	require.Eventually(t, func() bool { return len(producer.eventChan) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, producer.Publish(context.Background(), sampleEvent()))

	assert.Error(t, producer.Publish(context.Background(), sampleEvent()))

	close(writer.block)
	require.NoError(t, producer.Close())
	assert.Len(t, writer.messages, 2)
}
