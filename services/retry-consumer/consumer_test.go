package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pavitra93/colony-rent-manager/shared/delivery"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/store/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingSender struct {
	err   error
	calls int
}

func (s *countingSender) Send(context.Context, string, []byte) error {
	s.calls++
	return s.err
}

// seedDue records n failures and makes them due immediately
func seedDue(t *testing.T, db *gorm.DB, queue *delivery.Queue, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		rental := &models.Rental{ID: uuid.New(), RoomID: uuid.New(), CompanyName: "Acme"}
		event := models.NewRentalEvent(models.EventRentalCreated, uuid.New(), rental, decimal.Zero)
		_, err := queue.RecordFailure(ctx, event, errors.New("connection refused"))
		require.NoError(t, err)
	}
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.FailedDelivery{}).Where("1 = 1").Update("next_retry_at", past).Error)
}

func TestProcessBatch_DrainsAllDue(t *testing.T) {
	db := storetest.NewDB(t)
	queue := delivery.NewQueue(db)
	seedDue(t, db, queue, 5)

	sender := &countingSender{}
	rc := NewRetryConsumer(queue, sender, 8)
	rc.batchSize = 2

	rc.processBatch(context.Background())
	assert.Equal(t, 5, sender.calls)

	stats, err := queue.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, delivery.Stats{Resolved: 5}, stats)
}

func TestProcessBatch_FailedRetryWaits(t *testing.T) {
	db := storetest.NewDB(t)
	queue := delivery.NewQueue(db)
	seedDue(t, db, queue, 1)

	sender := &countingSender{err: errors.New("503")}
	rc := NewRetryConsumer(queue, sender, 8)

	rc.processBatch(context.Background())
	rc.processBatch(context.Background())
	assert.Equal(t, 1, sender.calls)

	var row models.FailedDelivery
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, 1, row.RetryCount)
	assert.Equal(t, models.DeliveryPending, row.Status)
}

func TestStatsEndpoint(t *testing.T) {
	db := storetest.NewDB(t)
	queue := delivery.NewQueue(db)
	seedDue(t, db, queue, 2)

	router := setupRouter(NewRetryConsumer(queue, &countingSender{}, 3))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data RetryStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.RetryStats.Pending)
	assert.Equal(t, 3, body.Data.Config.MaxRetries)
	assert.Equal(t, "30s", body.Data.Config.CheckInterval)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
