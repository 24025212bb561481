package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"gorm.io/gorm"
)

// BaseRetryDelay is the wait before the first retry
const BaseRetryDelay = time.Minute

// Backoff returns the wait after the n-th failed retry: 1m, 2m, 4m, 8m...
func Backoff(n int) time.Duration {
	if n < 1 {
		return BaseRetryDelay
	}
	return BaseRetryDelay * time.Duration(1<<(n-1))
}

// Queue persists undelivered events in failed_deliveries
type Queue struct {
	db  *gorm.DB
	now func() time.Time
}

// Stats counts failed deliveries by status
type Stats struct {
	Pending           int64 `json:"pending"`
	Resolved          int64 `json:"resolved"`
	PermanentlyFailed int64 `json:"permanently_failed"`
}

// NewQueue creates a failed-delivery queue over db
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

// RecordFailure stores an event whose first delivery failed
func (q *Queue) RecordFailure(ctx context.Context, event models.RentalEvent, cause error) (*models.FailedDelivery, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rental event: %w", err)
	}

	next := q.now().Add(BaseRetryDelay)
	row := &models.FailedDelivery{
		EventID:      event.ID.String(),
		EventType:    string(event.Type),
		ColonyID:     event.ColonyID.String(),
		Payload:      string(payload),
		ErrorMessage: cause.Error(),
		Status:       models.DeliveryPending,
		NextRetryAt:  &next,
	}
	if err := q.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apperrors.Store("record failed delivery", err)
	}
	return row, nil
}

// Due returns up to limit pending deliveries whose retry time has come, oldest first
func (q *Queue) Due(ctx context.Context, limit int) ([]models.FailedDelivery, error) {
	var rows []models.FailedDelivery
	err := q.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.DeliveryPending, q.now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Store("list due deliveries", err)
	}
	return rows, nil
}

// MarkResolved records a successful retry
func (q *Queue) MarkResolved(ctx context.Context, row *models.FailedDelivery) error {
	now := q.now()
	row.Status = models.DeliveryResolved
	row.ResolvedAt = &now
	row.NextRetryAt = nil
	return q.save(ctx, row)
}

// MarkRetryFailed counts a failed retry and schedules the next one.
// After maxRetries the delivery is given up.
func (q *Queue) MarkRetryFailed(ctx context.Context, row *models.FailedDelivery, cause error, maxRetries int) error {
	row.RetryCount++
	now := q.now()

	if row.RetryCount >= maxRetries {
		row.Status = models.DeliveryPermanentlyFailed
		row.ResolvedAt = &now
		row.NextRetryAt = nil
		row.ErrorMessage = fmt.Sprintf("Max retries reached: %s", cause.Error())
	} else {
		next := now.Add(Backoff(row.RetryCount))
		row.NextRetryAt = &next
		row.ErrorMessage = cause.Error()
	}
	return q.save(ctx, row)
}

func (q *Queue) save(ctx context.Context, row *models.FailedDelivery) error {
	if err := q.db.WithContext(ctx).Save(row).Error; err != nil {
		return apperrors.Store("update failed delivery", err)
	}
	return nil
}

// Stats counts deliveries per status
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status models.DeliveryStatus
		Count  int64
	}
	err := q.db.WithContext(ctx).Model(&models.FailedDelivery{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, apperrors.Store("count deliveries", err)
	}

	var stats Stats
	for _, r := range rows {
		switch r.Status {
		case models.DeliveryPending:
			stats.Pending = r.Count
		case models.DeliveryResolved:
			stats.Resolved = r.Count
		case models.DeliveryPermanentlyFailed:
			stats.PermanentlyFailed = r.Count
		}
	}
	return stats, nil
}
