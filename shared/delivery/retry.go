package delivery

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers one serialized event
type Sender interface {
	Send(ctx context.Context, eventType string, event []byte) error
}

// RetryResult summarizes one retry pass
type RetryResult struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

// RetryDue re-sends every due delivery once
func (q *Queue) RetryDue(ctx context.Context, sender Sender, batchSize, maxRetries int) (RetryResult, error) {
	var result RetryResult

	rows, err := q.Due(ctx, batchSize)
	if err != nil {
		return result, err
	}

	for i := range rows {
		row := &rows[i]
		result.Attempted++

		sendErr := sender.Send(ctx, row.EventType, []byte(row.Payload))
		if sendErr == nil {
			result.Resolved++
			err = q.MarkResolved(ctx, row)
		} else {
			result.Failed++
			err = q.MarkRetryFailed(ctx, row, sendErr, maxRetries)
		}
		if err != nil {
			logrus.WithError(err).WithField("delivery_id", row.ID).Error("Failed to update delivery")
			return result, err
		}

		logrus.WithFields(logrus.Fields{
			"delivery_id": row.ID,
			"event_id":    row.EventID,
			"retry_count": row.RetryCount,
			"status":      row.Status,
		}).Info("Retried rental event delivery")
	}
	return result, nil
}
