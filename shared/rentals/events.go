package rentals

import (
	"context"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/sirupsen/logrus"
)

// Publisher delivers committed rental events to interested consumers
type Publisher interface {
	Publish(ctx context.Context, event models.RentalEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.RentalEvent) error { return nil }

// NopPublisher discards every event
func NopPublisher() Publisher {
	return nopPublisher{}
}

// publishAll sends events after their transaction committed.
// Publish failures are logged; the committed state stands.
func publishAll(ctx context.Context, publisher Publisher, events []models.RentalEvent) {
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logrus.WithFields(logrus.Fields{
				"event_id":   event.ID,
				"event_type": event.Type,
				"rental_id":  event.RentalID,
			}).WithError(err).Warn("Failed to publish rental event")
		}
	}
}

// logFailure records a failed composite operation
func logFailure(operation string, err error, fields logrus.Fields) {
	kind := apperrors.Kind(err)
	metrics.OperationErrorsTotal.WithLabelValues(operation, kind).Inc()

	entry := logrus.WithFields(fields).WithField("operation", operation).WithError(err)
	if kind == "store" || kind == "internal" {
		entry.Error("Operation failed, no changes were committed")
		return
	}
	entry.Debug("Operation rejected")
}
