package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryStatus represents the state of a failed webhook delivery
type DeliveryStatus string

const (
	DeliveryPending           DeliveryStatus = "pending"
	DeliveryResolved          DeliveryStatus = "resolved"
	DeliveryPermanentlyFailed DeliveryStatus = "permanently_failed"
)

// FailedDelivery represents a rental event the notifier could not deliver
type FailedDelivery struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	EventID      string         `json:"event_id" gorm:"not null;index"`
	EventType    string         `json:"event_type" gorm:"not null"`
	ColonyID     string         `json:"colony_id" gorm:"not null"`
	Payload      string         `json:"payload" gorm:"type:text;not null"`
	ErrorMessage string         `json:"error_message" gorm:"not null"`
	RetryCount   int            `json:"retry_count" gorm:"default:0"`
	Status       DeliveryStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	NextRetryAt  *time.Time     `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

func (FailedDelivery) TableName() string {
	return "failed_deliveries"
}

func (d *FailedDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
