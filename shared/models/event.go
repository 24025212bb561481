package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RentalEventType names a rental lifecycle transition
type RentalEventType string

const (
	EventRentalCreated  RentalEventType = "rental.created"
	EventPaymentApplied RentalEventType = "payment.applied"
	EventRentalClosed   RentalEventType = "rental.closed"
)

// RentalEvent is published after a lifecycle transition commits
type RentalEvent struct {
	ID          uuid.UUID       `json:"id"`
	Type        RentalEventType `json:"event_type"`
	ColonyID    uuid.UUID       `json:"colony_id"`
	RoomID      uuid.UUID       `json:"room_id"`
	RentalID    uuid.UUID       `json:"rental_id"`
	CompanyName string          `json:"company_name"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewRentalEvent builds an event for rental with a fresh id
func NewRentalEvent(eventType RentalEventType, colonyID uuid.UUID, rental *Rental, amount decimal.Decimal) RentalEvent {
	return RentalEvent{
		ID:          uuid.New(),
		Type:        eventType,
		ColonyID:    colonyID,
		RoomID:      rental.RoomID,
		RentalID:    rental.ID,
		CompanyName: rental.CompanyName,
		Amount:      amount,
		OccurredAt:  time.Now().UTC(),
	}
}
