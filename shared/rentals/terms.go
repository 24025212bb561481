package rentals

import (
	"strings"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/shopspring/decimal"
)

// Terms are the contract parameters shared by every rental of one allotment
type Terms struct {
	CompanyName string
	MonthlyRent decimal.Decimal
	StartDate   time.Time
}

// Validate checks the terms before any rental is created
func (t Terms) Validate() error {
	if strings.TrimSpace(t.CompanyName) == "" {
		return apperrors.Validation("company name is required")
	}
	if t.MonthlyRent.IsNegative() {
		return apperrors.Validation("monthly rent %s must not be negative", t.MonthlyRent)
	}
	if t.StartDate.IsZero() {
		return apperrors.Validation("contract start date is required")
	}
	return nil
}

// validateAmount rejects negative payments and sub-cent precision
func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperrors.Validation("payment amount %s must not be negative", amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.Validation("payment amount %s has more than 2 decimal places", amount)
	}
	return nil
}

// RentalState is a position in the rental lifecycle
type RentalState string

const (
	StateNone   RentalState = "none"
	StateActive RentalState = "active"
	StateClosed RentalState = "closed"
)

var rentalTransitions = map[RentalState][]RentalState{
	StateNone:   {StateActive},
	StateActive: {StateClosed},
	StateClosed: {},
}

// ValidateTransition returns a conflict error unless current may move to target
func ValidateTransition(current, target RentalState) error {
	allowed, ok := rentalTransitions[current]
	if !ok {
		return apperrors.Conflict("unknown rental state %q", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return apperrors.Conflict("rental cannot move from %s to %s", current, target)
}

// stateOf derives the lifecycle state of a room's rental slot
func stateOf(room *models.Room) RentalState {
	if room.Rental != nil || room.Status == models.RoomStatusRented {
		return StateActive
	}
	return StateNone
}
