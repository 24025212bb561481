package rentals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Ledger owns creation, payment and closure of rentals
type Ledger struct {
	uow    store.UnitOfWork
	events Publisher
}

// NewLedger creates a new rental ledger
func NewLedger(uow store.UnitOfWork, events Publisher) *Ledger {
	if events == nil {
		events = NopPublisher()
	}
	return &Ledger{uow: uow, events: events}
}

// CreateRental allots a single free room under terms
func (l *Ledger) CreateRental(ctx context.Context, roomID uuid.UUID, terms Terms) (*models.Rental, error) {
	var created []models.Rental
	var events []models.RentalEvent

	err := l.uow.Update(ctx, func(tx store.Tx) error {
		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}

		created, events, err = l.allot(ctx, tx, []models.Room{*room}, terms)
		return err
	})
	if err != nil {
		logFailure("create_rental", err, logrus.Fields{"room_id": roomID})
		return nil, err
	}

	publishAll(ctx, l.events, events)
	return &created[0], nil
}

// allot creates one rental per room and marks every room Rented.
// The caller owns the transaction.
func (l *Ledger) allot(ctx context.Context, tx store.Tx, rooms []models.Room, terms Terms) ([]models.Rental, []models.RentalEvent, error) {
	if err := terms.Validate(); err != nil {
		return nil, nil, err
	}

	firstMonthRent, err := rent.Prorate(terms.MonthlyRent, terms.StartDate)
	if err != nil {
		return nil, nil, err
	}

	created := make([]models.Rental, 0, len(rooms))
	ids := make([]uuid.UUID, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		if err := ValidateTransition(stateOf(room), StateActive); err != nil {
			return nil, nil, apperrors.Validation("room %s (%s) is not free", room.RoomNumber, room.ID)
		}

		created = append(created, models.Rental{
			ID:                uuid.New(),
			RoomID:            room.ID,
			CompanyName:       terms.CompanyName,
			MonthlyRent:       terms.MonthlyRent,
			ContractStartDate: rent.Date(terms.StartDate),
			FirstMonthRent:    firstMonthRent,
			PaidAmount:        decimal.Zero,
		})
		ids = append(ids, room.ID)
	}

	if err := tx.CreateRentals(ctx, created); err != nil {
		return nil, nil, err
	}
	if err := tx.SetRoomStatus(ctx, ids, models.RoomStatusRented); err != nil {
		return nil, nil, err
	}

	events := make([]models.RentalEvent, 0, len(created))
	for i := range created {
		events = append(events, models.NewRentalEvent(models.EventRentalCreated, rooms[i].ColonyID, &created[i], firstMonthRent))
	}
	metrics.RentalsCreatedTotal.Add(float64(len(created)))

	return created, events, nil
}

// ApplyPayment adds amount to a rental's paid total. Overpayment is allowed.
func (l *Ledger) ApplyPayment(ctx context.Context, rentalID uuid.UUID, amount decimal.Decimal) (*models.Rental, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var rental *models.Rental
	var event models.RentalEvent

	err := l.uow.Update(ctx, func(tx store.Tx) error {
		var err error
		rental, err = tx.GetRental(ctx, rentalID)
		if err != nil {
			return err
		}

		event, err = l.pay(ctx, tx, rental, amount)
		return err
	})
	if err != nil {
		logFailure("apply_payment", err, logrus.Fields{"rental_id": rentalID})
		return nil, err
	}

	metrics.PaymentsAppliedTotal.WithLabelValues("rental").Inc()
	publishAll(ctx, l.events, []models.RentalEvent{event})
	return rental, nil
}

// pay applies amount to rental inside the caller's transaction
func (l *Ledger) pay(ctx context.Context, tx store.Tx, rental *models.Rental, amount decimal.Decimal) (models.RentalEvent, error) {
	room, err := tx.GetRoom(ctx, rental.RoomID)
	if err != nil {
		return models.RentalEvent{}, err
	}

	if err := tx.AddPaidAmount(ctx, rental, amount); err != nil {
		return models.RentalEvent{}, err
	}

	metrics.PaymentAmountTotal.Add(amount.InexactFloat64())
	return models.NewRentalEvent(models.EventPaymentApplied, room.ColonyID, rental, amount), nil
}

// CloseRental archives a rental into history and frees its room.
// The history row, the rental delete and the room release commit together.
func (l *Ledger) CloseRental(ctx context.Context, rentalID uuid.UUID, asOf time.Time) (*models.RentalHistory, error) {
	var record *models.RentalHistory
	var event models.RentalEvent

	err := l.uow.Update(ctx, func(tx store.Tx) error {
		rental, err := tx.GetRental(ctx, rentalID)
		if errors.Is(err, apperrors.ErrNotFound) {
			_, checkErr := tx.ClosedRental(ctx, rentalID)
			if checkErr == nil {
				return ValidateTransition(StateClosed, StateClosed)
			}
			if !errors.Is(checkErr, apperrors.ErrNotFound) {
				return checkErr
			}
		}
		if err != nil {
			return err
		}

		room, err := tx.GetRoom(ctx, rental.RoomID)
		if err != nil {
			return err
		}
		colony, err := tx.GetColony(ctx, room.ColonyID)
		if err != nil {
			return err
		}

		end := rent.Date(asOf)
		record = &models.RentalHistory{
			RentalID:          rental.ID,
			RoomID:            room.ID,
			ColonyID:          room.ColonyID,
			RoomNumber:        room.RoomNumber,
			CompanyName:       rental.CompanyName,
			MonthlyRent:       rental.MonthlyRent,
			FirstMonthRent:    rental.FirstMonthRent,
			ContractStartDate: rental.ContractStartDate,
			ContractEndDate:   end,
			TotalPaid:         rental.PaidAmount,
			TotalExpected:     rent.ExpectedAtClose(rental.MonthlyRent, rental.FirstMonthRent, rental.ContractStartDate, end),
			UserID:            colony.UserID,
		}

		if err := tx.CreateHistory(ctx, record); err != nil {
			return err
		}
		if err := tx.DeleteRental(ctx, rental.ID); err != nil {
			return err
		}
		if err := tx.SetRoomStatus(ctx, []uuid.UUID{room.ID}, models.RoomStatusFree); err != nil {
			return err
		}

		event = models.NewRentalEvent(models.EventRentalClosed, room.ColonyID, rental, record.Balance())
		return nil
	})
	if err != nil {
		logFailure("close_rental", err, logrus.Fields{"rental_id": rentalID})
		return nil, err
	}

	metrics.RentalsClosedTotal.Inc()
	publishAll(ctx, l.events, []models.RentalEvent{event})
	return record, nil
}
