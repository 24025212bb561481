package rentals

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// Distributor applies lump payments to one or many rentals
type Distributor struct {
	uow    store.UnitOfWork
	ledger *Ledger
}

// NewDistributor creates a new payment distributor
func NewDistributor(uow store.UnitOfWork, ledger *Ledger) *Distributor {
	return &Distributor{uow: uow, ledger: ledger}
}

// ApplyToRental applies amount to a single rental
func (d *Distributor) ApplyToRental(ctx context.Context, rentalID uuid.UUID, amount decimal.Decimal) (*models.Rental, error) {
	return d.ledger.ApplyPayment(ctx, rentalID, amount)
}

// ApplyToCompany splits amount across a company's active rentals in a colony,
// proportionally to each rental's monthly rent.
func (d *Distributor) ApplyToCompany(ctx context.Context, colonyID uuid.UUID, companyName string, amount decimal.Decimal) ([]models.Rental, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var matched []models.Rental
	var events []models.RentalEvent

	err := d.uow.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetColony(ctx, colonyID); err != nil {
			return err
		}

		rentals, err := tx.RentalsInColony(ctx, colonyID)
		if err != nil {
			return err
		}

		key := models.CompanyKey(companyName)
		for _, r := range rentals {
			if models.CompanyKey(r.CompanyName) == key {
				matched = append(matched, r)
			}
		}
		if len(matched) == 0 {
			return apperrors.NotFound("no active rentals for company %q", companyName)
		}

		rents := make([]decimal.Decimal, len(matched))
		for i, r := range matched {
			rents[i] = r.MonthlyRent
		}
		shares, err := ProportionalShares(amount, rents)
		if err != nil {
			return err
		}

		for i := range matched {
			event, err := d.ledger.pay(ctx, tx, &matched[i], shares[i])
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		logFailure("apply_company_payment", err, logrus.Fields{"colony_id": colonyID, "company": companyName})
		return nil, err
	}

	metrics.PaymentsAppliedTotal.WithLabelValues("company").Inc()
	publishAll(ctx, d.ledger.events, events)
	return matched, nil
}

// ProportionalShares splits amount into cents proportional to weights.
// Each share is the floor of its exact cent value; leftover cents go to
// the largest fractional remainders, earliest first on ties, so the
// shares always sum to amount.
func ProportionalShares(amount decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	if total.IsZero() {
		return nil, apperrors.Validation("total monthly rent is zero, payment cannot be split")
	}

	cents := amount.Mul(hundred)
	floors := make([]decimal.Decimal, len(weights))
	remainders := make([]decimal.Decimal, len(weights))
	assigned := decimal.Zero

	for i, w := range weights {
		exact := cents.Mul(w).Div(total)
		floors[i] = exact.Floor()
		remainders[i] = exact.Sub(floors[i])
		assigned = assigned.Add(floors[i])
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	leftover := cents.Sub(assigned).IntPart()
	for i := int64(0); i < leftover; i++ {
		idx := order[int(i)%len(order)]
		floors[idx] = floors[idx].Add(decimal.NewFromInt(1))
	}

	shares := make([]decimal.Decimal, len(weights))
	for i := range floors {
		shares[i] = floors[i].Div(hundred)
	}
	return shares, nil
}
