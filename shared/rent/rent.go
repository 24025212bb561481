package rent

import (
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/shopspring/decimal"
)

// Round2 rounds an amount to 2 decimal places, halves away from zero
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// DaysInMonth returns the number of days in the calendar month of t
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RemainingDays returns the days left in t's month, counting t itself
func RemainingDays(t time.Time) int {
	return DaysInMonth(t) - t.Day() + 1
}

// Prorate returns the first-month rent for a contract starting on start.
// A contract starting on the 1st owes the full monthly rent.
func Prorate(monthlyRent decimal.Decimal, start time.Time) (decimal.Decimal, error) {
	if monthlyRent.IsNegative() {
		return decimal.Zero, apperrors.Validation("monthly rent %s must not be negative", monthlyRent)
	}

	if start.Day() == 1 {
		return monthlyRent, nil
	}

	remaining := decimal.NewFromInt(int64(RemainingDays(start)))
	days := decimal.NewFromInt(int64(DaysInMonth(start)))

	return Round2(monthlyRent.Mul(remaining).Div(days)), nil
}

// MonthsBetween returns the calendar-month bucket difference between start and asOf
func MonthsBetween(start, asOf time.Time) int {
	return (asOf.Year()*12 + int(asOf.Month())) - (start.Year()*12 + int(start.Month()))
}

// AccruedExpected returns the rent owed from start through asOf.
// Nothing is owed before the contract starts; every calendar-month boundary
// crossed after the first month adds one full monthly rent.
func AccruedExpected(monthlyRent, firstMonthRent decimal.Decimal, start, asOf time.Time) decimal.Decimal {
	if Date(start).After(Date(asOf)) {
		return decimal.Zero
	}

	months := MonthsBetween(start, asOf)
	if months == 0 {
		return firstMonthRent
	}

	return firstMonthRent.Add(monthlyRent.Mul(decimal.NewFromInt(int64(months))))
}

// ExpectedAtClose returns the total expected rent recorded when a rental ends on end
func ExpectedAtClose(monthlyRent, firstMonthRent decimal.Decimal, start, end time.Time) decimal.Decimal {
	months := MonthsBetween(start, end)
	if months <= 0 {
		return firstMonthRent
	}
	return firstMonthRent.Add(monthlyRent.Mul(decimal.NewFromInt(int64(months))))
}
