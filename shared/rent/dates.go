package rent

import (
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
)

// DateLayout is the wire format for contract dates
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date at UTC midnight
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.Validation("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// Today returns the current calendar date in loc
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(now.In(loc))
}
