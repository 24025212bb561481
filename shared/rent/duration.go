package rent

import (
	"fmt"
	"time"

	"github.com/jinzhu/inflection"
)

// Duration is a display-oriented span between two contract dates
type Duration struct {
	Days   int    `json:"days"`
	Months int    `json:"months"`
	Text   string `json:"text"`
}

// DurationBetween returns the absolute span between start and end.
// Months are approximated as 30 days for display.
func DurationBetween(start, end time.Time) Duration {
	days := int(Date(end).Sub(Date(start)).Hours() / 24)
	if days < 0 {
		days = -days
	}

	months := days / 30
	var text string
	if months > 0 {
		text = count(months, "month")
		if rest := days % 30; rest > 0 {
			text += " " + count(rest, "day")
		}
	} else {
		text = count(days, "day")
	}

	return Duration{Days: days, Months: months, Text: text}
}

func count(n int, unit string) string {
	if n != 1 {
		unit = inflection.Plural(unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}
