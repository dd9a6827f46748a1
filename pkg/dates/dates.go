package dates

import "time"

// Location is the fixed business calendar for all loan dates.
// Santo Domingo has no daylight-saving transitions, so a fixed
// offset avoids off-by-one-day drift from tz database lookups.
var Location = time.FixedZone("AST", -4*60*60)

// Frequency identifies how often installments come due.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is a known payment frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Today returns the current calendar date in the business zone.
func Today() time.Time {
	return Truncate(time.Now().In(Location))
}

// Truncate drops the time-of-day component, keeping the calendar date
// in the business zone.
func Truncate(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// New builds a calendar date in the business zone.
func New(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}

// Step advances anchor by n periods of the given frequency. Monthly
// stepping is calendar stepping from the anchor so the day-of-month of
// the anchor is preserved (never fixed 30-day increments).
func Step(anchor time.Time, freq Frequency, n int) time.Time {
	anchor = Truncate(anchor)
	switch freq {
	case FrequencyDaily:
		return anchor.AddDate(0, 0, n)
	case FrequencyWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case FrequencyBiweekly:
		return anchor.AddDate(0, 0, 14*n)
	default:
		return anchor.AddDate(0, n, 0)
	}
}

// DaysBetween returns the number of whole days from a to b. Negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	a = Truncate(a)
	b = Truncate(b)
	return int(b.Sub(a).Hours() / 24)
}

// PeriodsDue counts anchor-stepped due dates that fall on or before
// asOf, with a floor of 1. Pure in (anchor, freq, asOf): re-deriving a
// schedule must reproduce the same due-date sequence on every call.
func PeriodsDue(anchor time.Time, freq Frequency, asOf time.Time) int {
	anchor = Truncate(anchor)
	asOf = Truncate(asOf)
	n := 0
	for !Step(anchor, freq, n).After(asOf) {
		n++
	}
	if n < 1 {
		return 1
	}
	return n
}

// SameDate reports whether a and b are the same calendar date.
func SameDate(a, b time.Time) bool {
	return Truncate(a).Equal(Truncate(b))
}

// Parse reads a plain YYYY-MM-DD date in the business zone.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, Location)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Format renders a calendar date as YYYY-MM-DD.
func Format(t time.Time) string {
	return Truncate(t).Format("2006-01-02")
}
