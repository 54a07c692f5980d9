package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the closed day range [Start, End]. Leave bookings, statistics
// windows and planning views are all expressed as periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod validates start <= end.
func NewPeriod(start, end TimePoint) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, InvalidArgument("new period", "start and end dates are required")
	}
	if end.Before(start) {
		return Period{}, InvalidArgument("new period",
			fmt.Sprintf("start %s is after end %s", start, end))
	}
	return Period{Start: start, End: end}, nil
}

// MonthPeriod returns the whole calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ValidateMonth checks (year, month) input coming from callers.
func ValidateMonth(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return InvalidArgument("validate month", fmt.Sprintf("month %d out of range 1-12", month))
	}
	if year < 1900 || year > 9999 {
		return InvalidArgument("validate month", fmt.Sprintf("year %d out of range", year))
	}
	return nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Len is the number of days in the period, both ends included.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns every day in the period in ascending order.
func (p Period) Days() []TimePoint {
	days := make([]TimePoint, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
