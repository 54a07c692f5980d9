package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day (the engine never reasons below day granularity)
// =============================================================================

// DateLayout is the wire and storage format for every calendar day.
const DateLayout = "2006-01-02"

// TimePoint is a calendar day normalized to midnight UTC.
// The zero value means "unset" (e.g. an agent with no exit date).
type TimePoint struct {
	Time time.Time
}

// NewTimePoint builds a day from its calendar components.
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day, keeping t's own wall clock date.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseTimePoint parses a YYYY-MM-DD string.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, InvalidArgument("parse date", fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", s))
	}
	return FromTime(t), nil
}

// MustParseTimePoint panics on malformed input. Tests and constant tables only.
func MustParseTimePoint(s string) TimePoint {
	tp, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func Today() TimePoint {
	return FromTime(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return FromTime(tp.Time.AddDate(0, 0, n)) }
func (tp TimePoint) AddMonths(n int) TimePoint { return FromTime(tp.Time.AddDate(0, n, 0)) }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) IsSunday() bool        { return tp.Weekday() == time.Sunday }

func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ISOWeek returns the ISO 8601 week number (1-53).
func (tp TimePoint) ISOWeek() int {
	_, week := tp.Time.ISOWeek()
	return week
}

// WeekdayIndex numbers days Monday=0 ... Sunday=6.
func (tp TimePoint) WeekdayIndex() int {
	return (int(tp.Weekday()) + 6) % 7
}

func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the whole number of days from `from` to `to` (negative
// when to precedes from). It works on Unix seconds: time.Duration saturates
// past about 292 years.
func DaysBetween(from, to TimePoint) int {
	return int((to.Time.Unix() - from.Time.Unix()) / 86400)
}

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	return FromTime(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
