/*
Package holiday decides whether a date is a paid holiday.

PURPOSE:
  A date is a holiday when it matches one of the nine fixed annual
  (month, day) rules or a manually registered Holiday row. Fixed holidays
  are never stored; they are materialized per year on demand.

  Holiday status does not change the rotation shift. It feeds the
  statistics layer (holiday-worked credit). Changing the holiday set still
  invalidates memoized theoretical rows for the date, so stored state is
  always computed under the current holiday facts.

OPERATIONS:
  IsHoliday(date)          fixed table or manual row
  AddHoliday(date, desc)   idempotent upsert; invalidates the date when new
  RemoveHoliday(date)      delete manual row; invalidates the date when removed
  ListHolidays(year)       fixed + manual for the year, ascending by date
  HolidaysIn(period)       date set for bulk lookups (statistics, planning)

SEE ALSO:
  - invalidation/invalidation.go
*/
package holiday

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/invalidation"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
)

// FixedHoliday is a (month, day) rule repeating every year.
type FixedHoliday struct {
	Month       time.Month
	Day         int
	Description string
}

// FixedHolidays is the constant annual table.
var FixedHolidays = []FixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.January, 11, "Independence Manifesto Day"},
	{time.May, 1, "Labour Day"},
	{time.July, 30, "Throne Day"},
	{time.August, 14, "Oued Ed-Dahab Allegiance Day"},
	{time.August, 20, "Revolution of the King and the People"},
	{time.August, 21, "Youth Day"},
	{time.November, 6, "Green March"},
	{time.November, 18, "Independence Day"},
}

// Kind distinguishes where a listed holiday comes from.
type Kind string

const (
	KindFixed  Kind = "fixed"
	KindManual Kind = "manual"
)

// Entry is one materialized holiday.
type Entry struct {
	Date        generic.TimePoint
	Description string
	Kind        Kind
}

// IsFixed reports whether day matches the fixed table.
func IsFixed(day generic.TimePoint) bool {
	_, ok := fixedFor(day)
	return ok
}

func fixedFor(day generic.TimePoint) (FixedHoliday, bool) {
	for _, f := range FixedHolidays {
		if day.Month() == f.Month && day.Day() == f.Day {
			return f, true
		}
	}
	return FixedHoliday{}, false
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar combines the fixed table with the manual Holiday store.
type Calendar struct {
	store       generic.TxStore
	invalidator *invalidation.Engine
	log         *zap.Logger
}

func NewCalendar(store generic.TxStore, inv *invalidation.Engine, log *zap.Logger) *Calendar {
	return &Calendar{store: store, invalidator: inv, log: logger.OrNop(log)}
}

// IsHoliday reports whether day is a fixed or manual holiday.
func (c *Calendar) IsHoliday(ctx context.Context, day generic.TimePoint) (bool, error) {
	if IsFixed(day) {
		return true, nil
	}
	_, ok, err := c.store.GetHoliday(ctx, day)
	return ok, err
}

// AddHoliday registers a manual holiday. Re-adding a date only updates its
// description.
func (c *Calendar) AddHoliday(ctx context.Context, day generic.TimePoint, description string) (bool, error) {
	description = strings.TrimSpace(description)
	if day.IsZero() {
		return false, generic.InvalidArgument("add holiday", "date is required")
	}
	if description == "" {
		return false, generic.InvalidArgument("add holiday", "description is required")
	}

	var (
		created     bool
		invalidated int
	)
	err := c.store.WithTx(ctx, func(tx generic.Store) error {
		var err error
		created, err = tx.SaveHoliday(ctx, generic.Holiday{Date: day, Description: description})
		if err != nil {
			return err
		}
		if created {
			invalidated, err = c.invalidator.InvalidateTheoretical(ctx, tx, day, metrics.ReasonHolidayAdded)
		}
		return err
	})
	if err != nil {
		return false, err
	}
	c.invalidator.Record(metrics.ReasonHolidayAdded, invalidated)

	c.log.Info("holiday saved",
		zap.String("date", day.String()), zap.String("description", description), zap.Bool("created", created))
	return created, nil
}

// RemoveResult reports what RemoveHoliday did.
type RemoveResult struct {
	Removed     bool
	Invalidated int
}

// RemoveHoliday deletes a manual holiday. When a row was deleted, the
// date's memoized theoretical rows are invalidated in the same transaction.
// Fixed holidays cannot be removed; the call is a no-op for them.
func (c *Calendar) RemoveHoliday(ctx context.Context, day generic.TimePoint) (RemoveResult, error) {
	var res RemoveResult
	err := c.store.WithTx(ctx, func(tx generic.Store) error {
		removed, err := tx.DeleteHoliday(ctx, day)
		if err != nil || !removed {
			return err
		}
		res.Removed = true
		res.Invalidated, err = c.invalidator.InvalidateTheoretical(ctx, tx, day, metrics.ReasonHolidayRemoved)
		return err
	})
	if err != nil {
		return RemoveResult{}, err
	}
	c.invalidator.Record(metrics.ReasonHolidayRemoved, res.Invalidated)

	c.log.Info("holiday removed",
		zap.String("date", day.String()), zap.Bool("removed", res.Removed), zap.Int("invalidated", res.Invalidated))
	return res, nil
}

// ListHolidays returns the year's fixed and manual holidays sorted by date.
// A manual row on a fixed date is listed once, as fixed.
func (c *Calendar) ListHolidays(ctx context.Context, year int) ([]Entry, error) {
	if year < 1900 || year > 9999 {
		return nil, generic.InvalidArgument("list holidays", fmt.Sprintf("year %d out of range", year))
	}

	entries := make([]Entry, 0, len(FixedHolidays))
	for _, f := range FixedHolidays {
		entries = append(entries, Entry{
			Date:        generic.NewTimePoint(year, f.Month, f.Day),
			Description: f.Description,
			Kind:        KindFixed,
		})
	}

	manual, err := c.store.ListHolidays(ctx, generic.StartOfYear(year), generic.EndOfYear(year))
	if err != nil {
		return nil, err
	}
	for _, h := range manual {
		if IsFixed(h.Date) {
			continue
		}
		entries = append(entries, Entry{Date: h.Date, Description: h.Description, Kind: KindManual})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

// Set is a date lookup built for a period.
type Set map[string]struct{}

func (s Set) Contains(day generic.TimePoint) bool {
	_, ok := s[day.String()]
	return ok
}

// HolidaysIn returns every holiday date within p in one store read.
func (c *Calendar) HolidaysIn(ctx context.Context, p generic.Period) (Set, error) {
	set := Set{}
	for _, day := range p.Days() {
		if IsFixed(day) {
			set[day.String()] = struct{}{}
		}
	}
	manual, err := c.store.ListHolidays(ctx, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	for _, h := range manual {
		set[h.Date.String()] = struct{}{}
	}
	return set, nil
}
