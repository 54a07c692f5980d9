package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/invalidation"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
)

// =============================================================================
// OPERATIONS - Mutating workflows writing into the override store
// =============================================================================

// Operations applies leave, absence, manual and swap writes. Every
// operation runs in one transaction: it either commits whole or leaves the
// store as it was.
type Operations struct {
	store       generic.TxStore
	resolver    *Resolver
	invalidator *invalidation.Engine
	log         *zap.Logger
	metrics     metrics.Recorder
	now         func() time.Time
}

func NewOperations(store generic.TxStore, resolver *Resolver, inv *invalidation.Engine, log *zap.Logger, rec metrics.Recorder) *Operations {
	return &Operations{
		store:       store,
		resolver:    resolver,
		invalidator: inv,
		log:         logger.OrNop(log),
		metrics:     metrics.OrNop(rec),
		now:         time.Now,
	}
}

// activeAgent loads code and fails with NotFound unless it is active.
func activeAgent(ctx context.Context, s generic.AgentDirectory, op string, code generic.AgentCode) (generic.Agent, error) {
	agent, err := s.GetAgent(ctx, code)
	if generic.IsNotFound(err) {
		return generic.Agent{}, generic.AgentInactive(op, code)
	}
	if err != nil {
		return generic.Agent{}, err
	}
	if !agent.IsActive() {
		return generic.Agent{}, generic.AgentInactive(op, code)
	}
	return agent, nil
}

// =============================================================================
// LEAVE PERIODS
// =============================================================================

// LeaveBooking is the result of BookLeavePeriod.
type LeaveBooking struct {
	Period    generic.LeavePeriod
	LeaveDays int // days written as C (Sundays excluded)
	Duration  int // calendar days in the period
}

// BookLeavePeriod records a leave request and expands it: Sundays become R
// tagged LEAVE_SUNDAY, every other day C tagged LEAVE_PERIOD. Existing rows
// on those days are replaced.
func (o *Operations) BookLeavePeriod(ctx context.Context, code generic.AgentCode, start, end generic.TimePoint) (LeaveBooking, error) {
	const op = "book leave period"

	p, err := generic.NewPeriod(start, end)
	if err != nil {
		return LeaveBooking{}, err
	}

	booking := LeaveBooking{
		Period: generic.LeavePeriod{
			ID:        uuid.NewString(),
			AgentCode: code,
			Start:     p.Start,
			End:       p.End,
			CreatedAt: o.now().UTC(),
		},
		Duration: p.Len(),
	}
	sundays := 0

	err = o.store.WithTx(ctx, func(tx generic.Store) error {
		if _, err := activeAgent(ctx, tx, op, code); err != nil {
			return err
		}
		if err := tx.SaveLeavePeriod(ctx, booking.Period); err != nil {
			return err
		}
		for _, day := range p.Days() {
			e := generic.ScheduleEntry{AgentCode: code, Date: day, Shift: generic.ShiftLeave, Origin: generic.OriginLeavePeriod}
			if day.IsSunday() {
				e.Shift, e.Origin = generic.ShiftRest, generic.OriginLeaveSunday
				sundays++
			}
			if err := tx.UpsertEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		o.log.Warn("leave booking failed", zap.String("agent", string(code)), zap.Stringer("period", p), zap.Error(err))
		return LeaveBooking{}, err
	}

	booking.LeaveDays = booking.Duration - sundays
	o.metrics.OverrideWritten(string(generic.OriginLeavePeriod), booking.LeaveDays)
	o.metrics.OverrideWritten(string(generic.OriginLeaveSunday), sundays)
	o.log.Info("leave period booked",
		zap.String("agent", string(code)),
		zap.String("id", booking.Period.ID),
		zap.Stringer("period", p),
		zap.Int("leave_days", booking.LeaveDays),
	)
	return booking, nil
}

// LeaveCancellation is the result of CancelLeavePeriod.
type LeaveCancellation struct {
	PeriodsDeleted int
	EntriesDeleted int
	Invalidated    int
}

// CancelLeavePeriod deletes the period with exactly this start and end, the
// LEAVE_PERIOD/LEAVE_SUNDAY rows inside [start, end], and any THEORETICAL
// rows inside it so the days are recomputed. Rows of other origins in the
// range stay.
//
// The range cleanup runs even when no booked period matches exactly, so a
// sub-range of a longer leave can be handed back to the rotation. The
// booked period itself is kept in that case and PeriodsDeleted is 0.
func (o *Operations) CancelLeavePeriod(ctx context.Context, code generic.AgentCode, start, end generic.TimePoint) (LeaveCancellation, error) {
	p, err := generic.NewPeriod(start, end)
	if err != nil {
		return LeaveCancellation{}, err
	}

	var res LeaveCancellation
	err = o.store.WithTx(ctx, func(tx generic.Store) error {
		res.PeriodsDeleted, err = tx.DeleteLeavePeriod(ctx, code, p.Start, p.End)
		if err != nil {
			return err
		}
		res.EntriesDeleted, err = tx.DeleteEntries(ctx, generic.EntryFilter{
			AgentCode: code,
			From:      p.Start,
			To:        p.End,
			Origins:   []generic.Origin{generic.OriginLeavePeriod, generic.OriginLeaveSunday},
		})
		if err != nil {
			return err
		}
		res.Invalidated, err = o.invalidator.InvalidateRange(ctx, tx, code, p, metrics.ReasonLeaveCancelled)
		return err
	})
	if err != nil {
		o.log.Warn("leave cancellation failed", zap.String("agent", string(code)), zap.Stringer("period", p), zap.Error(err))
		return LeaveCancellation{}, err
	}

	o.invalidator.Record(metrics.ReasonLeaveCancelled, res.Invalidated)
	o.log.Info("leave period cancelled",
		zap.String("agent", string(code)),
		zap.Stringer("period", p),
		zap.Int("periods", res.PeriodsDeleted),
		zap.Int("entries", res.EntriesDeleted),
	)
	return res, nil
}

// LeaveSummary is a booked period with its span.
type LeaveSummary struct {
	generic.LeavePeriod
	Duration int
}

// ListLeavePeriods returns the agent's booked periods ordered by start.
func (o *Operations) ListLeavePeriods(ctx context.Context, code generic.AgentCode) ([]LeaveSummary, error) {
	if _, err := o.store.GetAgent(ctx, code); err != nil {
		return nil, err
	}
	periods, err := o.store.ListLeavePeriods(ctx, code)
	if err != nil {
		return nil, err
	}
	out := make([]LeaveSummary, len(periods))
	for i, lp := range periods {
		out[i] = LeaveSummary{LeavePeriod: lp, Duration: lp.Period().Len()}
	}
	return out, nil
}

// =============================================================================
// SINGLE-DAY WRITES
// =============================================================================

// RecordAbsence marks one day as C, M or A with origin ABSENCE.
func (o *Operations) RecordAbsence(ctx context.Context, code generic.AgentCode, day generic.TimePoint, kind generic.Shift) error {
	if !kind.IsAbsence() {
		return generic.InvalidArgument("record absence",
			fmt.Sprintf("invalid absence kind %q (use C, M or A)", kind))
	}
	return o.writeSingle(ctx, "record absence", generic.ScheduleEntry{
		AgentCode: code, Date: day, Shift: kind, Origin: generic.OriginAbsence,
	})
}

// SetManualShift forces one day to shift with origin MANUAL.
func (o *Operations) SetManualShift(ctx context.Context, code generic.AgentCode, day generic.TimePoint, shift generic.Shift) error {
	if !shift.IsStorable() {
		return generic.InvalidArgument("set manual shift",
			fmt.Sprintf("invalid shift %q (use 1, 2, 3, R, C, M or A)", shift))
	}
	return o.writeSingle(ctx, "set manual shift", generic.ScheduleEntry{
		AgentCode: code, Date: day, Shift: shift, Origin: generic.OriginManual,
	})
}

func (o *Operations) writeSingle(ctx context.Context, op string, e generic.ScheduleEntry) error {
	if e.Date.IsZero() {
		return generic.InvalidArgument(op, "date is required")
	}
	err := o.store.WithTx(ctx, func(tx generic.Store) error {
		if _, err := activeAgent(ctx, tx, op, e.AgentCode); err != nil {
			return err
		}
		return tx.UpsertEntry(ctx, e)
	})
	if err != nil {
		return err
	}

	o.metrics.OverrideWritten(string(e.Origin), 1)
	o.log.Info(op,
		zap.String("agent", string(e.AgentCode)),
		zap.String("date", e.Date.String()),
		zap.String("shift", string(e.Shift)),
	)
	return nil
}

// =============================================================================
// SWAP
// =============================================================================

// SwapResult reports the shifts in force after SwapShifts.
type SwapResult struct {
	Date    generic.TimePoint
	AgentA  generic.AgentCode
	ShiftA  generic.Shift
	AgentB  generic.AgentCode
	ShiftB  generic.Shift
	Swapped bool // false when both already held the same shift
}

// SwapShifts exchanges the effective shifts of two agents on one day. Both
// rows are written with origin SWAP in the same transaction. Equal shifts
// are reported as a no-op.
func (o *Operations) SwapShifts(ctx context.Context, a, b generic.AgentCode, day generic.TimePoint) (SwapResult, error) {
	const op = "swap shifts"

	if a == b {
		return SwapResult{}, generic.InvalidArgument(op, "cannot swap an agent with itself")
	}
	if day.IsZero() {
		return SwapResult{}, generic.InvalidArgument(op, "date is required")
	}

	res := SwapResult{Date: day, AgentA: a, AgentB: b}
	memoized := 0
	err := o.store.WithTx(ctx, func(tx generic.Store) error {
		for _, code := range []generic.AgentCode{a, b} {
			if _, err := tx.GetAgent(ctx, code); err != nil {
				return err
			}
		}

		dsA, nA, err := o.resolver.resolveIn(ctx, tx, a, day)
		if err != nil {
			return err
		}
		dsB, nB, err := o.resolver.resolveIn(ctx, tx, b, day)
		if err != nil {
			return err
		}
		memoized = nA + nB
		if dsA.Shift == generic.ShiftUnassigned || dsB.Shift == generic.ShiftUnassigned {
			return generic.InvalidArgument(op,
				fmt.Sprintf("agent %s or %s is not assigned on %s", a, b, day))
		}

		if dsA.Shift == dsB.Shift {
			res.ShiftA, res.ShiftB = dsA.Shift, dsB.Shift
			return nil
		}

		if err := tx.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: a, Date: day, Shift: dsB.Shift, Origin: generic.OriginSwap}); err != nil {
			return err
		}
		if err := tx.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: b, Date: day, Shift: dsA.Shift, Origin: generic.OriginSwap}); err != nil {
			return err
		}
		res.ShiftA, res.ShiftB, res.Swapped = dsB.Shift, dsA.Shift, true
		return nil
	})
	if err != nil {
		o.metrics.SwapAttempted(metrics.SwapFailed)
		o.log.Warn("swap failed",
			zap.String("agent_a", string(a)), zap.String("agent_b", string(b)),
			zap.String("date", day.String()), zap.Error(err))
		return SwapResult{}, err
	}

	if !res.Swapped {
		// Only a no-op keeps the rows memoized while checking.
		o.resolver.recordMemoized(memoized)
		o.metrics.SwapAttempted(metrics.SwapNoop)
		o.log.Info("swap skipped, shifts already equal",
			zap.String("agent_a", string(a)), zap.String("agent_b", string(b)), zap.String("date", day.String()))
		return res, nil
	}

	o.metrics.SwapAttempted(metrics.SwapApplied)
	o.metrics.OverrideWritten(string(generic.OriginSwap), 2)
	o.log.Info("shifts swapped",
		zap.String("agent_a", string(a)), zap.String("shift_a", string(res.ShiftA)),
		zap.String("agent_b", string(b)), zap.String("shift_b", string(res.ShiftB)),
		zap.String("date", day.String()))
	return res, nil
}
