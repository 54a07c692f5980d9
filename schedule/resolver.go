/*
Package schedule resolves effective shifts and applies the mutating
workflows that override them.

PURPOSE:
  The effective shift of (agent, day) is the stored ScheduleEntry when one
  exists, whatever its origin. Otherwise it is the theoretical rotation
  shift, which is written back with origin THEORETICAL the first time it is
  read so later reads are stable even if the rotation inputs change.

KEY CONCEPTS:
  Resolver:   EffectiveShift / ResolveRange, memoize-on-read
  Operations: leave booking and cancellation, absences, manual edits, swaps
  Roster:     agent registration and edits that trigger invalidation

MEMOIZATION:
  '-' (outside the tenure window) is returned but never stored, so a later
  correction of the entry or exit date is picked up automatically.

  The write is InsertEntryIfAbsent. Two concurrent readers compute the same
  value and the second insert is a no-op; a concurrent override that lands
  between the lookup and the insert is kept, and the stored row is what
  the reader gets back.

SEE ALSO:
  - rotation/rotation.go: theoretical shifts
  - invalidation/invalidation.go: forced recomputation
*/
package schedule

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
	"github.com/warp/rota-engine/rotation"
)

// DayShift is one resolved day.
type DayShift struct {
	Date   generic.TimePoint
	Shift  generic.Shift
	Origin generic.Origin // empty for unassigned days
}

// Resolver implements the override-wins, memoize-on-read policy.
type Resolver struct {
	store   generic.TxStore
	calc    *rotation.Calculator
	log     *zap.Logger
	metrics metrics.Recorder
}

func NewResolver(store generic.TxStore, calc *rotation.Calculator, log *zap.Logger, rec metrics.Recorder) *Resolver {
	return &Resolver{
		store:   store,
		calc:    calc,
		log:     logger.OrNop(log),
		metrics: metrics.OrNop(rec),
	}
}

// EffectiveShift returns the shift in force for (code, day).
func (r *Resolver) EffectiveShift(ctx context.Context, code generic.AgentCode, day generic.TimePoint) (generic.Shift, error) {
	ds, err := r.Resolve(ctx, code, day)
	if err != nil {
		return "", err
	}
	return ds.Shift, nil
}

// Resolve is EffectiveShift returning the origin as well.
func (r *Resolver) Resolve(ctx context.Context, code generic.AgentCode, day generic.TimePoint) (DayShift, error) {
	ds, memoized, err := r.resolveIn(ctx, r.store, code, day)
	if err != nil {
		return DayShift{}, err
	}
	r.recordMemoized(memoized)
	return ds, nil
}

// resolveIn resolves against s, which is either the store itself or a
// transactional view. The returned count is the number of THEORETICAL rows
// written; the caller records it once the write is durable.
func (r *Resolver) resolveIn(ctx context.Context, s generic.Store, code generic.AgentCode, day generic.TimePoint) (DayShift, int, error) {
	entry, ok, err := s.GetEntry(ctx, code, day)
	if err != nil {
		return DayShift{}, 0, err
	}
	if ok {
		return DayShift{Date: day, Shift: entry.Shift, Origin: entry.Origin}, 0, nil
	}

	shift, err := r.calc.WithDirectory(s).TheoreticalShift(ctx, code, day)
	if err != nil {
		return DayShift{}, 0, err
	}
	if shift == generic.ShiftUnassigned {
		return DayShift{Date: day, Shift: shift}, 0, nil
	}

	return r.memoize(ctx, s, generic.ScheduleEntry{
		AgentCode: code, Date: day, Shift: shift, Origin: generic.OriginTheoretical,
	})
}

func (r *Resolver) memoize(ctx context.Context, s generic.ScheduleStore, e generic.ScheduleEntry) (DayShift, int, error) {
	stored, err := s.InsertEntryIfAbsent(ctx, e)
	if err != nil {
		r.log.Error("memoize theoretical shift failed",
			zap.String("agent", string(e.AgentCode)), zap.String("date", e.Date.String()), zap.Error(err))
		return DayShift{}, 0, err
	}
	memoized := 0
	if stored.Origin == generic.OriginTheoretical {
		memoized = 1
	}
	return DayShift{Date: e.Date, Shift: stored.Shift, Origin: stored.Origin}, memoized, nil
}

// recordMemoized reports committed memoizations.
func (r *Resolver) recordMemoized(n int) {
	if n > 0 {
		r.metrics.TheoreticalMemoized(n)
	}
}

// ResolveRange resolves every day of p for one agent in a single
// transaction. Stored rows are read once; missing days are computed and
// memoized.
func (r *Resolver) ResolveRange(ctx context.Context, code generic.AgentCode, p generic.Period) ([]DayShift, error) {
	var (
		days     []DayShift
		memoized int
	)
	err := r.store.WithTx(ctx, func(tx generic.Store) error {
		var err error
		days, memoized, err = r.resolveRangeIn(ctx, tx, code, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	if memoized > 0 {
		r.recordMemoized(memoized)
		r.log.Debug("theoretical shifts memoized",
			zap.String("agent", string(code)), zap.Stringer("period", p), zap.Int("rows", memoized))
	}
	return days, nil
}

func (r *Resolver) resolveRangeIn(ctx context.Context, s generic.Store, code generic.AgentCode, p generic.Period) ([]DayShift, int, error) {
	agent, err := s.GetAgent(ctx, code)
	if err != nil {
		return nil, 0, err
	}

	stored, err := s.ListEntries(ctx, generic.EntryFilter{AgentCode: code, From: p.Start, To: p.End})
	if err != nil {
		return nil, 0, err
	}
	byDay := make(map[string]generic.ScheduleEntry, len(stored))
	for _, e := range stored {
		byDay[e.Date.String()] = e
	}

	calc := r.calc.WithDirectory(s)
	var roster []generic.AgentCode
	if agent.Group == generic.GroupE {
		if roster, err = calc.Roster(ctx); err != nil {
			return nil, 0, err
		}
	}

	days := make([]DayShift, 0, p.Len())
	memoized := 0
	for _, day := range p.Days() {
		if e, ok := byDay[day.String()]; ok {
			days = append(days, DayShift{Date: day, Shift: e.Shift, Origin: e.Origin})
			continue
		}
		shift := rotation.Compute(agent, day, roster)
		if shift == generic.ShiftUnassigned {
			days = append(days, DayShift{Date: day, Shift: shift})
			continue
		}
		e := generic.ScheduleEntry{AgentCode: code, Date: day, Shift: shift, Origin: generic.OriginTheoretical}
		got, err := s.InsertEntryIfAbsent(ctx, e)
		if err != nil {
			return nil, 0, err
		}
		if got.Origin == generic.OriginTheoretical {
			memoized++
		}
		days = append(days, DayShift{Date: day, Shift: got.Shift, Origin: got.Origin})
	}

	return days, memoized, nil
}
