/*
Package invalidation deletes memoized theoretical shifts whose inputs changed.

PURPOSE:
  The resolver pins a theoretical shift the first time it is read. When a
  fact the computation depends on changes afterwards (a holiday is added or
  removed, an agent's group or entry date is edited, a leave is cancelled),
  the affected THEORETICAL rows are deleted so the next read recomputes them.

  Only THEORETICAL rows are ever deleted here. Overrides (MANUAL, ABSENCE,
  LEAVE_*, SWAP) survive every invalidation.

TRANSACTIONS:
  The Invalidate* methods take the ScheduleStore to act on, so callers pass
  the transactional view when the invalidation must commit together with
  the change that triggered it. They only delete. The caller reports the
  deleted count with Record once its transaction has committed, so a
  rolled-back change never shows up in the counters.

SEE ALSO:
  - holiday/calendar.go: invalidates on holiday changes
  - schedule/roster.go: invalidates on agent edits
*/
package invalidation

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
)

// Engine performs invalidations and reports them.
type Engine struct {
	log     *zap.Logger
	metrics metrics.Recorder
}

func New(log *zap.Logger, rec metrics.Recorder) *Engine {
	return &Engine{log: logger.OrNop(log), metrics: metrics.OrNop(rec)}
}

var theoreticalOnly = []generic.Origin{generic.OriginTheoretical}

// InvalidateTheoretical deletes every THEORETICAL row dated day, across all
// agents, and returns how many were deleted.
func (e *Engine) InvalidateTheoretical(ctx context.Context, s generic.ScheduleStore, day generic.TimePoint, reason string) (int, error) {
	n, err := s.DeleteEntries(ctx, generic.EntryFilter{
		From:    day,
		To:      day,
		Origins: theoreticalOnly,
	})
	if err != nil {
		e.log.Error("invalidate date failed", zap.String("date", day.String()), zap.Error(err))
		return 0, err
	}
	e.log.Debug("theoretical rows deleted",
		zap.String("date", day.String()), zap.String("reason", reason), zap.Int("rows", n))
	return n, nil
}

// InvalidateAgentTheoretical deletes every THEORETICAL row of one agent.
func (e *Engine) InvalidateAgentTheoretical(ctx context.Context, s generic.ScheduleStore, code generic.AgentCode, reason string) (int, error) {
	n, err := s.DeleteEntries(ctx, generic.EntryFilter{
		AgentCode: code,
		Origins:   theoreticalOnly,
	})
	if err != nil {
		e.log.Error("invalidate agent failed", zap.String("agent", string(code)), zap.Error(err))
		return 0, err
	}
	e.log.Debug("theoretical rows deleted",
		zap.String("agent", string(code)), zap.String("reason", reason), zap.Int("rows", n))
	return n, nil
}

// InvalidateRange deletes THEORETICAL rows of one agent within period.
func (e *Engine) InvalidateRange(ctx context.Context, s generic.ScheduleStore, code generic.AgentCode, p generic.Period, reason string) (int, error) {
	n, err := s.DeleteEntries(ctx, generic.EntryFilter{
		AgentCode: code,
		From:      p.Start,
		To:        p.End,
		Origins:   theoreticalOnly,
	})
	if err != nil {
		e.log.Error("invalidate range failed",
			zap.String("agent", string(code)), zap.Stringer("period", p), zap.Error(err))
		return 0, err
	}
	e.log.Debug("theoretical rows deleted",
		zap.String("agent", string(code)), zap.Stringer("period", p), zap.String("reason", reason), zap.Int("rows", n))
	return n, nil
}

// Record reports n committed invalidations. Call it after the transaction
// that deleted the rows has committed.
func (e *Engine) Record(reason string, n int) {
	if n == 0 {
		return
	}
	e.metrics.TheoreticalInvalidated(reason, n)
}
