/*
scheduler.go - Nightly schedule materialization

PURPOSE:
  Resolves the next horizon days for every active agent so the schedule
  is pinned in the override store before anyone reads it. Reading a day
  memoizes it anyway; running ahead of time means planning views and
  statistics for the coming month hit stored rows only.

DESIGN:
  - robfig/cron drives the job (standard 5-field spec, default "0 2 * * *")
  - SkipIfStillRunning: a slow run is never stacked with the next one
  - cron's own logging (skips, recovered panics) goes to the scheduler's
    zap logger through logger.Cron
  - Each agent's horizon is resolved in one ResolveRange transaction
  - The same Materialize function backs POST /api/admin/materialize

CONFIGURATION (config.SchedulerConfig):
  - Enabled:     whether the cron job is registered
  - Cron:        cron spec
  - HorizonDays: days resolved ahead, starting today

USAGE:
  s, err := NewMaterializationScheduler(h.Resolver, store, cfg.Scheduler, log)
  s.Start()
  // ... later
  s.Stop(ctx)

SEE ALSO:
  - schedule/resolver.go: ResolveRange
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/rota-engine/config"
	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/schedule"
)

const (
	DefaultHorizonDays = 31
	MaxHorizonDays     = 366

	// runTimeout bounds one scheduled run.
	runTimeout = 4 * time.Minute
)

// Materialization reports one run.
type Materialization struct {
	Window generic.Period
	Agents int
	Days   int // agent-days resolved
}

// Materialize resolves days days from from for every active agent.
func Materialize(ctx context.Context, resolver *schedule.Resolver, dir generic.AgentDirectory, from generic.TimePoint, days int) (Materialization, error) {
	window, err := generic.NewPeriod(from, from.AddDays(days-1))
	if err != nil {
		return Materialization{}, err
	}
	agents, err := dir.ListActiveAgents(ctx)
	if err != nil {
		return Materialization{}, err
	}

	res := Materialization{Window: window}
	for _, a := range agents {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		resolved, err := resolver.ResolveRange(ctx, a.Code, window)
		if err != nil {
			return res, fmt.Errorf("materialize agent %s: %w", a.Code, err)
		}
		res.Agents++
		res.Days += len(resolved)
	}
	return res, nil
}

// MaterializationScheduler runs Materialize on a cron schedule.
type MaterializationScheduler struct {
	resolver *schedule.Resolver
	dir      generic.AgentDirectory
	horizon  int
	log      *zap.Logger
	cron     *cron.Cron
	today    func() generic.TimePoint
}

// NewMaterializationScheduler validates cfg and registers the job. The
// scheduler does nothing until Start.
func NewMaterializationScheduler(resolver *schedule.Resolver, dir generic.AgentDirectory, cfg config.SchedulerConfig, log *zap.Logger) (*MaterializationScheduler, error) {
	if cfg.HorizonDays < 1 || cfg.HorizonDays > MaxHorizonDays {
		return nil, fmt.Errorf("scheduler horizon must be in 1-%d days, got %d", MaxHorizonDays, cfg.HorizonDays)
	}

	slog := logger.OrNop(log).Named("scheduler")
	cronLog := logger.Cron(slog.Named("cron"))
	s := &MaterializationScheduler{
		resolver: resolver,
		dir:      dir,
		horizon:  cfg.HorizonDays,
		log:      slog,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		today: generic.Today,
	}
	if _, err := s.cron.AddFunc(cfg.Cron, s.run); err != nil {
		return nil, fmt.Errorf("invalid scheduler cron %q: %w", cfg.Cron, err)
	}
	return s, nil
}

func (s *MaterializationScheduler) Start() {
	s.cron.Start()
	s.log.Info("materialization scheduler started", zap.Int("horizon_days", s.horizon))
}

// Stop stops scheduling and waits for a running job, bounded by ctx.
func (s *MaterializationScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("materialization scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("materialization scheduler stop timed out")
	}
}

// NextRun returns when the job fires next (zero before Start).
func (s *MaterializationScheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *MaterializationScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.RunNow(ctx)
}

// RunNow materializes the horizon immediately.
func (s *MaterializationScheduler) RunNow(ctx context.Context) (Materialization, error) {
	start := time.Now()
	res, err := Materialize(ctx, s.resolver, s.dir, s.today(), s.horizon)
	if err != nil {
		s.log.Error("materialization failed", zap.Int("agents_done", res.Agents), zap.Error(err))
		return res, err
	}
	s.log.Info("materialization completed",
		zap.Stringer("window", res.Window),
		zap.Int("agents", res.Agents),
		zap.Int("days", res.Days),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}
