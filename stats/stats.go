/*
Package stats aggregates resolved shifts into workload statistics.

PURPOSE:
  Read-only layer over the resolver. For a calendar month it forces every
  day of the window to be resolved (which memoizes it), classifies the
  resolved days by shift code and derives the operational total used to
  rank agents.

KEY CONCEPTS:
  Worked days:      shifts 1, 2, 3
  Holiday worked:   a worked day that IsHoliday
  Operational total (CPA):
                    group E      worked days
                    groups A-D   worked days + holidays worked
  Unassigned ('-'): days of the window outside the agent's tenure

AGGREGATES:
  Agent, group (active agents of the group) and global (all active agents)
  statistics, rankings, worked-day totals, a detailed per-agent breakdown
  and a month-over-month evolution.

CONCURRENCY:
  Group and global aggregation resolve agents concurrently through an
  errgroup with a bounded limit; results are gathered by index so the
  output order never depends on scheduling.

SEE ALSO:
  - schedule/resolver.go: ResolveRange
  - holiday/calendar.go: HolidaysIn
  - planning.go: planning grids built on the same resolution
*/
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/holiday"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/schedule"
)

// DefaultConcurrency bounds the per-agent fan-out of group and global
// aggregation.
const DefaultConcurrency = 4

// =============================================================================
// SHIFT COUNTS
// =============================================================================

// ShiftCounts classifies days by shift code.
type ShiftCounts struct {
	Morning    int
	Afternoon  int
	Night      int
	Rest       int
	Leave      int
	Sick       int
	Other      int
	Unassigned int
}

// Add counts one day.
func (c *ShiftCounts) Add(s generic.Shift) {
	switch s {
	case generic.ShiftMorning:
		c.Morning++
	case generic.ShiftAfternoon:
		c.Afternoon++
	case generic.ShiftNight:
		c.Night++
	case generic.ShiftRest:
		c.Rest++
	case generic.ShiftLeave:
		c.Leave++
	case generic.ShiftSick:
		c.Sick++
	case generic.ShiftOther:
		c.Other++
	default:
		c.Unassigned++
	}
}

// Merge adds other into c.
func (c *ShiftCounts) Merge(other ShiftCounts) {
	c.Morning += other.Morning
	c.Afternoon += other.Afternoon
	c.Night += other.Night
	c.Rest += other.Rest
	c.Leave += other.Leave
	c.Sick += other.Sick
	c.Other += other.Other
	c.Unassigned += other.Unassigned
}

// Worked is the number of 1/2/3 days.
func (c ShiftCounts) Worked() int { return c.Morning + c.Afternoon + c.Night }

// Absences is the number of C/M/A days.
func (c ShiftCounts) Absences() int { return c.Leave + c.Sick + c.Other }

// Get returns the count for one shift code.
func (c ShiftCounts) Get(s generic.Shift) int {
	switch s {
	case generic.ShiftMorning:
		return c.Morning
	case generic.ShiftAfternoon:
		return c.Afternoon
	case generic.ShiftNight:
		return c.Night
	case generic.ShiftRest:
		return c.Rest
	case generic.ShiftLeave:
		return c.Leave
	case generic.ShiftSick:
		return c.Sick
	case generic.ShiftOther:
		return c.Other
	default:
		return c.Unassigned
	}
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Totals are the derived figures shared by every aggregate level.
type Totals struct {
	WorkedDays       int
	HolidaysWorked   int
	OperationalTotal int
}

func (t *Totals) merge(o Totals) {
	t.WorkedDays += o.WorkedDays
	t.HolidaysWorked += o.HolidaysWorked
	t.OperationalTotal += o.OperationalTotal
}

type AgentStatistics struct {
	Agent  generic.Agent
	Period generic.Period
	Counts ShiftCounts
	Totals
}

type GroupStatistics struct {
	Group  generic.Group
	Period generic.Period
	Agents []AgentStatistics
	Counts ShiftCounts
	Totals
}

type GlobalStatistics struct {
	Period       generic.Period
	Groups       []GroupStatistics
	ActiveAgents map[generic.Group]int
	Counts       ShiftCounts
	Totals
}

// RankedAgent is one row of a CPA ranking.
type RankedAgent struct {
	Rank int
	AgentStatistics
}

// OperationalTotal applies the group rule to worked days and holiday credit.
func OperationalTotal(g generic.Group, worked, holidaysWorked int) int {
	if g == generic.GroupE {
		return worked
	}
	return worked + holidaysWorked
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes statistics from resolved shifts.
type Aggregator struct {
	resolver    *schedule.Resolver
	calendar    *holiday.Calendar
	dir         generic.AgentDirectory
	log         *zap.Logger
	concurrency int
}

func NewAggregator(resolver *schedule.Resolver, calendar *holiday.Calendar, dir generic.AgentDirectory, log *zap.Logger) *Aggregator {
	return &Aggregator{
		resolver:    resolver,
		calendar:    calendar,
		dir:         dir,
		log:         logger.OrNop(log),
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency returns a copy using n concurrent agents (n >= 1).
func (a *Aggregator) WithConcurrency(n int) *Aggregator {
	if n < 1 {
		n = 1
	}
	c := *a
	c.concurrency = n
	return &c
}

func monthWindow(year int, month time.Month) (generic.Period, error) {
	if err := generic.ValidateMonth(year, month); err != nil {
		return generic.Period{}, err
	}
	return generic.MonthPeriod(year, month), nil
}

// AgentStatistics returns one agent's statistics for a month.
func (a *Aggregator) AgentStatistics(ctx context.Context, code generic.AgentCode, year int, month time.Month) (AgentStatistics, error) {
	p, err := monthWindow(year, month)
	if err != nil {
		return AgentStatistics{}, err
	}
	agent, err := a.dir.GetAgent(ctx, code)
	if err != nil {
		return AgentStatistics{}, err
	}
	holidays, err := a.calendar.HolidaysIn(ctx, p)
	if err != nil {
		return AgentStatistics{}, err
	}
	st, _, err := a.forAgent(ctx, agent, p, holidays)
	return st, err
}

// forAgent resolves p for agent and classifies it. The resolved days are
// returned for callers needing more than the counts.
func (a *Aggregator) forAgent(ctx context.Context, agent generic.Agent, p generic.Period, holidays holiday.Set) (AgentStatistics, []schedule.DayShift, error) {
	days, err := a.resolver.ResolveRange(ctx, agent.Code, p)
	if err != nil {
		return AgentStatistics{}, nil, err
	}

	st := AgentStatistics{Agent: agent, Period: p}
	for _, d := range days {
		st.Counts.Add(d.Shift)
		if d.Shift.IsWorked() && holidays.Contains(d.Date) {
			st.HolidaysWorked++
		}
	}
	st.WorkedDays = st.Counts.Worked()
	st.OperationalTotal = OperationalTotal(agent.Group, st.WorkedDays, st.HolidaysWorked)
	return st, days, nil
}

// forAgents aggregates agents concurrently, preserving input order.
func (a *Aggregator) forAgents(ctx context.Context, agents []generic.Agent, p generic.Period, holidays holiday.Set) ([]AgentStatistics, error) {
	out := make([]AgentStatistics, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, agent := range agents {
		g.Go(func() error {
			st, _, err := a.forAgent(gctx, agent, p, holidays)
			if err != nil {
				return fmt.Errorf("statistics for agent %s: %w", agent.Code, err)
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.log.Error("statistics aggregation failed", zap.Stringer("period", p), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func groupOf(g generic.Group, p generic.Period, agents []AgentStatistics) GroupStatistics {
	gs := GroupStatistics{Group: g, Period: p, Agents: agents}
	for _, st := range agents {
		gs.Counts.Merge(st.Counts)
		gs.Totals.merge(st.Totals)
	}
	return gs
}

// GroupStatistics sums the statistics of the group's active agents.
func (a *Aggregator) GroupStatistics(ctx context.Context, g generic.Group, year int, month time.Month) (GroupStatistics, error) {
	if !g.IsValid() {
		return GroupStatistics{}, generic.InvalidArgument("group statistics", fmt.Sprintf("invalid group %q", g))
	}
	p, err := monthWindow(year, month)
	if err != nil {
		return GroupStatistics{}, err
	}
	agents, err := a.dir.ListActiveAgentsByGroup(ctx, g)
	if err != nil {
		return GroupStatistics{}, err
	}
	holidays, err := a.calendar.HolidaysIn(ctx, p)
	if err != nil {
		return GroupStatistics{}, err
	}
	sts, err := a.forAgents(ctx, agents, p, holidays)
	if err != nil {
		return GroupStatistics{}, err
	}
	return groupOf(g, p, sts), nil
}

// GlobalStatistics sums every active agent, broken down by group.
func (a *Aggregator) GlobalStatistics(ctx context.Context, year int, month time.Month) (GlobalStatistics, error) {
	p, err := monthWindow(year, month)
	if err != nil {
		return GlobalStatistics{}, err
	}
	agents, err := a.dir.ListActiveAgents(ctx)
	if err != nil {
		return GlobalStatistics{}, err
	}
	holidays, err := a.calendar.HolidaysIn(ctx, p)
	if err != nil {
		return GlobalStatistics{}, err
	}
	sts, err := a.forAgents(ctx, agents, p, holidays)
	if err != nil {
		return GlobalStatistics{}, err
	}

	gs := GlobalStatistics{Period: p, ActiveAgents: make(map[generic.Group]int, len(generic.Groups))}
	byGroup := make(map[generic.Group][]AgentStatistics)
	for _, st := range sts {
		byGroup[st.Agent.Group] = append(byGroup[st.Agent.Group], st)
	}
	for _, g := range generic.Groups {
		gs.ActiveAgents[g] = len(byGroup[g])
		group := groupOf(g, p, byGroup[g])
		gs.Groups = append(gs.Groups, group)
		gs.Counts.Merge(group.Counts)
		gs.Totals.merge(group.Totals)
	}
	return gs, nil
}

// GroupRanking orders the group's agents by operational total descending,
// ties broken by code ascending. Ranks are 1-based and unique.
func (a *Aggregator) GroupRanking(ctx context.Context, g generic.Group, year int, month time.Month) ([]RankedAgent, error) {
	gs, err := a.GroupStatistics(ctx, g, year, month)
	if err != nil {
		return nil, err
	}
	return Rank(gs.Agents), nil
}

// Rank sorts statistics into a CPA ranking.
func Rank(sts []AgentStatistics) []RankedAgent {
	sorted := append([]AgentStatistics(nil), sts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OperationalTotal != sorted[j].OperationalTotal {
			return sorted[i].OperationalTotal > sorted[j].OperationalTotal
		}
		return sorted[i].Agent.Code < sorted[j].Agent.Code
	})
	ranked := make([]RankedAgent, len(sorted))
	for i, st := range sorted {
		ranked[i] = RankedAgent{Rank: i + 1, AgentStatistics: st}
	}
	return ranked
}

// =============================================================================
// WORKED DAYS
// =============================================================================

type AgentWorkedDays struct {
	Agent      generic.Agent
	WorkedDays int
}

type GroupWorkedDays struct {
	Group  generic.Group
	Agents []AgentWorkedDays
	Total  int
}

type GlobalWorkedDays struct {
	Period generic.Period
	Groups []GroupWorkedDays
	Total  int
}

func workedOf(g generic.Group, sts []AgentStatistics) GroupWorkedDays {
	gw := GroupWorkedDays{Group: g, Agents: make([]AgentWorkedDays, len(sts))}
	for i, st := range sts {
		gw.Agents[i] = AgentWorkedDays{Agent: st.Agent, WorkedDays: st.WorkedDays}
		gw.Total += st.WorkedDays
	}
	return gw
}

// WorkedDaysForGroup counts 1/2/3 days per agent of the group.
func (a *Aggregator) WorkedDaysForGroup(ctx context.Context, g generic.Group, year int, month time.Month) (GroupWorkedDays, error) {
	gs, err := a.GroupStatistics(ctx, g, year, month)
	if err != nil {
		return GroupWorkedDays{}, err
	}
	return workedOf(g, gs.Agents), nil
}

// WorkedDaysGlobal counts 1/2/3 days for every group.
func (a *Aggregator) WorkedDaysGlobal(ctx context.Context, year int, month time.Month) (GlobalWorkedDays, error) {
	gs, err := a.GlobalStatistics(ctx, year, month)
	if err != nil {
		return GlobalWorkedDays{}, err
	}
	out := GlobalWorkedDays{Period: gs.Period}
	for _, group := range gs.Groups {
		gw := workedOf(group.Group, group.Agents)
		out.Groups = append(out.Groups, gw)
		out.Total += gw.Total
	}
	return out, nil
}

// =============================================================================
// DETAILED STATISTICS AND EVOLUTION
// =============================================================================

// WeekdayCounts is the breakdown for one day of the week.
type WeekdayCounts struct {
	Weekday time.Weekday
	Counts  ShiftCounts
}

type DetailedStatistics struct {
	AgentStatistics
	Days         int
	PresenceRate decimal.Decimal // worked days / days * 100, one decimal
	ByWeekday    []WeekdayCounts // Monday first
}

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// DetailedAgentStatistics adds the presence rate and a per-weekday breakdown.
func (a *Aggregator) DetailedAgentStatistics(ctx context.Context, code generic.AgentCode, year int, month time.Month) (DetailedStatistics, error) {
	p, err := monthWindow(year, month)
	if err != nil {
		return DetailedStatistics{}, err
	}
	agent, err := a.dir.GetAgent(ctx, code)
	if err != nil {
		return DetailedStatistics{}, err
	}
	holidays, err := a.calendar.HolidaysIn(ctx, p)
	if err != nil {
		return DetailedStatistics{}, err
	}
	st, days, err := a.forAgent(ctx, agent, p, holidays)
	if err != nil {
		return DetailedStatistics{}, err
	}

	byDay := make(map[time.Weekday]*ShiftCounts, 7)
	for _, wd := range weekOrder {
		byDay[wd] = &ShiftCounts{}
	}
	for _, d := range days {
		byDay[d.Date.Weekday()].Add(d.Shift)
	}

	out := DetailedStatistics{
		AgentStatistics: st,
		Days:            p.Len(),
		PresenceRate:    Percent(st.WorkedDays, p.Len()),
	}
	for _, wd := range weekOrder {
		out.ByWeekday = append(out.ByWeekday, WeekdayCounts{Weekday: wd, Counts: *byDay[wd]})
	}
	return out, nil
}

// Percent returns part/whole*100 rounded to one decimal, 0 for an empty whole.
func Percent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1)
}

// MonthTotal is one point of an evolution series.
type MonthTotal struct {
	Year             int
	Month            time.Month
	WorkedDays       int
	OperationalTotal int
}

type Evolution struct {
	Agent  generic.Agent
	Months []MonthTotal // oldest first
	Trend  decimal.Decimal
}

// MaxEvolutionMonths bounds Evolution's window.
const MaxEvolutionMonths = 24

// Evolution returns the operational total of the `months` months ending
// with asOf's month, and the trend (last - first) / first * 100.
func (a *Aggregator) Evolution(ctx context.Context, code generic.AgentCode, months int, asOf generic.TimePoint) (Evolution, error) {
	if months < 1 || months > MaxEvolutionMonths {
		return Evolution{}, generic.InvalidArgument("evolution",
			fmt.Sprintf("months must be in 1-%d, got %d", MaxEvolutionMonths, months))
	}
	if asOf.IsZero() {
		asOf = generic.Today()
	}
	agent, err := a.dir.GetAgent(ctx, code)
	if err != nil {
		return Evolution{}, err
	}

	first := generic.StartOfMonth(asOf.Year(), asOf.Month()).AddMonths(-(months - 1))
	holidays, err := a.calendar.HolidaysIn(ctx, generic.Period{Start: first, End: generic.EndOfMonth(asOf.Year(), asOf.Month())})
	if err != nil {
		return Evolution{}, err
	}

	ev := Evolution{Agent: agent}
	for i := 0; i < months; i++ {
		m := first.AddMonths(i)
		st, _, err := a.forAgent(ctx, agent, generic.MonthPeriod(m.Year(), m.Month()), holidays)
		if err != nil {
			return Evolution{}, err
		}
		ev.Months = append(ev.Months, MonthTotal{
			Year:             m.Year(),
			Month:            m.Month(),
			WorkedDays:       st.WorkedDays,
			OperationalTotal: st.OperationalTotal,
		})
	}

	firstTotal := ev.Months[0].OperationalTotal
	lastTotal := ev.Months[len(ev.Months)-1].OperationalTotal
	ev.Trend = Percent(lastTotal-firstTotal, firstTotal)
	return ev, nil
}
