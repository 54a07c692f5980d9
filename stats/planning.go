package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/holiday"
	"github.com/warp/rota-engine/schedule"
)

// =============================================================================
// PLANNING VIEWS - Month grids of effective shifts
// =============================================================================

// PlanningDay is one column header of a planning grid.
type PlanningDay struct {
	Date    generic.TimePoint
	Weekday time.Weekday
	Holiday bool
}

// PlanningRow is one agent's line; Shifts is aligned with the grid's Days.
type PlanningRow struct {
	Agent  generic.Agent
	Shifts []generic.Shift
}

type MonthlyPlanning struct {
	Year  int
	Month time.Month
	Days  []PlanningDay
	Rows  []PlanningRow
}

// AgentDay is one day of an agent's own planning.
type AgentDay struct {
	PlanningDay
	Shift  generic.Shift
	Origin generic.Origin
}

type AgentPlanning struct {
	Agent generic.Agent
	Year  int
	Month time.Month
	Days  []AgentDay
}

// Planner builds planning grids. Every cell goes through the resolver, so
// viewing a planning memoizes it.
type Planner struct {
	resolver *schedule.Resolver
	calendar *holiday.Calendar
	dir      generic.AgentDirectory
}

func NewPlanner(resolver *schedule.Resolver, calendar *holiday.Calendar, dir generic.AgentDirectory) *Planner {
	return &Planner{resolver: resolver, calendar: calendar, dir: dir}
}

func (p *Planner) header(ctx context.Context, window generic.Period) ([]PlanningDay, error) {
	holidays, err := p.calendar.HolidaysIn(ctx, window)
	if err != nil {
		return nil, err
	}
	days := make([]PlanningDay, 0, window.Len())
	for _, d := range window.Days() {
		days = append(days, PlanningDay{Date: d, Weekday: d.Weekday(), Holiday: holidays.Contains(d)})
	}
	return days, nil
}

// MonthlyPlanning returns the grid of every active agent, or of one group
// when group is non-empty. Rows are ordered by group then code.
func (p *Planner) MonthlyPlanning(ctx context.Context, year int, month time.Month, group generic.Group) (MonthlyPlanning, error) {
	window, err := monthWindow(year, month)
	if err != nil {
		return MonthlyPlanning{}, err
	}

	var agents []generic.Agent
	if group == "" {
		agents, err = p.dir.ListActiveAgents(ctx)
	} else if !group.IsValid() {
		return MonthlyPlanning{}, generic.InvalidArgument("monthly planning", fmt.Sprintf("invalid group %q", group))
	} else {
		agents, err = p.dir.ListActiveAgentsByGroup(ctx, group)
	}
	if err != nil {
		return MonthlyPlanning{}, err
	}

	header, err := p.header(ctx, window)
	if err != nil {
		return MonthlyPlanning{}, err
	}

	mp := MonthlyPlanning{Year: year, Month: month, Days: header, Rows: make([]PlanningRow, 0, len(agents))}
	for _, a := range agents {
		resolved, err := p.resolver.ResolveRange(ctx, a.Code, window)
		if err != nil {
			return MonthlyPlanning{}, err
		}
		row := PlanningRow{Agent: a, Shifts: make([]generic.Shift, len(resolved))}
		for i, d := range resolved {
			row.Shifts[i] = d.Shift
		}
		mp.Rows = append(mp.Rows, row)
	}
	return mp, nil
}

// AgentPlanning returns one agent's month with origins and holiday flags.
func (p *Planner) AgentPlanning(ctx context.Context, code generic.AgentCode, year int, month time.Month) (AgentPlanning, error) {
	window, err := monthWindow(year, month)
	if err != nil {
		return AgentPlanning{}, err
	}
	agent, err := p.dir.GetAgent(ctx, code)
	if err != nil {
		return AgentPlanning{}, err
	}
	header, err := p.header(ctx, window)
	if err != nil {
		return AgentPlanning{}, err
	}
	resolved, err := p.resolver.ResolveRange(ctx, code, window)
	if err != nil {
		return AgentPlanning{}, err
	}

	ap := AgentPlanning{Agent: agent, Year: year, Month: month, Days: make([]AgentDay, len(resolved))}
	for i, d := range resolved {
		ap.Days[i] = AgentDay{PlanningDay: header[i], Shift: d.Shift, Origin: d.Origin}
	}
	return ap, nil
}

// QuarterPlanning returns three consecutive monthly plannings starting at
// startMonth, rolling into the next year when needed.
func (p *Planner) QuarterPlanning(ctx context.Context, startMonth time.Month, year int) ([]MonthlyPlanning, error) {
	if err := generic.ValidateMonth(year, startMonth); err != nil {
		return nil, err
	}
	start := generic.StartOfMonth(year, startMonth)
	out := make([]MonthlyPlanning, 0, 3)
	for i := 0; i < 3; i++ {
		m := start.AddMonths(i)
		mp, err := p.MonthlyPlanning(ctx, m.Year(), m.Month(), "")
		if err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, nil
}
