/*
Package rotation computes theoretical shifts.

PURPOSE:
  The theoretical shift is what the rotation alone says an agent works on a
  day, before any override. It is a pure function of the agent's group, the
  agent's tenure window, the date and (for group E) the current group-E
  roster. The resolver memoizes it; nothing here writes.

GROUPS A-D (continuous three-shift rotation):
  d        = date - entryDate (whole days)
  position = (d + offset) mod 8
  pattern  = 1 1 2 2 3 3 R R
  offsets  = A:0 B:2 C:4 D:6, so the four groups cover every shift every day.

GROUP E (weekday pair, shifts 1 and 2 only):
  Saturdays and Sundays are R. On weekdays the active group-E agents are
  ranked by code. With week = ISO week number and an even weekday being
  Mon/Wed/Fri (Monday = 0):

    rank 0: odd week  -> even day 1, odd day 2
            even week -> even day 2, odd day 1
    rank 1: the mirror of rank 0
    rank n>1: 1 when (n + week) is even, else 2

  Ranks 0 and 1 therefore always split shifts 1 and 2 between them, and
  swap dominance every week.

ROSTER SEMANTICS:
  The roster is read at query time. Adding or exiting a group-E agent
  changes the rotation of every non-memoized date, past ones included.

UNASSIGNED:
  Days before entry or on/after exit are '-' whatever the group.
*/
package rotation

import (
	"context"

	"github.com/warp/rota-engine/generic"
)

// CycleLength is the period of the A-D rotation in days.
const CycleLength = 8

// cyclePattern maps a cycle position to a shift.
var cyclePattern = [CycleLength]generic.Shift{
	generic.ShiftMorning, generic.ShiftMorning,
	generic.ShiftAfternoon, generic.ShiftAfternoon,
	generic.ShiftNight, generic.ShiftNight,
	generic.ShiftRest, generic.ShiftRest,
}

// groupOffsets staggers the groups so coverage is continuous.
var groupOffsets = map[generic.Group]int{
	generic.GroupA: 0,
	generic.GroupB: 2,
	generic.GroupC: 4,
	generic.GroupD: 6,
}

// Offset returns the cycle offset of a continuous-rotation group.
func Offset(g generic.Group) (int, bool) {
	off, ok := groupOffsets[g]
	return off, ok
}

// =============================================================================
// PURE COMPUTATION
// =============================================================================

// Compute returns the theoretical shift of agent on day. roster is the
// ordered list of active group-E codes and is only read for group E.
func Compute(agent generic.Agent, day generic.TimePoint, roster []generic.AgentCode) generic.Shift {
	if !agent.InTenure(day) {
		return generic.ShiftUnassigned
	}

	if offset, ok := groupOffsets[agent.Group]; ok {
		d := generic.DaysBetween(agent.EntryDate, day)
		return cyclePattern[(d+offset)%CycleLength]
	}

	if agent.Group == generic.GroupE {
		return computeGroupE(agent.Code, day, roster)
	}

	return generic.ShiftRest
}

func computeGroupE(code generic.AgentCode, day generic.TimePoint, roster []generic.AgentCode) generic.Shift {
	if day.IsWeekend() {
		return generic.ShiftRest
	}

	rank := -1
	for i, c := range roster {
		if c == code {
			rank = i
			break
		}
	}
	if rank < 0 {
		// Not an active member of the roster (exited, or roster is stale).
		return generic.ShiftRest
	}

	oddWeek := day.ISOWeek()%2 == 1
	evenDay := day.WeekdayIndex()%2 == 0

	switch rank {
	case 0:
		if oddWeek == evenDay {
			return generic.ShiftMorning
		}
		return generic.ShiftAfternoon
	case 1:
		if oddWeek == evenDay {
			return generic.ShiftAfternoon
		}
		return generic.ShiftMorning
	default:
		if (rank+day.ISOWeek())%2 == 0 {
			return generic.ShiftMorning
		}
		return generic.ShiftAfternoon
	}
}

// =============================================================================
// STORE-BACKED CALCULATOR
// =============================================================================

// Calculator looks up the agent facts and the group-E roster and applies
// Compute.
type Calculator struct {
	dir generic.AgentDirectory
}

func New(dir generic.AgentDirectory) *Calculator {
	return &Calculator{dir: dir}
}

// WithDirectory returns a calculator reading from dir; used inside
// transactions so reads see the transaction's own writes.
func (c *Calculator) WithDirectory(dir generic.AgentDirectory) *Calculator {
	return &Calculator{dir: dir}
}

// TheoreticalShift returns the rotation shift for (code, day). Unknown
// agents are NotFound.
func (c *Calculator) TheoreticalShift(ctx context.Context, code generic.AgentCode, day generic.TimePoint) (generic.Shift, error) {
	agent, err := c.dir.GetAgent(ctx, code)
	if err != nil {
		return "", err
	}
	return c.ForAgent(ctx, agent, day)
}

// ForAgent is TheoreticalShift for an agent record already in hand.
func (c *Calculator) ForAgent(ctx context.Context, agent generic.Agent, day generic.TimePoint) (generic.Shift, error) {
	var roster []generic.AgentCode
	if agent.Group == generic.GroupE && agent.InTenure(day) && !day.IsWeekend() {
		var err error
		roster, err = c.Roster(ctx)
		if err != nil {
			return "", err
		}
	}
	return Compute(agent, day, roster), nil
}

// Roster returns the active group-E codes in rank order.
func (c *Calculator) Roster(ctx context.Context) ([]generic.AgentCode, error) {
	agents, err := c.dir.ListActiveAgentsByGroup(ctx, generic.GroupE)
	if err != nil {
		return nil, err
	}
	codes := make([]generic.AgentCode, len(agents))
	for i, a := range agents {
		codes[i] = a.Code
	}
	return codes, nil
}
