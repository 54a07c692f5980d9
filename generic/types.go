/*
Package generic provides the vocabulary shared by every part of the shift
resolution engine.

PURPOSE:
  The engine answers one question: which shift does an agent work on a given
  calendar day? The answer combines a deterministic rotation with manual and
  event-driven overrides, and is pinned in durable storage once read. This
  package holds the types every component agrees on, so the rotation
  calculator, the resolver, the statistics layer and the stores never
  depend on each other's internals.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift: the code in force for a day (1/2/3 worked, R rest, C/M/A absence)
  - Origin: which operation wrote a schedule entry (auditing only)
  - Group: the rotation family an agent belongs to (A-E)
  - Agent: registry facts the rotation depends on (group, tenure window)
  - ScheduleEntry: one stored (agent, day) -> (shift, origin) row
  - LeavePeriod: a booked leave request, expanded into entries
  - Holiday: a manually registered holiday

PRECEDENCE:
  A stored ScheduleEntry always wins over recomputation, whatever its origin.
  THEORETICAL rows are memoized rotation results and are the only rows the
  invalidation engine deletes.

SEE ALSO:
  - time.go, period.go: day arithmetic
  - errors.go: error kinds
  - store.go: persistence interfaces
*/
package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SHIFT - Code in force for one agent on one day
// =============================================================================

type Shift string

const (
	ShiftMorning    Shift = "1"
	ShiftAfternoon  Shift = "2"
	ShiftNight      Shift = "3"
	ShiftRest       Shift = "R"
	ShiftLeave      Shift = "C"
	ShiftSick       Shift = "M"
	ShiftOther      Shift = "A"
	ShiftUnassigned Shift = "-" // outside the agent's tenure window, never stored
)

// StoredShifts lists every code a ScheduleEntry may hold, in reporting order.
var StoredShifts = []Shift{
	ShiftMorning, ShiftAfternoon, ShiftNight, ShiftRest, ShiftLeave, ShiftSick, ShiftOther,
}

// AllShifts is StoredShifts plus the unassigned marker.
var AllShifts = append(append([]Shift{}, StoredShifts...), ShiftUnassigned)

// IsWorked reports whether the shift counts as a worked day.
func (s Shift) IsWorked() bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftNight
}

// IsAbsence reports whether the shift is one of the absence kinds.
func (s Shift) IsAbsence() bool {
	return s == ShiftLeave || s == ShiftSick || s == ShiftOther
}

// IsStorable reports whether the shift may be written as an override.
func (s Shift) IsStorable() bool {
	for _, v := range StoredShifts {
		if s == v {
			return true
		}
	}
	return false
}

// ParseShift normalizes user input ("r" -> "R") and validates it.
func ParseShift(s string) (Shift, error) {
	shift := Shift(strings.ToUpper(strings.TrimSpace(s)))
	if !shift.IsStorable() {
		return "", InvalidArgument("parse shift",
			fmt.Sprintf("invalid shift %q (use 1, 2, 3, R, C, M or A)", s))
	}
	return shift, nil
}

// ParseAbsenceKind accepts only C, M and A.
func ParseAbsenceKind(s string) (Shift, error) {
	shift := Shift(strings.ToUpper(strings.TrimSpace(s)))
	if !shift.IsAbsence() {
		return "", InvalidArgument("parse absence kind",
			fmt.Sprintf("invalid absence kind %q (use C, M or A)", s))
	}
	return shift, nil
}

// =============================================================================
// ORIGIN - Which operation produced a stored entry
// =============================================================================

type Origin string

const (
	OriginTheoretical Origin = "THEORETICAL"
	OriginManual      Origin = "MANUAL"
	OriginAbsence     Origin = "ABSENCE"
	OriginLeavePeriod Origin = "LEAVE_PERIOD"
	OriginLeaveSunday Origin = "LEAVE_SUNDAY"
	OriginSwap        Origin = "SWAP"
)

// IsOverride is true for every origin except THEORETICAL.
func (o Origin) IsOverride() bool { return o != OriginTheoretical }

// =============================================================================
// GROUP - Rotation family
// =============================================================================

type Group string

const (
	GroupA Group = "A"
	GroupB Group = "B"
	GroupC Group = "C"
	GroupD Group = "D"
	GroupE Group = "E"
)

// Groups lists the valid groups in reporting order.
var Groups = []Group{GroupA, GroupB, GroupC, GroupD, GroupE}

func (g Group) IsValid() bool {
	for _, v := range Groups {
		if g == v {
			return true
		}
	}
	return false
}

// ParseGroup normalizes and validates a group label.
func ParseGroup(s string) (Group, error) {
	g := Group(strings.ToUpper(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", InvalidArgument("parse group",
			fmt.Sprintf("invalid group %q (use A, B, C, D or E)", s))
	}
	return g, nil
}

// =============================================================================
// AGENT
// =============================================================================

type AgentCode string

// NormalizeAgentCode upper-cases and trims a code the way it is stored.
func NormalizeAgentCode(s string) AgentCode {
	return AgentCode(strings.ToUpper(strings.TrimSpace(s)))
}

type Agent struct {
	Code      AgentCode
	LastName  string
	FirstName string
	Group     Group
	EntryDate TimePoint
	ExitDate  TimePoint // zero while the agent is active
}

// IsActive is true until an exit date is recorded.
func (a Agent) IsActive() bool { return a.ExitDate.IsZero() }

// FullName is "LastName FirstName", the order used on planning sheets.
func (a Agent) FullName() string {
	return strings.TrimSpace(a.LastName + " " + a.FirstName)
}

// InTenure reports whether day falls in [EntryDate, ExitDate).
func (a Agent) InTenure(day TimePoint) bool {
	if day.Before(a.EntryDate) {
		return false
	}
	if !a.ExitDate.IsZero() && day.AfterOrEqual(a.ExitDate) {
		return false
	}
	return true
}

// Validate checks the registry invariants.
func (a Agent) Validate() error {
	if a.Code == "" {
		return InvalidArgument("validate agent", "agent code is required")
	}
	if !a.Group.IsValid() {
		return InvalidArgument("validate agent",
			fmt.Sprintf("invalid group %q (use A, B, C, D or E)", a.Group))
	}
	if a.EntryDate.IsZero() {
		return InvalidArgument("validate agent", "entry date is required")
	}
	if !a.ExitDate.IsZero() && a.ExitDate.Before(a.EntryDate) {
		return InvalidArgument("validate agent",
			fmt.Sprintf("exit date %s is before entry date %s", a.ExitDate, a.EntryDate))
	}
	return nil
}

// =============================================================================
// SCHEDULE ENTRY - Override store row
// =============================================================================

// ScheduleEntry is keyed by (AgentCode, Date). At most one exists per key and
// a later write replaces the earlier one.
type ScheduleEntry struct {
	AgentCode AgentCode
	Date      TimePoint
	Shift     Shift
	Origin    Origin
}

// EntryFilter selects schedule rows for bulk deletion or listing.
// Zero fields are unbounded.
type EntryFilter struct {
	AgentCode AgentCode
	From      TimePoint
	To        TimePoint
	Origins   []Origin
}

// Matches is used by in-memory stores; SQL stores translate the same rules.
func (f EntryFilter) Matches(e ScheduleEntry) bool {
	if f.AgentCode != "" && e.AgentCode != f.AgentCode {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if len(f.Origins) == 0 {
		return true
	}
	for _, o := range f.Origins {
		if e.Origin == o {
			return true
		}
	}
	return false
}

// =============================================================================
// LEAVE PERIOD
// =============================================================================

type LeavePeriod struct {
	ID        string
	AgentCode AgentCode
	Start     TimePoint
	End       TimePoint
	CreatedAt time.Time
}

func (lp LeavePeriod) Period() Period { return Period{Start: lp.Start, End: lp.End} }

// =============================================================================
// HOLIDAY - Manually registered day on top of the fixed table
// =============================================================================

type Holiday struct {
	Date        TimePoint
	Description string
}
