/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract: dates travel as
  YYYY-MM-DD strings, shift codes and origins as their string codes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. decodeRequest checks
  them before a handler touches the engine; engine-level rules (tenure,
  unknown agents, unassigned swaps) are still enforced by the engine and
  mapped through writeEngineError.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/holiday"
	"github.com/warp/rota-engine/schedule"
	"github.com/warp/rota-engine/stats"
)

const dateLayout = "2006-01-02"

// =============================================================================
// AGENTS
// =============================================================================

type AgentDTO struct {
	Code      string `json:"code"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	FullName  string `json:"full_name"`
	Group     string `json:"group"`
	EntryDate string `json:"entry_date"`
	ExitDate  string `json:"exit_date,omitempty"`
}

type CreateAgentRequest struct {
	Code      string `json:"code" validate:"required,max=16"`
	LastName  string `json:"last_name" validate:"max=100"`
	FirstName string `json:"first_name" validate:"max=100"`
	Group     string `json:"group" validate:"required,oneof=A B C D E"`
	EntryDate string `json:"entry_date" validate:"required,datetime=2006-01-02"`
}

// UpdateAgentRequest is a partial update; absent fields are unchanged.
type UpdateAgentRequest struct {
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	Group     *string `json:"group" validate:"omitempty,oneof=A B C D E"`
	EntryDate *string `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
}

type AgentUpdateDTO struct {
	Agent       AgentDTO `json:"agent"`
	Invalidated int      `json:"invalidated"`
}

type AgentExitDTO struct {
	Code     string `json:"code"`
	ExitDate string `json:"exit_date"`
	Changed  bool   `json:"changed"`
}

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftDTO struct {
	AgentCode string `json:"agent_code"`
	Date      string `json:"date"`
	Shift     string `json:"shift"`
	Origin    string `json:"origin,omitempty"`
}

type SetShiftRequest struct {
	Shift string `json:"shift" validate:"required,oneof=1 2 3 R C M A"`
}

type AbsenceRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Kind string `json:"kind" validate:"required,oneof=C M A"`
}

type SwapRequest struct {
	AgentA string `json:"agent_a" validate:"required"`
	AgentB string `json:"agent_b" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

type SwapDTO struct {
	Date    string `json:"date"`
	AgentA  string `json:"agent_a"`
	ShiftA  string `json:"shift_a"`
	AgentB  string `json:"agent_b"`
	ShiftB  string `json:"shift_b"`
	Swapped bool   `json:"swapped"`
}

// =============================================================================
// LEAVES
// =============================================================================

type LeaveRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

type LeaveDTO struct {
	ID        string `json:"id"`
	AgentCode string `json:"agent_code"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Duration  int    `json:"duration"`
	CreatedAt string `json:"created_at,omitempty"`
}

type LeaveBookingDTO struct {
	Leave     LeaveDTO `json:"leave"`
	LeaveDays int      `json:"leave_days"`
}

type LeaveCancellationDTO struct {
	PeriodsDeleted int `json:"periods_deleted"`
	EntriesDeleted int `json:"entries_deleted"`
	Invalidated    int `json:"invalidated"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

type CreateHolidayRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=200"`
}

type HolidayRemovalDTO struct {
	Date        string `json:"date"`
	Removed     bool   `json:"removed"`
	Invalidated int    `json:"invalidated"`
}

// =============================================================================
// PLANNING
// =============================================================================

type PlanningDayDTO struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Holiday bool   `json:"holiday"`
}

type PlanningRowDTO struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Group  string   `json:"group"`
	Shifts []string `json:"shifts"`
}

type MonthlyPlanningDTO struct {
	Year  int              `json:"year"`
	Month int              `json:"month"`
	Days  []PlanningDayDTO `json:"days"`
	Rows  []PlanningRowDTO `json:"rows"`
}

type AgentDayDTO struct {
	PlanningDayDTO
	Shift  string `json:"shift"`
	Origin string `json:"origin,omitempty"`
}

type AgentPlanningDTO struct {
	Agent AgentDTO      `json:"agent"`
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []AgentDayDTO `json:"days"`
}

// =============================================================================
// STATISTICS
// =============================================================================

// ShiftCountsDTO maps shift codes ("1", "R", "-", ...) to day counts.
type ShiftCountsDTO map[string]int

type AgentStatsDTO struct {
	Agent            AgentDTO       `json:"agent"`
	Start            string         `json:"start"`
	End              string         `json:"end"`
	Counts           ShiftCountsDTO `json:"counts"`
	WorkedDays       int            `json:"worked_days"`
	HolidaysWorked   int            `json:"holidays_worked"`
	OperationalTotal int            `json:"operational_total"`
}

type GroupStatsDTO struct {
	Group            string          `json:"group"`
	Start            string          `json:"start"`
	End              string          `json:"end"`
	Agents           []AgentStatsDTO `json:"agents"`
	Counts           ShiftCountsDTO  `json:"counts"`
	WorkedDays       int             `json:"worked_days"`
	HolidaysWorked   int             `json:"holidays_worked"`
	OperationalTotal int             `json:"operational_total"`
}

type GlobalStatsDTO struct {
	Start            string          `json:"start"`
	End              string          `json:"end"`
	Groups           []GroupStatsDTO `json:"groups"`
	ActiveAgents     map[string]int  `json:"active_agents"`
	Counts           ShiftCountsDTO  `json:"counts"`
	WorkedDays       int             `json:"worked_days"`
	HolidaysWorked   int             `json:"holidays_worked"`
	OperationalTotal int             `json:"operational_total"`
}

type RankingEntryDTO struct {
	Rank int `json:"rank"`
	AgentStatsDTO
}

type AgentWorkedDTO struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	WorkedDays int    `json:"worked_days"`
}

type GroupWorkedDTO struct {
	Group  string           `json:"group"`
	Agents []AgentWorkedDTO `json:"agents"`
	Total  int              `json:"total"`
}

type GlobalWorkedDTO struct {
	Start  string           `json:"start"`
	End    string           `json:"end"`
	Groups []GroupWorkedDTO `json:"groups"`
	Total  int              `json:"total"`
}

type WeekdayCountsDTO struct {
	Weekday string         `json:"weekday"`
	Counts  ShiftCountsDTO `json:"counts"`
}

type DetailedStatsDTO struct {
	AgentStatsDTO
	Days         int                `json:"days"`
	PresenceRate decimal.Decimal    `json:"presence_rate"`
	ByWeekday    []WeekdayCountsDTO `json:"by_weekday"`
}

type MonthTotalDTO struct {
	Year             int `json:"year"`
	Month            int `json:"month"`
	WorkedDays       int `json:"worked_days"`
	OperationalTotal int `json:"operational_total"`
}

type EvolutionDTO struct {
	Agent  AgentDTO        `json:"agent"`
	Months []MonthTotalDTO `json:"months"`
	Trend  decimal.Decimal `json:"trend"`
}

// =============================================================================
// SCENARIOS / ADMIN
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ScenarioLoadDTO struct {
	Scenario string     `json:"scenario"`
	Agents   []AgentDTO `json:"agents"`
}

type MaterializationDTO struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Agents int    `json:"agents"`
	Days   int    `json:"days"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatDate(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func toAgentDTO(a generic.Agent) AgentDTO {
	return AgentDTO{
		Code:      string(a.Code),
		LastName:  a.LastName,
		FirstName: a.FirstName,
		FullName:  a.FullName(),
		Group:     string(a.Group),
		EntryDate: formatDate(a.EntryDate),
		ExitDate:  formatDate(a.ExitDate),
	}
}

func toAgentDTOs(agents []generic.Agent) []AgentDTO {
	out := make([]AgentDTO, len(agents))
	for i, a := range agents {
		out[i] = toAgentDTO(a)
	}
	return out
}

func toLeaveDTO(lp generic.LeavePeriod, duration int) LeaveDTO {
	dto := LeaveDTO{
		ID:        lp.ID,
		AgentCode: string(lp.AgentCode),
		Start:     lp.Start.String(),
		End:       lp.End.String(),
		Duration:  duration,
	}
	if !lp.CreatedAt.IsZero() {
		dto.CreatedAt = lp.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toHolidayDTO(e holiday.Entry) HolidayDTO {
	return HolidayDTO{Date: e.Date.String(), Description: e.Description, Kind: string(e.Kind)}
}

func toSwapDTO(res schedule.SwapResult) SwapDTO {
	return SwapDTO{
		Date:    res.Date.String(),
		AgentA:  string(res.AgentA),
		ShiftA:  string(res.ShiftA),
		AgentB:  string(res.AgentB),
		ShiftB:  string(res.ShiftB),
		Swapped: res.Swapped,
	}
}

func toCountsDTO(c stats.ShiftCounts) ShiftCountsDTO {
	out := make(ShiftCountsDTO, len(generic.AllShifts))
	for _, s := range generic.AllShifts {
		out[string(s)] = c.Get(s)
	}
	return out
}

func toAgentStatsDTO(st stats.AgentStatistics) AgentStatsDTO {
	return AgentStatsDTO{
		Agent:            toAgentDTO(st.Agent),
		Start:            st.Period.Start.String(),
		End:              st.Period.End.String(),
		Counts:           toCountsDTO(st.Counts),
		WorkedDays:       st.WorkedDays,
		HolidaysWorked:   st.HolidaysWorked,
		OperationalTotal: st.OperationalTotal,
	}
}

func toGroupStatsDTO(gs stats.GroupStatistics) GroupStatsDTO {
	dto := GroupStatsDTO{
		Group:            string(gs.Group),
		Start:            gs.Period.Start.String(),
		End:              gs.Period.End.String(),
		Agents:           make([]AgentStatsDTO, len(gs.Agents)),
		Counts:           toCountsDTO(gs.Counts),
		WorkedDays:       gs.WorkedDays,
		HolidaysWorked:   gs.HolidaysWorked,
		OperationalTotal: gs.OperationalTotal,
	}
	for i, st := range gs.Agents {
		dto.Agents[i] = toAgentStatsDTO(st)
	}
	return dto
}

func toGlobalStatsDTO(gs stats.GlobalStatistics) GlobalStatsDTO {
	dto := GlobalStatsDTO{
		Start:            gs.Period.Start.String(),
		End:              gs.Period.End.String(),
		Groups:           make([]GroupStatsDTO, len(gs.Groups)),
		ActiveAgents:     make(map[string]int, len(gs.ActiveAgents)),
		Counts:           toCountsDTO(gs.Counts),
		WorkedDays:       gs.WorkedDays,
		HolidaysWorked:   gs.HolidaysWorked,
		OperationalTotal: gs.OperationalTotal,
	}
	for i, g := range gs.Groups {
		dto.Groups[i] = toGroupStatsDTO(g)
	}
	for g, n := range gs.ActiveAgents {
		dto.ActiveAgents[string(g)] = n
	}
	return dto
}

func toGroupWorkedDTO(gw stats.GroupWorkedDays) GroupWorkedDTO {
	dto := GroupWorkedDTO{Group: string(gw.Group), Agents: make([]AgentWorkedDTO, len(gw.Agents)), Total: gw.Total}
	for i, a := range gw.Agents {
		dto.Agents[i] = AgentWorkedDTO{Code: string(a.Agent.Code), Name: a.Agent.FullName(), WorkedDays: a.WorkedDays}
	}
	return dto
}

func toPlanningDayDTO(d stats.PlanningDay) PlanningDayDTO {
	return PlanningDayDTO{Date: d.Date.String(), Weekday: d.Weekday.String(), Holiday: d.Holiday}
}

func toMonthlyPlanningDTO(mp stats.MonthlyPlanning) MonthlyPlanningDTO {
	dto := MonthlyPlanningDTO{
		Year:  mp.Year,
		Month: int(mp.Month),
		Days:  make([]PlanningDayDTO, len(mp.Days)),
		Rows:  make([]PlanningRowDTO, len(mp.Rows)),
	}
	for i, d := range mp.Days {
		dto.Days[i] = toPlanningDayDTO(d)
	}
	for i, row := range mp.Rows {
		shifts := make([]string, len(row.Shifts))
		for j, s := range row.Shifts {
			shifts[j] = string(s)
		}
		dto.Rows[i] = PlanningRowDTO{
			Code:   string(row.Agent.Code),
			Name:   row.Agent.FullName(),
			Group:  string(row.Agent.Group),
			Shifts: shifts,
		}
	}
	return dto
}

func toAgentPlanningDTO(ap stats.AgentPlanning) AgentPlanningDTO {
	dto := AgentPlanningDTO{
		Agent: toAgentDTO(ap.Agent),
		Year:  ap.Year,
		Month: int(ap.Month),
		Days:  make([]AgentDayDTO, len(ap.Days)),
	}
	for i, d := range ap.Days {
		dto.Days[i] = AgentDayDTO{
			PlanningDayDTO: toPlanningDayDTO(d.PlanningDay),
			Shift:          string(d.Shift),
			Origin:         string(d.Origin),
		}
	}
	return dto
}
