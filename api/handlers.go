/*
handlers.go - HTTP API handlers for the shift resolution engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization and validation, and delegates to the engine packages.

ENDPOINTS:
  Agents:
    GET    /api/agents                       List active agents (?group=)
    POST   /api/agents                       Register agent
    GET    /api/agents/{code}                Get agent
    PATCH  /api/agents/{code}                Update names, group, entry date
    DELETE /api/agents/{code}                Exit agent (?exit_date=, default today)

  Shifts:
    GET    /api/agents/{code}/shifts/{date}  Effective shift (memoizes)
    PUT    /api/agents/{code}/shifts/{date}  Manual shift
    POST   /api/agents/{code}/absences       Record absence
    POST   /api/swaps                        Swap two agents' shifts

  Leaves:
    GET    /api/agents/{code}/leaves         Booked leave periods
    POST   /api/agents/{code}/leaves         Book leave period
    DELETE /api/agents/{code}/leaves         Cancel (?start=&end=)

  Holidays:
    GET    /api/holidays                     Fixed + manual (?year=)
    POST   /api/holidays                     Add manual holiday
    DELETE /api/holidays/{date}              Remove manual holiday

  Planning / Statistics:
    See server.go; every view takes ?year=&month= (default current month).

  Scenarios / Admin:
    POST   /api/scenarios/demo               Seed the demo roster
    POST   /api/scenarios/reset              Clear every table
    POST   /api/admin/materialize            Resolve the next ?days= days

ARCHITECTURE:
  Handler holds the engine graph built once by NewHandler over a single
  TxStore. The same components are reused by the materialization
  scheduler.

ERROR HANDLING:
  Engine errors are mapped by kind:
  - 400: InvalidArgument (and request validation failures)
  - 404: NotFound
  - 409: Conflict
  - 500: StorageFailure and anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo roster
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/holiday"
	"github.com/warp/rota-engine/invalidation"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/metrics"
	"github.com/warp/rota-engine/rotation"
	"github.com/warp/rota-engine/schedule"
	"github.com/warp/rota-engine/stats"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    generic.TxStore
	Roster   *schedule.Roster
	Ops      *schedule.Operations
	Resolver *schedule.Resolver
	Calendar *holiday.Calendar
	Stats    *stats.Aggregator
	Planner  *stats.Planner

	log      *zap.Logger
	validate *validator.Validate
	today    func() generic.TimePoint

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the engine over store. rec may be nil.
func NewHandler(store generic.TxStore, log *zap.Logger, rec metrics.Recorder) *Handler {
	log = logger.OrNop(log)
	inv := invalidation.New(log, rec)
	resolver := schedule.NewResolver(store, rotation.New(store), log, rec)
	calendar := holiday.NewCalendar(store, inv, log)

	return &Handler{
		Store:    store,
		Roster:   schedule.NewRoster(store, inv, log),
		Ops:      schedule.NewOperations(store, resolver, inv, log, rec),
		Resolver: resolver,
		Calendar: calendar,
		Stats:    stats.NewAggregator(resolver, calendar, store, log),
		Planner:  stats.NewPlanner(resolver, calendar, store),
		log:      log,
		validate: validator.New(),
		today:    generic.Today,
	}
}

// =============================================================================
// AGENT ENDPOINTS
// =============================================================================

// ListAgents returns active agents, optionally filtered by ?group=.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	var (
		agents []generic.Agent
		err    error
	)
	if g := r.URL.Query().Get("group"); g != "" {
		group, perr := generic.ParseGroup(g)
		if perr != nil {
			h.writeEngineError(w, perr)
			return
		}
		agents, err = h.Roster.ListActiveAgentsByGroup(r.Context(), group)
	} else {
		agents, err = h.Roster.ListActiveAgents(r.Context())
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTOs(agents))
}

// CreateAgent registers (or replaces) an agent.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	entry, _ := generic.ParseTimePoint(req.EntryDate)

	agent, err := h.Roster.RegisterAgent(r.Context(), generic.Agent{
		Code:      generic.AgentCode(req.Code),
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Group:     generic.Group(req.Group),
		EntryDate: entry,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgentDTO(agent))
}

func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.Roster.GetAgent(r.Context(), agentParam(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(agent))
}

// UpdateAgent applies a partial update.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req UpdateAgentRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	patch := schedule.AgentPatch{LastName: req.LastName, FirstName: req.FirstName}
	if req.Group != nil {
		g := generic.Group(*req.Group)
		patch.Group = &g
	}
	if req.EntryDate != nil {
		d, _ := generic.ParseTimePoint(*req.EntryDate)
		patch.EntryDate = &d
	}

	res, err := h.Roster.UpdateAgent(r.Context(), agentParam(r), patch)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AgentUpdateDTO{Agent: toAgentDTO(res.Agent), Invalidated: res.Invalidated})
}

// ExitAgent records the agent's exit (?exit_date=, default today).
func (h *Handler) ExitAgent(w http.ResponseWriter, r *http.Request) {
	exit, err := optionalDateQuery(r, "exit_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exit_date", err)
		return
	}
	if exit.IsZero() {
		exit = h.today()
	}

	code := agentParam(r)
	changed, err := h.Roster.ExitAgent(r.Context(), code, exit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AgentExitDTO{Code: string(code), ExitDate: exit.String(), Changed: changed})
}

// =============================================================================
// SHIFT ENDPOINTS
// =============================================================================

// GetShift returns the effective shift, memoizing it when computed.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	code := agentParam(r)

	ds, err := h.Resolver.Resolve(r.Context(), code, day)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ShiftDTO{
		AgentCode: string(code),
		Date:      ds.Date.String(),
		Shift:     string(ds.Shift),
		Origin:    string(ds.Origin),
	})
}

// SetShift writes a MANUAL override.
func (h *Handler) SetShift(w http.ResponseWriter, r *http.Request) {
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req SetShiftRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	code := agentParam(r)
	shift := generic.Shift(req.Shift)
	if err := h.Ops.SetManualShift(r.Context(), code, day, shift); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ShiftDTO{
		AgentCode: string(code),
		Date:      day.String(),
		Shift:     string(shift),
		Origin:    string(generic.OriginManual),
	})
}

// RecordAbsence writes an ABSENCE override.
func (h *Handler) RecordAbsence(w http.ResponseWriter, r *http.Request) {
	var req AbsenceRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	day, _ := generic.ParseTimePoint(req.Date)
	code := agentParam(r)
	kind := generic.Shift(req.Kind)

	if err := h.Ops.RecordAbsence(r.Context(), code, day, kind); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ShiftDTO{
		AgentCode: string(code),
		Date:      day.String(),
		Shift:     string(kind),
		Origin:    string(generic.OriginAbsence),
	})
}

// SwapShifts exchanges two agents' shifts on one day.
func (h *Handler) SwapShifts(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	day, _ := generic.ParseTimePoint(req.Date)

	res, err := h.Ops.SwapShifts(r.Context(),
		generic.NormalizeAgentCode(req.AgentA), generic.NormalizeAgentCode(req.AgentB), day)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSwapDTO(res))
}

// =============================================================================
// LEAVE ENDPOINTS
// =============================================================================

func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Ops.ListLeavePeriods(r.Context(), agentParam(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]LeaveDTO, len(leaves))
	for i, l := range leaves {
		out[i] = toLeaveDTO(l.LeavePeriod, l.Duration)
	}
	writeJSON(w, http.StatusOK, out)
}

// BookLeave records a leave period and expands it into C/R rows.
func (h *Handler) BookLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	start, _ := generic.ParseTimePoint(req.Start)
	end, _ := generic.ParseTimePoint(req.End)

	booking, err := h.Ops.BookLeavePeriod(r.Context(), agentParam(r), start, end)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LeaveBookingDTO{
		Leave:     toLeaveDTO(booking.Period, booking.Duration),
		LeaveDays: booking.LeaveDays,
	})
}

// CancelLeave deletes the period matching ?start=&end= exactly and clears
// leave rows in that range. A range inside a longer leave reports
// periods_deleted 0.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	start, err := requiredDateQuery(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := requiredDateQuery(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	res, err := h.Ops.CancelLeavePeriod(r.Context(), agentParam(r), start, end)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveCancellationDTO{
		PeriodsDeleted: res.PeriodsDeleted,
		EntriesDeleted: res.EntriesDeleted,
		Invalidated:    res.Invalidated,
	})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the fixed and manual holidays of ?year= (default
// current year).
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.today().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	entries, err := h.Calendar.ListHolidays(r.Context(), year)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]HolidayDTO, len(entries))
	for i, e := range entries {
		out[i] = toHolidayDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateHoliday adds a manual holiday. 201 when new, 200 when it replaced
// an existing description.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	day, _ := generic.ParseTimePoint(req.Date)

	created, err := h.Calendar.AddHoliday(r.Context(), day, req.Description)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	kind := holiday.KindManual
	if holiday.IsFixed(day) {
		kind = holiday.KindFixed
	}
	writeJSON(w, status, HolidayDTO{Date: day.String(), Description: strings.TrimSpace(req.Description), Kind: string(kind)})
}

// DeleteHoliday removes a manual holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	res, err := h.Calendar.RemoveHoliday(r.Context(), day)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if !res.Removed {
		writeError(w, http.StatusNotFound, "Holiday not found", fmt.Errorf("no manual holiday on %s", day))
		return
	}
	writeJSON(w, http.StatusOK, HolidayRemovalDTO{Date: day.String(), Removed: true, Invalidated: res.Invalidated})
}

// =============================================================================
// PLANNING ENDPOINTS
// =============================================================================

// MonthlyPlanning returns the grid for ?year=&month=, optionally ?group=.
func (h *Handler) MonthlyPlanning(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	group := generic.Group(strings.ToUpper(r.URL.Query().Get("group")))

	mp, err := h.Planner.MonthlyPlanning(r.Context(), year, month, group)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyPlanningDTO(mp))
}

// QuarterPlanning returns three months from ?start_month= of ?year=.
func (h *Handler) QuarterPlanning(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := intQuery(q.Get("year"), h.today().Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	start, err := intQuery(q.Get("start_month"), int(h.today().Month()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_month", err)
		return
	}

	months, err := h.Planner.QuarterPlanning(r.Context(), time.Month(start), year)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]MonthlyPlanningDTO, len(months))
	for i, mp := range months {
		out[i] = toMonthlyPlanningDTO(mp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AgentPlanning(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	ap, err := h.Planner.AgentPlanning(r.Context(), agentParam(r), year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentPlanningDTO(ap))
}

// =============================================================================
// STATISTICS ENDPOINTS
// =============================================================================

func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	gs, err := h.Stats.GlobalStatistics(r.Context(), year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGlobalStatsDTO(gs))
}

func (h *Handler) GroupStats(w http.ResponseWriter, r *http.Request) {
	group, ok := groupParam(w, r)
	if !ok {
		return
	}
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	gs, err := h.Stats.GroupStatistics(r.Context(), group, year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupStatsDTO(gs))
}

func (h *Handler) GroupRanking(w http.ResponseWriter, r *http.Request) {
	group, ok := groupParam(w, r)
	if !ok {
		return
	}
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	ranking, err := h.Stats.GroupRanking(r.Context(), group, year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	out := make([]RankingEntryDTO, len(ranking))
	for i, ra := range ranking {
		out[i] = RankingEntryDTO{Rank: ra.Rank, AgentStatsDTO: toAgentStatsDTO(ra.AgentStatistics)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GroupWorkedDays(w http.ResponseWriter, r *http.Request) {
	group, ok := groupParam(w, r)
	if !ok {
		return
	}
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	gw, err := h.Stats.WorkedDaysForGroup(r.Context(), group, year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupWorkedDTO(gw))
}

func (h *Handler) GlobalWorkedDays(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	all, err := h.Stats.WorkedDaysGlobal(r.Context(), year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dto := GlobalWorkedDTO{
		Start:  all.Period.Start.String(),
		End:    all.Period.End.String(),
		Groups: make([]GroupWorkedDTO, len(all.Groups)),
		Total:  all.Total,
	}
	for i, gw := range all.Groups {
		dto.Groups[i] = toGroupWorkedDTO(gw)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) AgentStats(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	st, err := h.Stats.AgentStatistics(r.Context(), agentParam(r), year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentStatsDTO(st))
}

func (h *Handler) AgentDetail(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthQuery(w, r)
	if !ok {
		return
	}
	d, err := h.Stats.DetailedAgentStatistics(r.Context(), agentParam(r), year, month)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dto := DetailedStatsDTO{
		AgentStatsDTO: toAgentStatsDTO(d.AgentStatistics),
		Days:          d.Days,
		PresenceRate:  d.PresenceRate,
		ByWeekday:     make([]WeekdayCountsDTO, len(d.ByWeekday)),
	}
	for i, wd := range d.ByWeekday {
		dto.ByWeekday[i] = WeekdayCountsDTO{Weekday: wd.Weekday.String(), Counts: toCountsDTO(wd.Counts)}
	}
	writeJSON(w, http.StatusOK, dto)
}

// AgentEvolution returns ?months= (default 6) monthly totals ending with
// ?as_of= (default today).
func (h *Handler) AgentEvolution(w http.ResponseWriter, r *http.Request) {
	months, err := intQuery(r.URL.Query().Get("months"), 6)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid months", err)
		return
	}
	asOf, err := optionalDateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}
	if asOf.IsZero() {
		asOf = h.today()
	}

	ev, err := h.Stats.Evolution(r.Context(), agentParam(r), months, asOf)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dto := EvolutionDTO{Agent: toAgentDTO(ev.Agent), Months: make([]MonthTotalDTO, len(ev.Months)), Trend: ev.Trend}
	for i, m := range ev.Months {
		dto.Months[i] = MonthTotalDTO{
			Year:             m.Year,
			Month:            int(m.Month),
			WorkedDays:       m.WorkedDays,
			OperationalTotal: m.OperationalTotal,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Materialize resolves ?days= days (default 31) from ?from= (default today)
// for every active agent. Same job as the nightly scheduler.
func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r.URL.Query().Get("days"), DefaultHorizonDays)
	if err != nil || days < 1 || days > MaxHorizonDays {
		writeError(w, http.StatusBadRequest, "Invalid days",
			fmt.Errorf("days must be in 1-%d", MaxHorizonDays))
		return
	}
	from, err := optionalDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	if from.IsZero() {
		from = h.today()
	}

	res, err := Materialize(r.Context(), h.Resolver, h.Store, from, days)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MaterializationDTO{
		From:   res.Window.Start.String(),
		To:     res.Window.End.String(),
		Agents: res.Agents,
		Days:   res.Days,
	})
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decodeRequest parses and validates a JSON body. On failure it writes the
// 400 response and returns false.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	normalizeRequest(dst)

	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "Invalid input", err)
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: fields})
		return false
	}
	return true
}

// normalizeRequest upper-cases codes so "r" and "a" validate as R and A.
func normalizeRequest(dst any) {
	switch req := dst.(type) {
	case *CreateAgentRequest:
		req.Code = string(generic.NormalizeAgentCode(req.Code))
		req.Group = strings.ToUpper(strings.TrimSpace(req.Group))
	case *UpdateAgentRequest:
		if req.Group != nil {
			g := strings.ToUpper(strings.TrimSpace(*req.Group))
			req.Group = &g
		}
	case *SetShiftRequest:
		req.Shift = strings.ToUpper(strings.TrimSpace(req.Shift))
	case *AbsenceRequest:
		req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	}
}

func agentParam(r *http.Request) generic.AgentCode {
	return generic.NormalizeAgentCode(chi.URLParam(r, "code"))
}

func dateParam(w http.ResponseWriter, r *http.Request) (generic.TimePoint, bool) {
	day, err := generic.ParseTimePoint(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return generic.TimePoint{}, false
	}
	return day, true
}

func groupParam(w http.ResponseWriter, r *http.Request) (generic.Group, bool) {
	g, err := generic.ParseGroup(chi.URLParam(r, "group"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group", err)
		return "", false
	}
	return g, true
}

// monthQuery reads ?year=&month=, defaulting to the current month.
func (h *Handler) monthQuery(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	today := h.today()
	q := r.URL.Query()
	year, err := intQuery(q.Get("year"), today.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := intQuery(q.Get("month"), int(today.Month()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func intQuery(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func optionalDateQuery(r *http.Request, name string) (generic.TimePoint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return generic.TimePoint{}, nil
	}
	return generic.ParseTimePoint(raw)
}

func requiredDateQuery(r *http.Request, name string) (generic.TimePoint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return generic.TimePoint{}, fmt.Errorf("%s is required", name)
	}
	return generic.ParseTimePoint(raw)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps an engine error kind to its HTTP status.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	kind := generic.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case generic.KindNotFound:
		status = http.StatusNotFound
	case generic.KindInvalidArgument:
		status = http.StatusBadRequest
	case generic.KindConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, status, ErrorResponse{Error: "Internal error", Code: kind.String()})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: kind.String()})
}
