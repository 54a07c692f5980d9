/*
handlers_test.go - HTTP tests for the API handlers

Tests run the full router over an in-memory store seeded with the demo
roster. "Today" is pinned to 2025-11-15 so month defaults are stable.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/rota-engine/config"
	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/generic/store"
	"github.com/warp/rota-engine/metrics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	h      *Handler
	router http.Handler
	store  *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	log := zaptest.NewLogger(t)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg, "")
	require.NoError(t, err)

	h := NewHandler(mem, log, rec)
	h.today = func() generic.TimePoint { return generic.MustParseTimePoint("2025-11-15") }
	_, err = h.LoadDemo(context.Background())
	require.NoError(t, err)

	router := NewRouter(h, RouterOptions{
		Logger:  log,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testServer{h: h, router: router, store: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

// =============================================================================
// AGENTS
// =============================================================================

func TestListAgents_DemoRoster(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/agents", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	agents := decode[[]AgentDTO](t, rec)
	require.Len(t, agents, 6)
	assert.Equal(t, "A01", agents[0].Code)
	assert.Equal(t, "Dupont Alice", agents[0].FullName)
	assert.Equal(t, "2025-11-01", agents[0].EntryDate)

	rec = s.do(t, http.MethodGet, "/api/agents?group=e", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AgentDTO](t, rec), 2)
}

func TestCreateAgent_Validation(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A body with an unknown group and a malformed date
	rec := s.do(t, http.MethodPost, "/api/agents", CreateAgentRequest{
		Code: "x9", Group: "Z", EntryDate: "01/11/2025",
	})

	// THEN: 400 with the failing fields
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "oneof", details["Group"])
	assert.Equal(t, "datetime", details["EntryDate"])
}

func TestCreateAgent_NormalizesCode(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/agents", CreateAgentRequest{
		Code: " c07 ", LastName: "Roux", Group: "c", EntryDate: "2025-11-10",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "C07", decode[AgentDTO](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/agents/c07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAgent_GroupChange(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-11-01", nil).Code)

	group := "C"
	rec := s.do(t, http.MethodPatch, "/api/agents/A01", UpdateAgentRequest{Group: &group})

	require.Equal(t, http.StatusOK, rec.Code)
	upd := decode[AgentUpdateDTO](t, rec)
	assert.Equal(t, "C", upd.Agent.Group)
	assert.Equal(t, 1, upd.Invalidated)

	shift := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-11-01", nil))
	assert.Equal(t, "3", shift.Shift)
}

func TestExitAgent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/agents/B02?exit_date=2025-11-20", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	exit := decode[AgentExitDTO](t, rec)
	assert.True(t, exit.Changed)
	assert.Equal(t, "2025-11-20", exit.ExitDate)

	agents := decode[[]AgentDTO](t, s.do(t, http.MethodGet, "/api/agents", nil))
	assert.Len(t, agents, 5)
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestGetShift(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-11-04", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	shift := decode[ShiftDTO](t, rec)
	assert.Equal(t, "2", shift.Shift)
	assert.Equal(t, "THEORETICAL", shift.Origin)
}

func TestGetShift_BeforeEntryIsUnassigned(t *testing.T) {
	s := newTestServer(t)

	shift := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-10-31", nil))

	assert.Equal(t, "-", shift.Shift)
	assert.Empty(t, shift.Origin)
}

func TestGetShift_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/agents/NOPE/shifts/2025-11-04", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-13-40", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetShift_LowercaseAccepted(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/agents/A01/shifts/2025-11-04", SetShiftRequest{Shift: "r"})
	require.Equal(t, http.StatusOK, rec.Code)

	shift := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-11-04", nil))
	assert.Equal(t, "R", shift.Shift)
	assert.Equal(t, "MANUAL", shift.Origin)

	rec = s.do(t, http.MethodPut, "/api/agents/A01/shifts/2025-11-04", SetShiftRequest{Shift: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordAbsence(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/agents/C03/absences", AbsenceRequest{Date: "2025-11-12", Kind: "m"})
	require.Equal(t, http.StatusCreated, rec.Code)

	shift := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/C03/shifts/2025-11-12", nil))
	assert.Equal(t, "M", shift.Shift)
	assert.Equal(t, "ABSENCE", shift.Origin)

	rec = s.do(t, http.MethodPost, "/api/agents/C03/absences", AbsenceRequest{Date: "2025-11-12", Kind: "R"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwapShifts(t *testing.T) {
	s := newTestServer(t)

	// A01 holds 1 and B02 holds 2 on the entry day
	rec := s.do(t, http.MethodPost, "/api/swaps", SwapRequest{AgentA: "a01", AgentB: "B02", Date: "2025-11-01"})

	require.Equal(t, http.StatusOK, rec.Code)
	swap := decode[SwapDTO](t, rec)
	assert.True(t, swap.Swapped)
	assert.Equal(t, "2", swap.ShiftA)
	assert.Equal(t, "1", swap.ShiftB)

	rec = s.do(t, http.MethodPost, "/api/swaps", SwapRequest{AgentA: "A01", AgentB: "A01", Date: "2025-11-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/swaps", SwapRequest{AgentA: "A01", AgentB: "B02", Date: "2025-10-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LEAVES
// =============================================================================

func TestLeaveLifecycle(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A week of leave spanning a Sunday
	rec := s.do(t, http.MethodPost, "/api/agents/D04/leaves", LeaveRequest{Start: "2025-11-03", End: "2025-11-09"})
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[LeaveBookingDTO](t, rec)
	assert.Equal(t, 6, booking.LeaveDays)
	assert.Equal(t, 7, booking.Leave.Duration)
	assert.NotEmpty(t, booking.Leave.ID)

	sunday := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/D04/shifts/2025-11-09", nil))
	assert.Equal(t, "R", sunday.Shift)
	assert.Equal(t, "LEAVE_SUNDAY", sunday.Origin)

	leaves := decode[[]LeaveDTO](t, s.do(t, http.MethodGet, "/api/agents/D04/leaves", nil))
	require.Len(t, leaves, 1)

	// WHEN: Cancelling with the exact bounds
	rec = s.do(t, http.MethodDelete, "/api/agents/D04/leaves?start=2025-11-03&end=2025-11-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancel := decode[LeaveCancellationDTO](t, rec)
	assert.Equal(t, 1, cancel.PeriodsDeleted)
	assert.Equal(t, 7, cancel.EntriesDeleted)

	// THEN: The rotation is back and a second cancel deletes no period
	restored := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/D04/shifts/2025-11-09", nil))
	assert.Equal(t, "THEORETICAL", restored.Origin)

	rec = s.do(t, http.MethodDelete, "/api/agents/D04/leaves?start=2025-11-03&end=2025-11-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[LeaveCancellationDTO](t, rec)
	assert.Zero(t, again.PeriodsDeleted)
	assert.Zero(t, again.EntriesDeleted)
	assert.Equal(t, 1, again.Invalidated) // the memoized 2025-11-09

	rec = s.do(t, http.MethodDelete, "/api/agents/D04/leaves?start=2025-11-03", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelLeave_PartOfABooking(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A01 on leave 2025-11-03..09
	rec := s.do(t, http.MethodPost, "/api/agents/A01/leaves", LeaveRequest{Start: "2025-11-03", End: "2025-11-09"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: Cancelling 2025-11-05..06 only
	rec = s.do(t, http.MethodDelete, "/api/agents/A01/leaves?start=2025-11-05&end=2025-11-06", nil)

	// THEN: Those two days are back on the rotation
	require.Equal(t, http.StatusOK, rec.Code)
	cancel := decode[LeaveCancellationDTO](t, rec)
	assert.Zero(t, cancel.PeriodsDeleted)
	assert.Equal(t, 2, cancel.EntriesDeleted)
	for _, d := range []string{"2025-11-05", "2025-11-06"} {
		got := decode[ShiftDTO](t, s.do(t, http.MethodGet, "/api/agents/A01/shifts/"+d, nil))
		assert.Equal(t, "3", got.Shift, d)
		assert.Equal(t, "THEORETICAL", got.Origin, d)
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidayLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2025-11-25", Description: "Local festival"})
	require.Equal(t, http.StatusCreated, rec.Code)

	list := decode[[]HolidayDTO](t, s.do(t, http.MethodGet, "/api/holidays?year=2025", nil))
	var manual []HolidayDTO
	for _, hd := range list {
		if hd.Kind == "manual" {
			manual = append(manual, hd)
		}
	}
	require.Len(t, manual, 1)
	assert.Equal(t, "2025-11-25", manual[0].Date)

	rec = s.do(t, http.MethodDelete, "/api/holidays/2025-11-25", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/holidays/2025-11-25", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2025-11-25"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PLANNING / STATISTICS
// =============================================================================

func TestMonthlyPlanning_DefaultsToCurrentMonth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/planning", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	mp := decode[MonthlyPlanningDTO](t, rec)
	assert.Equal(t, 2025, mp.Year)
	assert.Equal(t, 11, mp.Month)
	require.Len(t, mp.Days, 30)
	require.Len(t, mp.Rows, 6)
	assert.True(t, mp.Days[5].Holiday)
	assert.Equal(t, "Saturday", mp.Days[0].Weekday)
	assert.Len(t, mp.Rows[0].Shifts, 30)

	rec = s.do(t, http.MethodGet, "/api/planning?group=X", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuarterPlanning(t *testing.T) {
	s := newTestServer(t)

	q := decode[[]MonthlyPlanningDTO](t, s.do(t, http.MethodGet, "/api/planning/quarter?year=2025&start_month=12", nil))

	require.Len(t, q, 3)
	assert.Equal(t, 2026, q[1].Year)
	assert.Equal(t, 2, q[2].Month)
}

func TestAgentStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/stats/agents/A01?year=2025&month=11", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[AgentStatsDTO](t, rec)
	assert.Equal(t, 24, st.WorkedDays)
	assert.Equal(t, 2, st.HolidaysWorked)
	assert.Equal(t, 26, st.OperationalTotal)
	assert.Equal(t, 6, st.Counts["R"])
	assert.Equal(t, 0, st.Counts["-"])
}

func TestGroupRanking_And_GlobalStats(t *testing.T) {
	s := newTestServer(t)

	ranking := decode[[]RankingEntryDTO](t, s.do(t, http.MethodGet, "/api/stats/groups/E/ranking?year=2025&month=11", nil))
	require.Len(t, ranking, 2)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 20, ranking[0].OperationalTotal)

	global := decode[GlobalStatsDTO](t, s.do(t, http.MethodGet, "/api/stats/global?year=2025&month=11", nil))
	assert.Equal(t, 2, global.ActiveAgents["E"])
	assert.Len(t, global.Groups, 5)

	rec := s.do(t, http.MethodGet, "/api/stats/groups/Q", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentDetailAndEvolution(t *testing.T) {
	s := newTestServer(t)

	detail := decode[DetailedStatsDTO](t, s.do(t, http.MethodGet, "/api/stats/agents/A01/detail?year=2025&month=11", nil))
	assert.Equal(t, "80", detail.PresenceRate.String())
	assert.Len(t, detail.ByWeekday, 7)

	ev := decode[EvolutionDTO](t, s.do(t, http.MethodGet, "/api/stats/agents/A01/evolution?months=2&as_of=2025-12-10", nil))
	require.Len(t, ev.Months, 2)
	assert.Equal(t, "-11.5", ev.Trend.String())

	rec := s.do(t, http.MethodGet, "/api/stats/agents/A01/evolution?months=99", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SCENARIOS / ADMIN / METRICS
// =============================================================================

func TestResetThenDemo(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/reset", nil).Code)
	assert.Empty(t, decode[[]AgentDTO](t, s.do(t, http.MethodGet, "/api/agents", nil)))
	current := decode[map[string]string](t, s.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "", current["scenario"])

	rec := s.do(t, http.MethodPost, "/api/scenarios/demo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ScenarioLoadDTO](t, rec).Agents, 6)
}

func TestMaterializeEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/materialize?from=2025-11-01&days=3", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[MaterializationDTO](t, rec)
	assert.Equal(t, 6, res.Agents)
	assert.Equal(t, 18, res.Days)
	assert.Equal(t, "2025-11-03", res.To)

	rows, err := s.store.ListEntries(context.Background(), generic.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 18)

	rec = s.do(t, http.MethodPost, "/api/admin/materialize?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/agents/A01/shifts/2025-11-04", nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rota_resolver_theoretical_memoized_total 1")
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestMaterializationScheduler_RunNow(t *testing.T) {
	s := newTestServer(t)
	sched, err := NewMaterializationScheduler(s.h.Resolver, s.store, config.SchedulerConfig{
		Enabled: true, Cron: "0 2 * * *", HorizonDays: 5,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	sched.today = func() generic.TimePoint { return generic.MustParseTimePoint("2025-11-10") }

	res, err := sched.RunNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, res.Agents)
	assert.Equal(t, 30, res.Days)
	assert.Equal(t, "2025-11-14", res.Window.End.String())

	sched.Start()
	assert.False(t, sched.NextRun().IsZero())
	sched.Stop(context.Background())
}

func TestMaterializationScheduler_CronLogsThroughZap(t *testing.T) {
	// GIVEN: A scheduler over an observed zap logger
	s := newTestServer(t)
	core, logs := observer.New(zapcore.DebugLevel)
	sched, err := NewMaterializationScheduler(s.h.Resolver, s.store, config.SchedulerConfig{
		Enabled: true, Cron: "0 2 * * *", HorizonDays: 5,
	}, zap.New(core))
	require.NoError(t, err)

	// WHEN: It is started and stopped
	sched.Start()
	sched.Stop(context.Background())

	// THEN: cron's own start line went to zap under the scheduler's name
	started := logs.FilterMessage("start").All()
	require.NotEmpty(t, started)
	assert.Equal(t, "scheduler.cron", started[0].LoggerName)
}

func TestMaterializationScheduler_InvalidConfig(t *testing.T) {
	_, err := NewMaterializationScheduler(nil, nil, config.SchedulerConfig{Cron: "not a cron", HorizonDays: 5}, nil)
	assert.Error(t, err)

	_, err = NewMaterializationScheduler(nil, nil, config.SchedulerConfig{Cron: "0 2 * * *", HorizonDays: 0}, nil)
	assert.Error(t, err)
}
