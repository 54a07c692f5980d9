package rotation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/generic/store"
	"github.com/warp/rota-engine/rotation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var entry = generic.MustParseTimePoint("2025-11-01")

func agent(code string, g generic.Group) generic.Agent {
	return generic.Agent{Code: generic.AgentCode(code), Group: g, EntryDate: entry}
}

func newTestCalculator(t *testing.T, agents ...generic.Agent) *rotation.Calculator {
	t.Helper()
	mem := store.NewMemory()
	for _, a := range agents {
		require.NoError(t, mem.SaveAgent(context.Background(), a))
	}
	return rotation.New(mem)
}

// =============================================================================
// GROUPS A-D
// =============================================================================

func TestCompute_GroupOffsetsOnEntryDay(t *testing.T) {
	// GIVEN: One agent per continuous group, all entering 2025-11-01
	// WHEN: Computing the entry day
	// THEN: Each group starts at its offset in 1 1 2 2 3 3 R R
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(agent("A01", generic.GroupA), entry, nil))
	assert.Equal(t, generic.ShiftAfternoon, rotation.Compute(agent("B02", generic.GroupB), entry, nil))
	assert.Equal(t, generic.ShiftNight, rotation.Compute(agent("C03", generic.GroupC), entry, nil))
	assert.Equal(t, generic.ShiftRest, rotation.Compute(agent("D04", generic.GroupD), entry, nil))
}

func TestCompute_GroupA_FullCycle(t *testing.T) {
	a := agent("A01", generic.GroupA)
	want := []generic.Shift{"1", "1", "2", "2", "3", "3", "R", "R"}

	for i, w := range want {
		assert.Equal(t, w, rotation.Compute(a, entry.AddDays(i), nil), "day %d", i)
	}
}

func TestCompute_PeriodicWithPeriodEight(t *testing.T) {
	for _, g := range []generic.Group{generic.GroupA, generic.GroupB, generic.GroupC, generic.GroupD} {
		a := agent("X", g)
		for d := 0; d < 120; d++ {
			day := entry.AddDays(d)
			assert.Equal(t,
				rotation.Compute(a, day, nil),
				rotation.Compute(a, day.AddDays(rotation.CycleLength), nil),
				"group %s day %s", g, day)
		}
	}
}

func TestCompute_ContinuousCoverage(t *testing.T) {
	// Every day the four groups hold shifts 1, 2, 3 and R exactly once.
	groups := []generic.Group{generic.GroupA, generic.GroupB, generic.GroupC, generic.GroupD}
	for d := 0; d < 16; d++ {
		day := entry.AddDays(d)
		seen := map[generic.Shift]int{}
		for _, g := range groups {
			seen[rotation.Compute(agent("X", g), day, nil)]++
		}
		for _, s := range []generic.Shift{"1", "2", "3", "R"} {
			assert.Equal(t, 1, seen[s], "day %s shift %s", day, s)
		}
	}
}

// =============================================================================
// TENURE WINDOW
// =============================================================================

func TestCompute_OutsideTenureIsUnassigned(t *testing.T) {
	a := agent("A01", generic.GroupA)
	a.ExitDate = generic.MustParseTimePoint("2025-11-20")

	assert.Equal(t, generic.ShiftUnassigned, rotation.Compute(a, entry.AddDays(-1), nil))
	assert.Equal(t, generic.ShiftUnassigned, rotation.Compute(a, a.ExitDate, nil))
	assert.Equal(t, generic.ShiftUnassigned, rotation.Compute(a, a.ExitDate.AddDays(5), nil))
	assert.NotEqual(t, generic.ShiftUnassigned, rotation.Compute(a, a.ExitDate.AddDays(-1), nil))
}

func TestCompute_UnknownGroupRests(t *testing.T) {
	a := agent("Z01", generic.Group("Z"))
	assert.Equal(t, generic.ShiftRest, rotation.Compute(a, entry.AddDays(3), nil))
}

// =============================================================================
// GROUP E
// =============================================================================

func TestCompute_GroupE_KnownWeek(t *testing.T) {
	// GIVEN: E01 and E02, ISO week 45 of 2025 (odd), Monday 2025-11-03
	roster := []generic.AgentCode{"E01", "E02"}
	e1 := agent("E01", generic.GroupE)
	e2 := agent("E02", generic.GroupE)
	monday := generic.MustParseTimePoint("2025-11-03")

	// THEN: Odd week, even day (Monday) -> first ranked on 1
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(e1, monday, roster))
	assert.Equal(t, generic.ShiftAfternoon, rotation.Compute(e2, monday, roster))

	// Tuesday flips
	assert.Equal(t, generic.ShiftAfternoon, rotation.Compute(e1, monday.AddDays(1), roster))
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(e2, monday.AddDays(1), roster))

	// Next Monday is in an even week and flips again
	assert.Equal(t, generic.ShiftAfternoon, rotation.Compute(e1, monday.AddDays(7), roster))
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(e2, monday.AddDays(7), roster))
}

func TestCompute_GroupE_PrimaryPairSplitsShifts(t *testing.T) {
	roster := []generic.AgentCode{"E01", "E02", "E03"}
	e1 := agent("E01", generic.GroupE)
	e2 := agent("E02", generic.GroupE)

	for d := 0; d < 400; d++ {
		day := entry.AddDays(d)
		s1 := rotation.Compute(e1, day, roster)
		s2 := rotation.Compute(e2, day, roster)

		if day.IsWeekend() {
			assert.Equal(t, generic.ShiftRest, s1, "day %s", day)
			assert.Equal(t, generic.ShiftRest, s2, "day %s", day)
			continue
		}
		got := []generic.Shift{s1, s2}
		assert.ElementsMatch(t, []generic.Shift{generic.ShiftMorning, generic.ShiftAfternoon}, got, "day %s", day)
	}
}

func TestCompute_GroupE_ExtraMembersAlternateWeekly(t *testing.T) {
	roster := []generic.AgentCode{"E01", "E02", "E03"}
	e3 := agent("E03", generic.GroupE)
	monday := generic.MustParseTimePoint("2025-11-03") // week 45

	// (2 + 45) is odd -> 2, all week long
	for i := 0; i < 5; i++ {
		assert.Equal(t, generic.ShiftAfternoon, rotation.Compute(e3, monday.AddDays(i), roster))
	}
	// week 46 -> 1
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(e3, monday.AddDays(7), roster))
}

func TestCompute_GroupE_NotInRosterRests(t *testing.T) {
	e := agent("E09", generic.GroupE)
	assert.Equal(t, generic.ShiftRest,
		rotation.Compute(e, generic.MustParseTimePoint("2025-11-03"), []generic.AgentCode{"E01"}))
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCalculator_ReadsRosterFromDirectory(t *testing.T) {
	ctx := context.Background()
	calc := newTestCalculator(t,
		agent("E02", generic.GroupE),
		agent("E01", generic.GroupE),
		agent("A01", generic.GroupA),
	)
	monday := generic.MustParseTimePoint("2025-11-03")

	s, err := calc.TheoreticalShift(ctx, "E01", monday)
	require.NoError(t, err)
	assert.Equal(t, generic.ShiftMorning, s)

	roster, err := calc.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.AgentCode{"E01", "E02"}, roster)
}

func TestCalculator_RosterChangeRewritesRank(t *testing.T) {
	// GIVEN: E02 alone in group E, so it ranks first
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveAgent(ctx, agent("E02", generic.GroupE)))
	calc := rotation.New(mem)
	monday := generic.MustParseTimePoint("2025-11-03")

	before, err := calc.TheoreticalShift(ctx, "E02", monday)
	require.NoError(t, err)
	assert.Equal(t, generic.ShiftMorning, before)

	// WHEN: E01 joins and takes rank 0
	require.NoError(t, mem.SaveAgent(ctx, agent("E01", generic.GroupE)))

	// THEN: The same past date now computes differently for E02
	after, err := calc.TheoreticalShift(ctx, "E02", monday)
	require.NoError(t, err)
	assert.Equal(t, generic.ShiftAfternoon, after)
}

func TestCalculator_UnknownAgent(t *testing.T) {
	calc := newTestCalculator(t)

	_, err := calc.TheoreticalShift(context.Background(), "NOPE", entry)

	assert.True(t, generic.IsNotFound(err))
}

func TestCompute_FarFutureFollowsCycle(t *testing.T) {
	// GIVEN: A group A agent entering 2000-01-01
	a := generic.Agent{Code: "A01", Group: generic.GroupA, EntryDate: generic.MustParseTimePoint("2000-01-01")}

	// WHEN: Computing days 109573 and 109576 after entry
	// THEN: Positions 5 and 0 of the cycle
	assert.Equal(t, generic.ShiftNight, rotation.Compute(a, generic.MustParseTimePoint("2300-01-01"), nil))
	assert.Equal(t, generic.ShiftMorning, rotation.Compute(a, generic.MustParseTimePoint("2300-01-04"), nil))
}
