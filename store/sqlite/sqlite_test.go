package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rota-engine/generic"
	"github.com/warp/rota-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

var d0 = generic.MustParseTimePoint("2025-11-01")

func TestAgents_ActiveOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, a := range []generic.Agent{
		{Code: "E02", Group: generic.GroupE, EntryDate: d0},
		{Code: "A01", Group: generic.GroupA, EntryDate: d0},
		{Code: "E01", Group: generic.GroupE, EntryDate: d0},
		{Code: "B09", Group: generic.GroupB, EntryDate: d0, ExitDate: d0.AddDays(3)},
	} {
		require.NoError(t, st.SaveAgent(ctx, a))
	}

	all, err := st.ListActiveAgents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []generic.AgentCode{"A01", "E01", "E02"}, []generic.AgentCode{all[0].Code, all[1].Code, all[2].Code})

	e, err := st.ListActiveAgentsByGroup(ctx, generic.GroupE)
	require.NoError(t, err)
	assert.Len(t, e, 2)

	exited, err := st.GetAgent(ctx, "B09")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-04", exited.ExitDate.String())

	_, err = st.GetAgent(ctx, "NOPE")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestEntries_UpsertAndInsertIfAbsent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	theo := generic.ScheduleEntry{AgentCode: "A01", Date: d0, Shift: "1", Origin: generic.OriginTheoretical}

	got, err := st.InsertEntryIfAbsent(ctx, theo)
	require.NoError(t, err)
	assert.Equal(t, generic.Shift("1"), got.Shift)

	// Override replaces
	require.NoError(t, st.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: "A01", Date: d0, Shift: "R", Origin: generic.OriginManual}))

	// A late memoization does not clobber the override
	got, err = st.InsertEntryIfAbsent(ctx, theo)
	require.NoError(t, err)
	assert.Equal(t, generic.Shift("R"), got.Shift)
	assert.Equal(t, generic.OriginManual, got.Origin)

	e, ok, err := st.GetEntry(ctx, "A01", d0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, generic.OriginManual, e.Origin)
}

func TestEntries_FilterListAndDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		origin := generic.OriginTheoretical
		if i == 2 {
			origin = generic.OriginSwap
		}
		require.NoError(t, st.UpsertEntry(ctx, generic.ScheduleEntry{
			AgentCode: "A01", Date: d0.AddDays(i), Shift: "1", Origin: origin,
		}))
	}
	require.NoError(t, st.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: "B02", Date: d0, Shift: "2", Origin: generic.OriginTheoretical}))

	rows, err := st.ListEntries(ctx, generic.EntryFilter{AgentCode: "A01", From: d0.AddDays(1), To: d0.AddDays(3)})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, d0.AddDays(1).String(), rows[0].Date.String())

	n, err := st.DeleteEntries(ctx, generic.EntryFilter{AgentCode: "A01", Origins: []generic.Origin{generic.OriginTheoretical}})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows, err = st.ListEntries(ctx, generic.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx generic.Store) error {
		require.NoError(t, tx.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: "A01", Date: d0, Shift: "2", Origin: generic.OriginSwap}))
		require.NoError(t, tx.UpsertEntry(ctx, generic.ScheduleEntry{AgentCode: "B02", Date: d0, Shift: "1", Origin: generic.OriginSwap}))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	rows, err := st.ListEntries(ctx, generic.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLeavePeriods(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	lp := generic.LeavePeriod{ID: "lp-1", AgentCode: "A01", Start: d0, End: d0.AddDays(6), CreatedAt: time.Now()}
	require.NoError(t, st.SaveLeavePeriod(ctx, lp))

	periods, err := st.ListLeavePeriods(ctx, "A01")
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, 7, periods[0].Period().Len())

	n, err := st.DeleteLeavePeriod(ctx, "A01", d0, d0.AddDays(5))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.DeleteLeavePeriod(ctx, "A01", d0, d0.AddDays(6))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHolidays(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := generic.MustParseTimePoint("2025-03-31")

	created, err := st.SaveHoliday(ctx, generic.Holiday{Date: day, Description: "Eid"})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = st.SaveHoliday(ctx, generic.Holiday{Date: day, Description: "Eid al-Fitr"})
	require.NoError(t, err)
	assert.False(t, created)

	list, err := st.ListHolidays(ctx, generic.StartOfYear(2025), generic.EndOfYear(2025))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Eid al-Fitr", list[0].Description)

	removed, err := st.DeleteHoliday(ctx, day)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = st.DeleteHoliday(ctx, day)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReset(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveAgent(ctx, generic.Agent{Code: "A01", Group: generic.GroupA, EntryDate: d0}))

	require.NoError(t, st.Reset(ctx))

	agents, err := st.ListActiveAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rota.db")
	ctx := context.Background()

	st, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, st.SaveAgent(ctx, generic.Agent{Code: "A01", Group: generic.GroupA, EntryDate: d0}))
	require.NoError(t, st.Close())

	st, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	a, err := st.GetAgent(ctx, "A01")
	require.NoError(t, err)
	assert.Equal(t, generic.GroupA, a.Group)
}
