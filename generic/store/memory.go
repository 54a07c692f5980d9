// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rota-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.TxStore with maps guarded by one mutex.
// Transactions snapshot the whole state and restore it on error.
type Memory struct {
	mu    sync.RWMutex
	state memoryState
	fault func(op string) error
}

type entryKey struct {
	code generic.AgentCode
	day  string
}

type memoryState struct {
	agents   map[generic.AgentCode]generic.Agent
	entries  map[entryKey]generic.ScheduleEntry
	leaves   []generic.LeavePeriod
	holidays map[string]generic.Holiday
}

// Compile-time check
var _ generic.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

func newMemoryState() memoryState {
	return memoryState{
		agents:   make(map[generic.AgentCode]generic.Agent),
		entries:  make(map[entryKey]generic.ScheduleEntry),
		holidays: make(map[string]generic.Holiday),
	}
}

// SetFault installs a hook called before every write; a non-nil return aborts
// the write with a StorageFailure. Tests use it to exercise rollback.
func (m *Memory) SetFault(fn func(op string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *Memory) checkFault(op string) error {
	if m.fault == nil {
		return nil
	}
	return generic.StorageFailure(op, m.fault(op))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memoryView{m: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newMemoryState()
	return nil
}

func (s memoryState) clone() memoryState {
	c := newMemoryState()
	for k, v := range s.agents {
		c.agents[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	c.leaves = append([]generic.LeavePeriod(nil), s.leaves...)
	return c
}

// memoryView is the transactional view handed to WithTx callbacks. The
// parent's lock is already held, so it calls the unlocked helpers directly.
type memoryView struct {
	m *Memory
}

func (v *memoryView) GetAgent(_ context.Context, code generic.AgentCode) (generic.Agent, error) {
	return v.m.getAgent(code)
}
func (v *memoryView) ListActiveAgents(_ context.Context) ([]generic.Agent, error) {
	return v.m.listActive(""), nil
}
func (v *memoryView) ListActiveAgentsByGroup(_ context.Context, g generic.Group) ([]generic.Agent, error) {
	return v.m.listActive(g), nil
}
func (v *memoryView) SaveAgent(_ context.Context, a generic.Agent) error {
	return v.m.saveAgent(a)
}
func (v *memoryView) GetEntry(_ context.Context, code generic.AgentCode, day generic.TimePoint) (generic.ScheduleEntry, bool, error) {
	e, ok := v.m.state.entries[entryKey{code, day.String()}]
	return e, ok, nil
}
func (v *memoryView) UpsertEntry(_ context.Context, e generic.ScheduleEntry) error {
	return v.m.upsertEntry(e)
}
func (v *memoryView) InsertEntryIfAbsent(_ context.Context, e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	return v.m.insertIfAbsent(e)
}
func (v *memoryView) ListEntries(_ context.Context, f generic.EntryFilter) ([]generic.ScheduleEntry, error) {
	return v.m.listEntries(f), nil
}
func (v *memoryView) DeleteEntries(_ context.Context, f generic.EntryFilter) (int, error) {
	return v.m.deleteEntries(f)
}
func (v *memoryView) SaveLeavePeriod(_ context.Context, lp generic.LeavePeriod) error {
	return v.m.saveLeave(lp)
}
func (v *memoryView) DeleteLeavePeriod(_ context.Context, code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	return v.m.deleteLeave(code, start, end)
}
func (v *memoryView) ListLeavePeriods(_ context.Context, code generic.AgentCode) ([]generic.LeavePeriod, error) {
	return v.m.listLeaves(code), nil
}
func (v *memoryView) SaveHoliday(_ context.Context, h generic.Holiday) (bool, error) {
	return v.m.saveHoliday(h)
}
func (v *memoryView) DeleteHoliday(_ context.Context, day generic.TimePoint) (bool, error) {
	return v.m.deleteHoliday(day)
}
func (v *memoryView) GetHoliday(_ context.Context, day generic.TimePoint) (generic.Holiday, bool, error) {
	h, ok := v.m.state.holidays[day.String()]
	return h, ok, nil
}
func (v *memoryView) ListHolidays(_ context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	return v.m.listHolidays(from, to), nil
}

// =============================================================================
// AGENTS
// =============================================================================

func (m *Memory) GetAgent(_ context.Context, code generic.AgentCode) (generic.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAgent(code)
}

func (m *Memory) ListActiveAgents(_ context.Context) ([]generic.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listActive(""), nil
}

func (m *Memory) ListActiveAgentsByGroup(_ context.Context, g generic.Group) ([]generic.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listActive(g), nil
}

func (m *Memory) SaveAgent(_ context.Context, a generic.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAgent(a)
}

func (m *Memory) getAgent(code generic.AgentCode) (generic.Agent, error) {
	a, ok := m.state.agents[code]
	if !ok {
		return generic.Agent{}, generic.AgentNotFound("get agent", code)
	}
	return a, nil
}

func (m *Memory) listActive(g generic.Group) []generic.Agent {
	var result []generic.Agent
	for _, a := range m.state.agents {
		if !a.IsActive() || (g != "" && a.Group != g) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Code < result[j].Code
	})
	return result
}

func (m *Memory) saveAgent(a generic.Agent) error {
	if err := m.checkFault("save agent"); err != nil {
		return err
	}
	m.state.agents[a.Code] = a
	return nil
}

// =============================================================================
// SCHEDULE ENTRIES
// =============================================================================

func (m *Memory) GetEntry(_ context.Context, code generic.AgentCode, day generic.TimePoint) (generic.ScheduleEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.state.entries[entryKey{code, day.String()}]
	return e, ok, nil
}

func (m *Memory) UpsertEntry(_ context.Context, e generic.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertEntry(e)
}

func (m *Memory) InsertEntryIfAbsent(_ context.Context, e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertIfAbsent(e)
}

func (m *Memory) ListEntries(_ context.Context, f generic.EntryFilter) ([]generic.ScheduleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntries(f), nil
}

func (m *Memory) DeleteEntries(_ context.Context, f generic.EntryFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEntries(f)
}

func (m *Memory) upsertEntry(e generic.ScheduleEntry) error {
	if err := m.checkFault("upsert entry"); err != nil {
		return err
	}
	m.state.entries[entryKey{e.AgentCode, e.Date.String()}] = e
	return nil
}

func (m *Memory) insertIfAbsent(e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	k := entryKey{e.AgentCode, e.Date.String()}
	if existing, ok := m.state.entries[k]; ok {
		return existing, nil
	}
	if err := m.checkFault("insert entry"); err != nil {
		return generic.ScheduleEntry{}, err
	}
	m.state.entries[k] = e
	return e, nil
}

func (m *Memory) listEntries(f generic.EntryFilter) []generic.ScheduleEntry {
	var result []generic.ScheduleEntry
	for _, e := range m.state.entries {
		if f.Matches(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AgentCode != result[j].AgentCode {
			return result[i].AgentCode < result[j].AgentCode
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func (m *Memory) deleteEntries(f generic.EntryFilter) (int, error) {
	if err := m.checkFault("delete entries"); err != nil {
		return 0, err
	}
	n := 0
	for k, e := range m.state.entries {
		if f.Matches(e) {
			delete(m.state.entries, k)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// LEAVE PERIODS
// =============================================================================

func (m *Memory) SaveLeavePeriod(_ context.Context, lp generic.LeavePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLeave(lp)
}

func (m *Memory) DeleteLeavePeriod(_ context.Context, code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLeave(code, start, end)
}

func (m *Memory) ListLeavePeriods(_ context.Context, code generic.AgentCode) ([]generic.LeavePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLeaves(code), nil
}

func (m *Memory) saveLeave(lp generic.LeavePeriod) error {
	if err := m.checkFault("save leave period"); err != nil {
		return err
	}
	m.state.leaves = append(m.state.leaves, lp)
	return nil
}

func (m *Memory) deleteLeave(code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	if err := m.checkFault("delete leave period"); err != nil {
		return 0, err
	}
	kept := m.state.leaves[:0]
	n := 0
	for _, lp := range m.state.leaves {
		if lp.AgentCode == code && lp.Start.Equal(start) && lp.End.Equal(end) {
			n++
			continue
		}
		kept = append(kept, lp)
	}
	m.state.leaves = kept
	return n, nil
}

func (m *Memory) listLeaves(code generic.AgentCode) []generic.LeavePeriod {
	var result []generic.LeavePeriod
	for _, lp := range m.state.leaves {
		if lp.AgentCode == code {
			result = append(result, lp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveHoliday(h)
}

func (m *Memory) DeleteHoliday(_ context.Context, day generic.TimePoint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteHoliday(day)
}

func (m *Memory) GetHoliday(_ context.Context, day generic.TimePoint) (generic.Holiday, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.state.holidays[day.String()]
	return h, ok, nil
}

func (m *Memory) ListHolidays(_ context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listHolidays(from, to), nil
}

func (m *Memory) saveHoliday(h generic.Holiday) (bool, error) {
	if err := m.checkFault("save holiday"); err != nil {
		return false, err
	}
	_, existed := m.state.holidays[h.Date.String()]
	m.state.holidays[h.Date.String()] = h
	return !existed, nil
}

func (m *Memory) deleteHoliday(day generic.TimePoint) (bool, error) {
	if err := m.checkFault("delete holiday"); err != nil {
		return false, err
	}
	if _, ok := m.state.holidays[day.String()]; !ok {
		return false, nil
	}
	delete(m.state.holidays, day.String())
	return true, nil
}

func (m *Memory) listHolidays(from, to generic.TimePoint) []generic.Holiday {
	var result []generic.Holiday
	for _, h := range m.state.holidays {
		if h.Date.AfterOrEqual(from) && h.Date.BeforeOrEqual(to) {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}
