/*
store.go - Persistence interfaces for the scheduling engine

PURPOSE:
  Defines the boundary between the engine and its storage. Components take a
  TxStore at construction; there is no package-level handle. Implementations
  own their connection lifecycle (open at process start, Close at shutdown,
  one per test).

KEY INTERFACES:
  AgentDirectory: Read access to the personnel registry
  AgentStore:     AgentDirectory plus registry writes
  ScheduleStore:  The override store, sparse (agent, day) -> (shift, origin)
  LeaveStore:     Booked leave periods
  HolidayStore:   Manually registered holidays
  Store:          All of the above
  TxStore:        Store plus WithTx for atomic multi-row writes

ATOMICITY:
  WithTx runs fn against a transactional view. If fn returns an error the
  whole transaction is rolled back; otherwise it is committed before WithTx
  returns. Leave expansion, swaps, holiday removal and agent edits that
  invalidate memoized rows all go through WithTx.

IDEMPOTENCY:
  UpsertEntry replaces any row with the same key (last write wins).
  InsertEntryIfAbsent never replaces; it returns whatever row is stored
  after the call, which is how memoize-on-read stays race free.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Durable SQLite store
  - generic/store/memory.go: In-memory store for tests

SEE ALSO:
  - errors.go: StorageFailure wrapping
*/
package generic

import "context"

// AgentDirectory is the read side of the personnel registry.
type AgentDirectory interface {
	// GetAgent returns a NotFound error for unknown codes.
	GetAgent(ctx context.Context, code AgentCode) (Agent, error)

	// ListActiveAgents returns agents without an exit date, ordered by group then code.
	ListActiveAgents(ctx context.Context) ([]Agent, error)

	// ListActiveAgentsByGroup returns the group's active agents ordered by code.
	ListActiveAgentsByGroup(ctx context.Context, group Group) ([]Agent, error)
}

// AgentStore adds registry writes. Agents are never deleted, only exited.
type AgentStore interface {
	AgentDirectory

	// SaveAgent inserts or replaces the agent record.
	SaveAgent(ctx context.Context, agent Agent) error
}

// ScheduleStore is the override store.
type ScheduleStore interface {
	// GetEntry returns (entry, true) when a row exists for the key.
	GetEntry(ctx context.Context, code AgentCode, day TimePoint) (ScheduleEntry, bool, error)

	// UpsertEntry writes the row, replacing any existing one.
	UpsertEntry(ctx context.Context, entry ScheduleEntry) error

	// InsertEntryIfAbsent writes the row only when the key is free and
	// returns the row stored after the call.
	InsertEntryIfAbsent(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)

	// ListEntries returns rows matching the filter ordered by agent then date.
	ListEntries(ctx context.Context, filter EntryFilter) ([]ScheduleEntry, error)

	// DeleteEntries removes rows matching the filter and returns how many.
	DeleteEntries(ctx context.Context, filter EntryFilter) (int, error)
}

// LeaveStore persists booked leave periods.
type LeaveStore interface {
	SaveLeavePeriod(ctx context.Context, lp LeavePeriod) error

	// DeleteLeavePeriod removes periods with exactly this start and end.
	DeleteLeavePeriod(ctx context.Context, code AgentCode, start, end TimePoint) (int, error)

	// ListLeavePeriods returns the agent's periods ordered by start.
	ListLeavePeriods(ctx context.Context, code AgentCode) ([]LeavePeriod, error)
}

// HolidayStore persists manual holidays. Fixed holidays are never stored.
type HolidayStore interface {
	// SaveHoliday upserts by date and reports whether the date was new.
	SaveHoliday(ctx context.Context, h Holiday) (bool, error)

	// DeleteHoliday reports whether a row was removed.
	DeleteHoliday(ctx context.Context, day TimePoint) (bool, error)

	GetHoliday(ctx context.Context, day TimePoint) (Holiday, bool, error)

	// ListHolidays returns manual holidays in [from, to] ordered by date.
	ListHolidays(ctx context.Context, from, to TimePoint) ([]Holiday, error)
}

// Store groups every persistence concern of the engine.
type Store interface {
	AgentStore
	ScheduleStore
	LeaveStore
	HolidayStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Reset removes every row from every table (demo scenarios and tests).
	Reset(ctx context.Context) error
}
