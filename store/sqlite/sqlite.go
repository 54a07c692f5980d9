/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore using SQLite. The same statements run on
  PostgreSQL with minor dialect changes (ON CONFLICT is shared).

KEY TABLES:
  agents:           Personnel registry facts the rotation depends on
  schedule_entries: Override store, PRIMARY KEY (agent_code, date)
  leave_periods:    Booked leave requests
  holidays:         Manually registered holidays (fixed ones are computed)

INDEXES:
  - idx_schedule_entries_date_origin: Holiday invalidation (one date, all agents)
  - idx_schedule_entries_agent_origin: Agent invalidation
  - idx_leave_periods_agent: Leave listing and exact-range cancellation

CONCURRENCY:
  Single writer discipline. The pool is capped at one connection and a
  sync.RWMutex serializes writers; WithTx holds the write lock for the whole
  transaction and hands the callback a view bound to the *sql.Tx, so nothing
  inside the callback re-enters the lock.

DATES:
  Stored as TEXT YYYY-MM-DD so BETWEEN and ORDER BY work lexically.

USAGE:
  store, err := sqlite.New("./data/rota.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/rota-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check
var _ generic.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: required for ":memory:" and matches the single writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		code TEXT PRIMARY KEY,
		last_name TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		group_code TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		exit_date TEXT,
		CHECK (exit_date IS NULL OR exit_date >= entry_date)
	);

	CREATE INDEX IF NOT EXISTS idx_agents_group_active
		ON agents(group_code, code) WHERE exit_date IS NULL;

	CREATE TABLE IF NOT EXISTS schedule_entries (
		agent_code TEXT NOT NULL,
		date TEXT NOT NULL,
		shift TEXT NOT NULL CHECK (shift IN ('1','2','3','R','C','M','A')),
		origin TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (agent_code, date)
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_entries_date_origin
		ON schedule_entries(date, origin);
	CREATE INDEX IF NOT EXISTS idx_schedule_entries_agent_origin
		ON schedule_entries(agent_code, origin);

	CREATE TABLE IF NOT EXISTS leave_periods (
		id TEXT PRIMARY KEY,
		agent_code TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK (start_date <= end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_periods_agent
		ON leave_periods(agent_code, start_date, end_date);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.StorageFailure("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return generic.StorageFailure("commit transaction", err)
	}
	return nil
}

// Reset wipes all tables (dev/demo only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM schedule_entries;
		DELETE FROM leave_periods;
		DELETE FROM holidays;
		DELETE FROM agents;
	`)
	return generic.StorageFailure("reset", err)
}

// txStore runs every statement on the open transaction without locking;
// the parent's WithTx already holds the write lock.
type txStore struct {
	q querier
}

func (ts *txStore) GetAgent(ctx context.Context, code generic.AgentCode) (generic.Agent, error) {
	return getAgent(ctx, ts.q, code)
}
func (ts *txStore) ListActiveAgents(ctx context.Context) ([]generic.Agent, error) {
	return listActiveAgents(ctx, ts.q, "")
}
func (ts *txStore) ListActiveAgentsByGroup(ctx context.Context, g generic.Group) ([]generic.Agent, error) {
	return listActiveAgents(ctx, ts.q, g)
}
func (ts *txStore) SaveAgent(ctx context.Context, a generic.Agent) error {
	return saveAgent(ctx, ts.q, a)
}
func (ts *txStore) GetEntry(ctx context.Context, code generic.AgentCode, day generic.TimePoint) (generic.ScheduleEntry, bool, error) {
	return getEntry(ctx, ts.q, code, day)
}
func (ts *txStore) UpsertEntry(ctx context.Context, e generic.ScheduleEntry) error {
	return upsertEntry(ctx, ts.q, e)
}
func (ts *txStore) InsertEntryIfAbsent(ctx context.Context, e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	return insertEntryIfAbsent(ctx, ts.q, e)
}
func (ts *txStore) ListEntries(ctx context.Context, f generic.EntryFilter) ([]generic.ScheduleEntry, error) {
	return listEntries(ctx, ts.q, f)
}
func (ts *txStore) DeleteEntries(ctx context.Context, f generic.EntryFilter) (int, error) {
	return deleteEntries(ctx, ts.q, f)
}
func (ts *txStore) SaveLeavePeriod(ctx context.Context, lp generic.LeavePeriod) error {
	return saveLeavePeriod(ctx, ts.q, lp)
}
func (ts *txStore) DeleteLeavePeriod(ctx context.Context, code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	return deleteLeavePeriod(ctx, ts.q, code, start, end)
}
func (ts *txStore) ListLeavePeriods(ctx context.Context, code generic.AgentCode) ([]generic.LeavePeriod, error) {
	return listLeavePeriods(ctx, ts.q, code)
}
func (ts *txStore) SaveHoliday(ctx context.Context, h generic.Holiday) (bool, error) {
	return saveHoliday(ctx, ts.q, h)
}
func (ts *txStore) DeleteHoliday(ctx context.Context, day generic.TimePoint) (bool, error) {
	return deleteHoliday(ctx, ts.q, day)
}
func (ts *txStore) GetHoliday(ctx context.Context, day generic.TimePoint) (generic.Holiday, bool, error) {
	return getHoliday(ctx, ts.q, day)
}
func (ts *txStore) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	return listHolidays(ctx, ts.q, from, to)
}

// =============================================================================
// AGENT STORE
// =============================================================================

// GetAgent retrieves an agent by code.
func (s *Store) GetAgent(ctx context.Context, code generic.AgentCode) (generic.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAgent(ctx, s.db, code)
}

// ListActiveAgents returns agents without exit date ordered by group, code.
func (s *Store) ListActiveAgents(ctx context.Context) ([]generic.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listActiveAgents(ctx, s.db, "")
}

// ListActiveAgentsByGroup returns the group's active agents ordered by code.
func (s *Store) ListActiveAgentsByGroup(ctx context.Context, g generic.Group) ([]generic.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listActiveAgents(ctx, s.db, g)
}

// SaveAgent inserts or updates an agent.
func (s *Store) SaveAgent(ctx context.Context, a generic.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAgent(ctx, s.db, a)
}

const agentColumns = "code, last_name, first_name, group_code, entry_date, exit_date"

func getAgent(ctx context.Context, q querier, code generic.AgentCode) (generic.Agent, error) {
	row := q.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM agents WHERE code = ?", code)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Agent{}, generic.AgentNotFound("get agent", code)
	}
	if err != nil {
		return generic.Agent{}, generic.StorageFailure("get agent", err)
	}
	return a, nil
}

func listActiveAgents(ctx context.Context, q querier, g generic.Group) ([]generic.Agent, error) {
	query := "SELECT " + agentColumns + " FROM agents WHERE exit_date IS NULL"
	var args []any
	if g != "" {
		query += " AND group_code = ?"
		args = append(args, g)
	}
	query += " ORDER BY group_code, code"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, generic.StorageFailure("list agents", err)
	}
	defer rows.Close()

	var agents []generic.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, generic.StorageFailure("scan agent", err)
		}
		agents = append(agents, a)
	}
	return agents, generic.StorageFailure("list agents", rows.Err())
}

func saveAgent(ctx context.Context, q querier, a generic.Agent) error {
	query := `
		INSERT INTO agents (code, last_name, first_name, group_code, entry_date, exit_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			last_name = excluded.last_name,
			first_name = excluded.first_name,
			group_code = excluded.group_code,
			entry_date = excluded.entry_date,
			exit_date = excluded.exit_date
	`
	_, err := q.ExecContext(ctx, query,
		a.Code, a.LastName, a.FirstName, a.Group,
		a.EntryDate.String(), nullDate(a.ExitDate),
	)
	return generic.StorageFailure("save agent", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (generic.Agent, error) {
	var (
		a         generic.Agent
		entryDate string
		exitDate  sql.NullString
	)
	if err := row.Scan(&a.Code, &a.LastName, &a.FirstName, &a.Group, &entryDate, &exitDate); err != nil {
		return a, err
	}
	var err error
	if a.EntryDate, err = parseDate(entryDate); err != nil {
		return a, err
	}
	if exitDate.Valid && exitDate.String != "" {
		if a.ExitDate, err = parseDate(exitDate.String); err != nil {
			return a, err
		}
	}
	return a, nil
}

// =============================================================================
// SCHEDULE STORE (override store)
// =============================================================================

// GetEntry returns the stored row for (agent, day), if any.
func (s *Store) GetEntry(ctx context.Context, code generic.AgentCode, day generic.TimePoint) (generic.ScheduleEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, code, day)
}

// UpsertEntry writes the row, last write wins.
func (s *Store) UpsertEntry(ctx context.Context, e generic.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertEntry(ctx, s.db, e)
}

// InsertEntryIfAbsent writes only when the key is free; returns the stored row.
func (s *Store) InsertEntryIfAbsent(ctx context.Context, e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEntryIfAbsent(ctx, s.db, e)
}

// ListEntries returns rows matching the filter.
func (s *Store) ListEntries(ctx context.Context, f generic.EntryFilter) ([]generic.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntries(ctx, s.db, f)
}

// DeleteEntries removes rows matching the filter.
func (s *Store) DeleteEntries(ctx context.Context, f generic.EntryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEntries(ctx, s.db, f)
}

func getEntry(ctx context.Context, q querier, code generic.AgentCode, day generic.TimePoint) (generic.ScheduleEntry, bool, error) {
	var shift, origin string
	err := q.QueryRowContext(ctx,
		"SELECT shift, origin FROM schedule_entries WHERE agent_code = ? AND date = ?",
		code, day.String(),
	).Scan(&shift, &origin)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ScheduleEntry{}, false, nil
	}
	if err != nil {
		return generic.ScheduleEntry{}, false, generic.StorageFailure("get entry", err)
	}
	return generic.ScheduleEntry{
		AgentCode: code,
		Date:      day,
		Shift:     generic.Shift(shift),
		Origin:    generic.Origin(origin),
	}, true, nil
}

func upsertEntry(ctx context.Context, q querier, e generic.ScheduleEntry) error {
	query := `
		INSERT INTO schedule_entries (agent_code, date, shift, origin, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_code, date) DO UPDATE SET
			shift = excluded.shift,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query, e.AgentCode, e.Date.String(), e.Shift, e.Origin, now())
	return generic.StorageFailure("upsert entry", err)
}

func insertEntryIfAbsent(ctx context.Context, q querier, e generic.ScheduleEntry) (generic.ScheduleEntry, error) {
	query := `
		INSERT INTO schedule_entries (agent_code, date, shift, origin, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_code, date) DO NOTHING
	`
	res, err := q.ExecContext(ctx, query, e.AgentCode, e.Date.String(), e.Shift, e.Origin, now())
	if err != nil {
		return generic.ScheduleEntry{}, generic.StorageFailure("insert entry", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return e, nil
	}
	stored, ok, err := getEntry(ctx, q, e.AgentCode, e.Date)
	if err != nil {
		return generic.ScheduleEntry{}, err
	}
	if !ok {
		// Deleted between the two statements; report what we tried to write.
		return e, nil
	}
	return stored, nil
}

func listEntries(ctx context.Context, q querier, f generic.EntryFilter) ([]generic.ScheduleEntry, error) {
	where, args := entryWhere(f)
	rows, err := q.QueryContext(ctx,
		"SELECT agent_code, date, shift, origin FROM schedule_entries"+where+" ORDER BY agent_code, date",
		args...,
	)
	if err != nil {
		return nil, generic.StorageFailure("list entries", err)
	}
	defer rows.Close()

	var entries []generic.ScheduleEntry
	for rows.Next() {
		var (
			e    generic.ScheduleEntry
			date string
		)
		if err := rows.Scan(&e.AgentCode, &date, &e.Shift, &e.Origin); err != nil {
			return nil, generic.StorageFailure("scan entry", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, generic.StorageFailure("scan entry", err)
		}
		entries = append(entries, e)
	}
	return entries, generic.StorageFailure("list entries", rows.Err())
}

func deleteEntries(ctx context.Context, q querier, f generic.EntryFilter) (int, error) {
	where, args := entryWhere(f)
	res, err := q.ExecContext(ctx, "DELETE FROM schedule_entries"+where, args...)
	if err != nil {
		return 0, generic.StorageFailure("delete entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, generic.StorageFailure("delete entries", err)
	}
	return int(n), nil
}

func entryWhere(f generic.EntryFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.AgentCode != "" {
		clauses = append(clauses, "agent_code = ?")
		args = append(args, f.AgentCode)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.String())
	}
	if len(f.Origins) > 0 {
		placeholders := make([]string, len(f.Origins))
		for i, o := range f.Origins {
			placeholders[i] = "?"
			args = append(args, o)
		}
		clauses = append(clauses, "origin IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// =============================================================================
// LEAVE STORE
// =============================================================================

// SaveLeavePeriod records a booked leave period.
func (s *Store) SaveLeavePeriod(ctx context.Context, lp generic.LeavePeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLeavePeriod(ctx, s.db, lp)
}

// DeleteLeavePeriod removes periods matching the exact range.
func (s *Store) DeleteLeavePeriod(ctx context.Context, code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteLeavePeriod(ctx, s.db, code, start, end)
}

// ListLeavePeriods returns the agent's periods ordered by start date.
func (s *Store) ListLeavePeriods(ctx context.Context, code generic.AgentCode) ([]generic.LeavePeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLeavePeriods(ctx, s.db, code)
}

func saveLeavePeriod(ctx context.Context, q querier, lp generic.LeavePeriod) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO leave_periods (id, agent_code, start_date, end_date, created_at) VALUES (?, ?, ?, ?, ?)",
		lp.ID, lp.AgentCode, lp.Start.String(), lp.End.String(), lp.CreatedAt.UTC().Format(time.RFC3339),
	)
	return generic.StorageFailure("save leave period", err)
}

func deleteLeavePeriod(ctx context.Context, q querier, code generic.AgentCode, start, end generic.TimePoint) (int, error) {
	res, err := q.ExecContext(ctx,
		"DELETE FROM leave_periods WHERE agent_code = ? AND start_date = ? AND end_date = ?",
		code, start.String(), end.String(),
	)
	if err != nil {
		return 0, generic.StorageFailure("delete leave period", err)
	}
	n, err := res.RowsAffected()
	return int(n), generic.StorageFailure("delete leave period", err)
}

func listLeavePeriods(ctx context.Context, q querier, code generic.AgentCode) ([]generic.LeavePeriod, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, agent_code, start_date, end_date, created_at FROM leave_periods WHERE agent_code = ? ORDER BY start_date, created_at",
		code,
	)
	if err != nil {
		return nil, generic.StorageFailure("list leave periods", err)
	}
	defer rows.Close()

	var periods []generic.LeavePeriod
	for rows.Next() {
		var (
			lp                          generic.LeavePeriod
			startDate, endDate, created string
		)
		if err := rows.Scan(&lp.ID, &lp.AgentCode, &startDate, &endDate, &created); err != nil {
			return nil, generic.StorageFailure("scan leave period", err)
		}
		if lp.Start, err = parseDate(startDate); err != nil {
			return nil, generic.StorageFailure("scan leave period", err)
		}
		if lp.End, err = parseDate(endDate); err != nil {
			return nil, generic.StorageFailure("scan leave period", err)
		}
		lp.CreatedAt, _ = time.Parse(time.RFC3339, created)
		periods = append(periods, lp)
	}
	return periods, generic.StorageFailure("list leave periods", rows.Err())
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// SaveHoliday upserts a manual holiday and reports whether the date was new.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveHoliday(ctx, s.db, h)
}

// DeleteHoliday removes a manual holiday.
func (s *Store) DeleteHoliday(ctx context.Context, day generic.TimePoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteHoliday(ctx, s.db, day)
}

// GetHoliday looks up a manual holiday.
func (s *Store) GetHoliday(ctx context.Context, day generic.TimePoint) (generic.Holiday, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getHoliday(ctx, s.db, day)
}

// ListHolidays returns manual holidays in [from, to].
func (s *Store) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHolidays(ctx, s.db, from, to)
}

func saveHoliday(ctx context.Context, q querier, h generic.Holiday) (bool, error) {
	_, existed, err := getHoliday(ctx, q, h.Date)
	if err != nil {
		return false, err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO holidays (date, description, created_at) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET description = excluded.description
	`, h.Date.String(), h.Description, now())
	if err != nil {
		return false, generic.StorageFailure("save holiday", err)
	}
	return !existed, nil
}

func deleteHoliday(ctx context.Context, q querier, day generic.TimePoint) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM holidays WHERE date = ?", day.String())
	if err != nil {
		return false, generic.StorageFailure("delete holiday", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, generic.StorageFailure("delete holiday", err)
	}
	return n > 0, nil
}

func getHoliday(ctx context.Context, q querier, day generic.TimePoint) (generic.Holiday, bool, error) {
	var description string
	err := q.QueryRowContext(ctx, "SELECT description FROM holidays WHERE date = ?", day.String()).Scan(&description)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Holiday{}, false, nil
	}
	if err != nil {
		return generic.Holiday{}, false, generic.StorageFailure("get holiday", err)
	}
	return generic.Holiday{Date: day, Description: description}, true, nil
}

func listHolidays(ctx context.Context, q querier, from, to generic.TimePoint) ([]generic.Holiday, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT date, description FROM holidays WHERE date BETWEEN ? AND ? ORDER BY date",
		from.String(), to.String(),
	)
	if err != nil {
		return nil, generic.StorageFailure("list holidays", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var (
			h    generic.Holiday
			date string
		)
		if err := rows.Scan(&date, &h.Description); err != nil {
			return nil, generic.StorageFailure("scan holiday", err)
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, generic.StorageFailure("scan holiday", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, generic.StorageFailure("list holidays", rows.Err())
}

// Helper functions

func nullDate(tp generic.TimePoint) sql.NullString {
	if tp.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func parseDate(s string) (generic.TimePoint, error) {
	t, err := time.Parse(generic.DateLayout, s)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("malformed stored date %q: %w", s, err)
	}
	return generic.FromTime(t), nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
