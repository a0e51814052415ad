/*
Package sqlite provides the SQLite-backed implementation of the
schedule storage interfaces.

PURPOSE:
  Implements schedule.Store using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  shifts:          The shift catalog
  bookings:        All bookings, every lifecycle status
  vacations:       Leave entries (vacation, sick, education)
  hour_exceptions: Per-user weekly cap overrides, keyed (user, week)
  requests:        Cancel/swap requests
  audit_log:       Append-only audit trail

INDEXES:
  - idx_shifts_date:          Range queries over the calendar (hot path)
  - idx_bookings_shift:       Capacity counting during the booking transaction
  - idx_bookings_user:        Weekly hour computation
  - idx_vacations_user_range: Leave overlap checks

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; WithTx holds the write lock for
  the whole transaction, so booking transactions serialize. SQLite busy
  and locked errors surface as schedule.ErrConcurrentModification so
  the engine's retry loop can re-run the transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule/store.go:        Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/schedule"
)

// Store implements schedule.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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
	-- Shift catalog
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		type TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		created_by TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_date
		ON shifts(date);

	-- Bookings, every lifecycle status including cancelled
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		status TEXT NOT NULL,
		custom_start_time TEXT,
		custom_end_time TEXT,
		cancel_reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_shift
		ON bookings(shift_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_user
		ON bookings(user_id);

	-- Leave entries
	CREATE TABLE IF NOT EXISTS vacations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days INTEGER NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		deletion_requested INTEGER NOT NULL DEFAULT 0,
		deletion_reason TEXT,
		deletion_rejected_at TEXT,
		cancelled_booking_ids TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_user_range
		ON vacations(user_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_vacations_range
		ON vacations(start_date, end_date);

	-- Weekly hour cap overrides; NULL max_hours lifts the cap
	CREATE TABLE IF NOT EXISTS hour_exceptions (
		user_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		user_name TEXT NOT NULL,
		max_hours TEXT,
		set_by TEXT,
		set_by_name TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, week_start)
	);

	-- Cancel/swap requests
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		booking_id TEXT NOT NULL,
		to_shift_id TEXT,
		target_user_id TEXT,
		admin_note TEXT,
		decided_by TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_requester
		ON requests(requester_id);

	-- Append-only audit trail
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_name TEXT,
		target_id TEXT,
		detail TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_at
		ON audit_log(at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so every statement runs either
// directly or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SHIFTS
// =============================================================================

func (s *Store) SaveShift(ctx context.Context, shift schedule.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveShift(ctx, s.db, shift)
}

func saveShift(ctx context.Context, q querier, shift schedule.Shift) error {
	query := `
		INSERT INTO shifts (id, date, start_time, end_time, type, capacity, created_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			type = excluded.type,
			capacity = excluded.capacity,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		shift.ID,
		shift.Date.String(),
		shift.StartTime.String(),
		shift.EndTime.String(),
		string(shift.Type),
		shift.Capacity,
		shift.CreatedBy,
		shift.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("save shift", err)
	}
	return nil
}

func (s *Store) GetShift(ctx context.Context, id string) (*schedule.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getShift(ctx, s.db, id)
}

func getShift(ctx context.Context, q querier, id string) (*schedule.Shift, error) {
	shifts, err := queryShifts(ctx, q, selectShifts+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, nil
	}
	return &shifts[0], nil
}

func (s *Store) ShiftsInRange(ctx context.Context, from, to schedule.Day) ([]schedule.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shiftsInRange(ctx, s.db, from, to)
}

func shiftsInRange(ctx context.Context, q querier, from, to schedule.Day) ([]schedule.Shift, error) {
	query := selectShifts + `
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC, id ASC
	`
	return queryShifts(ctx, q, query, from.String(), to.String())
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteShift(ctx, s.db, id)
}

func deleteShift(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM shifts WHERE id = ?", id); err != nil {
		return wrapErr("delete shift", err)
	}
	return nil
}

const selectShifts = `
	SELECT id, date, start_time, end_time, type, capacity, created_by, updated_at
	FROM shifts
`

func queryShifts(ctx context.Context, q querier, query string, args ...any) ([]schedule.Shift, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query shifts", err)
	}
	defer rows.Close()

	var shifts []schedule.Shift
	for rows.Next() {
		var (
			shift     schedule.Shift
			date      string
			startTime string
			endTime   string
			typ       string
			createdBy sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&shift.ID, &date, &startTime, &endTime, &typ,
			&shift.Capacity, &createdBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		if shift.Date, err = schedule.ParseDay(date); err != nil {
			return nil, fmt.Errorf("bad shift date %q: %w", date, err)
		}
		if shift.StartTime, err = schedule.ParseClock(startTime); err != nil {
			return nil, fmt.Errorf("bad shift start %q: %w", startTime, err)
		}
		if shift.EndTime, err = schedule.ParseClock(endTime); err != nil {
			return nil, fmt.Errorf("bad shift end %q: %w", endTime, err)
		}
		shift.Type = schedule.ShiftType(typ)
		shift.CreatedBy = createdBy.String
		shift.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *Store) SaveBooking(ctx context.Context, b schedule.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBooking(ctx, s.db, b)
}

func saveBooking(ctx context.Context, q querier, b schedule.Booking) error {
	query := `
		INSERT INTO bookings
		(id, shift_id, user_id, user_name, status, custom_start_time, custom_end_time, cancel_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shift_id = excluded.shift_id,
			user_id = excluded.user_id,
			status = excluded.status,
			custom_start_time = excluded.custom_start_time,
			custom_end_time = excluded.custom_end_time,
			cancel_reason = excluded.cancel_reason
	`
	_, err := q.ExecContext(ctx, query,
		b.ID,
		b.ShiftID,
		b.UserID,
		b.UserName,
		string(b.Status),
		nullClock(b.CustomStartTime),
		nullClock(b.CustomEndTime),
		nullString(b.CancelReason),
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("save booking", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*schedule.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, q querier, id string) (*schedule.Booking, error) {
	bookings, err := queryBookings(ctx, q, selectBookings+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBooking(ctx, s.db, id)
}

func deleteBooking(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id); err != nil {
		return wrapErr("delete booking", err)
	}
	return nil
}

func (s *Store) BookingsForShift(ctx context.Context, shiftID string) ([]schedule.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookingsForShift(ctx, s.db, shiftID)
}

func bookingsForShift(ctx context.Context, q querier, shiftID string) ([]schedule.Booking, error) {
	query := selectBookings + `
		WHERE shift_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return queryBookings(ctx, q, query, shiftID)
}

func (s *Store) BookingsForUser(ctx context.Context, userID string, from, to schedule.Day) ([]schedule.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookingsForUser(ctx, s.db, userID, from, to)
}

func bookingsForUser(ctx context.Context, q querier, userID string, from, to schedule.Day) ([]schedule.Booking, error) {
	query := `
		SELECT b.id, b.shift_id, b.user_id, b.user_name, b.status,
		       b.custom_start_time, b.custom_end_time, b.cancel_reason, b.created_at
		FROM bookings b
		JOIN shifts s ON s.id = b.shift_id
		WHERE b.user_id = ? AND s.date >= ? AND s.date <= ?
		ORDER BY b.created_at ASC, b.id ASC
	`
	return queryBookings(ctx, q, query, userID, from.String(), to.String())
}

const selectBookings = `
	SELECT id, shift_id, user_id, user_name, status,
	       custom_start_time, custom_end_time, cancel_reason, created_at
	FROM bookings
`

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]schedule.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query bookings", err)
	}
	defer rows.Close()

	var bookings []schedule.Booking
	for rows.Next() {
		var (
			b            schedule.Booking
			status       string
			customStart  sql.NullString
			customEnd    sql.NullString
			cancelReason sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&b.ID, &b.ShiftID, &b.UserID, &b.UserName, &status,
			&customStart, &customEnd, &cancelReason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Status = schedule.BookingStatus(status)
		if b.CustomStartTime, err = parseNullClock(customStart); err != nil {
			return nil, err
		}
		if b.CustomEndTime, err = parseNullClock(customEnd); err != nil {
			return nil, err
		}
		b.CancelReason = cancelReason.String
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// =============================================================================
// VACATIONS
// =============================================================================

func (s *Store) SaveVacation(ctx context.Context, v schedule.VacationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveVacation(ctx, s.db, v)
}

func saveVacation(ctx context.Context, q querier, v schedule.VacationEntry) error {
	cancelledJSON, _ := json.Marshal(v.CancelledBookingIDs)

	query := `
		INSERT INTO vacations
		(id, user_id, user_name, start_date, end_date, days, type, status, note,
		 deletion_requested, deletion_reason, deletion_rejected_at, cancelled_booking_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			days = excluded.days,
			status = excluded.status,
			note = excluded.note,
			deletion_requested = excluded.deletion_requested,
			deletion_reason = excluded.deletion_reason,
			deletion_rejected_at = excluded.deletion_rejected_at,
			cancelled_booking_ids = excluded.cancelled_booking_ids
	`
	_, err := q.ExecContext(ctx, query,
		v.ID,
		v.UserID,
		v.UserName,
		v.StartDate.String(),
		v.EndDate.String(),
		v.Days,
		string(v.Type),
		string(v.Status),
		nullString(v.Note),
		boolToInt(v.DeletionRequested),
		nullString(v.DeletionReason),
		nullTime(v.DeletionRejectedAt),
		string(cancelledJSON),
		v.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("save vacation", err)
	}
	return nil
}

func (s *Store) GetVacation(ctx context.Context, id string) (*schedule.VacationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVacation(ctx, s.db, id)
}

func getVacation(ctx context.Context, q querier, id string) (*schedule.VacationEntry, error) {
	entries, err := queryVacations(ctx, q, selectVacations+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) DeleteVacation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteVacation(ctx, s.db, id)
}

func deleteVacation(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM vacations WHERE id = ?", id); err != nil {
		return wrapErr("delete vacation", err)
	}
	return nil
}

func (s *Store) VacationsForUser(ctx context.Context, userID string, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vacationsForUser(ctx, s.db, userID, from, to)
}

func vacationsForUser(ctx context.Context, q querier, userID string, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	query := selectVacations + `
		WHERE user_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`
	return queryVacations(ctx, q, query, userID, to.String(), from.String())
}

func (s *Store) VacationsInRange(ctx context.Context, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vacationsInRange(ctx, s.db, from, to)
}

func vacationsInRange(ctx context.Context, q querier, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	query := selectVacations + `
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`
	return queryVacations(ctx, q, query, to.String(), from.String())
}

const selectVacations = `
	SELECT id, user_id, user_name, start_date, end_date, days, type, status, note,
	       deletion_requested, deletion_reason, deletion_rejected_at, cancelled_booking_ids, created_at
	FROM vacations
`

func queryVacations(ctx context.Context, q querier, query string, args ...any) ([]schedule.VacationEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query vacations", err)
	}
	defer rows.Close()

	var entries []schedule.VacationEntry
	for rows.Next() {
		var (
			v             schedule.VacationEntry
			startDate     string
			endDate       string
			typ           string
			status        string
			note          sql.NullString
			delRequested  int
			delReason     sql.NullString
			delRejectedAt sql.NullString
			cancelledJSON sql.NullString
			createdAt     string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.UserName, &startDate, &endDate, &v.Days,
			&typ, &status, &note, &delRequested, &delReason, &delRejectedAt,
			&cancelledJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacation: %w", err)
		}
		if v.StartDate, err = schedule.ParseDay(startDate); err != nil {
			return nil, fmt.Errorf("bad vacation start %q: %w", startDate, err)
		}
		if v.EndDate, err = schedule.ParseDay(endDate); err != nil {
			return nil, fmt.Errorf("bad vacation end %q: %w", endDate, err)
		}
		v.Type = schedule.LeaveType(typ)
		v.Status = schedule.LeaveStatus(status)
		v.Note = note.String
		v.DeletionRequested = delRequested != 0
		v.DeletionReason = delReason.String
		if delRejectedAt.Valid {
			t, _ := time.Parse(time.RFC3339, delRejectedAt.String)
			v.DeletionRejectedAt = &t
		}
		if cancelledJSON.Valid && cancelledJSON.String != "" {
			json.Unmarshal([]byte(cancelledJSON.String), &v.CancelledBookingIDs)
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, v)
	}
	return entries, rows.Err()
}

// =============================================================================
// HOUR EXCEPTIONS
// =============================================================================

func (s *Store) SaveHourException(ctx context.Context, e schedule.HourException) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveHourException(ctx, s.db, e)
}

func saveHourException(ctx context.Context, q querier, e schedule.HourException) error {
	var maxHours sql.NullString
	if e.MaxHours != nil {
		maxHours = sql.NullString{String: e.MaxHours.String(), Valid: true}
	}

	query := `
		INSERT INTO hour_exceptions (user_id, week_start, user_name, max_hours, set_by, set_by_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week_start) DO UPDATE SET
			user_name = excluded.user_name,
			max_hours = excluded.max_hours,
			set_by = excluded.set_by,
			set_by_name = excluded.set_by_name,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		e.UserID,
		e.WeekStart.String(),
		e.UserName,
		maxHours,
		e.SetBy,
		e.SetByName,
		e.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("save hour exception", err)
	}
	return nil
}

func (s *Store) GetHourException(ctx context.Context, userID string, weekStart schedule.Day) (*schedule.HourException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getHourException(ctx, s.db, userID, weekStart)
}

func getHourException(ctx context.Context, q querier, userID string, weekStart schedule.Day) (*schedule.HourException, error) {
	entries, err := queryHourExceptions(ctx, q,
		selectHourExceptions+" WHERE user_id = ? AND week_start = ?",
		userID, weekStart.String())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) DeleteHourException(ctx context.Context, userID string, weekStart schedule.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteHourException(ctx, s.db, userID, weekStart)
}

func deleteHourException(ctx context.Context, q querier, userID string, weekStart schedule.Day) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM hour_exceptions WHERE user_id = ? AND week_start = ?",
		userID, weekStart.String())
	if err != nil {
		return wrapErr("delete hour exception", err)
	}
	return nil
}

func (s *Store) HourExceptionsForWeek(ctx context.Context, weekStart schedule.Day) ([]schedule.HourException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hourExceptionsForWeek(ctx, s.db, weekStart)
}

func hourExceptionsForWeek(ctx context.Context, q querier, weekStart schedule.Day) ([]schedule.HourException, error) {
	return queryHourExceptions(ctx, q,
		selectHourExceptions+" WHERE week_start = ? ORDER BY user_id ASC",
		weekStart.String())
}

const selectHourExceptions = `
	SELECT user_id, week_start, user_name, max_hours, set_by, set_by_name, updated_at
	FROM hour_exceptions
`

func queryHourExceptions(ctx context.Context, q querier, query string, args ...any) ([]schedule.HourException, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query hour exceptions", err)
	}
	defer rows.Close()

	var entries []schedule.HourException
	for rows.Next() {
		var (
			e         schedule.HourException
			weekStart string
			maxHours  sql.NullString
			setBy     sql.NullString
			setByName sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&e.UserID, &weekStart, &e.UserName, &maxHours,
			&setBy, &setByName, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hour exception: %w", err)
		}
		if e.WeekStart, err = schedule.ParseDay(weekStart); err != nil {
			return nil, fmt.Errorf("bad week start %q: %w", weekStart, err)
		}
		if maxHours.Valid {
			h, err := decimal.NewFromString(maxHours.String)
			if err != nil {
				return nil, fmt.Errorf("bad max hours %q: %w", maxHours.String, err)
			}
			e.MaxHours = &h
		}
		e.SetBy = setBy.String
		e.SetByName = setByName.String
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) SaveRequest(ctx context.Context, r schedule.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func saveRequest(ctx context.Context, q querier, r schedule.Request) error {
	query := `
		INSERT INTO requests
		(id, type, status, requester_id, booking_id, to_shift_id, target_user_id,
		 admin_note, decided_by, decided_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			admin_note = excluded.admin_note,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at
	`
	_, err := q.ExecContext(ctx, query,
		r.ID,
		string(r.Type),
		string(r.Status),
		r.RequesterID,
		r.BookingID,
		nullString(r.ToShiftID),
		nullString(r.TargetUserID),
		nullString(r.AdminNote),
		nullString(r.DecidedBy),
		nullTime(r.DecidedAt),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("save request", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*schedule.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q querier, id string) (*schedule.Request, error) {
	requests, err := queryRequests(ctx, q, selectRequests+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

func (s *Store) PendingRequests(ctx context.Context) ([]schedule.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pendingRequests(ctx, s.db)
}

func pendingRequests(ctx context.Context, q querier) ([]schedule.Request, error) {
	query := selectRequests + `
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
	`
	return queryRequests(ctx, q, query, string(schedule.RequestPending))
}

func (s *Store) RequestsForUser(ctx context.Context, userID string) ([]schedule.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return requestsForUser(ctx, s.db, userID)
}

func requestsForUser(ctx context.Context, q querier, userID string) ([]schedule.Request, error) {
	query := selectRequests + `
		WHERE requester_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return queryRequests(ctx, q, query, userID)
}

const selectRequests = `
	SELECT id, type, status, requester_id, booking_id, to_shift_id, target_user_id,
	       admin_note, decided_by, decided_at, created_at
	FROM requests
`

func queryRequests(ctx context.Context, q querier, query string, args ...any) ([]schedule.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query requests", err)
	}
	defer rows.Close()

	var requests []schedule.Request
	for rows.Next() {
		var (
			r            schedule.Request
			typ          string
			status       string
			toShiftID    sql.NullString
			targetUserID sql.NullString
			adminNote    sql.NullString
			decidedBy    sql.NullString
			decidedAt    sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&r.ID, &typ, &status, &r.RequesterID, &r.BookingID,
			&toShiftID, &targetUserID, &adminNote, &decidedBy, &decidedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		r.Type = schedule.RequestType(typ)
		r.Status = schedule.RequestStatus(status)
		r.ToShiftID = toShiftID.String
		r.TargetUserID = targetUserID.String
		r.AdminNote = adminNote.String
		r.DecidedBy = decidedBy.String
		if decidedAt.Valid {
			t, _ := time.Parse(time.RFC3339, decidedAt.String)
			r.DecidedAt = &t
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// AUDIT
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e schedule.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, e)
}

func appendAudit(ctx context.Context, q querier, e schedule.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, action, actor_id, actor_name, target_id, detail, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.Action,
		e.ActorID,
		e.ActorName,
		nullString(e.TargetID),
		nullString(e.Detail),
		e.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapErr("append audit", err)
	}
	return nil
}

func (s *Store) AuditEntries(ctx context.Context, limit int) ([]schedule.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return auditEntries(ctx, s.db, limit)
}

func auditEntries(ctx context.Context, q querier, limit int) ([]schedule.AuditEntry, error) {
	query := `
		SELECT id, action, actor_id, actor_name, target_id, detail, at
		FROM audit_log
		ORDER BY at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query audit log", err)
	}
	defer rows.Close()

	var entries []schedule.AuditEntry
	for rows.Next() {
		var (
			e         schedule.AuditEntry
			actorName sql.NullString
			targetID  sql.NullString
			detail    sql.NullString
			at        string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &actorName,
			&targetID, &detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ActorName = actorName.String
		e.TargetID = targetID.String
		e.Detail = detail.String
		e.At, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store schedule.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// txStore runs every statement on the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveShift(ctx context.Context, shift schedule.Shift) error {
	return saveShift(ctx, ts.tx, shift)
}

func (ts *txStore) GetShift(ctx context.Context, id string) (*schedule.Shift, error) {
	return getShift(ctx, ts.tx, id)
}

func (ts *txStore) ShiftsInRange(ctx context.Context, from, to schedule.Day) ([]schedule.Shift, error) {
	return shiftsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) DeleteShift(ctx context.Context, id string) error {
	return deleteShift(ctx, ts.tx, id)
}

func (ts *txStore) SaveBooking(ctx context.Context, b schedule.Booking) error {
	return saveBooking(ctx, ts.tx, b)
}

func (ts *txStore) GetBooking(ctx context.Context, id string) (*schedule.Booking, error) {
	return getBooking(ctx, ts.tx, id)
}

func (ts *txStore) DeleteBooking(ctx context.Context, id string) error {
	return deleteBooking(ctx, ts.tx, id)
}

func (ts *txStore) BookingsForShift(ctx context.Context, shiftID string) ([]schedule.Booking, error) {
	return bookingsForShift(ctx, ts.tx, shiftID)
}

func (ts *txStore) BookingsForUser(ctx context.Context, userID string, from, to schedule.Day) ([]schedule.Booking, error) {
	return bookingsForUser(ctx, ts.tx, userID, from, to)
}

func (ts *txStore) SaveVacation(ctx context.Context, v schedule.VacationEntry) error {
	return saveVacation(ctx, ts.tx, v)
}

func (ts *txStore) GetVacation(ctx context.Context, id string) (*schedule.VacationEntry, error) {
	return getVacation(ctx, ts.tx, id)
}

func (ts *txStore) DeleteVacation(ctx context.Context, id string) error {
	return deleteVacation(ctx, ts.tx, id)
}

func (ts *txStore) VacationsForUser(ctx context.Context, userID string, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	return vacationsForUser(ctx, ts.tx, userID, from, to)
}

func (ts *txStore) VacationsInRange(ctx context.Context, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	return vacationsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) SaveHourException(ctx context.Context, e schedule.HourException) error {
	return saveHourException(ctx, ts.tx, e)
}

func (ts *txStore) GetHourException(ctx context.Context, userID string, weekStart schedule.Day) (*schedule.HourException, error) {
	return getHourException(ctx, ts.tx, userID, weekStart)
}

func (ts *txStore) DeleteHourException(ctx context.Context, userID string, weekStart schedule.Day) error {
	return deleteHourException(ctx, ts.tx, userID, weekStart)
}

func (ts *txStore) HourExceptionsForWeek(ctx context.Context, weekStart schedule.Day) ([]schedule.HourException, error) {
	return hourExceptionsForWeek(ctx, ts.tx, weekStart)
}

func (ts *txStore) SaveRequest(ctx context.Context, r schedule.Request) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*schedule.Request, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) PendingRequests(ctx context.Context) ([]schedule.Request, error) {
	return pendingRequests(ctx, ts.tx)
}

func (ts *txStore) RequestsForUser(ctx context.Context, userID string) ([]schedule.Request, error) {
	return requestsForUser(ctx, ts.tx, userID)
}

func (ts *txStore) AppendAudit(ctx context.Context, e schedule.AuditEntry) error {
	return appendAudit(ctx, ts.tx, e)
}

func (ts *txStore) AuditEntries(ctx context.Context, limit int) ([]schedule.AuditEntry, error) {
	return auditEntries(ctx, ts.tx, limit)
}

// WithTx on an open transaction runs fn directly; writes already belong
// to the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(schedule.Store) error) error {
	return fn(ts)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullClock(c *schedule.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseNullClock(ns sql.NullString) (*schedule.ClockTime, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	c, err := schedule.ParseClock(ns.String)
	if err != nil {
		return nil, fmt.Errorf("bad clock time %q: %w", ns.String, err)
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// wrapErr maps SQLite contention errors onto the engine's conflict
// sentinel so the retry loop can re-run the transaction.
func wrapErr(op string, err error) error {
	if isBusyError(err) {
		return fmt.Errorf("%s: %w", op, schedule.ErrConcurrentModification)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
