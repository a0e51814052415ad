/*
store.go - Storage interfaces for the booking engine

PURPOSE:
  Defines the persistence contract the engine components depend on.
  Implementations: schedule/store (in-memory) and store/sqlite.

CONTRACT NOTES:
  - Get* methods return (nil, nil) when the record does not exist;
    callers wrap that in NotFoundError with domain context.
  - Save* methods upsert by ID.
  - WithTx runs fn atomically. A returned error rolls back every write
    made through the transactional store. Implementations may return
    ErrConcurrentModification from any call when a conflicting writer
    is detected; runTx retries the whole function.

SEE ALSO:
  - store/memory.go: snapshot/rollback in-memory implementation
  - store/sqlite:    SQLite implementation (WAL mode)
*/
package schedule

import "context"

// =============================================================================
// PER-RECORD STORES
// =============================================================================

// ShiftStore persists the shift catalog.
type ShiftStore interface {
	SaveShift(ctx context.Context, s Shift) error
	GetShift(ctx context.Context, id string) (*Shift, error)
	ShiftsInRange(ctx context.Context, from, to Day) ([]Shift, error)
	DeleteShift(ctx context.Context, id string) error
}

// BookingStore persists bookings in every status, including cancelled.
type BookingStore interface {
	SaveBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	// BookingsForShift returns all bookings on the shift, any status.
	BookingsForShift(ctx context.Context, shiftID string) ([]Booking, error)
	// BookingsForUser returns the user's bookings whose shift date lies
	// in [from, to], any status.
	BookingsForUser(ctx context.Context, userID string, from, to Day) ([]Booking, error)
}

// VacationStore persists leave entries of all types.
type VacationStore interface {
	SaveVacation(ctx context.Context, v VacationEntry) error
	GetVacation(ctx context.Context, id string) (*VacationEntry, error)
	DeleteVacation(ctx context.Context, id string) error
	// VacationsForUser returns the user's entries overlapping [from, to].
	VacationsForUser(ctx context.Context, userID string, from, to Day) ([]VacationEntry, error)
	// VacationsInRange returns all users' entries overlapping [from, to].
	VacationsInRange(ctx context.Context, from, to Day) ([]VacationEntry, error)
}

// HourExceptionStore persists per-user weekly cap overrides, keyed by
// (user, week start).
type HourExceptionStore interface {
	SaveHourException(ctx context.Context, e HourException) error
	GetHourException(ctx context.Context, userID string, weekStart Day) (*HourException, error)
	DeleteHourException(ctx context.Context, userID string, weekStart Day) error
	HourExceptionsForWeek(ctx context.Context, weekStart Day) ([]HourException, error)
}

// RequestStore persists cancellation and swap requests.
type RequestStore interface {
	SaveRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	PendingRequests(ctx context.Context) ([]Request, error)
	RequestsForUser(ctx context.Context, userID string) ([]Request, error)
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// AuditEntries returns entries newest first, at most limit (0 = all).
	AuditEntries(ctx context.Context, limit int) ([]AuditEntry, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store aggregates every record store plus transactional execution.
type Store interface {
	ShiftStore
	BookingStore
	VacationStore
	HourExceptionStore
	RequestStore
	AuditStore

	// WithTx executes fn atomically against a transactional view of the
	// store. An error from fn rolls back all writes.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// RETRY LOOP
// =============================================================================

// txRetryLimit bounds optimistic retries before giving up with a
// TransientConflictError.
const txRetryLimit = 3

// runTx executes fn inside a transaction, retrying on concurrent
// modification. Rule violations abort immediately.
func runTx(ctx context.Context, store Store, fn func(Store) error) error {
	var lastErr error
	for attempt := 0; attempt < txRetryLimit; attempt++ {
		lastErr = store.WithTx(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return &TransientConflictError{Attempts: txRetryLimit}
}
