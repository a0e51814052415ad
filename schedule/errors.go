/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  Every rule violation surfaces as a distinct, machine-checkable error
  kind; callers never receive a generic "operation failed". Sentinel
  errors support errors.Is checks, structured wrappers carry the context
  needed to render an actionable message.

ERROR CATEGORIES:
  1. Lookup errors     - referenced records that do not exist
  2. Rule violations   - booking/leave invariants (§ booking.go, vacation.go)
  3. Concurrency       - transaction conflicts and exhausted retries
  4. Authorization     - actor lacks the required role

PROPAGATION POLICY:
  A rule violation aborts the enclosing transaction with no partial
  writes. Best-effort side effects (notifications, audit logging beyond
  the core mutation) are logged and swallowed, never propagated.

SEE ALSO:
  - booking.go:  raises the booking rule violations
  - vacation.go: raises the leave filing violations
  - store.go:    ErrConcurrentModification and the retry loop
*/
package schedule

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced shift, booking, request,
	// or leave entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when a shift has no free slot.
	ErrCapacityExceeded = errors.New("shift capacity exceeded")

	// ErrDuplicateBooking is returned when the user already holds a
	// booking on the requested shift.
	ErrDuplicateBooking = errors.New("shift already booked by user")

	// ErrSameDayConflict is returned when the user already holds a
	// booking on another shift that calendar day.
	ErrSameDayConflict = errors.New("user already booked that day")

	// ErrLeaveOverlap is returned when the requested shift date falls
	// inside one of the user's leave entries.
	ErrLeaveOverlap = errors.New("date overlaps a leave entry")

	// ErrLongShiftConflict is returned when the other long-shift variant
	// is already taken that day.
	ErrLongShiftConflict = errors.New("other long shift already taken that day")

	// ErrHourBudgetExceeded is returned when the projected weekly hours
	// would exceed the applicable cap.
	ErrHourBudgetExceeded = errors.New("weekly hour budget exceeded")

	// ErrInsufficientLeaveBalance is returned when a leave filing would
	// exceed the remaining entitlement for the year.
	ErrInsufficientLeaveBalance = errors.New("insufficient leave balance")

	// ErrWeekendBoundary is returned when a leave range starts or ends
	// on a non-business day.
	ErrWeekendBoundary = errors.New("leave range must start and end on a business day")

	// ErrBookedDateConflict is returned when a vacation/education filing
	// covers days the user has already booked.
	ErrBookedDateConflict = errors.New("leave range conflicts with existing bookings")

	// ErrTransientConflict is returned when the concurrent-write retry
	// budget is exhausted. The whole operation is safe to retry.
	ErrTransientConflict = errors.New("transient conflict, retry the operation")

	// ErrUnauthorized is returned when the actor lacks the role required
	// for the operation.
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidTransition is returned when a booking or request is not
	// in the state the transition requires (e.g. deciding a request twice).
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConcurrentModification signals a detected write conflict inside
	// a single transaction attempt. Stores return it; the engine retries.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrValidation is returned for structural field errors.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "shift", "booking", "request", "leave entry"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CapacityError reports a full shift.
type CapacityError struct {
	ShiftID  string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("shift %s is full (capacity %d)", e.ShiftID, e.Capacity)
}
func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// LeaveOverlapError carries the type of the leave entry found on the date.
type LeaveOverlapError struct {
	Date      Day
	LeaveType LeaveType
}

func (e *LeaveOverlapError) Error() string {
	return fmt.Sprintf("%s falls inside a %s entry", e.Date, e.LeaveType)
}
func (e *LeaveOverlapError) Unwrap() error { return ErrLeaveOverlap }

// HourBudgetError carries the values needed to display the shortfall.
type HourBudgetError struct {
	Cap            decimal.Decimal
	Worked         decimal.Decimal
	VacationCredit decimal.Decimal
	Requested      decimal.Decimal
}

func (e *HourBudgetError) Error() string {
	return fmt.Sprintf("booking %sh would exceed weekly cap %sh (worked %sh, vacation credit %sh)",
		e.Requested, e.Cap, e.Worked, e.VacationCredit)
}
func (e *HourBudgetError) Unwrap() error { return ErrHourBudgetExceeded }

// InsufficientBalanceError reports a leave entitlement shortage.
type InsufficientBalanceError struct {
	Requested   int
	Remaining   int
	Entitlement int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("requested %d days but only %d of %d remain",
		e.Requested, e.Remaining, e.Entitlement)
}
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientLeaveBalance }

// BookedDateConflictError names the already-booked dates blocking a filing.
type BookedDateConflictError struct {
	Dates []Day
}

func (e *BookedDateConflictError) Error() string {
	s := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		s[i] = d.String()
	}
	return fmt.Sprintf("bookings exist on %v; cancel them first", s)
}
func (e *BookedDateConflictError) Unwrap() error { return ErrBookedDateConflict }

// TransientConflictError reports an exhausted retry budget.
type TransientConflictError struct {
	Attempts int
}

func (e *TransientConflictError) Error() string {
	return fmt.Sprintf("operation conflicted with concurrent writes after %d attempts", e.Attempts)
}
func (e *TransientConflictError) Unwrap() error { return ErrTransientConflict }

// TransitionError reports a state machine violation.
type TransitionError struct {
	Kind string // "booking" or "request"
	ID   string
	Have string
	Want string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s is %s, expected %s", e.Kind, e.ID, e.Have, e.Want)
}
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError collects structural field errors.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation failed: %v", e.Fields) }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the whole operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientConflict) || errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRuleViolation returns true if the error is a business rule rejection
// (as opposed to an infrastructure failure).
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrSameDayConflict) ||
		errors.Is(err, ErrLeaveOverlap) ||
		errors.Is(err, ErrLongShiftConflict) ||
		errors.Is(err, ErrHourBudgetExceeded) ||
		errors.Is(err, ErrInsufficientLeaveBalance) ||
		errors.Is(err, ErrWeekendBoundary) ||
		errors.Is(err, ErrBookedDateConflict) ||
		errors.Is(err, ErrInvalidTransition)
}
