/*
booking.go - The core booking transaction

PURPOSE:
  Decides whether a requested shift booking may be created. The seven
  validation rules run against one consistent snapshot inside a store
  transaction; the first failing rule aborts with no partial effects.

VALIDATION ORDER:
  1. Shift exists
  2. Capacity has a free slot
  3. User does not already hold this shift
  4. User does not already hold another shift that day
  5. Shift date is not inside one of the user's leave entries
  6. The other long-shift variant is not taken that day
  7. Projected weekly hours stay within the applicable cap

  Bookings in pending_cancel or pending_swap still hold their slot for
  rules 2 through 4 and 6: the slot is only freed once an administrator
  approves the request.

CONCURRENCY:
  The transaction retries automatically on detected write conflicts up
  to txRetryLimit, then surfaces a TransientConflictError distinct from
  any rule violation.

SEE ALSO:
  - hours.go:    rule 7's budget computation
  - workflow.go: the only path by which employees release a booking
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookingLedger creates and mutates bookings.
type BookingLedger struct {
	store  Store
	audit  *AuditSink
	notify NotificationDispatcher
}

func NewBookingLedger(store Store, audit *AuditSink, notify NotificationDispatcher) *BookingLedger {
	return &BookingLedger{store: store, audit: audit, notify: notify}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateBooking books the user into the shift. Administrators may book
// on behalf of any user; everyone else books for themselves.
func (l *BookingLedger) CreateBooking(ctx context.Context, actor Actor, shiftID, userID, userName string) (*Booking, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, ErrUnauthorized
	}

	booking := Booking{
		ID:        newID(),
		ShiftID:   shiftID,
		UserID:    userID,
		UserName:  userName,
		Status:    BookingActive,
		CreatedAt: time.Now().UTC(),
	}

	err := runTx(ctx, l.store, func(tx Store) error {
		if _, err := validateBooking(ctx, tx, shiftID, userID); err != nil {
			return err
		}
		return tx.SaveBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, AuditBookingCreated, actor, booking.ID,
		fmt.Sprintf("user %s shift %s", userID, shiftID))
	l.notify.Dispatch(ctx, Notification{
		Kind:     NotifyBookingCreated,
		UserID:   userID,
		UserName: userName,
		Detail:   map[string]string{"shiftId": shiftID},
		At:       time.Now().UTC(),
	})
	return &booking, nil
}

// validateBooking runs the seven rules against the transaction's
// snapshot and returns the target shift.
func validateBooking(ctx context.Context, tx Store, shiftID, userID string) (*Shift, error) {
	// Rule 1: existence.
	shift, err := tx.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, &NotFoundError{Kind: "shift", ID: shiftID}
	}

	// Rule 2: capacity.
	onShift, err := tx.BookingsForShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	held := 0
	for _, b := range onShift {
		if b.Status.HoldsSlot() {
			held++
		}
	}
	if held >= shift.Capacity {
		return nil, &CapacityError{ShiftID: shiftID, Capacity: shift.Capacity}
	}

	// Rule 3: no duplicate on this shift.
	for _, b := range onShift {
		if b.UserID == userID && b.Status.HoldsSlot() {
			return nil, ErrDuplicateBooking
		}
	}

	// Rules 4 and 6 need the day's other shifts and the user's bookings.
	sameDay, err := tx.ShiftsInRange(ctx, shift.Date, shift.Date)
	if err != nil {
		return nil, err
	}
	userBookings, err := tx.BookingsForUser(ctx, userID, shift.Date, shift.Date)
	if err != nil {
		return nil, err
	}

	// Rule 4: same-day exclusivity.
	for _, b := range userBookings {
		if b.Status.HoldsSlot() {
			return nil, ErrSameDayConflict
		}
	}

	// Rule 5: leave overlap.
	leaves, err := tx.VacationsForUser(ctx, userID, shift.Date, shift.Date)
	if err != nil {
		return nil, err
	}
	for _, e := range leaves {
		if e.Status == LeaveApproved && e.Covers(shift.Date) {
			return nil, &LeaveOverlapError{Date: shift.Date, LeaveType: e.Type}
		}
	}

	// Rule 6: long-shift mutual exclusion. Only one long slot per day,
	// regardless of variant.
	if shift.Type.IsLong() {
		for _, other := range sameDay {
			if other.ID == shift.ID || !other.Type.IsLong() {
				continue
			}
			otherBookings, err := tx.BookingsForShift(ctx, other.ID)
			if err != nil {
				return nil, err
			}
			for _, b := range otherBookings {
				if b.Status.HoldsSlot() {
					return nil, ErrLongShiftConflict
				}
			}
		}
	}

	// Rule 7: weekly hour budget. Sick credit is excluded here: a user
	// booking a new shift is not on leave that day.
	budget := NewHourBudget(tx, nil)
	weekStart := WeekStart(shift.Date)
	cap, err := budget.MaxWeeklyHours(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	if cap != nil {
		worked, err := budget.WorkedHours(ctx, userID, weekStart)
		if err != nil {
			return nil, err
		}
		vacCredit, err := budget.LeaveCredit(ctx, userID, weekStart, LeaveVacation)
		if err != nil {
			return nil, err
		}
		room := cap.Sub(worked)
		if room.IsNegative() {
			room = decimal.Zero
		}
		if vacCredit.GreaterThan(room) {
			vacCredit = room
		}
		requested := WorkingHours(shift.StartTime, shift.EndTime, shift.Type)
		if worked.Add(vacCredit).Add(requested).GreaterThan(*cap) {
			return nil, &HourBudgetError{
				Cap:            *cap,
				Worked:         worked,
				VacationCredit: vacCredit,
				Requested:      requested,
			}
		}
	}

	return shift, nil
}

// =============================================================================
// DIRECT MUTATIONS (administrators and the request workflow only)
// =============================================================================

// CancelBooking flips the booking to cancelled with a reason. Not
// reachable from a plain employee action; employees go through
// RequestWorkflow.
func (l *BookingLedger) CancelBooking(ctx context.Context, actor Actor, bookingID, reason string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	var booking Booking
	err := runTx(ctx, l.store, func(tx Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return &NotFoundError{Kind: "booking", ID: bookingID}
		}
		b.Status = BookingCancelled
		b.CancelReason = reason
		booking = *b
		return tx.SaveBooking(ctx, *b)
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, AuditBookingCancelled, actor, bookingID, reason)
	l.notify.Dispatch(ctx, Notification{
		Kind:     NotifyBookingCancelled,
		UserID:   booking.UserID,
		UserName: booking.UserName,
		Detail:   map[string]string{"reason": reason},
		At:       time.Now().UTC(),
	})
	return nil
}

// DeleteBooking removes the booking record entirely.
func (l *BookingLedger) DeleteBooking(ctx context.Context, actor Actor, bookingID string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	err := runTx(ctx, l.store, func(tx Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return tx.DeleteBooking(ctx, bookingID)
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, AuditBookingDeleted, actor, bookingID, "")
	return nil
}

// SetBookingTime stores a per-booking time window overriding the shift
// defaults. Nil times restore the defaults.
func (l *BookingLedger) SetBookingTime(ctx context.Context, actor Actor, bookingID string, start, end *ClockTime) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	if start != nil && end != nil && !start.Before(*end) {
		return &ValidationError{Fields: map[string]string{"startTime": "must precede end time"}}
	}
	err := runTx(ctx, l.store, func(tx Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return &NotFoundError{Kind: "booking", ID: bookingID}
		}
		b.CustomStartTime = start
		b.CustomEndTime = end
		return tx.SaveBooking(ctx, *b)
	})
	if err != nil {
		return err
	}
	detail := "reset to shift times"
	if start != nil && end != nil {
		detail = fmt.Sprintf("%s to %s", start, end)
	}
	l.audit.Record(ctx, AuditBookingTimeSet, actor, bookingID, detail)
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// BookingsForShift returns the shift's bookings, any status.
func (l *BookingLedger) BookingsForShift(ctx context.Context, shiftID string) ([]Booking, error) {
	return l.store.BookingsForShift(ctx, shiftID)
}

// BookingsForUser returns the user's bookings with shift dates in
// [from, to], any status.
func (l *BookingLedger) BookingsForUser(ctx context.Context, userID string, from, to Day) ([]Booking, error) {
	return l.store.BookingsForUser(ctx, userID, from, to)
}

// BookingByID returns the booking or a NotFoundError.
func (l *BookingLedger) BookingByID(ctx context.Context, id string) (*Booking, error) {
	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "booking", ID: id}
	}
	return b, nil
}
