/*
vacation.go - Leave filing and entitlement tracking

PURPOSE:
  Files vacation, sick, and education entries; enforces the business-day
  boundary rule and the prorated vacation entitlement; applies the sick
  auto-cancel rule; runs the two-step deletion workflow for non-admin
  deletions.

FILING RULES:
  - Ranges must start and end on a business day.
  - Vacation filings may not exceed the remaining prorated entitlement.
  - Vacation/education over booked days fails naming the dates; the
    employee cancels those bookings first.
  - Sick filings cancel overlapping bookings with reason "sick day" in
    the same transaction and record the cancelled IDs on the entry.

SEE ALSO:
  - hours.go:   credits approved entries back into the weekly budget
  - booking.go: rule 5 rejects bookings over leave days
*/
package schedule

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// ENTITLEMENT
// =============================================================================

// Entitlement is a user's annual vacation allowance.
type Entitlement struct {
	HireDate   Day
	AnnualDays int
}

// EntitlementSource resolves a user's entitlement. Identity and contract
// data live outside this engine; implementations adapt whatever profile
// store the deployment uses.
type EntitlementSource interface {
	Entitlement(ctx context.Context, userID string) (Entitlement, error)
}

// StaticEntitlements is a fixed entitlement table with a fallback. Used
// by the demo seed and in tests.
type StaticEntitlements struct {
	ByUser  map[string]Entitlement
	Default Entitlement
}

func (s StaticEntitlements) Entitlement(_ context.Context, userID string) (Entitlement, error) {
	if e, ok := s.ByUser[userID]; ok {
		return e, nil
	}
	return s.Default, nil
}

// =============================================================================
// LEDGER
// =============================================================================

// VacationLedger manages leave entries.
type VacationLedger struct {
	store        Store
	entitlements EntitlementSource
	audit        *AuditSink
	notify       NotificationDispatcher
}

func NewVacationLedger(store Store, entitlements EntitlementSource, audit *AuditSink, notify NotificationDispatcher) *VacationLedger {
	return &VacationLedger{store: store, entitlements: entitlements, audit: audit, notify: notify}
}

// FileResult reports the outcome of a filing.
type FileResult struct {
	Entry               VacationEntry
	CancelledBookingIDs []string
}

// Filing carries the parameters of a leave filing.
type Filing struct {
	UserID    string
	UserName  string
	StartDate Day
	EndDate   Day
	Type      LeaveType
	Note      string
	// Pending files the entry awaiting administrator approval instead of
	// the approved-by-default self-service path.
	Pending bool
}

// File creates a leave entry. Administrators may file on behalf of any
// user; everyone else files for themselves.
func (l *VacationLedger) File(ctx context.Context, actor Actor, f Filing) (*FileResult, error) {
	if !actor.IsAdmin() && actor.ID != f.UserID {
		return nil, ErrUnauthorized
	}
	if !f.Type.Known() {
		return nil, &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("unknown leave type %q", f.Type)}}
	}
	if f.StartDate.IsZero() || f.EndDate.IsZero() || f.EndDate.Before(f.StartDate) {
		return nil, &ValidationError{Fields: map[string]string{"dates": "start must not be after end"}}
	}
	if !f.StartDate.IsBusinessDay() || !f.EndDate.IsBusinessDay() {
		return nil, ErrWeekendBoundary
	}

	days := BusinessDays(f.StartDate, f.EndDate)
	if days == 0 {
		return nil, &ValidationError{Fields: map[string]string{"dates": "range contains no business days"}}
	}

	status := LeaveApproved
	if f.Pending {
		status = LeavePending
	}
	entry := VacationEntry{
		ID:        newID(),
		UserID:    f.UserID,
		UserName:  f.UserName,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Days:      days,
		Type:      f.Type,
		Status:    status,
		Note:      f.Note,
		CreatedAt: time.Now().UTC(),
	}

	var result FileResult
	err := runTx(ctx, l.store, func(tx Store) error {
		// Balance check and entry write stay in one transaction so a
		// concurrent filing cannot slip past the remaining allowance.
		if f.Type == LeaveVacation {
			if err := l.checkEntitlement(ctx, tx, f.UserID, f.StartDate.Year(), days); err != nil {
				return err
			}
		}

		booked, err := bookedBusinessDays(ctx, tx, f.UserID, f.StartDate, f.EndDate)
		if err != nil {
			return err
		}

		entry.CancelledBookingIDs = nil
		if len(booked) > 0 {
			if f.Type != LeaveSick {
				dates := make([]Day, 0, len(booked))
				for _, bd := range booked {
					dates = append(dates, bd.date)
				}
				return &BookedDateConflictError{Dates: dates}
			}
			// Sick leave overrides the schedule: cancel the bookings here
			// so the hour calculator can credit them back.
			for _, bd := range booked {
				b := bd.booking
				b.Status = BookingCancelled
				b.CancelReason = CancelReasonSick
				if err := tx.SaveBooking(ctx, b); err != nil {
					return err
				}
				entry.CancelledBookingIDs = append(entry.CancelledBookingIDs, b.ID)
			}
		}

		if err := tx.SaveVacation(ctx, entry); err != nil {
			return err
		}
		result = FileResult{Entry: entry, CancelledBookingIDs: entry.CancelledBookingIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, AuditLeaveFiled, actor, entry.ID,
		fmt.Sprintf("%s %s to %s (%d days)", entry.Type, entry.StartDate, entry.EndDate, entry.Days))
	l.notify.Dispatch(ctx, Notification{
		Kind:     NotifyLeaveFiled,
		UserID:   entry.UserID,
		UserName: entry.UserName,
		Detail: map[string]string{
			"type":  string(entry.Type),
			"start": entry.StartDate.String(),
			"end":   entry.EndDate.String(),
		},
		At: time.Now().UTC(),
	})
	return &result, nil
}

// checkEntitlement rejects filings exceeding the remaining prorated
// allowance for the year.
func (l *VacationLedger) checkEntitlement(ctx context.Context, store Store, userID string, year, requested int) error {
	ent, err := l.entitlements.Entitlement(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve entitlement: %w", err)
	}

	allowed := ent.AnnualDays
	if ent.HireDate.Year() == year {
		allowed = ProratedVacationDays(ent.HireDate, ent.AnnualDays)
	}

	yearStart := NewDay(year, time.January, 1)
	yearEnd := NewDay(year, time.December, 31)
	entries, err := store.VacationsForUser(ctx, userID, yearStart, yearEnd)
	if err != nil {
		return fmt.Errorf("load leave entries: %w", err)
	}
	used := 0
	for _, e := range entries {
		if e.Type == LeaveVacation && e.Status == LeaveApproved {
			used += e.Days
		}
	}

	remaining := allowed - used
	if requested > remaining {
		return &InsufficientBalanceError{Requested: requested, Remaining: remaining, Entitlement: allowed}
	}
	return nil
}

type bookedDay struct {
	date    Day
	booking Booking
}

// bookedBusinessDays returns the user's slot-holding bookings whose shift
// falls on a business day inside [start, end].
func bookedBusinessDays(ctx context.Context, tx Store, userID string, start, end Day) ([]bookedDay, error) {
	bookings, err := tx.BookingsForUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	var out []bookedDay
	for _, b := range bookings {
		if !b.Status.HoldsSlot() {
			continue
		}
		s, err := tx.GetShift(ctx, b.ShiftID)
		if err != nil {
			return nil, err
		}
		if s == nil || !s.Date.IsBusinessDay() {
			continue
		}
		out = append(out, bookedDay{date: s.Date, booking: b})
	}
	return out, nil
}

// =============================================================================
// APPROVAL
// =============================================================================

// ApproveEntry approves a pending entry.
func (l *VacationLedger) ApproveEntry(ctx context.Context, actor Actor, entryID string) error {
	return l.decideEntry(ctx, actor, entryID, LeaveApproved, AuditLeaveApproved)
}

// RejectEntry rejects a pending entry.
func (l *VacationLedger) RejectEntry(ctx context.Context, actor Actor, entryID string) error {
	return l.decideEntry(ctx, actor, entryID, LeaveRejected, AuditLeaveRejected)
}

func (l *VacationLedger) decideEntry(ctx context.Context, actor Actor, entryID string, to LeaveStatus, action string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	var entry VacationEntry
	err := runTx(ctx, l.store, func(tx Store) error {
		e, err := tx.GetVacation(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{Kind: "leave entry", ID: entryID}
		}
		if e.Status != LeavePending {
			return &TransitionError{Kind: "leave entry", ID: entryID, Have: string(e.Status), Want: string(LeavePending)}
		}
		e.Status = to
		entry = *e
		return tx.SaveVacation(ctx, *e)
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, action, actor, entryID, string(entry.Type))
	l.notify.Dispatch(ctx, Notification{
		Kind:     NotifyLeaveDecided,
		UserID:   entry.UserID,
		UserName: entry.UserName,
		Detail:   map[string]string{"status": string(to)},
		At:       time.Now().UTC(),
	})
	return nil
}

// =============================================================================
// DELETION
// =============================================================================

// Delete removes an entry immediately. Administrators only; everyone
// else goes through RequestDeletion.
func (l *VacationLedger) Delete(ctx context.Context, actor Actor, entryID string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	err := runTx(ctx, l.store, func(tx Store) error {
		e, err := tx.GetVacation(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{Kind: "leave entry", ID: entryID}
		}
		return tx.DeleteVacation(ctx, entryID)
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, AuditLeaveDeleted, actor, entryID, "")
	return nil
}

// RequestDeletion marks the caller's own entry for deletion pending an
// administrator's decision. The entry stays effective until approved.
func (l *VacationLedger) RequestDeletion(ctx context.Context, actor Actor, entryID, reason string) error {
	return runTx(ctx, l.store, func(tx Store) error {
		e, err := tx.GetVacation(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{Kind: "leave entry", ID: entryID}
		}
		if !actor.IsAdmin() && e.UserID != actor.ID {
			return ErrUnauthorized
		}
		if e.DeletionRequested {
			return &TransitionError{Kind: "leave entry", ID: entryID, Have: "deletion requested", Want: "no pending deletion"}
		}
		e.DeletionRequested = true
		e.DeletionReason = reason
		e.DeletionRejectedAt = nil
		return tx.SaveVacation(ctx, *e)
	})
}

// ApproveDeletion removes an entry whose deletion was requested.
func (l *VacationLedger) ApproveDeletion(ctx context.Context, actor Actor, entryID string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	err := runTx(ctx, l.store, func(tx Store) error {
		e, err := tx.GetVacation(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{Kind: "leave entry", ID: entryID}
		}
		if !e.DeletionRequested {
			return &TransitionError{Kind: "leave entry", ID: entryID, Have: "no pending deletion", Want: "deletion requested"}
		}
		return tx.DeleteVacation(ctx, entryID)
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, AuditLeaveDeleted, actor, entryID, "deletion request approved")
	return nil
}

// RejectDeletion keeps the entry and clears the deletion request.
func (l *VacationLedger) RejectDeletion(ctx context.Context, actor Actor, entryID string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return runTx(ctx, l.store, func(tx Store) error {
		e, err := tx.GetVacation(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{Kind: "leave entry", ID: entryID}
		}
		if !e.DeletionRequested {
			return &TransitionError{Kind: "leave entry", ID: entryID, Have: "no pending deletion", Want: "deletion requested"}
		}
		now := time.Now().UTC()
		e.DeletionRequested = false
		e.DeletionReason = ""
		e.DeletionRejectedAt = &now
		return tx.SaveVacation(ctx, *e)
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// Overlapping returns the user's entries covering the given day.
func (l *VacationLedger) Overlapping(ctx context.Context, userID string, d Day) ([]VacationEntry, error) {
	entries, err := l.store.VacationsForUser(ctx, userID, d, d)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Covers(d) {
			out = append(out, e)
		}
	}
	return out, nil
}

// EntriesInRange returns all users' entries overlapping [from, to].
func (l *VacationLedger) EntriesInRange(ctx context.Context, from, to Day) ([]VacationEntry, error) {
	return l.store.VacationsInRange(ctx, from, to)
}

// RemainingDays reports the user's remaining vacation allowance for a year.
func (l *VacationLedger) RemainingDays(ctx context.Context, userID string, year int) (remaining, allowed int, err error) {
	ent, err := l.entitlements.Entitlement(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve entitlement: %w", err)
	}
	allowed = ent.AnnualDays
	if ent.HireDate.Year() == year {
		allowed = ProratedVacationDays(ent.HireDate, ent.AnnualDays)
	}
	entries, err := l.store.VacationsForUser(ctx, userID, NewDay(year, time.January, 1), NewDay(year, time.December, 31))
	if err != nil {
		return 0, 0, fmt.Errorf("load leave entries: %w", err)
	}
	used := 0
	for _, e := range entries {
		if e.Type == LeaveVacation && e.Status == LeaveApproved {
			used += e.Days
		}
	}
	return allowed - used, allowed, nil
}
