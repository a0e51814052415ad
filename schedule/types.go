/*
Package schedule implements the booking consistency engine for staff
shift scheduling and leave tracking.

PURPOSE:
  Employees book themselves into capacity-limited shifts within weekly
  hour budgets; administrators manage shifts, approve leave, and adjust
  per-employee exceptions. This package contains the rules and the
  transactional procedures that keep bookings, leave entries, hour
  overrides, and cancel/swap requests consistent with each other.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift:         A bookable, capacity-limited time slot on a date
  - Booking:       One user's claim on one shift, with a lifecycle status
  - VacationEntry: A vacation/sick/education date range filed for a user
  - HourException: Per-user, per-week override of the weekly hour cap
  - Request:       A deferred cancel/swap proposal awaiting an admin decision
  - Actor:         The identity performing an operation (trusted as given)

DESIGN PRINCIPLES:
  1. All-or-nothing: every mutation runs inside a store transaction
  2. Precision: decimal.Decimal for hour arithmetic, never float64
  3. Typed failures: each rule violation surfaces a distinct error kind
  4. Auditability: every decision leaves an audit entry

SEE ALSO:
  - booking.go:  the core booking transaction
  - hours.go:    weekly hour budget computation
  - vacation.go: leave filing and the sick auto-cancel rule
  - workflow.go: cancel/swap request state machine
*/
package schedule

import (
	"time"
)

// =============================================================================
// SHIFT
// =============================================================================

// ShiftType identifies a shift variant. The two long variants carry an
// unpaid 30-minute break and are mutually exclusive per date: once either
// one has an active booking, the other becomes unbookable that day.
type ShiftType string

const (
	ShiftEarly     ShiftType = "early"      // short morning shift
	ShiftLate      ShiftType = "late"       // short afternoon shift
	ShiftLongEarly ShiftType = "long_early" // long shift, early start
	ShiftLongLate  ShiftType = "long_late"  // long shift, late start
	ShiftCustom    ShiftType = "custom"
)

// IsLong reports whether the type is one of the two long variants.
func (t ShiftType) IsLong() bool {
	return t == ShiftLongEarly || t == ShiftLongLate
}

// Known reports whether the type is one of the defined variants.
func (t ShiftType) Known() bool {
	switch t {
	case ShiftEarly, ShiftLate, ShiftLongEarly, ShiftLongLate, ShiftCustom:
		return true
	}
	return false
}

// Shift is a bookable time slot. Capacity bounds the number of bookings
// that hold a slot (active or pending) at any time.
type Shift struct {
	ID        string
	Date      Day
	StartTime ClockTime
	EndTime   ClockTime
	Type      ShiftType
	Capacity  int
	CreatedBy string
	UpdatedAt time.Time
}

// =============================================================================
// BOOKING
// =============================================================================

// BookingStatus is the booking lifecycle state. The pending states are
// entered by cancel/swap requests and still occupy the shift slot until
// an administrator decides the request.
type BookingStatus string

const (
	BookingActive        BookingStatus = "active"
	BookingPendingCancel BookingStatus = "pending_cancel"
	BookingPendingSwap   BookingStatus = "pending_swap"
	BookingCancelled     BookingStatus = "cancelled"
)

// HoldsSlot reports whether the booking counts against shift capacity,
// the per-day exclusivity rules, and the long-shift exclusion.
func (s BookingStatus) HoldsSlot() bool {
	return s == BookingActive || s == BookingPendingCancel || s == BookingPendingSwap
}

// CancelReasonSick marks bookings that were auto-cancelled because a sick
// entry was filed over their date. The hour budget calculator credits
// these hours back to the user.
const CancelReasonSick = "sick day"

// Booking links one user to one shift. Custom times, when set by an
// administrator, override the shift's default window for this booking only.
type Booking struct {
	ID              string
	ShiftID         string
	UserID          string
	UserName        string
	Status          BookingStatus
	CustomStartTime *ClockTime
	CustomEndTime   *ClockTime
	CancelReason    string
	CreatedAt       time.Time
}

// Times returns the effective start/end for this booking on the given shift.
func (b *Booking) Times(s *Shift) (ClockTime, ClockTime) {
	start, end := s.StartTime, s.EndTime
	if b.CustomStartTime != nil {
		start = *b.CustomStartTime
	}
	if b.CustomEndTime != nil {
		end = *b.CustomEndTime
	}
	return start, end
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveType string

const (
	LeaveVacation  LeaveType = "vacation"
	LeaveSick      LeaveType = "sick"
	LeaveEducation LeaveType = "education"
)

func (t LeaveType) Known() bool {
	return t == LeaveVacation || t == LeaveSick || t == LeaveEducation
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// VacationEntry is a leave date range filed by or for a user. Sick entries
// record the bookings they auto-cancelled; deletion of non-admin entries
// goes through a two-step request/approve workflow.
type VacationEntry struct {
	ID        string
	UserID    string
	UserName  string
	StartDate Day
	EndDate   Day
	Days      int // business days in range, Monday through Friday
	Type      LeaveType
	Status    LeaveStatus
	Note      string

	DeletionRequested  bool
	DeletionReason     string
	DeletionRejectedAt *time.Time

	// Bookings transitioned to cancelled when this sick entry was filed.
	CancelledBookingIDs []string

	CreatedAt time.Time
}

// Covers reports whether the entry's date range contains the given day.
func (e *VacationEntry) Covers(d Day) bool {
	return !d.Before(e.StartDate) && !d.After(e.EndDate)
}

// =============================================================================
// HOUR EXCEPTION
// =============================================================================

// HourException overrides the default weekly hour cap for one user in one
// specific week. A nil MaxHours means unlimited for that week.
type HourException struct {
	UserID    string
	UserName  string
	WeekStart Day
	MaxHours  *Hours // nil = unlimited
	SetBy     string
	SetByName string
	UpdatedAt time.Time
}

// =============================================================================
// REQUEST
// =============================================================================

type RequestType string

const (
	RequestCancel RequestType = "cancel"
	RequestSwap   RequestType = "swap"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request is a deferred mutation proposal: a booking cancellation or a
// swap to another shift, awaiting an administrator's decision. Approve and
// reject are mutually exclusive terminal transitions.
type Request struct {
	ID           string
	Type         RequestType
	Status       RequestStatus
	RequesterID  string
	BookingID    string
	ToShiftID    string // swap only
	TargetUserID string // swap only, optional
	AdminNote    string
	DecidedBy    string
	DecidedAt    *time.Time
	CreatedAt    time.Time
}

// =============================================================================
// ACTOR
// =============================================================================

// Role is supplied by the identity provider; the engine trusts it as given.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// System is the actor recorded for engine-internal mutations.
var System = Actor{ID: "system", Name: "System", Role: RoleAdmin}
