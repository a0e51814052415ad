/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation uses go-playground/validator struct tags; the
  business rules stay in the schedule package.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// SHIFTS
// =============================================================================

// ShiftDTO represents a shift in API responses.
type ShiftDTO struct {
	ID        string       `json:"id"`
	Date      string       `json:"date"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	Type      string       `json:"type"`
	Capacity  int          `json:"capacity"`
	Bookings  []BookingDTO `json:"bookings,omitempty"`
}

func toShiftDTO(s schedule.Shift) ShiftDTO {
	return ShiftDTO{
		ID:        s.ID,
		Date:      s.Date.String(),
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
		Type:      string(s.Type),
		Capacity:  s.Capacity,
	}
}

// ShiftRequest is the body for creating or updating a shift.
type ShiftRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Capacity  int    `json:"capacity" validate:"min=1,max=10"`
}

// GenerateWeekRequest bulk-creates a week of templated shifts.
type GenerateWeekRequest struct {
	WeekStart string   `json:"weekStart" validate:"required"`
	Types     []string `json:"types"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID           string  `json:"id"`
	ShiftID      string  `json:"shiftId"`
	UserID       string  `json:"userId"`
	UserName     string  `json:"userName"`
	Status       string  `json:"status"`
	StartTime    *string `json:"startTime,omitempty"`
	EndTime      *string `json:"endTime,omitempty"`
	CancelReason string  `json:"cancelReason,omitempty"`
}

func toBookingDTO(b schedule.Booking) BookingDTO {
	dto := BookingDTO{
		ID:           b.ID,
		ShiftID:      b.ShiftID,
		UserID:       b.UserID,
		UserName:     b.UserName,
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
	}
	if b.CustomStartTime != nil {
		s := b.CustomStartTime.String()
		dto.StartTime = &s
	}
	if b.CustomEndTime != nil {
		e := b.CustomEndTime.String()
		dto.EndTime = &e
	}
	return dto
}

// CreateBookingRequest books a user into a shift.
type CreateBookingRequest struct {
	ShiftID  string `json:"shiftId" validate:"required"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// CancelBookingRequest carries the admin's cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// BookingTimeRequest overrides a booking's time window. Empty times
// restore the shift defaults.
type BookingTimeRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// =============================================================================
// LEAVE
// =============================================================================

// VacationDTO represents a leave entry in API responses.
type VacationDTO struct {
	ID                  string   `json:"id"`
	UserID              string   `json:"userId"`
	UserName            string   `json:"userName"`
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate"`
	Days                int      `json:"days"`
	Type                string   `json:"type"`
	Status              string   `json:"status"`
	Note                string   `json:"note,omitempty"`
	DeletionRequested   bool     `json:"deletionRequested,omitempty"`
	DeletionReason      string   `json:"deletionReason,omitempty"`
	CancelledBookingIDs []string `json:"cancelledBookingIds,omitempty"`
}

func toVacationDTO(v schedule.VacationEntry) VacationDTO {
	return VacationDTO{
		ID:                  v.ID,
		UserID:              v.UserID,
		UserName:            v.UserName,
		StartDate:           v.StartDate.String(),
		EndDate:             v.EndDate.String(),
		Days:                v.Days,
		Type:                string(v.Type),
		Status:              string(v.Status),
		Note:                v.Note,
		DeletionRequested:   v.DeletionRequested,
		DeletionReason:      v.DeletionReason,
		CancelledBookingIDs: v.CancelledBookingIDs,
	}
}

// FileVacationRequest files a leave entry.
type FileVacationRequest struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Note      string `json:"note"`
	Pending   bool   `json:"pending"`
}

// FileVacationResponse reports the created entry and any bookings the
// filing cancelled.
type FileVacationResponse struct {
	Entry               VacationDTO `json:"entry"`
	CancelledBookingIDs []string    `json:"cancelledBookingIds,omitempty"`
}

// DeletionRequest carries the reason for a two-step entry deletion.
type DeletionRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// HOURS
// =============================================================================

// WeekBudgetDTO is the weekly budget summary for one user.
type WeekBudgetDTO struct {
	UserID            string  `json:"userId"`
	WeekStart         string  `json:"weekStart"`
	Cap               *string `json:"cap"` // null = unlimited
	Worked            string  `json:"worked"`
	VacationCredit    string  `json:"vacationCredit"`
	SickCredit        string  `json:"sickCredit"`
	EffectiveVacation string  `json:"effectiveVacation"`
	EffectiveSick     string  `json:"effectiveSick"`
	Remaining         *string `json:"remaining"` // null = unlimited
}

func toWeekBudgetDTO(wb schedule.WeekBudget) WeekBudgetDTO {
	dto := WeekBudgetDTO{
		UserID:            wb.UserID,
		WeekStart:         wb.WeekStart.String(),
		Worked:            wb.Worked.String(),
		VacationCredit:    wb.VacationCredit.String(),
		SickCredit:        wb.SickCredit.String(),
		EffectiveVacation: wb.EffectiveVacation.String(),
		EffectiveSick:     wb.EffectiveSick.String(),
	}
	if wb.Cap != nil {
		s := wb.Cap.String()
		dto.Cap = &s
	}
	if r := wb.Remaining(); r != nil {
		s := r.String()
		dto.Remaining = &s
	}
	return dto
}

// HourExceptionDTO represents a weekly cap override.
type HourExceptionDTO struct {
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	WeekStart string  `json:"weekStart"`
	MaxHours  *string `json:"maxHours"` // null = unlimited
	SetBy     string  `json:"setBy"`
	SetByName string  `json:"setByName,omitempty"`
}

func toHourExceptionDTO(e schedule.HourException) HourExceptionDTO {
	dto := HourExceptionDTO{
		UserID:    e.UserID,
		UserName:  e.UserName,
		WeekStart: e.WeekStart.String(),
		SetBy:     e.SetBy,
		SetByName: e.SetByName,
	}
	if e.MaxHours != nil {
		s := e.MaxHours.String()
		dto.MaxHours = &s
	}
	return dto
}

// SetHourExceptionRequest installs or updates an override. A null
// maxHours lifts the cap for that week.
type SetHourExceptionRequest struct {
	UserID    string  `json:"userId" validate:"required"`
	UserName  string  `json:"userName"`
	WeekStart string  `json:"weekStart" validate:"required"`
	MaxHours  *string `json:"maxHours"`
}

// RemoveHourExceptionRequest removes an override.
type RemoveHourExceptionRequest struct {
	UserID    string `json:"userId" validate:"required"`
	WeekStart string `json:"weekStart" validate:"required"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO represents a cancel/swap request in API responses.
type RequestDTO struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	RequesterID  string `json:"requesterId"`
	BookingID    string `json:"bookingId"`
	ToShiftID    string `json:"toShiftId,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
	AdminNote    string `json:"adminNote,omitempty"`
	DecidedBy    string `json:"decidedBy,omitempty"`
}

func toRequestDTO(r schedule.Request) RequestDTO {
	return RequestDTO{
		ID:           r.ID,
		Type:         string(r.Type),
		Status:       string(r.Status),
		RequesterID:  r.RequesterID,
		BookingID:    r.BookingID,
		ToShiftID:    r.ToShiftID,
		TargetUserID: r.TargetUserID,
		AdminNote:    r.AdminNote,
		DecidedBy:    r.DecidedBy,
	}
}

// OpenCancelRequest asks to release a booking.
type OpenCancelRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

// OpenSwapRequest asks to move a booking to another shift.
type OpenSwapRequest struct {
	BookingID    string `json:"bookingId" validate:"required"`
	ToShiftID    string `json:"toShiftId" validate:"required"`
	TargetUserID string `json:"targetUserId"`
}

// DecideRequest carries the admin's note for approve/reject.
type DecideRequest struct {
	Note string `json:"note"`
}

// =============================================================================
// AUDIT AND ERRORS
// =============================================================================

// AuditEntryDTO is one audit line, newest first.
type AuditEntryDTO struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
	TargetID  string `json:"targetId,omitempty"`
	Detail    string `json:"detail,omitempty"`
	At        string `json:"at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}
