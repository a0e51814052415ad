/*
hours.go - Weekly hour budget computation

PURPOSE:
  Computes, for a user and a week, the applicable maximum weekly hours
  (default or per-week override), the hours already worked from active
  bookings, and the hour credit contributed by approved leave. Pure
  computation over the stores; the only state it owns is the override
  table.

CREDIT MODEL:
  Leave days convert to hours through a coarse step table (0 days = 0h,
  1 day = 8h, 2 days = 14h, 3+ days = 20h). Vacation and sick credit
  are computed independently and clamped so worked + credit never
  exceeds the cap. Sick credit takes the larger of the step-table
  value and the hours of bookings auto-cancelled for sickness, never
  the sum.

SEE ALSO:
  - booking.go: applies the budget as booking rule 7
  - time.go:    WorkingHours and the long-shift break deduction
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Hours is a decimal hour quantity. Decimal arithmetic keeps the
// half-hour break deduction exact.
type Hours = decimal.Decimal

// DefaultWeeklyHours is the cap applied when no override exists for the
// user and week.
var DefaultWeeklyHours = decimal.NewFromInt(20)

// leaveCreditTable maps covered business days to an hour credit.
// Monotonic and capped at the full weekly default.
var leaveCreditTable = []int64{0, 8, 14, 20}

// LeaveDayCredit converts a count of covered business days into hours.
func LeaveDayCredit(days int) decimal.Decimal {
	if days < 0 {
		days = 0
	}
	if days >= len(leaveCreditTable) {
		days = len(leaveCreditTable) - 1
	}
	return decimal.NewFromInt(leaveCreditTable[days])
}

// BudgetStore is the read surface the calculator needs plus the
// override table it manages.
type BudgetStore interface {
	ShiftStore
	BookingStore
	VacationStore
	HourExceptionStore
}

// HourBudget computes weekly budgets and manages per-week overrides.
type HourBudget struct {
	store BudgetStore
	audit *AuditSink // optional; nil inside booking validation
}

func NewHourBudget(store BudgetStore, audit *AuditSink) *HourBudget {
	return &HourBudget{store: store, audit: audit}
}

// =============================================================================
// BUDGET COMPUTATION
// =============================================================================

// MaxWeeklyHours returns the cap for the user and week. A nil result
// means unlimited (an override explicitly lifted the cap).
func (h *HourBudget) MaxWeeklyHours(ctx context.Context, userID string, weekStart Day) (*Hours, error) {
	exc, err := h.store.GetHourException(ctx, userID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("load hour exception: %w", err)
	}
	if exc != nil {
		return exc.MaxHours, nil
	}
	cap := DefaultWeeklyHours
	return &cap, nil
}

// WorkedHours sums the working hours of the user's active bookings in
// the week's five business days. Custom booking times override the
// shift defaults; long shifts lose the 30-minute break.
func (h *HourBudget) WorkedHours(ctx context.Context, userID string, weekStart Day) (Hours, error) {
	bookings, err := h.store.BookingsForUser(ctx, userID, weekStart, weekStart.AddDays(4))
	if err != nil {
		return decimal.Zero, fmt.Errorf("load bookings: %w", err)
	}
	total := decimal.Zero
	for _, b := range bookings {
		if b.Status != BookingActive {
			continue
		}
		s, err := h.store.GetShift(ctx, b.ShiftID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load shift %s: %w", b.ShiftID, err)
		}
		if s == nil {
			continue
		}
		start, end := b.Times(s)
		total = total.Add(WorkingHours(start, end, s.Type))
	}
	return total, nil
}

// LeaveCredit converts the week's business days covered by approved
// leave of the given type into hours via the step table.
func (h *HourBudget) LeaveCredit(ctx context.Context, userID string, weekStart Day, lt LeaveType) (Hours, error) {
	entries, err := h.store.VacationsForUser(ctx, userID, weekStart, weekStart.AddDays(4))
	if err != nil {
		return decimal.Zero, fmt.Errorf("load leave entries: %w", err)
	}
	days := 0
	for _, d := range WeekDays(weekStart) {
		for _, e := range entries {
			if e.Type == lt && e.Status == LeaveApproved && e.Covers(d) {
				days++
				break
			}
		}
	}
	return LeaveDayCredit(days), nil
}

// sickCancelledHours sums the working hours of the user's bookings in
// the week that were auto-cancelled for sickness.
func (h *HourBudget) sickCancelledHours(ctx context.Context, userID string, weekStart Day) (Hours, error) {
	bookings, err := h.store.BookingsForUser(ctx, userID, weekStart, weekStart.AddDays(4))
	if err != nil {
		return decimal.Zero, fmt.Errorf("load bookings: %w", err)
	}
	total := decimal.Zero
	for _, b := range bookings {
		if b.Status != BookingCancelled || b.CancelReason != CancelReasonSick {
			continue
		}
		s, err := h.store.GetShift(ctx, b.ShiftID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load shift %s: %w", b.ShiftID, err)
		}
		if s == nil {
			continue
		}
		start, end := b.Times(s)
		total = total.Add(WorkingHours(start, end, s.Type))
	}
	return total, nil
}

// SickCredit returns the larger of the step-table credit from sick
// entries and the hours of sickness-cancelled bookings. Taking the max
// avoids double counting when both sources cover the same days.
func (h *HourBudget) SickCredit(ctx context.Context, userID string, weekStart Day) (Hours, error) {
	fromEntries, err := h.LeaveCredit(ctx, userID, weekStart, LeaveSick)
	if err != nil {
		return decimal.Zero, err
	}
	fromBookings, err := h.sickCancelledHours(ctx, userID, weekStart)
	if err != nil {
		return decimal.Zero, err
	}
	if fromBookings.GreaterThan(fromEntries) {
		return fromBookings, nil
	}
	return fromEntries, nil
}

// WeekBudget is the full picture for one user and week.
type WeekBudget struct {
	UserID            string `json:"userId"`
	WeekStart         Day    `json:"weekStart"`
	Cap               *Hours `json:"cap"` // nil = unlimited
	Worked            Hours  `json:"worked"`
	VacationCredit    Hours  `json:"vacationCredit"`
	SickCredit        Hours  `json:"sickCredit"`
	EffectiveVacation Hours  `json:"effectiveVacation"`
	EffectiveSick     Hours  `json:"effectiveSick"`
}

// Remaining returns the bookable hours left, or nil when unlimited.
func (w WeekBudget) Remaining() *Hours {
	if w.Cap == nil {
		return nil
	}
	r := w.Cap.Sub(w.Worked).Sub(w.EffectiveVacation)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return &r
}

// Budget computes the complete weekly budget with leave credit clamped
// so worked plus credit never exceeds the cap.
func (h *HourBudget) Budget(ctx context.Context, userID string, weekStart Day) (WeekBudget, error) {
	wb := WeekBudget{UserID: userID, WeekStart: weekStart}

	cap, err := h.MaxWeeklyHours(ctx, userID, weekStart)
	if err != nil {
		return wb, err
	}
	wb.Cap = cap

	if wb.Worked, err = h.WorkedHours(ctx, userID, weekStart); err != nil {
		return wb, err
	}
	if wb.VacationCredit, err = h.LeaveCredit(ctx, userID, weekStart, LeaveVacation); err != nil {
		return wb, err
	}
	if wb.SickCredit, err = h.SickCredit(ctx, userID, weekStart); err != nil {
		return wb, err
	}

	if cap == nil {
		wb.EffectiveVacation = wb.VacationCredit
		wb.EffectiveSick = wb.SickCredit
		return wb, nil
	}

	room := cap.Sub(wb.Worked)
	if room.IsNegative() {
		room = decimal.Zero
	}
	wb.EffectiveVacation = decimal.Min(wb.VacationCredit, room)

	room = room.Sub(wb.EffectiveVacation)
	if room.IsNegative() {
		room = decimal.Zero
	}
	wb.EffectiveSick = decimal.Min(wb.SickCredit, room)
	return wb, nil
}

// =============================================================================
// OVERRIDE MANAGEMENT (administrators only)
// =============================================================================

// SetException installs a per-user weekly cap override. A nil maxHours
// lifts the cap entirely for that week.
func (h *HourBudget) SetException(ctx context.Context, actor Actor, userID, userName string, weekStart Day, maxHours *Hours) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	if maxHours != nil && maxHours.IsNegative() {
		return &ValidationError{Fields: map[string]string{"maxHours": "must not be negative"}}
	}
	exc := HourException{
		UserID:    userID,
		UserName:  userName,
		WeekStart: WeekStart(weekStart),
		MaxHours:  maxHours,
		SetBy:     actor.ID,
		SetByName: actor.Name,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveHourException(ctx, exc); err != nil {
		return fmt.Errorf("save hour exception: %w", err)
	}
	if h.audit != nil {
		h.audit.Record(ctx, AuditExceptionSet, actor, userID, fmt.Sprintf("week %s", exc.WeekStart))
	}
	return nil
}

// RemoveException restores the default cap for the user and week.
func (h *HourBudget) RemoveException(ctx context.Context, actor Actor, userID string, weekStart Day) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	weekStart = WeekStart(weekStart)
	if err := h.store.DeleteHourException(ctx, userID, weekStart); err != nil {
		return fmt.Errorf("delete hour exception: %w", err)
	}
	if h.audit != nil {
		h.audit.Record(ctx, AuditExceptionRemoved, actor, userID, fmt.Sprintf("week %s", weekStart))
	}
	return nil
}

// ExceptionsForWeek lists every override for the week.
func (h *HourBudget) ExceptionsForWeek(ctx context.Context, weekStart Day) ([]HourException, error) {
	return h.store.HourExceptionsForWeek(ctx, WeekStart(weekStart))
}
