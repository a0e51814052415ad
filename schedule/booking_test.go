package schedule_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// VALIDATION RULE TESTS
// =============================================================================

func TestCreateBooking_UnknownShift_NotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.bookings.CreateBooking(context.Background(), anna, "no-such-shift", anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestCreateBooking_CapacityFull_Rejected(t *testing.T) {
	// GIVEN: A capacity-1 shift already booked by Jonas
	// WHEN: Anna tries to book the same shift
	// THEN: Rejected with a capacity error naming the shift

	e := newEnv(t)
	shift := e.addShift(t, monday, schedule.ShiftEarly, 1)
	e.book(t, jonas, shift.ID)

	_, err := e.bookings.CreateBooking(context.Background(), anna, shift.ID, anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrCapacityExceeded)
	var capErr *schedule.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, shift.ID, capErr.ShiftID)
	assert.Equal(t, 1, capErr.Capacity)
}

func TestCreateBooking_Duplicate_Rejected(t *testing.T) {
	e := newEnv(t)
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)
	e.book(t, anna, shift.ID)

	_, err := e.bookings.CreateBooking(context.Background(), anna, shift.ID, anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrDuplicateBooking)
}

func TestCreateBooking_SameDaySecondShift_Rejected(t *testing.T) {
	// GIVEN: Anna holds the early shift on Monday
	// WHEN: She tries to also book the late shift that day
	// THEN: Rejected; one shift per day

	e := newEnv(t)
	early := e.addShift(t, monday, schedule.ShiftEarly, 2)
	late := e.addShift(t, monday, schedule.ShiftLate, 2)
	e.book(t, anna, early.ID)

	_, err := e.bookings.CreateBooking(context.Background(), anna, late.ID, anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrSameDayConflict)
}

func TestCreateBooking_OnApprovedLeave_Rejected(t *testing.T) {
	// GIVEN: Anna has approved vacation covering Monday
	// WHEN: She tries to book a Monday shift
	// THEN: Rejected with a leave overlap error

	e := newEnv(t)
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)
	_, err := e.vacations.File(context.Background(), anna, schedule.Filing{
		UserID:    anna.ID,
		UserName:  anna.Name,
		StartDate: monday,
		EndDate:   monday.AddDays(1),
		Type:      schedule.LeaveVacation,
	})
	require.NoError(t, err)

	_, err = e.bookings.CreateBooking(context.Background(), anna, shift.ID, anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrLeaveOverlap)
	var overlapErr *schedule.LeaveOverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, schedule.LeaveVacation, overlapErr.LeaveType)
}

func TestCreateBooking_PendingLeave_DoesNotBlock(t *testing.T) {
	// Pending entries have not been approved; the day stays bookable.

	e := newEnv(t)
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)
	_, err := e.vacations.File(context.Background(), anna, schedule.Filing{
		UserID:    anna.ID,
		UserName:  anna.Name,
		StartDate: monday,
		EndDate:   monday,
		Type:      schedule.LeaveVacation,
		Pending:   true,
	})
	require.NoError(t, err)

	_, err = e.bookings.CreateBooking(context.Background(), anna, shift.ID, anna.ID, anna.Name)

	assert.NoError(t, err)
}

func TestCreateBooking_LongShiftExclusion_BothDirections(t *testing.T) {
	// GIVEN: Jonas holds the long early shift on Monday
	// WHEN: Anna tries the long late shift the same day
	// THEN: Rejected; only one long slot per day regardless of variant

	e := newEnv(t)
	longEarly := e.addShift(t, monday, schedule.ShiftLongEarly, 1)
	longLate := e.addShift(t, monday, schedule.ShiftLongLate, 1)
	e.book(t, jonas, longEarly.ID)

	_, err := e.bookings.CreateBooking(context.Background(), anna, longLate.ID, anna.ID, anna.Name)
	assert.ErrorIs(t, err, schedule.ErrLongShiftConflict)

	// The short shifts stay unaffected.
	late := e.addShift(t, monday, schedule.ShiftLate, 2)
	_, err = e.bookings.CreateBooking(context.Background(), anna, late.ID, anna.ID, anna.Name)
	assert.NoError(t, err)
}

func TestCreateBooking_HourBudget_Enforced(t *testing.T) {
	// GIVEN: Anna worked three 6h shifts this week (18h of the 20h cap)
	// WHEN: She books a fourth 6h shift
	// THEN: Rejected; 24h would exceed the cap

	e := newEnv(t)
	for i := 0; i < 3; i++ {
		s := e.addShift(t, monday.AddDays(i), schedule.ShiftEarly, 2)
		e.book(t, anna, s.ID)
	}
	fourth := e.addShift(t, monday.AddDays(3), schedule.ShiftEarly, 2)

	_, err := e.bookings.CreateBooking(context.Background(), anna, fourth.ID, anna.ID, anna.Name)

	assert.ErrorIs(t, err, schedule.ErrHourBudgetExceeded)
	var budgetErr *schedule.HourBudgetError
	require.ErrorAs(t, err, &budgetErr)
	assert.True(t, decimal.NewFromInt(18).Equal(budgetErr.Worked), "worked %s", budgetErr.Worked)
	assert.True(t, decimal.NewFromInt(6).Equal(budgetErr.Requested))
}

func TestCreateBooking_HourException_RaisesCap(t *testing.T) {
	// An admin override lifts the weekly cap for one user and week.

	e := newEnv(t)
	ctx := context.Background()
	forty := decimal.NewFromInt(40)
	require.NoError(t, e.budget.SetException(ctx, admin, anna.ID, anna.Name, monday, &forty))

	for i := 0; i < 5; i++ {
		s := e.addShift(t, monday.AddDays(i), schedule.ShiftEarly, 2)
		e.book(t, anna, s.ID) // 5 * 6h = 30h, fine under 40h
	}
}

func TestCreateBooking_VacationCredit_CountsAgainstBudget(t *testing.T) {
	// GIVEN: Anna has one approved vacation day this week (8h credit)
	//        and already works two 6h shifts (12h)
	// WHEN: She books a third 6h shift
	// THEN: Rejected; 12h worked + 8h credit + 6h requested > 20h cap

	e := newEnv(t)
	ctx := context.Background()
	_, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID:    anna.ID,
		UserName:  anna.Name,
		StartDate: monday.AddDays(4),
		EndDate:   monday.AddDays(4),
		Type:      schedule.LeaveVacation,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		s := e.addShift(t, monday.AddDays(i), schedule.ShiftEarly, 2)
		e.book(t, anna, s.ID)
	}
	third := e.addShift(t, monday.AddDays(2), schedule.ShiftEarly, 2)

	_, err = e.bookings.CreateBooking(ctx, anna, third.ID, anna.ID, anna.Name)
	assert.ErrorIs(t, err, schedule.ErrHourBudgetExceeded)
}

func TestCreateBooking_PendingCancelStillHoldsSlot(t *testing.T) {
	// GIVEN: Jonas's booking on a capacity-1 shift has a pending cancel request
	// WHEN: Anna tries to book the shift
	// THEN: Rejected; the slot frees only when an admin approves the request

	e := newEnv(t)
	ctx := context.Background()
	shift := e.addShift(t, monday, schedule.ShiftEarly, 1)
	booking := e.book(t, jonas, shift.ID)

	_, err := e.workflow.RequestCancel(ctx, jonas, booking.ID)
	require.NoError(t, err)

	_, err = e.bookings.CreateBooking(ctx, anna, shift.ID, anna.ID, anna.Name)
	assert.ErrorIs(t, err, schedule.ErrCapacityExceeded)
}

func TestCreateBooking_ForOtherUser_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)

	_, err := e.bookings.CreateBooking(context.Background(), anna, shift.ID, jonas.ID, jonas.Name)
	assert.ErrorIs(t, err, schedule.ErrUnauthorized)

	_, err = e.bookings.CreateBooking(context.Background(), admin, shift.ID, jonas.ID, jonas.Name)
	assert.NoError(t, err)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestCreateBooking_ConcurrentOverbooking_Prevented(t *testing.T) {
	// GIVEN: A capacity-2 shift and eight users booking concurrently
	// THEN: Exactly two bookings succeed, the rest fail on capacity

	e := newEnv(t)
	ctx := context.Background()
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := schedule.Actor{ID: string(rune('a' + i)), Name: "User", Role: schedule.RoleEmployee}
			_, errs[i] = e.bookings.CreateBooking(ctx, actor, shift.ID, actor.ID, actor.Name)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, schedule.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 2, succeeded)

	held, err := e.bookings.BookingsForShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Len(t, held, 2)
}

// =============================================================================
// DIRECT MUTATION TESTS
// =============================================================================

func TestCancelBooking_AdminOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)
	booking := e.book(t, anna, shift.ID)

	err := e.bookings.CancelBooking(ctx, anna, booking.ID, "changed plans")
	assert.ErrorIs(t, err, schedule.ErrUnauthorized)

	require.NoError(t, e.bookings.CancelBooking(ctx, admin, booking.ID, "changed plans"))

	got, err := e.bookings.BookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.BookingCancelled, got.Status)
	assert.Equal(t, "changed plans", got.CancelReason)
}

func TestSetBookingTime_OverridesShiftWindow(t *testing.T) {
	// Custom times change the hours the budget calculator sees.

	e := newEnv(t)
	ctx := context.Background()
	shift := e.addShift(t, monday, schedule.ShiftEarly, 2)
	booking := e.book(t, anna, shift.ID)

	start, end := schedule.MustClock("10:00"), schedule.MustClock("14:00")
	require.NoError(t, e.bookings.SetBookingTime(ctx, admin, booking.ID, &start, &end))

	worked, err := e.budget.WorkedHours(ctx, anna.ID, monday)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(worked), "worked %s", worked)

	// Inverted windows are rejected.
	err = e.bookings.SetBookingTime(ctx, admin, booking.ID, &end, &start)
	assert.ErrorIs(t, err, schedule.ErrValidation)
}
