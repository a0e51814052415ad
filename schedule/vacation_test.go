package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// FILING TESTS
// =============================================================================

func TestFile_WeekendBoundary_Rejected(t *testing.T) {
	// Leave ranges must start and end on business days.

	e := newEnv(t)
	ctx := context.Background()
	saturday := monday.AddDays(5)

	_, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: saturday, EndDate: saturday.AddDays(2),
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrWeekendBoundary)

	// Ending on a Sunday fails just the same.
	_, err = e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(6),
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrWeekendBoundary)
}

func TestFile_SpanningWeekend_CountsBusinessDaysOnly(t *testing.T) {
	// GIVEN: A Monday-to-next-Friday vacation
	// THEN: 10 business days are debited, the weekend is free

	e := newEnv(t)
	result, err := e.vacations.File(context.Background(), anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(11),
		Type: schedule.LeaveVacation,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Entry.Days)
	assert.Equal(t, schedule.LeaveApproved, result.Entry.Status)
}

func TestFile_InsufficientBalance_Rejected(t *testing.T) {
	// GIVEN: A 15-day annual allowance with 10 days already approved
	// WHEN: Filing another full work week (5 days would leave 0, but 10 used + 10 new > 15)
	// THEN: Rejected with the remaining balance in the error

	e := newEnv(t)
	ctx := context.Background()
	_, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(11), // 10 days
		Type: schedule.LeaveVacation,
	})
	require.NoError(t, err)

	_, err = e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday.AddDays(14), EndDate: monday.AddDays(25), // 10 more
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrInsufficientLeaveBalance)
	var balErr *schedule.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, 10, balErr.Requested)
	assert.Equal(t, 5, balErr.Remaining)
	assert.Equal(t, 15, balErr.Entitlement)
}

func TestFile_HireYearProration(t *testing.T) {
	// GIVEN: Anna was hired July 1 of the filing year (8 of 15 days prorated)
	// WHEN: Filing 10 vacation days
	// THEN: Rejected against the prorated allowance

	e := newEnv(t)
	e.vacations = schedule.NewVacationLedger(e.store, &schedule.StaticEntitlements{
		ByUser: map[string]schedule.Entitlement{
			anna.ID: {HireDate: schedule.NewDay(2025, time.July, 1), AnnualDays: 15},
		},
		Default: schedule.Entitlement{AnnualDays: 15},
	}, e.audit, schedule.NoopDispatcher{})

	aug4 := schedule.NewDay(2025, time.August, 4) // a Monday
	_, err := e.vacations.File(context.Background(), anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: aug4, EndDate: aug4.AddDays(11), // 10 days
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrInsufficientLeaveBalance)
	var balErr *schedule.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, 8, balErr.Entitlement, "July 1 hire keeps 8 of 15 days")
}

func TestFile_VacationOverBookedDay_Rejected(t *testing.T) {
	// GIVEN: Anna works Tuesday
	// WHEN: She files vacation covering Tuesday
	// THEN: Rejected, naming the conflicting date; nothing is filed

	e := newEnv(t)
	ctx := context.Background()
	tuesday := monday.AddDays(1)
	shift := e.addShift(t, tuesday, schedule.ShiftEarly, 2)
	e.book(t, anna, shift.ID)

	_, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(2),
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrBookedDateConflict)
	var conflictErr *schedule.BookedDateConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Dates, 1)
	assert.True(t, tuesday.Equal(conflictErr.Dates[0]))

	entries, err := e.vacations.EntriesInRange(ctx, monday, monday.AddDays(4))
	require.NoError(t, err)
	assert.Empty(t, entries, "failed filing must leave no entry behind")
}

func TestFile_SickOverBookedDays_AutoCancels(t *testing.T) {
	// GIVEN: Anna works Monday and Tuesday
	// WHEN: She files sick leave for both days
	// THEN: Both bookings flip to cancelled with the sick reason, and the
	//       entry records their IDs

	e := newEnv(t)
	ctx := context.Background()
	b1 := e.book(t, anna, e.addShift(t, monday, schedule.ShiftEarly, 2).ID)
	b2 := e.book(t, anna, e.addShift(t, monday.AddDays(1), schedule.ShiftEarly, 2).ID)

	result, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(1),
		Type: schedule.LeaveSick,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b1.ID, b2.ID}, result.CancelledBookingIDs)

	for _, id := range []string{b1.ID, b2.ID} {
		got, err := e.bookings.BookingByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, schedule.BookingCancelled, got.Status)
		assert.Equal(t, schedule.CancelReasonSick, got.CancelReason)
	}
}

func TestFile_ForOtherUser_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: jonas.ID, UserName: jonas.Name,
		StartDate: monday, EndDate: monday,
		Type: schedule.LeaveVacation,
	})
	assert.ErrorIs(t, err, schedule.ErrUnauthorized)

	_, err = e.vacations.File(ctx, admin, schedule.Filing{
		UserID: jonas.ID, UserName: jonas.Name,
		StartDate: monday, EndDate: monday,
		Type: schedule.LeaveVacation,
	})
	assert.NoError(t, err)
}

// =============================================================================
// APPROVAL TESTS
// =============================================================================

func TestApproveEntry_PendingOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	result, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday,
		Type: schedule.LeaveVacation, Pending: true,
	})
	require.NoError(t, err)
	id := result.Entry.ID

	err = e.vacations.ApproveEntry(ctx, anna, id)
	assert.ErrorIs(t, err, schedule.ErrUnauthorized)

	require.NoError(t, e.vacations.ApproveEntry(ctx, admin, id))

	// Already decided; a second decision is an invalid transition.
	err = e.vacations.RejectEntry(ctx, admin, id)
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

// =============================================================================
// DELETION WORKFLOW TESTS
// =============================================================================

func TestDeletionWorkflow_RequestApprove(t *testing.T) {
	// GIVEN: Anna's approved vacation entry
	// WHEN: She requests deletion and an admin approves
	// THEN: The entry is gone; she cannot delete it directly herself

	e := newEnv(t)
	ctx := context.Background()
	result, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday,
		Type: schedule.LeaveVacation,
	})
	require.NoError(t, err)
	id := result.Entry.ID

	err = e.vacations.Delete(ctx, anna, id)
	assert.ErrorIs(t, err, schedule.ErrUnauthorized)

	require.NoError(t, e.vacations.RequestDeletion(ctx, anna, id, "plans changed"))

	// Double-requesting is an invalid transition.
	err = e.vacations.RequestDeletion(ctx, anna, id, "again")
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	require.NoError(t, e.vacations.ApproveDeletion(ctx, admin, id))

	entries, err := e.vacations.EntriesInRange(ctx, monday, monday)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeletionWorkflow_Reject_KeepsEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	result, err := e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday,
		Type: schedule.LeaveVacation,
	})
	require.NoError(t, err)
	id := result.Entry.ID

	require.NoError(t, e.vacations.RequestDeletion(ctx, anna, id, "plans changed"))
	require.NoError(t, e.vacations.RejectDeletion(ctx, admin, id))

	entries, err := e.vacations.EntriesInRange(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].DeletionRequested)
	assert.NotNil(t, entries[0].DeletionRejectedAt)
}

// =============================================================================
// BALANCE QUERY TESTS
// =============================================================================

func TestRemainingDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	remaining, allowed, err := e.vacations.RemainingDays(ctx, anna.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, 15, allowed)
	assert.Equal(t, 15, remaining)

	_, err = e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday, EndDate: monday.AddDays(4), // 5 days
		Type: schedule.LeaveVacation,
	})
	require.NoError(t, err)

	remaining, _, err = e.vacations.RemainingDays(ctx, anna.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	// Pending and sick entries do not consume the allowance.
	_, err = e.vacations.File(ctx, anna, schedule.Filing{
		UserID: anna.ID, UserName: anna.Name,
		StartDate: monday.AddDays(7), EndDate: monday.AddDays(7),
		Type: schedule.LeaveSick,
	})
	require.NoError(t, err)
	remaining, _, err = e.vacations.RemainingDays(ctx, anna.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}
