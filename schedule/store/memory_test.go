package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/schedule"
	memstore "github.com/warp/shift-engine/schedule/store"
)

func testShift(id string, date schedule.Day) schedule.Shift {
	return schedule.Shift{
		ID:        id,
		Date:      date,
		StartTime: schedule.MustClock("09:00"),
		EndTime:   schedule.MustClock("15:00"),
		Type:      schedule.ShiftEarly,
		Capacity:  2,
		UpdatedAt: time.Now().UTC(),
	}
}

func TestMemory_ShiftsInRange_SortedAndFiltered(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()
	mon := schedule.NewDay(2025, time.March, 10)

	require.NoError(t, m.SaveShift(ctx, testShift("s-wed", mon.AddDays(2))))
	require.NoError(t, m.SaveShift(ctx, testShift("s-mon", mon)))
	require.NoError(t, m.SaveShift(ctx, testShift("s-next", mon.AddDays(7))))

	got, err := m.ShiftsInRange(ctx, mon, mon.AddDays(4))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s-mon", got[0].ID, "sorted by date")
	assert.Equal(t, "s-wed", got[1].ID)
}

func TestMemory_GetMissing_ReturnsNilNil(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()

	s, err := m.GetShift(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, s)

	b, err := m.GetBooking(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that writes a shift and a booking, then fails
	// THEN: Neither write survives

	m := memstore.NewMemory()
	ctx := context.Background()
	mon := schedule.NewDay(2025, time.March, 10)
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx schedule.Store) error {
		require.NoError(t, tx.SaveShift(ctx, testShift("s-1", mon)))
		require.NoError(t, tx.SaveBooking(ctx, schedule.Booking{
			ID: "b-1", ShiftID: "s-1", UserID: "u-1", Status: schedule.BookingActive,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	s, err := m.GetShift(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, s)
	b, err := m.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()
	mon := schedule.NewDay(2025, time.March, 10)

	err := m.WithTx(ctx, func(tx schedule.Store) error {
		return tx.SaveShift(ctx, testShift("s-1", mon))
	})
	require.NoError(t, err)

	s, err := m.GetShift(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, schedule.ShiftEarly, s.Type)
}

func TestMemory_WithTx_RollsBackAudit(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()

	_ = m.WithTx(ctx, func(tx schedule.Store) error {
		require.NoError(t, tx.AppendAudit(ctx, schedule.AuditEntry{ID: "a-1", Action: "x"}))
		return errors.New("boom")
	})

	entries, err := m.AuditEntries(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_BookingsForUser_FilteredByShiftDate(t *testing.T) {
	// BookingsForUser resolves through the booking's shift date.

	m := memstore.NewMemory()
	ctx := context.Background()
	mon := schedule.NewDay(2025, time.March, 10)

	require.NoError(t, m.SaveShift(ctx, testShift("s-mon", mon)))
	require.NoError(t, m.SaveShift(ctx, testShift("s-next", mon.AddDays(7))))
	require.NoError(t, m.SaveBooking(ctx, schedule.Booking{ID: "b-1", ShiftID: "s-mon", UserID: "u-1", Status: schedule.BookingActive}))
	require.NoError(t, m.SaveBooking(ctx, schedule.Booking{ID: "b-2", ShiftID: "s-next", UserID: "u-1", Status: schedule.BookingActive}))
	require.NoError(t, m.SaveBooking(ctx, schedule.Booking{ID: "b-3", ShiftID: "s-mon", UserID: "u-2", Status: schedule.BookingActive}))

	got, err := m.BookingsForUser(ctx, "u-1", mon, mon.AddDays(4))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b-1", got[0].ID)
}

func TestMemory_VacationOverlapQuery(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()
	mon := schedule.NewDay(2025, time.March, 10)

	require.NoError(t, m.SaveVacation(ctx, schedule.VacationEntry{
		ID: "v-1", UserID: "u-1",
		StartDate: mon, EndDate: mon.AddDays(4),
		Type: schedule.LeaveVacation, Status: schedule.LeaveApproved,
	}))

	// Range touching the entry's last day still matches.
	got, err := m.VacationsForUser(ctx, "u-1", mon.AddDays(4), mon.AddDays(8))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Disjoint range does not.
	got, err = m.VacationsForUser(ctx, "u-1", mon.AddDays(7), mon.AddDays(8))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_AuditEntries_NewestFirstWithLimit(t *testing.T) {
	m := memstore.NewMemory()
	ctx := context.Background()
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.AppendAudit(ctx, schedule.AuditEntry{
			ID: string(rune('a' + i)), Action: "x", At: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := m.AuditEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}
