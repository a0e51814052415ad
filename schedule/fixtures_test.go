package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/shift-engine/schedule"
	memstore "github.com/warp/shift-engine/schedule/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	admin = schedule.Actor{ID: "admin-1", Name: "Admin", Role: schedule.RoleAdmin}
	anna  = schedule.Actor{ID: "u-anna", Name: "Anna", Role: schedule.RoleEmployee}
	jonas = schedule.Actor{ID: "u-jonas", Name: "Jonas", Role: schedule.RoleEmployee}
)

// monday is the fixed reference week start used by most tests:
// 2025-03-10 is a Monday.
var monday = schedule.NewDay(2025, time.March, 10)

// env bundles the engine components over a fresh in-memory store.
type env struct {
	store     *memstore.Memory
	catalog   *schedule.Catalog
	bookings  *schedule.BookingLedger
	vacations *schedule.VacationLedger
	workflow  *schedule.RequestWorkflow
	budget    *schedule.HourBudget
	audit     *schedule.AuditSink
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.NewMemory()
	audit := schedule.NewAuditSink(st, zap.NewNop())
	entitlements := &schedule.StaticEntitlements{
		Default: schedule.Entitlement{AnnualDays: 15},
	}
	return &env{
		store:     st,
		catalog:   schedule.NewCatalog(st, schedule.DefaultTemplates(), schedule.NoHolidays{}, audit),
		bookings:  schedule.NewBookingLedger(st, audit, schedule.NoopDispatcher{}),
		vacations: schedule.NewVacationLedger(st, entitlements, audit, schedule.NoopDispatcher{}),
		workflow:  schedule.NewRequestWorkflow(st, audit, schedule.NoopDispatcher{}),
		budget:    schedule.NewHourBudget(st, audit),
		audit:     audit,
	}
}

// shiftWindow returns the default template times for a type.
func shiftWindow(typ schedule.ShiftType) (schedule.ClockTime, schedule.ClockTime) {
	switch typ {
	case schedule.ShiftLate:
		return schedule.MustClock("13:00"), schedule.MustClock("19:00")
	case schedule.ShiftLongEarly:
		return schedule.MustClock("09:00"), schedule.MustClock("17:30")
	case schedule.ShiftLongLate:
		return schedule.MustClock("10:30"), schedule.MustClock("19:00")
	default:
		return schedule.MustClock("09:00"), schedule.MustClock("15:00")
	}
}

// addShift creates a shift through the catalog and returns it.
func (e *env) addShift(t *testing.T, date schedule.Day, typ schedule.ShiftType, capacity int) schedule.Shift {
	t.Helper()
	start, end := shiftWindow(typ)
	s, err := e.catalog.CreateShift(context.Background(), admin, schedule.Shift{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Type:      typ,
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return *s
}

// book books the actor onto the shift, asserting success.
func (e *env) book(t *testing.T, actor schedule.Actor, shiftID string) schedule.Booking {
	t.Helper()
	b, err := e.bookings.CreateBooking(context.Background(), actor, shiftID, actor.ID, actor.Name)
	require.NoError(t, err)
	return *b
}
