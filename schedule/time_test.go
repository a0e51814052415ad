package schedule_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// DAY AND WEEK TESTS
// =============================================================================

func TestParseDay_RoundTrip(t *testing.T) {
	d, err := schedule.ParseDay("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = schedule.ParseDay("10.03.2025")
	assert.Error(t, err)
}

func TestDay_JSON(t *testing.T) {
	d := schedule.NewDay(2025, time.March, 10)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-10"`, string(raw))

	var back schedule.Day
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))
}

func TestWeekStart_AlwaysMonday(t *testing.T) {
	// GIVEN: Dates across a full week, including the Sunday wraparound
	// THEN: WeekStart lands on the Monday of the containing week

	monday := schedule.NewDay(2025, time.March, 10)
	for i := 0; i < 7; i++ {
		got := schedule.WeekStart(monday.AddDays(i))
		assert.True(t, monday.Equal(got), "day offset %d should map to %s, got %s", i, monday, got)
	}
}

func TestWeekDays_FiveBusinessDays(t *testing.T) {
	days := schedule.WeekDays(schedule.NewDay(2025, time.March, 10))
	require.Len(t, days, 5)
	assert.Equal(t, time.Monday, days[0].Weekday())
	assert.Equal(t, time.Friday, days[4].Weekday())
}

func TestBusinessDays(t *testing.T) {
	mon := schedule.NewDay(2025, time.March, 10)
	fri := schedule.NewDay(2025, time.March, 14)
	sat := schedule.NewDay(2025, time.March, 15)
	sun := schedule.NewDay(2025, time.March, 16)

	assert.Equal(t, 5, schedule.BusinessDays(mon, fri), "full work week")
	assert.Equal(t, 0, schedule.BusinessDays(sat, sun), "weekend only")
	assert.Equal(t, 1, schedule.BusinessDays(mon, mon), "single day is inclusive")
	assert.Equal(t, 0, schedule.BusinessDays(fri, mon), "inverted range counts zero")
	assert.Equal(t, 10, schedule.BusinessDays(mon, fri.AddDays(7)), "two work weeks spanning a weekend")
}

// =============================================================================
// ENTITLEMENT PRORATION TESTS
// =============================================================================

func TestProratedVacationDays(t *testing.T) {
	// GIVEN: 15 annual days, hired July 1 of a leap year
	// THEN: 184 of 366 days remain, 15 * 184/366 = 7.54..., rounded up to 8

	hired := schedule.NewDay(2024, time.July, 1)
	assert.Equal(t, 8, schedule.ProratedVacationDays(hired, 15))

	// Hired January 1: full entitlement
	jan1 := schedule.NewDay(2025, time.January, 1)
	assert.Equal(t, 15, schedule.ProratedVacationDays(jan1, 15))

	// Hired December 31: one day remaining still rounds up to 1
	dec31 := schedule.NewDay(2025, time.December, 31)
	assert.Equal(t, 1, schedule.ProratedVacationDays(dec31, 15))
}

func TestIsLeapYear(t *testing.T) {
	assert.True(t, schedule.IsLeapYear(2024))
	assert.True(t, schedule.IsLeapYear(2000))
	assert.False(t, schedule.IsLeapYear(2025))
	assert.False(t, schedule.IsLeapYear(1900), "century years need divisibility by 400")
}

// =============================================================================
// CLOCK TIME AND WORKING HOURS TESTS
// =============================================================================

func TestParseClock(t *testing.T) {
	c, err := schedule.ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, c.Hour)
	assert.Equal(t, 30, c.Minute)
	assert.Equal(t, "09:30", c.String())

	_, err = schedule.ParseClock("25:00")
	assert.Error(t, err, "hour out of range")
	_, err = schedule.ParseClock("09:61")
	assert.Error(t, err, "minute out of range")
}

func TestWorkingHours_ShortShift_FullSpan(t *testing.T) {
	// GIVEN: An early shift 09:00-15:00
	// THEN: All six clock hours are paid

	got := schedule.WorkingHours(schedule.MustClock("09:00"), schedule.MustClock("15:00"), schedule.ShiftEarly)
	assert.True(t, decimal.NewFromInt(6).Equal(got), "got %s", got)
}

func TestWorkingHours_LongShift_BreakDeducted(t *testing.T) {
	// GIVEN: A long shift 09:00-17:30
	// THEN: The 30-minute break is unpaid, so 8.5 clock hours pay 8

	got := schedule.WorkingHours(schedule.MustClock("09:00"), schedule.MustClock("17:30"), schedule.ShiftLongEarly)
	assert.True(t, decimal.NewFromInt(8).Equal(got), "got %s", got)

	late := schedule.WorkingHours(schedule.MustClock("10:30"), schedule.MustClock("19:00"), schedule.ShiftLongLate)
	assert.True(t, decimal.NewFromInt(8).Equal(late), "got %s", late)
}

func TestDurationHours_HalfHourPrecision(t *testing.T) {
	got := schedule.DurationHours(schedule.MustClock("13:00"), schedule.MustClock("19:30"))
	assert.True(t, decimal.RequireFromString("6.5").Equal(got), "got %s", got)
}
