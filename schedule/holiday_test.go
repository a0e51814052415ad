package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/shift-engine/schedule"
)

func TestGermanHolidays_FixedDates(t *testing.T) {
	h := schedule.NewGermanHolidays()

	fixed := []schedule.Day{
		schedule.NewDay(2025, time.January, 1),
		schedule.NewDay(2025, time.May, 1),
		schedule.NewDay(2025, time.October, 3),
		schedule.NewDay(2025, time.October, 31),
		schedule.NewDay(2025, time.December, 24),
		schedule.NewDay(2025, time.December, 25),
		schedule.NewDay(2025, time.December, 26),
		schedule.NewDay(2025, time.December, 31),
	}
	for _, d := range fixed {
		assert.True(t, h.IsHoliday(d), "%s should be a holiday", d)
	}

	assert.False(t, h.IsHoliday(schedule.NewDay(2025, time.July, 15)))
}

func TestGermanHolidays_EasterMovableFeasts(t *testing.T) {
	// Easter Sunday 2024 fell on March 31, 2025 on April 20.

	h := schedule.NewGermanHolidays()

	// 2024: Good Friday Mar 29, Easter Monday Apr 1,
	// Ascension May 9, Whit Monday May 20.
	assert.True(t, h.IsHoliday(schedule.NewDay(2024, time.March, 29)))
	assert.True(t, h.IsHoliday(schedule.NewDay(2024, time.April, 1)))
	assert.True(t, h.IsHoliday(schedule.NewDay(2024, time.May, 9)))
	assert.True(t, h.IsHoliday(schedule.NewDay(2024, time.May, 20)))

	// 2025: Good Friday Apr 18, Easter Monday Apr 21.
	assert.True(t, h.IsHoliday(schedule.NewDay(2025, time.April, 18)))
	assert.True(t, h.IsHoliday(schedule.NewDay(2025, time.April, 21)))

	// Easter Sunday itself is a Sunday; the calendar tracks the feasts
	// around it, not the Sunday.
	name, ok := h.HolidayName(schedule.NewDay(2025, time.April, 18))
	assert.True(t, ok)
	assert.Equal(t, "Karfreitag", name)
}

func TestHolidaysInRange(t *testing.T) {
	h := schedule.NewGermanHolidays()

	got := h.HolidaysInRange(schedule.NewDay(2025, time.December, 20), schedule.NewDay(2025, time.December, 31))
	assert.Len(t, got, 4, "Dec 24, 25, 26, and 31")
}
