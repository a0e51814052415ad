package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY - Calendar date (the engine schedules whole days, times are separate)
// =============================================================================

const dayLayout = "2006-01-02"

// Day is a calendar date with no time component, normalized to UTC midnight.
type Day struct {
	t time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD date string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Day{t: t}, nil
}

// Today returns the current date in UTC.
func Today() Day {
	now := time.Now().UTC()
	return NewDay(now.Year(), now.Month(), now.Day())
}

func (d Day) String() string          { return d.t.Format(dayLayout) }
func (d Day) Time() time.Time         { return d.t }
func (d Day) Year() int               { return d.t.Year() }
func (d Day) Weekday() time.Weekday   { return d.t.Weekday() }
func (d Day) IsZero() bool            { return d.t.IsZero() }
func (d Day) Before(other Day) bool   { return d.t.Before(other.t) }
func (d Day) After(other Day) bool    { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool    { return d.t.Equal(other.t) }
func (d Day) AddDays(n int) Day       { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Day) IsBusinessDay() bool { return !d.IsWeekend() }

// MarshalJSON encodes the day as "YYYY-MM-DD".
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// WEEK - Scheduling weeks run Monday through Friday
// =============================================================================

// WeekStart returns the Monday of the week containing d.
func WeekStart(d Day) Day {
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	return d.AddDays(-offset)
}

// WeekDays returns the five business days Monday through Friday starting
// at weekStart.
func WeekDays(weekStart Day) []Day {
	days := make([]Day, 5)
	for i := range days {
		days[i] = weekStart.AddDays(i)
	}
	return days
}

// BusinessDays counts the Monday-Friday dates in [start, end] inclusive.
// An inverted range counts zero.
func BusinessDays(start, end Day) int {
	count := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.IsBusinessDay() {
			count++
		}
	}
	return count
}

// =============================================================================
// ENTITLEMENT PRORATION
// =============================================================================

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 365 + 1
	}
	return 365
}

// ProratedVacationDays scales the annual leave entitlement by the fraction
// of the hire year remaining after the hire date, rounded up. The remaining
// span counts from the hire date through December 31 inclusive.
func ProratedVacationDays(hireDate Day, annualDays int) int {
	endOfYear := NewDay(hireDate.Year(), time.December, 31)
	remaining := int(endOfYear.Time().Sub(hireDate.Time()).Hours()/24) + 1
	total := DaysInYear(hireDate.Year())

	// ceil(remaining / total * annualDays) in integer arithmetic
	return (remaining*annualDays + total - 1) / total
}

// =============================================================================
// CLOCK TIME - Wall-clock time of day (HH:MM)
// =============================================================================

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (ClockTime, error) {
	var c ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q (use HH:MM): %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time %q: out of range", s)
	}
	return c, nil
}

// MustClock parses an HH:MM string and panics on failure. For constants
// and test fixtures only.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string          { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }
func (c ClockTime) Minutes() int            { return c.Hour*60 + c.Minute }
func (c ClockTime) Before(o ClockTime) bool { return c.Minutes() < o.Minutes() }

// MarshalJSON encodes the clock time as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DurationHours returns the span between two clock times in decimal hours.
func DurationHours(start, end ClockTime) decimal.Decimal {
	return decimal.NewFromInt(int64(end.Minutes() - start.Minutes())).Div(decimal.NewFromInt(60))
}

// longShiftBreak is the fixed unpaid break deducted from long shifts.
var longShiftBreak = decimal.RequireFromString("0.5")

// WorkingHours returns the paid hours for a shift window: the clock span,
// minus the 30-minute break on long shift types (8.5h on the clock pays 8h).
func WorkingHours(start, end ClockTime, typ ShiftType) decimal.Decimal {
	hours := DurationHours(start, end)
	if typ.IsLong() {
		hours = hours.Sub(longShiftBreak)
	}
	return hours
}
