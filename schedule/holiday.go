// holiday.go - Public holiday calendar for schedule generation.
//
// Week generation skips holidays so no shifts appear on days the
// business is closed. The default calendar covers the Hamburg statutory
// holidays plus the Dec 24 / Dec 31 company closure days.
package schedule

import "time"

// HolidayOracle answers whether a day is a holiday.
type HolidayOracle interface {
	IsHoliday(d Day) bool
	// HolidayName returns the holiday's name and true, or "" and false.
	HolidayName(d Day) (string, bool)
}

// NoHolidays treats every day as a working day.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Day) bool             { return false }
func (NoHolidays) HolidayName(Day) (string, bool) { return "", false }

// GermanHolidays computes the Hamburg holiday calendar. Years are
// computed on demand and cached.
type GermanHolidays struct {
	cache map[int]map[Day]string
}

func NewGermanHolidays() *GermanHolidays {
	return &GermanHolidays{cache: make(map[int]map[Day]string)}
}

func (g *GermanHolidays) IsHoliday(d Day) bool {
	_, ok := g.HolidayName(d)
	return ok
}

func (g *GermanHolidays) HolidayName(d Day) (string, bool) {
	name, ok := g.year(d.Year())[d]
	return name, ok
}

// HolidaysInRange returns every holiday day in [from, to] in order.
func (g *GermanHolidays) HolidaysInRange(from, to Day) []Day {
	var out []Day
	for d := from; !d.After(to); d = d.AddDays(1) {
		if g.IsHoliday(d) {
			out = append(out, d)
		}
	}
	return out
}

func (g *GermanHolidays) year(y int) map[Day]string {
	if m, ok := g.cache[y]; ok {
		return m
	}
	easter := easterSunday(y)
	m := map[Day]string{
		NewDay(y, time.January, 1):    "Neujahr",
		NewDay(y, time.May, 1):        "Tag der Arbeit",
		NewDay(y, time.October, 3):    "Tag der Deutschen Einheit",
		NewDay(y, time.October, 31):   "Reformationstag",
		NewDay(y, time.December, 24):  "Betriebsurlaub",
		NewDay(y, time.December, 25):  "1. Weihnachtstag",
		NewDay(y, time.December, 26):  "2. Weihnachtstag",
		NewDay(y, time.December, 31):  "Betriebsurlaub",
		easter.AddDays(-2):            "Karfreitag",
		easter.AddDays(1):             "Ostermontag",
		easter.AddDays(39):            "Christi Himmelfahrt",
		easter.AddDays(50):            "Pfingstmontag",
	}
	g.cache[y] = m
	return m
}

// easterSunday computes Easter Sunday via the Gauss algorithm.
func easterSunday(year int) Day {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return NewDay(year, time.Month(month), day)
}
