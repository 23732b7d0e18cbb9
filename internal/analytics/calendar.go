package analytics

import (
	"fmt"
	"time"

	"workdash/internal/core"
)

// CalendarDay is one cell of a month grid. Padding cells have Day 0.
type CalendarDay struct {
	Day      int       `json:"day"`
	Date     core.Date `json:"date"`
	Hours    float64   `json:"hours"`
	Earnings float64   `json:"earnings"`
}

// CalendarMonth is a Monday-first month grid with its monthly summary.
type CalendarMonth struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	Label         string          `json:"label"`
	Weeks         [][]CalendarDay `json:"weeks"`
	TotalHours    float64         `json:"total_hours"`
	TotalEarnings float64         `json:"total_earnings"`
	WorkingDays   int             `json:"working_days"`
}

// MonthOption is an entry of the calendar month selector.
type MonthOption struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Calendar builds the grid for one month over the whole table.
func Calendar(t *core.Table, year, month int) CalendarMonth {
	first := core.NewDate(year, month, 1)
	last := core.DateOf(first.AddDate(0, 1, -1))
	w := Window{Start: first, End: last}
	buckets := bucketByDay(t, w)

	cal := CalendarMonth{Year: year, Month: month, Label: first.Format("January 2006")}
	week := make([]CalendarDay, weekdayIndex(first.Weekday()))
	for _, d := range w.Dates() {
		cell := CalendarDay{Day: d.Day(), Date: d}
		if b, ok := buckets[d]; ok {
			cell.Hours = hours(b.seconds)
			cell.Earnings = b.payout
		}
		cal.TotalHours += cell.Hours
		cal.TotalEarnings += cell.Earnings
		if cell.Hours > 0 {
			cal.WorkingDays++
		}
		week = append(week, cell)
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = make([]CalendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, CalendarDay{})
		}
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal
}

// CalendarMonths lists every month from the one containing minDate up to
// the last month that ends within a month of now.
func CalendarMonths(minDate core.Date, now time.Time) []MonthOption {
	limit := oneMonthLater(core.DateOf(now))
	var out []MonthOption
	for m := minDate.FirstOfMonth(); ; m = core.DateOf(m.AddDate(0, 1, 0)) {
		end := core.DateOf(m.AddDate(0, 1, -1))
		if end.After(limit) {
			break
		}
		out = append(out, MonthOption{
			Year:  m.Year(),
			Month: int(m.Month()),
			Label: m.Format("January 2006"),
			Value: fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month())),
		})
	}
	return out
}

// oneMonthLater adds a month, clamping the day to the target month's length.
func oneMonthLater(d core.Date) core.Date {
	next := d.FirstOfMonth().AddDate(0, 1, 0)
	lastDay := next.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(next.Year(), int(next.Month()), day)
}
