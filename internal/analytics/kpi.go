package analytics

import (
	"workdash/internal/core"
)

// Totals are the headline metrics of a set of records.
type Totals struct {
	Hours         float64 `json:"hours"`
	Earnings      float64 `json:"earnings"`
	AvgHourlyRate float64 `json:"avg_hourly_rate"`
	Tasks         int     `json:"tasks"`
	ActiveDays    int     `json:"active_days"`
	AvgDailyHours float64 `json:"avg_daily_hours"`
}

// Trends holds the percentage change of each metric against the previous period.
type Trends struct {
	Hours         float64 `json:"hours"`
	Earnings      float64 `json:"earnings"`
	AvgHourlyRate float64 `json:"avg_hourly_rate"`
	Tasks         float64 `json:"tasks"`
	AvgDailyHours float64 `json:"avg_daily_hours"`
}

// KPIReport compares a window with the period of equal length before it.
type KPIReport struct {
	Window         Window `json:"window"`
	PreviousWindow Window `json:"previous_window"`
	Current        Totals `json:"current"`
	Previous       Totals `json:"previous"`
	Trends         Trends `json:"trends"`
}

// ComputeTotals sums the records inside w. Tasks counts distinct item IDs
// and active days counts distinct dates.
func ComputeTotals(t *core.Table, w Window) Totals {
	var seconds int64
	var earnings float64
	items := make(map[string]struct{})
	days := make(map[core.Date]struct{})
	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		seconds += r.DurationSeconds
		earnings += r.PayoutAmount
		items[r.ItemID] = struct{}{}
		days[r.WorkDate] = struct{}{}
	}

	out := Totals{
		Hours:      hours(seconds),
		Earnings:   earnings,
		Tasks:      len(items),
		ActiveDays: len(days),
	}
	if out.Hours > 0 {
		out.AvgHourlyRate = out.Earnings / out.Hours
	}
	if out.ActiveDays > 0 {
		out.AvgDailyHours = out.Hours / float64(out.ActiveDays)
	}
	return out
}

// KPIs computes the totals of w and their trend against the previous period.
// The previous period is clamped to the table's earliest date.
func KPIs(t *core.Table, w Window) KPIReport {
	minDate := w.Start
	if lo, _, err := t.DateRange(); err == nil {
		minDate = lo
	}
	prevWindow := w.Previous(minDate)
	cur := ComputeTotals(t, w)
	prev := ComputeTotals(t, prevWindow)

	return KPIReport{
		Window:         w,
		PreviousWindow: prevWindow,
		Current:        cur,
		Previous:       prev,
		Trends: Trends{
			Hours:         CalculateTrend(cur.Hours, prev.Hours),
			Earnings:      CalculateTrend(cur.Earnings, prev.Earnings),
			AvgHourlyRate: CalculateTrend(cur.AvgHourlyRate, prev.AvgHourlyRate),
			Tasks:         CalculateTrend(float64(cur.Tasks), float64(prev.Tasks)),
			AvgDailyHours: CalculateTrend(cur.AvgDailyHours, prev.AvgDailyHours),
		},
	}
}
