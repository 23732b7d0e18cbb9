package analytics

import (
	"workdash/internal/core"
)

// DailyPoint is one calendar day of a gap-filled series.
type DailyPoint struct {
	Date            core.Date `json:"date"`
	DayOfWeek       string    `json:"day_of_week"`
	DurationSeconds int64     `json:"duration_seconds"`
	PayoutAmount    float64   `json:"payout_amount"`
	TaskCount       int       `json:"task_count"`
	Hours           float64   `json:"hours"`
	HourlyRate      float64   `json:"hourly_rate"`
	HoursAvg        float64   `json:"hours_avg"`
	EarningsAvg     float64   `json:"earnings_avg"`
	RateAvg         float64   `json:"rate_avg"`
}

type dayBucket struct {
	seconds int64
	payout  float64
	items   map[string]struct{}
}

// bucketByDay sums the records inside w per calendar date.
func bucketByDay(t *core.Table, w Window) map[core.Date]*dayBucket {
	buckets := make(map[core.Date]*dayBucket)
	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		b, ok := buckets[r.WorkDate]
		if !ok {
			b = &dayBucket{items: make(map[string]struct{})}
			buckets[r.WorkDate] = b
		}
		b.seconds += r.DurationSeconds
		b.payout += r.PayoutAmount
		b.items[r.ItemID] = struct{}{}
	}
	return buckets
}

// Daily returns one point per day of w, including days with no records,
// with trailing rolling averages over rolling days.
func Daily(t *core.Table, w Window, rolling int) []DailyPoint {
	buckets := bucketByDay(t, w)
	dates := w.Dates()
	out := make([]DailyPoint, len(dates))

	hoursSeries := make([]float64, len(dates))
	payoutSeries := make([]float64, len(dates))
	rateSeries := make([]float64, len(dates))

	for i, d := range dates {
		p := DailyPoint{Date: d, DayOfWeek: d.Weekday().String()}
		if b, ok := buckets[d]; ok {
			p.DurationSeconds = b.seconds
			p.PayoutAmount = b.payout
			p.TaskCount = len(b.items)
		}
		p.Hours = hours(p.DurationSeconds)
		if p.Hours > 0 {
			p.HourlyRate = p.PayoutAmount / p.Hours
		}
		hoursSeries[i] = p.Hours
		payoutSeries[i] = p.PayoutAmount
		rateSeries[i] = p.HourlyRate
		out[i] = p
	}

	hoursAvg := RollingMean(hoursSeries, rolling)
	payoutAvg := RollingMean(payoutSeries, rolling)
	rateAvg := RollingMean(rateSeries, rolling)
	for i := range out {
		out[i].HoursAvg = hoursAvg[i]
		out[i].EarningsAvg = payoutAvg[i]
		out[i].RateAvg = rateAvg[i]
	}
	return out
}

// DailyHours returns the gap-filled hours per day of w.
func DailyHours(t *core.Table, w Window) []float64 {
	buckets := bucketByDay(t, w)
	dates := w.Dates()
	out := make([]float64, len(dates))
	for i, d := range dates {
		if b, ok := buckets[d]; ok {
			out[i] = hours(b.seconds)
		}
	}
	return out
}

// DailyEarnings returns the gap-filled payout per day of w.
func DailyEarnings(t *core.Table, w Window) []float64 {
	buckets := bucketByDay(t, w)
	dates := w.Dates()
	out := make([]float64, len(dates))
	for i, d := range dates {
		if b, ok := buckets[d]; ok {
			out[i] = b.payout
		}
	}
	return out
}

// SplitPoint holds regular and overtime hours for one day.
type SplitPoint struct {
	Date          core.Date `json:"date"`
	RegularHours  float64   `json:"regular_hours"`
	OvertimeHours float64   `json:"overtime_hours"`
}

// OvertimeSplit returns regular versus overtime hours per day of w.
func OvertimeSplit(t *core.Table, w Window) []SplitPoint {
	regular := make(map[core.Date]int64)
	overtime := make(map[core.Date]int64)
	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		if r.IsOvertime {
			overtime[r.WorkDate] += r.DurationSeconds
		} else {
			regular[r.WorkDate] += r.DurationSeconds
		}
	}

	dates := w.Dates()
	out := make([]SplitPoint, len(dates))
	for i, d := range dates {
		out[i] = SplitPoint{
			Date:          d,
			RegularHours:  hours(regular[d]),
			OvertimeHours: hours(overtime[d]),
		}
	}
	return out
}

// PayTypeSeries is a date by pay type pivot of payouts. Values[i][j] is the
// payout of PayTypes[j] on Dates[i].
type PayTypeSeries struct {
	Dates    []core.Date `json:"dates"`
	PayTypes []string    `json:"pay_types"`
	Values   [][]float64 `json:"values"`
}

// DailyByPayType pivots payouts per day of w and pay type, filling gaps with zero.
func DailyByPayType(t *core.Table, w Window) PayTypeSeries {
	types := payTypes(t, w)
	col := make(map[string]int, len(types))
	for i, p := range types {
		col[p] = i
	}

	dates := w.Dates()
	row := make(map[core.Date]int, len(dates))
	values := make([][]float64, len(dates))
	for i, d := range dates {
		row[d] = i
		values[i] = make([]float64, len(types))
	}

	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		values[row[r.WorkDate]][col[r.PayType]] += r.PayoutAmount
	}
	return PayTypeSeries{Dates: dates, PayTypes: types, Values: values}
}
