package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"workdash/internal/core"
)

// Weekdays lists day names Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// weekdayIndex maps a time.Weekday to its Monday-first position.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// WeekdayHours is the total of one day of the week.
type WeekdayHours struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// ByDayOfWeek totals hours per weekday inside w. All seven days are
// returned Monday through Sunday, whatever order the records are in.
func ByDayOfWeek(t *core.Table, w Window) []WeekdayHours {
	var seconds [7]int64
	for _, r := range t.Records {
		if w.Includes(r) {
			seconds[weekdayIndex(r.WorkDate.Weekday())] += r.DurationSeconds
		}
	}
	out := make([]WeekdayHours, 7)
	for i, name := range Weekdays {
		out[i] = WeekdayHours{Day: name, Hours: hours(seconds[i])}
	}
	return out
}

// MonthTotal holds the hours and earnings of one calendar month.
type MonthTotal struct {
	Label    string  `json:"label"`
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Hours    float64 `json:"hours"`
	Earnings float64 `json:"earnings"`
}

// Monthly totals every calendar month touched by w, in chronological order.
// Labels read like "Jan 2024".
func Monthly(t *core.Table, w Window) []MonthTotal {
	if w.Days() == 0 {
		return nil
	}
	var out []MonthTotal
	idx := make(map[[2]int]int)
	for m := w.Start.FirstOfMonth(); !m.After(w.End); m = core.DateOf(m.AddDate(0, 1, 0)) {
		key := [2]int{m.Year(), int(m.Month())}
		idx[key] = len(out)
		out = append(out, MonthTotal{Label: m.Format("Jan 2006"), Year: key[0], Month: key[1]})
	}
	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		i := idx[[2]int{r.WorkDate.Year(), int(r.WorkDate.Month())}]
		out[i].Hours += r.Hours()
		out[i].Earnings += r.PayoutAmount
	}
	return out
}

// WeekKey identifies an ISO week.
type WeekKey struct {
	Year  int    `json:"year"`
	Week  int    `json:"week"`
	Label string `json:"label"`
}

// Heatmap is a weekday by ISO week matrix of hours. Hours[d][k] belongs to
// Weekdays[d] in Weeks[k]; days outside the window are zero.
type Heatmap struct {
	Weekdays []string    `json:"weekdays"`
	Weeks    []WeekKey   `json:"weeks"`
	Hours    [][]float64 `json:"hours"`
}

// BuildHeatmap lays the gap-filled daily hours of w on a weekday by week grid.
// Weeks are keyed by ISO year and week so windows spanning years do not
// fold into each other.
func BuildHeatmap(t *core.Table, w Window) Heatmap {
	dates := w.Dates()
	daily := DailyHours(t, w)

	var weeks []WeekKey
	col := make(map[[2]int]int)
	for _, d := range dates {
		y, wk := d.ISOWeek()
		if _, ok := col[[2]int{y, wk}]; !ok {
			col[[2]int{y, wk}] = len(weeks)
			weeks = append(weeks, WeekKey{Year: y, Week: wk, Label: fmt.Sprintf("%d-W%02d", y, wk)})
		}
	}

	grid := make([][]float64, 7)
	for i := range grid {
		grid[i] = make([]float64, len(weeks))
	}
	for i, d := range dates {
		y, wk := d.ISOWeek()
		grid[weekdayIndex(d.Weekday())][col[[2]int{y, wk}]] = daily[i]
	}
	return Heatmap{Weekdays: Weekdays, Weeks: weeks, Hours: grid}
}

// HoursStats summarises the gap-filled daily hours of a window.
type HoursStats struct {
	Average   float64 `json:"average"`
	Max       float64 `json:"max"`
	MinActive float64 `json:"min_active"`
	Median    float64 `json:"median"`
}

// ComputeHoursStats returns the mean, max and median over every day of w
// and the minimum over days with work. All values are zero for an empty window.
func ComputeHoursStats(t *core.Table, w Window) HoursStats {
	daily := DailyHours(t, w)
	if len(daily) == 0 {
		return HoursStats{}
	}
	var st HoursStats
	var sum float64
	st.MinActive = math.Inf(1)
	for _, h := range daily {
		sum += h
		if h > st.Max {
			st.Max = h
		}
		if h > 0 && h < st.MinActive {
			st.MinActive = h
		}
	}
	if math.IsInf(st.MinActive, 1) {
		st.MinActive = 0
	}
	st.Average = sum / float64(len(daily))
	st.Median = median(daily)
	return st
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Bin is one histogram bucket covering [Lower, Upper). The last bin also
// includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram splits values into equal-width bins between their min and max.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins < 1 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// Distribution is a histogram of daily values with their mean.
type Distribution struct {
	Bins  []Bin   `json:"bins"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Bin counts of the daily distributions.
const (
	HoursBins    = 10
	EarningsBins = 20
)

// HoursDistribution bins the hours of days with work inside w.
func HoursDistribution(t *core.Table, w Window) Distribution {
	return distribution(DailyHours(t, w), HoursBins)
}

// EarningsDistribution bins the payouts of days with earnings inside w.
func EarningsDistribution(t *core.Table, w Window) Distribution {
	return distribution(DailyEarnings(t, w), EarningsBins)
}

func distribution(daily []float64, bins int) Distribution {
	var active []float64
	var sum float64
	for _, v := range daily {
		if v > 0 {
			active = append(active, v)
			sum += v
		}
	}
	d := Distribution{Bins: Histogram(active, bins), Count: len(active)}
	if len(active) > 0 {
		d.Mean = sum / float64(len(active))
	}
	return d
}
