package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"workdash/internal/analytics"
	"workdash/internal/core"
)

// viewResult is one computed view: a tabular form for table and CSV
// output and the structured value for JSON output.
type viewResult struct {
	Header []string
	Rows   [][]string
	Data   any
}

type viewFunc func(ctx context.Context, t *core.Table, w analytics.Window, rolling int) (viewResult, error)

var views = map[string]viewFunc{
	"daily":       dailyView,
	"kpis":        kpiView,
	"paytypes":    payTypeView,
	"statuses":    statusView,
	"projects":    projectView,
	"rates":       rateView,
	"overtime":    overtimeView,
	"weekdays":    weekdayView,
	"monthly":     monthlyView,
	"hours-stats": hoursStatsView,
	"timeline":    timelineView,
	"report":      reportView,
}

// ViewNames lists the views summarize accepts.
func ViewNames() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func money(v float64) string { return core.FormatMoney(v) }
func num(v float64) string   { return strconv.FormatFloat(v, 'f', 2, 64) }

func optionalRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return money(*v)
}

func dailyView(_ context.Context, t *core.Table, w analytics.Window, rolling int) (viewResult, error) {
	points := analytics.Daily(t, w, rolling)
	res := viewResult{
		Header: []string{"date", "day", "tasks", "hours", "earnings", "rate", "hours_avg", "earnings_avg"},
		Data:   points,
	}
	for _, p := range points {
		res.Rows = append(res.Rows, []string{
			p.Date.String(), p.DayOfWeek, strconv.Itoa(p.TaskCount), num(p.Hours),
			money(p.PayoutAmount), money(p.HourlyRate), num(p.HoursAvg), money(p.EarningsAvg),
		})
	}
	return res, nil
}

func kpiView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	k := analytics.KPIs(t, w)
	row := func(name string, cur, prev, trend float64, format func(float64) string) []string {
		return []string{name, format(cur), format(prev), core.FormatPercent(trend)}
	}
	count := func(v float64) string { return strconv.Itoa(int(v)) }
	return viewResult{
		Header: []string{"metric", "current", "previous", "trend"},
		Rows: [][]string{
			row("hours", k.Current.Hours, k.Previous.Hours, k.Trends.Hours, num),
			row("earnings", k.Current.Earnings, k.Previous.Earnings, k.Trends.Earnings, money),
			row("avg_hourly_rate", k.Current.AvgHourlyRate, k.Previous.AvgHourlyRate, k.Trends.AvgHourlyRate, money),
			row("tasks", float64(k.Current.Tasks), float64(k.Previous.Tasks), k.Trends.Tasks, count),
			row("avg_daily_hours", k.Current.AvgDailyHours, k.Previous.AvgDailyHours, k.Trends.AvgDailyHours, num),
		},
		Data: k,
	}, nil
}

func payTypeView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.ByPayType(w.Filter(t))
	res := viewResult{Header: []string{"pay_type", "payout", "entries"}, Data: items}
	for _, s := range items {
		res.Rows = append(res.Rows, []string{s.PayType, money(s.Payout), strconv.Itoa(s.Entries)})
	}
	return res, nil
}

func statusView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.ByStatus(w.Filter(t))
	res := viewResult{Header: []string{"status", "payout", "hours", "tasks", "share"}, Data: items}
	for _, s := range items {
		res.Rows = append(res.Rows, []string{
			s.Status, money(s.Payout), num(s.Hours), strconv.Itoa(s.Tasks),
			strconv.FormatFloat(s.Percentage, 'f', 1, 64) + "%",
		})
	}
	return res, nil
}

func projectView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.ByProject(w.Filter(t))
	res := viewResult{Header: []string{"project", "payout", "hours", "tasks", "effective_rate"}, Data: items}
	for _, p := range items {
		res.Rows = append(res.Rows, []string{
			p.Project, money(p.Payout), num(p.Hours), strconv.Itoa(p.Tasks), optionalRate(p.EffectiveRate),
		})
	}
	return res, nil
}

func rateView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.ByHourlyRate(w.Filter(t))
	res := viewResult{Header: []string{"hourly_rate", "payout", "hours", "effective_rate"}, Data: items}
	for _, r := range items {
		res.Rows = append(res.Rows, []string{
			money(r.HourlyRate), money(r.Payout), num(r.Hours), optionalRate(r.EffectiveRate),
		})
	}
	return res, nil
}

func overtimeView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	points := analytics.OvertimeSplit(t, w)
	res := viewResult{Header: []string{"date", "regular_hours", "overtime_hours"}, Data: points}
	for _, p := range points {
		res.Rows = append(res.Rows, []string{p.Date.String(), num(p.RegularHours), num(p.OvertimeHours)})
	}
	return res, nil
}

func weekdayView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.ByDayOfWeek(t, w)
	res := viewResult{Header: []string{"day", "hours"}, Data: items}
	for _, d := range items {
		res.Rows = append(res.Rows, []string{d.Day, num(d.Hours)})
	}
	return res, nil
}

func monthlyView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.Monthly(t, w)
	res := viewResult{Header: []string{"month", "hours", "earnings"}, Data: items}
	for _, m := range items {
		res.Rows = append(res.Rows, []string{m.Label, num(m.Hours), money(m.Earnings)})
	}
	return res, nil
}

func hoursStatsView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	s := analytics.ComputeHoursStats(t, w)
	return viewResult{
		Header: []string{"average", "max", "min_active", "median"},
		Rows:   [][]string{{num(s.Average), num(s.Max), num(s.MinActive), num(s.Median)}},
		Data:   s,
	}, nil
}

func timelineView(_ context.Context, t *core.Table, w analytics.Window, _ int) (viewResult, error) {
	items := analytics.Timeline(w.Filter(t))
	res := viewResult{Header: []string{"date", "item_id", "project", "payout", "pay_type"}, Data: items}
	for _, p := range items {
		res.Rows = append(res.Rows, []string{p.Date.String(), p.ItemID, p.Project, money(p.Payout), p.PayType})
	}
	return res, nil
}

// reportView has no tabular form; table and CSV output fall back to the KPIs.
func reportView(ctx context.Context, t *core.Table, w analytics.Window, rolling int) (viewResult, error) {
	rep, err := analytics.BuildReport(ctx, t, w, analytics.ReportOptions{RollingWindow: rolling})
	if err != nil {
		return viewResult{}, fmt.Errorf("build report: %w", err)
	}
	res, _ := kpiView(ctx, t, w, rolling)
	res.Data = rep
	return res, nil
}
