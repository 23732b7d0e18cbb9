package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"workdash/internal/core"
)

// TrendRollingWindow is the smoothing window of the overview hours and
// earnings charts.
const TrendRollingWindow = 3

// ReportOptions tunes BuildReport.
type ReportOptions struct {
	RollingWindow int
}

// Report bundles every view of the dashboard for one window.
type Report struct {
	Window       Window           `json:"window"`
	Rows         int              `json:"rows"`
	Undated      int              `json:"undated_rows"`
	KPIs         KPIReport        `json:"kpis"`
	Daily        []DailyPoint     `json:"daily"`
	Trend        []DailyPoint     `json:"trend"`
	PayTypes     []PayTypeSummary `json:"pay_types"`
	Statuses     []StatusSummary  `json:"statuses"`
	Payments     PaymentSplit     `json:"payments"`
	Projects     []ProjectSummary `json:"projects"`
	Rates        []RateSummary    `json:"rates"`
	Overtime     []SplitPoint     `json:"overtime"`
	PayTypeDays  PayTypeSeries    `json:"pay_type_daily"`
	Weekdays     []WeekdayHours   `json:"weekdays"`
	Monthly      []MonthTotal     `json:"monthly"`
	Heatmap      Heatmap          `json:"heatmap"`
	HoursStats   HoursStats       `json:"hours_stats"`
	HoursDist    Distribution     `json:"hours_distribution"`
	EarningsDist Distribution     `json:"earnings_distribution"`
	Timeline     []TimelinePoint  `json:"timeline"`
}

// BuildReport computes every view of w over the full table. Views are
// independent reads of the same immutable table and run concurrently.
func BuildReport(ctx context.Context, full *core.Table, w Window, opts ReportOptions) (*Report, error) {
	rolling := opts.RollingWindow
	if rolling < 1 {
		rolling = DefaultRollingWindow
	}
	filtered := w.Filter(full)
	rep := &Report{Window: w, Rows: filtered.Len(), Undated: full.Undated()}

	g, ctx := errgroup.WithContext(ctx)
	run := func(f func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f()
			return nil
		})
	}

	run(func() { rep.KPIs = KPIs(full, w) })
	run(func() { rep.Daily = Daily(filtered, w, rolling) })
	run(func() { rep.Trend = Daily(filtered, w, TrendRollingWindow) })
	run(func() { rep.PayTypes = ByPayType(filtered) })
	run(func() { rep.Statuses = ByStatus(filtered) })
	run(func() { rep.Payments = SplitPayments(filtered) })
	run(func() { rep.Projects = ByProject(filtered) })
	run(func() { rep.Rates = ByHourlyRate(filtered) })
	run(func() { rep.Overtime = OvertimeSplit(filtered, w) })
	run(func() { rep.PayTypeDays = DailyByPayType(filtered, w) })
	run(func() { rep.Weekdays = ByDayOfWeek(filtered, w) })
	run(func() { rep.Monthly = Monthly(filtered, w) })
	run(func() { rep.Heatmap = BuildHeatmap(filtered, w) })
	run(func() { rep.HoursStats = ComputeHoursStats(filtered, w) })
	run(func() { rep.HoursDist = HoursDistribution(filtered, w) })
	run(func() { rep.EarningsDist = EarningsDistribution(filtered, w) })
	run(func() { rep.Timeline = Timeline(filtered) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}
