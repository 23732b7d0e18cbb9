package analytics

import (
	"sort"

	"workdash/internal/core"
)

// Status values used by the pending/processed split.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// PayTypeSummary aggregates payouts of one pay type.
type PayTypeSummary struct {
	PayType string  `json:"pay_type"`
	Payout  float64 `json:"payout"`
	Entries int     `json:"entries"`
}

// StatusSummary aggregates payouts of one payment status.
type StatusSummary struct {
	Status     string  `json:"status"`
	Payout     float64 `json:"payout"`
	Hours      float64 `json:"hours"`
	Tasks      int     `json:"tasks"`
	Percentage float64 `json:"percentage"`
}

// PaymentSplit compares pending with processed payouts.
type PaymentSplit struct {
	Pending           float64 `json:"pending"`
	Processed         float64 `json:"processed"`
	PendingPercentage float64 `json:"pending_percentage"`
}

// ProjectSummary aggregates one project. EffectiveRate is nil when no time
// was logged against the project.
type ProjectSummary struct {
	Project         string   `json:"project"`
	Payout          float64  `json:"payout"`
	DurationSeconds int64    `json:"duration_seconds"`
	Hours           float64  `json:"hours"`
	Tasks           int      `json:"tasks"`
	EffectiveRate   *float64 `json:"effective_rate"`
}

// RateSummary aggregates the records billed at one hourly rate.
type RateSummary struct {
	HourlyRate      float64  `json:"hourly_rate"`
	Payout          float64  `json:"payout"`
	DurationSeconds int64    `json:"duration_seconds"`
	Hours           float64  `json:"hours"`
	EffectiveRate   *float64 `json:"effective_rate"`
}

// TimelinePoint is one completed task.
type TimelinePoint struct {
	Date    core.Date `json:"date"`
	ItemID  string    `json:"item_id"`
	Project string    `json:"project"`
	Payout  float64   `json:"payout"`
	PayType string    `json:"pay_type"`
}

// ByPayType sums payouts and counts entries per pay type, largest first.
func ByPayType(t *core.Table) []PayTypeSummary {
	idx := make(map[string]int)
	var out []PayTypeSummary
	for _, r := range t.Records {
		i, ok := idx[r.PayType]
		if !ok {
			i = len(out)
			idx[r.PayType] = i
			out = append(out, PayTypeSummary{PayType: r.PayType})
		}
		out[i].Payout += r.PayoutAmount
		out[i].Entries++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Payout != out[b].Payout {
			return out[a].Payout > out[b].Payout
		}
		return out[a].PayType < out[b].PayType
	})
	return out
}

// ByStatus aggregates per payment status with each status' share of the total payout.
func ByStatus(t *core.Table) []StatusSummary {
	type acc struct {
		payout  float64
		seconds int64
		items   map[string]struct{}
	}
	groups := make(map[string]*acc)
	var order []string
	var total float64
	for _, r := range t.Records {
		g, ok := groups[r.Status]
		if !ok {
			g = &acc{items: make(map[string]struct{})}
			groups[r.Status] = g
			order = append(order, r.Status)
		}
		g.payout += r.PayoutAmount
		g.seconds += r.DurationSeconds
		g.items[r.ItemID] = struct{}{}
		total += r.PayoutAmount
	}

	sort.Strings(order)
	out := make([]StatusSummary, 0, len(order))
	for _, s := range order {
		g := groups[s]
		sum := StatusSummary{Status: s, Payout: g.payout, Hours: hours(g.seconds), Tasks: len(g.items)}
		if total > 0 {
			sum.Percentage = g.payout / total * 100
		}
		out = append(out, sum)
	}
	return out
}

// SplitPayments totals pending and processed payouts.
func SplitPayments(t *core.Table) PaymentSplit {
	var split PaymentSplit
	for _, r := range t.Records {
		switch r.Status {
		case StatusPending:
			split.Pending += r.PayoutAmount
		case StatusProcessed:
			split.Processed += r.PayoutAmount
		}
	}
	if total := split.Pending + split.Processed; total > 0 {
		split.PendingPercentage = split.Pending / total * 100
	}
	return split
}

// ByProject aggregates per project, largest payout first.
func ByProject(t *core.Table) []ProjectSummary {
	idx := make(map[string]int)
	var out []ProjectSummary
	for _, r := range t.Records {
		i, ok := idx[r.ProjectName]
		if !ok {
			i = len(out)
			idx[r.ProjectName] = i
			out = append(out, ProjectSummary{Project: r.ProjectName})
		}
		out[i].Payout += r.PayoutAmount
		out[i].DurationSeconds += r.DurationSeconds
		out[i].Tasks++
	}
	for i := range out {
		out[i].Hours = hours(out[i].DurationSeconds)
		out[i].EffectiveRate = EffectiveRate(out[i].Payout, out[i].DurationSeconds)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Payout != out[b].Payout {
			return out[a].Payout > out[b].Payout
		}
		return out[a].Project < out[b].Project
	})
	return out
}

// ByHourlyRate aggregates records with a positive hourly rate per rate, ascending.
func ByHourlyRate(t *core.Table) []RateSummary {
	idx := make(map[float64]int)
	var out []RateSummary
	for _, r := range t.Records {
		if r.HourlyRate <= 0 {
			continue
		}
		i, ok := idx[r.HourlyRate]
		if !ok {
			i = len(out)
			idx[r.HourlyRate] = i
			out = append(out, RateSummary{HourlyRate: r.HourlyRate})
		}
		out[i].Payout += r.PayoutAmount
		out[i].DurationSeconds += r.DurationSeconds
	}
	for i := range out {
		out[i].Hours = hours(out[i].DurationSeconds)
		out[i].EffectiveRate = EffectiveRate(out[i].Payout, out[i].DurationSeconds)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].HourlyRate < out[b].HourlyRate })
	return out
}

// Timeline lists dated tasks in date order.
func Timeline(t *core.Table) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(t.Records))
	for _, r := range t.Records {
		if !r.HasDate {
			continue
		}
		out = append(out, TimelinePoint{
			Date:    r.WorkDate,
			ItemID:  r.ItemID,
			Project: r.ProjectName,
			Payout:  r.PayoutAmount,
			PayType: r.PayType,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

// payTypes lists the distinct pay types of records inside w, sorted.
func payTypes(t *core.Table, w Window) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Records {
		if !w.Includes(r) {
			continue
		}
		if _, ok := seen[r.PayType]; !ok {
			seen[r.PayType] = struct{}{}
			out = append(out, r.PayType)
		}
	}
	sort.Strings(out)
	return out
}
