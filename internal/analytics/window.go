// Package analytics turns a normalized work-record table into the summaries
// behind each dashboard view. Every function is pure: tables are never
// modified and an empty input yields empty or zero output.
package analytics

import (
	"errors"
	"fmt"

	"workdash/internal/core"
)

// MaxWindowDays bounds a requested window; every date-grouped view
// allocates one row per day.
const MaxWindowDays = 20 * 366

var (
	// ErrInvalidWindow is returned when a window ends before it starts.
	ErrInvalidWindow = errors.New("window end is before start")
	// ErrWindowTooLong is returned for windows wider than MaxWindowDays.
	ErrWindowTooLong = errors.New("window is too long")
)

// Window is an inclusive range of calendar days.
type Window struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// NewWindow validates and builds a window.
func NewWindow(start, end core.Date) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, start, end)
	}
	if days := start.DaysUntil(end) + 1; days > MaxWindowDays {
		return Window{}, fmt.Errorf("%w: %d days, limit %d", ErrWindowTooLong, days, MaxWindowDays)
	}
	return Window{Start: start, End: end}, nil
}

// Days returns the number of calendar days in the window.
func (w Window) Days() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return w.Start.DaysUntil(w.End) + 1
}

// Dates lists every day of the window in order.
func (w Window) Dates() []core.Date {
	n := w.Days()
	out := make([]core.Date, n)
	for i := 0; i < n; i++ {
		out[i] = w.Start.AddDays(i)
	}
	return out
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Includes reports whether the record is dated and inside the window.
// Records with a null date never match a window.
func (w Window) Includes(r core.Record) bool {
	return r.HasDate && w.Contains(r.WorkDate)
}

// Filter returns the records inside the window.
func (w Window) Filter(t *core.Table) *core.Table {
	return t.Where(w.Includes)
}

// Previous returns the window of equal length that ends the day before w
// starts. When that would begin before minDate it is shifted to start at
// minDate instead, keeping its length.
func (w Window) Previous(minDate core.Date) Window {
	length := w.Days()
	end := w.Start.AddDays(-1)
	start := end.AddDays(-(length - 1))
	if start.Before(minDate) {
		start = minDate
		end = minDate.AddDays(length - 1)
	}
	return Window{Start: start, End: end}
}

func (w Window) String() string {
	return w.Start.String() + ".." + w.End.String()
}

// Preset names a quick date selection.
type Preset string

const (
	PresetLast7Days  Preset = "last7"
	PresetLast30Days Preset = "last30"
	PresetThisMonth  Preset = "this-month"
	PresetLastMonth  Preset = "last-month"
	PresetAllTime    Preset = "all"
)

// PresetOption is a preset resolved against a table's date range.
type PresetOption struct {
	Preset Preset `json:"preset"`
	Label  string `json:"label"`
	Window Window `json:"window"`
}

var presetLabels = []struct {
	preset Preset
	label  string
}{
	{PresetLast7Days, "Last 7 Days"},
	{PresetLast30Days, "Last 30 Days"},
	{PresetThisMonth, "This Month"},
	{PresetLastMonth, "Last Month"},
	{PresetAllTime, "All Time"},
}

// Presets resolves every preset relative to the data's latest date.
func Presets(minDate, maxDate core.Date) []PresetOption {
	out := make([]PresetOption, 0, len(presetLabels))
	for _, p := range presetLabels {
		w, _ := ResolvePreset(p.preset, minDate, maxDate)
		out = append(out, PresetOption{Preset: p.preset, Label: p.label, Window: w})
	}
	return out
}

// ResolvePreset computes the window for one preset.
func ResolvePreset(p Preset, minDate, maxDate core.Date) (Window, error) {
	switch p {
	case PresetLast7Days:
		return Window{Start: maxDate.AddDays(-6), End: maxDate}, nil
	case PresetLast30Days:
		return Window{Start: maxDate.AddDays(-29), End: maxDate}, nil
	case PresetThisMonth:
		return Window{Start: maxDate.FirstOfMonth(), End: maxDate}, nil
	case PresetLastMonth:
		first := maxDate.FirstOfMonth()
		end := first.AddDays(-1)
		return Window{Start: end.FirstOfMonth(), End: end}, nil
	case PresetAllTime:
		return Window{Start: minDate, End: maxDate}, nil
	default:
		return Window{}, fmt.Errorf("unknown preset %q", p)
	}
}
