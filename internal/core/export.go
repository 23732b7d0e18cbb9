package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ExportHeader returns the raw columns followed by the derived columns.
func (t *Table) ExportHeader() []string {
	return append(append([]string(nil), t.Columns...), DerivedColumns...)
}

// ExportValues returns the record's raw values followed by its derived values.
func (r Record) ExportValues() []string {
	out := make([]string, 0, len(r.Fields)+len(DerivedColumns))
	out = append(out, r.Fields...)

	var date, week string
	if r.HasDate {
		date = r.WorkDate.String()
		week = strconv.Itoa(r.Week)
	}
	return append(out,
		date,
		strconv.FormatInt(r.DurationSeconds, 10),
		strconv.FormatFloat(r.HourlyRate, 'f', -1, 64),
		strconv.FormatFloat(r.PayoutAmount, 'f', -1, 64),
		week,
		r.MonthName,
		r.DayOfWeek,
		date,
		strconv.FormatBool(r.IsOvertime),
	)
}

// WriteCSV writes the table with its derived columns.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ExportHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.Records {
		if err := cw.Write(r.ExportValues()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Search keeps records where any column, raw or derived, contains query
// as a case-insensitive literal substring. An empty query returns t.
func (t *Table) Search(query string) *Table {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return t
	}
	return t.Where(func(r Record) bool {
		for _, v := range r.ExportValues() {
			if strings.Contains(strings.ToLower(v), q) {
				return true
			}
		}
		return false
	})
}
