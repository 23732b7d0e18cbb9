package core

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// WorkDateLayout is the primary workDate format, e.g. "Jan 2, 2024".
const WorkDateLayout = "Jan 2, 2006"

// NormalizeOptions tunes Normalize.
type NormalizeOptions struct {
	Policy ParsePolicy
}

// Normalize derives typed fields from a raw table. It returns exactly one
// record per input row, never mutates raw, and fails without a partial
// result when a required column is missing or, under the strict policy,
// a field is malformed.
//
// Derived columns already present in raw (as written by WriteCSV) are
// dropped and recomputed, so normalizing an export yields the same records.
func Normalize(raw *RawTable, opts NormalizeOptions) (*Table, error) {
	if raw == nil {
		return nil, &SchemaError{Step: "normalize", Missing: RequiredColumns}
	}

	keep, columns := sourceColumns(raw.Header)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Step: "normalize", Missing: missing}
	}

	records := make([]Record, len(raw.Rows))
	for i, row := range raw.Rows {
		fields := make([]string, len(columns))
		for j, src := range keep {
			if src < len(row) {
				fields[j] = row[src]
			}
		}
		records[i] = Record{
			ItemID:      fields[index[ColItemID]],
			ProjectName: fields[index[ColProjectName]],
			WorkDateRaw: fields[index[ColWorkDate]],
			Duration:    fields[index[ColDuration]],
			RateApplied: fields[index[ColRateApplied]],
			Payout:      fields[index[ColPayout]],
			PayType:     fields[index[ColPayType]],
			Status:      fields[index[ColStatus]],
			Fields:      fields,
		}
	}

	if err := parseWorkDates(records, opts.Policy); err != nil {
		return nil, err
	}

	for i := range records {
		r := &records[i]
		var err error
		if r.DurationSeconds, err = ParseDurationWith(r.Duration, opts.Policy); err != nil {
			return nil, &FieldError{Row: i + 1, Column: ColDuration, Value: r.Duration}
		}
		if r.HourlyRate, err = ExtractAmountWith(r.RateApplied, opts.Policy); err != nil {
			return nil, &FieldError{Row: i + 1, Column: ColRateApplied, Value: r.RateApplied}
		}
		if r.PayoutAmount, err = ExtractAmountWith(r.Payout, opts.Policy); err != nil {
			return nil, &FieldError{Row: i + 1, Column: ColPayout, Value: r.Payout}
		}
		r.IsOvertime = r.PayType == OvertimePayType
	}

	return &Table{Columns: columns, Records: records}, nil
}

// sourceColumns returns the header positions to keep and their names,
// skipping derived columns.
func sourceColumns(header []string) ([]int, []string) {
	derived := make(map[string]bool, len(DerivedColumns))
	for _, c := range DerivedColumns {
		derived[c] = true
	}
	var keep []int
	var names []string
	for i, h := range header {
		name := strings.TrimPrefix(h, "\ufeff")
		if derived[name] {
			continue
		}
		keep = append(keep, i)
		names = append(names, name)
	}
	return keep, names
}

// parseWorkDates tries the primary layout on every row. When no row parses,
// the whole column is retried with a permissive parser. Rows that still
// fail keep a null date.
func parseWorkDates(records []Record, policy ParsePolicy) error {
	parsed := 0
	for i := range records {
		if t, err := time.Parse(WorkDateLayout, strings.TrimSpace(records[i].WorkDateRaw)); err == nil {
			setDate(&records[i], t)
			parsed++
		}
	}

	if parsed == 0 {
		for i := range records {
			s := strings.TrimSpace(records[i].WorkDateRaw)
			if s == "" || s == EmptyMarker {
				continue
			}
			if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
				setDate(&records[i], t)
			}
		}
	}

	if policy == Strict {
		for i, r := range records {
			if !r.HasDate {
				return &FieldError{Row: i + 1, Column: ColWorkDate, Value: r.WorkDateRaw}
			}
		}
	}
	return nil
}

func setDate(r *Record, t time.Time) {
	d := DateOf(t)
	_, week := d.ISOWeek()
	r.WorkDate = d
	r.HasDate = true
	r.Week = week
	r.MonthName = d.Month().String()
	r.DayOfWeek = d.Weekday().String()
}
