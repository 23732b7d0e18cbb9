package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Required column names of a work-record export. Names are case-sensitive.
const (
	ColItemID      = "itemID"
	ColProjectName = "projectName"
	ColWorkDate    = "workDate"
	ColDuration    = "duration"
	ColRateApplied = "rateApplied"
	ColPayout      = "payout"
	ColPayType     = "payType"
	ColStatus      = "status"
)

// Derived column names written by the CSV export.
const (
	ColWorkDateDT      = "workDate_dt"
	ColDurationSeconds = "duration_seconds"
	ColHourlyRate      = "hourly_rate"
	ColPayoutAmount    = "payout_amount"
	ColWeek            = "week"
	ColMonth           = "month"
	ColDayOfWeek       = "day_of_week"
	ColDate            = "date"
	ColIsOvertime      = "is_overtime"
)

// OvertimePayType is the payType value that marks a record as overtime.
const OvertimePayType = "overtimePay"

// ISODateLayout is used for query parameters, exports and storage.
const ISODateLayout = "2006-01-02"

var (
	RequiredColumns = []string{
		ColItemID, ColProjectName, ColWorkDate, ColDuration,
		ColRateApplied, ColPayout, ColPayType, ColStatus,
	}

	DerivedColumns = []string{
		ColWorkDateDT, ColDurationSeconds, ColHourlyRate, ColPayoutAmount,
		ColWeek, ColMonth, ColDayOfWeek, ColDate, ColIsOvertime,
	}
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrMalformedField = errors.New("malformed field")
	ErrEmptyTable     = errors.New("table has no rows")
	ErrNoDates        = errors.New("table has no parseable work dates")
	ErrInvalidDate    = errors.New("invalid date")
)

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	// RawTable is an uploaded table as strings, header first.
	RawTable struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}

	// Record is one normalized work record. Fields holds every raw value
	// aligned with Table.Columns, so unknown columns survive untouched.
	Record struct {
		ItemID      string
		ProjectName string
		WorkDateRaw string
		Duration    string
		RateApplied string
		Payout      string
		PayType     string
		Status      string
		Fields      []string

		WorkDate        Date
		HasDate         bool
		DurationSeconds int64
		HourlyRate      float64
		PayoutAmount    float64
		IsOvertime      bool
		Week            int
		MonthName       string
		DayOfWeek       string
	}

	// Table is an immutable normalized table. Filters return new tables
	// that share records with the receiver.
	Table struct {
		Columns []string
		Records []Record
	}

	// SchemaError reports required columns absent from an upload.
	SchemaError struct {
		Step    string
		Missing []string
	}

	// FieldError reports a malformed value rejected under the strict policy.
	// Row is 1-based and excludes the header.
	FieldError struct {
		Row    int
		Column string
		Value  string
	}
)

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Step, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumns }

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d: column %s: malformed value %q", e.Row, e.Column, e.Value)
}

func (e *FieldError) Unwrap() error { return ErrMalformedField }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's wall-clock date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(ISODateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISODateLayout)
}

// AddDays returns the date n days later (or earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int((o.Unix() - d.Unix()) / 86400)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// Hours returns the record's duration in hours.
func (r Record) Hours() float64 {
	return float64(r.DurationSeconds) / 3600
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Undated counts records whose work date could not be parsed.
func (t *Table) Undated() int {
	n := 0
	for _, r := range t.Records {
		if !r.HasDate {
			n++
		}
	}
	return n
}

// Where returns a new table with the records matching keep.
func (t *Table) Where(keep func(Record) bool) *Table {
	out := &Table{Columns: t.Columns, Records: make([]Record, 0, len(t.Records))}
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Raw rebuilds the raw table the records were normalized from.
func (t *Table) Raw() *RawTable {
	raw := &RawTable{
		Header: append([]string(nil), t.Columns...),
		Rows:   make([][]string, len(t.Records)),
	}
	for i, r := range t.Records {
		raw.Rows[i] = append([]string(nil), r.Fields...)
	}
	return raw
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
