package core

import "fmt"

// DateRange returns the earliest and latest work dates in the table,
// ignoring rows with a null date.
func (t *Table) DateRange() (Date, Date, error) {
	if t.Len() == 0 {
		return Date{}, Date{}, ErrEmptyTable
	}
	var lo, hi Date
	found := false
	for _, r := range t.Records {
		if !r.HasDate {
			continue
		}
		if !found || r.WorkDate.Before(lo) {
			lo = r.WorkDate
		}
		if !found || r.WorkDate.After(hi) {
			hi = r.WorkDate
		}
		found = true
	}
	if !found {
		return Date{}, Date{}, fmt.Errorf("%w (%d rows)", ErrNoDates, t.Len())
	}
	return lo, hi, nil
}
