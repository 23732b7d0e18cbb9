package google

import (
	"errors"
	"fmt"
	"strings"

	"workdash/internal/core"
)

// valuesToTable converts a values matrix (as returned by the Sheets API)
// into a raw table. The first non-empty row is the header; short rows are
// padded to the header width.
func valuesToTable(values [][]interface{}) (*core.RawTable, error) {
	start := 0
	for start < len(values) && isBlank(toStrings(values[start])) {
		start++
	}
	if start == len(values) {
		return nil, errors.New("sheet range is empty")
	}

	header := toStrings(values[start])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, len(values)-start-1)
	for _, v := range values[start+1:] {
		row := toStrings(v)
		if isBlank(row) {
			continue
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return &core.RawTable{Header: header, Rows: rows}, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
