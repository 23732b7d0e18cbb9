// Package ingest reads uploaded spreadsheets into raw tables.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"workdash/internal/core"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrEmptyFile         = errors.New("uploaded file is empty")
	ErrNoHeader          = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file type (expected .csv or .xlsx)")
	ErrUnreadable        = errors.New("file could not be read")
)

// DetectFormat picks the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Read parses data in the given format. Blank trailing lines are skipped
// and the first remaining row becomes the header.
func Read(data []byte, format Format) (*core.RawTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var rows [][]string
	var err error
	switch format {
	case FormatCSV:
		rows, err = readCSV(bytes.NewReader(data))
	case FormatXLSX:
		rows, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return toRawTable(rows)
}

// ReadFile detects the format from name and parses data.
func ReadFile(name string, data []byte) (*core.RawTable, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	return Read(data, format)
}

// ReadCSV parses CSV text from r.
func ReadCSV(r io.Reader) (*core.RawTable, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return toRawTable(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", ErrUnreadable, err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrUnreadable, err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no worksheet found", ErrUnreadable)
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: read worksheet %q: %w", ErrUnreadable, sheetName, err)
	}
	return rows, nil
}

// toRawTable trims header names and drops fully blank rows.
func toRawTable(rows [][]string) (*core.RawTable, error) {
	var kept [][]string
	for _, row := range rows {
		if !blank(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(kept[0]))
	for i, h := range kept[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return &core.RawTable{Header: header, Rows: kept[1:]}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
