package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workdash/internal/analytics"
)

const recordsCSV = `itemID,projectName,workDate,duration,rateApplied,payout,payType,status
A1,Alpha,"Mar 4, 2024",1h 30m,$20.00/hr,$30.00,prepay,pending
A2,Alpha,"Mar 4, 2024",30m,$30.00/hr,$15.00,overtimePay,processed
A3,Beta,"Mar 6, 2024",2h,$20.00/hr,$40.00,prepay,processed
A4,Beta,-,1h,$20.00/hr,$20.00,prepay,processed
`

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(recordsCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRange(t *testing.T) {
	out, err := run(t, "range", writeRecords(t))
	require.NoError(t, err)

	assert.Contains(t, out, "start:   2024-03-04")
	assert.Contains(t, out, "end:     2024-03-06")
	assert.Contains(t, out, "days:    3")
	assert.Contains(t, out, "rows:    4")
	assert.Contains(t, out, "undated: 1")
}

func TestSummarize_DailyTable(t *testing.T) {
	out, err := run(t, "summarize", writeRecords(t), "--view", "daily")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2+3, "header, separator and one row per day")
	assert.True(t, strings.HasPrefix(lines[0], "date"))
	assert.Contains(t, lines[2], "2024-03-04")
	assert.Contains(t, lines[2], "$45.00")
	assert.Contains(t, lines[3], "2024-03-05")
}

func TestSummarize_JSON(t *testing.T) {
	out, err := run(t, "summarize", writeRecords(t), "--view", "weekdays", "--format", "json")
	require.NoError(t, err)

	var days []analytics.WeekdayHours
	require.NoError(t, sonic.Unmarshal([]byte(out), &days))
	require.Len(t, days, 7)
	assert.Equal(t, "Monday", days[0].Day)
	assert.InDelta(t, 2.0, days[0].Hours, 1e-9)
	assert.Equal(t, "Sunday", days[6].Day)
}

func TestSummarize_CSVWindow(t *testing.T) {
	out, err := run(t, "summarize", writeRecords(t), "--view", "projects", "--format", "csv",
		"--start", "2024-03-06", "--end", "2024-03-06")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "project,payout,hours,tasks,effective_rate", lines[0])
	assert.Equal(t, "Beta,$40.00,2.00,1,$20.00", lines[1])
}

func TestSummarize_Report(t *testing.T) {
	out, err := run(t, "summarize", writeRecords(t), "--view", "report", "--format", "json")
	require.NoError(t, err)

	var rep analytics.Report
	require.NoError(t, sonic.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 1, rep.Undated)
}

func TestSummarize_Errors(t *testing.T) {
	path := writeRecords(t)

	_, err := run(t, "summarize", path, "--view", "nope")
	assert.ErrorContains(t, err, "unknown view")

	_, err = run(t, "summarize", path, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "summarize", path, "--start", "2024-03-06", "--end", "2024-03-01")
	assert.ErrorIs(t, err, analytics.ErrInvalidWindow)

	_, err = run(t, "summarize", path, "--preset", "forever")
	assert.Error(t, err)
}

func TestStrictFlag(t *testing.T) {
	_, err := run(t, "range", "--strict", writeRecords(t))
	assert.Error(t, err, "strict mode rejects the undated row")
}

func TestExport(t *testing.T) {
	path := writeRecords(t)

	out, err := run(t, "export", path, "-q", "beta")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2, "header plus the dated Beta row")

	out, err = run(t, "export", path, "--all")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5, "header plus every row including the undated one")

	target := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, "export", path, "--preset", "last7", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A3")
}

func TestExport_OutputFailures(t *testing.T) {
	path := writeRecords(t)

	missingDir := filepath.Join(t.TempDir(), "missing", "out.csv")
	_, err := run(t, "export", path, "-o", missingDir)
	assert.Error(t, err, "unwritable target must fail")

	if _, statErr := os.Stat("/dev/full"); statErr != nil {
		t.Skip("/dev/full not available")
	}
	_, err = run(t, "export", path, "--all", "-o", "/dev/full")
	assert.Error(t, err, "a full device must not report success")
}

func TestWriteTable_WideCharacters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"project", "hours"}, [][]string{
		{"日本語", "1.00"},
		{"abc", "2.00"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	// "日本語" is six cells wide, so both value columns start at the same cell.
	assert.Equal(t, "日本語   1.00", lines[2])
	assert.Equal(t, "abc      2.00", lines[3])
}
