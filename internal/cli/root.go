package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"workdash/internal/analytics"
	"workdash/internal/core"
	"workdash/internal/ingest"
)

// Output formats of summarize.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// windowFlags selects the date window of a command.
type windowFlags struct {
	start  string
	end    string
	preset string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "Window start date (YYYY-MM-DD, default: first date)")
	cmd.Flags().StringVar(&f.end, "end", "", "Window end date (YYYY-MM-DD, default: last date)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Quick window: last7, last30, this-month, last-month, all")
}

// resolve turns the flags into a window inside the table's date range.
// Explicit dates take precedence over the preset.
func (f *windowFlags) resolve(t *core.Table) (analytics.Window, error) {
	lo, hi, err := t.DateRange()
	if err != nil {
		return analytics.Window{}, err
	}
	w := analytics.Window{Start: lo, End: hi}
	if f.preset != "" {
		if w, err = analytics.ResolvePreset(analytics.Preset(f.preset), lo, hi); err != nil {
			return analytics.Window{}, err
		}
	}
	if f.start != "" {
		if w.Start, err = core.ParseISODate(f.start); err != nil {
			return analytics.Window{}, fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if w.End, err = core.ParseISODate(f.end); err != nil {
			return analytics.Window{}, fmt.Errorf("--end: %w", err)
		}
	}
	return analytics.NewWindow(w.Start, w.End)
}

// NewRootCmd creates the top-level "workdash-cli" command.
func NewRootCmd() *cobra.Command {
	var strict bool

	root := &cobra.Command{
		Use:           "workdash-cli",
		Short:         "Summarize freelance work-record exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&strict, "strict", false, "Reject malformed durations, amounts and dates")

	policy := func() core.ParsePolicy {
		if strict {
			return core.Strict
		}
		return core.Lenient
	}

	root.AddCommand(
		newSummarizeCmd(policy),
		newExportCmd(policy),
		newRangeCmd(policy),
	)
	return root
}

// loadTable reads and normalizes a CSV or XLSX export.
func loadTable(path string, policy core.ParsePolicy) (*core.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := ingest.ReadFile(path, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return core.Normalize(raw, core.NormalizeOptions{Policy: policy})
}

func newSummarizeCmd(policy func() core.ParsePolicy) *cobra.Command {
	var wf windowFlags
	var view, format string
	var rolling int

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Print one dashboard view for a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := views[view]
			if !ok {
				return fmt.Errorf("unknown view %q (expected one of %s)", view, strings.Join(ViewNames(), ", "))
			}
			t, err := loadTable(args[0], policy())
			if err != nil {
				return err
			}
			w, err := wf.resolve(t)
			if err != nil {
				return err
			}
			res, err := fn(cmd.Context(), t, w, rolling)
			if err != nil {
				return err
			}
			return writeView(cmd.OutOrStdout(), res, format)
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVar(&view, "view", "kpis", "View to print: "+strings.Join(ViewNames(), ", "))
	cmd.Flags().StringVar(&format, "format", FormatTable, "Output format: table, json, csv")
	cmd.Flags().IntVar(&rolling, "rolling", analytics.DefaultRollingWindow, "Rolling average window in days")
	return cmd
}

func writeView(w io.Writer, res viewResult, format string) error {
	switch format {
	case FormatTable:
		return writeTable(w, res.Header, res.Rows)
	case FormatJSON:
		out, err := sonic.ConfigStd.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(res.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(res.Rows); err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q (expected table, json or csv)", format)
	}
}

func newExportCmd(policy func() core.ParsePolicy) *cobra.Command {
	var wf windowFlags
	var query, output string
	var all bool

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the normalized records of a window as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(args[0], policy())
			if err != nil {
				return err
			}
			if !all {
				w, err := wf.resolve(t)
				if err != nil {
					return err
				}
				t = w.Filter(t)
			}
			t = t.Search(query)

			if output != "" && output != "-" {
				return writeCSVFile(output, t)
			}
			return core.WriteCSV(cmd.OutOrStdout(), t)
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVarP(&query, "query", "q", "", "Keep rows containing this text (case-insensitive)")
	cmd.Flags().BoolVar(&all, "all", false, "Ignore the window and include undated rows")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file")
	return cmd
}

// writeCSVFile writes t to path. A failed close is reported like a failed
// write since buffered data may not have reached the disk.
func writeCSVFile(path string, t *core.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return core.WriteCSV(f, t)
}

func newRangeCmd(policy func() core.ParsePolicy) *cobra.Command {
	return &cobra.Command{
		Use:   "range FILE",
		Short: "Print the date range and row counts of an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(args[0], policy())
			if err != nil {
				return err
			}
			lo, hi, err := t.DateRange()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "start:   %s\n", lo)
			fmt.Fprintf(out, "end:     %s\n", hi)
			fmt.Fprintf(out, "days:    %d\n", lo.DaysUntil(hi)+1)
			fmt.Fprintf(out, "rows:    %d\n", t.Len())
			fmt.Fprintf(out, "undated: %d\n", t.Undated())
			return nil
		},
	}
}
