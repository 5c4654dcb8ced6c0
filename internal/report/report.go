// Package report renders evaluation reports as text tables, CSV, JSON or
// YAML.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
)

// Writer renders a set of reports to w
type Writer interface {
	Write(w io.Writer, reports []evaluation.Report) error
}

// WriterFunc adapts a function to Writer
type WriterFunc func(w io.Writer, reports []evaluation.Report) error

// Write calls f
func (f WriterFunc) Write(w io.Writer, reports []evaluation.Report) error { return f(w, reports) }

// ForFormat returns the writer for format: table, csv, json or yaml
func ForFormat(format string) (Writer, error) {
	switch format {
	case "", "table":
		return WriterFunc(writeTable), nil
	case "csv":
		return WriterFunc(writeCSV), nil
	case "json":
		return WriterFunc(writeJSON), nil
	case "yaml":
		return WriterFunc(writeYAML), nil
	default:
		return nil, errors.Newf("unsupported output format %q", format).
			Component("report").
			Category(errors.CategoryValidation).
			Build()
	}
}

func writeTable(w io.Writer, reports []evaluation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i := range reports {
		r := &reports[i]
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%d frames\t%d batches\t%s\n", r.Source, r.Frames, r.Batches, r.Elapsed.Round(time.Millisecond))
		for k, class := range r.Classes {
			fmt.Fprintf(tw, "  %s\t%d\t%s%%\n", class, count(r, k), formatPercent(percent(r, k)))
		}
	}
	return fileError(tw.Flush())
}

// writeCSV writes one row per video and class
func writeCSV(w io.Writer, reports []evaluation.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "run_id", "class", "count", "percent", "frames", "batches"}); err != nil {
		return fileError(err)
	}
	for i := range reports {
		r := &reports[i]
		for k, class := range r.Classes {
			row := []string{
				r.Source,
				r.RunID,
				class,
				strconv.Itoa(count(r, k)),
				formatPercent(percent(r, k)),
				strconv.Itoa(r.Frames),
				strconv.Itoa(r.Batches),
			}
			if err := cw.Write(row); err != nil {
				return fileError(err)
			}
		}
	}
	cw.Flush()
	return fileError(cw.Error())
}

func writeJSON(w io.Writer, reports []evaluation.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return fileError(enc.Encode(reports))
}

func writeYAML(w io.Writer, reports []evaluation.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fileError(err)
	}
	return fileError(enc.Close())
}

func count(r *evaluation.Report, k int) int {
	if k < len(r.Counts) {
		return r.Counts[k]
	}
	return 0
}

func percent(r *evaluation.Report, k int) float64 {
	if k < len(r.Distribution.Percent) {
		return r.Distribution.Percent[k]
	}
	return 0
}

// formatPercent prints two decimals, dropping trailing zeros
func formatPercent(p float64) string {
	p = math.Round(p*100) / 100
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func fileError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(err).
		Component("report").
		Category(errors.CategoryFileIO).
		Build()
}
