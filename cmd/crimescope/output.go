package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/schema"
)

// ============================================================================
// OUTPUT TYPES
// ============================================================================

type reportOutput struct {
	Selection string           `json:"selection"`
	Report    *engine.Report   `json:"report"`
	Text      *engine.TextData `json:"text"`
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

func writeReportText(w io.Writer, text *engine.TextData) error {
	lines := []string{text.Reply, "Period: " + text.Period, ""}
	for _, m := range text.Metrics {
		lines = append(lines, fmt.Sprintf("%-28s %s", m.Label+":", m.Value))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func writeSelectionsText(w io.Writer, dom engine.SelectionDomain) error {
	years := "none"
	if dom.HasYears {
		years = fmt.Sprintf("%d – %d", dom.MinYear, dom.MaxYear)
	}
	_, err := fmt.Fprintf(w, "Years: %s\nPrimary types (%d): %s\nBlocks: %d\n",
		years, len(dom.PrimaryTypes), strings.Join(dom.PrimaryTypes, ", "), len(dom.Blocks))
	return err
}

func writeTableText(w io.Writer, table *engine.TableData) error {
	fmt.Fprintln(w, table.Title)
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	fmt.Fprintln(w, strings.Join(headers, " | "))
	for _, row := range table.Rows {
		fmt.Fprintln(w, strings.Join(row, " | "))
	}
	if table.Summary != nil {
		_, err := fmt.Fprintln(w, table.Summary.Label)
		return err
	}
	return nil
}

func writeChartsText(w io.Writer, charts []engine.ChartConfig) error {
	if len(charts) == 0 {
		_, err := fmt.Fprintln(w, "No chart data.")
		return err
	}
	for _, c := range charts {
		fmt.Fprintf(w, "%s (%s)\n", c.Title, c.ChartType)
		for _, s := range c.Series {
			parts := make([]string, 0, len(s.Data))
			for _, d := range s.Data {
				parts = append(parts, fmt.Sprintf("%s=%s", d.Label, fmtNum(d.Value)))
			}
			fmt.Fprintf(w, "  %s: %s\n", s.Name, strings.Join(parts, " "))
		}
	}
	return nil
}

func writeProfileText(w io.Writer, p *schema.Profile) error {
	fmt.Fprintf(w, "Sampled %d rows, %d complete\n", p.SampledRows, p.CompleteRows)
	for _, f := range p.Fields {
		header := f.Header
		if header == "" {
			header = "(missing)"
		}
		fmt.Fprintf(w, "  %-13s %-22s nulls=%d invalid=%d unique=%d\n",
			f.Field, header, f.NullCount, f.InvalidCount, f.UniqueCount)
	}
	if len(p.Unmapped) > 0 {
		fmt.Fprintf(w, "Unmapped: %s\n", strings.Join(p.Unmapped, ", "))
	}
	return nil
}

// ============================================================================
// CSV OUTPUT — Sheets-ready tables
// ============================================================================

func writeTableCSV(w io.Writer, table *engine.TableData) error {
	cw := csv.NewWriter(w)
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	cw.Write(headers)
	for _, row := range table.Rows {
		cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}

// writeReportCSV writes the metric tiles followed by the category table.
func writeReportCSV(w io.Writer, report *engine.Report) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"Metric", "Value"})
	for _, m := range engine.BuildText(report).Metrics {
		cw.Write([]string{m.Label, m.Value})
	}
	cw.Write(nil)
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return writeTableCSV(w, engine.BuildCategoryTable(report))
}

func writeSelectionsCSV(w io.Writer, dom engine.SelectionDomain) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"Field", "Value"})
	for _, t := range dom.PrimaryTypes {
		cw.Write([]string{"primary_type", t})
	}
	if dom.HasYears {
		for y := dom.MinYear; y <= dom.MaxYear; y++ {
			cw.Write([]string{"year", fmt.Sprintf("%d", y)})
		}
	}
	for _, b := range dom.Blocks {
		cw.Write([]string{"block", b})
	}
	cw.Flush()
	return cw.Error()
}

// writeChartsCSV writes one CSV block per chart, separated by a blank line.
func writeChartsCSV(w io.Writer, charts []engine.ChartConfig) error {
	cw := csv.NewWriter(w)
	for i, c := range charts {
		if i > 0 {
			cw.Write(nil)
		}
		writeChartCSV(cw, c)
	}
	cw.Flush()
	return cw.Error()
}

func writeChartCSV(cw *csv.Writer, chart engine.ChartConfig) {
	if len(chart.Series) == 0 {
		return
	}

	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, fmtNum(d.Value)})
		}
		return
	}

	// Multi-series → label + one column per series
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)

	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		cw.Write(row)
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
