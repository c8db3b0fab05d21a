package engine

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// TEXT BUILDER — Metric tiles and a one-line reply for a Report
// ============================================================================

// BuildText produces the metric tiles of a report: total distinct crimes,
// arrests, and one percentage per breakdown bucket.
func BuildText(report *Report) *TextData {
	if report == nil {
		return &TextData{Reply: "No data available to analyze.", Period: "No data"}
	}

	metrics := []Metric{
		{
			Key:   "total_crimes",
			Label: "Total number of Crimes",
			Value: FormatInt(report.TotalDistinctCrimes),
			Raw:   float64(report.TotalDistinctCrimes),
		},
		{
			Key:   "arrests",
			Label: "Total No. of Arrests",
			Value: FormatInt(report.ArrestCount),
			Raw:   float64(report.ArrestCount),
		},
	}

	for _, bucket := range report.Highlighted {
		pct := report.CategoryBreakdown[bucket]
		label := fmt.Sprintf("%s Percentage", bucket)
		if bucket == OtherCategory {
			label = "Other Crimes Percentage"
		}
		metrics = append(metrics, Metric{
			Key:   "pct_" + strings.ToLower(strings.ReplaceAll(bucket, " ", "_")),
			Label: label,
			Value: FormatPercent(pct),
			Raw:   pct,
		})
	}

	return &TextData{
		Reply:   buildReply(report),
		Period:  DerivePeriod(report),
		Metrics: metrics,
	}
}

func buildReply(report *Report) string {
	if report.RecordCount == 0 {
		return fmt.Sprintf("No records match %s.", report.Selection.Label())
	}
	reply := fmt.Sprintf("%s: %s crimes, %s arrests.",
		report.Selection.Label(),
		FormatInt(report.TotalDistinctCrimes),
		FormatInt(report.ArrestCount))
	if len(report.TopCategories) > 0 {
		top := report.TopCategories[0]
		reply += fmt.Sprintf(" Most frequent: %s (%s).", top.Category, FormatInt(top.Count))
	}
	return reply
}

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period from the selection year and
// the observed months.
func DerivePeriod(report *Report) string {
	if report == nil || report.RecordCount == 0 {
		return "No data"
	}
	if len(report.MonthlySeries) == 0 {
		if report.Selection.Year != nil {
			return fmt.Sprintf("%d", *report.Selection.Year)
		}
		return "All time"
	}

	first := monthName(report.MonthlySeries[0].Month)
	last := monthName(report.MonthlySeries[len(report.MonthlySeries)-1].Month)
	span := first
	if first != last {
		span = fmt.Sprintf("%s – %s", first, last)
	}
	if report.Selection.Year != nil {
		return fmt.Sprintf("%s %d", span, *report.Selection.Year)
	}
	return span
}

func monthName(m int) string {
	return time.Month(m).String()[:3]
}
