package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Row-per-record table of a View
// ============================================================================

// DefaultTableLimit is the number of rows shown for a selected block.
const DefaultTableLimit = 200

var recordColumns = []Column{
	{Key: "case_number", Label: "Case Number", Type: "text", Align: "left"},
	{Key: "date", Label: "Date", Type: "text", Align: "left"},
	{Key: "block", Label: "Block", Type: "text", Align: "left"},
	{Key: "primary_type", Label: "Primary Type", Type: "text", Align: "left"},
	{Key: "description", Label: "Description", Type: "text", Align: "left"},
	{Key: "arrest", Label: "Arrest", Type: "bool", Align: "center"},
	{Key: "latitude", Label: "Latitude", Type: "number", Align: "right"},
	{Key: "longitude", Label: "Longitude", Type: "number", Align: "right"},
}

// BuildRecordTable lists the first limit records of the view.
// limit <= 0 lists every record.
func BuildRecordTable(title string, view View, limit int) *TableData {
	n := view.Len()
	if limit > 0 && n > limit {
		n = limit
	}

	columns := make([]Column, len(recordColumns))
	copy(columns, recordColumns)

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		r := view.record(i)
		rows = append(rows, []string{
			r.CaseID,
			r.OccurredAt.Raw,
			r.Block,
			r.PrimaryType,
			r.Description,
			strconv.FormatBool(r.Arrested),
			formatCoordinate(r.Latitude),
			formatCoordinate(r.Longitude),
		})
	}

	label := fmt.Sprintf("Total (%s records)", FormatInt(view.Len()))
	if n < view.Len() {
		label = fmt.Sprintf("Showing %s of %s records", FormatInt(n), FormatInt(view.Len()))
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: label,
			Values: map[string]string{
				"case_number": FormatInt(DistinctCaseCount(view)),
				"arrest":      FormatInt(ArrestCount(view)),
			},
		},
	}
}

// BuildCategoryTable produces a Primary Type / Count / Share table from a
// report's grouped counts.
func BuildCategoryTable(report *Report) *TableData {
	columns := []Column{
		{Key: "group", Label: "Primary Type", Type: "text", Align: "left"},
		{Key: "count", Label: "Count", Type: "number", Align: "right"},
		{Key: "share", Label: "Share (%)", Type: "number", Align: "right"},
	}

	counts := append([]CategoryCount(nil), report.CategoryGroupCounts...)
	SortCategoryCounts(counts)

	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			c.Category,
			FormatInt(c.Count),
			FormatPercent(percentage(c.Count, report.RecordCount)),
		})
	}

	return &TableData{
		Title:   "Crimes by Primary Type",
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"count": FormatInt(report.RecordCount),
			},
		},
	}
}

func formatCoordinate(f NullFloat) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', 6, 64)
}
