package engine

import (
	"encoding/json"
	"slices"
	"time"
)

// ============================================================================
// CRIMESCOPE ENGINE TYPES
// ============================================================================
// Record is a typed incident row. Grouping is done over named fields with
// explicit accumulator maps; nothing is looked up by column name at query
// time.
//
// Dependency: engine has ZERO external dependencies.
// ============================================================================

// OtherCategory is the catch-all bucket of CategoryBreakdown.
const OtherCategory = "OTHER"

// ============================================================================
// RECORD — one incident
// ============================================================================

// Record is a single incident.
type Record struct {
	CaseID      string    `json:"caseId"`
	PrimaryType string    `json:"primaryType"`
	Description string    `json:"description"`
	OccurredAt  Timestamp `json:"occurredAt"`
	Block       string    `json:"block"`
	Arrested    bool      `json:"arrested"`
	Latitude    NullFloat `json:"latitude"`
	Longitude   NullFloat `json:"longitude"`
}

// Geolocatable reports whether both coordinates are present.
func (r Record) Geolocatable() bool {
	return r.Latitude.Valid && r.Longitude.Valid
}

// NullFloat is an optional float64. It marshals to null when not Valid.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid NullFloat holding v.
func Float(v float64) NullFloat {
	return NullFloat{Value: v, Valid: true}
}

func (f NullFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ============================================================================
// REPORT — the assembled result handed to a presentation layer
// ============================================================================

// Report carries every statistic computed for one Selection.
// It has no behavior; builders turn it into charts, tables and text.
type Report struct {
	Selection           Selection          `json:"selection"`
	SnapshotGeneration  uint64             `json:"snapshotGeneration"`
	RecordCount         int                `json:"recordCount"`
	TotalDistinctCrimes int                `json:"totalDistinctCrimes"`
	ArrestCount         int                `json:"arrestCount"`
	CategoryBreakdown   map[string]float64 `json:"categoryBreakdown"`
	CategoryGroupCounts []CategoryCount    `json:"categoryGroupCounts"`
	TopCategories       []CategoryCount    `json:"topCategories"`
	MonthlySeries       []MonthCount       `json:"monthlySeries"`
	HourlyByCategory    []HourlyCount      `json:"hourlyByCategory"`
	GeolocatablePoints  []Point            `json:"geolocatablePoints"`

	// Highlighted lists the breakdown buckets in display order (OTHER last).
	Highlighted []string  `json:"highlighted"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Clone returns a deep copy of the report, so callers may modify it
// without affecting a shared or cached instance.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Selection = r.Selection.clone()
	if r.CategoryBreakdown != nil {
		out.CategoryBreakdown = make(map[string]float64, len(r.CategoryBreakdown))
		for k, v := range r.CategoryBreakdown {
			out.CategoryBreakdown[k] = v
		}
	}
	out.CategoryGroupCounts = slices.Clone(r.CategoryGroupCounts)
	out.TopCategories = slices.Clone(r.TopCategories)
	out.MonthlySeries = slices.Clone(r.MonthlySeries)
	out.HourlyByCategory = slices.Clone(r.HourlyByCategory)
	out.GeolocatablePoints = slices.Clone(r.GeolocatablePoints)
	out.Highlighted = slices.Clone(r.Highlighted)
	return &out
}

// CategoryCount is a (category, count) pair.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// MonthCount is a (month 1-12, count) pair.
type MonthCount struct {
	Month int `json:"month"`
	Count int `json:"count"`
}

// HourlyCount is a (hour 0-23, category, count) triple.
type HourlyCount struct {
	Hour     int    `json:"hour"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Point is a geolocatable incident for hotspot display.
type Point struct {
	Category    string  `json:"category"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}

// SelectionDomain lists the values a UI may offer for each selection field.
type SelectionDomain struct {
	PrimaryTypes []string `json:"primaryTypes"`
	Blocks       []string `json:"blocks"`
	MinYear      int      `json:"minYear,omitempty"`
	MaxYear      int      `json:"maxYear,omitempty"`
	HasYears     bool     `json:"hasYears"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "bool"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is the metric-tile view of a Report.
type TextData struct {
	Reply   string   `json:"reply"`
	Period  string   `json:"period"`
	Metrics []Metric `json:"metrics"`
}

// Metric is a label/value tile.
type Metric struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value string  `json:"value"`
	Raw   float64 `json:"raw"`
}
