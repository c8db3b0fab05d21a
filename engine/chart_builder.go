package engine

import (
	"fmt"
	"sort"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfigs from a Report
// ============================================================================
// Renderers (bar, line, pie, map) live outside this module; these configs
// are the render-ready series they consume.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Chart identifiers accepted by BuildChart.
const (
	ChartMonthly      = "monthly"
	ChartHourly       = "hourly"
	ChartCategories   = "categories"
	ChartDistribution = "distribution"
)

// ChartKinds lists every chart BuildCharts produces, in order.
var ChartKinds = []string{ChartMonthly, ChartHourly, ChartCategories, ChartDistribution}

// BuildCharts produces every chart for a report. Charts with no data are
// omitted.
func BuildCharts(report *Report) []ChartConfig {
	charts := make([]ChartConfig, 0, len(ChartKinds))
	for _, kind := range ChartKinds {
		if c := BuildChart(report, kind); c != nil {
			charts = append(charts, *c)
		}
	}
	return charts
}

// BuildChart produces one chart by kind, or nil when the report has no
// data for it or the kind is unknown.
func BuildChart(report *Report, kind string) *ChartConfig {
	if report == nil {
		return nil
	}
	var config *ChartConfig
	switch kind {
	case ChartMonthly:
		config = buildMonthlyChart(report)
	case ChartHourly:
		config = buildHourlyChart(report)
	case ChartCategories:
		config = buildCategoryChart(report)
	case ChartDistribution:
		config = buildDistributionChart(report)
	}
	if config == nil {
		return nil
	}
	config.Colors = assignColors(len(config.Series))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildMonthlyChart(report *Report) *ChartConfig {
	if len(report.MonthlySeries) == 0 {
		return nil
	}
	points := make([]ChartPoint, 0, len(report.MonthlySeries))
	for _, m := range report.MonthlySeries {
		points = append(points, ChartPoint{
			Label: monthName(m.Month),
			Value: float64(m.Count),
		})
	}
	return &ChartConfig{
		ChartType:  "bar",
		Title:      fmt.Sprintf("%s Crimes by Month", report.Selection.Label()),
		XAxis:      "Month",
		YAxis:      "Number of Crimes",
		Series:     []ChartSeries{{Name: "Crimes", Data: points}},
		ShowLegend: false,
		ShowGrid:   true,
	}
}

// buildHourlyChart produces one series per category with a point for every
// observed hour, so stacked renderers line up.
func buildHourlyChart(report *Report) *ChartConfig {
	if len(report.HourlyByCategory) == 0 {
		return nil
	}

	hourSet := make(map[int]bool)
	byCategory := make(map[string]map[int]int)
	for _, h := range report.HourlyByCategory {
		hourSet[h.Hour] = true
		if byCategory[h.Category] == nil {
			byCategory[h.Category] = make(map[int]int)
		}
		byCategory[h.Category][h.Hour] += h.Count
	}

	hours := make([]int, 0, len(hourSet))
	for h := range hourSet {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	series := make([]ChartSeries, 0, len(categories))
	for i, c := range categories {
		points := make([]ChartPoint, 0, len(hours))
		for _, h := range hours {
			points = append(points, ChartPoint{
				Label: fmt.Sprintf("%02d", h),
				Value: float64(byCategory[c][h]),
			})
		}
		series = append(series, ChartSeries{
			Name:  c,
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	return &ChartConfig{
		ChartType:  "stacked_bar",
		Title:      "Hourly Crime Rate",
		XAxis:      "Time of Day (Hour)",
		YAxis:      "Crimes",
		Series:     series,
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func buildCategoryChart(report *Report) *ChartConfig {
	if len(report.CategoryGroupCounts) == 0 {
		return nil
	}
	return &ChartConfig{
		ChartType:  "bar",
		Title:      "Number of Crimes by Primary Type",
		XAxis:      "Primary Type",
		YAxis:      "Count",
		Series:     []ChartSeries{{Name: "Crimes", Data: countPoints(report.CategoryGroupCounts)}},
		ShowLegend: false,
		ShowGrid:   true,
	}
}

func buildDistributionChart(report *Report) *ChartConfig {
	if len(report.TopCategories) == 0 {
		return nil
	}
	title := "Crime Type Distribution"
	if report.Selection.Year != nil {
		title = fmt.Sprintf("Crime Type Distribution in %d", *report.Selection.Year)
	}
	return &ChartConfig{
		ChartType:  "pie",
		Title:      title,
		Series:     []ChartSeries{{Name: "Share", Data: countPoints(report.TopCategories)}},
		ShowLegend: true,
		ShowGrid:   false,
	}
}

func countPoints(counts []CategoryCount) []ChartPoint {
	points := make([]ChartPoint, 0, len(counts))
	for _, c := range counts {
		points = append(points, ChartPoint{
			Label: c.Category,
			Value: RoundTo2(float64(c.Count)),
		})
	}
	return points
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
