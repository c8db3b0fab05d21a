package engine

import (
	"fmt"
	"math"
	"sort"
)

// ============================================================================
// AGGREGATORS — Counting, Grouping, and Series via View
// ============================================================================
// Every aggregate is one linear scan with an accumulator map, followed by
// an explicit sort wherever the output is ordered. Data-quality problems
// (bad timestamps, unknown categories) degrade by omission, never by error.
// ============================================================================

// DistinctCaseCount returns the number of unique case IDs in the view.
func DistinctCaseCount(view View) int {
	seen := make(map[string]struct{}, view.Len())
	for i := 0; i < view.Len(); i++ {
		seen[view.record(i).CaseID] = struct{}{}
	}
	return len(seen)
}

// ArrestCount returns the number of records with an arrest.
func ArrestCount(view View) int {
	n := 0
	for i := 0; i < view.Len(); i++ {
		if view.record(i).Arrested {
			n++
		}
	}
	return n
}

// ============================================================================
// CATEGORY BREAKDOWN
// ============================================================================

// CategoryBreakdown returns 100*rows/total per highlighted category, with
// every other category folded into OTHER.
//
// The numerator is the record count of the category; the denominator is
// DistinctCaseCount(view). OTHER is the remainder, so highlighted buckets
// plus OTHER sum to 100 whenever the view is not empty. Duplicate case IDs
// can push OTHER below zero. An empty view yields 0.0 for every bucket.
func CategoryBreakdown(view View, highlighted []string) map[string]float64 {
	buckets := normalizeHighlighted(highlighted)
	out := make(map[string]float64, len(buckets)+1)
	for _, c := range buckets {
		out[c] = 0
	}
	out[OtherCategory] = 0

	total := DistinctCaseCount(view)
	if total == 0 {
		return out
	}

	want := make(map[string]bool, len(buckets))
	for _, c := range buckets {
		want[c] = true
	}
	counts := make(map[string]int, len(buckets))
	for i := 0; i < view.Len(); i++ {
		if r := view.record(i); want[r.PrimaryType] {
			counts[r.PrimaryType]++
		}
	}

	other := total
	for _, c := range buckets {
		n := counts[c]
		other -= n
		out[c] = percentage(n, total)
	}
	out[OtherCategory] = percentage(other, total)
	return out
}

// normalizeHighlighted drops empties, duplicates and the OTHER label,
// keeping first-seen order.
func normalizeHighlighted(highlighted []string) []string {
	seen := make(map[string]bool, len(highlighted))
	out := make([]string, 0, len(highlighted))
	for _, c := range highlighted {
		if c == "" || c == OtherCategory || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// percentage is 100*part/total with a zero total defined as 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ============================================================================
// GROUPING
// ============================================================================

// GroupByCategory counts records per primary type. The counts sum to
// view.Len(). Map iteration order is unspecified; use SortedCategoryCounts
// for a deterministic sequence.
func GroupByCategory(view View) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < view.Len(); i++ {
		counts[view.record(i).PrimaryType]++
	}
	return counts
}

// SortedCategoryCounts returns GroupByCategory ordered by category name.
func SortedCategoryCounts(view View) []CategoryCount {
	counts := GroupByCategory(view)
	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// TopCategories returns at most n categories by descending count, ties
// broken by ascending category name.
func TopCategories(view View, n int) []CategoryCount {
	if n <= 0 {
		return []CategoryCount{}
	}
	out := SortedCategoryCounts(view)
	SortCategoryCounts(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SortCategoryCounts orders by count descending, then category ascending.
func SortCategoryCounts(counts []CategoryCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
}

// ============================================================================
// TIME SERIES
// ============================================================================

// MonthlySeries counts records per calendar month (1-12), ascending.
// Months with no records are omitted; unparsable timestamps are skipped.
func MonthlySeries(view View) []MonthCount {
	var counts [13]int
	for i := 0; i < view.Len(); i++ {
		if m, ok := view.record(i).OccurredAt.Month(); ok {
			counts[m]++
		}
	}
	out := []MonthCount{}
	for m := 1; m <= 12; m++ {
		if counts[m] > 0 {
			out = append(out, MonthCount{Month: m, Count: counts[m]})
		}
	}
	return out
}

// HourlyByCategory counts records per (hour, category), ordered by hour
// then category. Date-only timestamps count as hour 0; unparsable ones are
// skipped.
func HourlyByCategory(view View) []HourlyCount {
	type key struct {
		hour     int
		category string
	}
	counts := make(map[key]int)
	for i := 0; i < view.Len(); i++ {
		r := view.record(i)
		if h, ok := r.OccurredAt.Hour(); ok {
			counts[key{h, r.PrimaryType}]++
		}
	}
	out := make([]HourlyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, HourlyCount{Hour: k.hour, Category: k.category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// FormatPercent formats a percentage with two decimals.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
