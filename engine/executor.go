package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// ============================================================================
// EXECUTOR — Selection → Report
// ============================================================================
// Entry point: Execute(snapshot, selection, opts...)
//
// Pipeline:
//   1. Apply the selection's predicates once → sub-view
//   2. Run every aggregate over that view
//   3. Extract geolocatable points
//   4. Return the assembled Report
//
// Each call is an independent, deterministic recomputation from the
// immutable snapshot. Safe to call concurrently.
// ============================================================================

// Execute filters the snapshot by the selection and assembles a Report.
// The only error is ErrInvalidPredicate; empty results are not errors.
func Execute(snap *Snapshot, sel Selection, opts ...Option) (*Report, error) {
	cfg := applyOptions(opts)

	view, err := Filter(snap, sel)
	if err != nil {
		return nil, err
	}

	cfg.Logger.LogAttrs(context.Background(), slog.LevelDebug, "crimescope: executing selection",
		slog.String("selection", sel.Key()),
		slog.Int("snapshot_records", snap.Len()),
		slog.Int("view_records", view.Len()),
	)

	return buildReport(view, sel, cfg), nil
}

// BuildReport computes every statistic over an already-filtered view.
func BuildReport(view View, sel Selection, opts ...Option) *Report {
	return buildReport(view, sel, applyOptions(opts))
}

func buildReport(view View, sel Selection, cfg *config) *Report {
	highlighted := normalizeHighlighted(cfg.Highlighted)

	return &Report{
		Selection:           sel,
		SnapshotGeneration:  view.Snapshot().Generation(),
		RecordCount:         view.Len(),
		TotalDistinctCrimes: DistinctCaseCount(view),
		ArrestCount:         ArrestCount(view),
		CategoryBreakdown:   CategoryBreakdown(view, highlighted),
		CategoryGroupCounts: SortedCategoryCounts(view),
		TopCategories:       TopCategories(view, cfg.TopN),
		MonthlySeries:       MonthlySeries(view),
		HourlyByCategory:    HourlyByCategory(view),
		GeolocatablePoints:  Geolocatable(view),
		Highlighted:         append(highlighted, OtherCategory),
		ComputedAt:          time.Now().UTC(),
	}
}

// ============================================================================
// SELECTION DOMAIN
// ============================================================================

// DiscoverSelections returns the sorted distinct primary types and blocks
// of the snapshot and its observed year range.
func DiscoverSelections(snap *Snapshot) SelectionDomain {
	types := make(map[string]bool)
	blocks := make(map[string]bool)
	dom := SelectionDomain{}

	view := snap.View()
	for i := 0; i < view.Len(); i++ {
		r := view.record(i)
		if r.PrimaryType != "" {
			types[r.PrimaryType] = true
		}
		if r.Block != "" {
			blocks[r.Block] = true
		}
		if y, ok := r.OccurredAt.Year(); ok {
			if !dom.HasYears || y < dom.MinYear {
				dom.MinYear = y
			}
			if !dom.HasYears || y > dom.MaxYear {
				dom.MaxYear = y
			}
			dom.HasYears = true
		}
	}

	dom.PrimaryTypes = sortedKeys(types)
	dom.Blocks = sortedKeys(blocks)
	return dom
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
