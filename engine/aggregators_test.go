package engine

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// AGGREGATOR TESTS
// ============================================================================

func TestBreakdownSumsToHundred(t *testing.T) {
	snap := mixedSnapshot()
	selections := []Selection{
		{},
		{Year: Int(2019)},
		{Block: String("001XX N STATE ST")},
		{PrimaryType: String("THEFT")},
	}
	for _, sel := range selections {
		view, err := Filter(snap, sel)
		require.NoError(t, err)
		require.Positive(t, DistinctCaseCount(view))

		b := CategoryBreakdown(view, []string{"THEFT", "BATTERY"})
		sum := b["THEFT"] + b["BATTERY"] + b[OtherCategory]
		assert.InDelta(t, 100.0, sum, 1e-9, sel.Label())
	}
}

func TestBreakdownCountsRowsOverDistinctCases(t *testing.T) {
	snap := NewSnapshot([]Record{
		rec("1", "THEFT", "2020-01-01", "A", false),
		rec("1", "THEFT", "2020-01-01", "A", false),
		rec("2", "BATTERY", "2020-01-02", "A", false),
		rec("3", "ASSAULT", "2020-01-03", "A", false),
		rec("4", "ASSAULT", "2020-01-04", "A", false),
	})
	view := snap.View()
	require.Equal(t, 4, DistinctCaseCount(view))
	require.Equal(t, 2, GroupByCategory(view)["THEFT"])

	b := CategoryBreakdown(view, []string{"THEFT", "BATTERY"})
	assert.Equal(t, 50.0, b["THEFT"])
	assert.Equal(t, 25.0, b["BATTERY"])
	assert.Equal(t, 25.0, b[OtherCategory])
	assert.InDelta(t, 100.0, b["THEFT"]+b["BATTERY"]+b[OtherCategory], 1e-9)
}

func TestBreakdownArbitraryHighlighted(t *testing.T) {
	view := mixedSnapshot().View()

	b := CategoryBreakdown(view, []string{"NARCOTICS", "", "NARCOTICS", OtherCategory})
	assert.Len(t, b, 2)
	assert.InDelta(t, 100.0/7, b["NARCOTICS"], 1e-9)
	assert.InDelta(t, 600.0/7, b[OtherCategory], 1e-9)

	none := CategoryBreakdown(view, nil)
	assert.Equal(t, map[string]float64{OtherCategory: 100.0}, none)

	unseen := CategoryBreakdown(view, []string{"ARSON"})
	assert.Equal(t, 0.0, unseen["ARSON"])
	assert.Equal(t, 100.0, unseen[OtherCategory])
}

func TestDistinctCaseCountIgnoresDuplicates(t *testing.T) {
	base := []Record{
		rec("1", "THEFT", "2020-01-01", "A", false),
		rec("2", "BATTERY", "2020-01-01", "A", true),
	}
	dup := append(append([]Record(nil), base...), base[0], base[0])

	assert.Equal(t, DistinctCaseCount(NewSnapshot(base).View()), DistinctCaseCount(NewSnapshot(dup).View()))
	assert.Equal(t, 4, NewSnapshot(dup).View().Len())
}

func TestEmptyViewInvariant(t *testing.T) {
	view, err := Filter(mixedSnapshot(), Selection{Block: String("nowhere")})
	require.NoError(t, err)
	require.Equal(t, 0, DistinctCaseCount(view))

	for _, pct := range CategoryBreakdown(view, DefaultHighlighted) {
		assert.Equal(t, 0.0, pct)
	}
	assert.Empty(t, TopCategories(view, 5))
	assert.Empty(t, MonthlySeries(view))
	assert.Empty(t, HourlyByCategory(view))
	assert.Empty(t, Geolocatable(view))
	assert.Equal(t, 0, ArrestCount(view))
}

func TestTopCategoriesOrderingAndBound(t *testing.T) {
	var records []Record
	counts := map[string]int{"THEFT": 5, "BATTERY": 3, "ASSAULT": 3, "ARSON": 1, "BURGLARY": 3}
	id := 0
	for typ, n := range counts {
		for i := 0; i < n; i++ {
			id++
			records = append(records, rec(fmt.Sprint(id), typ, "2020-01-01", "A", false))
		}
	}
	view := NewSnapshot(records).View()

	top := TopCategories(view, 4)
	assert.Equal(t, []CategoryCount{
		{"THEFT", 5}, {"ASSAULT", 3}, {"BATTERY", 3}, {"BURGLARY", 3},
	}, top)

	for n := 0; n <= 7; n++ {
		got := TopCategories(view, n)
		assert.LessOrEqual(t, len(got), n)
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
			if got[i].Count != got[j].Count {
				return got[i].Count > got[j].Count
			}
			return got[i].Category < got[j].Category
		}))
	}
	assert.Len(t, TopCategories(view, 10), 5)
	assert.Empty(t, TopCategories(view, -1))
}

func TestGroupByCategorySumLaw(t *testing.T) {
	snap := NewSnapshot(append(mixedSnapshot().View().Records(),
		rec("10", "THEFT", "2019-01-05", "001XX N STATE ST", false)))
	view := snap.View()

	sum := 0
	for _, n := range GroupByCategory(view) {
		sum += n
	}
	assert.Equal(t, view.Len(), sum)
	assert.NotEqual(t, view.Len(), DistinctCaseCount(view))

	sorted := SortedCategoryCounts(view)
	assert.True(t, sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category }))
}

func TestMonthlySeriesSkipsUnparsable(t *testing.T) {
	got := MonthlySeries(mixedSnapshot().View())
	assert.Equal(t, []MonthCount{
		{Month: 1, Count: 2},
		{Month: 3, Count: 1},
		{Month: 7, Count: 1},
		{Month: 12, Count: 1},
	}, got)
}

func TestHourlyByCategoryDateOnlyIsMidnight(t *testing.T) {
	got := HourlyByCategory(mixedSnapshot().View())
	assert.Equal(t, []HourlyCount{
		{Hour: 0, Category: "THEFT", Count: 1},
		{Hour: 2, Category: "NARCOTICS", Count: 1},
		{Hour: 11, Category: "BATTERY", Count: 1},
		{Hour: 20, Category: "THEFT", Count: 1},
		{Hour: 23, Category: "ROBBERY", Count: 1},
	}, got)
}

func TestGeolocatableRequiresBothCoordinates(t *testing.T) {
	points := Geolocatable(mixedSnapshot().View())
	require.Len(t, points, 3)
	assert.Equal(t, "THEFT", points[0].Category)
	assert.Equal(t, 41.88, points[0].Latitude)
	assert.Equal(t, "BATTERY", points[1].Category)
	assert.Equal(t, "THEFT", points[2].Category)

	minLat, minLon, maxLat, maxLon, ok := Bounds(points)
	require.True(t, ok)
	assert.Equal(t, 41.87, minLat)
	assert.Equal(t, -87.64, minLon)
	assert.Equal(t, 41.89, maxLat)
	assert.Equal(t, -87.62, maxLon)

	_, _, _, _, ok = Bounds(nil)
	assert.False(t, ok)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "-1,000", FormatInt(-1000))
	assert.Equal(t, "999", FormatInt(999))
	assert.Equal(t, "66.67", FormatPercent(200.0/3))
	assert.Equal(t, 33.33, RoundTo2(100.0/3))
}
