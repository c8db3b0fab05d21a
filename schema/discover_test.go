package schema

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// DISCOVERY TESTS
// ============================================================================

const chicagoCSV = "\ufeffID,Case Number,Date,Block,IUCR,Primary Type,Description,Arrest,Latitude,Longitude\n" +
	"1,JA100,01/05/2020 08:30:00 PM,001XX N STATE ST,0820,THEFT,$500 AND UNDER,false,41.88,-87.62\n" +
	"2,JA101,01/06/2020 11:00:00 AM,001XX N STATE ST,0486,BATTERY,DOMESTIC BATTERY SIMPLE,true,,\n" +
	"3,JA102,not a date,002XX W MADISON ST,0820,THEFT,$500 AND UNDER,maybe,41.87,-87.64\n" +
	"4,,2020-02-01,002XX W MADISON ST,0820,THEFT,$500 AND UNDER,false,41.87,-87.64\n"

func TestDiscoverColumnsChicagoHeader(t *testing.T) {
	headers := strings.Split("\ufeffID,Case Number,Date,Block,IUCR,Primary Type,Description,Arrest,Latitude,Longitude", ",")
	m, err := DiscoverColumns(headers, DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, 1, m.Index(FieldCaseID))
	assert.Equal(t, 2, m.Index(FieldDate))
	assert.Equal(t, 5, m.Index(FieldPrimaryType))
	assert.Equal(t, 7, m.Index(FieldArrest))
	assert.Equal(t, 9, m.Index(FieldLongitude))
}

func TestDiscoverColumnsAliases(t *testing.T) {
	headers := []string{"case_id", "occurredAt", "block", "category", "desc", "arrested", "lat", "lng"}
	m, err := DiscoverColumns(headers, DefaultColumns())
	require.NoError(t, err)

	for i, f := range Fields {
		assert.Equal(t, i, m.Index(f), string(f))
	}
}

func TestDiscoverColumnsOptionalCoordinates(t *testing.T) {
	headers := []string{"Case Number", "Date", "Block", "Primary Type", "Description", "Arrest"}
	m, err := DiscoverColumns(headers, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, -1, m.Index(FieldLatitude))
	assert.Equal(t, -1, m.Index(FieldLongitude))
}

func TestDiscoverColumnsMissingRequired(t *testing.T) {
	headers := []string{"Case Number", "Date", "Primary Type", "Description"}
	_, err := DiscoverColumns(headers, DefaultColumns())
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "block")
	assert.Contains(t, err.Error(), "arrest")
}

func TestDiscoverColumnsOverride(t *testing.T) {
	headers := []string{"RD", "Occurred", "Location", "Offense Type", "Narrative", "Custody"}
	cols := DefaultColumns().Merge(Columns{
		CaseID:      "RD",
		Date:        "Occurred",
		Block:       "Location",
		PrimaryType: "Offense Type",
		Description: "Narrative",
		Arrest:      "Custody",
	})
	m, err := DiscoverColumns(headers, cols)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index(FieldCaseID))
	assert.Equal(t, 5, m.Index(FieldArrest))
}

func TestColumnsMerge(t *testing.T) {
	merged := DefaultColumns().Merge(Columns{Block: "Location", Date: "  "})
	assert.Equal(t, "Location", merged.Block)
	assert.Equal(t, "Date", merged.Date)
	assert.Equal(t, "Case Number", merged.CaseID)
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "Y", "yes", "1", " t "} {
		v, ok := ParseFlag(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "N", "no", "0"} {
		v, ok := ParseFlag(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	_, ok := ParseFlag("maybe")
	assert.False(t, ok)
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Primary Type": "primary_type",
		"primaryType":  "primary_type",
		"Case-Number":  "case_number",
		"Location 2":   "location_2",
		"ID":           "id",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

// ============================================================================
// PROFILE TESTS
// ============================================================================

func TestDiscoverFromCSV(t *testing.T) {
	p, err := DiscoverFromCSV(strings.NewReader(chicagoCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, p.SampledRows)
	assert.Equal(t, 3, p.CompleteRows)
	assert.Equal(t, []string{"\ufeffID", "IUCR"}, p.Unmapped)
	assert.NotEmpty(t, p.ProfiledAt)

	byField := make(map[Field]FieldProfile, len(p.Fields))
	for _, fp := range p.Fields {
		byField[fp.Field] = fp
	}
	assert.Equal(t, 1, byField[FieldCaseID].NullCount)
	assert.Equal(t, 1, byField[FieldDate].InvalidCount)
	assert.Equal(t, 1, byField[FieldArrest].InvalidCount)
	assert.Equal(t, 1, byField[FieldLatitude].NullCount)
	assert.False(t, byField[FieldLatitude].Required)
	assert.Equal(t, 2, byField[FieldPrimaryType].UniqueCount)
	assert.Equal(t, []string{"BATTERY", "THEFT"}, byField[FieldPrimaryType].SampleValues)

	assert.Equal(t, 1, p.Mapping().Index(FieldCaseID))
}

func TestDiscoverFromCSVSampleSize(t *testing.T) {
	p, err := DiscoverFromCSV(strings.NewReader(chicagoCSV), DiscoverOptions{SampleSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, p.SampledRows)
	assert.Equal(t, 2, p.CompleteRows)
}

func TestDiscoverFromCSVErrors(t *testing.T) {
	_, err := DiscoverFromCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = DiscoverFromCSV(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	errDisk := errors.New("disk gone")
	_, err = DiscoverFromCSV(io.MultiReader(
		strings.NewReader("Case Number,Date,Block,Primary Type,Description,Arrest\n"),
		iotest.ErrReader(errDisk),
	))
	assert.ErrorIs(t, err, errDisk)
}
