package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/schema"
)

// ============================================================================
// CLI TESTS
// ============================================================================

const crimesCSV = `Case Number,Date,Block,Primary Type,Description,Arrest,Latitude,Longitude
JA100,01/03/2019 09:15:00 AM,001XX N STATE ST,THEFT,RETAIL THEFT,false,41.88,-87.62
JA101,02/14/2019 10:30:00 PM,001XX N STATE ST,BATTERY,SIMPLE,true,41.88,-87.62
JA102,03/01/2019 01:00:00 AM,002XX W MADISON ST,THEFT,OVER $500,true,,
JA103,07/04/2020 11:45:00 PM,002XX W MADISON ST,ASSAULT,AGGRAVATED,false,41.87,-87.63
JA104,08/08/2020 08:00:00 AM,001XX N STATE ST,,MISSING TYPE,false,41.88,-87.62
`

func writeData(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crimes.csv")
	require.NoError(t, os.WriteFile(path, []byte(crimesCSV), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error", "--env-file", writeEnv(t)))
	err := cmd.Execute()
	return out.String(), err
}

// writeEnv isolates tests from a developer's .env file.
func writeEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("# empty\n"), 0o600))
	return path
}

func TestReportJSON(t *testing.T) {
	out, err := run(t, "report", "--file", writeData(t), "--year", "2019")
	require.NoError(t, err)

	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2019", got.Selection)
	assert.Equal(t, 3, got.Report.TotalDistinctCrimes)
	assert.Equal(t, 2, got.Report.ArrestCount)
	assert.InDelta(t, 66.67, got.Report.CategoryBreakdown["THEFT"], 0.01)
	assert.InDelta(t, 33.33, got.Report.CategoryBreakdown["BATTERY"], 0.01)
}

func TestReportText(t *testing.T) {
	out, err := run(t, "report", "--file", writeData(t), "--format", "text", "--highlight", "ASSAULT")
	require.NoError(t, err)

	assert.Contains(t, out, "Total number of Crimes:")
	assert.Contains(t, out, "ASSAULT Percentage:")
	assert.Contains(t, out, "Other Crimes Percentage:")
	assert.NotContains(t, out, "THEFT Percentage")
}

func TestReportCSV(t *testing.T) {
	out, err := run(t, "report", "--file", writeData(t), "--format", "csv", "--type", "THEFT")
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, rows[0])
	assert.Equal(t, []string{"Total number of Crimes", "2"}, rows[1])
	assert.Equal(t, []string{"Primary Type", "Count", "Share (%)"}, rows[len(rows)-2])
	assert.Equal(t, []string{"THEFT", "2", "100.00"}, rows[len(rows)-1])
}

func TestReportRejectsBadYear(t *testing.T) {
	_, err := run(t, "report", "--file", writeData(t), "--year", "soon")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidPredicate)
}

func TestReportRequiresData(t *testing.T) {
	t.Setenv("CRIMESCOPE_DATA_PATH", "")
	_, err := run(t, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data file")
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, "report", "--file", writeData(t), "--format", "xml")
	require.Error(t, err)
}

func TestSelections(t *testing.T) {
	out, err := run(t, "selections", "--file", writeData(t))
	require.NoError(t, err)

	var dom engine.SelectionDomain
	require.NoError(t, json.Unmarshal([]byte(out), &dom))
	assert.Equal(t, []string{"ASSAULT", "BATTERY", "THEFT"}, dom.PrimaryTypes)
	assert.Equal(t, []string{"001XX N STATE ST", "002XX W MADISON ST"}, dom.Blocks)
	assert.Equal(t, 2019, dom.MinYear)
	assert.Equal(t, 2020, dom.MaxYear)
}

func TestRecordsCSVToFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "records.csv")
	_, err := run(t, "records", "--file", writeData(t), "--block", "002XX W MADISON ST",
		"--format", "csv", "--out", outFile)
	require.NoError(t, err)

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Case Number", rows[0][0])
	assert.Equal(t, "JA102", rows[1][0])
	assert.Equal(t, "", rows[1][6], "missing latitude renders empty")
}

func TestChartsKind(t *testing.T) {
	out, err := run(t, "charts", "--file", writeData(t), "--kind", "monthly", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Month,Number of Crimes\n"))
	assert.Contains(t, out, "Jan,1")

	_, err = run(t, "charts", "--file", writeData(t), "--kind", "radar")
	require.Error(t, err)
}

func TestSchemaProfile(t *testing.T) {
	out, err := run(t, "schema", "--file", writeData(t))
	require.NoError(t, err)

	var p schema.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, 5, p.SampledRows)
	assert.Equal(t, 4, p.CompleteRows)
}

func TestFmtNum(t *testing.T) {
	assert.Equal(t, "42", fmtNum(42))
	assert.Equal(t, "3.14", fmtNum(3.14159))
}
