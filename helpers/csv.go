package helpers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/schema"
)

// ============================================================================
// CSV HELPER — Parses an incident export into []engine.Record
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, HTTP, object store).
// This helper converts the rows into typed Records using the column mapping.
//
// Drop-incomplete policy: rows missing any required field (case number,
// date, block, primary type, description, arrest flag) or carrying an
// unrecognized arrest flag are dropped here, before reaching the engine.
// An unparsable date is NOT a drop reason; the engine excludes such
// records from time-bucketed aggregates only. Coordinates are optional.
// ============================================================================

// LoadStats counts what happened to each data row.
type LoadStats struct {
	Rows      int `json:"rows"`      // data rows read
	Kept      int `json:"kept"`      // rows turned into records
	Dropped   int `json:"dropped"`   // rows missing a required field
	Malformed int `json:"malformed"` // rows the CSV reader rejected
}

// ctxCheckEvery is how many rows are read between cancellation checks.
const ctxCheckEvery = 4096

// ParseCSV reads every row of r into Records.
func ParseCSV(r io.Reader, cols schema.Columns) ([]engine.Record, LoadStats, error) {
	return ParseCSVContext(context.Background(), r, cols)
}

// ParseCSVContext is ParseCSV with cancellation. Rows the CSV reader
// rejects are counted as malformed and skipped; any other read error stops
// the parse and is returned.
func ParseCSVContext(ctx context.Context, r io.Reader, cols schema.Columns) ([]engine.Record, LoadStats, error) {
	var stats LoadStats
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	mapping, err := schema.DiscoverColumns(headers, schema.DefaultColumns().Merge(cols))
	if err != nil {
		return nil, stats, err
	}

	// Read rows
	var records []engine.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, stats, fmt.Errorf("failed to read CSV row: %w", err)
			}
			stats.Rows++
			stats.Malformed++
			continue // skip malformed rows
		}
		stats.Rows++
		if stats.Rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		rec, ok := parseRow(row, mapping)
		if !ok {
			stats.Dropped++
			continue
		}
		records = append(records, rec)
		stats.Kept++
	}

	return records, stats, nil
}

// ParseCSVBytes is ParseCSV over an in-memory buffer.
func ParseCSVBytes(data []byte, cols schema.Columns) ([]engine.Record, LoadStats, error) {
	return ParseCSV(bytes.NewReader(data), cols)
}

// ParseCSVSnapshot parses CSV into an immutable Snapshot (convenience wrapper).
func ParseCSVSnapshot(r io.Reader, cols schema.Columns, opts ...engine.SnapshotOption) (*engine.Snapshot, LoadStats, error) {
	records, stats, err := ParseCSV(r, cols)
	if err != nil {
		return nil, stats, err
	}
	return engine.NewSnapshot(records, opts...), stats, nil
}

func parseRow(row []string, m schema.Mapping) (engine.Record, bool) {
	cell := func(f schema.Field) string {
		i := m.Index(f)
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	caseID := cell(schema.FieldCaseID)
	date := cell(schema.FieldDate)
	block := cell(schema.FieldBlock)
	primaryType := cell(schema.FieldPrimaryType)
	description := cell(schema.FieldDescription)
	if caseID == "" || date == "" || block == "" || primaryType == "" || description == "" {
		return engine.Record{}, false
	}

	arrested, ok := schema.ParseFlag(cell(schema.FieldArrest))
	if !ok {
		return engine.Record{}, false
	}

	return engine.Record{
		CaseID:      caseID,
		PrimaryType: primaryType,
		Description: description,
		OccurredAt:  engine.ParseTimestamp(date),
		Block:       block,
		Arrested:    arrested,
		Latitude:    parseCoordinate(cell(schema.FieldLatitude), 90),
		Longitude:   parseCoordinate(cell(schema.FieldLongitude), 180),
	}, true
}

// parseCoordinate returns an invalid NullFloat for empty, non-numeric or
// out-of-range input.
func parseCoordinate(s string, limit float64) engine.NullFloat {
	if s == "" {
		return engine.NullFloat{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != f || f < -limit || f > limit {
		return engine.NullFloat{}
	}
	return engine.Float(f)
}
