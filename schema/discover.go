package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/crimescope/engine"
)

// ============================================================================
// DISCOVERY — Header resolution and column profiling
// ============================================================================
// DiscoverColumns resolves configured header names against a real header
// row. Matching is case- and separator-insensitive ("Primary Type",
// "primary_type" and "PrimaryType" are the same column), and each field
// also accepts a few common aliases.
//
// Profile samples rows and reports per-field fill rates so an operator can
// see how many rows the loader will drop before running a query.
// ============================================================================

// aliases are tried after the configured header name.
var aliases = map[Field][]string{
	FieldCaseID:      {"case_number", "case_id", "case", "id"},
	FieldDate:        {"date", "occurred_at", "datetime", "date_of_occurrence"},
	FieldBlock:       {"block"},
	FieldPrimaryType: {"primary_type", "type", "category", "offense"},
	FieldDescription: {"description", "desc"},
	FieldArrest:      {"arrest", "arrested"},
	FieldLatitude:    {"latitude", "lat"},
	FieldLongitude:   {"longitude", "lon", "lng", "long"},
}

// DiscoverColumns maps every field to its column index in headers.
// It fails with ErrMissingColumn when a required field has no column.
func DiscoverColumns(headers []string, cols Columns) (Mapping, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := toSnakeCase(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	m := make(Mapping, len(Fields))
	var missing []string
	for _, f := range Fields {
		candidates := append([]string{cols.Header(f)}, aliases[f]...)
		found := -1
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if i, ok := index[toSnakeCase(c)]; ok {
				found = i
				break
			}
		}
		m[f] = found
		if found < 0 && f.Required() {
			missing = append(missing, fmt.Sprintf("%s (%q)", f, cols.Header(f)))
		}
	}

	if len(missing) > 0 {
		return m, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return m, nil
}

// ============================================================================
// PROFILE
// ============================================================================

// DiscoverOptions controls profiling behavior.
type DiscoverOptions struct {
	SampleSize int     // Max rows to inspect (0 = all). Default: 1000
	Columns    Columns // Header names; zero value = DefaultColumns()
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
		Columns:    DefaultColumns(),
	}
}

// Profile summarizes how well a CSV export fits the record model.
type Profile struct {
	Headers      []string       `json:"headers"`
	SampledRows  int            `json:"sampledRows"`
	CompleteRows int            `json:"completeRows"`
	Fields       []FieldProfile `json:"fields"`
	Unmapped     []string       `json:"unmapped,omitempty"`
	ProfiledAt   string         `json:"profiledAt"`

	fieldIndex map[Field]int
	mapping    Mapping
	uniques    map[Field]uniqSet
}

// FieldProfile describes one mapped field.
type FieldProfile struct {
	Field        Field    `json:"field"`
	Header       string   `json:"header"`
	Index        int      `json:"index"`
	Required     bool     `json:"required"`
	NullCount    int      `json:"nullCount"`
	InvalidCount int      `json:"invalidCount"` // unparsable date/flag/coordinate
	UniqueCount  int      `json:"uniqueCount"`
	SampleValues []string `json:"sampleValues"`
}

type uniqSet map[string]bool

// Mapping returns the resolved field → column table.
func (p *Profile) Mapping() Mapping { return p.mapping }

// DiscoverFromCSV resolves the header row of r and profiles a sample of
// its rows. Missing required columns are an error.
func DiscoverFromCSV(r io.Reader, opts ...DiscoverOptions) (*Profile, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	cols := DefaultColumns().Merge(opt.Columns)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	mapping, err := DiscoverColumns(headers, cols)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Headers:    headers,
		fieldIndex: make(map[Field]int, len(Fields)),
		mapping:    mapping,
		uniques:    make(map[Field]uniqSet, len(Fields)),
	}
	used := make(map[int]bool)
	for _, f := range Fields {
		idx := mapping.Index(f)
		header := ""
		if idx >= 0 {
			header = headers[idx]
			used[idx] = true
		}
		p.fieldIndex[f] = len(p.Fields)
		p.uniques[f] = make(uniqSet)
		p.Fields = append(p.Fields, FieldProfile{
			Field:    f,
			Header:   header,
			Index:    idx,
			Required: f.Required(),
		})
	}
	for i, h := range headers {
		if !used[i] {
			p.Unmapped = append(p.Unmapped, h)
		}
	}

	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}
	for p.SampledRows < limit {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("failed to read CSV row: %w", err)
			}
			continue // skip malformed rows
		}
		p.observe(row)
	}

	for i := range p.Fields {
		fp := &p.Fields[i]
		fp.UniqueCount = len(p.uniques[fp.Field])
		fp.SampleValues = collectSamples(p.uniques[fp.Field], 5)
	}
	p.ProfiledAt = time.Now().Format(time.RFC3339)
	return p, nil
}

func (p *Profile) observe(row []string) {
	p.SampledRows++
	complete := true
	for _, f := range Fields {
		fp := &p.Fields[p.fieldIndex[f]]
		val := ""
		if fp.Index >= 0 && fp.Index < len(row) {
			val = strings.TrimSpace(row[fp.Index])
		}
		if isNull(val) {
			fp.NullCount++
			if f.Required() {
				complete = false
			}
			continue
		}
		if !validValue(f, val) {
			fp.InvalidCount++
		}
		p.uniques[f][val] = true
	}
	if complete {
		p.CompleteRows++
	}
}

func validValue(f Field, val string) bool {
	switch f {
	case FieldArrest:
		_, ok := ParseFlag(val)
		return ok
	case FieldDate:
		return isDate(val)
	case FieldLatitude, FieldLongitude:
		return isNumeric(val)
	}
	return true
}

func isNull(val string) bool {
	return val == "" || val == "null" || val == "NULL" || val == "N/A" || val == "n/a" || val == "NaN"
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

func isDate(s string) bool {
	return engine.ParseTimestamp(s).Valid
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	// Handle camelCase: insert underscore before uppercase letters
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
