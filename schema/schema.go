package schema

import (
	"errors"
	"strings"
)

// ============================================================================
// SCHEMA — Column mapping for incident exports
// ============================================================================
// Describes which CSV header feeds which engine.Record field. Defaults match
// the Chicago data portal "Crimes - 2001 to Present" export; every name can
// be overridden from the config file.
// ============================================================================

// ErrMissingColumn reports that a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

// Field identifies a record field fed from a CSV column.
type Field string

const (
	FieldCaseID      Field = "case_id"
	FieldDate        Field = "date"
	FieldBlock       Field = "block"
	FieldPrimaryType Field = "primary_type"
	FieldDescription Field = "description"
	FieldArrest      Field = "arrest"
	FieldLatitude    Field = "latitude"
	FieldLongitude   Field = "longitude"
)

// Fields lists every field in record order.
var Fields = []Field{
	FieldCaseID, FieldDate, FieldBlock, FieldPrimaryType,
	FieldDescription, FieldArrest, FieldLatitude, FieldLongitude,
}

// Required reports whether rows missing this field are dropped at load.
func (f Field) Required() bool {
	return f != FieldLatitude && f != FieldLongitude
}

// Columns maps each field to a header name.
type Columns struct {
	CaseID      string `yaml:"case_id" json:"caseId"`
	Date        string `yaml:"date" json:"date"`
	Block       string `yaml:"block" json:"block"`
	PrimaryType string `yaml:"primary_type" json:"primaryType"`
	Description string `yaml:"description" json:"description"`
	Arrest      string `yaml:"arrest" json:"arrest"`
	Latitude    string `yaml:"latitude" json:"latitude"`
	Longitude   string `yaml:"longitude" json:"longitude"`
}

// DefaultColumns returns the Chicago export header names.
func DefaultColumns() Columns {
	return Columns{
		CaseID:      "Case Number",
		Date:        "Date",
		Block:       "Block",
		PrimaryType: "Primary Type",
		Description: "Description",
		Arrest:      "Arrest",
		Latitude:    "Latitude",
		Longitude:   "Longitude",
	}
}

// Merge returns c with every non-empty field of override applied.
func (c Columns) Merge(override Columns) Columns {
	pick := func(base, o string) string {
		if strings.TrimSpace(o) != "" {
			return o
		}
		return base
	}
	return Columns{
		CaseID:      pick(c.CaseID, override.CaseID),
		Date:        pick(c.Date, override.Date),
		Block:       pick(c.Block, override.Block),
		PrimaryType: pick(c.PrimaryType, override.PrimaryType),
		Description: pick(c.Description, override.Description),
		Arrest:      pick(c.Arrest, override.Arrest),
		Latitude:    pick(c.Latitude, override.Latitude),
		Longitude:   pick(c.Longitude, override.Longitude),
	}
}

// Header returns the configured header for a field.
func (c Columns) Header(f Field) string {
	switch f {
	case FieldCaseID:
		return c.CaseID
	case FieldDate:
		return c.Date
	case FieldBlock:
		return c.Block
	case FieldPrimaryType:
		return c.PrimaryType
	case FieldDescription:
		return c.Description
	case FieldArrest:
		return c.Arrest
	case FieldLatitude:
		return c.Latitude
	case FieldLongitude:
		return c.Longitude
	}
	return ""
}

// Mapping is a resolved field → column index table. Missing optional
// columns map to -1.
type Mapping map[Field]int

// Index returns the column index of f, or -1.
func (m Mapping) Index(f Field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return -1
}

// ParseFlag interprets a boolean-like cell ("true", "Y", "1", ...).
// ok is false when the value is not recognized.
func ParseFlag(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}
