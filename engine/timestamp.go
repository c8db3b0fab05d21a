package engine

import (
	"encoding/json"
	"strings"
	"time"
)

// ============================================================================
// TIMESTAMP — validated date/time parsing
// ============================================================================
// A record's date column is parsed once at load time. Downstream code
// branches on Valid / HasClock instead of slicing characters out of the
// raw string. The raw text is kept for display.
// ============================================================================

// Timestamp is an optional, possibly unparsable, incident time.
type Timestamp struct {
	Raw      string
	Time     time.Time
	Valid    bool // Raw parsed into Time
	HasClock bool // Raw carried a time of day
}

// Layouts that carry a time of day. The first is the Chicago data portal
// export format ("01/05/2020 08:30:00 PM").
var clockLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"01/02/2006 03:04 PM",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Date-only layouts. They parse to midnight with HasClock false.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParseTimestamp parses raw into a Timestamp. It never fails: unparsable
// input yields a Timestamp with Valid == false and Raw preserved.
func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return ts
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time, ts.Valid, ts.HasClock = t, true, true
			return ts
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time, ts.Valid = t, true
			return ts
		}
	}
	return ts
}

// At returns a Timestamp for t with a time of day.
func At(t time.Time) Timestamp {
	return Timestamp{Raw: t.Format(time.RFC3339), Time: t, Valid: true, HasClock: true}
}

// Year returns the calendar year, or false when the timestamp is unparsable.
func (t Timestamp) Year() (int, bool) {
	if !t.Valid {
		return 0, false
	}
	return t.Time.Year(), true
}

// Month returns the month 1-12, or false when the timestamp is unparsable.
func (t Timestamp) Month() (int, bool) {
	if !t.Valid {
		return 0, false
	}
	return int(t.Time.Month()), true
}

// Hour returns the hour 0-23, or false when the timestamp is unparsable.
// A date without a time of day is midnight, hour 0.
func (t Timestamp) Hour() (int, bool) {
	if !t.Valid {
		return 0, false
	}
	return t.Time.Hour(), true
}

// MarshalJSON writes the raw text, or null when absent.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// UnmarshalJSON re-parses the raw text.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = ParseTimestamp(raw)
	return nil
}
