package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// FILTERS — Conjunctive Predicate Filtering via View
// ============================================================================
// Single-pass filter: checks ALL predicates per record in one loop.
// Returns a sub-view (index list into the snapshot); no record is copied.
// ============================================================================

// ErrInvalidPredicate reports a malformed predicate (unknown field or a
// value of the wrong shape). It is the only error the engine returns.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Field names a filterable record attribute.
type Field string

const (
	FieldPrimaryType Field = "primary_type"
	FieldYear        Field = "year"
	FieldBlock       Field = "block"
)

// Predicate is an equality constraint on one field.
type Predicate struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Selection is the user-driven query. Nil fields are unconstrained.
type Selection struct {
	PrimaryType *string `json:"primaryType,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Block       *string `json:"block,omitempty"`
}

// String returns a pointer to s, for building a Selection.
func String(s string) *string { return &s }

// Int returns a pointer to n, for building a Selection.
func Int(n int) *int { return &n }

// ParseSelection builds a Selection from raw text inputs. Blank inputs are
// unconstrained; a non-integer year is an ErrInvalidPredicate.
func ParseSelection(primaryType, year, block string) (Selection, error) {
	var sel Selection
	if v := strings.TrimSpace(primaryType); v != "" {
		sel.PrimaryType = String(v)
	}
	if v := strings.TrimSpace(year); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: year %q is not an integer", ErrInvalidPredicate, year)
		}
		sel.Year = Int(y)
	}
	if v := strings.TrimSpace(block); v != "" {
		sel.Block = String(v)
	}
	return sel, nil
}

// Predicates returns the active predicates of the selection.
func (s Selection) Predicates() []Predicate {
	var preds []Predicate
	if s.PrimaryType != nil {
		preds = append(preds, Predicate{Field: FieldPrimaryType, Value: *s.PrimaryType})
	}
	if s.Year != nil {
		preds = append(preds, Predicate{Field: FieldYear, Value: strconv.Itoa(*s.Year)})
	}
	if s.Block != nil {
		preds = append(preds, Predicate{Field: FieldBlock, Value: *s.Block})
	}
	return preds
}

func (s Selection) clone() Selection {
	var out Selection
	if s.PrimaryType != nil {
		out.PrimaryType = String(*s.PrimaryType)
	}
	if s.Year != nil {
		out.Year = Int(*s.Year)
	}
	if s.Block != nil {
		out.Block = String(*s.Block)
	}
	return out
}

// IsEmpty returns true if no field is constrained.
func (s Selection) IsEmpty() bool {
	return s.PrimaryType == nil && s.Year == nil && s.Block == nil
}

// Key is a stable string form of the selection, used for memoization.
func (s Selection) Key() string {
	var b strings.Builder
	for _, p := range s.Predicates() {
		b.WriteString(string(p.Field))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p.Value))
		b.WriteByte(';')
	}
	return b.String()
}

// Label is a human-readable description of the selection.
func (s Selection) Label() string {
	if s.IsEmpty() {
		return "All records"
	}
	parts := []string{}
	if s.PrimaryType != nil {
		parts = append(parts, *s.PrimaryType)
	}
	if s.Year != nil {
		parts = append(parts, strconv.Itoa(*s.Year))
	}
	if s.Block != nil {
		parts = append(parts, *s.Block)
	}
	return strings.Join(parts, " — ")
}

// ApplyFilters returns a view of the records matching every predicate.
// No predicates = no restriction (returns the original view).
func ApplyFilters(view View, preds ...Predicate) (View, error) {
	if len(preds) == 0 {
		return view, nil
	}

	matchers := make([]func(*Record) bool, 0, len(preds))
	for _, p := range preds {
		m, err := compilePredicate(p)
		if err != nil {
			return View{}, err
		}
		matchers = append(matchers, m)
	}

	// Single pass: a record passes if it matches ALL predicates
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		r := view.record(i)
		pass := true
		for _, m := range matchers {
			if !m(r) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, view.snapshotIndex(i))
		}
	}

	return newSubView(view.snap, indices), nil
}

// Filter applies a Selection to a snapshot.
func Filter(snap *Snapshot, sel Selection) (View, error) {
	return ApplyFilters(snap.View(), sel.Predicates()...)
}

func compilePredicate(p Predicate) (func(*Record) bool, error) {
	switch p.Field {
	case FieldPrimaryType:
		want := p.Value
		return func(r *Record) bool { return r.PrimaryType == want }, nil
	case FieldBlock:
		want := p.Value
		return func(r *Record) bool { return r.Block == want }, nil
	case FieldYear:
		want, err := strconv.Atoi(strings.TrimSpace(p.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: year %q is not an integer", ErrInvalidPredicate, p.Value)
		}
		// Records without a parsable timestamp never match a year.
		return func(r *Record) bool {
			y, ok := r.OccurredAt.Year()
			return ok && y == want
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidPredicate, p.Field)
	}
}
