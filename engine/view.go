package engine

import (
	"fmt"
	"time"
)

// ============================================================================
// SNAPSHOT + VIEW — Zero-Copy Data Access
// ============================================================================
// A Snapshot owns the loaded records and is never mutated after
// construction. A View is a list of indices into a Snapshot, so filtering
// never copies records. Callers only ever receive copies of records.
//
//   Snapshot   — immutable record slice, built once per load
//   View       — ordered subset (indices into the snapshot, zero-copy)
// ============================================================================

// Snapshot is an immutable, ordered collection of incident records.
// A nil *Snapshot behaves as an empty snapshot.
type Snapshot struct {
	records    []Record
	generation uint64
	loadedAt   time.Time
}

// SnapshotOption configures NewSnapshot.
type SnapshotOption func(*Snapshot)

// WithGeneration tags the snapshot with a load generation.
func WithGeneration(gen uint64) SnapshotOption {
	return func(s *Snapshot) { s.generation = gen }
}

// WithLoadedAt overrides the load time (defaults to time.Now).
func WithLoadedAt(t time.Time) SnapshotOption {
	return func(s *Snapshot) { s.loadedAt = t }
}

// NewSnapshot copies records into a new immutable Snapshot.
func NewSnapshot(records []Record, opts ...SnapshotOption) *Snapshot {
	owned := make([]Record, len(records))
	copy(owned, records)
	s := &Snapshot{records: owned, loadedAt: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns a copy of the record at index i. Like a slice index, it
// panics unless 0 <= i < Len(); a nil snapshot has no valid index.
func (s *Snapshot) At(i int) Record {
	if s == nil {
		panic(fmt.Sprintf("engine: index %d out of range on nil snapshot", i))
	}
	return s.records[i]
}

// Generation returns the load generation (0 if untagged).
func (s *Snapshot) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// View returns a View over every record of the snapshot.
func (s *Snapshot) View() View {
	return View{snap: s, all: true}
}

// ============================================================================
// VIEW — ordered subset of a snapshot
// ============================================================================

// View is a read-only, order-preserving subsequence of a Snapshot.
// The zero View is empty.
type View struct {
	snap    *Snapshot
	all     bool
	indices []int
}

func newSubView(snap *Snapshot, indices []int) View {
	return View{snap: snap, indices: indices}
}

// Len returns the number of records in the view.
func (v View) Len() int {
	if v.all {
		return v.snap.Len()
	}
	return len(v.indices)
}

// At returns a copy of the i-th record of the view.
func (v View) At(i int) Record {
	return *v.record(i)
}

// Records returns a copy of the view's records in order.
func (v View) Records() []Record {
	out := make([]Record, v.Len())
	for i := range out {
		out[i] = *v.record(i)
	}
	return out
}

// Snapshot returns the snapshot the view was derived from.
func (v View) Snapshot() *Snapshot { return v.snap }

// record is the engine's internal zero-copy accessor. Callers must not
// mutate the returned record.
func (v View) record(i int) *Record {
	if v.all {
		return &v.snap.records[i]
	}
	return &v.snap.records[v.indices[i]]
}

// snapshotIndex maps a view position to the snapshot position.
func (v View) snapshotIndex(i int) int {
	if v.all {
		return i
	}
	return v.indices[i]
}
