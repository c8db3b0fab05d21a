// Package crimescope provides a filtering and aggregation engine for
// crime-incident snapshots.
//
// Usage:
//
//	import "github.com/spektr-org/crimescope/engine"
//
//	snap := engine.NewSnapshot(records)
//	report, err := engine.Execute(snap, engine.Selection{Block: engine.String("021XX W MADISON ST")},
//	    engine.WithHighlighted("THEFT", "BATTERY"),
//	    engine.WithTopN(10),
//	)
//
// The engine takes an immutable Snapshot and a Selection (primary type,
// year, block) and returns a render-ready Report: distinct case counts,
// arrest counts, category breakdowns, monthly and hourly series, and the
// geolocatable points of the selection.
//
// Loading is handled by the helpers and store packages. The engine never
// performs I/O; all computation is local and side-effect free.
package crimescope
