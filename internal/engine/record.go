package engine

import "sqlbench/internal/target"

// RunRecord is one query execution's outcome. A failed run keeps its
// RunIndex but has ElapsedTotal 0 and nil stats fields.
type RunRecord struct {
	TargetName string
	DBType     target.DBType
	OSType     target.OSType
	// RunIndex is 1-based and unique per target. Emission order is always
	// RunIndex order, even when runs complete out of order.
	RunIndex int

	// ElapsedTotal is the wall clock around execute+fetch, in seconds.
	ElapsedTotal float64
	// ElapsedServer is nil for failed runs. See Engine for the measurement
	// boundary caveat.
	ElapsedServer *float64
	// Latency is ElapsedTotal - ElapsedServer.
	Latency *float64

	// IODeltas maps metric name to counter delta; nil for failed runs,
	// empty when monitoring was unavailable.
	IODeltas map[string]int64
	// Plan is only set on the first run of a target.
	Plan string
	// RowCount is the number of rows fetched; nil when unknown.
	RowCount *int
}

// Failed reports whether the execute/fetch pair itself errored.
func (r RunRecord) Failed() bool {
	return r.ElapsedServer == nil
}

// TargetResult is the ordered record sequence for one target. Err is set
// when the target could not be benchmarked at all (connect failure); the
// records are then empty and the benchmark continues with the next target.
type TargetResult struct {
	Target  target.Config
	Records []RunRecord
	Err     error
}

// Progress is published after every run so a presentation layer can render
// live output without reaching into the engine.
type Progress struct {
	Target   string
	RunIndex int
	Runs     int
	Elapsed  float64
	OK       bool
}

// ProgressChan carries Progress events; the engine sends non-blocking, so a
// slow consumer only drops updates.
type ProgressChan chan Progress
