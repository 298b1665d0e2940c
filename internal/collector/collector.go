// Package collector translates each backend's native performance counters
// into one normalized metric set. Collection is best-effort by contract: no
// method here ever aborts a timed query, failures only leave fields blank.
package collector

import (
	"context"
	"fmt"
	"strconv"

	"sqlbench/internal/target"
)

// Canonical metric names shared by all backends.
const (
	MetricSeqReads = "seq_reads"
	MetricIdxReads = "idx_reads"
	MetricInserts  = "inserts"
	MetricUpdates  = "updates"
	MetricDeletes  = "deletes"
)

// CanonicalMetrics is the cross-backend metric order used by the CSV schema.
var CanonicalMetrics = []string{
	MetricSeqReads, MetricIdxReads, MetricInserts, MetricUpdates, MetricDeletes,
}

// ExtraMetrics is the union of backend-specific metrics that pass through to
// the output as possibly-blank columns.
var ExtraMetrics = []string{"backouts", "purges", "expunges", "blks_read", "blks_hit"}

// Session is the slice of the connection surface the collectors need: an
// independent statement over the benchmarked session.
type Session interface {
	QueryAll(ctx context.Context, query string, args ...any) ([][]string, error)
	SessionID(ctx context.Context) string
}

// Collector captures before/after counter snapshots around a query and
// reports the delta.
type Collector interface {
	// ExecutionPlan returns the plan text, or a "plan error: ..." string.
	// It never fails; for backends without a plan-only mode the EXPLAIN
	// form is executed as a separate, untimed statement.
	ExecutionPlan(ctx context.Context, query string) string
	// CaptureBefore takes the pre-execution snapshot. Best-effort.
	CaptureBefore(ctx context.Context)
	// CaptureAfter takes the post-execution snapshot. Best-effort.
	CaptureAfter(ctx context.Context)
	// IOStats returns the per-metric delta, or an empty map when either
	// snapshot is missing.
	IOStats() map[string]int64
	// Reset drops both snapshots; call it between runs.
	Reset()
}

// New builds the backend-specific collector over sess.
func New(dbType target.DBType, sess Session) (Collector, error) {
	switch dbType {
	case target.Firebird:
		return &firebirdCollector{sess: sess}, nil
	case target.MySQL:
		return &mysqlCollector{sess: sess}, nil
	case target.PostgreSQL:
		return &postgresCollector{sess: sess}, nil
	case target.MariaDB:
		return &mariadbCollector{mysqlCollector{sess: sess}}, nil
	default:
		return nil, fmt.Errorf("unsupported db_type: %s", dbType)
	}
}

// snapshots holds the two capture points shared by every collector.
type snapshots struct {
	before map[string]int64
	after  map[string]int64
}

func (s *snapshots) Reset() {
	s.before = nil
	s.after = nil
}

// delta subtracts before from after for the keys present in both maps.
// Missing snapshots yield an empty map, never an error.
func (s *snapshots) delta() map[string]int64 {
	if s.before == nil || s.after == nil {
		return map[string]int64{}
	}
	out := make(map[string]int64, len(s.after))
	for k, a := range s.after {
		if b, ok := s.before[k]; ok {
			out[k] = a - b
		}
	}
	return out
}

func planError(err error) string {
	return "plan error: " + err.Error()
}

func parseCount(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
