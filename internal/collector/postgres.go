package collector

import (
	"context"
	"strings"

	"github.com/gookit/slog"
)

// postgresCollector snapshots pg_stat_database for the current database.
// PostgreSQL has no per-session tuple counters, so database scope is the
// nearest approximation; on an otherwise idle database the delta is the
// benchmarked query's work.
type postgresCollector struct {
	sess Session
	snapshots
}

const postgresIOQuery = `
	SELECT tup_returned, tup_fetched, tup_inserted, tup_updated, tup_deleted,
	       blks_read, blks_hit
	FROM pg_stat_database
	WHERE datname = current_database()`

var postgresMetrics = []string{
	MetricSeqReads, MetricIdxReads, MetricInserts, MetricUpdates, MetricDeletes,
	"blks_read", "blks_hit",
}

// ExecutionPlan runs EXPLAIN (FORMAT TEXT) and joins the plan lines.
func (c *postgresCollector) ExecutionPlan(ctx context.Context, query string) string {
	rows, err := c.sess.QueryAll(ctx, "EXPLAIN (FORMAT TEXT) "+query)
	if err != nil {
		return planError(err)
	}
	var lines []string
	for _, row := range rows {
		if len(row) > 0 {
			lines = append(lines, row[0])
		}
	}
	return strings.Join(lines, " | ")
}

func (c *postgresCollector) CaptureBefore(ctx context.Context) {
	c.before = c.capture(ctx)
}

func (c *postgresCollector) CaptureAfter(ctx context.Context) {
	c.after = c.capture(ctx)
}

func (c *postgresCollector) IOStats() map[string]int64 {
	return c.delta()
}

func (c *postgresCollector) capture(ctx context.Context) map[string]int64 {
	rows, err := c.sess.QueryAll(ctx, postgresIOQuery)
	if err != nil {
		slog.Debugf("postgres: snapshot failed: %v", err)
		return nil
	}
	if len(rows) == 0 || len(rows[0]) < len(postgresMetrics) {
		return nil
	}

	// tup_returned maps to seq_reads, tup_fetched to idx_reads; the stats
	// row is already in canonical order above.
	snap := make(map[string]int64, len(postgresMetrics))
	for i, name := range postgresMetrics {
		snap[name] = parseCount(rows[0][i])
	}
	return snap
}
