package collector

import (
	"context"

	"github.com/gookit/slog"
)

// mysqlCollector snapshots the session-scoped Handler_* counters. SHOW
// STATUS defaults to session scope, and the Conn pins one session, so the
// deltas belong to the benchmarked query alone.
type mysqlCollector struct {
	sess Session
	snapshots
}

// handlerCounters are the raw counters kept in a snapshot.
var handlerCounters = []string{
	"Handler_read_rnd_next",
	"Handler_read_key",
	"Handler_read_next",
	"Handler_write",
	"Handler_update",
	"Handler_delete",
}

// ExecutionPlan uses EXPLAIN FORMAT=JSON, which returns the full optimizer
// trace as a single JSON document.
func (c *mysqlCollector) ExecutionPlan(ctx context.Context, query string) string {
	rows, err := c.sess.QueryAll(ctx, "EXPLAIN FORMAT=JSON "+query)
	if err != nil {
		return planError(err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ""
	}
	return rows[0][0]
}

func (c *mysqlCollector) CaptureBefore(ctx context.Context) {
	c.before = c.capture(ctx)
}

func (c *mysqlCollector) CaptureAfter(ctx context.Context) {
	c.after = c.capture(ctx)
}

// IOStats maps the Handler counters onto the canonical metrics. idx_reads
// combines read_key (index lookups) with read_next (range continuation).
func (c *mysqlCollector) IOStats() map[string]int64 {
	raw := c.delta()
	if len(raw) == 0 {
		return raw
	}
	return map[string]int64{
		MetricSeqReads: raw["Handler_read_rnd_next"],
		MetricIdxReads: raw["Handler_read_key"] + raw["Handler_read_next"],
		MetricInserts:  raw["Handler_write"],
		MetricUpdates:  raw["Handler_update"],
		MetricDeletes:  raw["Handler_delete"],
	}
}

func (c *mysqlCollector) capture(ctx context.Context) map[string]int64 {
	rows, err := c.sess.QueryAll(ctx, "SHOW STATUS LIKE 'Handler%'")
	if err != nil {
		slog.Debugf("mysql: snapshot failed: %v", err)
		return nil
	}

	all := make(map[string]int64, len(rows))
	for _, row := range rows {
		if len(row) >= 2 {
			all[row[0]] = parseCount(row[1])
		}
	}

	snap := make(map[string]int64, len(handlerCounters))
	for _, name := range handlerCounters {
		snap[name] = all[name]
	}
	return snap
}
