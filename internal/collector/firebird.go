package collector

import (
	"context"
	"strconv"
	"strings"

	"github.com/gookit/slog"
)

// firebirdCollector reads the per-attachment record counters from
// MON$IO_STATS. MON$STAT_GROUP = 1 selects attachment scope, so only the
// benchmarked session is counted.
type firebirdCollector struct {
	sess Session
	snapshots
}

const firebirdIOQuery = `
	SELECT
	    SUM(MON$RECORD_SEQ_READS),
	    SUM(MON$RECORD_IDX_READS),
	    SUM(MON$RECORD_INSERTS),
	    SUM(MON$RECORD_UPDATES),
	    SUM(MON$RECORD_DELETES),
	    SUM(MON$RECORD_BACKOUTS),
	    SUM(MON$RECORD_PURGES),
	    SUM(MON$RECORD_EXPUNGES)
	FROM MON$IO_STATS
	WHERE MON$STAT_GROUP = 1
	AND MON$STAT_ID = ?`

var firebirdMetrics = []string{
	MetricSeqReads, MetricIdxReads, MetricInserts, MetricUpdates, MetricDeletes,
	"backouts", "purges", "expunges",
}

// ExecutionPlan asks RDB$SQL.EXPLAIN for the access path without running the
// query. The package only exists on Firebird 5+; older servers yield the
// plan-error string.
func (c *firebirdCollector) ExecutionPlan(ctx context.Context, query string) string {
	rows, err := c.sess.QueryAll(ctx, "SELECT ACCESS_PATH FROM RDB$SQL.EXPLAIN(?)", query)
	if err != nil {
		return planError(err)
	}
	var lines []string
	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			lines = append(lines, row[0])
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, " | ")
}

func (c *firebirdCollector) CaptureBefore(ctx context.Context) {
	c.before = c.capture(ctx)
}

func (c *firebirdCollector) CaptureAfter(ctx context.Context) {
	c.after = c.capture(ctx)
}

func (c *firebirdCollector) IOStats() map[string]int64 {
	return c.delta()
}

func (c *firebirdCollector) capture(ctx context.Context) map[string]int64 {
	id := c.sess.SessionID(ctx)
	attachmentID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		slog.Debugf("firebird: no attachment id (%q), skipping snapshot", id)
		return nil
	}

	rows, err := c.sess.QueryAll(ctx, firebirdIOQuery, attachmentID)
	if err != nil {
		slog.Debugf("firebird: snapshot failed: %v", err)
		return nil
	}
	if len(rows) == 0 || len(rows[0]) < len(firebirdMetrics) {
		return nil
	}

	snap := make(map[string]int64, len(firebirdMetrics))
	for i, name := range firebirdMetrics {
		snap[name] = parseCount(rows[0][i])
	}
	return snap
}
