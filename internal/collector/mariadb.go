package collector

import (
	"context"
	"fmt"
	"strings"
)

// mariadbCollector shares MySQL's Handler counter logic; only plan
// retrieval differs, since MariaDB's EXPLAIN FORMAT=JSON output diverged
// from MySQL's and the classic tabular form is the stable one.
type mariadbCollector struct {
	mysqlCollector
}

// ExecutionPlan formats the classic EXPLAIN columns
// (id, select_type, table, type, possible_keys, key, key_len, ref, rows, Extra).
func (c *mariadbCollector) ExecutionPlan(ctx context.Context, query string) string {
	rows, err := c.sess.QueryAll(ctx, "EXPLAIN "+query)
	if err != nil {
		return planError(err)
	}
	var lines []string
	for _, row := range rows {
		if len(row) < 9 {
			continue
		}
		lines = append(lines, fmt.Sprintf("id=%s type=%s table=%s rows=%s",
			row[0], row[3], row[2], row[8]))
	}
	return strings.Join(lines, "; ")
}
