// Package report turns the engine's records into the semicolon-delimited
// CSV consumed by the external analysis tooling, plus per-target summary
// statistics for console output and history.
package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"sqlbench/internal/collector"
	"sqlbench/internal/engine"
)

// BaseHeader is the documented output schema; downstream parsers rely on
// this exact prefix.
var BaseHeader = []string{
	"db_type", "os_type", "server_name", "run_index",
	"elapsed_total_seconds", "elapsed_server_seconds", "latency_seconds",
	"seq_reads", "idx_reads", "inserts", "updates", "deletes",
	"plan", "rowcount", "query", "runs",
}

// Header returns the full header: the base schema plus the union of
// backend-specific extra metrics, appended so the base prefix stays stable.
func Header() []string {
	return append(append([]string{}, BaseHeader...), collector.ExtraMetrics...)
}

// WriteCSV writes one row per RunRecord, targets in benchmark order, runs in
// run-index order. Absent values become empty fields, never "null" or a
// made-up zero.
func WriteCSV(path string, results []engine.TargetResult, query string, runs int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	defer w.Flush()

	if err := w.Write(Header()); err != nil {
		return err
	}

	for _, res := range results {
		for _, rec := range res.Records {
			if err := w.Write(recordRow(rec, query, runs)); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func recordRow(rec engine.RunRecord, query string, runs int) []string {
	row := []string{
		string(rec.DBType),
		string(rec.OSType),
		rec.TargetName,
		strconv.Itoa(rec.RunIndex),
		seconds(rec.ElapsedTotal),
		optSeconds(rec.ElapsedServer),
		optSeconds(rec.Latency),
	}
	for _, m := range collector.CanonicalMetrics {
		row = append(row, metric(rec.IODeltas, m))
	}
	row = append(row, rec.Plan, optInt(rec.RowCount), query, strconv.Itoa(runs))
	for _, m := range collector.ExtraMetrics {
		row = append(row, metric(rec.IODeltas, m))
	}
	return row
}

// seconds formats with the fixed 6 decimal places the schema promises.
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func optSeconds(v *float64) string {
	if v == nil {
		return ""
	}
	return seconds(*v)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func metric(deltas map[string]int64, name string) string {
	if deltas == nil {
		return ""
	}
	v, ok := deltas[name]
	if !ok {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
