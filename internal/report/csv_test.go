package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlbench/internal/engine"
	"sqlbench/internal/target"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func sampleResults() []engine.TargetResult {
	t1 := target.Config{Name: "pg1", DBType: target.PostgreSQL, OSType: target.Linux}
	t2 := target.Config{Name: "my1", DBType: target.MySQL, OSType: target.Windows}

	return []engine.TargetResult{
		{
			Target: t1,
			Records: []engine.RunRecord{
				{
					TargetName: "pg1", DBType: target.PostgreSQL, OSType: target.Linux,
					RunIndex:      1,
					ElapsedTotal:  0.123456789,
					ElapsedServer: fptr(0.123456789),
					Latency:       fptr(0),
					IODeltas: map[string]int64{
						"seq_reads": 500, "idx_reads": 30,
						"inserts": 0, "updates": 0, "deletes": 0,
						"blks_read": 5, "blks_hit": 100,
					},
					Plan:     "Seq Scan on t",
					RowCount: iptr(1),
				},
			},
		},
		{
			Target: t2,
			Records: []engine.RunRecord{
				// failed run: zero elapsed, nil optionals, nil deltas
				{
					TargetName: "my1", DBType: target.MySQL, OSType: target.Windows,
					RunIndex: 1,
				},
			},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, sampleResults(), "SELECT 1", 1))

	rows := readCSV(t, path)
	require.Len(t, rows, 3, "header + one row per record")

	header := rows[0]
	assert.Equal(t, Header(), header)
	assert.Equal(t, "db_type", header[0])
	assert.Equal(t, "runs", header[15])

	ok := rows[1]
	assert.Equal(t, "postgresql", ok[0])
	assert.Equal(t, "linux", ok[1])
	assert.Equal(t, "pg1", ok[2])
	assert.Equal(t, "1", ok[3])
	assert.Equal(t, "0.123457", ok[4], "6 decimal places")
	assert.Equal(t, "0.123457", ok[5])
	assert.Equal(t, "0.000000", ok[6])
	assert.Equal(t, "500", ok[7])
	assert.Equal(t, "30", ok[8])
	assert.Equal(t, "Seq Scan on t", ok[12])
	assert.Equal(t, "1", ok[13])
	assert.Equal(t, "SELECT 1", ok[14])
	assert.Equal(t, "1", ok[15])

	// extras: backouts;purges;expunges blank, blks_read/blks_hit filled
	assert.Equal(t, "", ok[16])
	assert.Equal(t, "", ok[17])
	assert.Equal(t, "", ok[18])
	assert.Equal(t, "5", ok[19])
	assert.Equal(t, "100", ok[20])
}

func TestWriteCSVFailedRunHasEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, sampleResults(), "SELECT 1", 1))

	rows := readCSV(t, path)
	failed := rows[2]

	assert.Equal(t, "mysql", failed[0])
	assert.Equal(t, "windows", failed[1])
	assert.Equal(t, "0.000000", failed[4], "total elapsed is still recorded")
	assert.Equal(t, "", failed[5], "server elapsed absent")
	assert.Equal(t, "", failed[6], "latency absent")
	for i := 7; i <= 11; i++ {
		assert.Equal(t, "", failed[i], "metric column %d", i)
	}
	assert.Equal(t, "", failed[13], "rowcount absent")
}

func TestSummarize(t *testing.T) {
	res := engine.TargetResult{
		Target: target.Config{Name: "pg1", DBType: target.PostgreSQL, OSType: target.Linux},
		Records: []engine.RunRecord{
			{RunIndex: 1, ElapsedTotal: 0.100, ElapsedServer: fptr(0.100)},
			{RunIndex: 2, ElapsedTotal: 0.300, ElapsedServer: fptr(0.300)},
			{RunIndex: 3}, // failed
			{RunIndex: 4, ElapsedTotal: 0.200, ElapsedServer: fptr(0.200)},
		},
	}

	s := Summarize(res)
	assert.Equal(t, "pg1", s.Target)
	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 3, s.Succeeded)
	assert.InDelta(t, 0.200, s.MeanSeconds, 1e-9)
	assert.InDelta(t, 0.100, s.MinSeconds, 1e-9)
	assert.InDelta(t, 0.300, s.MaxSeconds, 1e-9)
	assert.InDelta(t, 200, s.P50Ms, 1.0)
}

func TestSummarizeNoSuccessfulRuns(t *testing.T) {
	res := engine.TargetResult{
		Target:  target.Config{Name: "down", DBType: target.MySQL, OSType: target.Linux},
		Records: []engine.RunRecord{{RunIndex: 1}, {RunIndex: 2}},
	}

	s := Summarize(res)
	assert.Equal(t, 2, s.Runs)
	assert.Zero(t, s.Succeeded)
	assert.Zero(t, s.MeanSeconds)
	assert.Zero(t, s.P99Ms)
}
