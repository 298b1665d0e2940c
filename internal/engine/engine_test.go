package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlbench/internal/collector"
	"sqlbench/internal/db"
	"sqlbench/internal/target"
)

// fakeConn counts executions and can fail a chosen run or inject a per-run
// delay to shuffle concurrent completion order.
type fakeConn struct {
	execs      atomic.Int64
	failOnExec func(n int64) error
	delay      func(n int64) time.Duration
	connectErr error
}

func (f *fakeConn) Connect(_ context.Context) error { return f.connectErr }

func (f *fakeConn) Execute(_ context.Context, _ string) error {
	n := f.execs.Add(1)
	if f.delay != nil {
		time.Sleep(f.delay(n))
	}
	if f.failOnExec != nil {
		return f.failOnExec(n)
	}
	return nil
}

func (f *fakeConn) FetchOne() ([]string, bool, error) { return []string{"1"}, true, nil }

func (f *fakeConn) QueryAll(_ context.Context, _ string, _ ...any) ([][]string, error) {
	return nil, nil
}

func (f *fakeConn) SessionID(_ context.Context) string { return "1" }
func (f *fakeConn) RowCount() (int, bool)              { return 1, true }
func (f *fakeConn) Close() error                       { return nil }

// fakeCollector returns a fixed delta and counts capture calls.
type fakeCollector struct {
	plans    atomic.Int64
	captures atomic.Int64
}

func (f *fakeCollector) ExecutionPlan(_ context.Context, _ string) string {
	f.plans.Add(1)
	return "FULL SCAN"
}

func (f *fakeCollector) CaptureBefore(_ context.Context) { f.captures.Add(1) }
func (f *fakeCollector) CaptureAfter(_ context.Context)  { f.captures.Add(1) }

func (f *fakeCollector) IOStats() map[string]int64 {
	return map[string]int64{collector.MetricSeqReads: 42}
}

func (f *fakeCollector) Reset() {}

func testTarget(name string) target.Config {
	return target.Config{
		DBType: target.MySQL, OSType: target.Linux, Name: name,
		Host: "h", Database: "d", User: "u", Password: "p",
	}
}

func fakeFactories(conn *fakeConn, col *fakeCollector) (ConnFactory, CollectorFactory) {
	cf := func(_ target.Config) (db.Conn, error) { return conn, nil }
	sf := func(_ target.DBType, _ collector.Session) (collector.Collector, error) { return col, nil }
	return cf, sf
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Targets: []target.Config{testTarget("a")}, Query: "SELECT 1", Runs: 3}
	assert.NoError(t, valid.Validate())

	noTargets := valid
	noTargets.Targets = nil
	assert.Error(t, noTargets.Validate())

	noQuery := valid
	noQuery.Query = ""
	assert.Error(t, noQuery.Validate())

	zeroRuns := valid
	zeroRuns.Runs = 0
	assert.Error(t, zeroRuns.Validate())
}

func TestSequentialRunOrderAndPlan(t *testing.T) {
	conn := &fakeConn{}
	col := &fakeCollector{}

	cfg := Config{Targets: []target.Config{testTarget("a")}, Query: "SELECT 1", Runs: 5}
	e := New(cfg, nil).WithFactories(fakeFactories(conn, col))

	results := e.Run(context.Background())
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Records, 5)

	for i, rec := range results[0].Records {
		assert.Equal(t, i+1, rec.RunIndex)
		assert.False(t, rec.Failed())
		require.NotNil(t, rec.ElapsedServer)
		assert.Equal(t, int64(42), rec.IODeltas[collector.MetricSeqReads])
		require.NotNil(t, rec.RowCount)
		assert.Equal(t, 1, *rec.RowCount)
		if i == 0 {
			assert.Equal(t, "FULL SCAN", rec.Plan)
		} else {
			assert.Empty(t, rec.Plan)
		}
	}

	assert.Equal(t, int64(1), col.plans.Load(), "plan captured once per target")
	assert.Equal(t, int64(10), col.captures.Load(), "before+after per run")
}

func TestConcurrentRecordsKeepRunOrder(t *testing.T) {
	// Earlier submissions sleep longer, so completion order is roughly the
	// reverse of run order.
	conn := &fakeConn{
		delay: func(n int64) time.Duration {
			return time.Duration(20-n) * time.Millisecond
		},
	}
	col := &fakeCollector{}

	cfg := Config{
		Targets:    []target.Config{testTarget("a")},
		Query:      "SELECT 1",
		Runs:       20,
		Concurrent: true,
		MaxWorkers: 8,
	}
	e := New(cfg, nil).WithFactories(fakeFactories(conn, col))

	results := e.Run(context.Background())
	require.Len(t, results, 1)
	require.Len(t, results[0].Records, 20)

	for i, rec := range results[0].Records {
		assert.Equal(t, i+1, rec.RunIndex)
	}
}

func TestFailedRunRecordedAndOthersComplete(t *testing.T) {
	conn := &fakeConn{
		failOnExec: func(n int64) error {
			if n == 3 {
				return errors.New("deadlock found")
			}
			return nil
		},
	}
	col := &fakeCollector{}

	cfg := Config{Targets: []target.Config{testTarget("a")}, Query: "SELECT 1", Runs: 5}
	e := New(cfg, nil).WithFactories(fakeFactories(conn, col))

	results := e.Run(context.Background())
	require.Len(t, results[0].Records, 5)

	failed := results[0].Records[2]
	assert.True(t, failed.Failed())
	assert.Equal(t, 3, failed.RunIndex)
	assert.Zero(t, failed.ElapsedTotal)
	assert.Nil(t, failed.ElapsedServer)
	assert.Nil(t, failed.IODeltas)
	assert.Nil(t, failed.RowCount)

	for _, i := range []int{0, 1, 3, 4} {
		assert.False(t, results[0].Records[i].Failed(), "run %d", i+1)
	}
}

func TestUnreachableTargetSkipped(t *testing.T) {
	bad := testTarget("down")
	good := testTarget("up")

	goodConn := &fakeConn{}
	col := &fakeCollector{}

	cf := func(t target.Config) (db.Conn, error) {
		if t.Name == "down" {
			return &fakeConn{connectErr: errors.New("connection refused")}, nil
		}
		return goodConn, nil
	}
	sf := func(_ target.DBType, _ collector.Session) (collector.Collector, error) { return col, nil }

	cfg := Config{Targets: []target.Config{bad, good}, Query: "SELECT 1", Runs: 2}
	e := New(cfg, nil).WithFactories(cf, sf)

	results := e.Run(context.Background())
	require.Len(t, results, 2)

	assert.Error(t, results[0].Err)
	assert.Empty(t, results[0].Records)

	assert.NoError(t, results[1].Err)
	assert.Len(t, results[1].Records, 2)
}

func TestCancelledContextStopsSubmission(t *testing.T) {
	conn := &fakeConn{}
	col := &fakeCollector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Targets: []target.Config{testTarget("a"), testTarget("b")}, Query: "SELECT 1", Runs: 5}
	e := New(cfg, nil).WithFactories(fakeFactories(conn, col))

	results := e.Run(ctx)
	assert.Empty(t, results)
	assert.Zero(t, conn.execs.Load())
}

func TestProgressPublished(t *testing.T) {
	conn := &fakeConn{}
	col := &fakeCollector{}

	updates := make(ProgressChan, 100)
	cfg := Config{Targets: []target.Config{testTarget("a")}, Query: "SELECT 1", Runs: 3}
	e := New(cfg, updates).WithFactories(fakeFactories(conn, col))

	e.Run(context.Background())
	close(updates)

	var got []Progress
	for p := range updates {
		got = append(got, p)
	}
	require.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "a", p.Target)
		assert.Equal(t, 3, p.Runs)
		assert.True(t, p.OK)
		assert.Greater(t, p.Elapsed, 0.0)
	}
}
