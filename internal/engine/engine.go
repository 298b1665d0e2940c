// Package engine runs a query N times against each configured target and
// assembles the per-run records consumed by the CSV writer and the external
// analyzer.
//
// Measurement boundary: ElapsedServer is taken over the same execute+fetch
// span as ElapsedTotal, so the derived Latency column is zero by
// construction. The original measurement worked this way and the downstream
// analysis consumes exactly these columns, so the boundary is preserved
// rather than silently redefined.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gookit/slog"

	"sqlbench/internal/collector"
	"sqlbench/internal/db"
	"sqlbench/internal/target"
)

// DefaultMaxWorkers bounds the per-target worker pool in concurrent mode.
const DefaultMaxWorkers = 10

// ConnFactory and CollectorFactory are injectable so tests can swap the
// real backends for fakes.
type ConnFactory func(cfg target.Config) (db.Conn, error)

type CollectorFactory func(dbType target.DBType, sess collector.Session) (collector.Collector, error)

// Config is the engine's entire input; the source of the values (flags,
// config file, env) is the caller's concern.
type Config struct {
	Targets    []target.Config
	Query      string
	Runs       int
	Concurrent bool
	MaxWorkers int
}

// Validate catches configuration-stage errors, the only error class that
// escapes the engine.
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("no valid targets configured")
	}
	if c.Query == "" {
		return errors.New("query must not be empty")
	}
	if c.Runs < 1 {
		return errors.New("runs must be at least 1")
	}
	return nil
}

type Engine struct {
	cfg     Config
	updates ProgressChan

	newConn      ConnFactory
	newCollector CollectorFactory
}

func New(cfg Config, updates ProgressChan) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	return &Engine{
		cfg:          cfg,
		updates:      updates,
		newConn:      db.New,
		newCollector: collector.New,
	}
}

// WithFactories overrides the backend factories. Test seam.
func (e *Engine) WithFactories(cf ConnFactory, sf CollectorFactory) *Engine {
	e.newConn = cf
	e.newCollector = sf
	return e
}

// Run benchmarks every target in configuration order. A cancelled context
// stops further submission; everything gathered so far is still returned.
func (e *Engine) Run(ctx context.Context) []TargetResult {
	results := make([]TargetResult, 0, len(e.cfg.Targets))

	for _, t := range e.cfg.Targets {
		if ctx.Err() != nil {
			slog.Warnf("interrupted, skipping remaining targets")
			break
		}

		mode := "sequential"
		if e.cfg.Concurrent {
			mode = "concurrent"
		}
		slog.Infof("== benchmark %s == type=%s os=%s host=%s db=%s runs=%d mode=%s",
			t.Name, t.DBType, t.OSType, t.Host, t.Database, e.cfg.Runs, mode)

		var res TargetResult
		if e.cfg.Concurrent {
			res = e.runConcurrent(ctx, t)
		} else {
			res = e.runSequential(ctx, t)
		}
		if res.Err != nil {
			slog.Errorf("skipping target %s: %v", t.Name, res.Err)
		}
		results = append(results, res)
	}

	return results
}

// runSequential reuses one connection and collector for all runs of a
// target. The execution plan is captured once, on the first run.
func (e *Engine) runSequential(ctx context.Context, t target.Config) TargetResult {
	conn, err := e.newConn(t)
	if err != nil {
		return TargetResult{Target: t, Err: err}
	}
	if err := conn.Connect(ctx); err != nil {
		return TargetResult{Target: t, Err: err}
	}
	defer conn.Close()

	col, err := e.newCollector(t.DBType, conn)
	if err != nil {
		return TargetResult{Target: t, Err: err}
	}

	records := make([]RunRecord, 0, e.cfg.Runs)
	for i := 1; i <= e.cfg.Runs; i++ {
		if ctx.Err() != nil {
			break
		}
		records = append(records, e.executeRun(ctx, conn, col, t, i, i == 1))
		col.Reset()
	}
	return TargetResult{Target: t, Records: records}
}

// runConcurrent fans the runs of one target out over a bounded worker pool.
// Each task opens its own connection (client handles are not safe for
// concurrent use) and writes its record into the slot for its run index, so
// the emitted order is run order regardless of completion order.
func (e *Engine) runConcurrent(ctx context.Context, t target.Config) TargetResult {
	records := make([]RunRecord, e.cfg.Runs)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < e.cfg.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				records[idx-1] = e.runIsolated(ctx, t, idx)
			}
		}()
	}

submit:
	for i := 1; i <= e.cfg.Runs; i++ {
		select {
		case <-ctx.Done():
			break submit
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Drop slots that were never submitted (interrupt); submitted slots
	// always carry their RunIndex, failed or not.
	out := make([]RunRecord, 0, len(records))
	for _, r := range records {
		if r.RunIndex != 0 {
			out = append(out, r)
		}
	}
	return TargetResult{Target: t, Records: out}
}

// runIsolated is one concurrent task: own connection, own collector, one
// before/execute/after cycle. A panic inside a task must not take down its
// siblings, it just yields a failed record for that run index.
func (e *Engine) runIsolated(ctx context.Context, t target.Config, idx int) (rec RunRecord) {
	rec = failedRecord(t, idx)

	defer func() {
		if r := recover(); r != nil {
			slog.Errorf("[%s] run %d/%d panicked: %v", t.Name, idx, e.cfg.Runs, r)
			rec = failedRecord(t, idx)
			e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs})
		}
	}()

	conn, err := e.newConn(t)
	if err != nil {
		e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs})
		return rec
	}
	if err := conn.Connect(ctx); err != nil {
		slog.Errorf("[%s] run %d/%d: %v", t.Name, idx, e.cfg.Runs, err)
		e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs})
		return rec
	}
	defer conn.Close()

	col, err := e.newCollector(t.DBType, conn)
	if err != nil {
		e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs})
		return rec
	}

	return e.executeRun(ctx, conn, col, t, idx, idx == 1)
}

// executeRun performs one timed before/execute/after cycle. Monitoring
// failures never abort the run; an execute or fetch failure aborts only
// this run and is recorded with zero elapsed time and nil stats.
func (e *Engine) executeRun(ctx context.Context, conn db.Conn, col collector.Collector, t target.Config, idx int, withPlan bool) RunRecord {
	rec := RunRecord{
		TargetName: t.Name,
		DBType:     t.DBType,
		OSType:     t.OSType,
		RunIndex:   idx,
	}

	if withPlan {
		rec.Plan = col.ExecutionPlan(ctx, e.cfg.Query)
	}

	col.CaptureBefore(ctx)

	t0 := time.Now()
	err := conn.Execute(ctx, e.cfg.Query)
	if err == nil {
		_, _, err = conn.FetchOne()
	}
	elapsed := time.Since(t0).Seconds()

	if err != nil {
		slog.Errorf("[%s] run %d/%d failed: %v", t.Name, idx, e.cfg.Runs, err)
		e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs})
		return rec
	}

	rec.ElapsedTotal = elapsed
	server := elapsed // same boundary as the total, see package comment
	rec.ElapsedServer = &server
	latency := elapsed - server
	rec.Latency = &latency

	col.CaptureAfter(ctx)
	rec.IODeltas = col.IOStats()

	if n, ok := conn.RowCount(); ok {
		rows := n
		rec.RowCount = &rows
	}

	e.publish(Progress{Target: t.Name, RunIndex: idx, Runs: e.cfg.Runs, Elapsed: elapsed, OK: true})
	return rec
}

func failedRecord(t target.Config, idx int) RunRecord {
	return RunRecord{
		TargetName: t.Name,
		DBType:     t.DBType,
		OSType:     t.OSType,
		RunIndex:   idx,
	}
}

// publish sends without blocking; a full channel just drops the update.
func (e *Engine) publish(p Progress) {
	if e.updates == nil {
		return
	}
	select {
	case e.updates <- p:
	default:
	}
}
