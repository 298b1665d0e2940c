package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/slog"

	"sqlbench/internal/engine"
	"sqlbench/internal/report"
	"sqlbench/internal/storage"
)

// Start runs the benchmark headless: plain per-run progress lines, a final
// summary table, the CSV file, and a history entry.
func Start(ctx context.Context, cfg engine.Config, outFile string) error {
	printHeader(cfg)

	updates := make(engine.ProgressChan, 100)
	e := engine.New(cfg, updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range updates {
			if p.OK {
				fmt.Printf("[%s] ✓ %d/%d: %.6fs\n", p.Target, p.RunIndex, p.Runs, p.Elapsed)
			} else {
				fmt.Printf("[%s] ✗ %d/%d: failed\n", p.Target, p.RunIndex, p.Runs)
			}
		}
	}()

	results := e.Run(ctx)
	close(updates)
	<-done

	return Finalize(cfg, outFile, results)
}

// Finalize prints the per-target summaries, writes the CSV and records the
// session history. Shared with the live TUI mode.
func Finalize(cfg engine.Config, outFile string, results []engine.TargetResult) error {
	summaries := printSummaries(results)

	if outFile != "" {
		if err := report.WriteCSV(outFile, results, cfg.Query, cfg.Runs); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Printf("\n💾 Results saved to %s\n", outFile)
	}

	saveHistory(cfg, outFile, summaries)
	return nil
}

func printHeader(cfg engine.Config) {
	mode := "sequential"
	if cfg.Concurrent {
		mode = fmt.Sprintf("concurrent (max %d workers)", cfg.MaxWorkers)
	}

	fmt.Printf("\n🚀 SQLBENCH — QUERY LATENCY BENCHMARK\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Targets : %d\n", len(cfg.Targets))
	fmt.Printf("Query   : %s\n", cfg.Query)
	fmt.Printf("Runs    : %d per target\n", cfg.Runs)
	fmt.Printf("Mode    : %s\n", mode)
	fmt.Printf("======================================================================\n\n")
}

func printSummaries(results []engine.TargetResult) []report.Summary {
	fmt.Printf("\n📊 OVERALL STATISTICS\n")
	fmt.Printf("======================================================================\n")

	summaries := make([]report.Summary, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%s (%s/%s): skipped — %v\n",
				res.Target.Name, res.Target.DBType, res.Target.OSType, res.Err)
			continue
		}
		s := report.Summarize(res)
		summaries = append(summaries, s)

		if s.Succeeded == 0 {
			fmt.Printf("%s (%s/%s): no successful runs\n", s.Target, s.DBType, s.OSType)
			continue
		}
		fmt.Printf("%s (%s/%s): mean=%.6fs min=%.6fs max=%.6fs p50=%.2fms p99=%.2fms runs=%d/%d\n",
			s.Target, s.DBType, s.OSType,
			s.MeanSeconds, s.MinSeconds, s.MaxSeconds,
			s.P50Ms, s.P99Ms, s.Succeeded, s.Runs)
	}
	fmt.Printf("======================================================================\n")
	return summaries
}

func saveHistory(cfg engine.Config, outFile string, summaries []report.Summary) {
	store, err := storage.NewStore()
	if err != nil {
		slog.Warnf("history store unavailable: %v", err)
		return
	}
	defer store.Close()

	item := storage.HistoryItem{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		Query:      cfg.Query,
		Runs:       cfg.Runs,
		Concurrent: cfg.Concurrent,
		MaxWorkers: cfg.MaxWorkers,
		OutputFile: outFile,
		Targets:    summaries,
	}
	if err := store.Save(item); err != nil {
		slog.Warnf("could not save session history: %v", err)
	}
}
