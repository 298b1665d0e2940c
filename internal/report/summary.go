package report

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"sqlbench/internal/engine"
	"sqlbench/internal/target"
)

// Summary condenses one target's run records for console output and the
// session history. Percentiles come from an HdrHistogram over successful
// runs only.
type Summary struct {
	Target    string        `json:"target"`
	DBType    target.DBType `json:"db_type"`
	OSType    target.OSType `json:"os_type"`
	Runs      int           `json:"runs"`
	Succeeded int           `json:"succeeded"`

	MeanSeconds float64 `json:"mean_seconds"`
	MinSeconds  float64 `json:"min_seconds"`
	MaxSeconds  float64 `json:"max_seconds"`
	P50Ms       float64 `json:"p50_ms"`
	P90Ms       float64 `json:"p90_ms"`
	P99Ms       float64 `json:"p99_ms"`
}

func Summarize(res engine.TargetResult) Summary {
	s := Summary{
		Target: res.Target.Name,
		DBType: res.Target.DBType,
		OSType: res.Target.OSType,
		Runs:   len(res.Records),
	}

	// 1us to 10min, 3 significant figures
	hist := hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3)

	var sum float64
	for _, rec := range res.Records {
		if rec.Failed() {
			continue
		}
		s.Succeeded++
		sum += rec.ElapsedTotal
		if s.MinSeconds == 0 || rec.ElapsedTotal < s.MinSeconds {
			s.MinSeconds = rec.ElapsedTotal
		}
		if rec.ElapsedTotal > s.MaxSeconds {
			s.MaxSeconds = rec.ElapsedTotal
		}
		hist.RecordValue(int64(rec.ElapsedTotal * 1e6))
	}

	if s.Succeeded > 0 {
		s.MeanSeconds = sum / float64(s.Succeeded)
		s.P50Ms = float64(hist.ValueAtQuantile(50)) / 1000.0
		s.P90Ms = float64(hist.ValueAtQuantile(90)) / 1000.0
		s.P99Ms = float64(hist.ValueAtQuantile(99)) / 1000.0
	}
	return s
}
