// Command matchcore-bench drives synthetic order flow against an
// in-process engine and reports submit-latency percentiles. It plays
// the role of the out-of-scope "synthetic order-flow generator"
// collaborator (spec.md §1): nothing in this command is part of the
// core itself. Grounded on the teacher's cmd/benchmark BenchmarkSuite
// latency-percentile harness (runBenchmark, sortLatencies), rewritten
// to drive engine.SubmitOrder through a bounded panjf2000/ants/v2 pool
// instead of a single warm-up loop, so the benchmark also exercises
// the engine's one coarse lock under real concurrent callers
// (spec.md §5).
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/quantedge/matchcore/internal/engine"
	"github.com/quantedge/matchcore/pkg/config"
	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/logging"
	"github.com/quantedge/matchcore/pkg/metrics"
	"github.com/quantedge/matchcore/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	instruments := flag.Int("instruments", 0, "instrument count (0 = use config default)")
	ratePerSec := flag.Int("rate", 0, "target orders/sec (0 = use config default)")
	duration := flag.Int("duration", 0, "benchmark duration in seconds (0 = use config default)")
	workers := flag.Int("workers", 0, "bounded worker pool size (0 = use config default)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "matchcore-bench: config:", err)
		os.Exit(1)
	}
	if *instruments > 0 {
		cfg.Bench.Instruments = *instruments
	}
	if *ratePerSec > 0 {
		cfg.Bench.TargetRatePerSec = *ratePerSec
	}
	if *duration > 0 {
		cfg.Bench.DurationSeconds = *duration
	}
	if *workers > 0 {
		cfg.Bench.Workers = *workers
	}

	logger := logging.New("matchcore-bench", cfg.Engine.LogLevel)
	defer logger.Sync() //nolint:errcheck

	m := metrics.NewEngine()
	eng := engine.New(types.Open, logger, m)

	instrumentIDs := make([]types.InstrumentID, 0, cfg.Bench.Instruments)
	for i := 0; i < cfg.Bench.Instruments; i++ {
		id := types.InstrumentID(uuid.New().String())
		if err := eng.AddInstrument(id, fmt.Sprintf("SYN%d", i)); err != nil {
			logger.Fatal("add_instrument failed", zap.Error(err))
		}
		instrumentIDs = append(instrumentIDs, id)
	}

	totalOps := cfg.Bench.TargetRatePerSec * cfg.Bench.DurationSeconds
	logger.Info("starting benchmark run",
		zap.Int("instruments", cfg.Bench.Instruments),
		zap.Int("target_rate_per_sec", cfg.Bench.TargetRatePerSec),
		zap.Int("duration_seconds", cfg.Bench.DurationSeconds),
		zap.Int("workers", cfg.Bench.Workers),
		zap.Int("total_ops", totalOps),
	)

	result := run(eng, instrumentIDs, totalOps, cfg.Bench.Workers, logger)

	logger.Info("benchmark completed",
		zap.Int64("operations", result.Operations),
		zap.Duration("duration", result.Duration),
		zap.Float64("ops_per_second", result.OpsPerSecond),
		zap.Duration("avg_latency", result.AvgLatency),
		zap.Duration("p95_latency", result.P95Latency),
		zap.Duration("p99_latency", result.P99Latency),
	)
	fmt.Printf("operations=%d duration=%s ops/sec=%.1f avg=%s p50=%s p95=%s p99=%s max=%s\n",
		result.Operations, result.Duration, result.OpsPerSecond,
		result.AvgLatency, result.P50Latency, result.P95Latency, result.P99Latency, result.MaxLatency,
	)
}

// Result is the latency-percentile summary of one benchmark run,
// grounded on the teacher's BenchmarkResult shape.
type Result struct {
	Operations   int64
	Duration     time.Duration
	OpsPerSecond float64
	AvgLatency   time.Duration
	MinLatency   time.Duration
	MaxLatency   time.Duration
	P50Latency   time.Duration
	P95Latency   time.Duration
	P99Latency   time.Duration
}

// run submits totalOps synthetic orders against eng through a bounded
// ants.Pool sized workers, recording each call's submit latency, and
// returns the resulting percentile summary.
func run(eng *engine.Engine, instrumentIDs []types.InstrumentID, totalOps, workers int, logger *zap.Logger) Result {
	latencies := make([]time.Duration, totalOps)
	var recorded int64

	pool, err := ants.NewPool(workers)
	if err != nil {
		logger.Fatal("ants.NewPool failed", zap.Error(err))
	}
	defer pool.Release()

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalOps; i++ {
		idx := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			order := syntheticOrder(instrumentIDs, idx)
			opStart := time.Now()
			_, _, _ = eng.SubmitOrder(order)
			latencies[idx] = time.Since(opStart)
			atomic.AddInt64(&recorded, 1)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			logger.Warn("order dropped, pool saturated", zap.Error(err))
		}
	}
	wg.Wait()
	duration := time.Since(start)

	ops := atomic.LoadInt64(&recorded)
	live := latencies[:int(ops)]
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })
	var total time.Duration
	for _, l := range live {
		total += l
	}

	return Result{
		Operations:   ops,
		Duration:     duration,
		OpsPerSecond: float64(ops) / duration.Seconds(),
		AvgLatency:   total / time.Duration(maxInt64(ops, 1)),
		MinLatency:   percentile(live, 0),
		MaxLatency:   percentile(live, 1),
		P50Latency:   percentile(live, 0.50),
		P95Latency:   percentile(live, 0.95),
		P99Latency:   percentile(live, 0.99),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// syntheticOrder generates a plausible random order, alternating side
// and instrument so both books of the ladder accumulate depth. The
// order_id is a ksuid so it is unique and roughly time-sortable across
// the whole run, the way a real session-level order id generator
// would behave.
func syntheticOrder(instrumentIDs []types.InstrumentID, i int) types.Order {
	side := types.Buy
	if i%2 == 1 {
		side = types.Sell
	}
	mid := 100 + rand.Intn(20)
	price := decimal.MustFromString(fmt.Sprintf("%d.00", mid))
	qty := decimal.MustFromString(fmt.Sprintf("%d", 1+rand.Intn(10)))

	return types.Order{
		OrderID:      types.OrderID(ksuid.New().String()),
		InstrumentID: instrumentIDs[i%len(instrumentIDs)],
		Side:         side,
		OrderType:    types.Limit,
		Quantity:     qty,
		Price:        &price,
		TimeInForce:  types.GTC,
		Timestamp:    time.Now(),
		TraderID:     types.TraderID(fmt.Sprintf("trader-%d", i%37)),
	}
}
