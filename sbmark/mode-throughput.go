package sbmark

import (
	"context"
	"fmt"
	"time"
)

// ThroughputBenchmarkMode repeats the random sample with 1, 2, ... up to
// Threads concurrent downloads and reports the throughput of every step.
type ThroughputBenchmarkMode struct {
}

// ThroughputStep is one thread count of the sweep.
type ThroughputStep struct {
	Threads         int     `json:"threads"`
	Samples         int     `json:"samples"`
	TotalBytes      int64   `json:"total_bytes"`
	DurationSeconds float64 `json:"duration_secs"`
	TimeToLastByte  float64 `json:"ttlb_avg_ms"`
}

func (s ThroughputStep) ThroughputBps() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return float64(s.TotalBytes) / s.DurationSeconds
}

func (s ThroughputStep) ThroughputMBps() float64 {
	return s.ThroughputBps() / 1024 / 1024
}

func (m *ThroughputBenchmarkMode) PrintHeader(ctx *BenchmarkContext, maxThreads int) {
	out := ctx.out()
	fmt.Fprint(out, "\n--- BENCHMARK - Throughput ---------------------------------------------------------------------------------------------------\n\n")
	fmt.Fprintf(out, "Downloading %d random objects from %s (%s) per step with 1 to %d thread(s)\n", ctx.Samples, ctx.Path, ctx.Backend, maxThreads)

	// prints the table header for the test results
	fmt.Fprintln(out, "+---------+---------+-----------------+---------------+")
	fmt.Fprintln(out, "| Threads | Samples | Max. Throughput | avg TTLB (ms) |")
	fmt.Fprintln(out, "+---------+---------+-----------------+---------------+")
}

func (m *ThroughputBenchmarkMode) PrintRecord(ctx *BenchmarkContext, step ThroughputStep) {
	fmt.Fprintf(ctx.out(), "| %7d | %7d | %10.3f MB/s | %13.0f |\n",
		step.Threads, step.Samples, step.ThroughputMBps(), step.TimeToLastByte)
}

func (m *ThroughputBenchmarkMode) PrintFooter(ctx *BenchmarkContext) {
	fmt.Fprint(ctx.out(), "+---------+---------+-----------------+---------------+\n\n")
}

// ExecuteBenchmark lists the bucket once and runs one batch of Samples random
// downloads per thread count. The report keeps the records of the fastest
// step; every step is listed in Report.Throughput.
func (m *ThroughputBenchmarkMode) ExecuteBenchmark(c context.Context, ctx *BenchmarkContext) ([]ThroughputStep, error) {
	maxThreads := ctx.Threads
	if maxThreads < 1 {
		maxThreads = 1
	}
	ctx.Report = newReport(ctx, maxThreads)

	keys, err := listKeys(c, ctx)
	if err != nil {
		return nil, err
	}

	m.PrintHeader(ctx, maxThreads)
	picker := &SampleBenchmarkMode{}

	var (
		steps       []ThroughputStep
		best        = -1
		bestSamples []string
		bestLats    []Latency
	)
	// increase thread count and keep the step with the highest total throughput
	for t := 1; t <= maxThreads; t++ {
		samples := picker.PickSamples(ctx, keys, ctx.Samples)
		latencies, elapsed, err := runSamples(c, ctx, samples, t, &NilTicker{})
		if err != nil {
			ctx.Logger.Error().Err(err).Int("threads", t).Msg("benchmark aborted")
			return nil, err
		}

		durations := make([]time.Duration, len(latencies))
		step := ThroughputStep{Threads: t, Samples: len(samples), DurationSeconds: elapsed.Seconds()}
		for i, lat := range latencies {
			durations[i] = lat.LastByte
			step.TotalBytes += lat.Bytes
		}
		step.TimeToLastByte = MeanMillis(durations)

		m.PrintRecord(ctx, step)
		ctx.Logger.Info().Int("threads", t).Float64("mbps", step.ThroughputMBps()).Msg("throughput step")

		if best < 0 || step.ThroughputBps() > steps[best].ThroughputBps() {
			best, bestSamples, bestLats = len(steps), samples, latencies
		}
		steps = append(steps, step)
	}
	m.PrintFooter(ctx)

	ctx.Report.Threads = steps[best].Threads
	ctx.Report.DurationSeconds = steps[best].DurationSeconds
	ctx.Report.addRecords(bestSamples, bestLats)
	ctx.Report.summarize()
	ctx.Report.Throughput = steps

	return steps, nil
}
