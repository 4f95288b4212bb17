package sbmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrNoObjects is returned when the listing is empty and there is nothing to sample.
var ErrNoObjects = errors.New("no objects to sample")

// SampleBenchmarkMode lists the bucket once, then downloads randomly chosen
// objects (with replacement) and reports the latencies.
type SampleBenchmarkMode struct {
}

type sampleResult struct {
	sample  int
	latency Latency
	err     error
}

func (m *SampleBenchmarkMode) PrintHeader(ctx *BenchmarkContext) {
	out := ctx.out()
	fmt.Fprint(out, "\n--- BENCHMARK - Random sample ------------------------------------------------------------------------------------------------\n\n")
	fmt.Fprintf(out, "Downloading %d random objects from %s (%s) with %d thread(s)\n\n", ctx.Samples, ctx.Path, ctx.Backend, ctx.Threads)
}

func (m *SampleBenchmarkMode) PrintRecord(ctx *BenchmarkContext, report Report) {
	out := ctx.out()
	// prints the table header for the test results
	fmt.Fprintln(out, "                           +-------------------------------------------------------------------------------------------------+----------------------------------+")
	fmt.Fprintln(out, "                           |            Time to First Byte (ms)             |            Time to Last Byte (ms)              | Latency Distribution (avg in ms) |")
	fmt.Fprintln(out, "+---------+----------------+------------------------------------------------+------------------------------------------------+----------------------------------+")
	fmt.Fprintln(out, "| Samples |     Throughput |  avg   min   p25   p50   p75   p90   p99   max |  avg   min   p25   p50   p75   p90   p99   max |    dns   tcp   tls   srv   rest  |")
	fmt.Fprintln(out, "+---------+----------------+------------------------------------------------+------------------------------------------------+----------------------------------+")
	fmt.Fprintf(out, "| %7d | %9.3f MB/s |%5.0f %5.0f %5.0f %5.0f %5.0f %5.0f %5.0f %5.0f |%5.0f %5.0f %5.0f %5.0f %5.0f %5.0f %5.0f %5.0f |%7.0f %5.0f %5.0f %5.0f %6.0f  |\n",
		len(report.Records), report.ThroughputMBps(),
		report.TimeToFirstByte["avg"], report.TimeToFirstByte["min"], report.TimeToFirstByte["p25"], report.TimeToFirstByte["p50"], report.TimeToFirstByte["p75"], report.TimeToFirstByte["p90"], report.TimeToFirstByte["p99"], report.TimeToFirstByte["max"],
		report.TimeToLastByte["avg"], report.TimeToLastByte["min"], report.TimeToLastByte["p25"], report.TimeToLastByte["p50"], report.TimeToLastByte["p75"], report.TimeToLastByte["p90"], report.TimeToLastByte["p99"], report.TimeToLastByte["max"],
		report.Distribution["dns"], report.Distribution["tcp"], report.Distribution["tls"], report.Distribution["srv"], report.Distribution["rest"])
	fmt.Fprint(out, "+---------+----------------+------------------------------------------------+------------------------------------------------+----------------------------------+\n\n")
}

// PrintDurations prints every duration in sample order followed by the mean.
func (m *SampleBenchmarkMode) PrintDurations(ctx *BenchmarkContext, durations []time.Duration) {
	out := ctx.out()
	fmt.Fprintln(out, durations)
	fmt.Fprintf(out, "average duration: %.3f ms\n", MeanMillis(durations))
}

// PickSamples draws n keys uniformly at random with replacement.
func (m *SampleBenchmarkMode) PickSamples(ctx *BenchmarkContext, keys []string, n int) []string {
	rnd := ctx.random()
	picked := make([]string, n)
	for i := range picked {
		picked[i] = keys[rnd.Intn(len(keys))]
	}
	return picked
}

// ExecuteBenchmark runs the whole benchmark. The first failing download
// aborts the run and its error is returned.
func (m *SampleBenchmarkMode) ExecuteBenchmark(c context.Context, ctx *BenchmarkContext) ([]time.Duration, error) {
	threads := ctx.Threads
	if threads < 1 {
		threads = 1
	}
	ctx.Report = newReport(ctx, threads)

	keys, err := listKeys(c, ctx)
	if err != nil {
		return nil, err
	}

	m.PrintHeader(ctx)
	samples := m.PickSamples(ctx, keys, ctx.Samples)

	latencies, elapsed, err := runSamples(c, ctx, samples, threads, ctx.newTicker(len(samples)))
	if err != nil {
		ctx.Logger.Error().Err(err).Msg("benchmark aborted")
		return nil, err
	}
	ctx.Report.DurationSeconds = elapsed.Seconds()
	fmt.Fprint(ctx.out(), "\n\n")

	durations := ctx.Report.addRecords(samples, latencies)
	for i, lat := range latencies {
		ctx.Logger.Debug().Str("key", samples[i]).Dur("ttlb", lat.LastByte).Int64("bytes", lat.Bytes).Msg("sample")
	}
	ctx.Report.summarize()

	m.PrintRecord(ctx, ctx.Report)
	m.PrintDurations(ctx, durations)

	return durations, nil
}

// newReport fills in everything about the run that is known before the listing.
func newReport(ctx *BenchmarkContext, threads int) Report {
	hostname := ctx.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	return Report{
		Description: ctx.Description,
		Backend:     ctx.Backend,
		Endpoint:    ctx.Endpoint,
		Path:        ctx.Path,
		ClientEnv:   fmt.Sprintf("Application: %s, Host: %s, OS: %s", filepath.Base(os.Args[0]), hostname, runtime.GOOS),
		DateTimeUTC: time.Now().UTC().String(),
		Samples:     ctx.Samples,
		Threads:     threads,
		Records:     []Record{},
	}
}

// listKeys lists the bucket once and fails with ErrNoObjects on an empty listing.
func listKeys(c context.Context, ctx *BenchmarkContext) ([]string, error) {
	keys, err := ctx.Client.ListObjects(c)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	ctx.Report.ListedObjects = len(keys)
	ctx.Logger.Info().Int("objects", len(keys)).Msg("listed objects")
	if len(keys) == 0 {
		return nil, ErrNoObjects
	}
	return keys, nil
}

// runSamples downloads every sample on a pool of threads workers and returns
// the latencies in sample order together with the wall clock time of the
// whole batch. The first failing download cancels the remaining ones.
func runSamples(c context.Context, ctx *BenchmarkContext, samples []string, threads int, bar Ticker) ([]Latency, time.Duration, error) {
	c, cancel := context.WithCancel(c)
	defer cancel()

	// a channel to submit the test tasks
	testTasks := make(chan int, len(samples))

	// a channel to receive results from the test tasks back on the main thread
	results := make(chan sampleResult, len(samples))

	// create the workers for all the threads in this test
	op := &OperationDownload{}
	for t := 1; t <= threads; t++ {
		go func(tasks <-chan int, results chan<- sampleResult) {
			for sample := range tasks {
				// once a sample failed the remaining ones are skipped
				if err := c.Err(); err != nil {
					results <- sampleResult{sample: sample, err: err}
					continue
				}
				latency, err := op.Execute(c, ctx, samples[sample])
				if err != nil {
					cancel()
				}
				results <- sampleResult{sample: sample, latency: latency, err: err}
			}
		}(testTasks, results)
	}

	// start the timer for this benchmark
	benchmarkTimer := time.Now()

	// submit all the test tasks
	for s := range samples {
		testTasks <- s
	}

	// close the channel
	close(testTasks)

	// wait for all the results and keep them in sample order
	latencies := make([]Latency, len(samples))
	var firstErr error
	for range samples {
		res := <-results
		if res.err != nil {
			// skipped samples report the cancellation, not the cause
			if firstErr == nil || errors.Is(firstErr, context.Canceled) {
				firstErr = fmt.Errorf("download %s: %w", samples[res.sample], res.err)
			}
			continue
		}
		latencies[res.sample] = res.latency
		_ = bar.Add(1)
	}
	elapsed := time.Since(benchmarkTimer)
	if firstErr != nil {
		return nil, elapsed, firstErr
	}
	return latencies, elapsed, nil
}
