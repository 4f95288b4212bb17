package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumafield/b2-benchmark/config"
	"github.com/lumafield/b2-benchmark/sbmark"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Download randomly chosen objects and report the latencies",
	Long: `Lists the bucket once, then downloads --samples objects picked at random
(with replacement) into --download-dir. Prints the duration of every download,
their mean and a latency distribution table.

With --mode throughput the random sample is repeated with 1, 2, ... up to
--threads concurrent downloads and the throughput of every step is printed.`,
	Example: `  # 100 sequential downloads through the native API
  b2-benchmark benchmark

  # 500 downloads on 8 threads, fresh connections, report as json
  b2-benchmark benchmark --samples 500 --threads 8 --disable-keepalives --json report.json

  # the same bucket through the S3 compatible API
  b2-benchmark benchmark --backend s3

  # find the thread count with the highest throughput
  b2-benchmark benchmark --mode throughput --threads 16 --samples 200`,
	Args: cobra.NoArgs,
	RunE: runBenchmark,
}

func init() {
	flags := benchmarkCmd.Flags()
	flags.String("mode", config.ModeSample, "Benchmark mode: sample or throughput")
	flags.Int("samples", 100, "Number of downloads (per step in throughput mode)")
	flags.Int("threads", 1, "Number of concurrent downloads. 1 runs them one after the other. Upper end of the sweep in throughput mode")
	flags.String("download-dir", ".", "Directory the objects are downloaded into")
	flags.String("description", "", "Description of the run, added to the report")
	flags.String("json", "", "Saves the results as .json file")
	flags.String("csv", "", "Saves the results as .csv file")
	flags.Bool("quiet", false, "Hide progress bars")
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, logFile, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx := cmd.Context()
	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to set up backend")
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	hostname, _ := os.Hostname()
	bctx := &sbmark.BenchmarkContext{
		Description: cfg.Description,
		Backend:     cfg.Backend,
		Endpoint:    b.endpoint,
		Path:        b.path,
		Hostname:    hostname,
		Client:      b.client,
		Samples:     cfg.Samples,
		Threads:     cfg.Threads,
		DownloadDir: cfg.DownloadDir,
		Quiet:       quiet,
		Logger:      logger,
		Out:         cmd.OutOrStdout(),
	}

	switch cfg.Mode {
	case config.ModeThroughput:
		_, err = (&sbmark.ThroughputBenchmarkMode{}).ExecuteBenchmark(ctx, bctx)
	default:
		_, err = (&sbmark.SampleBenchmarkMode{}).ExecuteBenchmark(ctx, bctx)
	}
	if err != nil {
		logger.Error().Err(err).Str("mode", cfg.Mode).Msg("benchmark failed")
		return err
	}

	// if the csv option is set, save the report as .csv
	if cfg.CSVFile != "" {
		csvReport, err := sbmark.ToCsv(bctx.Report)
		if err != nil {
			return fmt.Errorf("failed to create .csv output: %w", err)
		}
		if err := os.WriteFile(cfg.CSVFile, csvReport, 0644); err != nil {
			return fmt.Errorf("failed to create .csv output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CSV results were written to %s\n", cfg.CSVFile)
	}

	// if the json option is set, save the report as .json
	if cfg.JSONFile != "" {
		jsonReport, err := sbmark.ToJson(bctx.Report)
		if err != nil {
			return fmt.Errorf("failed to create .json output: %w", err)
		}
		if err := os.WriteFile(cfg.JSONFile, jsonReport, 0644); err != nil {
			return fmt.Errorf("failed to create .json output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON results were written to %s\n", cfg.JSONFile)
	}
	return nil
}
