// Package cmd wires configuration, logging and the storage backends into the
// b2-benchmark command line.
package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lumafield/b2-benchmark/b2api"
	"github.com/lumafield/b2-benchmark/config"
)

const logFileName = "b2-benchmark.log"

var (
	v          = viper.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "b2-benchmark",
	Short: "Measures download latency against a Backblaze B2 bucket",
	Long: `b2-benchmark lists a Backblaze B2 bucket, downloads randomly chosen
objects and reports the time each download took.

Credentials are read from BACKBLAZE_KEY_ID, BACKBLAZE_KEY and BACKBLAZE_BUCKET,
from a .env file in the working directory or from --config.`,
	SilenceUsage: true,
}

// Execute runs the root command. Errors are printed by cobra.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)

	addGlobalFlags(rootCmd.PersistentFlags())
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json, toml or env)")
	flags.String("bucket", "", "Bucket to benchmark, overrides BACKBLAZE_BUCKET")
	flags.String("prefix", "", "Object name prefix, overrides the prefix the key was issued with")
	flags.String("base-url", b2api.DefaultBaseURL, "B2 authorization endpoint")
	flags.String("backend", "b2", "Storage backend: b2, s3, minio or fs")
	flags.String("s3-endpoint", "", "S3 compatible endpoint, discovered from the B2 account when empty")
	flags.String("s3-region", "", "S3 signing region, derived from the endpoint when empty")
	flags.String("fs-root", "", "Root directory of the fs backend")
	flags.Bool("all-pages", false, "List every page instead of only the first")
	flags.Duration("timeout", 180*time.Second, "HTTP client timeout")
	flags.Bool("disable-keepalives", false, "Open a new connection for every request")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.String("log-path", "", "Directory of the log file. Default is the current directory")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
}

// loadConfig reads the configuration. Flags of the running command take
// precedence over environment and config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v, configFile)
}

// setupLogger writes JSON lines to the log file and a human readable copy to
// stderr. The returned closer flushes the log file.
func setupLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	logPath := cfg.LogPath
	if logPath == "" {
		logPath, _ = os.Getwd()
	}
	file, err := os.OpenFile(filepath.Join(logPath, logFileName), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	logger := zerolog.New(zerolog.MultiLevelWriter(file, console)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, file, nil
}

// httpClient builds the client every backend talks through.
func httpClient(cfg *config.Config) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.Insecure}
	// true forces DNS, TCP and TLS on every request
	tr.DisableKeepAlives = cfg.DisableKeepAlives
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tr,
	}
}

func authorize(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*b2api.Client, error) {
	client, err := b2api.Authorize(ctx, cfg.Credentials(),
		b2api.WithBaseURL(cfg.BaseURL),
		b2api.WithHTTPClient(httpClient(cfg)),
		b2api.WithLogger(logger),
		b2api.WithPrefix(cfg.Prefix),
		b2api.WithUserAgent(userAgent()),
	)
	if err != nil {
		return nil, err
	}
	if exp := client.Session().KeyExpiration; exp != nil {
		event := logger.Info()
		if time.Until(*exp) < 24*time.Hour {
			event = logger.Warn()
		}
		event.Time("expires", *exp).Msg("application key expires")
	}
	return client, nil
}

// userAgent carries the short git hash when the binary was built with one.
func userAgent() string {
	if githash == "" || githash == defaultGithash {
		return "b2-benchmark"
	}
	if len(githash) > 7 {
		return "b2-benchmark/" + githash[:7]
	}
	return "b2-benchmark/" + githash
}
