package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumafield/b2-benchmark/sbmark"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a local file many times under random names",
	Long: `Seeds the bucket for a benchmark. The file is uploaded --count times, each
copy under a fresh UUID below the configured prefix.`,
	Example: `  b2-benchmark upload audio.ogg --count 100`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runUpload,
}

func init() {
	uploadCmd.Flags().IntP("count", "n", 100, "Number of copies to upload")
	uploadCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

func runUpload(cmd *cobra.Command, args []string) error {
	localPath := "audio.ogg"
	if len(args) == 1 {
		localPath = args[0]
	}
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

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

	bctx := &sbmark.BenchmarkContext{
		Backend:  cfg.Backend,
		Endpoint: b.endpoint,
		Path:     b.path,
		Client:   b.client,
		Quiet:    quiet,
		Logger:   logger,
		Out:      cmd.OutOrStdout(),
	}
	keys, err := sbmark.UploadObjects(ctx, bctx, count, localPath)
	logger.Info().Int("uploaded", len(keys)).Str("path", b.path).Msg("upload finished")
	return err
}
