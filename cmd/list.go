package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the object names the benchmark would sample from",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
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

	keys, err := b.client.ListObjects(ctx)
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, key := range keys {
		fmt.Fprintln(out, key)
	}
	logger.Info().Int("objects", len(keys)).Str("path", b.path).Msg("listed objects")
	return nil
}
