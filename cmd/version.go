package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// use go build -ldflags "-X github.com/lumafield/b2-benchmark/cmd.buildstamp=`date -u '+%Y-%m-%d_%I:%M:%S%p'` -X github.com/lumafield/b2-benchmark/cmd.githash=`git rev-parse HEAD`"
var buildstamp = "No build stamp provided"
var githash = defaultGithash

const defaultGithash = "No git hash provided"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Displays the version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit Hash: %s\n", githash)
		fmt.Fprintf(cmd.OutOrStdout(), "UTC Build Time: %s\n", buildstamp)
	},
}
