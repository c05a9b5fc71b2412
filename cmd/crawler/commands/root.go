package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ranked-crawler/internal/config"
	"ranked-crawler/internal/logging"
)

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "crawler",
		Short:         "crawler fetches ranked League of Legends match data from the Riot API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			logging.SetDefault(logging.NewConsole(level))
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Switch on debug mode")

	root.AddCommand(newCrawlCmd(), newConstantsCmd())
	return root
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	envFile := config.LoadEnv()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	logger := logging.Default()
	if envFile != "" {
		logger.Debug("loaded env file", "path", envFile)
	}
	defer logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
