package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codesight/internal/logging"
)

// cliOptions holds the global flags and the logger built from them.
type cliOptions struct {
	verbose bool
	offline bool
	trace   bool
	timeout time.Duration

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	rootCmd := &cobra.Command{
		Use:   "codesight",
		Short: "LLM-assisted codebase analysis",
		Long: `codesight analyzes a source tree with a language model.

It reports import problems, code issues, duplicated logic and an executive
summary, then answers follow-up questions about the code.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			var err error
			opts.logger, err = logging.New(level, "console")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Use canned model responses instead of a provider")
	rootCmd.PersistentFlags().BoolVar(&opts.trace, "trace", false, "Print each model call phase to stderr")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newAskCmd(opts))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
