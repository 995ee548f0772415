// Package cli implements the statusboard command line: serving the dashboard and
// reading or adjusting the status from a terminal.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/platform/config"
	"finitefield.org/statusboard/internal/platform/observability"
)

// Options customises the root command, mainly for tests.
type Options struct {
	// ConfigOptions are appended after the --env-file option.
	ConfigOptions []config.Option
	// Logger replaces the JSON logger built from --log-level.
	Logger *zap.Logger
}

type rootFlags struct {
	envFile  string
	logLevel string
}

// NewRootCommand builds the statusboard command tree.
func NewRootCommand(opts Options) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "statusboard",
		Short: "Track well-being indicators kept in a Google Sheet",
		Long: `statusboard reads a small set of 0-10 indicators from a spreadsheet, shows them
with descriptions and colour bands, and writes edits back with an append-only
history row.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "path to a .env file (empty disables it)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug, info, warn, error)")

	bootstrap := func(cmd *cobra.Command) (*App, error) {
		logger := opts.Logger
		if logger == nil {
			built, err := observability.NewLoggerWithLevel(flags.logLevel)
			if err != nil {
				return nil, fmt.Errorf("initialise logger: %w", err)
			}
			logger = built
		}
		configOpts := append([]config.Option{config.WithEnvFile(flags.envFile)}, opts.ConfigOptions...)
		return Bootstrap(cmd.Context(), logger.Named("statusboard"), configOpts...)
	}

	root.AddCommand(
		newServeCommand(bootstrap),
		newShowCommand(bootstrap),
		newSetCommand(bootstrap),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, newStyles(os.Stderr).failure.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
