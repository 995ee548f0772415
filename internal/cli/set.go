package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/status"
)

func newSetCommand(bootstrap func(*cobra.Command) (*App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME=VALUE...",
		Short: "Adjust indicator values and record a history row",
		Long: `Load the status, apply the given values and save them with a history row.

Examples:
  statusboard set Mood=6
  statusboard set "Physical Pain=2" "Autistic Battery=7"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseEdits(args)
			if err != nil {
				return err
			}
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					app.Logger.Warn("close dependencies", zap.Error(err))
				}
			}()
			return app.Controller.Run(cmd.Context(), NewTerminalPresenter(cmd.OutOrStdout(), edits))
		},
	}
}

func parseEdits(args []string) (status.Edits, error) {
	edits := make(status.Edits, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected NAME=VALUE, got %q", arg)
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: value %q is not a whole number", name, raw)
		}
		edits[name] = value
	}
	return edits, nil
}
